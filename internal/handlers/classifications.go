package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/jsonpatch"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/permission"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/benvon/tag-catalog/internal/request"
	"github.com/benvon/tag-catalog/internal/validation"
	"github.com/benvon/tag-catalog/internal/versions"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ClassificationHandler serves the classification endpoints
type ClassificationHandler struct {
	Deps
	classifications database.ClassificationRepositoryInterface
	versions        database.VersionRepositoryInterface
}

// NewClassificationHandler creates a new classification handler
func NewClassificationHandler(classifications database.ClassificationRepositoryInterface, versionRepo database.VersionRepositoryInterface, deps Deps) *ClassificationHandler {
	return &ClassificationHandler{Deps: deps, classifications: classifications, versions: versionRepo}
}

// RegisterRoutes registers classification routes on a router already prefixed with /classifications
func (h *ClassificationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.List).Methods("GET")
	r.HandleFunc("", h.Create).Methods("POST")
	r.HandleFunc("/name/{name}", h.GetByName).Methods("GET")
	r.HandleFunc("/{id}", h.Get).Methods("GET")
	r.HandleFunc("/{id}", h.Patch).Methods("PATCH")
	r.HandleFunc("/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/{id}/versions", h.ListVersions).Methods("GET")
	r.HandleFunc("/{id}/versions/{version}", h.GetVersion).Methods("GET")
}

var classificationSubject = permission.Subject{Resource: models.ResourceClassification}

// List returns every classification with the requested optional fields
func (h *ClassificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := h.requireView(r, classificationSubject); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	limit, err := queryLimit(r, MaxListLimit)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	fields := models.ParseFields(r.URL.Query().Get("fields"))

	list, total, err := h.classifications.List(r.Context(), fields, limit)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if list == nil {
		list = []*models.Classification{}
	}
	respondJSON(w, http.StatusOK, models.ClassificationList{Data: list, Paging: models.Paging{Total: total}})
}

// GetByName returns one classification looked up by name
func (h *ClassificationHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	if err := h.requireView(r, classificationSubject); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	fields := models.ParseFields(r.URL.Query().Get("fields"))
	c, err := h.classifications.GetByName(r.Context(), mux.Vars(r)["name"], fields)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Get returns one classification looked up by id
func (h *ClassificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if err := h.requireView(r, permission.Subject{Resource: models.ResourceClassification, ID: id}); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	fields := models.ParseFields(r.URL.Query().Get("fields"))
	c, err := h.classifications.GetByID(r.Context(), id, fields)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Create adds a classification. The name is trimmed before validation.
func (h *ClassificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateClassification
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := validation.Validate.Struct(req); err != nil {
		respondError(w, r, err, h.logger())
		return
	}

	perm, err := h.evaluate(r, classificationSubject)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if err := permission.CanCreate(models.ResourceClassification, perm).Error(); err != nil {
		respondError(w, r, err, h.logger())
		return
	}

	provider := req.Provider
	if provider == "" {
		provider = models.ProviderUser
	}
	c := &models.Classification{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Provider:    provider,
		UpdatedBy:   request.Actor(r),
	}
	if err := h.classifications.Create(r.Context(), c); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	h.logger().Info("classification_created",
		zap.String("classification_id", c.ID.String()),
		zap.String("name", c.Name),
		zap.String("updated_by", c.UpdatedBy),
	)
	if strings.TrimSpace(c.Description) == "" {
		h.enqueue(r.Context(), queue.NewSuggestDescriptionJob(models.ResourceClassification, c.ID, c.FullyQualifiedName))
	}
	respondJSON(w, http.StatusCreated, c)
}

// Patch applies a JSON Patch to a classification and records a new version
func (h *ClassificationHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	raw, patch, err := decodePatch(r)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}

	ctx := r.Context()
	current, err := h.classifications.GetByID(ctx, id, nil)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	perm, err := h.evaluate(r, permission.Subject{Resource: models.ResourceClassification, ID: id})
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	target := permission.TargetContext{
		Resource:   models.ResourceClassification,
		Name:       current.Name,
		Provider:   current.Provider,
		Permission: perm,
	}
	if err := permission.CanPatch(target, patchedFields(patch)).Error(); err != nil {
		respondError(w, r, err, h.logger())
		return
	}

	updated := &models.Classification{}
	if err := jsonpatch.Apply(current, raw, updated); err != nil {
		respondError(w, r, badRequest("%v", err), h.logger())
		return
	}
	updated.Name = strings.TrimSpace(updated.Name)
	if updated.Name != current.Name {
		if err := validation.ValidateEntityName(updated.Name); err != nil {
			respondError(w, r, badRequest("%v", err), h.logger())
			return
		}
	}

	change := versions.Describe(current, updated)
	if versions.IsEmpty(change) {
		respondJSON(w, http.StatusOK, current)
		return
	}
	updated.UpdatedBy = request.Actor(r)
	updated.UpdatedAt = time.Now().UTC()
	if err := h.classifications.Update(ctx, updated, change); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	h.logger().Info("classification_updated",
		zap.String("classification_id", id.String()),
		zap.String("change", versions.Summary(change)),
	)

	fresh, err := h.classifications.GetByID(ctx, id, models.NewFields(models.FieldTermCount, models.FieldUsageCount))
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	respondJSON(w, http.StatusOK, fresh)
}

// Delete removes a classification. A classification that still has tags is
// only removed when recursive=true.
func (h *ClassificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	ctx := r.Context()
	current, err := h.classifications.GetByID(ctx, id, models.NewFields(models.FieldTermCount))
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	perm, err := h.evaluate(r, permission.Subject{Resource: models.ResourceClassification, ID: id})
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	target := permission.TargetContext{
		Resource:   models.ResourceClassification,
		Name:       current.Name,
		Provider:   current.Provider,
		Permission: perm,
	}
	if err := permission.CanDelete(target).Error(); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if current.TermCount != nil && *current.TermCount > 0 && r.URL.Query().Get("recursive") != "true" {
		respondError(w, r, badRequest("classification %s has %d tags; set recursive=true to delete them", current.Name, *current.TermCount), h.logger())
		return
	}

	if err := h.classifications.Delete(ctx, id); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	h.logger().Info("classification_deleted",
		zap.String("classification_id", id.String()),
		zap.String("name", current.Name),
	)
	h.enqueue(ctx, queue.NewFeedCleanupJob(models.ResourceClassification, id, current.FullyQualifiedName, request.Actor(r)))
	respondJSON(w, http.StatusOK, current)
}

// ListVersions returns the version history of a classification
func (h *ClassificationHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	listVersions(w, r, h.Deps, h.versions, models.ResourceClassification)
}

// GetVersion returns one recorded version of a classification
func (h *ClassificationHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if err := h.requireView(r, permission.Subject{Resource: models.ResourceClassification, ID: id}); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	version, err := strconv.ParseFloat(mux.Vars(r)["version"], 64)
	if err != nil || version <= 0 {
		respondError(w, r, badRequest("invalid version %q", mux.Vars(r)["version"]), h.logger())
		return
	}
	v, err := h.versions.Get(r.Context(), id, version)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	respondJSON(w, http.StatusOK, v)
}

// listVersions serves the version history of any versioned resource
func listVersions(w http.ResponseWriter, r *http.Request, deps Deps, repo database.VersionRepositoryInterface, resource models.ResourceEntity) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err, deps.logger())
		return
	}
	if err := deps.requireView(r, permission.Subject{Resource: resource, ID: id}); err != nil {
		respondError(w, r, err, deps.logger())
		return
	}
	history, err := repo.ListByEntity(r.Context(), id)
	if err != nil {
		respondError(w, r, err, deps.logger())
		return
	}
	history.EntityType = string(resource)
	respondJSON(w, http.StatusOK, history)
}

// decodePatch reads a JSON Patch body and rejects operations on read-only fields
func decodePatch(r *http.Request) ([]byte, jsonpatch.Patch, error) {
	raw, err := readBody(r)
	if err != nil {
		return nil, nil, err
	}
	patch, err := jsonpatch.Decode(raw)
	if err != nil {
		return nil, nil, badRequest("%v", err)
	}
	if err := jsonpatch.CheckWritable(patch, permission.WritableFields()); err != nil {
		return nil, nil, err
	}
	return raw, patch, nil
}

// patchedFields lists the distinct top-level fields a patch touches, in order
func patchedFields(p jsonpatch.Patch) []string {
	seen := map[string]bool{}
	var fields []string
	for _, op := range p {
		f := jsonpatch.TopLevelField(op.Path)
		if !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}
	return fields
}
