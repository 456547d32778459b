package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/jsonpatch"
	logpkg "github.com/benvon/tag-catalog/internal/logger"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/permission"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/benvon/tag-catalog/internal/request"
	"github.com/benvon/tag-catalog/internal/validation"
	"github.com/benvon/tag-catalog/internal/versions"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TagHandler serves the tag endpoints
type TagHandler struct {
	Deps
	tags            database.TagRepositoryInterface
	classifications database.ClassificationRepositoryInterface
	versions        database.VersionRepositoryInterface
	pageSize        int
}

// NewTagHandler creates a new tag handler. pageSize is the default list limit.
func NewTagHandler(tags database.TagRepositoryInterface, classifications database.ClassificationRepositoryInterface, versionRepo database.VersionRepositoryInterface, pageSize int, deps Deps) *TagHandler {
	if pageSize <= 0 {
		pageSize = DefaultListLimit
	}
	return &TagHandler{
		Deps:            deps,
		tags:            tags,
		classifications: classifications,
		versions:        versionRepo,
		pageSize:        pageSize,
	}
}

// RegisterRoutes registers tag routes on a router already prefixed with /tags
func (h *TagHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.List).Methods("GET")
	r.HandleFunc("", h.Create).Methods("POST")
	r.HandleFunc("/{id}", h.Get).Methods("GET")
	r.HandleFunc("/{id}", h.Patch).Methods("PATCH")
	r.HandleFunc("/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/{id}/versions", h.ListVersions).Methods("GET")
}

// List returns one cursor page of the tags under the parent classification
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	parent := strings.TrimSpace(q.Get("parent"))
	if parent == "" {
		respondError(w, r, badRequest("parent is required"), h.logger())
		return
	}
	window := database.PageWindow{Before: q.Get("before"), After: q.Get("after")}
	if window.Before != "" && window.After != "" {
		respondError(w, r, badRequest("before and after are mutually exclusive"), h.logger())
		return
	}
	limit, err := queryLimit(r, h.pageSize)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	window.Limit = limit
	if err := h.requireView(r, permission.Subject{Resource: models.ResourceTag}); err != nil {
		respondError(w, r, err, h.logger())
		return
	}

	tags, paging, err := h.tags.ListByParent(r.Context(), parent, models.ParseFields(q.Get("fields")), window)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if tags == nil {
		tags = []*models.Tag{}
	}
	respondJSON(w, http.StatusOK, models.TagList{Data: tags, Paging: paging})
}

// Get returns one tag
func (h *TagHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if err := h.requireView(r, permission.Subject{Resource: models.ResourceTag, ID: id}); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	t, err := h.tags.GetByID(r.Context(), id, models.ParseFields(r.URL.Query().Get("fields")))
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// Create adds a tag under an existing classification. Allowed with Create on
// tags or EditAll on the parent classification.
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTag
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.Classification = strings.TrimSpace(req.Classification)
	if err := validation.Validate.Struct(req); err != nil {
		respondError(w, r, err, h.logger())
		return
	}

	ctx := r.Context()
	parent, err := h.classifications.GetByName(ctx, req.Classification, nil)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	tagPerm, err := h.evaluate(r, permission.Subject{Resource: models.ResourceTag})
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	parentPerm, err := h.evaluate(r, permission.Subject{Resource: models.ResourceClassification, ID: parent.ID})
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if !parentPerm.Allows(models.OperationEditAll) {
		if err := permission.CanCreate(models.ResourceTag, tagPerm).Error(); err != nil {
			respondError(w, r, err, h.logger())
			return
		}
	}

	provider := req.Provider
	if provider == "" {
		provider = models.ProviderUser
	}
	t := &models.Tag{
		Name:           req.Name,
		DisplayName:    req.DisplayName,
		Description:    req.Description,
		Classification: &models.EntityReference{Name: parent.Name},
		Provider:       provider,
		UpdatedBy:      request.Actor(r),
	}
	if err := h.tags.Create(ctx, t); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	h.logger().Info("tag_created",
		zap.String("tag_id", t.ID.String()),
		logpkg.Entity(string(models.ResourceTag), t.FullyQualifiedName),
		zap.String("updated_by", t.UpdatedBy),
	)
	if strings.TrimSpace(t.Description) == "" {
		h.enqueue(ctx, queue.NewSuggestDescriptionJob(models.ResourceTag, t.ID, t.FullyQualifiedName))
	}
	respondJSON(w, http.StatusCreated, t)
}

// Patch applies a JSON Patch to a tag and records a new version
func (h *TagHandler) Patch(w http.ResponseWriter, r *http.Request) {
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
	current, err := h.tags.GetByID(ctx, id, nil)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	perm, err := h.evaluate(r, permission.Subject{Resource: models.ResourceTag, ID: id})
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	target := permission.TargetContext{
		Resource:   models.ResourceTag,
		Name:       current.FullyQualifiedName,
		Provider:   current.Provider,
		Permission: perm,
	}
	if err := permission.CanPatch(target, patchedFields(patch)).Error(); err != nil {
		respondError(w, r, err, h.logger())
		return
	}

	updated := &models.Tag{}
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
	if err := h.tags.Update(ctx, updated, change); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	h.logger().Info("tag_updated",
		zap.String("tag_id", id.String()),
		zap.String("change", versions.Summary(change)),
	)

	fresh, err := h.tags.GetByID(ctx, id, models.NewFields(models.FieldUsageCount))
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	respondJSON(w, http.StatusOK, fresh)
}

// Delete removes a tag and schedules cleanup of its feed threads
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	ctx := r.Context()
	current, err := h.tags.GetByID(ctx, id, nil)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	perm, err := h.evaluate(r, permission.Subject{Resource: models.ResourceTag, ID: id})
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	target := permission.TargetContext{
		Resource:   models.ResourceTag,
		Name:       current.FullyQualifiedName,
		Provider:   current.Provider,
		Permission: perm,
	}
	if err := permission.CanDelete(target).Error(); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if err := h.tags.Delete(ctx, id); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	h.logger().Info("tag_deleted",
		zap.String("tag_id", id.String()),
		logpkg.Entity(string(models.ResourceTag), current.FullyQualifiedName),
	)
	h.enqueue(ctx, queue.NewFeedCleanupJob(models.ResourceTag, id, current.FullyQualifiedName, request.Actor(r)))
	respondJSON(w, http.StatusOK, current)
}

// ListVersions returns the version history of a tag
func (h *TagHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	listVersions(w, r, h.Deps, h.versions, models.ResourceTag)
}
