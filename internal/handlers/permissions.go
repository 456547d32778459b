package handlers

import (
	"net/http"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/permission"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// PermissionHandler answers what the calling user may do
type PermissionHandler struct {
	Deps
}

// NewPermissionHandler creates a new permission handler
func NewPermissionHandler(deps Deps) *PermissionHandler {
	return &PermissionHandler{Deps: deps}
}

// RegisterRoutes registers permission routes on a router already prefixed with /permissions
func (h *PermissionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListGlobal).Methods("GET")
	r.HandleFunc("/{resourceType}/{id}", h.GetForEntity).Methods("GET")
}

var knownResources = []models.ResourceEntity{
	models.ResourceClassification,
	models.ResourceTag,
	models.ResourceFeed,
}

func parseResource(raw string) (models.ResourceEntity, bool) {
	for _, r := range knownResources {
		if string(r) == raw {
			return r, true
		}
	}
	return "", false
}

// ListGlobal returns the user's permissions on every resource type
func (h *PermissionHandler) ListGlobal(w http.ResponseWriter, r *http.Request) {
	out := make([]models.ResourcePermission, 0, len(knownResources))
	for _, resource := range knownResources {
		perm, err := h.evaluate(r, permission.Subject{Resource: resource})
		if err != nil {
			respondError(w, r, err, h.logger())
			return
		}
		out = append(out, models.ResourcePermission{Resource: resource, Permission: perm})
	}
	respondJSON(w, http.StatusOK, out)
}

// GetForEntity returns the user's permissions on one entity
func (h *PermissionHandler) GetForEntity(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["resourceType"]
	resource, ok := parseResource(raw)
	if !ok {
		respondError(w, r, badRequest("unknown resource type %q", raw), h.logger())
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, badRequest("invalid id %q", mux.Vars(r)["id"]), h.logger())
		return
	}
	perm, err := h.evaluate(r, permission.Subject{Resource: resource, ID: id})
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	respondJSON(w, http.StatusOK, perm)
}
