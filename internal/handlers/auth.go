package handlers

import (
	"net/http"

	"github.com/benvon/tag-catalog/internal/request"
	"github.com/benvon/tag-catalog/internal/services/oidc"
	"github.com/gorilla/mux"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	login *oidc.LoginConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(login *oidc.LoginConfig) *AuthHandler {
	return &AuthHandler{login: login}
}

// RegisterPublicRoutes registers the unauthenticated auth routes.
// The router should already have the /api/v1/auth prefix.
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/config", h.GetLoginConfig).Methods("GET")
}

// RegisterRoutes registers the authenticated auth routes
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// GetLoginConfig tells clients where to obtain tokens
func (h *AuthHandler) GetLoginConfig(w http.ResponseWriter, r *http.Request) {
	if h.login == nil || h.login.Issuer == "" {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Authentication is not configured")
		return
	}
	respondJSON(w, http.StatusOK, h.login)
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
