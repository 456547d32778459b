package handlers

import (
	"net/http"

	"github.com/benvon/tag-catalog/internal/feed"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/permission"
	"github.com/benvon/tag-catalog/internal/queue"
	"github.com/benvon/tag-catalog/internal/request"
	"github.com/benvon/tag-catalog/internal/validation"
	"github.com/gorilla/mux"
)

// FeedHandler serves activity feed threads
type FeedHandler struct {
	Deps
	feed *feed.Service
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(service *feed.Service, deps Deps) *FeedHandler {
	return &FeedHandler{Deps: deps, feed: service}
}

// RegisterRoutes registers feed routes on a router already prefixed with /feed
func (h *FeedHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.List).Methods("GET")
	r.HandleFunc("", h.Create).Methods("POST")
	r.HandleFunc("/{threadId}", h.Get).Methods("GET")
	r.HandleFunc("/{threadId}/posts", h.Reply).Methods("POST")
}

var feedSubject = permission.Subject{Resource: models.ResourceFeed}

// List returns threads about an entity link, optionally filtered by type
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := h.requireView(r, feedSubject); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	q := r.URL.Query()
	threadType := q.Get("type")
	if threadType != "" {
		if err := validation.ValidateThreadType(threadType); err != nil {
			respondError(w, r, badRequest("%v", err), h.logger())
			return
		}
	}
	limit, err := queryLimit(r, feed.DefaultListLimit)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	threads, err := h.feed.List(r.Context(), q.Get("entityLink"), models.ThreadType(threadType), limit)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if threads == nil {
		threads = []*models.Thread{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": threads})
}

// Get returns one thread with its posts
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "threadId")
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if err := h.requireView(r, feedSubject); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	t, err := h.feed.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// Create opens a thread. Announcements are also handed to the worker for broadcast.
func (h *FeedHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateThread
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if req.Type == "" {
		req.Type = models.ThreadConversation
	}
	req.Message = validation.SanitizeText(req.Message)
	if err := validation.Validate.Struct(req); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	perm, err := h.evaluate(r, feedSubject)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if err := permission.CanCreate(models.ResourceFeed, perm).Error(); err != nil {
		respondError(w, r, err, h.logger())
		return
	}

	t, err := h.feed.Create(r.Context(), req, request.Actor(r))
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if t.Type == models.ThreadAnnouncement {
		h.enqueue(r.Context(), queue.NewAnnounceThreadJob(t.ID))
	}
	respondJSON(w, http.StatusCreated, t)
}

// Reply appends a post to a thread
func (h *FeedHandler) Reply(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "threadId")
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	var req models.CreatePost
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	req.Message = validation.SanitizeText(req.Message)
	if err := validation.Validate.Struct(req); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	perm, err := h.evaluate(r, feedSubject)
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	if err := permission.CanCreate(models.ResourceFeed, perm).Error(); err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	t, err := h.feed.Reply(r.Context(), id, req, request.Actor(r))
	if err != nil {
		respondError(w, r, err, h.logger())
		return
	}
	respondJSON(w, http.StatusCreated, t)
}
