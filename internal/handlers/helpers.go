package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/feed"
	"github.com/benvon/tag-catalog/internal/jsonpatch"
	logpkg "github.com/benvon/tag-catalog/internal/logger"
	"github.com/benvon/tag-catalog/internal/permission"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	// DefaultListLimit applies when a list request gives no limit
	DefaultListLimit = 10
	// MaxListLimit caps every list request
	MaxListLimit = 1000
)

// errBadRequest marks errors caused by the request itself
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage bounds client-facing error messages
func sanitizeErrorMessage(message string) string {
	if len(message) > 200 {
		return message[:200] + "..."
	}
	return message
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondError maps a domain error to its HTTP status. Unexpected errors are
// logged and answered with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	var validationErrs validator.ValidationErrors
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, database.ErrConflict):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, permission.ErrForbidden):
		respondJSONError(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.As(err, &maxBytesErr):
		respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "Request body exceeds the size limit")
	case errors.As(err, &validationErrs):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationMessage(validationErrs))
	case errors.Is(err, errBadRequest),
		errors.Is(err, jsonpatch.ErrEmptyPatch),
		errors.Is(err, jsonpatch.ErrReadOnlyPath),
		errors.Is(err, feed.ErrInvalidLink),
		errors.Is(err, database.ErrInvalidCursor):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		logger.Error("request_failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", logpkg.SanitizePath(r.URL.Path)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}

func validationMessage(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "validation failed"
	}
	fe := errs[0]
	return fmt.Sprintf("field %s failed %s validation", fe.Field(), fe.Tag())
}

// decodeJSON decodes the request body into v
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// readBody reads a raw request body
func readBody(r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, badRequest("failed to read body: %v", err)
	}
	return raw, nil
}

// pathID parses the uuid path variable key
func pathID(r *http.Request, key string) (uuid.UUID, error) {
	raw := mux.Vars(r)[key]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("invalid %s %q", key, raw)
	}
	return id, nil
}

// queryLimit parses the limit query parameter, defaulting to def and capping at MaxListLimit
func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, badRequest("limit must be a positive integer")
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, nil
}
