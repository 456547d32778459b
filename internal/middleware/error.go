package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	logpkg "github.com/benvon/tag-catalog/internal/logger"
	"github.com/benvon/tag-catalog/internal/request"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrorResponse is the error envelope shared with the catalog handlers.
// TraceID lets a client report a failure that can be found in the traces.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
}

// ErrorHandler turns a handler panic into a logged 500 envelope.
// http.ErrAbortHandler is re-raised so the server can drop the connection.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				traceID := traceIDOf(r)
				logger.Error("panic_recovered",
					zap.Any("error", rec),
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("actor", logpkg.SanitizeUserID(request.Actor(r))),
					zap.String("trace_id", traceID),
					zap.Stack("stack"),
				)
				writeError(w, r, logger, http.StatusInternalServerError, ErrorResponse{
					Error:   "Internal Server Error",
					Message: "An unexpected error occurred",
					TraceID: traceID,
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func traceIDOf(r *http.Request) string {
	sc := trace.SpanContextFromContext(r.Context())
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// writeError fills the envelope's common fields and writes it with status
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, status int, resp ErrorResponse) {
	resp.Success = false
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	resp.Path = r.URL.Path

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed_to_encode_error_response",
			zap.Error(err),
			zap.Int("status_code", status),
			zap.String("path", logpkg.SanitizePath(r.URL.Path)),
		)
	}
}

// respondErrorJSON writes an error envelope for a request rejected by middleware
func respondErrorJSON(w http.ResponseWriter, r *http.Request, status int, errorType, message string, logger *zap.Logger) {
	writeError(w, r, logger, status, ErrorResponse{Error: errorType, Message: message, TraceID: traceIDOf(r)})
}
