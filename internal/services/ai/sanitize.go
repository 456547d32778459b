package ai

import (
	"context"

	logpkg "github.com/benvon/tag-catalog/internal/logger"
)

type contextKey string

const (
	entityIDContextKey contextKey = "entity_id"
	jobIDContextKey    contextKey = "job_id"
)

// MaxPreviewLength caps prompt and response previews outside debug mode
const MaxPreviewLength = 200

// WithEntity tags ctx with the id of the entity a suggestion is for, for call logging
func WithEntity(ctx context.Context, entityID string) context.Context {
	return context.WithValue(ctx, entityIDContextKey, entityID)
}

// WithJob tags ctx with the queued job a suggestion runs under, for call logging
func WithJob(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDContextKey, jobID)
}

func fromContext(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// SanitizePrompt cleans prompt text for logs or for embedding in another prompt.
// fullLog keeps up to the debug content cap instead of a short preview.
func SanitizePrompt(prompt string, fullLog bool) string {
	return preview(prompt, fullLog)
}

// SanitizeResponse cleans model output for logs
func SanitizeResponse(response string, fullLog bool) string {
	return preview(response, fullLog)
}

func preview(s string, fullLog bool) string {
	if fullLog {
		return logpkg.SanitizeDebugContent(s)
	}
	return logpkg.SanitizeString(s, MaxPreviewLength)
}
