// Package catalog is the client side of the tag catalog REST service.
package catalog

import (
	"context"

	"github.com/benvon/tag-catalog/internal/jsonpatch"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
)

// TagFilter selects one page of tags. At most one of Before and After is set.
type TagFilter struct {
	Parent string
	Before string
	After  string
	Limit  int
	Fields models.Fields
}

// Service is the catalog contract the classification browser consumes
type Service interface {
	ListClassifications(ctx context.Context, fields models.Fields, limit int) (*models.ClassificationList, error)
	GetClassificationByName(ctx context.Context, name string, fields models.Fields) (*models.Classification, error)
	CreateClassification(ctx context.Context, payload models.CreateClassification) (*models.Classification, error)
	PatchClassification(ctx context.Context, id uuid.UUID, patch jsonpatch.Patch) (*models.Classification, error)
	DeleteClassification(ctx context.Context, id uuid.UUID) error
	ListTags(ctx context.Context, filter TagFilter) (*models.TagList, error)
	CreateTag(ctx context.Context, payload models.CreateTag) (*models.Tag, error)
	PatchTag(ctx context.Context, id uuid.UUID, patch jsonpatch.Patch) (*models.Tag, error)
	DeleteTag(ctx context.Context, id uuid.UUID) error
	GetPermissions(ctx context.Context, resource models.ResourceEntity, id uuid.UUID) (*models.OperationPermission, error)
}

// History is the optional version and feed surface tagctl uses outside the browser
type History interface {
	ListVersions(ctx context.Context, resource models.ResourceEntity, id uuid.UUID) (*models.EntityHistory, error)
	ListThreads(ctx context.Context, entityLink string, threadType models.ThreadType) ([]*models.Thread, error)
	GetThread(ctx context.Context, id uuid.UUID) (*models.Thread, error)
	CreateThread(ctx context.Context, payload models.CreateThread) (*models.Thread, error)
	Reply(ctx context.Context, threadID uuid.UUID, message string) (*models.Thread, error)
}
