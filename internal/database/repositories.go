package database

import (
	"context"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
)

// ClassificationRepositoryInterface defines the interface for classification repository operations
// This interface enables better testability by allowing mock implementations
type ClassificationRepositoryInterface interface {
	List(ctx context.Context, fields models.Fields, limit int) ([]*models.Classification, int, error)
	GetByName(ctx context.Context, name string, fields models.Fields) (*models.Classification, error)
	GetByID(ctx context.Context, id uuid.UUID, fields models.Fields) (*models.Classification, error)
	Create(ctx context.Context, c *models.Classification) error
	Update(ctx context.Context, updated *models.Classification, change models.ChangeDescription) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TagRepositoryInterface defines the interface for tag repository operations
type TagRepositoryInterface interface {
	ListByParent(ctx context.Context, parent string, fields models.Fields, w PageWindow) ([]*models.Tag, models.Paging, error)
	GetByID(ctx context.Context, id uuid.UUID, fields models.Fields) (*models.Tag, error)
	GetByFQN(ctx context.Context, classification, name string, fields models.Fields) (*models.Tag, error)
	Create(ctx context.Context, t *models.Tag) error
	Update(ctx context.Context, updated *models.Tag, change models.ChangeDescription) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// VersionRepositoryInterface defines the interface for entity version lookups
type VersionRepositoryInterface interface {
	ListByEntity(ctx context.Context, entityID uuid.UUID) (*models.EntityHistory, error)
	Get(ctx context.Context, entityID uuid.UUID, version float64) (*models.EntityVersion, error)
}

// ThreadRepositoryInterface defines the interface for activity feed operations
type ThreadRepositoryInterface interface {
	Create(ctx context.Context, t *models.Thread) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Thread, error)
	List(ctx context.Context, exact, fieldPrefix string, threadType models.ThreadType, limit int) ([]*models.Thread, error)
	AddPost(ctx context.Context, threadID uuid.UUID, p *models.Post) error
	DeleteByAbout(ctx context.Context, exact, fieldPrefix string) (int64, error)
}

// SettingsRepositoryInterface defines the interface for runtime settings
type SettingsRepositoryInterface interface {
	GetCORS(ctx context.Context) (*models.CorsConfig, error)
	SetCORS(ctx context.Context, c *models.CorsConfig) error
	GetRateLimit(ctx context.Context) (*models.RatelimitConfig, error)
	SetRateLimit(ctx context.Context, c *models.RatelimitConfig) error
}

// UserRepositoryInterface defines the interface for user lookups made during authentication
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SyncFromClaims(ctx context.Context, claims *models.JWTClaims) (*models.User, error)
}

// Ensure concrete types implement the interfaces
var (
	_ ClassificationRepositoryInterface = (*ClassificationRepository)(nil)
	_ TagRepositoryInterface            = (*TagRepository)(nil)
	_ VersionRepositoryInterface        = (*VersionRepository)(nil)
	_ ThreadRepositoryInterface         = (*ThreadRepository)(nil)
	_ SettingsRepositoryInterface       = (*SettingsRepository)(nil)
	_ UserRepositoryInterface           = (*UserRepository)(nil)
)
