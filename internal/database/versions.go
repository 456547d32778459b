package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
)

// VersionRepository reads recorded entity versions
type VersionRepository struct {
	db *DB
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(db *DB) *VersionRepository {
	return &VersionRepository{db: db}
}

func scanVersion(row rowScanner) (*models.EntityVersion, error) {
	v := &models.EntityVersion{}
	var change, snapshot []byte
	if err := row.Scan(&v.Version, &v.UpdatedBy, &v.UpdatedAt, &change, &snapshot); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(change, &v.ChangeDescription); err != nil {
		return nil, fmt.Errorf("failed to decode change description: %w", err)
	}
	v.Snapshot = json.RawMessage(snapshot)
	return v, nil
}

// ListByEntity returns every version of an entity, newest first
func (r *VersionRepository) ListByEntity(ctx context.Context, entityID uuid.UUID) (*models.EntityHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT entity_type, version, updated_by, updated_at, change_description, snapshot
		FROM entity_versions
		WHERE entity_id = $1
		ORDER BY version DESC
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	history := &models.EntityHistory{Versions: []models.EntityVersion{}}
	for rows.Next() {
		var entityType string
		var change, snapshot []byte
		v := models.EntityVersion{}
		if err := rows.Scan(&entityType, &v.Version, &v.UpdatedBy, &v.UpdatedAt, &change, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		if err := json.Unmarshal(change, &v.ChangeDescription); err != nil {
			return nil, fmt.Errorf("failed to decode change description: %w", err)
		}
		v.Snapshot = json.RawMessage(snapshot)
		history.EntityType = entityType
		history.Versions = append(history.Versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}
	if len(history.Versions) == 0 {
		return nil, fmt.Errorf("versions of %s: %w", entityID, ErrNotFound)
	}
	return history, nil
}

// Get returns one version of an entity
func (r *VersionRepository) Get(ctx context.Context, entityID uuid.UUID, version float64) (*models.EntityVersion, error) {
	v, err := scanVersion(r.db.QueryRowContext(ctx, `
		SELECT version, updated_by, updated_at, change_description, snapshot
		FROM entity_versions
		WHERE entity_id = $1 AND version = $2
	`, entityID, roundVersion(version)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("version %.1f of %s: %w", version, entityID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}
