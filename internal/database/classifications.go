package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const classificationSelect = `
	SELECT c.id, c.name, c.display_name, c.description, c.provider, c.disabled,
		c.version, c.updated_by, c.updated_at,
		(SELECT COUNT(*) FROM tags t WHERE t.classification_id = c.id) AS term_count,
		(SELECT COUNT(*) FROM tag_usage u JOIN tags t ON t.id = u.tag_id WHERE t.classification_id = c.id) AS usage_count
	FROM classifications c
`

// ClassificationRepository handles classification database operations
type ClassificationRepository struct {
	db *DB
}

// NewClassificationRepository creates a new classification repository
func NewClassificationRepository(db *DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClassification(row rowScanner, fields models.Fields) (*models.Classification, error) {
	c := &models.Classification{}
	var provider string
	var termCount, usageCount int
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.DisplayName,
		&c.Description,
		&provider,
		&c.Disabled,
		&c.Version,
		&c.UpdatedBy,
		&c.UpdatedAt,
		&termCount,
		&usageCount,
	)
	if err != nil {
		return nil, err
	}
	c.Provider = models.ProviderType(provider)
	c.FullyQualifiedName = c.Name
	c.Href = "/api/v1/classifications/" + c.ID.String()
	if fields.Has(models.FieldTermCount) {
		c.TermCount = &termCount
	}
	if fields.Has(models.FieldUsageCount) {
		c.UsageCount = &usageCount
	}
	return c, nil
}

// List returns up to limit classifications ordered by name, and the total count
func (r *ClassificationRepository) List(ctx context.Context, fields models.Fields, limit int) ([]*models.Classification, int, error) {
	rows, err := r.db.QueryContext(ctx, classificationSelect+` ORDER BY c.name ASC LIMIT $1`, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query classifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Classification
	for rows.Next() {
		c, err := scanClassification(rows, fields)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan classification: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating classifications: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classifications`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count classifications: %w", err)
	}
	return out, total, nil
}

// GetByName retrieves a classification by its unique name
func (r *ClassificationRepository) GetByName(ctx context.Context, name string, fields models.Fields) (*models.Classification, error) {
	c, err := scanClassification(r.db.QueryRowContext(ctx, classificationSelect+` WHERE c.name = $1`, name), fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("classification %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classification: %w", err)
	}
	return c, nil
}

// GetByID retrieves a classification by ID
func (r *ClassificationRepository) GetByID(ctx context.Context, id uuid.UUID, fields models.Fields) (*models.Classification, error) {
	c, err := scanClassification(r.db.QueryRowContext(ctx, classificationSelect+` WHERE c.id = $1`, id), fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("classification %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classification: %w", err)
	}
	return c, nil
}

// Create inserts a classification and records its initial version
func (r *ClassificationRepository) Create(ctx context.Context, c *models.Classification) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Provider == "" {
		c.Provider = models.ProviderUser
	}
	c.Version = models.InitialVersion
	c.FullyQualifiedName = c.Name
	now := time.Now().UTC()

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO classifications (id, name, display_name, description, provider, disabled, version, updated_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			RETURNING updated_at
		`, c.ID, c.Name, c.DisplayName, c.Description, string(c.Provider), c.Disabled, c.Version, c.UpdatedBy, now,
		).Scan(&c.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("classification %q: %w", c.Name, ErrConflict)
			}
			return fmt.Errorf("failed to create classification: %w", err)
		}
		return insertVersion(ctx, tx, c.ID, string(models.ResourceClassification), c.Version, c.UpdatedBy, c.UpdatedAt, models.ChangeDescription{}, c)
	})
}

// Update persists updated over its stored row, bumps the version and records the change
func (r *ClassificationRepository) Update(ctx context.Context, updated *models.Classification, change models.ChangeDescription) error {
	change.PreviousVersion = updated.Version
	updated.Version = NextVersion(updated.Version)
	updated.FullyQualifiedName = updated.Name
	now := time.Now().UTC()

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE classifications
			SET name = $2, display_name = $3, description = $4, disabled = $5, version = $6, updated_by = $7, updated_at = $8
			WHERE id = $1
			RETURNING updated_at
		`, updated.ID, updated.Name, updated.DisplayName, updated.Description, updated.Disabled, updated.Version, updated.UpdatedBy, now,
		).Scan(&updated.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("classification %s: %w", updated.ID, ErrNotFound)
		}
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("classification %q: %w", updated.Name, ErrConflict)
			}
			return fmt.Errorf("failed to update classification: %w", err)
		}
		return insertVersion(ctx, tx, updated.ID, string(models.ResourceClassification), updated.Version, updated.UpdatedBy, updated.UpdatedAt, change, updated)
	})
}

// Delete removes a classification, its tags and all their recorded versions
func (r *ClassificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM entity_versions
			WHERE entity_id = $1 OR entity_id IN (SELECT id FROM tags WHERE classification_id = $1)
		`, id); err != nil {
			return fmt.Errorf("failed to delete versions: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM classifications WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete classification: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("classification %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// NextVersion returns the version following v for a minor change
func NextVersion(v float64) float64 {
	return roundVersion(v + 0.1)
}

func roundVersion(v float64) float64 {
	return math.Round(v*10) / 10
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func insertVersion(ctx context.Context, tx *sql.Tx, entityID uuid.UUID, entityType string, version float64, updatedBy string, updatedAt time.Time, change models.ChangeDescription, snapshot any) error {
	changeJSON, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change description: %w", err)
	}
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entity_versions (entity_id, entity_type, version, updated_by, updated_at, change_description, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entityID, entityType, version, updatedBy, updatedAt, changeJSON, snapshotJSON)
	if err != nil {
		return fmt.Errorf("failed to record version: %w", err)
	}
	return nil
}

// ListUndescribed returns up to limit enabled classifications with a blank description
func (r *ClassificationRepository) ListUndescribed(ctx context.Context, limit int) ([]*models.Classification, error) {
	rows, err := r.db.QueryContext(ctx, classificationSelect+`
		WHERE NOT c.disabled AND btrim(c.description) = ''
		ORDER BY c.updated_at ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query undescribed classifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Classification
	for rows.Next() {
		c, err := scanClassification(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating classifications: %w", err)
	}
	return out, nil
}
