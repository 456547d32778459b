package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
)

const tagSelect = `
	SELECT t.id, t.name, t.display_name, t.description, t.provider, t.disabled,
		t.version, t.updated_by, t.updated_at,
		c.id, c.name, c.display_name,
		(SELECT COUNT(*) FROM tag_usage u WHERE u.tag_id = t.id) AS usage_count
	FROM tags t
	JOIN classifications c ON c.id = t.classification_id
`

// TagRepository handles tag database operations
type TagRepository struct {
	db *DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *DB) *TagRepository {
	return &TagRepository{db: db}
}

func scanTag(row rowScanner, fields models.Fields) (*models.Tag, error) {
	t := &models.Tag{}
	ref := &models.EntityReference{Type: string(models.ResourceClassification)}
	var provider string
	var usageCount int
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.DisplayName,
		&t.Description,
		&provider,
		&t.Disabled,
		&t.Version,
		&t.UpdatedBy,
		&t.UpdatedAt,
		&ref.ID,
		&ref.Name,
		&ref.DisplayName,
		&usageCount,
	)
	if err != nil {
		return nil, err
	}
	ref.FullyQualifiedName = ref.Name
	t.Classification = ref
	t.Provider = models.ProviderType(provider)
	t.FullyQualifiedName = models.TagFQN(ref.Name, t.Name)
	t.Href = "/api/v1/tags/" + t.ID.String()
	if fields.Has(models.FieldUsageCount) {
		t.UsageCount = &usageCount
	}
	return t, nil
}

// ListByParent returns one cursor page of the tags under a classification, ordered by name
func (r *TagRepository) ListByParent(ctx context.Context, parent string, fields models.Fields, w PageWindow) ([]*models.Tag, models.Paging, error) {
	var paging models.Paging
	if w.Limit <= 0 {
		return nil, paging, fmt.Errorf("limit must be positive")
	}

	query := tagSelect + ` WHERE c.name = $1 ORDER BY t.name ASC LIMIT $2`
	args := []any{parent, w.Limit + 1}
	switch {
	case w.Before != "":
		key, err := DecodeCursor(w.Before)
		if err != nil {
			return nil, paging, err
		}
		query = tagSelect + ` WHERE c.name = $1 AND t.name < $3 ORDER BY t.name DESC LIMIT $2`
		args = append(args, key)
	case w.After != "":
		key, err := DecodeCursor(w.After)
		if err != nil {
			return nil, paging, err
		}
		query = tagSelect + ` WHERE c.name = $1 AND t.name > $3 ORDER BY t.name ASC LIMIT $2`
		args = append(args, key)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, paging, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		t, err := scanTag(rows, fields)
		if err != nil {
			return nil, paging, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, paging, fmt.Errorf("error iterating tags: %w", err)
	}

	more := len(tags) > w.Limit
	if more {
		tags = tags[:w.Limit]
	}
	if w.Before != "" {
		slices.Reverse(tags)
	}
	keys := make([]string, len(tags))
	for i, t := range tags {
		keys[i] = t.Name
	}
	paging.Before, paging.After = pageCursors(w, keys, more)

	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tags t JOIN classifications c ON c.id = t.classification_id WHERE c.name = $1
	`, parent).Scan(&paging.Total); err != nil {
		return nil, paging, fmt.Errorf("failed to count tags: %w", err)
	}
	return tags, paging, nil
}

// GetByID retrieves a tag by ID
func (r *TagRepository) GetByID(ctx context.Context, id uuid.UUID, fields models.Fields) (*models.Tag, error) {
	t, err := scanTag(r.db.QueryRowContext(ctx, tagSelect+` WHERE t.id = $1`, id), fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tag %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return t, nil
}

// GetByFQN retrieves a tag by classification and tag name
func (r *TagRepository) GetByFQN(ctx context.Context, classification, name string, fields models.Fields) (*models.Tag, error) {
	t, err := scanTag(r.db.QueryRowContext(ctx, tagSelect+` WHERE c.name = $1 AND t.name = $2`, classification, name), fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tag %q: %w", models.TagFQN(classification, name), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return t, nil
}

// Create inserts a tag under the classification referenced by t.Classification
func (r *TagRepository) Create(ctx context.Context, t *models.Tag) error {
	if t.Classification == nil {
		return fmt.Errorf("tag has no classification")
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Provider == "" {
		t.Provider = models.ProviderUser
	}
	t.Version = models.InitialVersion
	now := time.Now().UTC()

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		ref := t.Classification
		err := tx.QueryRowContext(ctx, `
			SELECT id, name, display_name FROM classifications WHERE name = $1
		`, ref.Name).Scan(&ref.ID, &ref.Name, &ref.DisplayName)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("classification %q: %w", ref.Name, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to resolve classification: %w", err)
		}
		ref.Type = string(models.ResourceClassification)
		ref.FullyQualifiedName = ref.Name
		t.FullyQualifiedName = models.TagFQN(ref.Name, t.Name)
		t.Href = "/api/v1/tags/" + t.ID.String()

		err = tx.QueryRowContext(ctx, `
			INSERT INTO tags (id, classification_id, name, display_name, description, provider, disabled, version, updated_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			RETURNING updated_at
		`, t.ID, ref.ID, t.Name, t.DisplayName, t.Description, string(t.Provider), t.Disabled, t.Version, t.UpdatedBy, now,
		).Scan(&t.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("tag %q: %w", t.FullyQualifiedName, ErrConflict)
			}
			return fmt.Errorf("failed to create tag: %w", err)
		}
		return insertVersion(ctx, tx, t.ID, string(models.ResourceTag), t.Version, t.UpdatedBy, t.UpdatedAt, models.ChangeDescription{}, t)
	})
}

// Update persists updated over its stored row, bumps the version and records the change
func (r *TagRepository) Update(ctx context.Context, updated *models.Tag, change models.ChangeDescription) error {
	change.PreviousVersion = updated.Version
	updated.Version = NextVersion(updated.Version)
	if updated.Classification != nil {
		updated.FullyQualifiedName = models.TagFQN(updated.Classification.Name, updated.Name)
	}
	now := time.Now().UTC()

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE tags
			SET name = $2, display_name = $3, description = $4, disabled = $5, version = $6, updated_by = $7, updated_at = $8
			WHERE id = $1
			RETURNING updated_at
		`, updated.ID, updated.Name, updated.DisplayName, updated.Description, updated.Disabled, updated.Version, updated.UpdatedBy, now,
		).Scan(&updated.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("tag %s: %w", updated.ID, ErrNotFound)
		}
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("tag %q: %w", updated.FullyQualifiedName, ErrConflict)
			}
			return fmt.Errorf("failed to update tag: %w", err)
		}
		return insertVersion(ctx, tx, updated.ID, string(models.ResourceTag), updated.Version, updated.UpdatedBy, updated.UpdatedAt, change, updated)
	})
}

// Delete removes a tag and its recorded versions
func (r *TagRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entity_versions WHERE entity_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete versions: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("tag %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// RecordUsage links a tag to an entity that applies it
func (r *TagRepository) RecordUsage(ctx context.Context, tagID uuid.UUID, targetFQN string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tag_usage (tag_id, target_fqn) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, tagID, targetFQN)
	if err != nil {
		return fmt.Errorf("failed to record tag usage: %w", err)
	}
	return nil
}

// ListUndescribed returns up to limit enabled tags with a blank description
func (r *TagRepository) ListUndescribed(ctx context.Context, limit int) ([]*models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, tagSelect+`
		WHERE NOT t.disabled AND NOT c.disabled AND btrim(t.description) = ''
		ORDER BY t.updated_at ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query undescribed tags: %w", err)
	}
	defer rows.Close()

	var out []*models.Tag
	for rows.Next() {
		t, err := scanTag(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return out, nil
}
