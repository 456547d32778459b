package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const userSelect = `
	SELECT id, email, provider_id, name, email_verified, roles, created_at, updated_at
	FROM users
`

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.ProviderID,
		&user.Name,
		&user.EmailVerified,
		pq.Array(&user.Roles),
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Roles == nil {
		user.Roles = []string{models.RoleDataConsumer}
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, provider_id, name, email_verified, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING created_at, updated_at
	`,
		user.ID,
		user.Email,
		user.ProviderID,
		user.Name,
		user.EmailVerified,
		pq.Array(user.Roles),
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", user.Email, ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, userSelect+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `WHERE email = $1`, email)
}

// GetByProviderID retrieves a user by provider ID
func (r *UserRepository) GetByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	return r.getOne(ctx, `WHERE provider_id = $1`, providerID)
}

// Update updates an existing user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET email = $2, provider_id = $3, name = $4, email_verified = $5, roles = $6, updated_at = $7
		WHERE id = $1
		RETURNING updated_at
	`,
		user.ID,
		user.Email,
		user.ProviderID,
		user.Name,
		user.EmailVerified,
		pq.Array(user.Roles),
		time.Now(),
	).Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// SyncFromClaims finds the user behind a verified token, creating it on first sight
// and refreshing email, name and roles when the identity provider reports changes.
func (r *UserRepository) SyncFromClaims(ctx context.Context, claims *models.JWTClaims) (*models.User, error) {
	user, err := r.GetByProviderID(ctx, claims.Sub)
	if errors.Is(err, ErrNotFound) {
		sub, name := claims.Sub, claims.Name
		user = &models.User{
			Email:         claims.Email,
			ProviderID:    &sub,
			Name:          &name,
			EmailVerified: true,
			Roles:         claims.Roles,
		}
		if err := r.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	updateNeeded := false
	if user.Email != claims.Email {
		user.Email = claims.Email
		updateNeeded = true
	}
	if (user.Name == nil && claims.Name != "") || (user.Name != nil && *user.Name != claims.Name) {
		name := claims.Name
		user.Name = &name
		updateNeeded = true
	}
	if len(claims.Roles) > 0 && !sameRoles(user.Roles, claims.Roles) {
		user.Roles = claims.Roles
		updateNeeded = true
	}
	if updateNeeded {
		if err := r.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Delete deletes a user by ID
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return nil
}

func sameRoles(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, r := range a {
		seen[r]++
	}
	for _, r := range b {
		if seen[r] == 0 {
			return false
		}
		seen[r]--
	}
	return true
}
