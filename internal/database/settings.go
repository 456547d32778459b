package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/tag-catalog/internal/models"
)

// SettingsRepository stores runtime service settings as JSON documents keyed by name.
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// get decodes the setting stored under key into out. Returns false when unset.
func (r *SettingsRepository) get(ctx context.Context, key string, out any) (bool, error) {
	var raw []byte
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT value, updated_at FROM service_settings WHERE setting_key = $1
	`, key).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s setting: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s setting: %w", key, err)
	}
	return true, nil
}

func (r *SettingsRepository) set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s setting: %w", key, err)
	}
	now := time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO service_settings (setting_key, value, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (setting_key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, raw, now)
	if err != nil {
		return fmt.Errorf("set %s setting: %w", key, err)
	}
	return nil
}

// GetCORS retrieves the CORS config, or nil when none is stored.
func (r *SettingsRepository) GetCORS(ctx context.Context) (*models.CorsConfig, error) {
	c := &models.CorsConfig{}
	ok, err := r.get(ctx, models.SettingCORS, c)
	if err != nil || !ok {
		return nil, err
	}
	return c, nil
}

// SetCORS upserts the CORS config. AllowedOrigins is comma-separated.
func (r *SettingsRepository) SetCORS(ctx context.Context, c *models.CorsConfig) error {
	c.AllowedOrigins = strings.TrimSpace(c.AllowedOrigins)
	if c.AllowedOrigins == "" {
		return fmt.Errorf("allowed_origins cannot be empty")
	}
	c.UpdatedAt = time.Now().UTC()
	return r.set(ctx, models.SettingCORS, c)
}

// GetRateLimit retrieves the rate limit config, or nil when none is stored.
func (r *SettingsRepository) GetRateLimit(ctx context.Context) (*models.RatelimitConfig, error) {
	c := &models.RatelimitConfig{}
	ok, err := r.get(ctx, models.SettingRateLimit, c)
	if err != nil || !ok {
		return nil, err
	}
	return c, nil
}

// SetRateLimit upserts the rate limit config. Rate format: e.g. "5-S", "100-M".
func (r *SettingsRepository) SetRateLimit(ctx context.Context, c *models.RatelimitConfig) error {
	c.Rate = strings.TrimSpace(c.Rate)
	if c.Rate == "" {
		return fmt.Errorf("rate cannot be empty")
	}
	c.UpdatedAt = time.Now().UTC()
	return r.set(ctx, models.SettingRateLimit, c)
}

// AllowedOriginsSlice returns allowed origins as a slice (split by comma).
func AllowedOriginsSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(raw, ",") {
		s := strings.TrimSpace(p)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
