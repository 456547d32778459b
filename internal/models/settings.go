package models

import "time"

// Keys under which runtime settings are stored
const (
	SettingCORS      = "cors"
	SettingRateLimit = "ratelimit"
)

// CorsConfig holds CORS configuration (allowed origins, etc.).
type CorsConfig struct {
	AllowedOrigins   string    `json:"allowed_origins"` // Comma-separated
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RatelimitConfig holds rate limit configuration (e.g. "5-S", "100-M").
type RatelimitConfig struct {
	Rate      string    `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
}
