package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds server and worker configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	BaseURL          string
	ExploreBaseURL   string
	EnableHSTS       bool
	ServerDebugMode  bool
	WorkerDebugMode  bool
	AuthDisabled     bool
	OIDCIssuer       string
	OIDCJWKSURL      string
	OIDCAudience     string
	OIDCRolesClaim   string
	OIDCClientID     string
	OIDCAuthURL      string
	OIDCTokenURL     string
	RedisURL         string
	PermissionTTL    time.Duration
	RabbitMQURL      string
	RabbitMQPrefetch int
	PageSize         int
	AIProvider       string
	OpenAIKey        string
	AnthropicKey     string
	AIModel          string
	AIBaseURL        string
	SweepSchedule    string
	SlackBotToken    string
	SlackChannelID   string
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:8080"),
		ExploreBaseURL:   getEnv("EXPLORE_BASE_URL", ""),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		AuthDisabled:     getEnvBool("AUTH_DISABLED", false),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCJWKSURL:      getEnv("OIDC_JWKS_URL", ""),
		OIDCAudience:     getEnv("OIDC_AUDIENCE", ""),
		OIDCRolesClaim:   getEnv("OIDC_ROLES_CLAIM", "roles"),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCAuthURL:      getEnv("OIDC_AUTH_URL", ""),
		OIDCTokenURL:     getEnv("OIDC_TOKEN_URL", ""),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		PermissionTTL:    getEnvDuration("PERMISSION_CACHE_TTL", 5*time.Minute),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		PageSize:         getEnvInt("PAGE_SIZE", 10),
		AIProvider:       getEnv("AI_PROVIDER", "openai"),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", ""),
		AIBaseURL:        getEnv("AI_BASE_URL", ""),
		SweepSchedule:    getEnv("DESCRIPTION_SWEEP_SCHEDULE", ""),
		SlackBotToken:    getEnv("SLACK_BOT_TOKEN", ""),
		SlackChannelID:   getEnv("SLACK_CHANNEL_ID", ""),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing")
	}
	if !cfg.AuthDisabled && cfg.OIDCIssuer == "" {
		return nil, fmt.Errorf("OIDC_ISSUER is required unless AUTH_DISABLED is set")
	}
	if cfg.OIDCJWKSURL == "" && cfg.OIDCIssuer != "" {
		cfg.OIDCJWKSURL = trimSlash(cfg.OIDCIssuer) + "/.well-known/jwks.json"
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("PAGE_SIZE must be positive, got %d", cfg.PageSize)
	}
	switch cfg.AIProvider {
	case "openai", "anthropic":
	default:
		return nil, fmt.Errorf("AI_PROVIDER must be openai or anthropic, got %q", cfg.AIProvider)
	}
	if (cfg.SlackBotToken == "") != (cfg.SlackChannelID == "") {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN and SLACK_CHANNEL_ID must be set together")
	}

	return cfg, nil
}

// AIKey returns the API key of the configured AI provider
func (c *Config) AIKey() string {
	if c.AIProvider == "anthropic" {
		return c.AnthropicKey
	}
	return c.OpenAIKey
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
