package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProfileFileName is the CLI profile looked up in the home directory
const ProfileFileName = ".tagctl.yaml"

// ClientConfig holds the settings tagctl uses to reach the catalog service
type ClientConfig struct {
	CatalogURL   string        `yaml:"catalog_url"`
	Timeout      time.Duration `yaml:"timeout"`
	Token        string        `yaml:"token,omitempty"`
	ClientID     string        `yaml:"client_id,omitempty"`
	ClientSecret string        `yaml:"client_secret,omitempty"`
	TokenURL     string        `yaml:"token_url,omitempty"`
	Scopes       []string      `yaml:"scopes,omitempty"`
	PageSize     int           `yaml:"page_size"`
	ExplorePath  string        `yaml:"explore_path,omitempty"`
}

// DefaultClientConfig returns the built-in client defaults
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		CatalogURL:  "http://localhost:8080",
		Timeout:     30 * time.Second,
		PageSize:    10,
		ExplorePath: "/explore/tables",
	}
}

// DefaultProfilePath returns ~/.tagctl.yaml, or "" when the home directory is unknown
func DefaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ProfileFileName)
}

// LoadProfile reads a YAML profile. A missing file yields an empty profile.
func LoadProfile(path string) (ClientConfig, error) {
	var profile ClientConfig
	if path == "" {
		return profile, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return profile, nil
	}
	if err != nil {
		return profile, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return profile, nil
}

// SaveProfile writes a profile readable only by the current user
func SaveProfile(path string, profile ClientConfig) error {
	data, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile %s: %w", path, err)
	}
	return nil
}

// LoadClient layers defaults, the profile at path and CATALOG_* environment variables
func LoadClient(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	profile, err := LoadProfile(path)
	if err != nil {
		return cfg, err
	}
	cfg = cfg.Merge(profile)
	cfg = cfg.Merge(ClientConfig{
		CatalogURL:   os.Getenv("CATALOG_URL"),
		Timeout:      getEnvDuration("CATALOG_TIMEOUT", 0),
		Token:        os.Getenv("CATALOG_TOKEN"),
		ClientID:     os.Getenv("CATALOG_CLIENT_ID"),
		ClientSecret: os.Getenv("CATALOG_CLIENT_SECRET"),
		TokenURL:     os.Getenv("CATALOG_TOKEN_URL"),
		PageSize:     getEnvInt("PAGE_SIZE", 0),
	})
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge returns c with every non-zero field of override applied
func (c ClientConfig) Merge(override ClientConfig) ClientConfig {
	if override.CatalogURL != "" {
		c.CatalogURL = override.CatalogURL
	}
	if override.Timeout > 0 {
		c.Timeout = override.Timeout
	}
	if override.Token != "" {
		c.Token = override.Token
	}
	if override.ClientID != "" {
		c.ClientID = override.ClientID
	}
	if override.ClientSecret != "" {
		c.ClientSecret = override.ClientSecret
	}
	if override.TokenURL != "" {
		c.TokenURL = override.TokenURL
	}
	if len(override.Scopes) > 0 {
		c.Scopes = override.Scopes
	}
	if override.PageSize > 0 {
		c.PageSize = override.PageSize
	}
	if override.ExplorePath != "" {
		c.ExplorePath = override.ExplorePath
	}
	return c
}

// Validate checks that the credentials are coherent
func (c ClientConfig) Validate() error {
	if c.CatalogURL == "" {
		return fmt.Errorf("catalog URL is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.ClientID != "" && (c.ClientSecret == "" || c.TokenURL == "") {
		return fmt.Errorf("client credentials require client_id, client_secret and token_url")
	}
	return nil
}

// UsesClientCredentials reports whether tokens should be minted via the OAuth2 client credentials flow
func (c ClientConfig) UsesClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.TokenURL != ""
}
