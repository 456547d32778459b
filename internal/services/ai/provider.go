package ai

import (
	"context"

	"github.com/benvon/tag-catalog/internal/models"
	"go.uber.org/zap"
)

// DescriptionSuggester drafts catalog descriptions for entities that have none
type DescriptionSuggester interface {
	// SuggestDescription returns a markdown description for the entity
	SuggestDescription(ctx context.Context, brief EntityBrief) (string, error)
}

// EntityBrief is everything a provider is told about an entity
type EntityBrief struct {
	Kind        models.ResourceEntity
	Name        string
	FQN         string
	DisplayName string
	// Classification and ClassificationDescription describe the parent of a tag
	Classification            string
	ClassificationDescription string
	// Siblings names other tags in the same classification
	Siblings []string
}

// ProviderConfig configures a provider instance
type ProviderConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Logger    *zap.Logger
	DebugMode bool
}

// ProviderFactory creates an AI provider from its configuration
type ProviderFactory func(cfg ProviderConfig) (DescriptionSuggester, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// DefaultRegistry returns a registry with the openai and anthropic providers
func DefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()
	r.Register("openai", func(cfg ProviderConfig) (DescriptionSuggester, error) {
		return NewOpenAIProvider(cfg), nil
	})
	r.Register("anthropic", func(cfg ProviderConfig) (DescriptionSuggester, error) {
		return NewAnthropicProvider(cfg), nil
	})
	return r
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, cfg ProviderConfig) (DescriptionSuggester, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(cfg)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
