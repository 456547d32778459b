package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const (
	// DefaultAnthropicModel is the default Claude model
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	// DefaultAnthropicMaxTokens caps the length of a drafted description
	DefaultAnthropicMaxTokens = 512
)

// ErrNoTextInResponse is returned when a message carries no text block
var ErrNoTextInResponse = errors.New("no text content in response")

// AnthropicProvider drafts descriptions with Anthropic's messages API
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	trace  callTrace
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(cfg ProviderConfig) *AnthropicProvider {
	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
		trace:  newCallTrace(cfg, "anthropic", model),
	}
}

// SuggestDescription drafts a description for the entity
func (p *AnthropicProvider) SuggestDescription(ctx context.Context, brief EntityBrief) (string, error) {
	prompt := buildDescriptionPrompt(brief)

	p.trace.request(ctx, prompt)
	start := time.Now()
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: DefaultAnthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	latency := time.Since(start)
	if err != nil {
		p.trace.failure(ctx, err, latency)
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("failed to suggest description: %w", apiErr)
		}
		return "", fmt.Errorf("failed to suggest description: %w", err)
	}

	for _, block := range message.Content {
		if block.Type != "text" {
			continue
		}
		p.trace.response(ctx, block.Text, latency,
			zap.Int64("tokens_in", message.Usage.InputTokens),
			zap.Int64("tokens_out", message.Usage.OutputTokens),
			zap.Int64("cache_read", message.Usage.CacheReadInputTokens),
		)
		return parseDescriptionResponse(block.Text)
	}
	return "", ErrNoTextInResponse
}
