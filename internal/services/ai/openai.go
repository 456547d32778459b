package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider drafts descriptions with OpenAI's chat completions API
type OpenAIProvider struct {
	client openai.Client
	model  string
	trace  callTrace
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
		option.WithMaxRetries(0),
	)

	return &OpenAIProvider{
		client: client,
		model:  model,
		trace:  newCallTrace(cfg, "openai", model),
	}
}

// SuggestDescription drafts a description for the entity
func (p *OpenAIProvider) SuggestDescription(ctx context.Context, brief EntityBrief) (string, error) {
	prompt := buildDescriptionPrompt(brief)
	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	p.trace.request(ctx, prompt)
	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		p.trace.failure(ctx, err, latency)
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("failed to suggest description: %w", apiErr)
		}
		return "", fmt.Errorf("failed to suggest description: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	p.trace.response(ctx, content, latency,
		zap.Int64("tokens_in", resp.Usage.PromptTokens),
		zap.Int64("tokens_out", resp.Usage.CompletionTokens),
	)
	return parseDescriptionResponse(content)
}

// callTrace writes the llm_api_* debug events shared by every provider
type callTrace struct {
	logger   *zap.Logger
	enabled  bool
	provider string
	model    string
}

func newCallTrace(cfg ProviderConfig, provider, model string) callTrace {
	return callTrace{
		logger:   cfg.Logger,
		enabled:  cfg.Logger != nil && cfg.DebugMode,
		provider: provider,
		model:    model,
	}
}

func (t callTrace) fields(ctx context.Context) []zap.Field {
	return []zap.Field{
		zap.String("operation", "suggest_description"),
		zap.String("provider", t.provider),
		zap.String("model", t.model),
		zap.String("entity_id", fromContext(ctx, entityIDContextKey)),
		zap.String("job_id", fromContext(ctx, jobIDContextKey)),
	}
}

func (t callTrace) request(ctx context.Context, prompt string) {
	if !t.enabled {
		return
	}
	t.logger.Debug("llm_api_request", append(t.fields(ctx),
		zap.Int("prompt_length", len(prompt)),
		zap.String("prompt_preview", SanitizePrompt(prompt, true)),
	)...)
}

func (t callTrace) failure(ctx context.Context, err error, latency time.Duration) {
	if !t.enabled {
		return
	}
	t.logger.Debug("llm_api_error", append(t.fields(ctx),
		zap.Error(err),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)...)
}

func (t callTrace) response(ctx context.Context, content string, latency time.Duration, extra ...zap.Field) {
	if !t.enabled {
		return
	}
	fields := append(t.fields(ctx),
		zap.Int("response_length", len(content)),
		zap.String("response_preview", SanitizeResponse(content, true)),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)
	t.logger.Debug("llm_api_response", append(fields, extra...)...)
}
