package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/msenthi7/medical-chatbot/services/providers"
)

const (
	// ProviderName identifies this adapter in the registry
	ProviderName = "anthropic"

	defaultMaxTokens = 1024
)

var knownModels = []string{
	"claude-sonnet-4-5",
	"claude-opus-4-1",
	"claude-3-7-sonnet-latest",
	"claude-3-5-haiku-latest",
}

// AnthropicAdapter implements the Provider interface on the Anthropic Messages API
type AnthropicAdapter struct {
	config providers.ProviderConfig
	client anthropic.Client
}

// NewAnthropicAdapter creates a new Anthropic adapter
func NewAnthropicAdapter(config providers.ProviderConfig) *AnthropicAdapter {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &AnthropicAdapter{
		config: config,
		client: newClient(config, nil),
	}
}

func newClient(config providers.ProviderConfig, httpClient *http.Client) anthropic.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
		option.WithRequestTimeout(config.Timeout),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return anthropic.NewClient(opts...)
}

// Name returns the provider name
func (a *AnthropicAdapter) Name() string {
	return ProviderName
}

// ChatCompletion sends the conversation to the Messages API.
// System messages are lifted into the top-level system parameter.
func (a *AnthropicAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	if a.config.APIKey == "" {
		return nil, providers.NewProviderError(a.Name(), "MISSING_API_KEY", "Anthropic API key is not configured", 0, false, nil)
	}
	if err := a.ValidateModel(req.Model); err != nil {
		return nil, providers.NewProviderError(a.Name(), "INVALID_MODEL", err.Error(), 400, false, err)
	}

	msg, err := a.client.Messages.New(ctx, a.buildParams(req))
	if err != nil {
		return nil, a.handleError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	return &providers.ChatResponse{
		ID:           msg.ID,
		Model:        string(msg.Model),
		Content:      text.String(),
		FinishReason: string(msg.StopReason),
		Provider:     a.Name(),
		Usage: providers.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
		Latency: time.Since(startTime),
		Created: startTime,
	}, nil
}

// IsAvailable reports whether an API key is configured
func (a *AnthropicAdapter) IsAvailable(ctx context.Context) bool {
	return a.config.APIKey != ""
}

// ValidateModel accepts Claude models
func (a *AnthropicAdapter) ValidateModel(model string) error {
	if strings.HasPrefix(model, "claude-") {
		return nil
	}
	return fmt.Errorf("model %s is not supported by Anthropic provider", model)
}

// ListModels returns the well-known Claude models
func (a *AnthropicAdapter) ListModels() []string {
	out := make([]string, len(knownModels))
	copy(out, knownModels)
	return out
}

func (a *AnthropicAdapter) buildParams(req *providers.ChatRequest) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))

	for _, m := range req.Messages {
		switch m.Role {
		case providers.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case providers.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		System:    system,
		Messages:  messages,
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.User != "" {
		params.Metadata = anthropic.MetadataParam{UserID: anthropic.String(req.User)}
	}
	return params
}

func (a *AnthropicAdapter) handleError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		code, retryable := providers.ErrorCodeForStatus(apiErr.StatusCode)
		// 529 overloaded
		if apiErr.StatusCode == 529 {
			code, retryable = "OVERLOADED", true
		}
		return providers.NewProviderError(a.Name(), code, "Anthropic API error", apiErr.StatusCode, retryable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return providers.NewProviderError(a.Name(), "TIMEOUT", "Anthropic request timed out", 0, true, err)
	}
	if errors.Is(err, context.Canceled) {
		return providers.NewProviderError(a.Name(), "CANCELED", "Anthropic request canceled", 0, false, err)
	}
	return providers.NewProviderError(a.Name(), "HTTP_ERROR", "Anthropic request failed", 0, true, err)
}
