package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/msenthi7/medical-chatbot/services/providers"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// ProviderName identifies this adapter in the registry
	ProviderName = "openai"

	defaultBaseURL = "https://api.openai.com/v1"
)

var knownModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
	"gpt-4-turbo",
	"gpt-3.5-turbo",
}

var modelPrefixes = []string{"gpt-", "chatgpt-", "o1", "o3", "o4"}

// OpenAIAdapter implements the Provider interface on the official OpenAI SDK
type OpenAIAdapter struct {
	config providers.ProviderConfig
	client openai.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter
func NewOpenAIAdapter(config providers.ProviderConfig) *OpenAIAdapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	client := openai.NewClient(ClientOptions(config)...)

	return &OpenAIAdapter{
		config: config,
		client: client,
	}
}

// ClientOptions translates a ProviderConfig into SDK request options
func ClientOptions(config providers.ProviderConfig) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}
	return opts
}

// Name returns the provider name
func (a *OpenAIAdapter) Name() string {
	return ProviderName
}

// ChatCompletion performs a chat completion request
func (a *OpenAIAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	if a.config.APIKey == "" {
		return nil, providers.NewProviderError(a.Name(), "MISSING_API_KEY", "OpenAI API key is not configured", 0, false, nil)
	}
	if err := a.ValidateModel(req.Model); err != nil {
		return nil, providers.NewProviderError(a.Name(), "INVALID_MODEL", err.Error(), 400, false, err)
	}

	completion, err := a.client.Chat.Completions.New(ctx, a.buildParams(req))
	if err != nil {
		return nil, ClassifyError(err)
	}

	if len(completion.Choices) == 0 {
		return nil, providers.NewProviderError(a.Name(), "EMPTY_RESPONSE", "OpenAI returned no choices", 0, true, nil)
	}

	choice := completion.Choices[0]
	return &providers.ChatResponse{
		ID:           completion.ID,
		Model:        completion.Model,
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Provider:     a.Name(),
		Usage: providers.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
		Latency: time.Since(startTime),
		Created: time.Unix(completion.Created, 0),
	}, nil
}

// IsAvailable reports whether an API key is configured
func (a *OpenAIAdapter) IsAvailable(ctx context.Context) bool {
	return a.config.APIKey != ""
}

// ValidateModel accepts the OpenAI chat model families
func (a *OpenAIAdapter) ValidateModel(model string) error {
	for _, prefix := range modelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return nil
		}
	}
	return fmt.Errorf("model %s is not supported by OpenAI provider", model)
}

// ListModels returns the well-known chat models
func (a *OpenAIAdapter) ListModels() []string {
	out := make([]string, len(knownModels))
	copy(out, knownModels)
	return out
}

// buildParams converts a unified request to SDK parameters
func (a *OpenAIAdapter) buildParams(req *providers.ChatRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case providers.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case providers.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.User != "" {
		params.User = openai.String(req.User)
	}
	return params
}

// ClassifyError maps SDK errors into provider errors
func ClassifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		code, retryable := providers.ErrorCodeForStatus(apiErr.StatusCode)
		return providers.NewProviderError(ProviderName, code, "OpenAI API error", apiErr.StatusCode, retryable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return providers.NewProviderError(ProviderName, "TIMEOUT", "OpenAI request timed out", 0, true, err)
	}
	if errors.Is(err, context.Canceled) {
		return providers.NewProviderError(ProviderName, "CANCELED", "OpenAI request canceled", 0, false, err)
	}
	return providers.NewProviderError(ProviderName, "HTTP_ERROR", "OpenAI request failed", 0, true, err)
}
