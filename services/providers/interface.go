package providers

import (
	"context"
	"errors"
	"time"
)

// Provider represents a chat-completion backend
type Provider interface {
	// Name returns the provider name (e.g., "openai", "anthropic")
	Name() string

	// ChatCompletion performs a chat completion request
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// IsAvailable reports whether the provider is configured to serve requests
	IsAvailable(ctx context.Context) bool

	// ValidateModel checks if a model is supported by this provider
	ValidateModel(model string) error

	// ListModels returns the well-known models of this provider
	ListModels() []string
}

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest represents a unified chat completion request
type ChatRequest struct {
	// Model identifier (e.g., "gpt-4o", "claude-sonnet-4-5")
	Model string `json:"model"`

	// Messages in the conversation, system prompt first
	Messages []Message `json:"messages"`

	// MaxTokens limits the response length; 0 leaves it to the provider
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness; nil leaves it to the provider
	Temperature *float64 `json:"temperature,omitempty"`

	// User identifier for abuse monitoring
	User string `json:"user,omitempty"`
}

// Message represents a single message in a conversation
type Message struct {
	// Role can be "system", "user", or "assistant"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// ChatResponse represents a unified chat completion response
type ChatResponse struct {
	ID           string        `json:"id"`
	Model        string        `json:"model"`
	Content      string        `json:"content"`
	FinishReason string        `json:"finish_reason"`
	Usage        Usage         `json:"usage"`
	Provider     string        `json:"provider"`
	Latency      time.Duration `json:"latency"`
	Created      time.Time     `json:"created"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Timeout for a single request attempt
	Timeout time.Duration

	// MaxRetries for failed requests, delegated to the SDK
	MaxRetries int
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout:    60 * time.Second,
		MaxRetries: 2,
	}
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Retryable indicates if the request can be retried
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// ErrorCodeForStatus maps an upstream HTTP status to a provider error code
func ErrorCodeForStatus(status int) (code string, retryable bool) {
	switch {
	case status == 401 || status == 403:
		return "AUTHENTICATION_ERROR", false
	case status == 404:
		return "NOT_FOUND", false
	case status == 429:
		return "RATE_LIMIT", true
	case status == 400 || status == 422:
		return "INVALID_REQUEST", false
	case status >= 500:
		return "SERVER_ERROR", true
	default:
		return "API_ERROR", false
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}
