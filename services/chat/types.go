package chat

import (
	"github.com/google/uuid"
	"github.com/msenthi7/medical-chatbot/models"
	"github.com/msenthi7/medical-chatbot/services/providers"
)

// Request is one user turn
type Request struct {
	SessionID string
	Message   string

	// Request metadata
	RequestID string
	IPAddress string
	UserAgent string
}

// Answer is the assistant's reply to a Request
type Answer struct {
	ExchangeID   uuid.UUID       `json:"exchange_id"`
	Text         string          `json:"answer"`
	Sources      []string        `json:"sources"`
	Model        string          `json:"model"`
	Provider     string          `json:"provider"`
	FinishReason string          `json:"finish_reason"`
	Usage        providers.Usage `json:"usage"`
	LatencyMs    int             `json:"latency_ms"`
}

// Config holds the pipeline settings
type Config struct {
	Provider         string
	Model            string
	Temperature      *float64 // nil keeps the provider default
	MaxTokens        int      // 0 keeps the provider default
	MaxMessageLength int      // In runes; 0 disables the check
	TopK             int
}

// History is a session's replayable conversation
type History struct {
	SessionID string           `json:"session_id"`
	Messages  []models.Message `json:"messages"`
}
