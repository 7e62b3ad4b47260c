package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExchangeStatus represents the outcome of a chat exchange
type ExchangeStatus string

const (
	ExchangeStatusPending   ExchangeStatus = "pending"
	ExchangeStatusCompleted ExchangeStatus = "completed"
	ExchangeStatusFailed    ExchangeStatus = "failed"
)

// ChatExchange records one question/answer round trip through the RAG pipeline
type ChatExchange struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	SessionID string         `json:"session_id" db:"session_id"`
	RequestID string         `json:"request_id" db:"request_id"`
	Status    ExchangeStatus `json:"status" db:"status"`

	// Provider details
	Provider string `json:"provider" db:"provider"`
	Model    string `json:"model" db:"model"`

	// Content
	Question     string          `json:"question" db:"question"`
	Answer       *string         `json:"answer,omitempty" db:"answer"`
	FinishReason *string         `json:"finish_reason,omitempty" db:"finish_reason"`
	Sources      json.RawMessage `json:"sources,omitempty" db:"sources"` // IDs of retrieved documents

	// Metrics
	RetrievedDocuments int `json:"retrieved_documents" db:"retrieved_documents"`
	PromptTokens       int `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens   int `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens        int `json:"total_tokens" db:"total_tokens"`
	LatencyMs          int `json:"latency_ms" db:"latency_ms"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// Error handling
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
	ErrorCode    *string `json:"error_code,omitempty" db:"error_code"`

	// Request metadata
	IPAddress string `json:"ip_address" db:"ip_address"`
	UserAgent string `json:"user_agent" db:"user_agent"`
}

// TableName returns the table name for the ChatExchange model
func (ChatExchange) TableName() string {
	return "chat_exchanges"
}

// NewChatExchange creates a new pending ChatExchange
func NewChatExchange(sessionID, provider, model, question string) *ChatExchange {
	return &ChatExchange{
		ID:        uuid.New(),
		SessionID: sessionID,
		Status:    ExchangeStatusPending,
		Provider:  provider,
		Model:     model,
		Question:  question,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkAsCompleted marks the exchange as answered
func (ce *ChatExchange) MarkAsCompleted(answer, finishReason string, promptTokens, completionTokens, latencyMs int) {
	ce.Status = ExchangeStatusCompleted
	ce.Answer = &answer
	ce.FinishReason = &finishReason
	ce.PromptTokens = promptTokens
	ce.CompletionTokens = completionTokens
	ce.TotalTokens = promptTokens + completionTokens
	ce.LatencyMs = latencyMs
	now := time.Now().UTC()
	ce.CompletedAt = &now
}

// MarkAsFailed marks the exchange as failed
func (ce *ChatExchange) MarkAsFailed(errorCode, errorMessage string, latencyMs int) {
	ce.Status = ExchangeStatusFailed
	ce.ErrorCode = &errorCode
	ce.ErrorMessage = &errorMessage
	ce.LatencyMs = latencyMs
	now := time.Now().UTC()
	ce.CompletedAt = &now
}

// SetSources records the IDs of the documents that grounded the answer
func (ce *ChatExchange) SetSources(ids []string) {
	ce.RetrievedDocuments = len(ids)
	if data, err := json.Marshal(ids); err == nil {
		ce.Sources = data
	}
}

// SetRequestMetadata sets request metadata
func (ce *ChatExchange) SetRequestMetadata(requestID, ipAddress, userAgent string) {
	ce.RequestID = requestID
	ce.IPAddress = ipAddress
	ce.UserAgent = userAgent
}
