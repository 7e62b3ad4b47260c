package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Message tests
func TestNewMessage(t *testing.T) {
	msg := NewMessage("session-1", RoleUser, "What is hypertension?")

	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.Equal(t, "session-1", msg.SessionID)
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "What is hypertension?", msg.Content)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestMessageShorthands(t *testing.T) {
	assert.Equal(t, RoleUser, UserMessage("s", "q").Role)
	assert.Equal(t, RoleAssistant, AssistantMessage("s", "a").Role)
}

func TestRole_IsValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleSystem, true},
		{RoleUser, true},
		{RoleAssistant, true},
		{Role("tool"), false},
		{Role(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.IsValid())
		})
	}
}

func TestMessage_TableName(t *testing.T) {
	assert.Equal(t, "conversation_messages", Message{}.TableName())
}

// ChatExchange tests
func TestNewChatExchange(t *testing.T) {
	ex := NewChatExchange("session-1", "openai", "gpt-4o", "What is acne?")

	assert.NotEqual(t, uuid.Nil, ex.ID)
	assert.Equal(t, "session-1", ex.SessionID)
	assert.Equal(t, "openai", ex.Provider)
	assert.Equal(t, "gpt-4o", ex.Model)
	assert.Equal(t, "What is acne?", ex.Question)
	assert.Equal(t, ExchangeStatusPending, ex.Status)
	assert.False(t, ex.CreatedAt.IsZero())
	assert.Nil(t, ex.CompletedAt)
}

func TestChatExchange_MarkAsCompleted(t *testing.T) {
	ex := NewChatExchange("s", "openai", "gpt-4o", "q")

	ex.MarkAsCompleted("answer", "stop", 120, 30, 850)

	assert.Equal(t, ExchangeStatusCompleted, ex.Status)
	require.NotNil(t, ex.Answer)
	assert.Equal(t, "answer", *ex.Answer)
	assert.Equal(t, "stop", *ex.FinishReason)
	assert.Equal(t, 120, ex.PromptTokens)
	assert.Equal(t, 30, ex.CompletionTokens)
	assert.Equal(t, 150, ex.TotalTokens)
	assert.Equal(t, 850, ex.LatencyMs)
	assert.NotNil(t, ex.CompletedAt)
}

func TestChatExchange_MarkAsFailed(t *testing.T) {
	ex := NewChatExchange("s", "openai", "gpt-4o", "q")

	ex.MarkAsFailed("external", "provider timeout", 30000)

	assert.Equal(t, ExchangeStatusFailed, ex.Status)
	assert.Equal(t, "external", *ex.ErrorCode)
	assert.Equal(t, "provider timeout", *ex.ErrorMessage)
	assert.Equal(t, 30000, ex.LatencyMs)
	assert.Nil(t, ex.Answer)
	assert.NotNil(t, ex.CompletedAt)
}

func TestChatExchange_SetSources(t *testing.T) {
	ex := NewChatExchange("s", "openai", "gpt-4o", "q")

	ex.SetSources([]string{"doc-1", "doc-7"})

	assert.Equal(t, 2, ex.RetrievedDocuments)
	var decoded []string
	require.NoError(t, json.Unmarshal(ex.Sources, &decoded))
	assert.Equal(t, []string{"doc-1", "doc-7"}, decoded)
}

func TestChatExchange_SetRequestMetadata(t *testing.T) {
	ex := NewChatExchange("s", "openai", "gpt-4o", "q")

	ex.SetRequestMetadata("req-1", "192.168.1.1", "Mozilla/5.0")

	assert.Equal(t, "req-1", ex.RequestID)
	assert.Equal(t, "192.168.1.1", ex.IPAddress)
	assert.Equal(t, "Mozilla/5.0", ex.UserAgent)
}

func TestChatExchange_TableName(t *testing.T) {
	assert.Equal(t, "chat_exchanges", ChatExchange{}.TableName())
}
