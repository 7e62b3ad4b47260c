package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single turn in a chat session's conversation buffer
type Message struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Message model
func (Message) TableName() string {
	return "conversation_messages"
}

// NewMessage creates a new Message instance
func NewMessage(sessionID string, role Role, content string) Message {
	return Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// UserMessage is shorthand for NewMessage with RoleUser
func UserMessage(sessionID, content string) Message {
	return NewMessage(sessionID, RoleUser, content)
}

// AssistantMessage is shorthand for NewMessage with RoleAssistant
func AssistantMessage(sessionID, content string) Message {
	return NewMessage(sessionID, RoleAssistant, content)
}
