// Package memory keeps the per-session conversation buffer of the chat
// pipeline. Stores hold every turn; a Window trims what is replayed.
package memory

import (
	"context"
	"errors"

	"github.com/msenthi7/medical-chatbot/internal/tokens"
	"github.com/msenthi7/medical-chatbot/models"
)

// ErrEmptySessionID is returned for operations without a session
var ErrEmptySessionID = errors.New("session ID is required")

// Store persists conversation turns per session
type Store interface {
	// Load returns a session's messages oldest first; unknown sessions are empty
	Load(ctx context.Context, sessionID string) ([]models.Message, error)

	// Append adds messages to the end of a session's buffer
	Append(ctx context.Context, sessionID string, messages ...models.Message) error

	// Clear forgets a session
	Clear(ctx context.Context, sessionID string) error

	// Close releases the backend
	Close() error
}

// Window bounds the history replayed to the model.
// Zero limits mean unbounded.
type Window struct {
	MaxMessages int
	MaxTokens   int
	Counter     *tokens.Counter
}

// Apply drops the oldest turns until the window fits. A user message is
// always dropped together with the assistant reply that follows it, and the
// result never opens with anything but a user message.
func (w Window) Apply(messages []models.Message) []models.Message {
	out := trimToUser(messages)
	if w.MaxMessages <= 0 && w.MaxTokens <= 0 {
		return out
	}

	for len(out) > 0 && w.exceeds(out) {
		drop := 1
		if len(out) > 1 && out[0].Role == models.RoleUser && out[1].Role == models.RoleAssistant {
			drop = 2
		}
		out = trimToUser(out[drop:])
	}
	return out
}

// trimToUser drops leading messages left over from a turn cut in half
func trimToUser(messages []models.Message) []models.Message {
	for len(messages) > 0 && messages[0].Role != models.RoleUser {
		messages = messages[1:]
	}
	return messages
}

func (w Window) exceeds(messages []models.Message) bool {
	if w.MaxMessages > 0 && len(messages) > w.MaxMessages {
		return true
	}
	if w.MaxTokens > 0 {
		return w.count(messages) > w.MaxTokens
	}
	return false
}

func (w Window) count(messages []models.Message) int {
	contents := make([]string, len(messages))
	for i, m := range messages {
		contents[i] = m.Content
	}
	if w.Counter == nil {
		return tokens.NewEstimator().CountMessages(contents...)
	}
	return w.Counter.CountMessages(contents...)
}

// bind stamps sessionID on messages
func bind(sessionID string, messages []models.Message) []models.Message {
	out := make([]models.Message, len(messages))
	for i, m := range messages {
		m.SessionID = sessionID
		out[i] = m
	}
	return out
}
