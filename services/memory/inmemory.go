package memory

import (
	"context"
	"sync"

	"github.com/msenthi7/medical-chatbot/models"
)

// InMemoryStore keeps buffers in process memory. Contents are lost on restart.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]models.Message
}

// NewInMemoryStore creates an empty store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]models.Message)}
}

// Load returns a copy of the session buffer
func (s *InMemoryStore) Load(ctx context.Context, sessionID string) ([]models.Message, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.sessions[sessionID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Append adds messages to the session buffer
func (s *InMemoryStore) Append(ctx context.Context, sessionID string, messages ...models.Message) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], bind(sessionID, messages)...)
	return nil
}

// Clear removes the session buffer
func (s *InMemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Close is a no-op
func (s *InMemoryStore) Close() error {
	return nil
}
