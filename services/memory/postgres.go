package memory

import (
	"context"
	"fmt"

	"github.com/msenthi7/medical-chatbot/models"
	"github.com/msenthi7/medical-chatbot/repositories"
	"github.com/msenthi7/medical-chatbot/services"
	"go.uber.org/zap"
)

// PostgresStore keeps buffers in the conversation_messages table
type PostgresStore struct {
	repo    repositories.ConversationRepository
	txMgr   repositories.TransactionManager
	maxLoad int
	logger  *zap.Logger
}

// NewPostgresStore creates a postgres-backed store. maxLoad > 0 caps how
// many recent messages Load reads; the cut can split a turn, so callers
// replay through a Window.
func NewPostgresStore(repo repositories.ConversationRepository, txMgr repositories.TransactionManager, maxLoad int, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		repo:    repo,
		txMgr:   txMgr,
		maxLoad: maxLoad,
		logger:  logger,
	}
}

// Load reads the session buffer
func (s *PostgresStore) Load(ctx context.Context, sessionID string) ([]models.Message, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	msgs, err := s.repo.ListBySession(ctx, sessionID, s.maxLoad)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return msgs, nil
}

// Append writes all messages in one transaction so a turn is never half stored
func (s *PostgresStore) Append(ctx context.Context, sessionID string, messages ...models.Message) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if len(messages) == 0 {
		return nil
	}

	bound := bind(sessionID, messages)
	return services.WithTransaction(ctx, s.txMgr, func(txCtx context.Context) error {
		return s.repo.Append(txCtx, bound...)
	})
}

// Clear deletes the session's messages
func (s *PostgresStore) Clear(ctx context.Context, sessionID string) error {
	n, err := s.repo.DeleteBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	s.logger.Debug("Conversation cleared", zap.String("session_id", sessionID), zap.Int64("messages", n))
	return nil
}

// Close is a no-op; the database pool is owned by the repository factory
func (s *PostgresStore) Close() error {
	return nil
}
