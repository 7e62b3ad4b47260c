package postgres

import (
	"context"
	"fmt"

	"github.com/msenthi7/medical-chatbot/models"
	"github.com/msenthi7/medical-chatbot/repositories"
	"go.uber.org/zap"
)

// ConversationRepository implements repositories.ConversationRepository
type ConversationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB, logger *zap.Logger) repositories.ConversationRepository {
	return &ConversationRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts messages in the order given
func (r *ConversationRepository) Append(ctx context.Context, messages ...models.Message) error {
	query := `
		INSERT INTO conversation_messages (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	executor := GetExecutor(ctx, r.db)
	for _, msg := range messages {
		if _, err := executor.ExecContext(ctx, query,
			msg.ID,
			msg.SessionID,
			msg.Role,
			msg.Content,
			msg.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to append conversation message: %w", err)
		}
	}

	r.logger.Debug("conversation messages appended", zap.Int("count", len(messages)))
	return nil
}

// ListBySession returns a session's messages oldest first
func (r *ConversationRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	query := `
		SELECT id, session_id, role, content, created_at
		FROM conversation_messages
		WHERE session_id = $1
		ORDER BY seq ASC
	`
	args := []interface{}{sessionID}

	if limit > 0 {
		query = `
			SELECT id, session_id, role, content, created_at
			FROM (
				SELECT seq, id, session_id, role, content, created_at
				FROM conversation_messages
				WHERE session_id = $1
				ORDER BY seq DESC
				LIMIT $2
			) recent
			ORDER BY seq ASC
		`
		args = append(args, limit)
	}

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation messages: %w", err)
	}

	return messages, nil
}

// DeleteBySession removes every message of a session
func (r *ConversationRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	query := `DELETE FROM conversation_messages WHERE session_id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversation messages: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Debug("conversation cleared", zap.String("session_id", sessionID), zap.Int64("deleted", deleted))
	return deleted, nil
}
