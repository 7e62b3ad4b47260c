package postgres

import (
	"context"
	"fmt"

	"github.com/msenthi7/medical-chatbot/models"
	"github.com/msenthi7/medical-chatbot/repositories"
	"go.uber.org/zap"
)

// ExchangeRepository implements repositories.ExchangeRepository
type ExchangeRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewExchangeRepository creates a new exchange repository
func NewExchangeRepository(db *DB, logger *zap.Logger) repositories.ExchangeRepository {
	return &ExchangeRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a chat exchange record
func (r *ExchangeRepository) Create(ctx context.Context, ex *models.ChatExchange) error {
	query := `
		INSERT INTO chat_exchanges (
			id, session_id, request_id, status, provider, model,
			question, answer, finish_reason, sources, retrieved_documents,
			prompt_tokens, completion_tokens, total_tokens, latency_ms,
			error_code, error_message, ip_address, user_agent,
			created_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)
	`

	var sources interface{}
	if len(ex.Sources) > 0 {
		sources = []byte(ex.Sources)
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		ex.ID,
		ex.SessionID,
		ex.RequestID,
		ex.Status,
		ex.Provider,
		ex.Model,
		ex.Question,
		ex.Answer,
		ex.FinishReason,
		sources,
		ex.RetrievedDocuments,
		ex.PromptTokens,
		ex.CompletionTokens,
		ex.TotalTokens,
		ex.LatencyMs,
		ex.ErrorCode,
		ex.ErrorMessage,
		ex.IPAddress,
		ex.UserAgent,
		ex.CreatedAt,
		ex.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create chat exchange: %w", err)
	}

	r.logger.Debug("chat exchange created",
		zap.String("id", ex.ID.String()),
		zap.String("status", string(ex.Status)),
	)
	return nil
}
