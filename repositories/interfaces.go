package repositories

import (
	"context"

	"github.com/msenthi7/medical-chatbot/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// ConversationRepository stores the turns of chat sessions
type ConversationRepository interface {
	// Append inserts messages in order
	Append(ctx context.Context, messages ...models.Message) error

	// ListBySession returns a session's messages oldest first.
	// When limit > 0 only the most recent limit messages are returned.
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.Message, error)

	// DeleteBySession removes every message of a session and returns the number removed
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

// ExchangeRepository stores chat exchange records
type ExchangeRepository interface {
	// Create inserts a new exchange record
	Create(ctx context.Context, exchange *models.ChatExchange) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Conversations ConversationRepository
	Exchanges     ExchangeRepository
}
