package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/msenthi7/medical-chatbot/repositories"
)

// WithTransaction runs fn with a context bound to a new transaction, so
// repository calls made with it join the transaction. A conversation turn
// written this way is stored whole or not at all. The transaction commits
// when fn returns nil and rolls back otherwise, including on panic.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(txCtx context.Context) error) error {
	tx, err := txMgr.Begin(ctx)
	if err != nil {
		return WrapError(ErrorTypeUnavailable, "conversation store unavailable", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx.Context()); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return WrapInternal("commit conversation turn", err)
	}
	return nil
}
