package services

import (
	"context"
	"errors"
	"testing"

	"github.com/msenthi7/medical-chatbot/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockTransactionManager is a mock implementation of TransactionManager
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

// MockTransaction is a mock implementation of Transaction
type MockTransaction struct {
	mock.Mock
	committed  bool
	rolledback bool
}

func (m *MockTransaction) Commit() error {
	args := m.Called()
	m.committed = true
	return args.Error(0)
}

func (m *MockTransaction) Rollback() error {
	args := m.Called()
	m.rolledback = true
	return args.Error(0)
}

func (m *MockTransaction) Context() context.Context {
	args := m.Called()
	return args.Get(0).(context.Context)
}

type txKey struct{}

func newMockTx(ctx context.Context) (*MockTransactionManager, *MockTransaction, context.Context) {
	txCtx := context.WithValue(ctx, txKey{}, "tx-1")
	mockTxMgr := new(MockTransactionManager)
	mockTx := new(MockTransaction)
	mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("Context").Return(txCtx)
	return mockTxMgr, mockTx, txCtx
}

func TestWithTransaction_CommitsTurn(t *testing.T) {
	ctx := context.Background()
	mockTxMgr, mockTx, txCtx := newMockTx(ctx)
	mockTx.On("Commit").Return(nil)

	var seen context.Context
	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context) error {
		seen = ctx
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, txCtx, seen)
	assert.True(t, mockTx.committed)
	assert.False(t, mockTx.rolledback)
	mockTxMgr.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestWithTransaction_WriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	mockTxMgr, mockTx, _ := newMockTx(ctx)
	mockTx.On("Rollback").Return(nil)
	writeErr := errors.New("insert failed")

	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context) error {
		return writeErr
	})

	assert.Equal(t, writeErr, err)
	assert.False(t, mockTx.committed)
	assert.True(t, mockTx.rolledback)
	mockTx.AssertExpectations(t)
}

func TestWithTransaction_BeginFailureIsUnavailable(t *testing.T) {
	ctx := context.Background()
	mockTxMgr := new(MockTransactionManager)
	mockTxMgr.On("Begin", ctx).Return(nil, errors.New("connection refused"))

	called := false
	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.True(t, IsUnavailableError(err))
	assert.Contains(t, err.Error(), "connection refused")
	mockTxMgr.AssertExpectations(t)
}

func TestWithTransaction_CommitFailureIsInternal(t *testing.T) {
	ctx := context.Background()
	mockTxMgr, mockTx, _ := newMockTx(ctx)
	commitErr := errors.New("commit failed")
	mockTx.On("Commit").Return(commitErr)

	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context) error { return nil })

	assert.True(t, IsInternalError(err))
	assert.ErrorIs(t, err, commitErr)
	mockTx.AssertExpectations(t)
}

func TestWithTransaction_RollbackFailureKeepsBothErrors(t *testing.T) {
	ctx := context.Background()
	mockTxMgr, mockTx, _ := newMockTx(ctx)
	writeErr := errors.New("insert failed")
	rollbackErr := errors.New("rollback failed")
	mockTx.On("Rollback").Return(rollbackErr)

	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context) error {
		return writeErr
	})

	assert.ErrorIs(t, err, writeErr)
	assert.ErrorIs(t, err, rollbackErr)
	assert.True(t, mockTx.rolledback)
	mockTx.AssertExpectations(t)
}

func TestWithTransaction_PanicRollsBack(t *testing.T) {
	ctx := context.Background()
	mockTxMgr, mockTx, _ := newMockTx(ctx)
	mockTx.On("Rollback").Return(nil)

	assert.PanicsWithValue(t, "boom", func() {
		_ = WithTransaction(ctx, mockTxMgr, func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.True(t, mockTx.rolledback)
	assert.False(t, mockTx.committed)
}
