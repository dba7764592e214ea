package mocks

import (
	"context"

	"adventure-server/shared/interfaces"

	"github.com/stretchr/testify/mock"
)

// TxManager runs the callback against Tx so repository mocks see the same querier.
type TxManager struct {
	mock.Mock
	Tx interfaces.DBTX
}

func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.DBTX) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m.Tx)
}
