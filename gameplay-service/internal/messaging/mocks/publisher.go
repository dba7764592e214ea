package mocks

import (
	"context"

	sharedMessaging "adventure-server/shared/messaging"

	"github.com/stretchr/testify/mock"
)

// Publisher is a testify mock of sharedMessaging.Publisher.
type Publisher struct {
	mock.Mock
}

var _ sharedMessaging.Publisher = (*Publisher)(nil)

func (m *Publisher) Publish(ctx context.Context, payload any, correlationID string) error {
	args := m.Called(ctx, payload, correlationID)
	return args.Error(0)
}
