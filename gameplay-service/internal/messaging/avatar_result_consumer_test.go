package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"adventure-server/gameplay-service/internal/messaging"
	sharedMessaging "adventure-server/shared/messaging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockResultHandler struct {
	mock.Mock
}

func (m *mockResultHandler) ApplyAvatarResult(ctx context.Context, result sharedMessaging.AvatarResultPayload) error {
	return m.Called(ctx, result).Error(0)
}

func TestAvatarResultProcessor_Process(t *testing.T) {
	characterID := uuid.New()

	t.Run("applies a valid result", func(t *testing.T) {
		handler := new(mockResultHandler)
		p := messaging.NewAvatarResultProcessor(handler, zap.NewNop())
		result := sharedMessaging.AvatarResultPayload{TaskID: "t1", CharacterID: characterID, Success: true, AvatarRef: "avatars/a.png"}
		body, err := json.Marshal(result)
		require.NoError(t, err)

		handler.On("ApplyAvatarResult", mock.Anything, result).Return(nil).Once()

		assert.NoError(t, p.Process(context.Background(), body))
		handler.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		handler := new(mockResultHandler)
		p := messaging.NewAvatarResultProcessor(handler, zap.NewNop())

		err := p.Process(context.Background(), []byte("{not json"))
		assert.ErrorIs(t, err, messaging.ErrMalformedResult)
		handler.AssertNotCalled(t, "ApplyAvatarResult", mock.Anything, mock.Anything)
	})

	t.Run("missing character id", func(t *testing.T) {
		handler := new(mockResultHandler)
		p := messaging.NewAvatarResultProcessor(handler, zap.NewNop())

		err := p.Process(context.Background(), []byte(`{"taskId":"t2","success":true}`))
		assert.ErrorIs(t, err, messaging.ErrMalformedResult)
		handler.AssertNotCalled(t, "ApplyAvatarResult", mock.Anything, mock.Anything)
	})

	t.Run("handler error is returned for retry", func(t *testing.T) {
		handler := new(mockResultHandler)
		p := messaging.NewAvatarResultProcessor(handler, zap.NewNop())
		dbErr := errors.New("db down")
		handler.On("ApplyAvatarResult", mock.Anything, mock.Anything).Return(dbErr).Once()

		body, _ := json.Marshal(sharedMessaging.AvatarResultPayload{CharacterID: characterID, Success: true, AvatarRef: "x"})
		err := p.Process(context.Background(), body)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, messaging.ErrMalformedResult)
	})
}
