package database

import (
	"context"
	"testing"
	"time"

	"adventure-server/shared/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisTokenRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewRedisTokenRepository(client, zap.NewNop())

	userID := uuid.New()
	td := &models.TokenDetails{
		AccessUUID:  uuid.NewString(),
		RefreshUUID: uuid.NewString(),
		AtExpires:   time.Now().Add(15 * time.Minute).Unix(),
		RtExpires:   time.Now().Add(24 * time.Hour).Unix(),
	}
	require.NoError(t, repo.SetToken(ctx, userID, td))

	got, err := repo.GetUserIDByAccessUUID(ctx, td.AccessUUID)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	got, err = repo.GetUserIDByRefreshUUID(ctx, td.RefreshUUID)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	deleted, err := repo.DeleteTokens(ctx, userID, td.AccessUUID, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = repo.GetUserIDByAccessUUID(ctx, td.AccessUUID)
	assert.ErrorIs(t, err, models.ErrTokenNotFound)

	mr.FastForward(25 * time.Hour)
	_, err = repo.GetUserIDByRefreshUUID(ctx, td.RefreshUUID)
	assert.ErrorIs(t, err, models.ErrTokenNotFound, "refresh token must expire")
}

func TestRedisTokenRepository_DeleteTokensByUserID(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := NewRedisTokenRepository(client, zap.NewNop())

	userID := uuid.New()
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.SetToken(ctx, userID, &models.TokenDetails{
			AccessUUID:  uuid.NewString(),
			RefreshUUID: uuid.NewString(),
			AtExpires:   time.Now().Add(time.Hour).Unix(),
			RtExpires:   time.Now().Add(2 * time.Hour).Unix(),
		}))
	}

	deleted, err := repo.DeleteTokensByUserID(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, deleted)

	keys, err := client.Keys(ctx, "*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRedisIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	store := NewRedisIdempotencyStore(client, "idem:choice", zap.NewNop())

	_, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	reserved, err := store.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, reserved)

	reserved, err = store.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, reserved, "a held key cannot be reserved twice")

	_, found, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, models.ErrRequestInProgress)
	assert.False(t, found)

	require.NoError(t, store.Complete(ctx, "k1", []byte(`{"first":true}`), time.Minute))
	require.NoError(t, store.Release(ctx, "k1"), "releasing a completed key is a no-op")

	data, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"first":true}`, string(data))
	assert.True(t, mr.Exists("idem:choice:k1"))

	mr.FastForward(2 * time.Minute)
	_, found, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisIdempotencyStore_Release(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	store := NewRedisIdempotencyStore(client, "idem:choice", zap.NewNop())

	reserved, err := store.Reserve(ctx, "k2", time.Minute)
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, store.Release(ctx, "k2"))
	assert.False(t, mr.Exists("idem:choice:k2"))

	reserved, err = store.Reserve(ctx, "k2", time.Minute)
	require.NoError(t, err)
	assert.True(t, reserved, "a released key can be taken again")
}
