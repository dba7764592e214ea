package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ interfaces.TokenRepository = (*redisTokenRepository)(nil)

type redisTokenRepository struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisTokenRepository creates a new Redis-backed TokenRepository.
//
// Layout:
//
//	access_uuid:{uuid}  -> userID (TTL = access token lifetime)
//	refresh_uuid:{uuid} -> userID (TTL = refresh token lifetime)
//	user_tokens:{userID} = set of "access:{uuid}" / "refresh:{uuid}"
func NewRedisTokenRepository(client redis.UniversalClient, logger *zap.Logger) interfaces.TokenRepository {
	return &redisTokenRepository{
		client: client,
		logger: logger.Named("RedisTokenRepo"),
	}
}

func accessKey(id string) string       { return "access_uuid:" + id }
func refreshKey(id string) string      { return "refresh_uuid:" + id }
func userTokensKey(u uuid.UUID) string { return "user_tokens:" + u.String() }
func accessMember(id string) string    { return "access:" + id }
func refreshMember(id string) string   { return "refresh:" + id }

func (r *redisTokenRepository) SetToken(ctx context.Context, userID uuid.UUID, td *models.TokenDetails) error {
	now := time.Now()
	accessTTL := time.Unix(td.AtExpires, 0).Sub(now)
	refreshTTL := time.Unix(td.RtExpires, 0).Sub(now)
	setKey := userTokensKey(userID)

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, accessKey(td.AccessUUID), userID.String(), accessTTL)
	pipe.Set(ctx, refreshKey(td.RefreshUUID), userID.String(), refreshTTL)
	pipe.SAdd(ctx, setKey, accessMember(td.AccessUUID), refreshMember(td.RefreshUUID))
	pipe.Expire(ctx, setKey, refreshTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to store tokens in redis", zap.Error(err), zap.Stringer("userID", userID))
		return fmt.Errorf("failed to set token details in redis: %w", err)
	}
	r.logger.Debug("Tokens stored",
		zap.Stringer("userID", userID),
		zap.Duration("accessTTL", accessTTL),
		zap.Duration("refreshTTL", refreshTTL))
	return nil
}

func (r *redisTokenRepository) DeleteTokens(ctx context.Context, userID uuid.UUID, accessUUID, refreshUUID string) (int64, error) {
	var keys []string
	var members []any
	if accessUUID != "" {
		keys = append(keys, accessKey(accessUUID))
		members = append(members, accessMember(accessUUID))
	}
	if refreshUUID != "" {
		keys = append(keys, refreshKey(refreshUUID))
		members = append(members, refreshMember(refreshUUID))
	}
	if len(keys) == 0 {
		r.logger.Warn("DeleteTokens called with no UUIDs", zap.Stringer("userID", userID))
		return 0, nil
	}

	pipe := r.client.TxPipeline()
	delCmd := pipe.Del(ctx, keys...)
	pipe.SRem(ctx, userTokensKey(userID), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to delete tokens", zap.Error(err), zap.Stringer("userID", userID))
		return 0, fmt.Errorf("failed to delete tokens: %w", err)
	}
	deleted := delCmd.Val()
	r.logger.Info("Tokens deleted", zap.Stringer("userID", userID), zap.Int64("deleted", deleted))
	return deleted, nil
}

func (r *redisTokenRepository) GetUserIDByAccessUUID(ctx context.Context, accessUUID string) (uuid.UUID, error) {
	return r.lookup(ctx, accessKey(accessUUID))
}

func (r *redisTokenRepository) GetUserIDByRefreshUUID(ctx context.Context, refreshUUID string) (uuid.UUID, error) {
	return r.lookup(ctx, refreshKey(refreshUUID))
}

func (r *redisTokenRepository) lookup(ctx context.Context, key string) (uuid.UUID, error) {
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Token not found in redis", zap.String("key", key))
			return uuid.Nil, models.ErrTokenNotFound
		}
		r.logger.Error("Failed to get token from redis", zap.Error(err), zap.String("key", key))
		return uuid.Nil, fmt.Errorf("failed to get token from redis: %w", err)
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		r.logger.Error("Corrupted user id stored for token", zap.String("key", key), zap.String("value", raw))
		return uuid.Nil, fmt.Errorf("corrupted userID data in redis for %s: %w", key, err)
	}
	return userID, nil
}

func (r *redisTokenRepository) DeleteTokensByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	log := r.logger.With(zap.Stringer("userID", userID))
	setKey := userTokensKey(userID)

	members, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Error("Failed to read user token set", zap.Error(err))
		return 0, fmt.Errorf("failed to read tokens of user %s: %w", userID, err)
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		kind, id, ok := strings.Cut(m, ":")
		if !ok {
			log.Warn("Malformed token identifier in user set", zap.String("identifier", m))
			continue
		}
		switch kind {
		case "access":
			keys = append(keys, accessKey(id))
		case "refresh":
			keys = append(keys, refreshKey(id))
		default:
			log.Warn("Unknown token type in user set", zap.String("identifier", m))
		}
	}

	pipe := r.client.TxPipeline()
	var delCmd *redis.IntCmd
	if len(keys) > 0 {
		delCmd = pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, setKey)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error("Failed to delete user tokens", zap.Error(err))
		return 0, fmt.Errorf("failed to delete tokens of user %s: %w", userID, err)
	}

	var deleted int64
	if delCmd != nil {
		deleted = delCmd.Val()
	}
	log.Info("Revoked all tokens of user", zap.Int64("deleted", deleted))
	return deleted, nil
}
