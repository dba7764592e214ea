package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"adventure-server/auth/internal/config"
	"adventure-server/shared/authutils"
	"adventure-server/shared/interfaces/mocks"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "test-jwt-secret"
	testPepper = "test-pepper"
)

func newTestService(t *testing.T) (*authServiceImpl, *mocks.UserRepository, *mocks.TokenRepository) {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:       testSecret,
		PasswordPepper:  testPepper,
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		ServiceID:       "adventure-auth",
	}
	users := new(mocks.UserRepository)
	tokens := new(mocks.TokenRepository)
	svc, err := NewAuthService(users, tokens, cfg, zap.NewNop())
	require.NoError(t, err)
	return svc.(*authServiceImpl), users, tokens
}

func signRefresh(t *testing.T, userID uuid.UUID, jti string) string {
	t.Helper()
	tok, _, err := authutils.SignToken(testSecret, userID, models.TokenTypeRefresh, jti, "adventure-auth", time.Hour)
	require.NoError(t, err)
	return tok
}

func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := hashPassword("mysecretpassword1", testPepper)
	require.NoError(t, err)
	assert.NotEqual(t, "mysecretpassword1", hashed)

	assert.True(t, checkPasswordHash("mysecretpassword1", hashed, testPepper))
	assert.False(t, checkPasswordHash("wrongpassword1", hashed, testPepper))
	assert.False(t, checkPasswordHash("mysecretpassword1", hashed, "another-pepper"))
	assert.False(t, checkPasswordHash("mysecretpassword1", "not-a-bcrypt-hash", testPepper))
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with normalised email", func(t *testing.T) {
		svc, users, _ := newTestService(t)
		users.On("GetUserByUsername", ctx, "aria").Return(nil, models.ErrUserNotFound).Once()
		users.On("GetUserByEmail", ctx, "aria@example.com").Return(nil, models.ErrUserNotFound).Once()
		users.On("CreateUser", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Email == "aria@example.com" && checkPasswordHash("secret123", u.PasswordHash, testPepper)
		})).Return(nil).Once()

		u, err := svc.Register(ctx, "aria", " Aria@Example.com ", "secret123")
		require.NoError(t, err)
		assert.Equal(t, "aria", u.Username)
		users.AssertExpectations(t)
	})

	t.Run("username taken", func(t *testing.T) {
		svc, users, _ := newTestService(t)
		users.On("GetUserByUsername", ctx, "aria").Return(&models.User{Username: "aria"}, nil).Once()

		_, err := svc.Register(ctx, "aria", "aria@example.com", "secret123")
		assert.ErrorIs(t, err, models.ErrUserAlreadyExists)
		users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("email taken", func(t *testing.T) {
		svc, users, _ := newTestService(t)
		users.On("GetUserByUsername", ctx, "aria").Return(nil, models.ErrUserNotFound).Once()
		users.On("GetUserByEmail", ctx, "aria@example.com").Return(&models.User{}, nil).Once()

		_, err := svc.Register(ctx, "aria", "aria@example.com", "secret123")
		assert.ErrorIs(t, err, models.ErrEmailAlreadyExists)
	})

	t.Run("invalid email", func(t *testing.T) {
		svc, users, _ := newTestService(t)
		_, err := svc.Register(ctx, "aria", "not-an-email", "secret123")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		users.AssertNotCalled(t, "GetUserByUsername", mock.Anything, mock.Anything)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	hash, err := hashPassword("secret123", testPepper)
	require.NoError(t, err)
	user := &models.User{ID: uuid.New(), Username: "aria", PasswordHash: hash}

	t.Run("issues a stored token pair", func(t *testing.T) {
		svc, users, tokens := newTestService(t)
		users.On("GetUserByUsername", ctx, "aria").Return(user, nil).Once()
		tokens.On("SetToken", ctx, user.ID, mock.AnythingOfType("*models.TokenDetails")).Return(nil).Once()

		td, err := svc.Login(ctx, "aria", "secret123")
		require.NoError(t, err)
		assert.NotEqual(t, td.AccessUUID, td.RefreshUUID)

		claims, err := svc.verifier.VerifyToken(ctx, td.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, td.AccessUUID, claims.ID)
		assert.Equal(t, "adventure-auth", claims.Issuer)
		tokens.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, users, tokens := newTestService(t)
		users.On("GetUserByUsername", ctx, "aria").Return(user, nil).Once()

		_, err := svc.Login(ctx, "aria", "wrong1234")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
		tokens.AssertNotCalled(t, "SetToken", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, users, _ := newTestService(t)
		users.On("GetUserByUsername", ctx, "ghost").Return(nil, models.ErrUserNotFound).Once()

		_, err := svc.Login(ctx, "ghost", "secret123")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("rotates the refresh token", func(t *testing.T) {
		svc, _, tokens := newTestService(t)
		refresh := signRefresh(t, userID, "r-1")
		tokens.On("GetUserIDByRefreshUUID", ctx, "r-1").Return(userID, nil).Once()
		tokens.On("DeleteTokens", ctx, userID, "", "r-1").Return(int64(1), nil).Once()
		tokens.On("SetToken", ctx, userID, mock.Anything).Return(nil).Once()

		td, err := svc.Refresh(ctx, refresh)
		require.NoError(t, err)
		assert.NotEqual(t, "r-1", td.RefreshUUID)
		tokens.AssertExpectations(t)
	})

	t.Run("reuse revokes every token of the user", func(t *testing.T) {
		svc, _, tokens := newTestService(t)
		refresh := signRefresh(t, userID, "r-old")
		tokens.On("GetUserIDByRefreshUUID", ctx, "r-old").Return(uuid.Nil, models.ErrTokenNotFound).Once()
		tokens.On("DeleteTokensByUserID", ctx, userID).Return(int64(2), nil).Once()

		_, err := svc.Refresh(ctx, refresh)
		assert.ErrorIs(t, err, models.ErrTokenNotFound)
		tokens.AssertExpectations(t)
		tokens.AssertNotCalled(t, "SetToken", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("losing the rotation race counts as reuse", func(t *testing.T) {
		svc, _, tokens := newTestService(t)
		refresh := signRefresh(t, userID, "r-raced")
		tokens.On("GetUserIDByRefreshUUID", ctx, "r-raced").Return(userID, nil).Once()
		tokens.On("DeleteTokens", ctx, userID, "", "r-raced").Return(int64(0), nil).Once()
		tokens.On("DeleteTokensByUserID", ctx, userID).Return(int64(2), nil).Once()

		_, err := svc.Refresh(ctx, refresh)
		assert.ErrorIs(t, err, models.ErrTokenNotFound)
		tokens.AssertExpectations(t)
		tokens.AssertNotCalled(t, "SetToken", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("user mismatch", func(t *testing.T) {
		svc, _, tokens := newTestService(t)
		refresh := signRefresh(t, userID, "r-2")
		tokens.On("GetUserIDByRefreshUUID", ctx, "r-2").Return(uuid.New(), nil).Once()

		_, err := svc.Refresh(ctx, refresh)
		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	})

	t.Run("access token is not accepted", func(t *testing.T) {
		svc, _, tokens := newTestService(t)
		access, _, err := authutils.SignToken(testSecret, userID, models.TokenTypeAccess, "a-1", "adventure-auth", time.Minute)
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, access)
		assert.Error(t, err)
		tokens.AssertNotCalled(t, "GetUserIDByRefreshUUID", mock.Anything, mock.Anything)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("revokes access and refresh", func(t *testing.T) {
		svc, _, tokens := newTestService(t)
		tokens.On("DeleteTokens", ctx, userID, "a-1", "r-1").Return(int64(2), nil).Once()

		require.NoError(t, svc.Logout(ctx, userID, "a-1", signRefresh(t, userID, "r-1")))
		tokens.AssertExpectations(t)
	})

	t.Run("refresh token of another user is ignored", func(t *testing.T) {
		svc, _, tokens := newTestService(t)
		tokens.On("DeleteTokens", ctx, userID, "a-1", "").Return(int64(1), nil).Once()

		require.NoError(t, svc.Logout(ctx, userID, "a-1", signRefresh(t, uuid.New(), "r-x")))
		tokens.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, _, tokens := newTestService(t)
		tokens.On("DeleteTokens", ctx, userID, "a-1", "").Return(int64(0), errors.New("redis down")).Once()

		assert.Error(t, svc.Logout(ctx, userID, "a-1", ""))
	})
}

func TestVerifyAccessToken(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	access, _, err := authutils.SignToken(testSecret, userID, models.TokenTypeAccess, "a-1", "adventure-auth", time.Minute)
	require.NoError(t, err)

	svc, _, tokens := newTestService(t)
	tokens.On("GetUserIDByAccessUUID", ctx, "a-1").Return(userID, nil).Once()
	claims, err := svc.VerifyAccessToken(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)

	tokens.On("GetUserIDByAccessUUID", ctx, "a-1").Return(uuid.Nil, models.ErrTokenNotFound).Once()
	_, err = svc.VerifyAccessToken(ctx, access)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}
