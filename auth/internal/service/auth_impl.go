package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"adventure-server/auth/internal/config"
	"adventure-server/shared/authutils"
	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var _ AuthService = (*authServiceImpl)(nil)

type authServiceImpl struct {
	userRepo  interfaces.UserRepository
	tokenRepo interfaces.TokenRepository
	verifier  *authutils.JWTVerifier
	cfg       *config.Config
	logger    *zap.Logger
}

// NewAuthService creates the service. Tokens are signed and verified with cfg.JWTSecret.
func NewAuthService(userRepo interfaces.UserRepository, tokenRepo interfaces.TokenRepository, cfg *config.Config, logger *zap.Logger) (AuthService, error) {
	verifier, err := authutils.NewJWTVerifier(cfg.JWTSecret, logger)
	if err != nil {
		return nil, err
	}
	return &authServiceImpl{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		verifier:  verifier,
		cfg:       cfg,
		logger:    logger.Named("AuthService"),
	}, nil
}

// Register creates a new user.
func (s *authServiceImpl) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	logFields := []zap.Field{zap.String("username", username), zap.String("email", email)}
	s.logger.Info("Registering new user", logFields...)

	if _, err := mail.ParseAddress(email); err != nil {
		s.logger.Warn("Registration attempt with invalid email format", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("%w: invalid email format", models.ErrInvalidInput)
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", models.ErrInvalidInput)
	}

	existingUser, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		s.logger.Error("Error checking existing username during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("error checking existing username: %w", err)
	}
	if existingUser != nil {
		s.logger.Warn("Registration attempt for existing username", logFields...)
		return nil, models.ErrUserAlreadyExists
	}

	existingUser, err = s.userRepo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		s.logger.Error("Error checking existing email during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("error checking existing email: %w", err)
	}
	if existingUser != nil {
		s.logger.Warn("Registration attempt for existing email", logFields...)
		return nil, models.ErrEmailAlreadyExists
	}

	hashedPassword, err := hashPassword(password, s.cfg.PasswordPepper)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
	}
	// Unique violations are mapped to ErrUserAlreadyExists/ErrEmailAlreadyExists by the repository.
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered successfully", zap.Stringer("userID", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login authenticates a user and returns a fresh token pair.
func (s *authServiceImpl) Login(ctx context.Context, username, password string) (*models.TokenDetails, error) {
	username = strings.TrimSpace(username)
	s.logger.Info("Login attempt", zap.String("username", username))
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("Login failed: user not found", zap.String("username", username))
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("Login failed: error getting user from repository", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !checkPasswordHash(password, user.PasswordHash, s.cfg.PasswordPepper) {
		s.logger.Warn("Login failed: invalid password", zap.String("username", username), zap.Stringer("userID", user.ID))
		return nil, models.ErrInvalidCredentials
	}

	td, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in successfully", zap.Stringer("userID", user.ID))
	return td, nil
}

// Logout deletes the tokens from the store. Tokens that are already gone are not an error.
func (s *authServiceImpl) Logout(ctx context.Context, userID uuid.UUID, accessUUID, refreshToken string) error {
	log := s.logger.With(zap.Stringer("userID", userID), zap.String("accessUUID", accessUUID))

	var refreshUUID string
	if refreshToken != "" {
		claims, err := s.verifier.VerifyRefreshToken(ctx, refreshToken)
		switch {
		case err != nil:
			log.Info("Ignoring unusable refresh token on logout", zap.Error(err))
		case claims.UserID != userID:
			log.Warn("Refresh token of another user presented on logout")
		default:
			refreshUUID = claims.ID
		}
	}

	deleted, err := s.tokenRepo.DeleteTokens(ctx, userID, accessUUID, refreshUUID)
	if err != nil {
		log.Error("Failed to delete tokens during logout", zap.Error(err))
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	log.Info("User logged out", zap.Int64("deletedCount", deleted))
	return nil
}

// Refresh issues new access and refresh tokens based on a valid refresh token.
func (s *authServiceImpl) Refresh(ctx context.Context, refreshTokenString string) (*models.TokenDetails, error) {
	claims, err := s.verifier.VerifyRefreshToken(ctx, refreshTokenString)
	if err != nil {
		s.logger.Warn("Refresh attempt with unusable token", zap.Error(err))
		return nil, err
	}
	refreshUUID := claims.ID
	log := s.logger.With(zap.Stringer("userID", claims.UserID), zap.String("refreshUUID", refreshUUID))

	userID, err := s.tokenRepo.GetUserIDByRefreshUUID(ctx, refreshUUID)
	if err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			// A signed, unexpired token missing from the store was already rotated or revoked.
			return nil, s.revokeOnReuse(ctx, claims.UserID, log)
		}
		log.Error("Error checking refresh token existence", zap.Error(err))
		return nil, fmt.Errorf("error checking refresh token existence: %w", err)
	}
	if userID != claims.UserID {
		log.Error("Refresh token user ID mismatch", zap.Stringer("storedUserID", userID))
		return nil, models.ErrTokenInvalid
	}

	// The delete is the single atomic step: only the caller that removed the
	// key may issue a new pair, a concurrent holder of the same token loses.
	deleted, err := s.tokenRepo.DeleteTokens(ctx, userID, "", refreshUUID)
	if err != nil {
		log.Error("Failed to delete rotated refresh token", zap.Error(err))
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if deleted == 0 {
		return nil, s.revokeOnReuse(ctx, userID, log)
	}
	td, err := s.issueTokens(ctx, userID)
	if err != nil {
		return nil, err
	}
	log.Info("Token refreshed successfully")
	return td, nil
}

// revokeOnReuse drops every token of the user and reports the presented
// refresh token as unknown.
func (s *authServiceImpl) revokeOnReuse(ctx context.Context, userID uuid.UUID, log *zap.Logger) error {
	revoked, err := s.tokenRepo.DeleteTokensByUserID(ctx, userID)
	if err != nil {
		log.Error("Failed to revoke tokens after refresh token reuse", zap.Error(err))
	}
	log.Warn("Refresh token reuse detected, all user tokens revoked", zap.Int64("revoked", revoked))
	return models.ErrTokenNotFound
}

func (s *authServiceImpl) VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error) {
	claims, err := s.verifier.VerifyToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if _, err := s.tokenRepo.GetUserIDByAccessUUID(ctx, claims.ID); err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			s.logger.Debug("Access token not found in store (revoked/logged out)", zap.String("accessUUID", claims.ID))
			return nil, models.ErrTokenInvalid
		}
		return nil, fmt.Errorf("error checking access token existence: %w", err)
	}
	return claims, nil
}

func (s *authServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

// issueTokens signs a new pair and records both ids in the token store.
func (s *authServiceImpl) issueTokens(ctx context.Context, userID uuid.UUID) (*models.TokenDetails, error) {
	td := &models.TokenDetails{
		AccessUUID:  uuid.NewString(),
		RefreshUUID: uuid.NewString(),
	}

	access, atExp, err := authutils.SignToken(s.cfg.JWTSecret, userID, models.TokenTypeAccess, td.AccessUUID, s.cfg.ServiceID, s.cfg.AccessTokenTTL)
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err), zap.Stringer("userID", userID))
		return nil, err
	}
	refresh, rtExp, err := authutils.SignToken(s.cfg.JWTSecret, userID, models.TokenTypeRefresh, td.RefreshUUID, s.cfg.ServiceID, s.cfg.RefreshTokenTTL)
	if err != nil {
		s.logger.Error("Failed to sign refresh token", zap.Error(err), zap.Stringer("userID", userID))
		return nil, err
	}
	td.AccessToken, td.AtExpires = access, atExp.Unix()
	td.RefreshToken, td.RtExpires = refresh, rtExp.Unix()

	if err := s.tokenRepo.SetToken(ctx, userID, td); err != nil {
		s.logger.Error("Failed to save token details", zap.Error(err), zap.Stringer("userID", userID))
		return nil, fmt.Errorf("failed to save token details: %w", err)
	}
	return td, nil
}

// applyPepper applies HMAC-SHA256 keyed with the pepper, which also keeps
// the input under bcrypt's 72-byte limit.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password))
	return h.Sum(nil)
}

func hashPassword(password, pepper string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(applyPepper(password, pepper), bcrypt.DefaultCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash, pepper string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), applyPepper(password, pepper)) == nil
}
