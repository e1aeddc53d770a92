package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/quizapi/internal/models"
	"github.com/charlesng35/quizapi/internal/repository"
	"github.com/charlesng35/quizapi/pkg/crypto"
	"github.com/charlesng35/quizapi/pkg/logger"
	"github.com/charlesng35/quizapi/pkg/metrics"
)

// DefaultRefreshTokenBytes is the amount of randomness behind a refresh token.
const DefaultRefreshTokenBytes = 48

var (
	// ErrInvalidToken indicates the access token could not be parsed or its signature is bad.
	ErrInvalidToken = errors.New("token: invalid access token")
	// ErrTokenNotExpired rejects a refresh attempted while the access token is still valid.
	ErrTokenNotExpired = errors.New("token: access token has not expired")
	// ErrRefreshTokenNotFound indicates no refresh token matches the supplied value.
	ErrRefreshTokenNotFound = errors.New("token: refresh token not found")
	// ErrRefreshTokenExpired signals that the refresh token reached its expiry.
	ErrRefreshTokenExpired = errors.New("token: refresh token expired")
	// ErrRefreshTokenInvalidated marks a refresh token revoked by logout.
	ErrRefreshTokenInvalidated = errors.New("token: refresh token invalidated")
	// ErrRefreshTokenAlreadyUsed marks a refresh token that was already exchanged.
	ErrRefreshTokenAlreadyUsed = errors.New("token: refresh token already used")
	// ErrTokenMismatch indicates the refresh token was not issued with the access token.
	ErrTokenMismatch = errors.New("token: refresh token does not match access token")
	// ErrUserNotFound indicates the token owner no longer exists.
	ErrUserNotFound = errors.New("token: user not found")
)

var rejectionReasons = []struct {
	err    error
	reason string
}{
	{ErrInvalidToken, "invalid_token"},
	{ErrTokenNotExpired, "token_not_expired"},
	{ErrRefreshTokenNotFound, "refresh_token_not_found"},
	{ErrRefreshTokenExpired, "refresh_token_expired"},
	{ErrRefreshTokenInvalidated, "refresh_token_invalidated"},
	{ErrRefreshTokenAlreadyUsed, "refresh_token_already_used"},
	{ErrTokenMismatch, "token_mismatch"},
	{ErrUserNotFound, "user_not_found"},
}

// RejectionReason returns a stable snake_case reason for a refresh rejection. The second
// value is false for errors that are not refresh rejections.
func RejectionReason(err error) (string, bool) {
	for _, candidate := range rejectionReasons {
		if errors.Is(err, candidate.err) {
			return candidate.reason, true
		}
	}
	return "", false
}

// TokenPair is the credential set handed to clients after login or refresh.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// TokenServiceConfig describes tunable behaviour for the TokenService.
type TokenServiceConfig struct {
	// RefreshTokenTTL overrides the default lifetime of one calendar month.
	RefreshTokenTTL time.Duration
	RefreshLength   int
	Clock           func() time.Time
	Logger          *zap.Logger
}

// TokenService issues access/refresh pairs and rotates them.
type TokenService struct {
	store      TokenStore
	jwt        *JWTService
	refreshTTL time.Duration
	tokenLen   int
	now        func() time.Time
	log        *zap.Logger
}

// NewTokenService constructs a TokenService.
func NewTokenService(store TokenStore, jwtService *JWTService, cfg TokenServiceConfig) (*TokenService, error) {
	if store == nil {
		return nil, errors.New("token service: store is required")
	}
	if jwtService == nil {
		return nil, errors.New("token service: jwt service is required")
	}

	tokenLen := cfg.RefreshLength
	if tokenLen <= 0 {
		tokenLen = DefaultRefreshTokenBytes
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	log := cfg.Logger
	if log == nil {
		log = logger.WithModule("auth")
	}

	return &TokenService{
		store:      store,
		jwt:        jwtService,
		refreshTTL: cfg.RefreshTokenTTL,
		tokenLen:   tokenLen,
		now:        now,
		log:        log,
	}, nil
}

// IssueTokenPair signs an access token for the user and persists its paired refresh token.
// Previously issued tokens of the user remain active.
func (s *TokenService) IssueTokenPair(ctx context.Context, user *models.User) (TokenPair, error) {
	return s.issue(ctx, s.store, user)
}

// Refresh exchanges an expired access token and its paired refresh token for a new pair.
// The old refresh token is consumed in the same transaction that persists the new one.
func (s *TokenService) Refresh(ctx context.Context, accessToken, refreshToken string) (TokenPair, error) {
	pair, err := s.refresh(ctx, accessToken, refreshToken)
	if reason, ok := RejectionReason(err); ok {
		metrics.TokenRefreshes.WithLabelValues(reason).Inc()
	} else if err == nil {
		metrics.TokenRefreshes.WithLabelValues("success").Inc()
	} else {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
	}
	return pair, err
}

func (s *TokenService) refresh(ctx context.Context, accessToken, refreshToken string) (TokenPair, error) {
	if err := ctxErr(ctx); err != nil {
		return TokenPair{}, err
	}

	claims, err := s.jwt.ParseExpired(strings.TrimSpace(accessToken))
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return TokenPair{}, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}

	now := s.now()
	if claims.ExpiresAt.Time.After(now) {
		return TokenPair{}, ErrTokenNotExpired
	}

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, ErrRefreshTokenNotFound
	}

	stored, err := s.store.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrRefreshTokenNotFound
		}
		return TokenPair{}, fmt.Errorf("token service: load refresh token: %w", err)
	}

	switch {
	case now.After(stored.ExpiresAt):
		return TokenPair{}, ErrRefreshTokenExpired
	case stored.Invalidated:
		return TokenPair{}, ErrRefreshTokenInvalidated
	case stored.Used:
		return TokenPair{}, ErrRefreshTokenAlreadyUsed
	case stored.JwtID != claims.ID:
		return TokenPair{}, ErrTokenMismatch
	}

	var pair TokenPair
	err = s.store.InTransaction(ctx, func(tx TokenStore) error {
		if err := tx.MarkRefreshTokenUsed(ctx, stored.Token); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return ErrRefreshTokenAlreadyUsed
			}
			return fmt.Errorf("token service: mark refresh token used: %w", err)
		}

		user, err := tx.GetUserByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("token service: load user: %w", err)
		}

		pair, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return TokenPair{}, err
	}

	s.log.Debug("refresh token rotated", zap.Uint("user_id", claims.UserID))
	return pair, nil
}

// Revoke invalidates a single refresh token owned by the user.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string, userID uint) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return ErrRefreshTokenNotFound
	}
	if err := s.store.InvalidateRefreshToken(ctx, refreshToken, userID); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return ErrRefreshTokenNotFound
		}
		return fmt.Errorf("token service: revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAll invalidates every active refresh token of the user and returns how many changed.
func (s *TokenService) RevokeAll(ctx context.Context, userID uint) (int64, error) {
	count, err := s.store.InvalidateUserRefreshTokens(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("token service: revoke refresh tokens: %w", err)
	}
	return count, nil
}

// CleanupExpired removes refresh tokens past their expiry.
func (s *TokenService) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.store.DeleteExpiredRefreshTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("token service: cleanup refresh tokens: %w", err)
	}
	return count, nil
}

func (s *TokenService) issue(ctx context.Context, store TokenStore, user *models.User) (TokenPair, error) {
	if user == nil || user.ID == 0 {
		return TokenPair{}, errors.New("token service: user is required")
	}
	if err := ctxErr(ctx); err != nil {
		return TokenPair{}, err
	}

	access, claims, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		return TokenPair{}, err
	}

	value, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, fmt.Errorf("token service: generate refresh token: %w", err)
	}

	now := s.now()
	expiresAt := now.AddDate(0, 1, 0)
	if s.refreshTTL > 0 {
		expiresAt = now.Add(s.refreshTTL)
	}

	record := &models.RefreshToken{
		Token:     value,
		JwtID:     claims.ID,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := store.CreateRefreshToken(ctx, record); err != nil {
		return TokenPair{}, fmt.Errorf("token service: persist refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:           access,
		RefreshToken:          value,
		AccessTokenExpiresAt:  claims.ExpiresAt.Time,
		RefreshTokenExpiresAt: expiresAt,
	}, nil
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
