package repository

import (
	"context"
	"time"

	"github.com/charlesng35/quizapi/internal/models"
)

// CreateRefreshToken persists a freshly issued refresh token.
func (s *Store) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return translate(s.conn(ctx).Create(token).Error)
}

// GetRefreshToken loads a refresh token by its opaque value.
func (s *Store) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var record models.RefreshToken
	if err := s.conn(ctx).Where("token = ?", token).First(&record).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// MarkRefreshTokenUsed flips the used flag of an unused, valid token. A token that was already
// consumed (or invalidated) in the meantime yields ErrNoRowsAffected.
func (s *Store) MarkRefreshTokenUsed(ctx context.Context, token string) error {
	result := s.conn(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND used = ? AND invalidated = ?", token, false, false).
		Update("used", true)
	return affected(result)
}

// InvalidateRefreshToken revokes a single token owned by the user.
func (s *Store) InvalidateRefreshToken(ctx context.Context, token string, userID uint) error {
	result := s.conn(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND user_id = ? AND invalidated = ?", token, userID, false).
		Update("invalidated", true)
	return affected(result)
}

// InvalidateUserRefreshTokens revokes every active token of a user and returns how many changed.
func (s *Store) InvalidateUserRefreshTokens(ctx context.Context, userID uint) (int64, error) {
	result := s.conn(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND invalidated = ? AND used = ?", userID, false, false).
		Update("invalidated", true)
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteExpiredRefreshTokens removes tokens whose expiry lies before the cutoff.
func (s *Store) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	result := s.conn(ctx).Where("expires_at < ?", before).Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}
