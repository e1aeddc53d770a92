package auth

import (
	"context"
	"time"

	"github.com/charlesng35/quizapi/internal/models"
	"github.com/charlesng35/quizapi/internal/repository"
)

// TokenStore persists refresh tokens and resolves the users they belong to.
type TokenStore interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	MarkRefreshTokenUsed(ctx context.Context, token string) error
	InvalidateRefreshToken(ctx context.Context, token string, userID uint) error
	InvalidateUserRefreshTokens(ctx context.Context, userID uint) (int64, error)
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)

	// InTransaction runs fn against a store bound to a single transaction.
	InTransaction(ctx context.Context, fn func(tx TokenStore) error) error
}

type repositoryTokenStore struct {
	*repository.Store
}

// NewTokenStore adapts the gorm repository to the TokenStore interface.
func NewTokenStore(store *repository.Store) TokenStore {
	return repositoryTokenStore{Store: store}
}

func (r repositoryTokenStore) InTransaction(ctx context.Context, fn func(tx TokenStore) error) error {
	return r.Store.Transaction(ctx, func(tx *repository.Store) error {
		return fn(repositoryTokenStore{Store: tx})
	})
}
