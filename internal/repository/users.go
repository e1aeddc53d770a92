package repository

import (
	"context"
	"strings"

	"github.com/charlesng35/quizapi/internal/models"
)

// CreateUser inserts a new account. Username or email collisions return ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.conn(ctx).Create(user).Error)
}

// GetUserByID loads a user by primary key.
func (s *Store) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByUsername loads a user by login name. Matching is case-insensitive.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.conn(ctx).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}
