package services

import (
	"context"
	"errors"
	"strings"

	"github.com/charlesng35/quizapi/internal/cache"
	"github.com/charlesng35/quizapi/internal/models"
	"github.com/charlesng35/quizapi/internal/repository"
	"github.com/charlesng35/quizapi/pkg/crypto"
	apperrors "github.com/charlesng35/quizapi/pkg/errors"
)

const minPasswordLength = 8

// RegisterInput describes the fields accepted when creating an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UserService manages accounts and credential checks.
type UserService struct {
	store  *repository.Store
	cache  cache.Facade
	policy writePolicy
}

// NewUserService constructs a UserService instance.
func NewUserService(store *repository.Store, c cache.Facade) (*UserService, error) {
	if store == nil {
		return nil, errors.New("user service: store is required")
	}
	if c == nil {
		return nil, errors.New("user service: cache is required")
	}
	return &UserService{store: store, cache: c, policy: newWritePolicy(c, nil, "users")}, nil
}

// Register provisions a new user with a hashed password and the default role.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" {
		return nil, apperrors.NewBadRequest("username and email are required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, mapRepositoryError(err, ErrUserNotFound)
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		Role:     models.RoleUser,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, mapRepositoryError(err, ErrUserNotFound)
	}

	if err := s.policy.apply(ctx, []string{userTag(user.ID)}, nil); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			crypto.RejectPassword(password)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, mapRepositoryError(err, ErrUserNotFound)
	}
	if !crypto.VerifyPassword(user.Password, password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

// Get returns the public profile of a user. The password hash is never cached.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := cache.GetOrCreate(ctx, s.cache, userKey(id), func(ctx context.Context) (*models.User, error) {
		return absentAsNil(s.store.GetUserByID(ctx, id))
	}, cache.Options{Tags: []string{userTag(id)}})
	if err != nil {
		return nil, mapRepositoryError(err, ErrUserNotFound)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
