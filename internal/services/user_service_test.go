package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quizapi/internal/models"
	apperrors "github.com/charlesng35/quizapi/pkg/errors"
)

func TestUserRegisterAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, RegisterInput{Username: "alice", Email: "Alice@Example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, user.Role)
	require.Equal(t, "alice@example.com", user.Email)
	require.NotEqual(t, "s3cret-pass", user.Password)

	_, err = env.users.Register(ctx, RegisterInput{Username: "ALICE", Email: "other@example.com", Password: "s3cret-pass"})
	require.ErrorIs(t, err, ErrUserExists)
	_, err = env.users.Register(ctx, RegisterInput{Username: "bob", Email: "alice@example.com", Password: "s3cret-pass"})
	require.ErrorIs(t, err, ErrUserExists)
	_, err = env.users.Register(ctx, RegisterInput{Username: "carol", Email: "carol@example.com", Password: "short"})
	require.Error(t, err)

	authed, err := env.users.Authenticate(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)

	_, err = env.users.Authenticate(ctx, "alice", "wrong-pass")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = env.users.Authenticate(ctx, "nobody", "wrong-pass")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	profile, err := env.users.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", profile.Username)
	require.Empty(t, profile.Password)

	_, err = env.users.Get(ctx, 404)
	require.ErrorIs(t, err, ErrUserNotFound)
}
