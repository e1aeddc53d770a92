package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quizapi/internal/models"
)

func TestLikeCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.seedUser(t, "author", models.RoleUser)
	fan := env.seedUser(t, "fan", models.RoleUser)

	quiz, err := env.quizzes.Create(ctx, author, CreateQuizInput{Title: "Birds"})
	require.NoError(t, err)

	count, err := env.likes.Count(ctx, quiz.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	count, err = env.likes.Like(ctx, fan, quiz.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	_, err = env.likes.Like(ctx, fan, quiz.ID)
	require.ErrorIs(t, err, ErrAlreadyLiked)

	count, err = env.likes.Like(ctx, author, quiz.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	count, err = env.likes.Count(ctx, quiz.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	count, err = env.likes.Unlike(ctx, fan, quiz.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	_, err = env.likes.Unlike(ctx, fan, quiz.ID)
	require.ErrorIs(t, err, ErrNotLiked)

	_, err = env.likes.Count(ctx, 404)
	require.ErrorIs(t, err, ErrQuizNotFound)
	_, err = env.likes.Like(ctx, fan, 404)
	require.ErrorIs(t, err, ErrQuizNotFound)
}
