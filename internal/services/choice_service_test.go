package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/quizapi/internal/cache"
	"github.com/charlesng35/quizapi/internal/models"
	"github.com/charlesng35/quizapi/internal/repository"
)

// seedChoiceScenario builds quiz 1 whose question 2 owns choice 3.
func seedChoiceScenario(t *testing.T, env *testEnv) Actor {
	t.Helper()
	ctx := context.Background()
	author := env.seedUser(t, "author", models.RoleUser)

	quiz, err := env.quizzes.Create(ctx, author, CreateQuizInput{Title: "Capitals"})
	require.NoError(t, err)
	first, err := env.questions.Create(ctx, author, quiz.ID, CreateQuestionInput{
		Text:    "France?",
		Choices: []CreateChoiceInput{{Text: "Paris", IsCorrect: true}, {Text: "Lyon"}},
	})
	require.NoError(t, err)
	second, err := env.questions.Create(ctx, author, quiz.ID, CreateQuestionInput{Text: "Spain?", Position: 2})
	require.NoError(t, err)
	choice, err := env.choices.Create(ctx, author, quiz.ID, second.ID, CreateChoiceInput{Text: "Barcelona"})
	require.NoError(t, err)

	require.EqualValues(t, 1, quiz.ID)
	require.EqualValues(t, 1, first.ID)
	require.EqualValues(t, 2, second.ID)
	require.EqualValues(t, 3, choice.ID)
	return author
}

func TestChoiceMutationInvalidatesEveryAncestorTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := seedChoiceScenario(t, env)

	// Warm every read that depends on choice 3.
	choices, err := env.choices.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, choices, 1)
	_, err = env.choices.Get(ctx, 1, 2, 3)
	require.NoError(t, err)
	_, err = env.questions.Get(ctx, 1, 2, true)
	require.NoError(t, err)
	_, err = env.quizzes.Get(ctx, 1, repository.QuizInclude{Choices: true})
	require.NoError(t, err)

	for key, tag := range map[string]string{"marker:choice": "Choice:3", "marker:question": "Question:2", "marker:quiz": "Quiz:1"} {
		require.NoError(t, cache.Set(ctx, env.cache, key, "warm", cache.Options{Tags: []string{tag}}))
	}

	text := "Madrid"
	correct := true
	_, err = env.choices.Update(ctx, author, 1, 2, 3, UpdateChoiceInput{Text: &text, IsCorrect: &correct})
	require.NoError(t, err)

	for _, key := range []string{"marker:choice", "marker:question", "marker:quiz", choiceKey(1, 2, 3), questionKey(1, 2, true), quizKey(1, repository.QuizInclude{Choices: true})} {
		_, found, err := cache.Get[any](ctx, env.cache, key)
		require.NoError(t, err)
		require.False(t, found, key)
	}

	// The choice list was re-seeded with the fresh value.
	reseeded, found, err := cache.Get[[]models.Choice](ctx, env.cache, choicesKey(1, 2))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Madrid", reseeded[0].Text)

	choices, err = env.choices.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, "Madrid", choices[0].Text)
	require.True(t, choices[0].IsCorrect)

	quiz, err := env.quizzes.Get(ctx, 1, repository.QuizInclude{Choices: true})
	require.NoError(t, err)
	require.Equal(t, "Madrid", quiz.Questions[1].Choices[0].Text)

	// The sibling question keeps its own choices.
	require.Len(t, quiz.Questions[0].Choices, 2)
}

func TestChoiceListCarriesMemberTags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedChoiceScenario(t, env)

	_, err := env.choices.List(ctx, 1, 2)
	require.NoError(t, err)
	_, found, err := cache.Get[[]models.Choice](ctx, env.cache, choicesKey(1, 2))
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, env.cache.RemoveByTag(ctx, "Choice:3"))
	_, found, err = cache.Get[[]models.Choice](ctx, env.cache, choicesKey(1, 2))
	require.NoError(t, err)
	require.False(t, found)

	// The sibling question's list does not carry choice 3.
	_, err = env.choices.List(ctx, 1, 1)
	require.NoError(t, err)
	require.NoError(t, env.cache.RemoveByTag(ctx, "Choice:3"))
	_, found, err = cache.Get[[]models.Choice](ctx, env.cache, choicesKey(1, 1))
	require.NoError(t, err)
	require.True(t, found)
}

func TestChoiceReseedCarriesMemberTags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := seedChoiceScenario(t, env)

	text := "Madrid"
	_, err := env.choices.Update(ctx, author, 1, 2, 3, UpdateChoiceInput{Text: &text})
	require.NoError(t, err)
	_, found, err := cache.Get[[]models.Choice](ctx, env.cache, choicesKey(1, 2))
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, env.cache.RemoveByTag(ctx, "Choice:3"))
	_, found, err = cache.Get[[]models.Choice](ctx, env.cache, choicesKey(1, 2))
	require.NoError(t, err)
	require.False(t, found)
}

func TestChoiceDeleteAndMissingParents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := seedChoiceScenario(t, env)

	_, err := env.choices.List(ctx, 1, 99)
	require.ErrorIs(t, err, ErrQuestionNotFound)
	_, err = env.choices.List(ctx, 2, 2)
	require.ErrorIs(t, err, ErrQuestionNotFound)
	_, err = env.choices.Get(ctx, 1, 2, 1)
	require.ErrorIs(t, err, ErrChoiceNotFound)

	require.NoError(t, env.choices.Delete(ctx, author, 1, 2, 3))
	require.ErrorIs(t, env.choices.Delete(ctx, author, 1, 2, 3), ErrChoiceNotFound)

	choices, err := env.choices.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Empty(t, choices)

	_, err = env.choices.Get(ctx, 1, 2, 3)
	require.ErrorIs(t, err, ErrChoiceNotFound)
}
