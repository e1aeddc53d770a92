package services

import (
	"context"
	"errors"
	"strings"

	"github.com/charlesng35/quizapi/internal/cache"
	"github.com/charlesng35/quizapi/internal/models"
	"github.com/charlesng35/quizapi/internal/repository"
	apperrors "github.com/charlesng35/quizapi/pkg/errors"
)

// CreateQuizInput captures the fields accepted when creating a quiz. Questions and their
// choices may be supplied inline.
type CreateQuizInput struct {
	Title       string
	Description string
	ImageID     *uint
	Questions   []CreateQuestionInput
}

// UpdateQuizInput describes mutable quiz fields. A nil pointer indicates no change.
type UpdateQuizInput struct {
	Title       *string
	Description *string
	ImageID     *uint
	ClearImage  bool
}

// QuizService serves quizzes through the cache and keeps it coherent on writes.
type QuizService struct {
	store  *repository.Store
	cache  cache.Facade
	policy writePolicy
}

// NewQuizService constructs a QuizService. output may be nil when response caching is disabled.
func NewQuizService(store *repository.Store, c cache.Facade, output Evictor) (*QuizService, error) {
	if store == nil {
		return nil, errors.New("quiz service: store is required")
	}
	if c == nil {
		return nil, errors.New("quiz service: cache is required")
	}
	return &QuizService{store: store, cache: c, policy: newWritePolicy(c, output, "quizzes")}, nil
}

// List returns every quiz without associations.
func (s *QuizService) List(ctx context.Context) ([]models.Quiz, error) {
	quizzes, err := cache.GetOrCreate(ctx, s.cache, quizzesKey(), s.store.ListQuizzes, cache.Options{
		Tags: []string{TagQuizzes},
	})
	if err != nil {
		return nil, mapRepositoryError(err, ErrQuizNotFound)
	}
	if quizzes == nil {
		quizzes = []models.Quiz{}
	}
	return quizzes, nil
}

// ListByAuthor returns the quizzes written by authorID.
func (s *QuizService) ListByAuthor(ctx context.Context, authorID uint) ([]models.Quiz, error) {
	quizzes, err := cache.GetOrCreate(ctx, s.cache, authorQuizzesKey(authorID), func(ctx context.Context) ([]models.Quiz, error) {
		return s.store.ListQuizzesByAuthor(ctx, authorID)
	}, cache.Options{Tags: []string{TagQuizzes, userTag(authorID)}})
	if err != nil {
		return nil, mapRepositoryError(err, ErrQuizNotFound)
	}
	if quizzes == nil {
		quizzes = []models.Quiz{}
	}
	return quizzes, nil
}

// Get returns a quiz shaped by include. Absent quizzes are cached as such.
func (s *QuizService) Get(ctx context.Context, id uint, include repository.QuizInclude) (*models.Quiz, error) {
	quiz, err := cache.GetOrCreate(ctx, s.cache, quizKey(id, include), func(ctx context.Context) (*models.Quiz, error) {
		return absentAsNil(s.store.GetQuiz(ctx, id, include))
	}, cache.Options{Tags: []string{quizTag(id)}})
	if err != nil {
		return nil, mapRepositoryError(err, ErrQuizNotFound)
	}
	if quiz == nil {
		return nil, ErrQuizNotFound
	}
	return quiz, nil
}

// Create persists a quiz authored by the actor.
func (s *QuizService) Create(ctx context.Context, actor Actor, input CreateQuizInput) (*models.Quiz, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("quiz title is required")
	}
	if err := ensureImage(ctx, s.store, input.ImageID); err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		AuthorID:    actor.UserID,
		ImageID:     input.ImageID,
	}
	for i, q := range input.Questions {
		question, err := buildQuestion(ctx, s.store, q, i+1)
		if err != nil {
			return nil, err
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return nil, mapRepositoryError(err, ErrQuizNotFound)
	}

	tags := []string{quizTag(quiz.ID), TagQuizzes, userTag(quiz.AuthorID)}
	if err := s.policy.apply(ctx, tags, s.reseed(quiz), OutputQuizzes); err != nil {
		return nil, err
	}
	return quiz, nil
}

// Update changes a quiz owned by the actor (or any quiz for administrators).
func (s *QuizService) Update(ctx context.Context, actor Actor, id uint, input UpdateQuizInput) (*models.Quiz, error) {
	quiz, err := ownedQuiz(ctx, s.store, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("quiz title is required")
		}
		quiz.Title = title
	}
	if input.Description != nil {
		quiz.Description = strings.TrimSpace(*input.Description)
	}
	switch {
	case input.ClearImage:
		quiz.ImageID = nil
	case input.ImageID != nil:
		if err := ensureImage(ctx, s.store, input.ImageID); err != nil {
			return nil, err
		}
		quiz.ImageID = input.ImageID
	}

	if err := s.store.UpdateQuiz(ctx, quiz); err != nil {
		return nil, mapRepositoryError(err, ErrQuizNotFound)
	}

	updated, err := s.store.GetQuiz(ctx, id, repository.QuizInclude{})
	if err != nil {
		return nil, mapRepositoryError(err, ErrQuizNotFound)
	}

	tags := []string{quizTag(id), TagQuizzes, userTag(updated.AuthorID)}
	if err := s.policy.apply(ctx, tags, s.reseed(updated), OutputQuizzes); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a quiz with its questions, choices and likes.
func (s *QuizService) Delete(ctx context.Context, actor Actor, id uint) error {
	quiz, err := ownedQuiz(ctx, s.store, actor, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteQuiz(ctx, id); err != nil {
		return mapRepositoryError(err, ErrQuizNotFound)
	}

	tags := []string{quizTag(id), TagQuizzes, userTag(quiz.AuthorID)}
	return s.policy.apply(ctx, tags, nil, OutputQuizzes)
}

// reseed stores the association-free shape of quiz under its base key.
func (s *QuizService) reseed(quiz *models.Quiz) func(context.Context) error {
	base := *quiz
	base.Questions = nil
	return func(ctx context.Context) error {
		return cache.Set(ctx, s.cache, quizKey(base.ID, repository.QuizInclude{}), &base, cache.Options{
			Tags: []string{quizTag(base.ID)},
		})
	}
}

// ownedQuiz loads a quiz straight from the store and checks the actor may change it.
func ownedQuiz(ctx context.Context, store *repository.Store, actor Actor, id uint) (*models.Quiz, error) {
	quiz, err := store.GetQuiz(ctx, id, repository.QuizInclude{})
	if err != nil {
		return nil, mapRepositoryError(err, ErrQuizNotFound)
	}
	if !actor.CanManage(quiz.AuthorID) {
		return nil, forbidden()
	}
	return quiz, nil
}

func ensureImage(ctx context.Context, store *repository.Store, id *uint) error {
	if id == nil {
		return nil
	}
	_, err := store.GetImage(ctx, *id)
	return mapRepositoryError(err, ErrImageNotFound)
}

// absentAsNil lets loaders cache a confirmed absence instead of failing.
func absentAsNil[T any](value *T, err error) (*T, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return value, err
}
