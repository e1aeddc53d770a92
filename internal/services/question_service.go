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

// CreateQuestionInput captures a new question and optional inline choices.
type CreateQuestionInput struct {
	Text     string
	Position int
	ImageID  *uint
	Choices  []CreateChoiceInput
}

// UpdateQuestionInput describes mutable question fields. A nil pointer indicates no change.
type UpdateQuestionInput struct {
	Text       *string
	Position   *int
	ImageID    *uint
	ClearImage bool
}

// QuestionService manages the questions of a quiz.
type QuestionService struct {
	store  *repository.Store
	cache  cache.Facade
	policy writePolicy
}

// NewQuestionService constructs a QuestionService.
func NewQuestionService(store *repository.Store, c cache.Facade, output Evictor) (*QuestionService, error) {
	if store == nil {
		return nil, errors.New("question service: store is required")
	}
	if c == nil {
		return nil, errors.New("question service: cache is required")
	}
	return &QuestionService{store: store, cache: c, policy: newWritePolicy(c, output, "questions")}, nil
}

// List returns the questions of a quiz in display order.
func (s *QuestionService) List(ctx context.Context, quizID uint) ([]models.Question, error) {
	questions, err := cache.GetOrCreate(ctx, s.cache, questionsKey(quizID), func(ctx context.Context) (*[]models.Question, error) {
		if _, err := s.store.GetQuiz(ctx, quizID, repository.QuizInclude{}); err != nil {
			return nil, ignoreNotFound(err)
		}
		list, err := s.store.ListQuestions(ctx, quizID)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []models.Question{}
		}
		return &list, nil
	}, cache.Options{Tags: []string{quizTag(quizID)}})
	if err != nil {
		return nil, mapRepositoryError(err, ErrQuizNotFound)
	}
	if questions == nil {
		return nil, ErrQuizNotFound
	}
	return *questions, nil
}

// Get returns a question of the quiz, optionally with its choices.
func (s *QuestionService) Get(ctx context.Context, quizID, id uint, withChoices bool) (*models.Question, error) {
	question, err := cache.GetOrCreate(ctx, s.cache, questionKey(quizID, id, withChoices), func(ctx context.Context) (*models.Question, error) {
		return absentAsNil(s.store.GetQuestion(ctx, quizID, id, withChoices))
	}, cache.Options{Tags: []string{questionTag(id), quizTag(quizID)}})
	if err != nil {
		return nil, mapRepositoryError(err, ErrQuestionNotFound)
	}
	if question == nil {
		return nil, ErrQuestionNotFound
	}
	return question, nil
}

// Create appends a question to a quiz owned by the actor.
func (s *QuestionService) Create(ctx context.Context, actor Actor, quizID uint, input CreateQuestionInput) (*models.Question, error) {
	if _, err := ownedQuiz(ctx, s.store, actor, quizID); err != nil {
		return nil, err
	}

	question, err := buildQuestion(ctx, s.store, input, 0)
	if err != nil {
		return nil, err
	}
	question.QuizID = quizID

	if err := s.store.CreateQuestion(ctx, &question); err != nil {
		return nil, mapRepositoryError(err, ErrQuestionNotFound)
	}

	tags := []string{questionTag(question.ID), quizTag(quizID), TagQuizzes}
	if err := s.policy.apply(ctx, tags, s.reseed(&question), OutputQuizzes); err != nil {
		return nil, err
	}
	return &question, nil
}

// Update changes a question of a quiz owned by the actor.
func (s *QuestionService) Update(ctx context.Context, actor Actor, quizID, id uint, input UpdateQuestionInput) (*models.Question, error) {
	if _, err := ownedQuiz(ctx, s.store, actor, quizID); err != nil {
		return nil, err
	}
	question, err := s.store.GetQuestion(ctx, quizID, id, false)
	if err != nil {
		return nil, mapRepositoryError(err, ErrQuestionNotFound)
	}

	if input.Text != nil {
		text := strings.TrimSpace(*input.Text)
		if text == "" {
			return nil, apperrors.NewBadRequest("question text is required")
		}
		question.Text = text
	}
	if input.Position != nil {
		question.Position = *input.Position
	}
	switch {
	case input.ClearImage:
		question.ImageID = nil
	case input.ImageID != nil:
		if err := ensureImage(ctx, s.store, input.ImageID); err != nil {
			return nil, err
		}
		question.ImageID = input.ImageID
	}

	if err := s.store.UpdateQuestion(ctx, question); err != nil {
		return nil, mapRepositoryError(err, ErrQuestionNotFound)
	}
	updated, err := s.store.GetQuestion(ctx, quizID, id, false)
	if err != nil {
		return nil, mapRepositoryError(err, ErrQuestionNotFound)
	}

	tags := []string{questionTag(id), quizTag(quizID), TagQuizzes}
	if err := s.policy.apply(ctx, tags, s.reseed(updated), OutputQuizzes); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a question and its choices.
func (s *QuestionService) Delete(ctx context.Context, actor Actor, quizID, id uint) error {
	if _, err := ownedQuiz(ctx, s.store, actor, quizID); err != nil {
		return err
	}
	if _, err := s.store.GetQuestion(ctx, quizID, id, false); err != nil {
		return mapRepositoryError(err, ErrQuestionNotFound)
	}

	if err := s.store.DeleteQuestion(ctx, quizID, id); err != nil {
		return mapRepositoryError(err, ErrQuestionNotFound)
	}

	tags := []string{questionTag(id), quizTag(quizID), TagQuizzes}
	return s.policy.apply(ctx, tags, nil, OutputQuizzes)
}

func (s *QuestionService) reseed(question *models.Question) func(context.Context) error {
	base := *question
	base.Choices = nil
	return func(ctx context.Context) error {
		return cache.Set(ctx, s.cache, questionKey(base.QuizID, base.ID, false), &base, cache.Options{
			Tags: []string{questionTag(base.ID), quizTag(base.QuizID)},
		})
	}
}

// buildQuestion validates input and converts it to a model. A zero position falls back to
// defaultPosition.
func buildQuestion(ctx context.Context, store *repository.Store, input CreateQuestionInput, defaultPosition int) (models.Question, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return models.Question{}, apperrors.NewBadRequest("question text is required")
	}
	if err := ensureImage(ctx, store, input.ImageID); err != nil {
		return models.Question{}, err
	}

	question := models.Question{
		Text:     text,
		Position: input.Position,
		ImageID:  input.ImageID,
	}
	if question.Position == 0 {
		question.Position = defaultPosition
	}
	for _, c := range input.Choices {
		choice, err := buildChoice(c)
		if err != nil {
			return models.Question{}, err
		}
		question.Choices = append(question.Choices, choice)
	}
	return question, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}
