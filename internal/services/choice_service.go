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

// CreateChoiceInput captures a new answer option.
type CreateChoiceInput struct {
	Text      string
	IsCorrect bool
}

// UpdateChoiceInput describes mutable choice fields. A nil pointer indicates no change.
type UpdateChoiceInput struct {
	Text      *string
	IsCorrect *bool
}

// ChoiceService manages the answer options of a question.
type ChoiceService struct {
	store  *repository.Store
	cache  cache.Facade
	policy writePolicy
}

// NewChoiceService constructs a ChoiceService.
func NewChoiceService(store *repository.Store, c cache.Facade, output Evictor) (*ChoiceService, error) {
	if store == nil {
		return nil, errors.New("choice service: store is required")
	}
	if c == nil {
		return nil, errors.New("choice service: cache is required")
	}
	return &ChoiceService{store: store, cache: c, policy: newWritePolicy(c, output, "choices")}, nil
}

// List returns the choices of a question of a quiz.
func (s *ChoiceService) List(ctx context.Context, quizID, questionID uint) ([]models.Choice, error) {
	choices, err := cache.GetOrCreateTagged(ctx, s.cache, choicesKey(quizID, questionID), func(ctx context.Context) (*[]models.Choice, error) {
		return s.loadChoices(ctx, quizID, questionID)
	}, memberTags, s.listOptions(quizID, questionID, nil))
	if err != nil {
		return nil, mapRepositoryError(err, ErrQuestionNotFound)
	}
	if choices == nil {
		return nil, ErrQuestionNotFound
	}
	return *choices, nil
}

// Get returns a single choice.
func (s *ChoiceService) Get(ctx context.Context, quizID, questionID, id uint) (*models.Choice, error) {
	choice, err := cache.GetOrCreate(ctx, s.cache, choiceKey(quizID, questionID, id), func(ctx context.Context) (*models.Choice, error) {
		if _, err := s.store.GetQuestion(ctx, quizID, questionID, false); err != nil {
			return nil, ignoreNotFound(err)
		}
		return absentAsNil(s.store.GetChoice(ctx, questionID, id))
	}, cache.Options{Tags: []string{choiceTag(id), questionTag(questionID), quizTag(quizID)}})
	if err != nil {
		return nil, mapRepositoryError(err, ErrChoiceNotFound)
	}
	if choice == nil {
		return nil, ErrChoiceNotFound
	}
	return choice, nil
}

// Create adds a choice to a question of a quiz owned by the actor.
func (s *ChoiceService) Create(ctx context.Context, actor Actor, quizID, questionID uint, input CreateChoiceInput) (*models.Choice, error) {
	if err := s.authorize(ctx, actor, quizID, questionID); err != nil {
		return nil, err
	}

	choice, err := buildChoice(input)
	if err != nil {
		return nil, err
	}
	choice.QuestionID = questionID

	if err := s.store.CreateChoice(ctx, &choice); err != nil {
		return nil, mapRepositoryError(err, ErrChoiceNotFound)
	}
	if err := s.afterWrite(ctx, quizID, questionID, choice.ID); err != nil {
		return nil, err
	}
	return &choice, nil
}

// Update changes a choice.
func (s *ChoiceService) Update(ctx context.Context, actor Actor, quizID, questionID, id uint, input UpdateChoiceInput) (*models.Choice, error) {
	if err := s.authorize(ctx, actor, quizID, questionID); err != nil {
		return nil, err
	}
	choice, err := s.store.GetChoice(ctx, questionID, id)
	if err != nil {
		return nil, mapRepositoryError(err, ErrChoiceNotFound)
	}

	if input.Text != nil {
		text := strings.TrimSpace(*input.Text)
		if text == "" {
			return nil, apperrors.NewBadRequest("choice text is required")
		}
		choice.Text = text
	}
	if input.IsCorrect != nil {
		choice.IsCorrect = *input.IsCorrect
	}

	if err := s.store.UpdateChoice(ctx, choice); err != nil {
		return nil, mapRepositoryError(err, ErrChoiceNotFound)
	}
	if err := s.afterWrite(ctx, quizID, questionID, id); err != nil {
		return nil, err
	}

	updated, err := s.store.GetChoice(ctx, questionID, id)
	if err != nil {
		return nil, mapRepositoryError(err, ErrChoiceNotFound)
	}
	return updated, nil
}

// Delete removes a choice.
func (s *ChoiceService) Delete(ctx context.Context, actor Actor, quizID, questionID, id uint) error {
	if err := s.authorize(ctx, actor, quizID, questionID); err != nil {
		return err
	}
	if err := s.store.DeleteChoice(ctx, questionID, id); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			if _, getErr := s.store.GetChoice(ctx, questionID, id); errors.Is(getErr, repository.ErrNotFound) {
				return ErrChoiceNotFound
			}
		}
		return mapRepositoryError(err, ErrChoiceNotFound)
	}
	return s.afterWrite(ctx, quizID, questionID, id)
}

func (s *ChoiceService) authorize(ctx context.Context, actor Actor, quizID, questionID uint) error {
	if _, err := ownedQuiz(ctx, s.store, actor, quizID); err != nil {
		return err
	}
	if _, err := s.store.GetQuestion(ctx, quizID, questionID, false); err != nil {
		return mapRepositoryError(err, ErrQuestionNotFound)
	}
	return nil
}

// afterWrite invalidates the choice with its question and quiz, then re-seeds the choice list.
func (s *ChoiceService) afterWrite(ctx context.Context, quizID, questionID, choiceID uint) error {
	tags := []string{choiceTag(choiceID), questionTag(questionID), quizTag(quizID), TagQuizzes}
	reseed := func(ctx context.Context) error {
		choices, err := s.loadChoices(ctx, quizID, questionID)
		if err != nil {
			return err
		}
		return cache.Set(ctx, s.cache, choicesKey(quizID, questionID), choices, s.listOptions(quizID, questionID, choices))
	}
	return s.policy.apply(ctx, tags, reseed, OutputQuizzes)
}

func (s *ChoiceService) loadChoices(ctx context.Context, quizID, questionID uint) (*[]models.Choice, error) {
	if _, err := s.store.GetQuestion(ctx, quizID, questionID, false); err != nil {
		return nil, ignoreNotFound(err)
	}
	list, err := s.store.ListChoices(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Choice{}
	}
	return &list, nil
}

// listOptions tags a choice list with its question and quiz, plus every listed choice.
func (s *ChoiceService) listOptions(quizID, questionID uint, choices *[]models.Choice) cache.Options {
	tags := append([]string{questionTag(questionID), quizTag(quizID)}, memberTags(choices)...)
	return cache.Options{Tags: tags}
}

func memberTags(choices *[]models.Choice) []string {
	if choices == nil {
		return nil
	}
	tags := make([]string, 0, len(*choices))
	for _, choice := range *choices {
		tags = append(tags, choiceTag(choice.ID))
	}
	return tags
}

func buildChoice(input CreateChoiceInput) (models.Choice, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return models.Choice{}, apperrors.NewBadRequest("choice text is required")
	}
	return models.Choice{Text: text, IsCorrect: input.IsCorrect}, nil
}
