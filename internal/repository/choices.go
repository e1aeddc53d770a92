package repository

import (
	"context"

	"github.com/charlesng35/quizapi/internal/models"
)

// ListChoices returns the answer options of a question.
func (s *Store) ListChoices(ctx context.Context, questionID uint) ([]models.Choice, error) {
	var choices []models.Choice
	if err := s.conn(ctx).Where("question_id = ?", questionID).Order("id").Find(&choices).Error; err != nil {
		return nil, translate(err)
	}
	return choices, nil
}

// GetChoice loads a choice that belongs to the given question.
func (s *Store) GetChoice(ctx context.Context, questionID, id uint) (*models.Choice, error) {
	var choice models.Choice
	if err := s.conn(ctx).Where("question_id = ?", questionID).First(&choice, id).Error; err != nil {
		return nil, translate(err)
	}
	return &choice, nil
}

// CreateChoice inserts a choice.
func (s *Store) CreateChoice(ctx context.Context, choice *models.Choice) error {
	return translate(s.conn(ctx).Create(choice).Error)
}

// UpdateChoice persists the editable choice columns.
func (s *Store) UpdateChoice(ctx context.Context, choice *models.Choice) error {
	result := s.conn(ctx).Model(&models.Choice{}).
		Where("id = ? AND question_id = ?", choice.ID, choice.QuestionID).
		Updates(map[string]any{
			"text":       choice.Text,
			"is_correct": choice.IsCorrect,
		})
	return affected(result)
}

// DeleteChoice removes a choice of the given question.
func (s *Store) DeleteChoice(ctx context.Context, questionID, id uint) error {
	return affected(s.conn(ctx).Where("question_id = ?", questionID).Delete(&models.Choice{}, id))
}
