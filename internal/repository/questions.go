package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/charlesng35/quizapi/internal/models"
)

// ListQuestions returns the questions of a quiz in display order.
func (s *Store) ListQuestions(ctx context.Context, quizID uint) ([]models.Question, error) {
	var questions []models.Question
	err := s.conn(ctx).
		Where("quiz_id = ?", quizID).
		Order("position, id").
		Find(&questions).Error
	if err != nil {
		return nil, translate(err)
	}
	return questions, nil
}

// GetQuestion loads a question that belongs to the given quiz.
func (s *Store) GetQuestion(ctx context.Context, quizID, id uint, withChoices bool) (*models.Question, error) {
	query := s.conn(ctx)
	if withChoices {
		query = query.Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		})
	}

	var question models.Question
	if err := query.Where("quiz_id = ?", quizID).First(&question, id).Error; err != nil {
		return nil, translate(err)
	}
	return &question, nil
}

// CreateQuestion inserts a question and any nested choices.
func (s *Store) CreateQuestion(ctx context.Context, question *models.Question) error {
	return translate(s.conn(ctx).Create(question).Error)
}

// UpdateQuestion persists the editable question columns.
func (s *Store) UpdateQuestion(ctx context.Context, question *models.Question) error {
	result := s.conn(ctx).Model(&models.Question{}).
		Where("id = ? AND quiz_id = ?", question.ID, question.QuizID).
		Updates(map[string]any{
			"text":     question.Text,
			"position": question.Position,
			"image_id": question.ImageID,
		})
	return affected(result)
}

// DeleteQuestion removes a question of the given quiz together with its choices.
func (s *Store) DeleteQuestion(ctx context.Context, quizID, id uint) error {
	return affected(s.conn(ctx).Where("quiz_id = ?", quizID).Delete(&models.Question{}, id))
}
