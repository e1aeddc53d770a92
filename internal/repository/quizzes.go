package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/charlesng35/quizapi/internal/models"
)

// QuizInclude selects which associations are loaded with a quiz.
type QuizInclude struct {
	Questions bool
	Choices   bool
}

// ListQuizzes returns every quiz ordered by id, without associations.
func (s *Store) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := s.conn(ctx).Order("id").Find(&quizzes).Error; err != nil {
		return nil, translate(err)
	}
	return quizzes, nil
}

// ListQuizzesByAuthor returns the quizzes written by a single user.
func (s *Store) ListQuizzesByAuthor(ctx context.Context, authorID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := s.conn(ctx).Where("author_id = ?", authorID).Order("id").Find(&quizzes).Error; err != nil {
		return nil, translate(err)
	}
	return quizzes, nil
}

// GetQuiz loads a quiz and the requested associations. Choices imply questions.
func (s *Store) GetQuiz(ctx context.Context, id uint, include QuizInclude) (*models.Quiz, error) {
	query := s.conn(ctx)
	if include.Questions || include.Choices {
		query = query.Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, id")
		})
	}
	if include.Choices {
		query = query.Preload("Questions.Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		})
	}

	var quiz models.Quiz
	if err := query.First(&quiz, id).Error; err != nil {
		return nil, translate(err)
	}
	return &quiz, nil
}

// CreateQuiz inserts a quiz together with any nested questions and choices.
func (s *Store) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	return translate(s.conn(ctx).Create(quiz).Error)
}

// UpdateQuiz persists the editable quiz columns.
func (s *Store) UpdateQuiz(ctx context.Context, quiz *models.Quiz) error {
	result := s.conn(ctx).Model(&models.Quiz{}).
		Where("id = ?", quiz.ID).
		Updates(map[string]any{
			"title":       quiz.Title,
			"description": quiz.Description,
			"image_id":    quiz.ImageID,
		})
	return affected(result)
}

// DeleteQuiz removes a quiz. Questions, choices and likes follow through cascading foreign keys.
func (s *Store) DeleteQuiz(ctx context.Context, id uint) error {
	return affected(s.conn(ctx).Delete(&models.Quiz{}, id))
}
