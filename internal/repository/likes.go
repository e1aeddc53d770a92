package repository

import (
	"context"

	"github.com/charlesng35/quizapi/internal/models"
)

// CountLikes returns how many users liked a quiz.
func (s *Store) CountLikes(ctx context.Context, quizID uint) (int64, error) {
	var count int64
	if err := s.conn(ctx).Model(&models.Like{}).Where("quiz_id = ?", quizID).Count(&count).Error; err != nil {
		return 0, translate(err)
	}
	return count, nil
}

// AddLike records a like. Liking the same quiz twice returns ErrDuplicate.
func (s *Store) AddLike(ctx context.Context, like *models.Like) error {
	return translate(s.conn(ctx).Create(like).Error)
}

// RemoveLike deletes the like of a user on a quiz and reports the removed row.
func (s *Store) RemoveLike(ctx context.Context, quizID, userID uint) (*models.Like, error) {
	var like models.Like
	if err := s.conn(ctx).Where("quiz_id = ? AND user_id = ?", quizID, userID).First(&like).Error; err != nil {
		return nil, translate(err)
	}
	if err := affected(s.conn(ctx).Delete(&models.Like{}, like.ID)); err != nil {
		return nil, err
	}
	return &like, nil
}
