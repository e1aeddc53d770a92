package repository

import (
	"context"

	"github.com/charlesng35/quizapi/internal/models"
)

// CreateImage records image metadata.
func (s *Store) CreateImage(ctx context.Context, image *models.Image) error {
	return translate(s.conn(ctx).Create(image).Error)
}

// GetImage loads image metadata by id.
func (s *Store) GetImage(ctx context.Context, id uint) (*models.Image, error) {
	var image models.Image
	if err := s.conn(ctx).First(&image, id).Error; err != nil {
		return nil, translate(err)
	}
	return &image, nil
}

// DeleteImage removes image metadata. Quizzes and questions referencing it lose the reference.
func (s *Store) DeleteImage(ctx context.Context, id uint) error {
	return affected(s.conn(ctx).Delete(&models.Image{}, id))
}

// ImageQuizReferences returns the ids of quizzes that show the image on the quiz itself or on
// one of its questions.
func (s *Store) ImageQuizReferences(ctx context.Context, imageID uint) ([]uint, error) {
	var direct []uint
	if err := s.conn(ctx).Model(&models.Quiz{}).Where("image_id = ?", imageID).Pluck("id", &direct).Error; err != nil {
		return nil, translate(err)
	}
	var viaQuestions []uint
	if err := s.conn(ctx).Model(&models.Question{}).Where("image_id = ?", imageID).Distinct().Pluck("quiz_id", &viaQuestions).Error; err != nil {
		return nil, translate(err)
	}

	seen := make(map[uint]struct{}, len(direct)+len(viaQuestions))
	ids := make([]uint, 0, len(direct)+len(viaQuestions))
	for _, id := range append(direct, viaQuestions...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
