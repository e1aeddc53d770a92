package services

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/charlesng35/quizapi/internal/cache"
	"github.com/charlesng35/quizapi/internal/models"
	"github.com/charlesng35/quizapi/internal/repository"
	apperrors "github.com/charlesng35/quizapi/pkg/errors"
)

// CreateImageInput carries image metadata. The file itself is stored elsewhere.
type CreateImageInput struct {
	FileName    string
	ContentType string
	Size        int64
	Path        string
}

// ImageService manages image metadata.
type ImageService struct {
	store  *repository.Store
	cache  cache.Facade
	policy writePolicy
}

// NewImageService constructs an ImageService.
func NewImageService(store *repository.Store, c cache.Facade, output Evictor) (*ImageService, error) {
	if store == nil {
		return nil, errors.New("image service: store is required")
	}
	if c == nil {
		return nil, errors.New("image service: cache is required")
	}
	return &ImageService{store: store, cache: c, policy: newWritePolicy(c, output, "images")}, nil
}

// Get returns image metadata.
func (s *ImageService) Get(ctx context.Context, id uint) (*models.Image, error) {
	image, err := cache.GetOrCreate(ctx, s.cache, imageKey(id), func(ctx context.Context) (*models.Image, error) {
		return absentAsNil(s.store.GetImage(ctx, id))
	}, cache.Options{Tags: []string{imageTag(id)}})
	if err != nil {
		return nil, mapRepositoryError(err, ErrImageNotFound)
	}
	if image == nil {
		return nil, ErrImageNotFound
	}
	return image, nil
}

// Create records image metadata uploaded by the actor.
func (s *ImageService) Create(ctx context.Context, actor Actor, input CreateImageInput) (*models.Image, error) {
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, apperrors.NewBadRequest("image file name is required")
	}
	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.NewBadRequest("content type must be an image type")
	}
	if input.Size <= 0 {
		return nil, apperrors.NewBadRequest("image size must be positive")
	}

	storagePath := strings.TrimSpace(input.Path)
	if storagePath == "" {
		storagePath = path.Join("images", fileName)
	}

	image := &models.Image{
		UploaderID:  actor.UserID,
		FileName:    fileName,
		ContentType: contentType,
		Size:        input.Size,
		Path:        storagePath,
	}
	if err := s.store.CreateImage(ctx, image); err != nil {
		return nil, mapRepositoryError(err, ErrImageNotFound)
	}

	reseed := func(ctx context.Context) error {
		return cache.Set(ctx, s.cache, imageKey(image.ID), image, cache.Options{Tags: []string{imageTag(image.ID)}})
	}
	if err := s.policy.apply(ctx, []string{imageTag(image.ID)}, reseed, OutputImages); err != nil {
		return nil, err
	}
	return image, nil
}

// Delete removes image metadata. Quizzes and questions that showed it are invalidated as well.
func (s *ImageService) Delete(ctx context.Context, actor Actor, id uint) error {
	image, err := s.store.GetImage(ctx, id)
	if err != nil {
		return mapRepositoryError(err, ErrImageNotFound)
	}
	if !actor.CanManage(image.UploaderID) {
		return forbidden()
	}

	quizIDs, err := s.store.ImageQuizReferences(ctx, id)
	if err != nil {
		return mapRepositoryError(err, ErrImageNotFound)
	}

	if err := s.store.DeleteImage(ctx, id); err != nil {
		return mapRepositoryError(err, ErrImageNotFound)
	}

	tags := []string{imageTag(id)}
	families := []string{OutputImages}
	if len(quizIDs) > 0 {
		for _, quizID := range quizIDs {
			tags = append(tags, quizTag(quizID))
		}
		tags = append(tags, TagQuizzes)
		families = append(families, OutputQuizzes)
	}
	return s.policy.apply(ctx, tags, nil, families...)
}
