package services

import (
	"context"
	"errors"

	"github.com/charlesng35/quizapi/internal/cache"
	"github.com/charlesng35/quizapi/internal/models"
	"github.com/charlesng35/quizapi/internal/repository"
)

// LikeService records which users like which quizzes.
type LikeService struct {
	store  *repository.Store
	cache  cache.Facade
	policy writePolicy
}

// NewLikeService constructs a LikeService.
func NewLikeService(store *repository.Store, c cache.Facade, output Evictor) (*LikeService, error) {
	if store == nil {
		return nil, errors.New("like service: store is required")
	}
	if c == nil {
		return nil, errors.New("like service: cache is required")
	}
	return &LikeService{store: store, cache: c, policy: newWritePolicy(c, output, "likes")}, nil
}

// Count returns the number of likes of a quiz.
func (s *LikeService) Count(ctx context.Context, quizID uint) (int64, error) {
	count, err := cache.GetOrCreate(ctx, s.cache, likesKey(quizID), func(ctx context.Context) (*int64, error) {
		if _, err := s.store.GetQuiz(ctx, quizID, repository.QuizInclude{}); err != nil {
			return nil, ignoreNotFound(err)
		}
		n, err := s.store.CountLikes(ctx, quizID)
		if err != nil {
			return nil, err
		}
		return &n, nil
	}, s.countOptions(quizID))
	if err != nil {
		return 0, mapRepositoryError(err, ErrQuizNotFound)
	}
	if count == nil {
		return 0, ErrQuizNotFound
	}
	return *count, nil
}

// Like records that the actor likes the quiz and returns the new count.
func (s *LikeService) Like(ctx context.Context, actor Actor, quizID uint) (int64, error) {
	if _, err := s.store.GetQuiz(ctx, quizID, repository.QuizInclude{}); err != nil {
		return 0, mapRepositoryError(err, ErrQuizNotFound)
	}

	like := &models.Like{QuizID: quizID, UserID: actor.UserID}
	if err := s.store.AddLike(ctx, like); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return 0, ErrAlreadyLiked
		}
		return 0, mapRepositoryError(err, ErrQuizNotFound)
	}
	return s.afterWrite(ctx, quizID, like.ID)
}

// Unlike removes the actor's like and returns the new count.
func (s *LikeService) Unlike(ctx context.Context, actor Actor, quizID uint) (int64, error) {
	like, err := s.store.RemoveLike(ctx, quizID, actor.UserID)
	if err != nil {
		return 0, mapRepositoryError(err, ErrNotLiked)
	}
	return s.afterWrite(ctx, quizID, like.ID)
}

// afterWrite invalidates the like and its quiz, then re-seeds the count.
func (s *LikeService) afterWrite(ctx context.Context, quizID, likeID uint) (int64, error) {
	count, err := s.store.CountLikes(ctx, quizID)
	if err != nil {
		return 0, mapRepositoryError(err, ErrQuizNotFound)
	}
	reseed := func(ctx context.Context) error {
		return cache.Set(ctx, s.cache, likesKey(quizID), &count, s.countOptions(quizID))
	}
	if err := s.policy.apply(ctx, []string{likeTag(likeID), quizTag(quizID)}, reseed, OutputQuizzes); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *LikeService) countOptions(quizID uint) cache.Options {
	return cache.Options{Tags: []string{quizTag(quizID)}}
}
