package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charlesng35/quizapi/internal/repository"
	apperrors "github.com/charlesng35/quizapi/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrUserExists indicates the username or email is already registered.
	ErrUserExists = apperrors.New("USER_EXISTS", "Username or email already registered", http.StatusConflict)
	// ErrQuizNotFound indicates the requested quiz does not exist.
	ErrQuizNotFound = apperrors.New("QUIZ_NOT_FOUND", "Quiz not found", http.StatusNotFound)
	// ErrQuestionNotFound indicates the question does not exist within the quiz.
	ErrQuestionNotFound = apperrors.New("QUESTION_NOT_FOUND", "Question not found", http.StatusNotFound)
	// ErrChoiceNotFound indicates the choice does not exist within the question.
	ErrChoiceNotFound = apperrors.New("CHOICE_NOT_FOUND", "Choice not found", http.StatusNotFound)
	// ErrImageNotFound indicates the image does not exist.
	ErrImageNotFound = apperrors.New("IMAGE_NOT_FOUND", "Image not found", http.StatusNotFound)
	// ErrAlreadyLiked indicates the user liked the quiz before.
	ErrAlreadyLiked = apperrors.New("ALREADY_LIKED", "Quiz already liked", http.StatusConflict)
	// ErrNotLiked indicates there is no like to remove.
	ErrNotLiked = apperrors.New("NOT_LIKED", "Quiz is not liked", http.StatusNotFound)
)

// mapRepositoryError turns repository sentinels into API errors. notFound is returned for
// absent records; a write that changed nothing keeps its own meaning.
func mapRepositoryError(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrNoRowsAffected):
		return apperrors.ErrNoRowsAffected.WithInternal(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return apperrors.Wrap(fmt.Errorf("repository: %w", err), "")
	}
}
