package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quizapi/internal/models"
	"github.com/charlesng35/quizapi/internal/repository"
	"github.com/charlesng35/quizapi/internal/services"
	apperrors "github.com/charlesng35/quizapi/pkg/errors"
	"github.com/charlesng35/quizapi/pkg/response"
)

// QuizHandler exposes quiz CRUD endpoints.
type QuizHandler struct {
	svc *services.QuizService
}

func NewQuizHandler(svc *services.QuizService) *QuizHandler {
	return &QuizHandler{svc: svc}
}

type choicePayload struct {
	Text      string `json:"text" validate:"required,notblank,max=500"`
	IsCorrect bool   `json:"is_correct"`
}

type questionPayload struct {
	Text     string          `json:"text" validate:"required,notblank,max=1000"`
	Position int             `json:"position" validate:"min=0"`
	ImageID  *uint           `json:"image_id"`
	Choices  []choicePayload `json:"choices" validate:"omitempty,dive"`
}

type createQuizRequest struct {
	Title       string            `json:"title" validate:"required,notblank,max=200"`
	Description string            `json:"description" validate:"max=2000"`
	ImageID     *uint             `json:"image_id"`
	Questions   []questionPayload `json:"questions" validate:"omitempty,dive"`
}

type updateQuizRequest struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ImageID     *uint   `json:"image_id"`
	ClearImage  bool    `json:"clear_image"`
}

// GET /api/quizzes
func (h *QuizHandler) List(c *gin.Context) {
	authorID, filtered, ok := parseUintQuery(c, "author")
	if !ok {
		response.Error(c, apperrors.NewBadRequest("author must be a positive integer"))
		return
	}

	var (
		quizzes []models.Quiz
		err     error
	)
	if filtered {
		quizzes, err = h.svc.ListByAuthor(requestContext(c), authorID)
	} else {
		quizzes, err = h.svc.List(requestContext(c))
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, quizzes, &response.Meta{Total: len(quizzes)})
}

// GET /api/quizzes/:quizID
func (h *QuizHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "quizID")
	if !ok {
		return
	}

	include, ok := parseQuizInclude(c.Query("include"))
	if !ok {
		response.Error(c, apperrors.NewBadRequest("include accepts questions and choices"))
		return
	}

	quiz, err := h.svc.Get(requestContext(c), id, include)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, quiz)
}

// POST /api/quizzes
func (h *QuizHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req createQuizRequest
	if !bindAndValidate(c, &req) {
		return
	}

	questions := make([]services.CreateQuestionInput, 0, len(req.Questions))
	for _, q := range req.Questions {
		questions = append(questions, q.toInput())
	}

	quiz, err := h.svc.Create(requestContext(c), actor, services.CreateQuizInput{
		Title:       req.Title,
		Description: req.Description,
		ImageID:     req.ImageID,
		Questions:   questions,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, quiz)
}

// PUT /api/quizzes/:quizID
func (h *QuizHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "quizID")
	if !ok {
		return
	}
	var req updateQuizRequest
	if !bindAndValidate(c, &req) {
		return
	}

	quiz, err := h.svc.Update(requestContext(c), actor, id, services.UpdateQuizInput{
		Title:       req.Title,
		Description: req.Description,
		ImageID:     req.ImageID,
		ClearImage:  req.ClearImage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, quiz)
}

// DELETE /api/quizzes/:quizID
func (h *QuizHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "quizID")
	if !ok {
		return
	}

	if err := h.svc.Delete(requestContext(c), actor, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (p questionPayload) toInput() services.CreateQuestionInput {
	choices := make([]services.CreateChoiceInput, 0, len(p.Choices))
	for _, choice := range p.Choices {
		choices = append(choices, choice.toInput())
	}
	return services.CreateQuestionInput{
		Text:     p.Text,
		Position: p.Position,
		ImageID:  p.ImageID,
		Choices:  choices,
	}
}

func (p choicePayload) toInput() services.CreateChoiceInput {
	return services.CreateChoiceInput{Text: p.Text, IsCorrect: p.IsCorrect}
}

// parseQuizInclude reads a comma separated include list. Choices imply questions.
func parseQuizInclude(raw string) (repository.QuizInclude, bool) {
	var include repository.QuizInclude
	for _, part := range strings.Split(raw, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case "questions":
			include.Questions = true
		case "choices":
			include.Questions = true
			include.Choices = true
		default:
			return repository.QuizInclude{}, false
		}
	}
	return include, true
}
