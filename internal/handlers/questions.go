package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quizapi/internal/services"
	apperrors "github.com/charlesng35/quizapi/pkg/errors"
	"github.com/charlesng35/quizapi/pkg/response"
)

// QuestionHandler exposes the questions nested under a quiz.
type QuestionHandler struct {
	svc *services.QuestionService
}

func NewQuestionHandler(svc *services.QuestionService) *QuestionHandler {
	return &QuestionHandler{svc: svc}
}

type updateQuestionRequest struct {
	Text       *string `json:"text" validate:"omitempty,notblank,max=1000"`
	Position   *int    `json:"position" validate:"omitempty,min=0"`
	ImageID    *uint   `json:"image_id"`
	ClearImage bool    `json:"clear_image"`
}

// GET /api/quizzes/:quizID/questions
func (h *QuestionHandler) List(c *gin.Context) {
	quizID, ok := uintParam(c, "quizID")
	if !ok {
		return
	}

	questions, err := h.svc.List(requestContext(c), quizID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, questions, &response.Meta{Total: len(questions)})
}

// GET /api/quizzes/:quizID/questions/:questionID
func (h *QuestionHandler) Get(c *gin.Context) {
	quizID, ok := uintParam(c, "quizID")
	if !ok {
		return
	}
	id, ok := uintParam(c, "questionID")
	if !ok {
		return
	}

	withChoices := false
	if raw := c.Query("choices"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, apperrors.NewBadRequest("choices must be a boolean"))
			return
		}
		withChoices = parsed
	}

	question, err := h.svc.Get(requestContext(c), quizID, id, withChoices)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, question)
}

// POST /api/quizzes/:quizID/questions
func (h *QuestionHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	quizID, ok := uintParam(c, "quizID")
	if !ok {
		return
	}
	var req questionPayload
	if !bindAndValidate(c, &req) {
		return
	}

	question, err := h.svc.Create(requestContext(c), actor, quizID, req.toInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, question)
}

// PUT /api/quizzes/:quizID/questions/:questionID
func (h *QuestionHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	quizID, ok := uintParam(c, "quizID")
	if !ok {
		return
	}
	id, ok := uintParam(c, "questionID")
	if !ok {
		return
	}
	var req updateQuestionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	question, err := h.svc.Update(requestContext(c), actor, quizID, id, services.UpdateQuestionInput{
		Text:       req.Text,
		Position:   req.Position,
		ImageID:    req.ImageID,
		ClearImage: req.ClearImage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, question)
}

// DELETE /api/quizzes/:quizID/questions/:questionID
func (h *QuestionHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	quizID, ok := uintParam(c, "quizID")
	if !ok {
		return
	}
	id, ok := uintParam(c, "questionID")
	if !ok {
		return
	}

	if err := h.svc.Delete(requestContext(c), actor, quizID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
