package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quizapi/internal/services"
	"github.com/charlesng35/quizapi/pkg/response"
)

// ChoiceHandler exposes the answer options of a question.
type ChoiceHandler struct {
	svc *services.ChoiceService
}

func NewChoiceHandler(svc *services.ChoiceService) *ChoiceHandler {
	return &ChoiceHandler{svc: svc}
}

type updateChoiceRequest struct {
	Text      *string `json:"text" validate:"omitempty,notblank,max=500"`
	IsCorrect *bool   `json:"is_correct"`
}

// choiceScope reads the quiz and question ids shared by every choice route.
func choiceScope(c *gin.Context) (quizID, questionID uint, ok bool) {
	if quizID, ok = uintParam(c, "quizID"); !ok {
		return 0, 0, false
	}
	if questionID, ok = uintParam(c, "questionID"); !ok {
		return 0, 0, false
	}
	return quizID, questionID, true
}

// GET /api/quizzes/:quizID/questions/:questionID/choices
func (h *ChoiceHandler) List(c *gin.Context) {
	quizID, questionID, ok := choiceScope(c)
	if !ok {
		return
	}

	choices, err := h.svc.List(requestContext(c), quizID, questionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, choices, &response.Meta{Total: len(choices)})
}

// GET /api/quizzes/:quizID/questions/:questionID/choices/:choiceID
func (h *ChoiceHandler) Get(c *gin.Context) {
	quizID, questionID, ok := choiceScope(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "choiceID")
	if !ok {
		return
	}

	choice, err := h.svc.Get(requestContext(c), quizID, questionID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, choice)
}

// POST /api/quizzes/:quizID/questions/:questionID/choices
func (h *ChoiceHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	quizID, questionID, ok := choiceScope(c)
	if !ok {
		return
	}
	var req choicePayload
	if !bindAndValidate(c, &req) {
		return
	}

	choice, err := h.svc.Create(requestContext(c), actor, quizID, questionID, req.toInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, choice)
}

// PUT /api/quizzes/:quizID/questions/:questionID/choices/:choiceID
func (h *ChoiceHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	quizID, questionID, ok := choiceScope(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "choiceID")
	if !ok {
		return
	}
	var req updateChoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	choice, err := h.svc.Update(requestContext(c), actor, quizID, questionID, id, services.UpdateChoiceInput{
		Text:      req.Text,
		IsCorrect: req.IsCorrect,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, choice)
}

// DELETE /api/quizzes/:quizID/questions/:questionID/choices/:choiceID
func (h *ChoiceHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	quizID, questionID, ok := choiceScope(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "choiceID")
	if !ok {
		return
	}

	if err := h.svc.Delete(requestContext(c), actor, quizID, questionID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
