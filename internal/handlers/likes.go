package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quizapi/internal/services"
	"github.com/charlesng35/quizapi/pkg/response"
)

// LikeHandler counts and toggles likes of a quiz.
type LikeHandler struct {
	svc *services.LikeService
}

func NewLikeHandler(svc *services.LikeService) *LikeHandler {
	return &LikeHandler{svc: svc}
}

type likesResponse struct {
	QuizID uint  `json:"quiz_id"`
	Likes  int64 `json:"likes"`
}

// GET /api/quizzes/:quizID/likes
func (h *LikeHandler) Count(c *gin.Context) {
	quizID, ok := uintParam(c, "quizID")
	if !ok {
		return
	}

	count, err := h.svc.Count(requestContext(c), quizID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, likesResponse{QuizID: quizID, Likes: count})
}

// POST /api/quizzes/:quizID/likes
func (h *LikeHandler) Like(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	quizID, ok := uintParam(c, "quizID")
	if !ok {
		return
	}

	count, err := h.svc.Like(requestContext(c), actor, quizID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, likesResponse{QuizID: quizID, Likes: count})
}

// DELETE /api/quizzes/:quizID/likes
func (h *LikeHandler) Unlike(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	quizID, ok := uintParam(c, "quizID")
	if !ok {
		return
	}

	count, err := h.svc.Unlike(requestContext(c), actor, quizID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, likesResponse{QuizID: quizID, Likes: count})
}
