package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/quizapi/internal/auth"
	"github.com/charlesng35/quizapi/internal/services"
	apperrors "github.com/charlesng35/quizapi/pkg/errors"
	"github.com/charlesng35/quizapi/pkg/metrics"
	"github.com/charlesng35/quizapi/pkg/response"
)

// AuthHandler manages authentication flows (register/login/refresh/logout/me).
type AuthHandler struct {
	users  *services.UserService
	tokens *iauth.TokenService
}

func NewAuthHandler(users *services.UserService, tokens *iauth.TokenService) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,notblank,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(requestContext(c), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	pair, err := h.tokens.IssueTokenPair(requestContext(c), user)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Success(c, http.StatusCreated, gin.H{"user": user, "tokens": pair})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	user, err := h.users.Authenticate(requestContext(c), req.Username, req.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	pair, err := h.tokens.IssueTokenPair(requestContext(c), user)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, gin.H{"user": user, "tokens": pair})
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.tokens.Refresh(requestContext(c), strings.TrimSpace(req.AccessToken), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		response.Error(c, refreshError(err))
		return
	}

	response.Success(c, http.StatusOK, pair)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req logoutRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.tokens.Revoke(requestContext(c), strings.TrimSpace(req.RefreshToken), actor.UserID); err != nil {
		response.Error(c, refreshError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// POST /api/auth/logout_all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	revoked, err := h.tokens.RevokeAll(requestContext(c), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": revoked})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.users.Get(requestContext(c), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// refreshError maps a rejected exchange to a 401 carrying the rejection reason.
func refreshError(err error) error {
	reason, ok := iauth.RejectionReason(err)
	if !ok {
		return err
	}
	message := strings.ReplaceAll(reason, "_", " ")
	message = strings.ToUpper(message[:1]) + message[1:]
	return apperrors.NewTokenRejected(strings.ToUpper(reason), message)
}
