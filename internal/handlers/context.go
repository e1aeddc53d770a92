package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quizapi/internal/middleware"
	"github.com/charlesng35/quizapi/internal/services"
	apperrors "github.com/charlesng35/quizapi/pkg/errors"
	"github.com/charlesng35/quizapi/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentActor builds the service actor from the authenticated claims. It writes a 401 and
// returns false when the request carries no identity.
func currentActor(c *gin.Context) (services.Actor, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok || claims.UserID == 0 {
		response.Error(c, apperrors.ErrUnauthorized)
		return services.Actor{}, false
	}
	return services.Actor{UserID: claims.UserID, Role: claims.Role}, true
}

// uintParam parses a positive numeric path parameter, writing a 400 when it is malformed.
func uintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	value, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || value == 0 {
		response.Error(c, apperrors.NewBadRequest(name+" must be a positive integer"))
		return 0, false
	}
	return uint(value), true
}
