package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quizapi/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, h *handlers.HealthHandler) {
	r.GET("/health", h.Ready)
	r.GET("/health/live", h.Live)
	r.GET("/health/ready", h.Ready)
}
