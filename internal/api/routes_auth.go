package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quizapi/internal/handlers"
	"github.com/charlesng35/quizapi/internal/middleware"
)

func registerAuthRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Dependencies) {
	h := handlers.NewAuthHandler(deps.Users, deps.Tokens)
	limit := middleware.RateLimit(deps.RateLimit.Store, deps.RateLimit.Requests, deps.RateLimit.Window)

	auth := api.Group("/auth")
	{
		auth.POST("/register", limit, h.Register)
		auth.POST("/login", limit, h.Login)
		auth.POST("/refresh", limit, h.Refresh)
		auth.POST("/logout", requireAuth, h.Logout)
		auth.POST("/logout_all", requireAuth, h.LogoutAll)
		auth.GET("/me", requireAuth, h.Me)
	}
}
