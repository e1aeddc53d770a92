package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quizapi/internal/handlers"
	"github.com/charlesng35/quizapi/internal/services"
)

func registerImageRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Dependencies) {
	h := handlers.NewImageHandler(deps.Images)

	images := api.Group("/images")
	{
		images.POST("", requireAuth, h.Create)
		images.GET("/:imageID", cached(deps, services.OutputImages), h.Get)
		images.DELETE("/:imageID", requireAuth, h.Delete)
	}
}
