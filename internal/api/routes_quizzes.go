package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quizapi/internal/handlers"
	"github.com/charlesng35/quizapi/internal/services"
)

func registerQuizRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, deps Dependencies) {
	quizHandler := handlers.NewQuizHandler(deps.Quizzes)
	questionHandler := handlers.NewQuestionHandler(deps.Questions)
	choiceHandler := handlers.NewChoiceHandler(deps.Choices)
	likeHandler := handlers.NewLikeHandler(deps.Likes)
	withCache := cached(deps, services.OutputQuizzes)

	quizzes := api.Group("/quizzes")
	{
		quizzes.GET("", withCache, quizHandler.List)
		quizzes.POST("", requireAuth, quizHandler.Create)
		quizzes.GET("/:quizID", withCache, quizHandler.Get)
		quizzes.PUT("/:quizID", requireAuth, quizHandler.Update)
		quizzes.DELETE("/:quizID", requireAuth, quizHandler.Delete)
	}

	questions := quizzes.Group("/:quizID/questions")
	{
		questions.GET("", withCache, questionHandler.List)
		questions.POST("", requireAuth, questionHandler.Create)
		questions.GET("/:questionID", withCache, questionHandler.Get)
		questions.PUT("/:questionID", requireAuth, questionHandler.Update)
		questions.DELETE("/:questionID", requireAuth, questionHandler.Delete)
	}

	choices := questions.Group("/:questionID/choices")
	{
		choices.GET("", withCache, choiceHandler.List)
		choices.POST("", requireAuth, choiceHandler.Create)
		choices.GET("/:choiceID", withCache, choiceHandler.Get)
		choices.PUT("/:choiceID", requireAuth, choiceHandler.Update)
		choices.DELETE("/:choiceID", requireAuth, choiceHandler.Delete)
	}

	likes := quizzes.Group("/:quizID/likes")
	{
		likes.GET("", withCache, likeHandler.Count)
		likes.POST("", requireAuth, likeHandler.Like)
		likes.DELETE("", requireAuth, likeHandler.Unlike)
	}
}
