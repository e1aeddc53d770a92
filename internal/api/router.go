package api

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/charlesng35/quizapi/internal/auth"
	"github.com/charlesng35/quizapi/internal/cache"
	"github.com/charlesng35/quizapi/internal/handlers"
	"github.com/charlesng35/quizapi/internal/middleware"
	"github.com/charlesng35/quizapi/internal/monitoring"
	"github.com/charlesng35/quizapi/internal/services"
)

// RateLimit bounds requests against the credential endpoints.
type RateLimit struct {
	Store    middleware.RateStore
	Requests int
	Window   time.Duration
}

// Dependencies bundles everything the router wires into handlers.
type Dependencies struct {
	JWT    *iauth.JWTService
	Tokens *iauth.TokenService

	Users     *services.UserService
	Quizzes   *services.QuizService
	Questions *services.QuestionService
	Choices   *services.ChoiceService
	Images    *services.ImageService
	Likes     *services.LikeService

	// Output is optional; a nil cache disables response caching.
	Output    *cache.OutputCache
	OutputTTL time.Duration

	Health    *monitoring.HealthManager
	RateLimit RateLimit
}

func (d Dependencies) validate() error {
	switch {
	case d.JWT == nil:
		return errors.New("router: jwt service must be provided")
	case d.Tokens == nil:
		return errors.New("router: token service must be provided")
	case d.Users == nil, d.Quizzes == nil, d.Questions == nil, d.Choices == nil, d.Images == nil, d.Likes == nil:
		return errors.New("router: all resource services must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	registerHealthRoutes(r, handlers.NewHealthHandler(deps.Health))

	requireAuth := middleware.Auth(deps.JWT)
	api := r.Group("/api")

	registerAuthRoutes(api, requireAuth, deps)
	registerQuizRoutes(api, requireAuth, deps)
	registerImageRoutes(api, requireAuth, deps)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

// cached wraps a public GET handler with the output cache for one resource family.
func cached(deps Dependencies, family string) gin.HandlerFunc {
	return middleware.OutputCache(deps.Output, deps.OutputTTL, family)
}
