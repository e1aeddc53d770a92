package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/quizapi/internal/api"
	iauth "github.com/charlesng35/quizapi/internal/auth"
	"github.com/charlesng35/quizapi/internal/cache"
	sharedtestutil "github.com/charlesng35/quizapi/internal/database/testutil"
	"github.com/charlesng35/quizapi/internal/middleware"
	"github.com/charlesng35/quizapi/internal/monitoring"
	"github.com/charlesng35/quizapi/internal/monitoring/checks"
	"github.com/charlesng35/quizapi/internal/repository"
	"github.com/charlesng35/quizapi/internal/services"
	"github.com/charlesng35/quizapi/pkg/response"
)

const (
	// AdminUsername and AdminPassword identify the seeded administrator.
	AdminUsername = "admin"
	AdminPassword = "admin-password"
)

// Clock is a manually advanced time source shared by every component of an Env.
type Clock struct {
	current time.Time
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time { return c.current }

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) { c.current = c.current.Add(d) }

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
	Cache  *cache.Hybrid
	Output *cache.OutputCache
	Clock  *Clock
}

// EnvOption customises NewEnv.
type EnvOption func(*envConfig)

type envConfig struct {
	rateLimit int
}

// WithRateLimit limits the credential endpoints to requests per minute.
func WithRateLimit(requests int) EnvOption {
	return func(cfg *envConfig) { cfg.rateLimit = requests }
}

// NewEnv provisions a fresh handler test environment with migrations and an admin account.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := envConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := &Clock{current: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAdmin(AdminUsername, AdminPassword))
	store, err := repository.New(db)
	require.NoError(t, err)

	hybrid := cache.NewHybrid(cache.HybridConfig{Clock: clock.Now})
	output := cache.NewOutputCache(cache.OutputCacheConfig{Clock: clock.Now})
	t.Cleanup(func() {
		hybrid.Close()
		output.Close()
	})

	users, err := services.NewUserService(store, hybrid)
	require.NoError(t, err)
	quizzes, err := services.NewQuizService(store, hybrid, output)
	require.NoError(t, err)
	questions, err := services.NewQuestionService(store, hybrid, output)
	require.NoError(t, err)
	choices, err := services.NewChoiceService(store, hybrid, output)
	require.NoError(t, err)
	images, err := services.NewImageService(store, hybrid, output)
	require.NoError(t, err)
	likes, err := services.NewLikeService(store, hybrid, output)
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-suite-super-secret-key-32-bytes!!",
		Issuer:         "test-suite",
		AccessTokenTTL: 15 * time.Minute,
		Clock:          clock.Now,
	})
	require.NoError(t, err)
	tokens, err := iauth.NewTokenService(iauth.NewTokenStore(store), jwtSvc, iauth.TokenServiceConfig{Clock: clock.Now})
	require.NoError(t, err)

	health := monitoring.NewHealthManager(clock.Now)
	health.RegisterReadiness(checks.Database(db, time.Second))

	router, err := api.NewRouter(api.Dependencies{
		JWT:       jwtSvc,
		Tokens:    tokens,
		Users:     users,
		Quizzes:   quizzes,
		Questions: questions,
		Choices:   choices,
		Images:    images,
		Likes:     likes,
		Output:    output,
		OutputTTL: time.Minute,
		Health:    health,
		RateLimit: api.RateLimit{
			Store:    middleware.NewMemoryRateStore(clock.Now),
			Requests: cfg.rateLimit,
			Window:   time.Minute,
		},
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Cache:  hybrid,
		Output: output,
		Clock:  clock,
	}
}

// TokenPair mirrors the token payload returned by the auth endpoints.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// UserPayload captures the user fields returned from auth endpoints.
type UserPayload struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// AuthResult bundles the JSON response from register and login.
type AuthResult struct {
	User   UserPayload `json:"user"`
	Tokens TokenPair   `json:"tokens"`
}

// Register creates a user with a random name and returns the issued credentials.
func (e *Env) Register(password string) AuthResult {
	e.T.Helper()

	username := "user-" + uuid.NewString()[:8]
	w := e.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var result AuthResult
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &result)
	require.Equal(e.T, username, result.User.Username)
	require.NotEmpty(e.T, result.Tokens.AccessToken)
	require.NotEmpty(e.T, result.Tokens.RefreshToken)
	return result
}

// Login authenticates and returns the issued credentials.
func (e *Env) Login(username, password string) AuthResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result AuthResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Tokens.AccessToken)
	require.NotEmpty(e.T, result.Tokens.RefreshToken)
	require.Equal(e.T, username, result.User.Username)
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
