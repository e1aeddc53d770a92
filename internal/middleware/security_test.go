package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newSecurityRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/api/quizzes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"quizzes": []string{}})
	})
	r.POST("/api/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"access_token": "a", "refresh_token": "r"})
	})
	r.NoRoute(NotFoundHandler)
	return r
}

func TestSecurityHeadersOnEveryResponse(t *testing.T) {
	r := newSecurityRouter()

	for _, tc := range []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/quizzes", http.StatusOK},
		{http.MethodPost, "/api/auth/login", http.StatusOK},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))

		require.Equal(t, tc.status, w.Code, tc.path)
		require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"), tc.path)
		require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"), tc.path)
		require.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"), tc.path)
		require.Equal(t, APIContentSecurityPolicy, w.Header().Get("Content-Security-Policy"), tc.path)
		require.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"), tc.path)
		require.Empty(t, w.Header().Get("X-XSS-Protection"), tc.path)
	}
}

func TestCredentialResponsesAreNotStored(t *testing.T) {
	r := newSecurityRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	require.Equal(t, "no-cache", w.Header().Get("Pragma"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/quizzes", nil))
	require.Empty(t, w.Header().Get("Cache-Control"))
}
