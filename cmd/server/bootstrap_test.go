package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/quizapi/internal/app"
	"github.com/charlesng35/quizapi/internal/models"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	return &app.Config{
		Server: app.ServerConfig{
			Port:      8000,
			RateLimit: app.RateLimitConfig{Enabled: true, Requests: 5, Window: time.Minute},
		},
		Database: app.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "quizapi.sqlite")},
		Cache: app.CacheConfig{
			Local:       app.LocalCacheConfig{Shards: 4, TTL: time.Minute},
			Distributed: app.DistributedCacheConfig{Driver: app.DistributedNone},
			Output:      app.OutputCacheConfig{Enabled: true, TTL: time.Minute},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{Secret: "bootstrap-test-secret", Issuer: "quizapi", TTL: 15 * time.Minute},
		},
		Maintenance: app.MaintenanceConfig{Enabled: true, CacheSchedule: "@every 5m", TokenSchedule: "@daily"},
		Seed:        app.SeedConfig{AdminUsername: "admin", AdminPassword: "admin-password"},
	}
}

func serve(t *testing.T, stack *runtimeStack, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, req)
	return w
}

func TestBootstrapRuntimeLocalOnly(t *testing.T) {
	cfg := testConfig(t)
	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.Nil(t, stack.Redis)
	require.NotNil(t, stack.Output)
	require.NotNil(t, stack.Cleaner)
	require.Len(t, stack.Cleaner.Jobs(), 2)

	var admin models.User
	require.NoError(t, stack.DB.Where("username = ?", "admin").First(&admin).Error)
	require.Equal(t, models.RoleAdmin, admin.Role)

	resp := serve(t, stack, "/health")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Contains(t, resp.Body.String(), `"component":"maintenance"`)

	resp = serve(t, stack, "/api/quizzes")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "MISS", resp.Header().Get("X-Cache"))
}

func TestBootstrapRuntimeDatabaseTier(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Distributed.Driver = app.DistributedDatabase
	cfg.Cache.Output.Enabled = false
	cfg.Maintenance.Enabled = false

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.Nil(t, stack.Output)
	require.Nil(t, stack.Cleaner)

	resp := serve(t, stack, "/api/quizzes")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Empty(t, resp.Header().Get("X-Cache"))

	var entries int64
	require.NoError(t, stack.DB.Model(&models.CacheEntry{}).Count(&entries).Error)
	require.Positive(t, entries)
}

func TestBootstrapRuntimeRedisTier(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Cache.Distributed.Driver = app.DistributedRedis
	cfg.Cache.Redis = app.RedisCacheConfig{Address: mr.Addr(), KeyPrefix: "bootstrap", Timeout: time.Second}

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.Redis)

	resp := serve(t, stack, "/health")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"component":"redis"`)

	serve(t, stack, "/api/quizzes")
	require.NotEmpty(t, mr.Keys())
}

func TestBootstrapRuntimeRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Cache.Distributed.Driver = app.DistributedRedis
	cfg.Cache.Redis = app.RedisCacheConfig{Address: addr, Timeout: 200 * time.Millisecond}

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.Nil(t, stack.Redis)
	resp := serve(t, stack, "/api/quizzes")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestBootstrapRuntimeRejectsUnknownDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "open database")
}
