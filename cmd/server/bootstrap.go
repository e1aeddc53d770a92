package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/quizapi/internal/api"
	"github.com/charlesng35/quizapi/internal/app"
	"github.com/charlesng35/quizapi/internal/app/maintenance"
	iauth "github.com/charlesng35/quizapi/internal/auth"
	"github.com/charlesng35/quizapi/internal/cache"
	"github.com/charlesng35/quizapi/internal/database"
	"github.com/charlesng35/quizapi/internal/middleware"
	"github.com/charlesng35/quizapi/internal/monitoring"
	"github.com/charlesng35/quizapi/internal/monitoring/checks"
	"github.com/charlesng35/quizapi/internal/repository"
	"github.com/charlesng35/quizapi/internal/services"
	"github.com/charlesng35/quizapi/pkg/logger"
)

const healthCheckTimeout = 2 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.RedisStore
	Cache     *cache.Hybrid
	Output    *cache.OutputCache
	Tokens    *iauth.TokenService
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	store, err := repository.New(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise repository: %w", err)
	}

	distributed, counter := stack.initialiseDistributedTier(ctx, cfg, log)
	stack.Cache = cache.NewHybrid(cfg.Cache.HybridConfig(distributed))

	var evictor services.Evictor
	if cfg.Cache.Output.Enabled {
		stack.Output = cache.NewOutputCache(cfg.Cache.OutputCacheConfig())
		evictor = stack.Output
	}

	deps := api.Dependencies{
		Output:    stack.Output,
		OutputTTL: cfg.Cache.Output.TTL,
	}
	if deps.Users, err = services.NewUserService(store, stack.Cache); err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}
	if deps.Quizzes, err = services.NewQuizService(store, stack.Cache, evictor); err != nil {
		return nil, fmt.Errorf("initialise quiz service: %w", err)
	}
	if deps.Questions, err = services.NewQuestionService(store, stack.Cache, evictor); err != nil {
		return nil, fmt.Errorf("initialise question service: %w", err)
	}
	if deps.Choices, err = services.NewChoiceService(store, stack.Cache, evictor); err != nil {
		return nil, fmt.Errorf("initialise choice service: %w", err)
	}
	if deps.Images, err = services.NewImageService(store, stack.Cache, evictor); err != nil {
		return nil, fmt.Errorf("initialise image service: %w", err)
	}
	if deps.Likes, err = services.NewLikeService(store, stack.Cache, evictor); err != nil {
		return nil, fmt.Errorf("initialise like service: %w", err)
	}

	if deps.JWT, err = iauth.NewJWTService(cfg.Auth.JWTServiceConfig()); err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}
	stack.Tokens, err = iauth.NewTokenService(iauth.NewTokenStore(store), deps.JWT, cfg.Auth.TokenServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise token service: %w", err)
	}
	deps.Tokens = stack.Tokens

	if cfg.Maintenance.Enabled {
		opts := []maintenance.Option{
			maintenance.WithLocalCache(stack.Cache),
			maintenance.WithTokens(stack.Tokens),
			maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
			maintenance.WithTokenSchedule(cfg.Maintenance.TokenSchedule),
		}
		if stack.Output != nil {
			opts = append(opts, maintenance.WithOutputCache(stack.Output))
		}
		if dbStore, ok := distributed.(*cache.DatabaseStore); ok {
			opts = append(opts, maintenance.WithCacheStore(dbStore))
		}
		stack.Cleaner = maintenance.NewCleaner(opts...)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.RateStore = middleware.NewCounterRateStore(counter)
	if stack.RateStore == nil {
		stack.RateStore = middleware.NewMemoryRateStore(nil)
	}
	if cfg.Server.RateLimit.Enabled {
		deps.RateLimit = api.RateLimit{
			Store:    stack.RateStore,
			Requests: cfg.Server.RateLimit.Requests,
			Window:   cfg.Server.RateLimit.Window,
		}
	}

	deps.Health = stack.healthManager()

	stack.Router, err = api.NewRouter(deps)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// initialiseDistributedTier connects the shared cache tier selected by configuration. A Redis
// connection failure leaves the cache process-local instead of aborting start-up.
func (s *runtimeStack) initialiseDistributedTier(ctx context.Context, cfg *app.Config, log *zap.Logger) (cache.Distributed, cache.Counter) {
	switch cfg.Cache.DistributedDriver() {
	case app.DistributedRedis:
		redisStore, err := cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig())
		if err != nil {
			log.Warn("redis unavailable; continuing with the local cache tier only", zap.Error(err))
			return nil, nil
		}
		s.Redis = redisStore
		log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		return redisStore, redisStore
	case app.DistributedDatabase:
		dbStore := cache.NewDatabaseStore(s.DB, nil)
		return dbStore, dbStore
	default:
		return nil, nil
	}
}

func (s *runtimeStack) healthManager() *monitoring.HealthManager {
	manager := monitoring.NewHealthManager(nil)
	manager.RegisterReadiness(checks.Database(s.DB, healthCheckTimeout))
	if s.Redis != nil {
		manager.RegisterReadiness(checks.Redis(s.Redis, healthCheckTimeout))
	}
	if s.Cleaner != nil {
		manager.RegisterReadiness(checks.Maintenance(s.Cleaner, 0, nil))
	}
	return manager
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
		if _, err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Cache != nil {
		s.Cache.Close()
	}
	if s.Output != nil {
		s.Output.Close()
	}

	var errs error
	if s.Redis != nil {
		errs = multierr.Append(errs, s.Redis.Close())
	}
	if s.DB != nil {
		errs = multierr.Append(errs, closeDatabase(s.DB))
	}
	for _, err := range multierr.Errors(errs) {
		log.Warn("shutdown", zap.Error(err))
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db, cfg.Seed.SeedOptions()); err != nil {
		_ = closeDatabase(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("obtain sql handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
