package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"sievehub/database"
	"sievehub/internal/cache"
	"sievehub/internal/config"
	"sievehub/internal/handler"
	"sievehub/internal/middleware"
	"sievehub/internal/repository"
	"sievehub/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}

	notifCache, err := buildCache(cfg)
	if err != nil {
		log.Fatalf("could not build cache: %v", err)
	}

	// Repositories
	sieveRepo := repository.NewSieveRepository(db)
	shareLinkRepo := repository.NewShareLinkRepository(db)
	queueRepo := repository.NewNotificationQueueRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	settingsRepo := repository.NewNotificationSettingsRepository(db)

	// Services
	shareLinks := service.NewShareLinkService(shareLinkRepo, cfg.ShareBaseURL)
	sieveSvc := service.NewSieveService(sieveRepo, shareLinkRepo, shareLinks)
	queueSvc := service.NewQueueService(queueRepo, cfg.QueueMaxAttempts)
	notifSvc := service.NewNotificationService(notifRepo, settingsRepo, notifCache)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sieveHandler := handler.NewSieveHandler(sieveSvc)
	notifHandler := handler.NewNotificationHandler(notifSvc)
	queueHandler := handler.NewQueueAdminHandler(queueSvc)
	shareHandler := handler.NewShareHandler(shareLinks)

	api := r.Group("/api")
	shareHandler.RegisterRoutes(api.Group("/share"))
	api.GET("/creators/:creator_id/sieves", sieveHandler.ByCreator)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	sieveHandler.RegisterRoutes(authed.Group("/sieves"))
	notifHandler.RegisterRoutes(authed.Group("/notifications"))
	authed.PUT("/projects/:id/notification-mode", notifHandler.SetProjectMode)

	admin := authed.Group("/admin/queue")
	admin.Use(middleware.RequireAdmin())
	queueHandler.RegisterRoutes(admin)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info("API server listening", "addr", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func buildCache(cfg *config.Config) (cache.Cache, error) {
	if cfg.CacheBackend == "redis" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return cache.NewRedis(redis.NewClient(opts), cfg.CacheTTL), nil
	}
	return cache.NewMemory(cfg.CacheCapacity, cfg.CacheTTL), nil
}
