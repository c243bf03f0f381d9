package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"sievehub/database"
	"sievehub/internal/cache"
	"sievehub/internal/config"
	"sievehub/internal/repository"
	"sievehub/internal/service"
)

func main() {
	once := flag.Bool("once", false, "run a single drain pass and exit (cron mode)")
	flag.Parse()

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

	queueRepo := repository.NewNotificationQueueRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	settingsRepo := repository.NewNotificationSettingsRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	proposalRepo := repository.NewItemProposalRepository(db)

	resolver := service.NewRecipientResolver(notifCache, projectRepo, proposalRepo)
	preferences := service.NewPreferenceFilter(notifCache, settingsRepo)
	processor := service.NewQueueProcessor(queueRepo, notifRepo, resolver, preferences, cfg.ProcessingTimeout, logger)

	if *once {
		runPass(processor, logger)
		return
	}

	logger.Info("worker started", "interval", cfg.WorkerInterval)
	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	cleanupTicker := time.NewTicker(24 * time.Hour)
	defer cleanupTicker.Stop()

	runPass(processor, logger)
	for {
		select {
		case <-ticker.C:
			runPass(processor, logger)
		case <-cleanupTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			deleted, err := queueRepo.Cleanup(ctx, cfg.CleanupDays)
			cancel()
			if err != nil {
				logger.Error("queue cleanup failed", "error", err)
			} else if deleted > 0 {
				logger.Info("queue cleanup", "deleted", deleted)
			}
		case <-stop:
			logger.Info("worker stopping")
			return
		}
	}
}

func runPass(processor *service.QueueProcessor, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := processor.ProcessPending(ctx)
	if err != nil {
		logger.Error("drain pass failed", "error", err)
		return
	}
	if result.Claimed > 0 || result.Reclaimed > 0 {
		logger.Info("drain pass finished",
			"reclaimed", result.Reclaimed,
			"claimed", result.Claimed,
			"completed", result.Completed,
			"failed", result.Failed,
			"delivered", result.Delivered)
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
