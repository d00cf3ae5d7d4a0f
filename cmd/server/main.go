package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/m11312045/pneumatic-app/internal/cache"
	"github.com/m11312045/pneumatic-app/internal/config"
	"github.com/m11312045/pneumatic-app/internal/handlers"
	"github.com/m11312045/pneumatic-app/internal/metrics"
	"github.com/m11312045/pneumatic-app/internal/repositories/postgres"
	"github.com/m11312045/pneumatic-app/internal/services"
	"github.com/m11312045/pneumatic-app/internal/utils"
	"github.com/m11312045/pneumatic-app/internal/validator"
	"github.com/m11312045/pneumatic-app/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.NewLogger(false).Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger := utils.NewLogger(cfg.IsProduction())
	logger := appLogger.Slog()
	logger.Info("Starting pneumatic quiz server",
		"port", cfg.Port,
		"environment", cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Cache is optional; the catalog falls back to the database.
	var catalogCache cache.CacheService
	redisClient, err := pkg.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn("Redis unavailable, catalog cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		catalogCache = cache.NewRedisCache(redisClient, logger)
	}

	store, localDir, err := pkg.NewObjectStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("Failed to initialize object store", "error", err)
		os.Exit(1)
	}

	grader, err := pkg.NewGrader(cfg.Grader, logger)
	if err != nil {
		logger.Error("Failed to initialize grader", "error", err)
		os.Exit(1)
	}

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	m := metrics.New()

	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:      postgres.NewRepository(db),
		Cache:     catalogCache,
		Store:     store,
		Grader:    grader,
		Publisher: publisher,
		Metrics:   m,
		Validator: validator.New(),
		Logger:    logger,
		Random:    rand.NewSource(time.Now().UnixNano()),
	}, cfg.Quiz, cfg.Grader)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestID(), utils.LoggerMiddleware(appLogger), m.Middleware())
	router.MaxMultipartMemory = handlers.MaxImageBytes
	if localDir != "" {
		router.Static("/uploads", localDir)
	}
	handlers.NewHandlerManager(serviceManager, m, appLogger).SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Shutting down", "signal", sig.String())

	// Grading calls can run up to the grader timeout.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Grader.Timeout+5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("Shutdown complete")
}
