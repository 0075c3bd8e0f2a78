package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/soffront/metabase-provisioner/internal/client"
	"github.com/soffront/metabase-provisioner/internal/config"
	apierrors "github.com/soffront/metabase-provisioner/internal/errors"
	"github.com/soffront/metabase-provisioner/internal/handler"
	"github.com/soffront/metabase-provisioner/internal/health"
	"github.com/soffront/metabase-provisioner/internal/metrics"
	"github.com/soffront/metabase-provisioner/internal/server"
	"github.com/soffront/metabase-provisioner/internal/service"
	"github.com/soffront/metabase-provisioner/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting Metabase provisioner service")

	logger.Info("Configuration loaded",
		zap.Int("port", cfg.Server.Port),
		zap.String("database_host", cfg.Database.Host),
		zap.String("metabase_base_url", cfg.Metabase.BaseURL),
		zap.Int("modules", len(cfg.Metabase.Modules)),
		zap.Bool("redis_enabled", cfg.Redis.Enabled))

	// Initialize metrics
	m := metrics.NewMetrics()
	logger.Info("Metrics initialized")

	// Initialize mapping store (PostgreSQL)
	mappingStore, err := store.NewPostgresMappingStore(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize mapping store", zap.Error(err))
	}
	logger.Info("Mapping store initialized")

	// Initialize locker (Redis when enabled, in-process otherwise)
	var locker store.Locker
	if cfg.Redis.Enabled {
		locker, err = store.NewRedisLocker(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.LockTTL,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Redis locker", zap.Error(err))
		}
		logger.Info("Redis locker initialized")
	} else {
		locker = store.NewLocalLocker()
		logger.Warn("Using in-process locker, unsafe with multiple instances")
	}

	// Initialize cache (in-memory)
	cache := store.NewMemoryMappingCache(cfg.Cache.MaxSize, logger)
	logger.Info("Cache initialized")

	// Initialize Metabase client
	metabase := client.NewMetabase(
		cfg.Metabase.BaseURL,
		cfg.Metabase.APIKey,
		cfg.Metabase.Timeout,
		m,
		logger,
	)
	logger.Info("Metabase client initialized")

	// Initialize services
	groupService := service.NewGroupService(
		metabase,
		locker,
		m,
		cfg.Metabase.TemplateGroupID,
		cfg.Metabase.ReclonePermissions,
		logger,
	)
	collectionService := service.NewCollectionService(
		metabase,
		mappingStore,
		groupService,
		locker,
		m,
		cfg.Metabase.RootCollectionID,
		cfg.Metabase.AllUsersGroupID,
		cfg.Metabase.CollectionColor,
		logger,
	)
	dashboardService := service.NewDashboardService(
		metabase,
		collectionService,
		cfg.Metabase.Modules,
		m,
		logger,
	)
	provisionService := service.NewProvisionService(
		mappingStore,
		dashboardService,
		metabase,
		cache,
		cfg.Cache.MappingTTL,
		m,
		cfg.Metabase.CascadeDelete,
		logger,
	)
	tokenService := service.NewTokenService(
		cfg.Auth.JWTSecret,
		cfg.Auth.TokenTTL,
		m,
		logger,
	)

	logger.Info("All services initialized")

	// Initialize HTTP layer
	errorHandler := apierrors.NewHandler(logger)
	handlers := handler.NewHandlers(provisionService, tokenService, errorHandler, logger)
	healthChecker := health.NewHealthChecker(mappingStore, locker, metabase, logger)

	srv := server.NewServer(cfg, handlers, healthChecker, errorHandler, logger)
	srv.SetupRoutes()

	// Start metrics server
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			logger.Info("Starting metrics server", zap.String("address", addr))
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	// Start HTTP server
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error", zap.Error(err))
	case sig := <-sigChan:
		logger.Info("Received signal", zap.String("signal", sig.String()))
	}

	// Graceful shutdown
	logger.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}

	mappingStore.Close()
	if err := locker.Close(); err != nil {
		logger.Warn("Locker close failed", zap.Error(err))
	}

	logger.Info("Provisioner service stopped")
}

// buildLogger constructs a zap logger from the logging configuration
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
