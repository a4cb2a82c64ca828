package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	config "github.com/trackex/realtime-status/configs"
	"github.com/trackex/realtime-status/internal/application/services"
	"github.com/trackex/realtime-status/internal/core/ports"
	"github.com/trackex/realtime-status/internal/infrastructure/broadcast"
	"github.com/trackex/realtime-status/internal/infrastructure/cache"
	"github.com/trackex/realtime-status/internal/infrastructure/db"
	"github.com/trackex/realtime-status/internal/infrastructure/email"
	"github.com/trackex/realtime-status/internal/infrastructure/health"
	"github.com/trackex/realtime-status/internal/infrastructure/httpserver"
	"github.com/trackex/realtime-status/internal/infrastructure/redis"
	"github.com/trackex/realtime-status/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting realtime status service...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Initialize Redis. The shared cache tier is optional; without it the
	// service runs on the local tier alone and rate limiting is skipped.
	var redisClient *goredis.Client
	if !cfg.Redis.Disabled {
		redisClient, err = redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		logger.Info("Connected to Redis successfully")
	} else {
		logger.Warn("Redis disabled, running with local cache tier only")
	}

	// Assemble the tiered cache.
	var remote ports.Cache
	if redisClient != nil {
		remote = redis.NewRedisCache(redisClient, cfg.Cache.KeyPrefix)
	}
	tieredCache := cache.NewTieredCache(cache.Config{
		LocalTTL:         cfg.Cache.LocalTTL,
		RemoteTTL:        cfg.Cache.RemoteTTL,
		MaxEntries:       cfg.Cache.MaxEntries,
		SweepProbability: cfg.Cache.SweepProbability,
		RemoteTimeout:    cfg.Cache.RemoteTimeout,
	}, remote, logger)

	hub := broadcast.NewHub(logger)

	// Repositories
	licenseRepo := repositories.NewLicenseRepository(database, logger)
	presenceRepo := repositories.NewPresenceRepository(database, logger)
	agentVersionRepo := repositories.NewAgentVersionRepository(database)

	// Email notifications for license lifecycle changes
	emailConfig := &email.EmailConfig{
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		FromEmail:      cfg.Email.FromEmail,
		FromName:       cfg.Email.FromName,
		CompanyName:    cfg.Email.CompanyName,
		BaseURL:        cfg.Email.BaseURL,
	}
	emailService, err := email.NewEmailService(emailConfig, logger)
	if err != nil {
		logger.Fatal("Failed to initialize email service:", err)
	}

	// Services
	licenseService := services.NewLicenseService(licenseRepo, tieredCache, hub, emailService, logger)
	presenceService := services.NewPresenceService(presenceRepo, tieredCache, hub, logger)
	agentVersionService := services.NewAgentVersionService(agentVersionRepo, tieredCache, hub, logger)

	var rateLimiterService ports.RateLimiterService
	if redisClient != nil {
		rateLimitRepo := repositories.NewRateLimitRedisRepository(redisClient)
		rateLimiterService = services.NewRateLimiterService(rateLimitRepo, &services.RateLimiterConfig{
			DefaultRequestsPerMinute: cfg.RateLimit.DefaultRequestsPerMinute,
			BurstMultiplier:          cfg.RateLimit.BurstMultiplier,
			Window:                   cfg.RateLimit.Window,
			KeyPrefix:                cfg.RateLimit.KeyPrefix,
		}, logger)
	}

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database)}
	if redisClient != nil {
		hcSlice = append(hcSlice, health.NewRedisHealthChecker(redisClient))
	}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		TLSCertFile:       cfg.Server.TLSCertFile,
		TLSKeyFile:        cfg.Server.TLSKeyFile,
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
		SinkBuffer:        cfg.Stream.SinkBuffer,
	}

	deps := httpserver.ServerDeps{
		LicenseService:      licenseService,
		PresenceService:     presenceService,
		AgentVersionService: agentVersionService,
		RateLimiterService:  rateLimiterService,
		Hub:                 hub,
		Cache:               tieredCache,
		HealthCheckers:      hcSlice,
	}

	server := httpserver.NewServer(serverConfig, cfg.JWT.Secret, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
