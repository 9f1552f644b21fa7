package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notemesh/internal/core/ports"
	"notemesh/internal/core/services"
	backupinfra "notemesh/internal/infrastructure/backup"
	"notemesh/internal/infrastructure/categorize"
	"notemesh/internal/infrastructure/distributed"
	"notemesh/internal/infrastructure/gateway"
	httphandlers "notemesh/internal/handlers/http"
	"notemesh/internal/infrastructure/mail"
	"notemesh/internal/infrastructure/middleware"
	"notemesh/internal/infrastructure/monitoring"
	"notemesh/internal/infrastructure/reliability"
	"notemesh/internal/infrastructure/repositories"
	"notemesh/pkg/backup"
	"notemesh/pkg/cache"
	"notemesh/pkg/circuitbreaker"
	"notemesh/pkg/config"
	distributedpkg "notemesh/pkg/distributed"
	"notemesh/pkg/logger"
	"notemesh/pkg/retry"
	"notemesh/pkg/tracing"
	"notemesh/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/notemesh/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "notemesh",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: "production",
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Warnw("failed to initialize tracing, continuing without it", "error", err)
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	noteRepo := repoFactory.CreateNoteRepository()
	if repoFactory.RedisClient() != nil {
		noteRepo = reliability.NewNoteRepositoryWrapper(
			noteRepo,
			retry.DefaultConfig(),
			circuitbreaker.DefaultConfig(),
			log,
		)
	}
	categoryRepo := repoFactory.CreateCategoryRepository()
	inviteRepo := repoFactory.CreateInviteRepository()
	shareRepo := repoFactory.CreateShareRepository()
	userRepo := repoFactory.CreateUserRepository()

	// Initialize services
	authService := services.NewAuthService(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)

	lookupCache := cache.New(30 * time.Second)
	defer lookupCache.Stop()
	accessService := services.NewAccessService(noteRepo, shareRepo, inviteRepo, lookupCache, log)

	var categorizer ports.Categorizer
	if cfg.Categorizer.Enabled {
		categorizer = categorize.NewOpenAICategorizer(
			cfg.Categorizer.BaseURL,
			cfg.Categorizer.APIKey,
			cfg.Categorizer.Model,
			cfg.Categorizer.Timeout,
			log,
		)
	}
	noteService := services.NewNoteService(noteRepo, categoryRepo, shareRepo, inviteRepo, categorizer, log)

	var mailer ports.Mailer
	if cfg.Mail.Enabled {
		mailer = mail.NewSMTPMailer(cfg.Mail.SMTPAddress, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From, log)
	} else {
		mailer = mail.NewNoopMailer(log)
	}
	inviteService := services.NewInviteService(
		noteRepo, inviteRepo, shareRepo, userRepo,
		mailer,
		cfg.Invites.TTL,
		cfg.Invites.FrontendURL,
		log,
	)

	// Initialize monitoring
	prometheusCollector := monitoring.NewPrometheusCollector(nil)

	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddCheck("repositories", repoFactory.HealthCheck, 2*time.Second)

	// Initialize the room gateway
	registry := gateway.NewRegistry()
	hub := gateway.NewHub(registry, cfg.Gateway.SendBufferSize, prometheusCollector, log)

	wsServer := gateway.NewWebSocketServer(accessService, authService, hub, gateway.Options{
		PingInterval:     cfg.Gateway.PingInterval,
		PongTimeout:      cfg.Gateway.PongTimeout,
		WriteTimeout:     cfg.Gateway.WriteTimeout,
		AdmissionTimeout: cfg.Gateway.AdmissionTimeout,
		MaxMessageBytes:  cfg.Gateway.MaxMessageBytes,
		AllowedOrigins:   cfg.Auth.AllowedOrigins,
	}, prometheusCollector, log)

	// Cross-node relay rides on the shared Redis connection
	relayCtx, relayCancel := context.WithCancel(context.Background())
	defer relayCancel()
	if cfg.Relay.Enabled {
		if client := repoFactory.RedisClient(); client != nil {
			relay := distributed.NewRedisRelay(client, hub, utils.GenerateInstanceID(), cfg.Relay.Channel, log)
			hub.SetRelay(relay)
			go func() {
				if err := relay.Run(relayCtx); err != nil && err != context.Canceled {
					log.Errorw("relay stopped", "error", err)
				}
			}()
			log.Info("cross-node delta relay enabled")
		} else {
			log.Warn("relay enabled but Redis is unavailable, running single-node")
		}
	}

	// Periodic note snapshots
	if cfg.Backup.Enabled {
		var storage backup.Storage
		if client := repoFactory.RedisClient(); client != nil {
			storage = backup.NewRedisStorage(client, "")
		} else {
			fileStorage, err := backup.NewFileStorage(cfg.Backup.Directory)
			if err != nil {
				log.Fatalw("failed to create snapshot storage", "error", err)
			}
			storage = fileStorage
		}

		var lock backupinfra.Locker
		if client := repoFactory.RedisClient(); client != nil {
			lock = distributedpkg.NewLock(client, "notemesh:snapshot:lock", 5*time.Minute)
		}

		scheduler := backupinfra.NewScheduler(
			backup.NewService(storage, "1"),
			noteRepo,
			lock,
			backupinfra.Config{Interval: cfg.Backup.Interval, Keep: cfg.Backup.Keep},
			log,
		)
		go scheduler.Start(relayCtx)
		defer scheduler.Stop()
		log.Infow("snapshot scheduler enabled", "interval", cfg.Backup.Interval)
	}

	// Initialize HTTP handlers
	authHandler := httphandlers.NewAuthHandler(authService)
	noteHandler := httphandlers.NewNoteHandler(noteService, authService)
	shareHandler := httphandlers.NewShareHandler(inviteService, authService)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	authHandler.SetupRoutes(router)
	noteHandler.SetupRoutes(router)
	shareHandler.SetupRoutes(router)

	// The live editing channel
	ws := router.Group("/ws")
	ws.Use(middleware.NewWebSocketRateLimitMiddleware(cfg))
	ws.Use(middleware.OptionalAuthMiddleware(authService))
	ws.GET("/note/:note_id", wsServer.HandleWebSocket)
	ws.GET("/note/:note_id/:token", wsServer.HandleWebSocket)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	// Readiness endpoint with real dependency checks
	router.GET("/ready", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		if status.Status != "healthy" {
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server with timeouts. The server write timeout stays zero
	// so long-lived WebSocket sessions are not cut off.
	srv := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: 0,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting NoteMesh server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down NoteMesh server...")

	relayCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Errorw("Error shutting down tracer", "error", err)
		}
	}

	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("NoteMesh server stopped")
}
