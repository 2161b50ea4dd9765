package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/oskarena/landgrab/internal/adapters/http"
	natsadapter "github.com/oskarena/landgrab/internal/adapters/nats"
	"github.com/oskarena/landgrab/internal/adapters/postgres"
	"github.com/oskarena/landgrab/internal/adapters/valkey"
	"github.com/oskarena/landgrab/internal/core/ports"
	"github.com/oskarena/landgrab/internal/core/usecases"
	"github.com/oskarena/landgrab/internal/pkg/config"
	"github.com/oskarena/landgrab/internal/pkg/logging"
	"github.com/oskarena/landgrab/internal/pkg/metrics"
	"github.com/oskarena/landgrab/internal/pkg/schedule"
	"github.com/oskarena/landgrab/internal/pkg/telemetry"
	"github.com/oskarena/landgrab/internal/workflows"
)

func main() {
	cfg, err := config.Load("landgrab-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		cacheSvc = cache
		defer cache.Close()
	}

	// NATS
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer publisher.Close()

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	territoryRepo := postgres.NewTerritoryRepo(db)
	sessionRepo := postgres.NewExplorationSessionRepo(db)

	// Use cases
	territorySvc := usecases.NewTerritoryService(territoryRepo, cacheSvc)
	sched := schedule.New()

	// Export pool stats alongside the request metrics.
	poolStats := sched.Every(15*time.Second, func() { metrics.UpdateDBPoolMetrics(db.Pool.Stat()) })
	defer poolStats.Stop()

	// Claim upload: through the Temporal saga when available, a direct
	// repository write otherwise.
	var uploader ports.ClaimUploader = territorySvc
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{HostPort: cfg.Temporal.HostPort})
		if err != nil {
			slog.Warn("temporal unavailable, claims persist directly", "error", err)
		} else {
			defer tc.Close()
			uploader = workflows.NewWorkflowUploader(tc, cfg.Temporal.TaskQueue)
		}
	}

	claimSvc := usecases.NewClaimService(cfg.Tracking.Params(), territorySvc, uploader, publisher, sched)
	exploreSvc := usecases.NewExplorationService(cfg.Exploration.Params(), sched, publisher, sessionRepo)

	deps := &http.Dependencies{
		Territories: territorySvc,
		Claims:      claimSvc,
		Exploration: exploreSvc,
		Sessions:    sessionRepo,
		Publisher:   publisher,
		NATS:        natsConn,
		DB:          db,
		Cache:       cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Landgrab API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.landgrab.app",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
