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

	natsadapter "github.com/oskarena/landgrab/internal/adapters/nats"
	"github.com/oskarena/landgrab/internal/adapters/postgres"
	"github.com/oskarena/landgrab/internal/adapters/valkey"
	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/core/ports"
	"github.com/oskarena/landgrab/internal/core/usecases"
	"github.com/oskarena/landgrab/internal/pkg/config"
	"github.com/oskarena/landgrab/internal/pkg/logging"
	"github.com/oskarena/landgrab/internal/pkg/metrics"
	"github.com/oskarena/landgrab/internal/pkg/schedule"
)

// The tracker is the headless variant of the engine: devices publish raw
// samples and control commands to the broker and this process runs the claim
// and exploration sessions against them.
func main() {
	cfg, err := config.Load("landgrab-tracker")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	var cacheSvc ports.CacheService
	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		cacheSvc = cache
		defer cache.Close()
	}

	// NATS
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer publisher.Close()

	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer subscriber.Close()

	// Engine
	territoryRepo := postgres.NewTerritoryRepo(db)
	sessionRepo := postgres.NewExplorationSessionRepo(db)
	territorySvc := usecases.NewTerritoryService(territoryRepo, cacheSvc)
	sched := schedule.New()

	poolStats := sched.Every(15*time.Second, func() { metrics.UpdateDBPoolMetrics(db.Pool.Stat()) })
	defer poolStats.Stop()

	claimSvc := usecases.NewClaimService(cfg.Tracking.Params(), territorySvc, territorySvc, publisher, sched)
	exploreSvc := usecases.NewExplorationService(cfg.Exploration.Params(), sched, publisher, sessionRepo)

	// Feed every raw sample into both session trackers; each applies its own
	// filters and ignores owners without a live session.
	err = subscriber.SubscribeLocationSamples(ctx, func(ctx context.Context, s *domain.LocationSample) error {
		claimSvc.ObserveSample(s)
		exploreSvc.Offer(s)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe location samples: %v", err)
	}

	err = subscriber.SubscribeControlCommands(ctx, func(ctx context.Context, cmd *domain.ControlCommand) error {
		return handleControl(ctx, claimSvc, exploreSvc, cmd)
	})
	if err != nil {
		log.Fatalf("subscribe control commands: %v", err)
	}

	slog.Info("tracker started", "nats", cfg.NATS.URL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())
	cancel()
}

func handleControl(ctx context.Context, claims *usecases.ClaimService, explore *usecases.ExplorationService, cmd *domain.ControlCommand) error {
	switch cmd.Action {
	case domain.ControlClaimStart:
		err := claims.Start(ctx, cmd.OwnerID, domain.GeoPoint{Lat: cmd.Lat, Lon: cmd.Lon})
		if err != nil {
			slog.Warn("claim start refused", "owner", cmd.OwnerID, "error", err)
		}
		// Refusals are answered via session events, not redelivery
		return nil
	case domain.ControlClaimStop:
		if _, err := claims.Stop(ctx, cmd.OwnerID); err != nil {
			slog.Warn("claim stop refused", "owner", cmd.OwnerID, "error", err)
		}
		return nil
	case domain.ControlExploreStart:
		if err := explore.Start(cmd.OwnerID); err != nil {
			slog.Warn("exploration start refused", "owner", cmd.OwnerID, "error", err)
		}
		return nil
	case domain.ControlExploreStop:
		if _, err := explore.Stop(ctx, cmd.OwnerID); err != nil {
			slog.Warn("exploration stop refused", "owner", cmd.OwnerID, "error", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown control action %q", cmd.Action)
	}
}
