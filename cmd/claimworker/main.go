package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/oskarena/landgrab/internal/adapters/nats"
	"github.com/oskarena/landgrab/internal/adapters/postgres"
	"github.com/oskarena/landgrab/internal/adapters/valkey"
	"github.com/oskarena/landgrab/internal/core/ports"
	"github.com/oskarena/landgrab/internal/core/usecases"
	"github.com/oskarena/landgrab/internal/pkg/config"
	"github.com/oskarena/landgrab/internal/pkg/logging"
	"github.com/oskarena/landgrab/internal/workflows"
)

func main() {
	cfg, err := config.Load("landgrab-claimworker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("info", "json")

	ctx := context.Background()

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
		log.Fatalf("nats: %v", err)
	}
	defer publisher.Close()

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.ClaimWorkflow)
	w.RegisterActivity(&workflows.ClaimActivities{
		Territories: usecases.NewTerritoryService(postgres.NewTerritoryRepo(db), cacheSvc),
		Publisher:   publisher,
	})

	log.Println("claim worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
