package http

import (
	"github.com/nats-io/nats.go"

	"github.com/oskarena/landgrab/internal/adapters/postgres"
	"github.com/oskarena/landgrab/internal/adapters/valkey"
	"github.com/oskarena/landgrab/internal/core/ports"
	"github.com/oskarena/landgrab/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Territories *usecases.TerritoryService
	Claims      *usecases.ClaimService
	Exploration *usecases.ExplorationService
	Sessions    ports.ExplorationSessionRepository
	Publisher   ports.EventPublisher
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
}
