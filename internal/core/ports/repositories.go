package ports

import (
	"context"

	"github.com/oskarena/landgrab/internal/core/domain"
)

// TerritoryRepository persists territory claims. Territories are never
// physically deleted; SoftDelete flips the active flag.
type TerritoryRepository interface {
	Insert(ctx context.Context, t *domain.Territory) error
	GetByID(ctx context.Context, id string) (*domain.Territory, error)
	ListActive(ctx context.Context) ([]domain.Territory, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Territory, error)
	SoftDelete(ctx context.Context, id string) error
}

// ExplorationSessionRepository persists finished free-roam sessions.
type ExplorationSessionRepository interface {
	Insert(ctx context.Context, s *domain.ExplorationSession) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.ExplorationSession, error)
}
