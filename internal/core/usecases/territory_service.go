package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/core/ports"
	"github.com/oskarena/landgrab/internal/pkg/geospatial"
	"github.com/oskarena/landgrab/internal/pkg/metrics"
)

const (
	cacheKeyActive = "territories:active"
	cacheTTLActive = 60  // seconds; claims invalidate explicitly
	cacheTTLSingle = 600 // seconds
)

// TerritoryService provides cached access to the territory store. The engine
// reads the active set through here on every collision tick, so the list is
// cached aggressively and invalidated on writes.
type TerritoryService struct {
	repo  ports.TerritoryRepository
	cache ports.CacheService
}

// NewTerritoryService creates a new TerritoryService. cache may be nil.
func NewTerritoryService(repo ports.TerritoryRepository, cache ports.CacheService) *TerritoryService {
	return &TerritoryService{repo: repo, cache: cache}
}

// ListActive returns all active territories, read through the cache.
func (s *TerritoryService) ListActive(ctx context.Context) ([]domain.Territory, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKeyActive); err == nil {
			var list []domain.Territory
			if err := json.Unmarshal(data, &list); err == nil {
				metrics.CacheHits.WithLabelValues("list_active").Inc()
				return list, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("list_active").Inc()
	}

	list, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(list); err == nil {
			_ = s.cache.Set(ctx, cacheKeyActive, data, cacheTTLActive)
		}
	}
	return list, nil
}

// GetByID returns a single territory.
func (s *TerritoryService) GetByID(ctx context.Context, id string) (*domain.Territory, error) {
	key := "territories:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var t domain.Territory
			if err := json.Unmarshal(data, &t); err == nil {
				metrics.CacheHits.WithLabelValues("get_by_id").Inc()
				return &t, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("get_by_id").Inc()
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(t); err == nil {
			_ = s.cache.Set(ctx, key, data, cacheTTLSingle)
		}
	}
	return t, nil
}

// FindNearby returns active territories whose polygons come within
// radiusMeters of the point.
func (s *TerritoryService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Territory, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.FindNearby(ctx, lat, lon, radiusMeters, limit)
}

// Upload persists a freshly validated claim and invalidates the active list.
func (s *TerritoryService) Upload(ctx context.Context, t *domain.Territory) error {
	if len(t.Ring) < 3 {
		return fmt.Errorf("territory ring needs at least 3 points, got %d", len(t.Ring))
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.PointCount == 0 {
		t.PointCount = len(t.Ring)
	}
	t.Bounds = geospatial.RingBounds(t.Ring)
	t.Active = true

	if err := s.repo.Insert(ctx, t); err != nil {
		return fmt.Errorf("insert territory: %w", err)
	}
	s.invalidate(ctx, t.ID)
	return nil
}

// SoftDelete deactivates a territory. Records are never physically removed.
func (s *TerritoryService) SoftDelete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("soft delete territory: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *TerritoryService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, cacheKeyActive)
	_ = s.cache.Delete(ctx, "territories:id:"+id)
}
