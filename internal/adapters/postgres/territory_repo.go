package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/oskarena/landgrab/internal/core/domain"
)

// TerritoryRepo implements ports.TerritoryRepository with pgx. The boundary
// is stored twice: as a PostGIS geography polygon for spatial queries and as
// a jsonb vertex list for lossless round-trips back into the engine.
type TerritoryRepo struct {
	db *DB
}

// NewTerritoryRepo creates a new TerritoryRepo.
func NewTerritoryRepo(db *DB) *TerritoryRepo {
	return &TerritoryRepo{db: db}
}

// Insert persists a validated claim.
func (r *TerritoryRepo) Insert(ctx context.Context, t *domain.Territory) error {
	ring, err := json.Marshal(t.Ring)
	if err != nil {
		return fmt.Errorf("marshal ring: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO territories (id, owner_id, boundary, ring, min_lat, min_lon, max_lat, max_lon, area_m2, point_count, active, started_at)
		VALUES ($1, $2, ST_GeogFromText($3), $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.OwnerID, ringWKT(t.Ring), ring,
		t.Bounds.MinLat, t.Bounds.MinLon, t.Bounds.MaxLat, t.Bounds.MaxLon,
		t.AreaM2, t.PointCount, t.Active, t.StartedAt)
	return err
}

// GetByID returns a territory by UUID, active or not.
func (r *TerritoryRepo) GetByID(ctx context.Context, id string) (*domain.Territory, error) {
	var t domain.Territory
	var ring []byte
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, owner_id, ring, min_lat, min_lon, max_lat, max_lon, area_m2, point_count, active, started_at, created_at
		FROM territories WHERE id = $1
	`, id).Scan(
		&t.ID, &t.OwnerID, &ring,
		&t.Bounds.MinLat, &t.Bounds.MinLon, &t.Bounds.MaxLat, &t.Bounds.MaxLon,
		&t.AreaM2, &t.PointCount, &t.Active, &t.StartedAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ring, &t.Ring); err != nil {
		return nil, fmt.Errorf("unmarshal ring: %w", err)
	}
	return &t, nil
}

// ListActive returns all active territories.
func (r *TerritoryRepo) ListActive(ctx context.Context) ([]domain.Territory, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, owner_id, ring, min_lat, min_lon, max_lat, max_lon, area_m2, point_count, active, started_at, created_at
		FROM territories
		WHERE active
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTerritories(rows)
}

// FindNearby returns active territories whose boundary comes within
// radiusMeters of the point, nearest first, using PostGIS ST_DWithin.
func (r *TerritoryRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Territory, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, owner_id, ring, min_lat, min_lon, max_lat, max_lon, area_m2, point_count, active, started_at, created_at
		FROM territories
		WHERE active
		  AND ST_DWithin(boundary, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY ST_Distance(boundary, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography)
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTerritories(rows)
}

// SoftDelete deactivates a territory. Rows are never physically removed.
func (r *TerritoryRepo) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE territories SET active = false WHERE id = $1 AND active
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("territory %s not found or already inactive", id)
	}
	return nil
}

func scanTerritories(rows pgx.Rows) ([]domain.Territory, error) {
	var out []domain.Territory
	for rows.Next() {
		var t domain.Territory
		var ring []byte
		if err := rows.Scan(
			&t.ID, &t.OwnerID, &ring,
			&t.Bounds.MinLat, &t.Bounds.MinLon, &t.Bounds.MaxLat, &t.Bounds.MaxLon,
			&t.AreaM2, &t.PointCount, &t.Active, &t.StartedAt, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(ring, &t.Ring); err != nil {
			return nil, fmt.Errorf("unmarshal ring: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ringWKT renders the ring as a closed WKT polygon, lon before lat as WKT
// requires. The engine keeps rings implicitly open; PostGIS wants the first
// vertex repeated at the end.
func ringWKT(ring []domain.GeoPoint) string {
	var b strings.Builder
	b.WriteString("POLYGON((")
	for i, p := range ring {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%.8f %.8f", p.Lon, p.Lat)
	}
	if len(ring) > 0 {
		fmt.Fprintf(&b, ", %.8f %.8f", ring[0].Lon, ring[0].Lat)
	}
	b.WriteString("))")
	return b.String()
}
