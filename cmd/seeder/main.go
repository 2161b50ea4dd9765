package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/core/usecases"
	"github.com/oskarena/landgrab/internal/pkg/config"
	"github.com/oskarena/landgrab/internal/pkg/geospatial"
)

// The seeder loads a GeoJSON FeatureCollection of polygons as pre-claimed
// territories, for demo maps and load testing. Each feature needs an "owner"
// property; rings that fail validation are skipped.

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   FeatureGeometry `json:"geometry"`
}

type FeatureGeometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

func main() {
	path := "seed/territories.geojson"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load("landgrab-seeder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}

	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		log.Fatalf("parse geojson: %v", err)
	}

	validator := usecases.NewTerritoryValidator(cfg.Tracking.Params())

	const batchSize = 100
	batch := &pgx.Batch{}
	count := 0
	total := 0
	skipped := 0

	for i, f := range fc.Features {
		if f.Geometry.Type != "Polygon" || len(f.Geometry.Coordinates) == 0 {
			skipped++
			continue
		}
		owner, _ := f.Properties["owner"].(string)
		if owner == "" {
			log.Printf("feature %d: no owner property, skipping", i)
			skipped++
			continue
		}

		ring := outerRing(f.Geometry.Coordinates[0])
		result := validator.Validate(ring)
		if !result.OK {
			log.Printf("feature %d (%s): %s, skipping", i, owner, result.Reason)
			skipped++
			continue
		}

		bounds := geospatial.RingBounds(ring)
		ringJSON, err := json.Marshal(ring)
		if err != nil {
			log.Fatalf("feature %d: marshal ring: %v", i, err)
		}

		batch.Queue(`
			INSERT INTO territories (id, owner_id, boundary, ring, min_lat, min_lon, max_lat, max_lon, area_m2, point_count, active, started_at)
			VALUES ($1, $2, ST_GeogFromText($3), $4, $5, $6, $7, $8, $9, $10, true, $11)
		`, uuid.NewString(), owner, polygonWKT(ring), ringJSON,
			bounds.MinLat, bounds.MinLon, bounds.MaxLat, bounds.MaxLon,
			result.AreaM2, len(ring), time.Now())

		count++
		total++

		if count >= batchSize {
			if err := flushBatch(ctx, pool, batch, count); err != nil {
				log.Fatalf("flush: %v", err)
			}
			batch = &pgx.Batch{}
			count = 0
		}
	}

	if count > 0 {
		if err := flushBatch(ctx, pool, batch, count); err != nil {
			log.Fatalf("flush: %v", err)
		}
	}

	log.Printf("seeded %d territories (%d skipped)", total, skipped)
}

// outerRing converts GeoJSON lon/lat pairs into engine points, dropping the
// closing vertex GeoJSON repeats.
func outerRing(coords [][2]float64) []domain.GeoPoint {
	if len(coords) > 1 && coords[0] == coords[len(coords)-1] {
		coords = coords[:len(coords)-1]
	}
	ring := make([]domain.GeoPoint, 0, len(coords))
	for _, c := range coords {
		ring = append(ring, domain.GeoPoint{Lat: c[1], Lon: c[0]})
	}
	return ring
}

// polygonWKT renders a closed WKT polygon, lon before lat.
func polygonWKT(ring []domain.GeoPoint) string {
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

func flushBatch(ctx context.Context, pool *pgxpool.Pool, batch *pgx.Batch, count int) error {
	br := pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < count; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return nil
}
