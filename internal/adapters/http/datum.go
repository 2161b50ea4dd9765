package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/pkg/geospatial"
)

// wantsGCJ02 reports whether the client asked for GCJ-02 output via
// ?datum=gcj02. The default (and any other value) is WGS-84 as stored.
func wantsGCJ02(c *fiber.Ctx) bool {
	return c.Query("datum") == "gcj02"
}

// territoryToGCJ02 returns a copy with the ring and bounds shifted to GCJ-02.
// Outside the transform's coverage the copy is identical.
func territoryToGCJ02(t domain.Territory) domain.Territory {
	ring := make([]domain.GeoPoint, len(t.Ring))
	for i, p := range t.Ring {
		ring[i] = geospatial.ToGCJ02(p)
	}
	t.Ring = ring
	t.Bounds = geospatial.RingBounds(ring)
	return t
}

func territoriesToGCJ02(list []domain.Territory) []domain.Territory {
	out := make([]domain.Territory, len(list))
	for i, t := range list {
		out[i] = territoryToGCJ02(t)
	}
	return out
}
