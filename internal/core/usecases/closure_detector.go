package usecases

import (
	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/pkg/geospatial"
)

// ClosureDetector decides whether a path has returned to its start. Callers
// check once per newly accepted point and short-circuit after the first true.
type ClosureDetector struct {
	params TrackingParams
}

// NewClosureDetector creates a detector with the given thresholds.
func NewClosureDetector(params TrackingParams) *ClosureDetector {
	return &ClosureDetector{params: params}
}

// IsClosed reports whether the path's end is within the closure threshold of
// its start. Paths below the minimum point count are never closed, whatever
// their geometry.
func (d *ClosureDetector) IsClosed(pts []domain.GeoPoint) bool {
	if len(pts) < d.params.ClosureMinPoints {
		return false
	}
	return geospatial.Distance(pts[0], pts[len(pts)-1]) <= d.params.ClosureThresholdM
}
