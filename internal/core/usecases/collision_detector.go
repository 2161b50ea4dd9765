package usecases

import (
	"fmt"
	"math"

	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/pkg/geospatial"
)

// CollisionDetector checks a candidate point or path against the territories
// owned by other actors. It is pure: callers invoke it periodically against a
// live path and turn level transitions into user-facing feedback themselves.
type CollisionDetector struct {
	params TrackingParams
}

// NewCollisionDetector creates a detector with the given distance bands.
func NewCollisionDetector(params TrackingParams) *CollisionDetector {
	return &CollisionDetector{params: params}
}

// CheckStart blocks starting a claim whose start point lies inside a foreign
// territory. It runs containment only; no proximity grading.
func (d *CollisionDetector) CheckStart(pt domain.GeoPoint, ownerID string, territories []domain.Territory) domain.CollisionResult {
	for i := range territories {
		t := &territories[i]
		if !d.foreign(t, ownerID) {
			continue
		}
		if !ringBounds(t).Contains(pt) {
			continue
		}
		if geospatial.PointInRing(pt, t.Ring) {
			return domain.CollisionResult{
				Blocked:  true,
				Kind:     domain.CollisionPointInside,
				Message:  fmt.Sprintf("start point inside territory %s", t.ID),
				NearestM: 0,
				Level:    domain.LevelViolation,
			}
		}
	}
	return domain.NoCollision()
}

// CheckPath checks the live path: a boundary crossing or the last point
// entering a foreign territory is a blocking violation; otherwise the result
// carries a proximity grade for the path's current end.
func (d *CollisionDetector) CheckPath(pts []domain.GeoPoint, ownerID string, territories []domain.Territory) domain.CollisionResult {
	if len(pts) == 0 {
		return domain.NoCollision()
	}
	last := pts[len(pts)-1]
	pathBounds := geospatial.RingBounds(pts)

	for i := range territories {
		t := &territories[i]
		if !d.foreign(t, ownerID) {
			continue
		}

		if boundsOverlap(pathBounds, ringBounds(t)) {
			for s := 1; s < len(pts); s++ {
				if geospatial.SegmentCrossesRing(pts[s-1], pts[s], t.Ring) {
					return domain.CollisionResult{
						Blocked:  true,
						Kind:     domain.CollisionBoundaryCross,
						Message:  fmt.Sprintf("path crosses boundary of territory %s", t.ID),
						NearestM: 0,
						Level:    domain.LevelViolation,
					}
				}
			}
		}

		if ringBounds(t).Contains(last) && geospatial.PointInRing(last, t.Ring) {
			return domain.CollisionResult{
				Blocked:  true,
				Kind:     domain.CollisionPointInside,
				Message:  fmt.Sprintf("position inside territory %s", t.ID),
				NearestM: 0,
				Level:    domain.LevelViolation,
			}
		}
	}

	res := domain.NoCollision()
	for i := range territories {
		t := &territories[i]
		if !d.foreign(t, ownerID) {
			continue
		}
		for _, v := range t.Ring {
			if dist := geospatial.Distance(last, v); dist < res.NearestM {
				res.NearestM = dist
			}
		}
	}
	res.Level = d.grade(res.NearestM)
	return res
}

// grade maps a nearest-vertex distance to an advisory warning level.
func (d *CollisionDetector) grade(nearestM float64) domain.WarningLevel {
	switch {
	case math.IsInf(nearestM, 1), nearestM >= d.params.SafeDistanceM:
		return domain.LevelSafe
	case nearestM >= d.params.CautionDistanceM:
		return domain.LevelCaution
	case nearestM >= d.params.WarningDistanceM:
		return domain.LevelWarning
	default:
		return domain.LevelDanger
	}
}

func (d *CollisionDetector) foreign(t *domain.Territory, ownerID string) bool {
	return t.Active && t.OwnerID != ownerID && len(t.Ring) >= 3
}

// ringBounds returns the stored bounding box, computing it when the record
// predates the bbox columns.
func ringBounds(t *domain.Territory) domain.Bounds {
	b := t.Bounds
	if b.MinLat == 0 && b.MaxLat == 0 && b.MinLon == 0 && b.MaxLon == 0 {
		b = geospatial.RingBounds(t.Ring)
	}
	return b
}

func boundsOverlap(a, b domain.Bounds) bool {
	return a.MinLat <= b.MaxLat && b.MinLat <= a.MaxLat &&
		a.MinLon <= b.MaxLon && b.MinLon <= a.MaxLon
}
