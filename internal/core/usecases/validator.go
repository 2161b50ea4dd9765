package usecases

import (
	"log/slog"

	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/pkg/geospatial"
)

// Validation failure reasons, reported as structured results, never as errors.
const (
	ReasonInsufficientPoints   = "insufficient points"
	ReasonInsufficientDistance = "insufficient distance"
	ReasonSelfIntersecting     = "self-intersecting path"
	ReasonInsufficientArea     = "insufficient area"
)

// TerritoryValidator runs the ordered validation battery over a finished
// path: point count, total distance, self-intersection, enclosed area. The
// first failing check wins.
type TerritoryValidator struct {
	params TrackingParams
}

// NewTerritoryValidator creates a validator with the given thresholds.
func NewTerritoryValidator(params TrackingParams) *TerritoryValidator {
	return &TerritoryValidator{params: params}
}

// Validate checks a candidate path and returns a pass/fail result with the
// computed area on success.
func (v *TerritoryValidator) Validate(pts []domain.GeoPoint) domain.ValidationResult {
	if pass := len(pts) >= v.params.ClosureMinPoints; !pass {
		v.logCheck("point_count", false, "points", len(pts))
		return domain.ValidationResult{Reason: ReasonInsufficientPoints}
	}
	v.logCheck("point_count", true, "points", len(pts))

	length := geospatial.PathLength(pts)
	if length < v.params.MinPathLengthM {
		v.logCheck("path_length", false, "length_m", length)
		return domain.ValidationResult{Reason: ReasonInsufficientDistance}
	}
	v.logCheck("path_length", true, "length_m", length)

	if v.selfIntersects(pts) {
		v.logCheck("self_intersection", false)
		return domain.ValidationResult{Reason: ReasonSelfIntersecting}
	}
	v.logCheck("self_intersection", true)

	area := geospatial.RingArea(pts)
	if area < v.params.MinAreaM2 {
		v.logCheck("area", false, "area_m2", area)
		return domain.ValidationResult{Reason: ReasonInsufficientArea}
	}
	v.logCheck("area", true, "area_m2", area)

	return domain.ValidationResult{OK: true, AreaM2: area}
}

// selfIntersects tests every pair of non-adjacent segments. Segments inside
// the seam window at the path's start and end are exempt from mutual
// comparison: the closing seam of a legitimate loop necessarily touches near
// the start, and without the exemption every valid loop would be flagged.
func (v *TerritoryValidator) selfIntersects(pts []domain.GeoPoint) bool {
	n := len(pts) - 1 // segment count
	if n < 3 {
		return false
	}

	w := v.params.SeamWindow
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i < w && j >= n-w {
				continue
			}
			if geospatial.SegmentsIntersect(pts[i], pts[i+1], pts[j], pts[j+1]) {
				return true
			}
		}
	}
	return false
}

func (v *TerritoryValidator) logCheck(check string, pass bool, args ...any) {
	slog.Debug("territory validation check",
		append([]any{"check", check, "pass", pass}, args...)...)
}
