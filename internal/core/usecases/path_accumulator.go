package usecases

import (
	"sync"
	"time"

	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/pkg/geospatial"
)

// OfferOutcome is the result of offering a raw sample to the accumulator.
type OfferOutcome int

const (
	// OfferAccepted means the point was appended.
	OfferAccepted OfferOutcome = iota
	// OfferJitter means the point was within the minimum gap and dropped.
	OfferJitter
	// OfferSpeedWarning means the point was appended but the soft speed
	// ceiling was exceeded; callers should surface an advisory.
	OfferSpeedWarning
	// OfferSpeedViolation means the hard speed ceiling was exceeded; the
	// point was rejected and the session must abort.
	OfferSpeedViolation
	// OfferStale means the sample was timestamped at or before the last
	// accepted point and dropped; it would bypass the speed check otherwise.
	OfferStale
)

func (o OfferOutcome) String() string {
	switch o {
	case OfferAccepted:
		return "accepted"
	case OfferJitter:
		return "jitter"
	case OfferSpeedWarning:
		return "speed_warning"
	case OfferSpeedViolation:
		return "speed_violation"
	case OfferStale:
		return "stale"
	default:
		return "unknown"
	}
}

// PathAccumulator buffers accepted path points, filtering raw samples by
// distance and then speed. The ordering matters: short jittery steps are
// dropped before the speed check, otherwise GPS noise while standing still
// would produce false speed violations.
type PathAccumulator struct {
	mu     sync.Mutex
	params TrackingParams
	points []domain.GeoPoint
	lastAt time.Time
}

// NewPathAccumulator creates an empty accumulator.
func NewPathAccumulator(params TrackingParams) *PathAccumulator {
	return &PathAccumulator{params: params}
}

// Reset clears the path and timestamps. Called at tracking start/stop/abort.
func (a *PathAccumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.points = nil
	a.lastAt = time.Time{}
}

// Offer applies the distance and speed filters to a raw sample and appends
// it when accepted.
func (a *PathAccumulator) Offer(s domain.LocationSample) OfferOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	pt := s.Point()

	// First point is accepted unconditionally.
	if len(a.points) == 0 {
		a.points = append(a.points, pt)
		a.lastAt = s.Time
		return OfferAccepted
	}

	if !s.Time.After(a.lastAt) {
		return OfferStale
	}

	last := a.points[len(a.points)-1]
	dist := geospatial.Distance(last, pt)
	if dist <= a.params.MinPointGapM {
		return OfferJitter
	}

	speed := dist / s.Time.Sub(a.lastAt).Seconds()
	if speed > kmhToMS(a.params.HardSpeedKMH) {
		return OfferSpeedViolation
	}

	a.points = append(a.points, pt)
	a.lastAt = s.Time
	if speed > kmhToMS(a.params.SoftSpeedKMH) {
		return OfferSpeedWarning
	}
	return OfferAccepted
}

// Path returns a copy of the accepted points.
func (a *PathAccumulator) Path() domain.Path {
	a.mu.Lock()
	defer a.mu.Unlock()
	pts := make([]domain.GeoPoint, len(a.points))
	copy(pts, a.points)
	return domain.Path{Points: pts}
}

// Len returns the accepted point count.
func (a *PathAccumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.points)
}
