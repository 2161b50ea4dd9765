package usecases

import "time"

// TrackingParams tunes the claim engine. All thresholds are configuration,
// not literals, so they can be adjusted without touching the algorithms.
type TrackingParams struct {
	MinPointGapM      float64 // below this a sample is GPS jitter
	SoftSpeedKMH      float64 // above this a point is accepted with a warning
	HardSpeedKMH      float64 // above this the session aborts
	ClosureMinPoints  int     // minimum points before a loop can close
	ClosureThresholdM float64 // max distance between first and last point
	MinPathLengthM    float64 // minimum total perimeter
	MinAreaM2         float64 // minimum enclosed area
	SeamWindow        int     // leading/trailing segments exempt from the self-intersection scan
	SafeDistanceM     float64 // proximity grade boundaries
	CautionDistanceM  float64
	WarningDistanceM  float64
	SampleInterval    time.Duration // how often the latest raw sample is offered
	CollisionInterval time.Duration // how often the live path is re-checked
}

// DefaultTrackingParams returns the production defaults.
func DefaultTrackingParams() TrackingParams {
	return TrackingParams{
		MinPointGapM:      10,
		SoftSpeedKMH:      15,
		HardSpeedKMH:      30,
		ClosureMinPoints:  10,
		ClosureThresholdM: 30,
		MinPathLengthM:    50,
		MinAreaM2:         100,
		SeamWindow:        2,
		SafeDistanceM:     100,
		CautionDistanceM:  50,
		WarningDistanceM:  25,
		SampleInterval:    2 * time.Second,
		CollisionInterval: 10 * time.Second,
	}
}

// ExplorationParams tunes the free-roam distance tracker.
type ExplorationParams struct {
	MaxAccuracyM  float64       // samples with worse horizontal accuracy are dropped
	MinInterval   time.Duration // minimum time between counted samples
	MaxJumpM      float64       // a step this large is a GPS glitch, not distance
	SpeedLimitKMH float64
	Grace         time.Duration // overspeed countdown before force-stop
}

// DefaultExplorationParams returns the production defaults.
func DefaultExplorationParams() ExplorationParams {
	return ExplorationParams{
		MaxAccuracyM:  50,
		MinInterval:   time.Second,
		MaxJumpM:      100,
		SpeedLimitKMH: 30,
		Grace:         10 * time.Second,
	}
}

func kmhToMS(kmh float64) float64 { return kmh / 3.6 }
