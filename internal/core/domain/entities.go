package domain

import (
	"encoding/json"
	"math"
	"time"
)

// LocationSample is a raw reading from a device's location source.
type LocationSample struct {
	Time      time.Time `json:"time"`
	OwnerID   string    `json:"owner_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	AccuracyM float64   `json:"accuracy_m"` // horizontal accuracy, meters
	SpeedMS   float64   `json:"speed_ms"`   // instantaneous speed, m/s
}

// Point returns the sample's coordinate.
func (s LocationSample) Point() GeoPoint { return GeoPoint{Lat: s.Lat, Lon: s.Lon} }

// Territory is a validated, closed polygon claim owned by an actor.
// The ring is implicitly closed (last vertex wraps to first).
type Territory struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Ring       []GeoPoint `json:"ring"`
	Bounds     Bounds     `json:"bounds"`
	AreaM2     float64    `json:"area_m2"`
	PointCount int        `json:"point_count"`
	Active     bool       `json:"active"`
	StartedAt  time.Time  `json:"started_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ValidationResult is the outcome of validating a finished path.
// AreaM2 is meaningful only when OK is true.
type ValidationResult struct {
	OK     bool    `json:"ok"`
	Reason string  `json:"reason,omitempty"`
	AreaM2 float64 `json:"area_m2,omitempty"`
}

// WarningLevel is a strictly ordered proximity grade. Only LevelViolation
// blocks; the rest are advisory.
type WarningLevel int

const (
	LevelSafe WarningLevel = iota
	LevelCaution
	LevelWarning
	LevelDanger
	LevelViolation
)

func (l WarningLevel) String() string {
	switch l {
	case LevelSafe:
		return "safe"
	case LevelCaution:
		return "caution"
	case LevelWarning:
		return "warning"
	case LevelDanger:
		return "danger"
	case LevelViolation:
		return "violation"
	default:
		return "unknown"
	}
}

// Blocking reports whether the level forbids continuing the claim.
func (l WarningLevel) Blocking() bool { return l == LevelViolation }

// CollisionKind classifies a blocking collision.
type CollisionKind string

const (
	CollisionPointInside   CollisionKind = "point_inside_territory"
	CollisionBoundaryCross CollisionKind = "path_crosses_boundary"
)

// CollisionResult is the outcome of checking a point or path against the
// set of foreign territories.
type CollisionResult struct {
	Blocked  bool          `json:"blocked"`
	Kind     CollisionKind `json:"kind,omitempty"`
	Message  string        `json:"message,omitempty"`
	NearestM float64       `json:"nearest_m"` // +Inf when no foreign territory exists
	Level    WarningLevel  `json:"level"`
}

// NoCollision is the result when no foreign territory exists at all.
func NoCollision() CollisionResult {
	return CollisionResult{NearestM: math.Inf(1), Level: LevelSafe}
}

// MarshalJSON renders an infinite nearest distance as null, since JSON has
// no representation for +Inf.
func (r CollisionResult) MarshalJSON() ([]byte, error) {
	type alias CollisionResult
	out := struct {
		alias
		NearestM *float64 `json:"nearest_m"`
	}{alias: alias(r)}
	if !math.IsInf(r.NearestM, 0) {
		out.NearestM = &r.NearestM
	}
	return json.Marshal(out)
}

// ClaimState is the lifecycle phase of a claim session.
type ClaimState string

const (
	ClaimTracking  ClaimState = "tracking"
	ClaimClosed    ClaimState = "closed"
	ClaimUploading ClaimState = "uploading"
	ClaimAborted   ClaimState = "aborted"
	ClaimRejected  ClaimState = "rejected"
	ClaimDone      ClaimState = "done"
)

// ClaimStatus is a read-only snapshot of a live claim session.
type ClaimStatus struct {
	OwnerID    string       `json:"owner_id"`
	State      ClaimState   `json:"state"`
	PointCount int          `json:"point_count"`
	Path       Path         `json:"path"`
	Level      WarningLevel `json:"level"`
	NearestM   float64      `json:"nearest_m"`
	StartedAt  time.Time    `json:"started_at"`
}

// MarshalJSON renders an infinite nearest distance as null.
func (s ClaimStatus) MarshalJSON() ([]byte, error) {
	type alias ClaimStatus
	out := struct {
		alias
		NearestM *float64 `json:"nearest_m"`
	}{alias: alias(s)}
	if !math.IsInf(s.NearestM, 0) {
		out.NearestM = &s.NearestM
	}
	return json.Marshal(out)
}

// ExplorationStatus is a read-only snapshot of a free-roam session.
type ExplorationStatus struct {
	OwnerID    string        `json:"owner_id"`
	Active     bool          `json:"active"`
	DistanceM  float64       `json:"distance_m"`
	Duration   time.Duration `json:"duration"`
	Overspeed  bool          `json:"overspeed"` // grace countdown currently running
	StartedAt  time.Time     `json:"started_at"`
	Terminated bool          `json:"terminated"` // force-stopped by the speed ceiling
}

// ExplorationSession is a finished free-roam session as persisted.
type ExplorationSession struct {
	ID         string        `json:"id"`
	OwnerID    string        `json:"owner_id"`
	DistanceM  float64       `json:"distance_m"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    time.Time     `json:"ended_at"`
	Terminated bool          `json:"terminated"`
}

// SessionEventType tags engine lifecycle events published to clients.
type SessionEventType string

const (
	EventClaimStarted     SessionEventType = "claim_started"
	EventClaimClosed      SessionEventType = "claim_closed"
	EventClaimAborted     SessionEventType = "claim_aborted"
	EventClaimRejected    SessionEventType = "claim_rejected"
	EventClaimDone        SessionEventType = "claim_done"
	EventSpeedWarning     SessionEventType = "speed_warning"
	EventExplorationEnded SessionEventType = "exploration_ended"
)

// SessionEvent is a lifecycle notification for one owner's session.
type SessionEvent struct {
	Time    time.Time        `json:"time"`
	OwnerID string           `json:"owner_id"`
	Type    SessionEventType `json:"type"`
	Reason  string           `json:"reason,omitempty"`
}

// ControlAction is a remote command for the tracker process.
type ControlAction string

const (
	ControlClaimStart   ControlAction = "claim.start"
	ControlClaimStop    ControlAction = "claim.stop"
	ControlExploreStart ControlAction = "explore.start"
	ControlExploreStop  ControlAction = "explore.stop"
)

// ControlCommand starts or stops a session on the tracker.
type ControlCommand struct {
	Action  ControlAction `json:"action"`
	OwnerID string        `json:"owner_id"`
	Lat     float64       `json:"lat,omitempty"`
	Lon     float64       `json:"lon,omitempty"`
}
