package usecases

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/core/ports"
	"github.com/oskarena/landgrab/internal/pkg/metrics"
)

var (
	// ErrSessionActive is returned when a session already exists for the owner.
	ErrSessionActive = errors.New("session already active")
	// ErrNoSession is returned when no live session exists for the owner.
	ErrNoSession = errors.New("no active session")
	// ErrClaimBlocked is returned when the start point lies inside a foreign territory.
	ErrClaimBlocked = errors.New("start point inside a foreign territory")
)

// ClaimService orchestrates claim sessions: one accumulating path per owner,
// driven by a sampling tick and a slower collision tick. All mutation of a
// session is serialized on its mutex; timer callbacks that arrive after a
// session is gone are no-ops.
type ClaimService struct {
	params      TrackingParams
	territories *TerritoryService
	collisions  *CollisionDetector
	closure     *ClosureDetector
	validator   *TerritoryValidator
	uploader    ports.ClaimUploader
	publisher   ports.EventPublisher
	sched       ports.Scheduler

	mu       sync.Mutex
	sessions map[string]*claimSession
}

type claimSession struct {
	mu        sync.Mutex
	ownerID   string
	startedAt time.Time
	acc       *PathAccumulator
	state     domain.ClaimState
	level     domain.WarningLevel
	nearestM  float64
	latest    *domain.LocationSample
	ticks     []ports.TimerHandle
}

// NewClaimService wires the engine components together.
func NewClaimService(
	params TrackingParams,
	territories *TerritoryService,
	uploader ports.ClaimUploader,
	publisher ports.EventPublisher,
	sched ports.Scheduler,
) *ClaimService {
	return &ClaimService{
		params:      params,
		territories: territories,
		collisions:  NewCollisionDetector(params),
		closure:     NewClosureDetector(params),
		validator:   NewTerritoryValidator(params),
		uploader:    uploader,
		publisher:   publisher,
		sched:       sched,
		sessions:    make(map[string]*claimSession),
	}
}

// Start begins a claim session for the owner after checking that the start
// point is not inside a foreign territory.
func (s *ClaimService) Start(ctx context.Context, ownerID string, start domain.GeoPoint) error {
	s.mu.Lock()
	if existing, ok := s.sessions[ownerID]; ok && existing.live() {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.mu.Unlock()

	list, err := s.territories.ListActive(ctx)
	if err != nil {
		return err
	}
	if res := s.collisions.CheckStart(start, ownerID, list); res.Blocked {
		_ = s.publisher.PublishWarning(ctx, ownerID, res)
		return ErrClaimBlocked
	}

	sess := &claimSession{
		ownerID:   ownerID,
		startedAt: time.Now(),
		acc:       NewPathAccumulator(s.params),
		state:     domain.ClaimTracking,
		nearestM:  math.Inf(1),
	}

	// Timers are armed before the session is published: a tick firing early
	// finds no session and is a no-op, and ticks is fully written before any
	// other goroutine can reach the session.
	sess.ticks = []ports.TimerHandle{
		s.sched.Every(s.params.SampleInterval, func() { s.sampleTick(ownerID) }),
		s.sched.Every(s.params.CollisionInterval, func() { s.collisionTick(ownerID) }),
	}

	// Re-check under the lock: a concurrent Start may have won the race while
	// the collision check ran.
	s.mu.Lock()
	if existing, ok := s.sessions[ownerID]; ok && existing.live() {
		s.mu.Unlock()
		for _, h := range sess.ticks {
			h.Stop()
		}
		return ErrSessionActive
	}
	s.sessions[ownerID] = sess
	s.mu.Unlock()

	_ = s.publisher.PublishSessionEvent(ctx, &domain.SessionEvent{
		Time: time.Now(), OwnerID: ownerID, Type: domain.EventClaimStarted,
	})
	slog.Info("claim session started", "owner", ownerID)
	return nil
}

// ObserveSample records the latest raw sample for the owner. The sample is
// consumed on the next sampling tick; between ticks newer samples replace
// older ones.
func (s *ClaimService) ObserveSample(sample *domain.LocationSample) {
	sess := s.session(sample.OwnerID)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state == domain.ClaimTracking {
		sess.latest = sample
	}
}

// Stop ends the owner's session, discarding the path. Stopping twice is a
// no-op at the timer level; a second Stop call reports ErrNoSession.
func (s *ClaimService) Stop(ctx context.Context, ownerID string) (domain.ClaimStatus, error) {
	s.mu.Lock()
	sess, ok := s.sessions[ownerID]
	if ok {
		delete(s.sessions, ownerID)
	}
	s.mu.Unlock()
	if !ok {
		return domain.ClaimStatus{}, ErrNoSession
	}

	sess.mu.Lock()
	status := sess.snapshot()
	sess.stopTicksLocked()
	sess.mu.Unlock()

	slog.Info("claim session stopped", "owner", ownerID, "points", status.PointCount)
	return status, nil
}

// Status returns a snapshot of the owner's session.
func (s *ClaimService) Status(ownerID string) (domain.ClaimStatus, error) {
	sess := s.session(ownerID)
	if sess == nil {
		return domain.ClaimStatus{}, ErrNoSession
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(), nil
}

// CheckStart exposes the pre-claim collision check for callers that only
// want the verdict (the API start preflight).
func (s *ClaimService) CheckStart(ctx context.Context, ownerID string, pt domain.GeoPoint) (domain.CollisionResult, error) {
	list, err := s.territories.ListActive(ctx)
	if err != nil {
		return domain.CollisionResult{}, err
	}
	return s.collisions.CheckStart(pt, ownerID, list), nil
}

// Validate runs the validation battery over an arbitrary path (preflight).
func (s *ClaimService) Validate(pts []domain.GeoPoint) domain.ValidationResult {
	return s.validator.Validate(pts)
}

// sampleTick offers the latest observed sample to the accumulator and runs
// closure detection on acceptance.
func (s *ClaimService) sampleTick(ownerID string) {
	sess := s.session(ownerID)
	if sess == nil {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != domain.ClaimTracking || sess.latest == nil {
		return
	}
	sample := *sess.latest
	sess.latest = nil

	ctx := context.Background()
	outcome := sess.acc.Offer(sample)
	metrics.SamplesIngested.WithLabelValues(outcome.String()).Inc()
	switch outcome {
	case OfferJitter, OfferStale:
		return

	case OfferSpeedViolation:
		s.abortLocked(ctx, sess, "hard speed limit exceeded")
		return

	case OfferSpeedWarning:
		_ = s.publisher.PublishSessionEvent(ctx, &domain.SessionEvent{
			Time: time.Now(), OwnerID: ownerID, Type: domain.EventSpeedWarning,
			Reason: "soft speed limit exceeded",
		})
	}

	path := sess.acc.Path()
	if s.closure.IsClosed(path.Points) {
		s.finishLocked(ctx, sess, path)
	}
}

// collisionTick re-checks the live path against the current territory set
// and publishes the graded result.
func (s *ClaimService) collisionTick(ownerID string) {
	sess := s.session(ownerID)
	if sess == nil {
		return
	}

	ctx := context.Background()
	list, err := s.territories.ListActive(ctx)
	if err != nil {
		slog.Warn("collision tick: load territories", "owner", ownerID, "error", err)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != domain.ClaimTracking {
		return
	}

	res := s.collisions.CheckPath(sess.acc.Path().Points, ownerID, list)
	sess.level = res.Level
	sess.nearestM = res.NearestM
	metrics.CollisionWarnings.WithLabelValues(res.Level.String()).Inc()
	_ = s.publisher.PublishWarning(ctx, ownerID, res)

	if res.Blocked {
		s.abortLocked(ctx, sess, res.Message)
	}
}

// finishLocked validates the closed path and hands a passing claim to the
// uploader. Caller holds sess.mu.
func (s *ClaimService) finishLocked(ctx context.Context, sess *claimSession, path domain.Path) {
	sess.state = domain.ClaimClosed
	_ = s.publisher.PublishSessionEvent(ctx, &domain.SessionEvent{
		Time: time.Now(), OwnerID: sess.ownerID, Type: domain.EventClaimClosed,
	})

	result := s.validator.Validate(path.Points)
	if !result.OK {
		sess.state = domain.ClaimRejected
		_ = s.publisher.PublishSessionEvent(ctx, &domain.SessionEvent{
			Time: time.Now(), OwnerID: sess.ownerID, Type: domain.EventClaimRejected,
			Reason: result.Reason,
		})
		sess.stopTicksLocked()
		metrics.ClaimsCompleted.WithLabelValues(string(domain.ClaimRejected)).Inc()
		slog.Info("claim rejected", "owner", sess.ownerID, "reason", result.Reason)
		return
	}

	sess.state = domain.ClaimUploading
	territory := &domain.Territory{
		ID:         uuid.NewString(),
		OwnerID:    sess.ownerID,
		Ring:       path.Points,
		AreaM2:     result.AreaM2,
		PointCount: path.Len(),
		Active:     true,
		StartedAt:  sess.startedAt,
	}

	if err := s.uploader.Upload(ctx, territory); err != nil {
		sess.state = domain.ClaimRejected
		_ = s.publisher.PublishSessionEvent(ctx, &domain.SessionEvent{
			Time: time.Now(), OwnerID: sess.ownerID, Type: domain.EventClaimRejected,
			Reason: "upload failed: " + err.Error(),
		})
		sess.stopTicksLocked()
		metrics.ClaimsCompleted.WithLabelValues(string(domain.ClaimRejected)).Inc()
		slog.Error("claim upload failed", "owner", sess.ownerID, "error", err)
		return
	}

	sess.state = domain.ClaimDone
	_ = s.publisher.PublishSessionEvent(ctx, &domain.SessionEvent{
		Time: time.Now(), OwnerID: sess.ownerID, Type: domain.EventClaimDone,
	})
	sess.stopTicksLocked()
	metrics.ClaimsCompleted.WithLabelValues(string(domain.ClaimDone)).Inc()
	metrics.ClaimAreaM2.Observe(result.AreaM2)
	slog.Info("claim completed", "owner", sess.ownerID, "area_m2", result.AreaM2)
}

// abortLocked marks the session aborted. Observable state is published
// before the timers are cancelled so clients never see a level flicker.
// Caller holds sess.mu.
func (s *ClaimService) abortLocked(ctx context.Context, sess *claimSession, reason string) {
	sess.state = domain.ClaimAborted
	sess.level = domain.LevelViolation
	_ = s.publisher.PublishSessionEvent(ctx, &domain.SessionEvent{
		Time: time.Now(), OwnerID: sess.ownerID, Type: domain.EventClaimAborted,
		Reason: reason,
	})
	sess.stopTicksLocked()
	metrics.ClaimsCompleted.WithLabelValues(string(domain.ClaimAborted)).Inc()
	slog.Warn("claim session aborted", "owner", sess.ownerID, "reason", reason)
}

func (s *ClaimService) session(ownerID string) *claimSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[ownerID]
}

func (c *claimSession) live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case domain.ClaimAborted, domain.ClaimRejected, domain.ClaimDone:
		return false
	}
	return true
}

func (c *claimSession) snapshot() domain.ClaimStatus {
	path := c.acc.Path()
	return domain.ClaimStatus{
		OwnerID:    c.ownerID,
		State:      c.state,
		PointCount: path.Len(),
		Path:       path,
		Level:      c.level,
		NearestM:   c.nearestM,
		StartedAt:  c.startedAt,
	}
}

func (c *claimSession) stopTicksLocked() {
	for _, h := range c.ticks {
		h.Stop()
	}
}
