package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/core/ports"
	"github.com/oskarena/landgrab/internal/pkg/geospatial"
	"github.com/oskarena/landgrab/internal/pkg/metrics"
)

func distanceBetween(a, b *domain.LocationSample) float64 {
	return geospatial.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// ExplorationService tracks free-roam distance per owner: no polygon
// semantics, just filtered distance accumulation under a speed ceiling with
// a grace countdown before force-stop.
type ExplorationService struct {
	params    ExplorationParams
	sched     ports.Scheduler
	publisher ports.EventPublisher
	store     ports.ExplorationSessionRepository

	mu   sync.Mutex
	live map[string]*exploreSession
}

type exploreSession struct {
	ownerID    string
	startedAt  time.Time
	distanceM  float64
	last       *domain.LocationSample
	countdown  ports.TimerHandle // non-nil while the overspeed grace runs
	terminated bool
}

// NewExplorationService creates the tracker. store may be nil when sessions
// are not persisted.
func NewExplorationService(
	params ExplorationParams,
	sched ports.Scheduler,
	publisher ports.EventPublisher,
	store ports.ExplorationSessionRepository,
) *ExplorationService {
	return &ExplorationService{
		params:    params,
		sched:     sched,
		publisher: publisher,
		store:     store,
		live:      make(map[string]*exploreSession),
	}
}

// Start opens a session for the owner.
func (s *ExplorationService) Start(ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.live[ownerID]; ok && !sess.terminated {
		return ErrSessionActive
	}
	s.live[ownerID] = &exploreSession{ownerID: ownerID, startedAt: time.Now()}
	slog.Info("exploration session started", "owner", ownerID)
	return nil
}

// Offer feeds one raw sample through the exploration filters. Rejected
// samples are dropped silently; a step beyond the jump threshold moves the
// position reference without adding distance.
func (s *ExplorationService) Offer(sample *domain.LocationSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live[sample.OwnerID]
	if !ok || sess.terminated {
		return
	}

	if sample.AccuracyM > s.params.MaxAccuracyM {
		return
	}
	if sess.last != nil && sample.Time.Sub(sess.last.Time) < s.params.MinInterval {
		return
	}

	if sample.SpeedMS > kmhToMS(s.params.SpeedLimitKMH) {
		if sess.countdown == nil {
			owner := sample.OwnerID
			sess.countdown = s.sched.After(s.params.Grace, func() { s.forceStop(owner) })
			slog.Warn("exploration overspeed, grace countdown started",
				"owner", owner, "speed_ms", sample.SpeedMS)
		}
		// Accumulation is suspended while the countdown runs, but the
		// position reference keeps following the device.
		sess.last = sample
		return
	}

	if sess.countdown != nil {
		// Speed recovered before the countdown expired.
		sess.countdown.Stop()
		sess.countdown = nil
		slog.Info("exploration speed recovered", "owner", sample.OwnerID)
	}

	if sess.last != nil {
		step := distanceBetween(sess.last, sample)
		if step >= s.params.MaxJumpM {
			sess.last = sample
			return
		}
		sess.distanceM += step
	}
	sess.last = sample
}

// Stop ends the owner's session by user request and persists the summary.
func (s *ExplorationService) Stop(ctx context.Context, ownerID string) (domain.ExplorationSession, error) {
	s.mu.Lock()
	sess, ok := s.live[ownerID]
	if !ok {
		s.mu.Unlock()
		return domain.ExplorationSession{}, ErrNoSession
	}
	delete(s.live, ownerID)
	if sess.countdown != nil {
		sess.countdown.Stop()
		sess.countdown = nil
	}
	record := sess.record()
	s.mu.Unlock()

	s.persist(ctx, &record)
	_ = s.publisher.PublishSessionEvent(ctx, &domain.SessionEvent{
		Time: time.Now(), OwnerID: ownerID, Type: domain.EventExplorationEnded,
	})
	metrics.ExplorationStops.WithLabelValues("user").Inc()
	slog.Info("exploration session stopped", "owner", ownerID, "distance_m", record.DistanceM)
	return record, nil
}

// Status returns a snapshot of the owner's session.
func (s *ExplorationService) Status(ownerID string) (domain.ExplorationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.live[ownerID]
	if !ok {
		return domain.ExplorationStatus{}, ErrNoSession
	}
	return domain.ExplorationStatus{
		OwnerID:    sess.ownerID,
		Active:     !sess.terminated,
		DistanceM:  sess.distanceM,
		Duration:   time.Since(sess.startedAt),
		Overspeed:  sess.countdown != nil,
		StartedAt:  sess.startedAt,
		Terminated: sess.terminated,
	}, nil
}

// forceStop fires when the grace countdown expires without recovery. The
// session is reported as a failure, distinct from a user stop. The countdown
// check under the lock makes cancellation atomic with a concurrent recovery:
// if Offer cleared the countdown first, this is a no-op.
func (s *ExplorationService) forceStop(ownerID string) {
	s.mu.Lock()
	sess, ok := s.live[ownerID]
	if !ok || sess.terminated || sess.countdown == nil {
		s.mu.Unlock()
		return
	}
	sess.terminated = true
	sess.countdown = nil
	record := sess.record()
	record.Terminated = true
	s.mu.Unlock()

	ctx := context.Background()
	_ = s.publisher.PublishSessionEvent(ctx, &domain.SessionEvent{
		Time: time.Now(), OwnerID: ownerID, Type: domain.EventExplorationEnded,
		Reason: "speed limit exceeded",
	})
	s.persist(ctx, &record)
	metrics.ExplorationStops.WithLabelValues("force").Inc()
	slog.Warn("exploration session force-stopped", "owner", ownerID)
}

func (s *ExplorationService) persist(ctx context.Context, record *domain.ExplorationSession) {
	if s.store == nil {
		return
	}
	if err := s.store.Insert(ctx, record); err != nil {
		slog.Error("persist exploration session", "owner", record.OwnerID, "error", err)
	}
}

func (e *exploreSession) record() domain.ExplorationSession {
	now := time.Now()
	return domain.ExplorationSession{
		ID:         uuid.NewString(),
		OwnerID:    e.ownerID,
		DistanceM:  e.distanceM,
		Duration:   now.Sub(e.startedAt),
		StartedAt:  e.startedAt,
		EndedAt:    now,
		Terminated: e.terminated,
	}
}
