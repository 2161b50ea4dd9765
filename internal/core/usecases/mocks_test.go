package usecases_test

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/core/ports"
)

// pt builds a GeoPoint offset by meters east/north from a fixed base, so
// tests can reason in meters.
func pt(xm, ym float64) domain.GeoPoint {
	const baseLat, baseLon = 43.0, -2.0
	return domain.GeoPoint{
		Lat: baseLat + ym/111320.0,
		Lon: baseLon + xm/(111320.0*math.Cos(baseLat*math.Pi/180)),
	}
}

// sampleAt wraps pt into a raw location sample.
func sampleAt(owner string, xm, ym float64, at time.Time) *domain.LocationSample {
	p := pt(xm, ym)
	return &domain.LocationSample{Time: at, OwnerID: owner, Lat: p.Lat, Lon: p.Lon, AccuracyM: 5}
}

// squareLoop returns a closed 12-point square loop with 20 m steps
// (side 60 m, area ~3600 m²). The last point is 20 m from the start.
func squareLoop() []domain.GeoPoint {
	coords := [][2]float64{
		{0, 0}, {20, 0}, {40, 0}, {60, 0},
		{60, 20}, {60, 40}, {60, 60},
		{40, 60}, {20, 60}, {0, 60},
		{0, 40}, {0, 20},
	}
	out := make([]domain.GeoPoint, len(coords))
	for i, c := range coords {
		out[i] = pt(c[0], c[1])
	}
	return out
}

// figureEight returns a 12-point bowtie whose middle segments cross away
// from the closing seam.
func figureEight() []domain.GeoPoint {
	coords := [][2]float64{
		{0, 0}, {20, 13.3}, {40, 26.7}, {60, 40},
		{60, 26.7}, {60, 13.3}, {60, 0},
		{40, 13.3}, {20, 26.7}, {0, 40},
		{0, 26.7}, {0, 13.3},
	}
	out := make([]domain.GeoPoint, len(coords))
	for i, c := range coords {
		out[i] = pt(c[0], c[1])
	}
	return out
}

// --- Mock TerritoryRepository ---

type mockTerritoryRepo struct {
	mu          sync.Mutex
	territories []domain.Territory
	inserted    []domain.Territory
	deleted     []string
	listErr     error
	listGate    func() // called before each ListActive, for interleaving tests
}

func (m *mockTerritoryRepo) Insert(ctx context.Context, t *domain.Territory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, *t)
	m.territories = append(m.territories, *t)
	return nil
}

func (m *mockTerritoryRepo) GetByID(ctx context.Context, id string) (*domain.Territory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.territories {
		if m.territories[i].ID == id {
			t := m.territories[i]
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockTerritoryRepo) ListActive(ctx context.Context) ([]domain.Territory, error) {
	if m.listGate != nil {
		m.listGate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Territory
	for _, t := range m.territories {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTerritoryRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Territory, error) {
	return m.ListActive(ctx)
}

func (m *mockTerritoryRepo) SoftDelete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	for i := range m.territories {
		if m.territories[i].ID == id {
			m.territories[i].Active = false
		}
	}
	return nil
}

// ErrNotFound stands in for a repository miss in tests.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu       sync.Mutex
	claims   []domain.Territory
	warnings []domain.CollisionResult
	events   []domain.SessionEvent
}

func (m *mockPublisher) PublishClaim(ctx context.Context, t *domain.Territory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = append(m.claims, *t)
	return nil
}

func (m *mockPublisher) PublishWarning(ctx context.Context, ownerID string, res domain.CollisionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings = append(m.warnings, res)
	return nil
}

func (m *mockPublisher) PublishSessionEvent(ctx context.Context, ev *domain.SessionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return nil
}

func (m *mockPublisher) PublishBroadcast(ctx context.Context, data []byte) error { return nil }

func (m *mockPublisher) PublishLocationSample(ctx context.Context, s *domain.LocationSample) error {
	return nil
}

func (m *mockPublisher) eventTypes() []domain.SessionEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SessionEventType
	for _, ev := range m.events {
		out = append(out, ev.Type)
	}
	return out
}

func (m *mockPublisher) countEvents(typ domain.SessionEventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// --- Mock uploader ---

type mockUploader struct {
	mu       sync.Mutex
	uploaded []domain.Territory
	err      error
}

func (m *mockUploader) Upload(ctx context.Context, t *domain.Territory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.uploaded = append(m.uploaded, *t)
	return nil
}

// --- Mock cache ---

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, ErrNotFound
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Fake scheduler ---

// fakeJob is a manually fired scheduler entry. Firing a stopped job is a
// no-op, matching the real scheduler's guarantee.
type fakeJob struct {
	mu       sync.Mutex
	fn       func()
	interval time.Duration
	stopped  bool
}

func (j *fakeJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stopped = true
}

func (j *fakeJob) fire() {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return
	}
	fn := j.fn
	j.mu.Unlock()
	fn()
}

type fakeScheduler struct {
	mu     sync.Mutex
	everys []*fakeJob
	afters []*fakeJob
}

func newFakeScheduler() *fakeScheduler { return &fakeScheduler{} }

func (f *fakeScheduler) Every(interval time.Duration, fn func()) ports.TimerHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := &fakeJob{fn: fn, interval: interval}
	f.everys = append(f.everys, j)
	return j
}

func (f *fakeScheduler) After(delay time.Duration, fn func()) ports.TimerHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := &fakeJob{fn: fn, interval: delay}
	f.afters = append(f.afters, j)
	return j
}

// every returns the i-th repeating job registered, in order.
func (f *fakeScheduler) every(i int) *fakeJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.everys[i]
}

// liveEverys counts repeating jobs that have not been stopped.
func (f *fakeScheduler) liveEverys() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, j := range f.everys {
		j.mu.Lock()
		if !j.stopped {
			n++
		}
		j.mu.Unlock()
	}
	return n
}

// lastAfter returns the most recent one-shot job, or nil.
func (f *fakeScheduler) lastAfter() *fakeJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.afters) == 0 {
		return nil
	}
	return f.afters[len(f.afters)-1]
}
