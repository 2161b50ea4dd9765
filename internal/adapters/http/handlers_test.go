package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/oskarena/landgrab/internal/adapters/http"
	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/core/ports"
	"github.com/oskarena/landgrab/internal/core/usecases"
)

// ---- Mock repositories ----

type mockTerritoryRepo struct {
	listActiveFn func(ctx context.Context) ([]domain.Territory, error)
	getByIDFn    func(ctx context.Context, id string) (*domain.Territory, error)
	findNearbyFn func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Territory, error)
	softDeleteFn func(ctx context.Context, id string) error
}

func (m *mockTerritoryRepo) Insert(ctx context.Context, t *domain.Territory) error { return nil }
func (m *mockTerritoryRepo) ListActive(ctx context.Context) ([]domain.Territory, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, nil
}
func (m *mockTerritoryRepo) GetByID(ctx context.Context, id string) (*domain.Territory, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockTerritoryRepo) FindNearby(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Territory, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radius, limit)
	}
	return nil, nil
}
func (m *mockTerritoryRepo) SoftDelete(ctx context.Context, id string) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id)
	}
	return nil
}

type mockSessionRepo struct {
	listByOwnerFn func(ctx context.Context, ownerID string, limit int) ([]domain.ExplorationSession, error)
}

func (m *mockSessionRepo) Insert(ctx context.Context, s *domain.ExplorationSession) error { return nil }
func (m *mockSessionRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.ExplorationSession, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID, limit)
	}
	return nil, nil
}

type mockPublisher struct {
	mu      sync.Mutex
	samples []domain.LocationSample
}

func (m *mockPublisher) PublishClaim(ctx context.Context, t *domain.Territory) error { return nil }
func (m *mockPublisher) PublishWarning(ctx context.Context, ownerID string, res domain.CollisionResult) error {
	return nil
}
func (m *mockPublisher) PublishSessionEvent(ctx context.Context, ev *domain.SessionEvent) error {
	return nil
}
func (m *mockPublisher) PublishBroadcast(ctx context.Context, data []byte) error { return nil }
func (m *mockPublisher) PublishLocationSample(ctx context.Context, s *domain.LocationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, *s)
	return nil
}

func (m *mockPublisher) sampleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}

type mockUploader struct{}

func (m *mockUploader) Upload(ctx context.Context, t *domain.Territory) error { return nil }

// noopScheduler hands out inert timers so sessions never tick on their own.
type noopScheduler struct{}

type noopHandle struct{}

func (noopHandle) Stop() {}

func (noopScheduler) Every(interval time.Duration, fn func()) ports.TimerHandle { return noopHandle{} }
func (noopScheduler) After(delay time.Duration, fn func()) ports.TimerHandle    { return noopHandle{} }

// ---- Test helpers ----

const (
	baseLat = 43.0
	baseLon = -2.0
)

// pt converts meter offsets from the base coordinate into a GeoPoint.
func pt(xm, ym float64) domain.GeoPoint {
	return domain.GeoPoint{
		Lat: baseLat + ym/111320.0,
		Lon: baseLon + xm/(111320.0*math.Cos(baseLat*math.Pi/180)),
	}
}

// squareRing returns a 12-point closed walk around a 60 m square, large
// enough to pass every validation gate.
func squareRing() []domain.GeoPoint {
	steps := [][2]float64{
		{0, 0}, {20, 0}, {40, 0}, {60, 0},
		{60, 20}, {60, 40}, {60, 60},
		{40, 60}, {20, 60}, {0, 60},
		{0, 40}, {0, 20},
	}
	ring := make([]domain.GeoPoint, 0, len(steps))
	for _, s := range steps {
		ring = append(ring, pt(s[0], s[1]))
	}
	return ring
}

// territoryAround builds a square territory centered on the base point, so
// the base point itself lies inside it.
func territoryAround(id, owner string) domain.Territory {
	half := 30.0
	return domain.Territory{
		ID:      id,
		OwnerID: owner,
		Ring: []domain.GeoPoint{
			pt(-half, -half), pt(half, -half), pt(half, half), pt(-half, half),
		},
		AreaM2:     half * half * 4,
		PointCount: 4,
		Active:     true,
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	territories := usecases.NewTerritoryService(&mockTerritoryRepo{}, nil)
	sched := noopScheduler{}
	sessions := &mockSessionRepo{}
	d := &handler.Dependencies{
		Territories: territories,
		Claims: usecases.NewClaimService(usecases.DefaultTrackingParams(),
			territories, &mockUploader{}, &mockPublisher{}, sched),
		Exploration: usecases.NewExplorationService(usecases.DefaultExplorationParams(),
			sched, &mockPublisher{}, sessions),
		Sessions:  sessions,
		Publisher: &mockPublisher{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// withTerritories swaps in a territory repo and rebuilds the services that
// read from it.
func withTerritories(repo *mockTerritoryRepo) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		territories := usecases.NewTerritoryService(repo, nil)
		d.Territories = territories
		d.Claims = usecases.NewClaimService(usecases.DefaultTrackingParams(),
			territories, &mockUploader{}, &mockPublisher{}, noopScheduler{})
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

// ---- Territory handler tests ----

func TestListTerritories_Success(t *testing.T) {
	deps := makeDeps(withTerritories(&mockTerritoryRepo{
		listActiveFn: func(ctx context.Context) ([]domain.Territory, error) {
			return []domain.Territory{
				{ID: "t1", OwnerID: "ana", AreaM2: 3600},
				{ID: "t2", OwnerID: "unai", AreaM2: 1200},
			}, nil
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/territories", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Territory `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 2 {
		t.Errorf("expected total 2, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 territories, got %d", len(result.Data))
	}
}

func TestListTerritories_Pagination(t *testing.T) {
	territories := make([]domain.Territory, 5)
	for i := range territories {
		territories[i] = domain.Territory{ID: fmt.Sprintf("t%d", i), OwnerID: "ana"}
	}

	deps := makeDeps(withTerritories(&mockTerritoryRepo{
		listActiveFn: func(ctx context.Context) ([]domain.Territory, error) { return territories, nil },
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/territories?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Territory `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 territories in page, got %d", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("expected offset 2, got %d", result.Pagination.Offset)
	}
}

func TestListTerritories_LinkHeader(t *testing.T) {
	territories := make([]domain.Territory, 10)
	for i := range territories {
		territories[i] = domain.Territory{ID: fmt.Sprintf("t%d", i)}
	}

	deps := makeDeps(withTerritories(&mockTerritoryRepo{
		listActiveFn: func(ctx context.Context) ([]domain.Territory, error) { return territories, nil },
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/territories?offset=0&limit=3", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	link := resp.Header.Get("Link")
	if link == "" {
		t.Fatal("expected Link header, got empty")
	}
	if !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %s", link)
	}
	if !strings.Contains(link, `rel="first"`) {
		t.Errorf("expected first link, got %s", link)
	}
	if !strings.Contains(link, `rel="last"`) {
		t.Errorf("expected last link, got %s", link)
	}
}

func TestNearbyTerritories_Success(t *testing.T) {
	deps := makeDeps(withTerritories(&mockTerritoryRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Territory, error) {
			return []domain.Territory{territoryAround("t1", "ana")}, nil
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/territories/nearby?lat=43.0&lon=-2.0&radius=500", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var territories []domain.Territory
	json.NewDecoder(resp.Body).Decode(&territories)
	if len(territories) != 1 {
		t.Errorf("expected 1 territory, got %d", len(territories))
	}
}

func TestNearbyTerritories_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/territories/nearby", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Status int    `json:"status"`
		Code   string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request error, got %s", apiErr.Code)
	}
}

func TestNearbyTerritories_BadRadius(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/territories/nearby?lat=43.0&lon=-2.0&radius=50000", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetTerritory_Success(t *testing.T) {
	deps := makeDeps(withTerritories(&mockTerritoryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Territory, error) {
			tr := territoryAround(id, "ana")
			return &tr, nil
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/territories/abc-123", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var territory domain.Territory
	json.NewDecoder(resp.Body).Decode(&territory)
	if territory.OwnerID != "ana" {
		t.Errorf("expected owner ana, got %s", territory.OwnerID)
	}
}

func TestGetTerritory_NotFound(t *testing.T) {
	deps := makeDeps(withTerritories(&mockTerritoryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Territory, error) {
			return nil, fmt.Errorf("not found")
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/territories/nonexistent-id", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetTerritory_GCJ02Datum(t *testing.T) {
	// The datum shift only applies inside the Chinese bounding box; a ring
	// around Beijing must come back with every vertex moved.
	original := domain.Territory{
		ID:      "t1",
		OwnerID: "ana",
		Ring: []domain.GeoPoint{
			{Lat: 39.900, Lon: 116.400},
			{Lat: 39.901, Lon: 116.400},
			{Lat: 39.901, Lon: 116.401},
			{Lat: 39.900, Lon: 116.401},
		},
		Active: true,
	}
	deps := makeDeps(withTerritories(&mockTerritoryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Territory, error) {
			tr := original
			return &tr, nil
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/territories/t1?datum=gcj02", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var shifted domain.Territory
	json.NewDecoder(resp.Body).Decode(&shifted)
	if len(shifted.Ring) != len(original.Ring) {
		t.Fatalf("ring length changed: %d vs %d", len(shifted.Ring), len(original.Ring))
	}
	if shifted.Ring[0] == original.Ring[0] {
		t.Error("expected transformed coordinates, got identical ring")
	}
}

func TestDeleteTerritory_Success(t *testing.T) {
	deleted := ""
	deps := makeDeps(withTerritories(&mockTerritoryRepo{
		softDeleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}))
	app := setupApp(deps)

	req := httptest.NewRequest("DELETE", "/v1/territories/t1", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if deleted != "t1" {
		t.Errorf("expected soft delete of t1, got %q", deleted)
	}
}

// ---- Claim handler tests ----

func claimBody(lat, lon float64) io.Reader {
	return strings.NewReader(fmt.Sprintf(`{"lat":%f,"lon":%f}`, lat, lon))
}

func TestStartClaim_Success(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/claims/ana/start", claimBody(baseLat, baseLon))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result struct {
		OwnerID string `json:"owner_id"`
		State   string `json:"state"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.State != string(domain.ClaimTracking) {
		t.Errorf("expected tracking state, got %s", result.State)
	}
}

func TestStartClaim_Conflict(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/claims/ana/start", claimBody(baseLat, baseLon))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("first start: expected 201, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("POST", "/v1/claims/ana/start", claimBody(baseLat, baseLon))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 409 {
		t.Fatalf("second start: expected 409, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "conflict" {
		t.Errorf("expected conflict error, got %s", apiErr.Code)
	}
}

func TestStartClaim_BlockedInsideForeignTerritory(t *testing.T) {
	deps := makeDeps(withTerritories(&mockTerritoryRepo{
		listActiveFn: func(ctx context.Context) ([]domain.Territory, error) {
			return []domain.Territory{territoryAround("t1", "unai")}, nil
		},
	}))
	app := setupApp(deps)

	// The base point sits inside unai's territory, so ana cannot start there.
	req := httptest.NewRequest("POST", "/v1/claims/ana/start", claimBody(baseLat, baseLon))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 403 {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestStartClaim_MissingBody(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/claims/ana/start", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestClaimStatus_NoSession(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/claims/ana", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestClaimStatus_AfterStart(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/claims/ana/start", claimBody(baseLat, baseLon))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("start: expected 201, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/v1/claims/ana", nil)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("status: expected 200, got %d", resp.StatusCode)
	}

	var status domain.ClaimStatus
	json.NewDecoder(resp.Body).Decode(&status)
	if status.State != domain.ClaimTracking {
		t.Errorf("expected tracking, got %s", status.State)
	}
}

func TestStopClaim_NoSession(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/claims/ana/stop", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestClaimPreflight_Open(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/claims/ana/preflight?lat=43.0&lon=-2.0", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res domain.CollisionResult
	json.NewDecoder(resp.Body).Decode(&res)
	if res.Blocked {
		t.Error("expected open terrain, got blocked")
	}
}

func TestClaimPreflight_MissingCoords(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/claims/ana/preflight", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Validate handler tests ----

func TestValidatePath_ClosedLoop(t *testing.T) {
	app := setupApp(makeDeps())

	body, _ := json.Marshal(map[string]interface{}{"points": squareRing()})
	req := httptest.NewRequest("POST", "/v1/validate", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result domain.ValidationResult
	json.NewDecoder(resp.Body).Decode(&result)
	if !result.OK {
		t.Fatalf("expected valid path, got reason %q", result.Reason)
	}
	if result.AreaM2 < 3000 || result.AreaM2 > 4000 {
		t.Errorf("expected ~3600 m2, got %f", result.AreaM2)
	}
}

func TestValidatePath_TooFewPoints(t *testing.T) {
	app := setupApp(makeDeps())

	body, _ := json.Marshal(map[string]interface{}{
		"points": []domain.GeoPoint{pt(0, 0), pt(20, 0), pt(20, 20)},
	})
	req := httptest.NewRequest("POST", "/v1/validate", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result domain.ValidationResult
	json.NewDecoder(resp.Body).Decode(&result)
	if result.OK {
		t.Error("expected rejection for 3 points")
	}
	if result.Reason != usecases.ReasonInsufficientPoints {
		t.Errorf("expected insufficient points, got %q", result.Reason)
	}
}

func TestValidatePath_EmptyBody(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/validate", strings.NewReader(`{"points":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Location ingest tests ----

func TestIngestSample_Accepted(t *testing.T) {
	pub := &mockPublisher{}
	app := setupApp(makeDeps(func(d *handler.Dependencies) { d.Publisher = pub }))

	body := fmt.Sprintf(`{"owner_id":"ana","lat":%f,"lon":%f,"accuracy_m":5}`, baseLat, baseLon)
	req := httptest.NewRequest("POST", "/v1/locations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	// The sample is republished so relay subscribers see device posts too.
	if pub.sampleCount() != 1 {
		t.Fatalf("republished %d samples, want 1", pub.sampleCount())
	}
}

func TestIngestSample_MissingOwner(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/locations", strings.NewReader(`{"lat":43.0,"lon":-2.0}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestIngestSample_BadCoordinates(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/locations", strings.NewReader(`{"owner_id":"ana","lat":123.0,"lon":-2.0}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Exploration handler tests ----

func TestExploration_StartStatusStop(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/exploration/ana/start", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("start: expected 201, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/v1/exploration/ana", nil)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("status: expected 200, got %d", resp.StatusCode)
	}
	var status domain.ExplorationStatus
	json.NewDecoder(resp.Body).Decode(&status)
	if !status.Active {
		t.Error("expected active session")
	}

	req = httptest.NewRequest("POST", "/v1/exploration/ana/stop", nil)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("stop: expected 200, got %d", resp.StatusCode)
	}
}

func TestExploration_DoubleStart(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/exploration/ana/start", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("first start: expected 201, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("POST", "/v1/exploration/ana/start", nil)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 409 {
		t.Fatalf("second start: expected 409, got %d", resp.StatusCode)
	}
}

func TestExploration_StopWithoutSession(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/exploration/ana/stop", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestExplorationHistory_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Sessions = &mockSessionRepo{
			listByOwnerFn: func(ctx context.Context, ownerID string, limit int) ([]domain.ExplorationSession, error) {
				return []domain.ExplorationSession{
					{ID: "s1", OwnerID: ownerID, DistanceM: 1250},
					{ID: "s2", OwnerID: ownerID, DistanceM: 840, Terminated: true},
				}, nil
			},
		}
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/exploration/ana/history", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var sessions []domain.ExplorationSession
	json.NewDecoder(resp.Body).Decode(&sessions)
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sessions))
	}
}

// ---- GraphQL tests ----

func TestGraphQL_Territories(t *testing.T) {
	deps := makeDeps(withTerritories(&mockTerritoryRepo{
		listActiveFn: func(ctx context.Context) ([]domain.Territory, error) {
			return []domain.Territory{{ID: "t1", OwnerID: "ana", AreaM2: 3600}}, nil
		},
	}))
	app := setupApp(deps)

	body := `{"query":"{ territories { id owner_id area_m2 } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	raw := string(readBody(t, resp.Body))
	if !strings.Contains(raw, `"owner_id":"ana"`) {
		t.Errorf("expected territory in response, got %s", raw)
	}
	if strings.Contains(raw, `"errors"`) {
		t.Errorf("unexpected graphql errors: %s", raw)
	}
}

func TestGraphQL_InvalidBody(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Health handler tests ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_NoDB(t *testing.T) {
	deps := makeDeps()
	// DB, NATS, Cache are nil → should report not ready
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/ready", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- X-API-Version header ----

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	v := resp.Header.Get("X-API-Version")
	if v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

// ---- Cache-Control headers ----

func TestClaimStatus_NoStore(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/claims/ana/start", claimBody(baseLat, baseLon))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("start: expected 201, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/v1/claims/ana", nil)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cc := resp.Header.Get("Cache-Control")
	if cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}
}
