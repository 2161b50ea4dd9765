package http

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/core/usecases"
)

// ListTerritoriesHandler returns the active territory set.
func ListTerritoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		territories, err := deps.Territories.ListActive(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		if wantsGCJ02(c) {
			territories = territoriesToGCJ02(territories)
		}

		// Apply offset/limit pagination on the full list
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		total := len(territories)
		if offset >= total {
			territories = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			territories = territories[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: territories, Pagination: pg})
	}
}

// NearbyTerritoriesHandler returns active territories near a point.
func NearbyTerritoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 50)

		if lat == 0 || lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if radius <= 0 || radius > 10000 {
			return errBadRequest(c, "radius must be between 1 and 10000 meters")
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		territories, err := deps.Territories.FindNearby(c.Context(), lat, lon, radius, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if wantsGCJ02(c) {
			territories = territoriesToGCJ02(territories)
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(territories)
	}
}

// GetTerritoryHandler returns a single territory by ID.
func GetTerritoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "territory id is required")
		}
		t, err := deps.Territories.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "territory not found")
		}
		if wantsGCJ02(c) {
			out := territoryToGCJ02(*t)
			return c.JSON(out)
		}
		return c.JSON(t)
	}
}

// DeleteTerritoryHandler deactivates a territory. The row stays for history.
func DeleteTerritoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "territory id is required")
		}
		if err := deps.Territories.SoftDelete(c.Context(), id); err != nil {
			return errNotFound(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

type startClaimRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// StartClaimHandler opens a claim session for the owner at the given point.
func StartClaimHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := c.Params("owner")
		if owner == "" {
			return errBadRequest(c, "owner is required")
		}
		var req startClaimRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Lat == 0 && req.Lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}

		err := deps.Claims.Start(c.Context(), owner, domain.GeoPoint{Lat: req.Lat, Lon: req.Lon})
		switch {
		case errors.Is(err, usecases.ErrSessionActive):
			return errConflict(c, "claim session already active")
		case errors.Is(err, usecases.ErrClaimBlocked):
			return errForbidden(c, "start point lies inside a foreign territory")
		case err != nil:
			return errInternal(c, err.Error())
		}

		return c.Status(201).JSON(fiber.Map{
			"owner_id":   owner,
			"state":      domain.ClaimTracking,
			"started_at": time.Now(),
		})
	}
}

// StopClaimHandler ends a claim session, discarding the path.
func StopClaimHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := c.Params("owner")
		if owner == "" {
			return errBadRequest(c, "owner is required")
		}
		status, err := deps.Claims.Stop(c.Context(), owner)
		if errors.Is(err, usecases.ErrNoSession) {
			return errNotFound(c, "no active claim session")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(status)
	}
}

// ClaimStatusHandler returns the live claim session snapshot.
func ClaimStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := c.Params("owner")
		if owner == "" {
			return errBadRequest(c, "owner is required")
		}
		status, err := deps.Claims.Status(owner)
		if errors.Is(err, usecases.ErrNoSession) {
			return errNotFound(c, "no claim session")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(status)
	}
}

// ClaimPreflightHandler runs the start-point collision check without opening
// a session, so clients can grey out the start button.
func ClaimPreflightHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := c.Params("owner")
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		if owner == "" {
			return errBadRequest(c, "owner is required")
		}
		if lat == 0 || lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}

		res, err := deps.Claims.CheckStart(c.Context(), owner, domain.GeoPoint{Lat: lat, Lon: lon})
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(res)
	}
}

type validateRequest struct {
	Points []domain.GeoPoint `json:"points"`
}

// ValidatePathHandler runs the full validation battery over a client-supplied
// path and returns the verdict without persisting anything.
func ValidatePathHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req validateRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Points) == 0 {
			return errBadRequest(c, "points are required")
		}
		if len(req.Points) > 10000 {
			return errBadRequest(c, "too many points (max 10000)")
		}
		return c.JSON(deps.Claims.Validate(req.Points))
	}
}

// IngestSampleHandler accepts a raw location sample over HTTP for devices
// that cannot hold a NATS connection. The sample feeds the in-process
// trackers and is republished on the broker for relay subscribers.
func IngestSampleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sample domain.LocationSample
		if err := c.BodyParser(&sample); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if sample.OwnerID == "" {
			return errBadRequest(c, "owner_id is required")
		}
		if sample.Lat < -90 || sample.Lat > 90 || sample.Lon < -180 || sample.Lon > 180 {
			return errBadRequest(c, "coordinates out of range")
		}
		if sample.Time.IsZero() {
			sample.Time = time.Now()
		}

		deps.Claims.ObserveSample(&sample)
		deps.Exploration.Offer(&sample)
		if err := deps.Publisher.PublishLocationSample(c.Context(), &sample); err != nil {
			// The local engine already has the sample; relays catch up later.
			slog.Warn("republish location sample", "owner", sample.OwnerID, "error", err)
		}

		return c.SendStatus(202)
	}
}

// StartExplorationHandler opens a free-roam session for the owner.
func StartExplorationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := c.Params("owner")
		if owner == "" {
			return errBadRequest(c, "owner is required")
		}
		if err := deps.Exploration.Start(owner); err != nil {
			return errConflict(c, "exploration session already active")
		}
		return c.Status(201).JSON(fiber.Map{"owner_id": owner, "active": true})
	}
}

// StopExplorationHandler ends a free-roam session and returns the summary.
func StopExplorationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := c.Params("owner")
		if owner == "" {
			return errBadRequest(c, "owner is required")
		}
		record, err := deps.Exploration.Stop(c.Context(), owner)
		if errors.Is(err, usecases.ErrNoSession) {
			return errNotFound(c, "no active exploration session")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(record)
	}
}

// ExplorationStatusHandler returns the live free-roam snapshot.
func ExplorationStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := c.Params("owner")
		if owner == "" {
			return errBadRequest(c, "owner is required")
		}
		status, err := deps.Exploration.Status(owner)
		if errors.Is(err, usecases.ErrNoSession) {
			return errNotFound(c, "no exploration session")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(status)
	}
}

// ExplorationHistoryHandler lists finished free-roam sessions for an owner.
func ExplorationHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := c.Params("owner")
		if owner == "" {
			return errBadRequest(c, "owner is required")
		}
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		if deps.Sessions == nil {
			return errInternal(c, "session store not available")
		}
		sessions, err := deps.Sessions.ListByOwner(c.Context(), owner, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(sessions)
	}
}

// EngineStats holds row counts across the game tables.
type EngineStats struct {
	ActiveTerritories   int     `json:"active_territories"`
	TotalTerritories    int     `json:"total_territories"`
	TotalAreaM2         float64 `json:"total_area_m2"`
	ExplorationSessions int     `json:"exploration_sessions"`
	LastClaim           string  `json:"last_claim,omitempty"`
}

// StatsHandler returns aggregate claim statistics from the database.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats EngineStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM territories WHERE active),
				(SELECT count(*) FROM territories),
				COALESCE((SELECT sum(area_m2) FROM territories WHERE active), 0),
				(SELECT count(*) FROM exploration_sessions),
				COALESCE((SELECT max(created_at)::text FROM territories), '')
		`)
		if err := row.Scan(&stats.ActiveTerritories, &stats.TotalTerritories,
			&stats.TotalAreaM2, &stats.ExplorationSessions, &stats.LastClaim); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}
