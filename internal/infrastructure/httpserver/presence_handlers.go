package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trackex/realtime-status/internal/core/domain/presence"
	"github.com/trackex/realtime-status/internal/infrastructure/httpserver/helpers"
)

// agentPing is the out-of-band ingestion endpoint: agents report activity here
// and the service turns it into cache writes and live_update broadcasts.
func (s *Server) agentPing(c echo.Context) error {
	l, err := helpers.GetLicenseFromContext(c)
	if err != nil {
		return err
	}

	var ping presence.Ping
	if err := c.Bind(&ping); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	// Identity comes from the authenticated device, never the body.
	ping.EmployeeID = l.EmployeeID
	ping.TenantID = l.TenantID

	if err := s.presenceSvc.RecordPing(c.Request().Context(), &ping); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to record ping")
	}
	return c.NoContent(http.StatusAccepted)
}

// liveView serves the dashboard's "who is online" view through the tiered
// cache. The dashboard polls this on a short cadence; the cache keeps that
// cadence off the database.
func (s *Server) liveView(c echo.Context) error {
	scope := c.QueryParam("scope")
	view, err := s.presenceSvc.LiveView(c.Request().Context(), scope)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute live view")
	}
	return c.JSON(http.StatusOK, view)
}

// cacheStats exposes the tiered cache counters for dashboards and debugging.
func (s *Server) cacheStats(c echo.Context) error {
	stats := s.cache.Stats()
	return c.JSON(http.StatusOK, map[string]any{
		"tier1_hits":   stats.Tier1Hits,
		"tier2_hits":   stats.Tier2Hits,
		"misses":       stats.Misses,
		"sets":         stats.Sets,
		"tier2_errors": stats.Tier2Errors,
		"hit_rate":     stats.HitRate(),
	})
}
