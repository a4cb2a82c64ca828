package httpserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/trackex/realtime-status/internal/core/domain/event"
	"github.com/trackex/realtime-status/internal/infrastructure/broadcast"
	"github.com/trackex/realtime-status/internal/infrastructure/httpserver/helpers"
)

// licenseStream is the agent-facing push channel. The subscription scope is
// derived from the authenticated device identity; the connected event carries
// the current license state so the agent has a valid snapshot before the first
// domain event arrives.
func (s *Server) licenseStream(c echo.Context) error {
	l, err := helpers.GetLicenseFromContext(c)
	if err != nil {
		return err
	}

	first := event.New(event.TypeConnected)
	first.EmployeeID = l.EmployeeID
	first.Valid = event.BoolPtr(l.Valid())
	first.Status = string(l.Status)
	if l.ExpiresAt != nil {
		first.ExpiresAt = l.ExpiresAt.UTC().Format(time.RFC3339)
	}

	return s.streamEvents(c, event.EmployeeKey(l.EmployeeID), first)
}

// dashboardStream is the dashboard-facing push channel. The scope comes from a
// query parameter: "all" (default) or a single employee ID.
func (s *Server) dashboardStream(c echo.Context) error {
	scope := c.QueryParam("scope")
	key := event.KeyAll
	if scope != "" && scope != "all" {
		key = event.EmployeeKey(scope)
	}
	return s.streamEvents(c, key, event.New(event.TypeConnected))
}

// streamEvents runs one long-lived text/event-stream connection: subscribe,
// emit the initial event, relay broadcast frames, heartbeat on a fixed
// interval, and clean up exactly once whichever way the connection ends.
func (s *Server) streamEvents(c echo.Context, key string, first event.Event) error {
	// Serialize the initial event before registering anything so an
	// establishment failure leaves nothing to clean up.
	firstFrame, err := first.Frame()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to establish stream")
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	sink := broadcast.NewChannelSink(s.config.SinkBuffer)
	s.hub.Subscribe(key, sink)

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.hub.Unsubscribe(key, sink)
			sink.Close()
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"key": key}).Debug("stream connection closed")
			}
		})
	}
	defer cleanup()

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"key": key, "ip": c.RealIP()}).Info("stream connection opened")
	}

	if _, err := w.Write(firstFrame); err != nil {
		return nil
	}
	w.Flush()

	interval := s.config.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			// Client disconnect.
			return nil
		case <-s.shutdown:
			// Graceful shutdown; unsubscribe so Shutdown does not wait out its
			// deadline on open streams.
			return nil
		case <-heartbeat.C:
			frame, err := event.New(event.TypeHeartbeat).Frame()
			if err != nil {
				continue
			}
			if _, err := w.Write(frame); err != nil {
				return nil
			}
			w.Flush()
		case frame := <-sink.Frames():
			if _, err := w.Write(frame); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
