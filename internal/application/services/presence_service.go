package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/trackex/realtime-status/internal/core/domain/event"
	"github.com/trackex/realtime-status/internal/core/domain/presence"
	"github.com/trackex/realtime-status/internal/core/ports"
)

const liveKeyPrefix = "live:"

// PresenceService turns agent pings into repository writes, cache invalidation
// and live_update broadcasts, and serves live-status reads through the tiered
// cache. Concurrent misses for the same scope are coalesced with singleflight
// so the dashboard polling cadence triggers at most one recompute per key.
type PresenceService struct {
	repo   ports.PresenceRepository
	cache  ports.TieredCache
	hub    ports.BroadcastHub
	logger *logrus.Logger
	sf     singleflight.Group
}

func NewPresenceService(repo ports.PresenceRepository, cache ports.TieredCache, hub ports.BroadcastHub, logger *logrus.Logger) *PresenceService {
	return &PresenceService{repo: repo, cache: cache, hub: hub, logger: logger}
}

func (s *PresenceService) RecordPing(ctx context.Context, p *presence.Ping) error {
	if err := s.repo.RecordPing(ctx, p); err != nil {
		return err
	}

	// Every cached live view that could contain this employee is now stale.
	s.cache.InvalidatePattern(ctx, liveKeyPrefix+"*")

	ev := event.New(event.TypeLiveUpdate)
	ev.EmployeeID = p.EmployeeID
	ev.Online = event.BoolPtr(true)
	ev.TotalActiveTime = p.ActiveSeconds
	ev.TotalIdleTime = p.IdleSeconds
	s.hub.Broadcast(event.EmployeeKey(p.EmployeeID), ev)
	s.hub.Broadcast(event.KeyAll, ev)

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"employee_id": p.EmployeeID}).Debug("agent ping recorded")
	}
	return nil
}

func (s *PresenceService) LiveView(ctx context.Context, scope string) (*presence.LiveView, error) {
	if scope == "" {
		scope = "all"
	}
	key := liveKeyPrefix + scope

	if data, ok := s.cache.Get(ctx, key); ok {
		var view presence.LiveView
		if err := json.Unmarshal(data, &view); err == nil {
			return &view, nil
		}
		s.cache.Invalidate(ctx, key)
	}

	res, err, _ := s.sf.Do(key, func() (any, error) {
		if data, ok := s.cache.Get(ctx, key); ok {
			var view presence.LiveView
			if err := json.Unmarshal(data, &view); err == nil {
				return &view, nil
			}
		}
		view, err := s.repo.LiveView(ctx, scope)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(view); err == nil {
			s.cache.Set(ctx, key, data)
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	view, ok := res.(*presence.LiveView)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	return view, nil
}
