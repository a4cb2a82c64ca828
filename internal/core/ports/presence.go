package ports

import (
	"context"

	"github.com/trackex/realtime-status/internal/core/domain/presence"
)

// PresenceRepository is the authoritative store for agent heartbeat pings.
type PresenceRepository interface {
	// RecordPing upserts the latest heartbeat for an employee.
	RecordPing(ctx context.Context, p *presence.Ping) error
	// LiveView computes the current online snapshot for a scope ("all" or an
	// employee ID). This is the expensive query the tiered cache shields.
	LiveView(ctx context.Context, scope string) (*presence.LiveView, error)
}

// PresenceService translates agent pings into cache writes and broadcasts, and
// serves live-status reads through the tiered cache.
type PresenceService interface {
	RecordPing(ctx context.Context, p *presence.Ping) error
	LiveView(ctx context.Context, scope string) (*presence.LiveView, error)
}
