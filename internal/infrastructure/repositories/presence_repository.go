package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trackex/realtime-status/internal/core/domain/presence"
	"github.com/trackex/realtime-status/internal/infrastructure/db"
)

// PresenceRepository is the Postgres-backed store for agent heartbeat pings.
// Only the latest ping per employee is kept; the live view aggregates over it.
type PresenceRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewPresenceRepository(database *db.Database, logger *logrus.Logger) *PresenceRepository {
	return &PresenceRepository{db: database, logger: logger}
}

func (r *PresenceRepository) RecordPing(ctx context.Context, p *presence.Ping) error {
	if p.SeenAt.IsZero() {
		p.SeenAt = time.Now()
	}
	query := `INSERT INTO agent_heartbeats (tenant_id, employee_id, active_seconds, idle_seconds, seen_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (employee_id) DO UPDATE
	          SET active_seconds = agent_heartbeats.active_seconds + EXCLUDED.active_seconds,
	              idle_seconds = agent_heartbeats.idle_seconds + EXCLUDED.idle_seconds,
	              seen_at = EXCLUDED.seen_at`
	if _, err := r.db.DB.ExecContext(ctx, query, p.TenantID, p.EmployeeID, p.ActiveSeconds, p.IdleSeconds, p.SeenAt); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"employee_id": p.EmployeeID}).WithError(err).Error("failed to record agent ping")
		}
		return fmt.Errorf("failed to record agent ping: %w", err)
	}
	return nil
}

// LiveView computes the current online snapshot for scope ("all" or a single
// employee ID). This is the query the tiered cache is shielding from the
// 5-second dashboard polling cadence.
func (r *PresenceRepository) LiveView(ctx context.Context, scope string) (*presence.LiveView, error) {
	cutoff := time.Now().Add(-presence.OnlineWindow)

	query := `SELECT employee_id, seen_at >= $1 AS online, active_seconds AS total_active_time,
	                 idle_seconds AS total_idle_time, seen_at AS last_seen_at
	          FROM agent_heartbeats`
	args := []any{cutoff}
	if scope != "" && scope != "all" {
		query += ` WHERE employee_id = $2`
		args = append(args, scope)
	}
	query += ` ORDER BY employee_id`

	var employees []presence.EmployeeStatus
	if err := r.db.DB.SelectContext(ctx, &employees, query, args...); err != nil {
		return nil, fmt.Errorf("failed to compute live view for scope %s: %w", scope, err)
	}

	view := &presence.LiveView{
		Scope:      scope,
		Employees:  employees,
		ComputedAt: time.Now(),
	}
	for _, e := range employees {
		if e.Online {
			view.Online++
		}
	}
	return view, nil
}
