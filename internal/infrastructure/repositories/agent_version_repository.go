package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trackex/realtime-status/internal/infrastructure/db"
)

// AgentVersionRepository stores the published agent build versions.
type AgentVersionRepository struct {
	db *db.Database
}

func NewAgentVersionRepository(database *db.Database) *AgentVersionRepository {
	return &AgentVersionRepository{db: database}
}

// Latest returns the most recently published version, or "" when none exists.
func (r *AgentVersionRepository) Latest(ctx context.Context) (string, error) {
	var version string
	query := `SELECT version FROM agent_releases ORDER BY released_at DESC LIMIT 1`
	if err := r.db.DB.GetContext(ctx, &version, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get latest agent version: %w", err)
	}
	return version, nil
}

// Insert records a newly published version.
func (r *AgentVersionRepository) Insert(ctx context.Context, version string) error {
	query := `INSERT INTO agent_releases (version, released_at) VALUES ($1, $2)`
	if _, err := r.db.DB.ExecContext(ctx, query, version, time.Now()); err != nil {
		return fmt.Errorf("failed to insert agent version: %w", err)
	}
	return nil
}
