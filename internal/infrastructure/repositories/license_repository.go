package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trackex/realtime-status/internal/core/domain/license"
	"github.com/trackex/realtime-status/internal/infrastructure/db"
)

// ErrLicenseNotFound is returned when no seat exists for an employee.
var ErrLicenseNotFound = errors.New("license not found")

// LicenseRepository is the Postgres-backed authoritative store for license seats.
type LicenseRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewLicenseRepository(database *db.Database, logger *logrus.Logger) *LicenseRepository {
	return &LicenseRepository{db: database, logger: logger}
}

func (r *LicenseRepository) GetByEmployee(ctx context.Context, employeeID string) (*license.License, error) {
	var l license.License
	query := `SELECT id, tenant_id, employee_id, status, tier, device_token_hash, admin_email, expires_at, created_at, updated_at
	          FROM licenses WHERE employee_id = $1`
	if err := r.db.DB.GetContext(ctx, &l, query, employeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLicenseNotFound
		}
		return nil, fmt.Errorf("failed to get license for employee %s: %w", employeeID, err)
	}
	return &l, nil
}

func (r *LicenseRepository) Update(ctx context.Context, l *license.License) error {
	l.UpdatedAt = time.Now()
	query := `UPDATE licenses
	          SET status = $1, tier = $2, expires_at = $3, updated_at = $4
	          WHERE employee_id = $5`
	res, err := r.db.DB.ExecContext(ctx, query, l.Status, l.Tier, l.ExpiresAt, l.UpdatedAt, l.EmployeeID)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"employee_id": l.EmployeeID}).WithError(err).Error("failed to update license")
		}
		return fmt.Errorf("failed to update license: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLicenseNotFound
	}
	return nil
}

func (r *LicenseRepository) UpdateDeviceTokenHash(ctx context.Context, employeeID, hash string) error {
	query := `UPDATE licenses SET device_token_hash = $1, updated_at = $2 WHERE employee_id = $3`
	res, err := r.db.DB.ExecContext(ctx, query, hash, time.Now(), employeeID)
	if err != nil {
		return fmt.Errorf("failed to update device token hash: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLicenseNotFound
	}
	return nil
}
