package ports

import (
	"context"

	"github.com/trackex/realtime-status/internal/core/domain/license"
)

// EmailService defines the interface for operational email alerts.
type EmailService interface {
	// SendLicenseAlert notifies the tenant admin that a seat stopped being
	// valid (expired or revoked). Best-effort: callers log and continue on error.
	SendLicenseAlert(ctx context.Context, l *license.License, reason string) error
}
