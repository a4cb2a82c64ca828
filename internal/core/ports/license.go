package ports

import (
	"context"

	"github.com/trackex/realtime-status/internal/core/domain/license"
)

// LicenseRepository is the authoritative store for license seats.
type LicenseRepository interface {
	GetByEmployee(ctx context.Context, employeeID string) (*license.License, error)
	Update(ctx context.Context, l *license.License) error
	// UpdateDeviceTokenHash rewrites the stored credential hash, used when a
	// legacy-format hash is upgraded after a successful verification.
	UpdateDeviceTokenHash(ctx context.Context, employeeID, hash string) error
}

// LicenseService exposes the license operations the handlers call. State
// changes invalidate the cached check result and broadcast a notification to
// the affected employee's stream and the global scope.
type LicenseService interface {
	// Check returns the (possibly cached) validity snapshot agents poll.
	Check(ctx context.Context, employeeID string) (*license.CheckResult, error)
	// Apply performs an admin action (renew, revoke, activate, update) and
	// returns the updated license.
	Apply(ctx context.Context, employeeID string, req *license.UpdateLicenseRequest) (*license.License, error)
	// VerifyDeviceToken authenticates an agent's device token, resolving
	// legacy and current hash formats.
	VerifyDeviceToken(ctx context.Context, employeeID, token string) (*license.License, error)
}

// AgentVersionRepository is the authoritative store for published agent builds.
type AgentVersionRepository interface {
	Latest(ctx context.Context) (string, error)
	Insert(ctx context.Context, version string) error
}

// AgentVersionService tracks the currently published agent build and announces
// new releases on the global stream scope.
type AgentVersionService interface {
	Current(ctx context.Context) (string, error)
	Publish(ctx context.Context, version string) error
}
