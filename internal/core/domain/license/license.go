package license

import (
	"time"

	"github.com/google/uuid"
)

type LicenseStatus string

const (
	StatusActive    LicenseStatus = "active"
	StatusSuspended LicenseStatus = "suspended"
	StatusExpired   LicenseStatus = "expired"
	StatusRevoked   LicenseStatus = "revoked"
)

// License is one seat assigned to an employee's monitoring agent.
type License struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	TenantID        uuid.UUID     `json:"tenant_id" db:"tenant_id"`
	EmployeeID      string        `json:"employee_id" db:"employee_id"`
	Status          LicenseStatus `json:"status" db:"status"`
	Tier            string        `json:"tier" db:"tier"`
	DeviceTokenHash string        `json:"-" db:"device_token_hash"`
	AdminEmail      string        `json:"admin_email" db:"admin_email"`
	ExpiresAt       *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// Valid reports whether the license currently entitles the agent to run.
func (l *License) Valid() bool {
	if l.Status != StatusActive {
		return false
	}
	if l.ExpiresAt != nil && time.Now().After(*l.ExpiresAt) {
		return false
	}
	return true
}

// CheckResult is the cached payload served to agents on the fast check path.
type CheckResult struct {
	EmployeeID string        `json:"employee_id"`
	Valid      bool          `json:"valid"`
	Status     LicenseStatus `json:"status"`
	Tier       string        `json:"tier,omitempty"`
	ExpiresAt  *time.Time    `json:"expires_at,omitempty"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// UpdateLicenseRequest carries an admin-initiated license state change.
type UpdateLicenseRequest struct {
	Action    string     `json:"action"` // renew, revoke, activate, update
	Status    *string    `json:"status,omitempty"`
	Tier      *string    `json:"tier,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
