package presence

import (
	"time"

	"github.com/google/uuid"
)

// OnlineWindow is how recently an agent must have pinged to count as online.
const OnlineWindow = 2 * time.Minute

// Ping is one out-of-band heartbeat submitted by a monitoring agent.
type Ping struct {
	TenantID      uuid.UUID `json:"tenant_id" db:"tenant_id"`
	EmployeeID    string    `json:"employee_id" db:"employee_id"`
	ActiveSeconds int64     `json:"active_seconds" db:"active_seconds"`
	IdleSeconds   int64     `json:"idle_seconds" db:"idle_seconds"`
	SeenAt        time.Time `json:"seen_at" db:"seen_at"`
}

// EmployeeStatus is the live view for a single employee.
type EmployeeStatus struct {
	EmployeeID      string    `json:"employee_id" db:"employee_id"`
	Online          bool      `json:"online" db:"online"`
	TotalActiveTime int64     `json:"total_active_time" db:"total_active_time"`
	TotalIdleTime   int64     `json:"total_idle_time" db:"total_idle_time"`
	LastSeenAt      time.Time `json:"last_seen_at" db:"last_seen_at"`
}

// LiveView is the computed "who is currently online" snapshot for a scope.
// It is what the tiered cache stores under "live:<scope>".
type LiveView struct {
	Scope      string           `json:"scope"`
	Online     int              `json:"online"`
	Employees  []EmployeeStatus `json:"employees"`
	ComputedAt time.Time        `json:"computed_at"`
}
