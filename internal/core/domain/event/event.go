package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type tags a notification event. The set is open-ended: consumers must treat
// unknown types as ignorable, so new types can be added without changing the
// transport contract.
type Type string

const (
	// Connection lifecycle events emitted by the streaming endpoint itself.
	TypeConnected Type = "connected"
	TypeHeartbeat Type = "heartbeat"

	// License domain events.
	TypeLicenseUpdated   Type = "license_updated"
	TypeLicenseRenewed   Type = "license_renewed"
	TypeLicenseActivated Type = "license_activated"
	TypeLicenseExpired   Type = "license_expired"
	TypeLicenseRevoked   Type = "license_revoked"

	// Agent and presence events.
	TypeAgentVersionReleased Type = "agent_version_released"
	TypeLiveUpdate           Type = "live_update"
)

// KeyAll is the reserved subscription key that every broadcast-worthy event may
// additionally be published under. It is an ordinary key as far as the hub is
// concerned.
const KeyAll = "all"

// EmployeeKey builds the per-employee subscription key.
func EmployeeKey(employeeID string) string {
	return "emp:" + employeeID
}

// Event is one notification frame as it travels over the wire. Type-specific
// fields are optional and omitted when empty so the same envelope serves every
// event type.
type Event struct {
	Type       Type   `json:"type"`
	Timestamp  string `json:"timestamp"`
	EmployeeID string `json:"employeeId,omitempty"`

	// License fields.
	Valid     *bool  `json:"valid,omitempty"`
	Status    string `json:"status,omitempty"`
	Tier      string `json:"tier,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
	Message   string `json:"message,omitempty"`

	// Presence / live-view fields.
	Online          *bool `json:"online,omitempty"`
	TotalActiveTime int64 `json:"totalActiveTime,omitempty"`
	TotalIdleTime   int64 `json:"totalIdleTime,omitempty"`

	// Agent version fields.
	Version string `json:"version,omitempty"`
}

// New creates an event of the given type stamped with the current server time.
func New(t Type) Event {
	return Event{Type: t, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// Frame serializes the event as a single text/event-stream frame:
// "data: <JSON>\n\n".
func (e Event) Frame() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return []byte(fmt.Sprintf("data: %s\n\n", data)), nil
}

// Parse decodes the JSON payload of one frame back into an Event.
func Parse(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("failed to parse event data: %w", err)
	}
	return e, nil
}

// BoolPtr is a convenience for the optional boolean fields.
func BoolPtr(b bool) *bool { return &b }
