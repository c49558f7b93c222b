package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - actor_user_id and type are required.
// - ip capture is best-effort; do not block critical flows on audit failures.

type Event struct {
	ID string `json:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type"`

	// ActorUserID is the authenticated user causing the event.
	ActorUserID string `json:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty"`
	// ActorCompany is the caller's tenant; empty for BPO staff.
	ActorCompany string `json:"actor_company,omitempty"`

	// IPAddress should capture the original client IP when available.
	IPAddress string `json:"ip_address,omitempty"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventTypeAdminAction       EventType = "admin_action"
	EventTypeCacheCleared      EventType = "cache_cleared"
	EventTypeConnectivityCheck EventType = "connectivity_check"
)
