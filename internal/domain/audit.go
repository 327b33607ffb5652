package domain

import "time"

// AuditLevel is the severity of an audit event.
type AuditLevel string

const (
	AuditInfo  AuditLevel = "INFO"
	AuditError AuditLevel = "ERROR"
)

// AuditEvent is one immutable entry in the append-only audit trail. The
// identity is assigned by the trail on append and timestamps are monotonic
// with insertion order. ActorID is nil for unauthenticated or system events.
type AuditEvent struct {
	ID        int64      `json:"id" db:"id"`
	Timestamp time.Time  `json:"timestamp" db:"occurred_at"`
	ActorID   *int64     `json:"actor_id,omitempty" db:"actor_id"`
	Action    string     `json:"action" db:"action"`
	Details   string     `json:"details" db:"details"`
	Level     AuditLevel `json:"level" db:"level"`
}
