package domain

import "time"

// Fields recorded in the change log.
const (
	FieldState      = "state"
	FieldTechnician = "technician"
)

// ChangeLogEntry is an immutable audit trail entry.
type ChangeLogEntry struct {
	ID        int64
	TicketID  int64
	ActorID   int64
	Field     string
	OldValue  *string
	NewValue  *string
	Automatic bool
	ChangedAt time.Time
}
