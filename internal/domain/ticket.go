package domain

import "time"

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateNew        TicketState = "NEW"
	TicketStateAssigned   TicketState = "ASSIGNED"
	TicketStateInProgress TicketState = "IN_PROGRESS"
	TicketStateWaiting    TicketState = "WAITING"
	TicketStateResolved   TicketState = "RESOLVED"
	TicketStateClosed     TicketState = "CLOSED"
)

// TicketStates lists every known state in lifecycle order.
var TicketStates = []TicketState{
	TicketStateNew,
	TicketStateAssigned,
	TicketStateInProgress,
	TicketStateWaiting,
	TicketStateResolved,
	TicketStateClosed,
}

// Valid reports whether s is a known state.
func (s TicketState) Valid() bool {
	for _, candidate := range TicketStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            int64
	TicketNumber  string
	Title         string
	Description   string
	State         TicketState
	Priority      TicketPriority
	CategoryID    int64
	SubcategoryID int64
	CreatorID     int64
	TechnicianID  *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
	ClosedAt      *time.Time
}
