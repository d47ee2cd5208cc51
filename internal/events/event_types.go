package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventTicketAssigned   EventType = "ticket_assigned"
	EventTicketInProgress EventType = "ticket_in_progress"
	EventTicketResolved   EventType = "ticket_resolved"
	EventTicketAutoClosed EventType = "ticket_auto_closed"
)

// AllEventTypes lists every type a subscriber may register for.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketAssigned,
	EventTicketInProgress,
	EventTicketResolved,
	EventTicketAutoClosed,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	TicketID     int64     `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	ActorID      int64     `json:"actor_id"`
	Timestamp    time.Time `json:"timestamp"`
	Payload      any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CreatorID  int64                 `json:"creator_id"`
	CategoryID int64                 `json:"category_id"`
	Priority   domain.TicketPriority `json:"priority"`
	Title      string                `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	TechnicianID         int64  `json:"technician_id"`
	PreviousTechnicianID *int64 `json:"previous_technician_id,omitempty"`
}

// TicketStateChangedPayload is shared by the in-progress, resolved and auto-closed events.
type TicketStateChangedPayload struct {
	OldState     domain.TicketState `json:"old_state"`
	NewState     domain.TicketState `json:"new_state"`
	CreatorID    int64              `json:"creator_id"`
	TechnicianID *int64             `json:"technician_id,omitempty"`
	Automatic    bool               `json:"automatic"`
}
