package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Priority      domain.TicketPriority `json:"priority"`
	CategoryID    int64                 `json:"category_id"`
	SubcategoryID int64                 `json:"subcategory_id"`
}

// TransitionRequest payload for PATCH /tickets/:id/state.
type TransitionRequest struct {
	State domain.TicketState `json:"state"`
}

// AssignRequest payload for POST /tickets/:id/assign.
type AssignRequest struct {
	TechnicianID int64 `json:"technician_id"`
}

// BulkTransitionRequest payload.
type BulkTransitionRequest struct {
	TicketIDs []int64            `json:"ticket_ids"`
	State     domain.TicketState `json:"state"`
}

// BulkAssignRequest payload.
type BulkAssignRequest struct {
	TicketIDs    []int64 `json:"ticket_ids"`
	TechnicianID int64   `json:"technician_id"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID            int64                 `json:"id"`
	TicketNumber  string                `json:"ticket_number"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	State         domain.TicketState    `json:"state"`
	Priority      domain.TicketPriority `json:"priority"`
	CategoryID    int64                 `json:"category_id"`
	SubcategoryID int64                 `json:"subcategory_id"`
	CreatorID     int64                 `json:"creator_id"`
	TechnicianID  *int64                `json:"technician_id"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	ResolvedAt    *time.Time            `json:"resolved_at"`
	ClosedAt      *time.Time            `json:"closed_at"`
}

// ChangeLogResponse is one audit entry.
type ChangeLogResponse struct {
	ID        int64     `json:"id"`
	ActorID   int64     `json:"actor_id"`
	Field     string    `json:"field"`
	OldValue  *string   `json:"old_value"`
	NewValue  *string   `json:"new_value"`
	Automatic bool      `json:"automatic"`
	ChangedAt time.Time `json:"changed_at"`
}

// CorrelativeResponse reports the numbering counter.
type CorrelativeResponse struct {
	LastCorrelative int64 `json:"last_correlative"`
}

// NewTicketResponse maps the domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            t.ID,
		TicketNumber:  t.TicketNumber,
		Title:         t.Title,
		Description:   t.Description,
		State:         t.State,
		Priority:      t.Priority,
		CategoryID:    t.CategoryID,
		SubcategoryID: t.SubcategoryID,
		CreatorID:     t.CreatorID,
		TechnicianID:  t.TechnicianID,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ResolvedAt:    t.ResolvedAt,
		ClosedAt:      t.ClosedAt,
	}
}

// NewChangeLogResponses maps audit entries preserving order.
func NewChangeLogResponses(entries []domain.ChangeLogEntry) []ChangeLogResponse {
	items := make([]ChangeLogResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, ChangeLogResponse{
			ID:        e.ID,
			ActorID:   e.ActorID,
			Field:     e.Field,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			Automatic: e.Automatic,
			ChangedAt: e.ChangedAt,
		})
	}
	return items
}
