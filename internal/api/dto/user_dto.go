package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserSummary is the public view of an account.
type UserSummary struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Roles      []domain.Role `json:"roles"`
	CategoryID *int64        `json:"category_id"`
	Active     bool          `json:"active"`
}

// LinkRequest payload for supervisor link management.
type LinkRequest struct {
	SupervisorID int64 `json:"supervisor_id"`
	TechnicianID int64 `json:"technician_id"`
}

// LinkResponse represents a supervisor/technician link.
type LinkResponse struct {
	ID           int64     `json:"id"`
	SupervisorID int64     `json:"supervisor_id"`
	TechnicianID int64     `json:"technician_id"`
	Active       bool      `json:"active"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// CanAssignResponse answers the authorization query.
type CanAssignResponse struct {
	ActorID      int64 `json:"actor_id"`
	TechnicianID int64 `json:"technician_id"`
	Allowed      bool  `json:"allowed"`
}

// NewUserSummaries maps users; the result is never nil.
func NewUserSummaries(users []domain.User) []UserSummary {
	items := make([]UserSummary, 0, len(users))
	for _, u := range users {
		items = append(items, UserSummary{
			ID:         u.ID,
			Name:       u.Name,
			Email:      u.Email,
			Roles:      u.Roles,
			CategoryID: u.CategoryID,
			Active:     u.Active,
		})
	}
	return items
}

// NewLinkResponse maps a link.
func NewLinkResponse(l *domain.SupervisorTechnicianLink) LinkResponse {
	return LinkResponse{
		ID:           l.ID,
		SupervisorID: l.SupervisorID,
		TechnicianID: l.TechnicianID,
		Active:       l.Active,
		AssignedAt:   l.AssignedAt,
	}
}
