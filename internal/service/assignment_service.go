package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AssignmentService decides who may hand tickets to which technicians and
// manages the supervisor/technician links those decisions rely on.
type AssignmentService struct {
	tx      repository.TxManager
	users   repository.UserRepository
	links   repository.SupervisorLinkRepository
	tickets repository.TicketRepository
	logger  *zap.Logger
	now     func() time.Time
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TxManager  repository.TxManager
	UserRepo   repository.UserRepository
	LinkRepo   repository.SupervisorLinkRepository
	TicketRepo repository.TicketRepository
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &AssignmentService{
		tx:      deps.TxManager,
		users:   deps.UserRepo,
		links:   deps.LinkRepo,
		tickets: deps.TicketRepo,
		logger:  logger,
		now:     now,
	}
}

// CanAssign reports whether actorID may assign tickets to technicianID.
// Rules apply in order: administrators always may, supervisors may pick
// themselves or any technician they hold an active link to, technicians
// may only pick themselves.
func (s *AssignmentService) CanAssign(ctx context.Context, actorID, technicianID int64) (bool, error) {
	actor, err := loadUser(ctx, s.users, actorID, "user")
	if err != nil {
		return false, err
	}
	if actor.IsAdmin() {
		return true, nil
	}
	if actor.IsSupervisor() {
		if actorID == technicianID {
			return true, nil
		}
		linked, err := s.links.ExistsActive(ctx, actorID, technicianID)
		if err != nil {
			return false, apperrors.MapError(err)
		}
		if linked {
			return true, nil
		}
	}
	if actor.IsTechnician() && actorID == technicianID {
		return true, nil
	}
	return false, nil
}

// AvailableTechnicians lists the technicians of categoryID that actorID may assign to.
func (s *AssignmentService) AvailableTechnicians(ctx context.Context, actorID, categoryID int64) ([]domain.User, error) {
	actor, err := loadUser(ctx, s.users, actorID, "user")
	if err != nil {
		return nil, err
	}

	result := []domain.User{}
	switch {
	case actor.IsAdmin():
		technicians, err := s.users.ListActiveTechnicians(ctx, categoryID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		result = append(result, technicians...)
	case actor.IsSupervisor():
		linked, err := s.links.ListActiveTechnicians(ctx, actorID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, technician := range linked {
			if technician.ID != actor.ID && technician.IsTechnician() && technician.InCategory(categoryID) {
				result = append(result, technician)
			}
		}
		if actor.IsTechnician() && actor.InCategory(categoryID) {
			result = append(result, *actor)
		}
	case actor.IsTechnician():
		if actor.Active && actor.InCategory(categoryID) {
			result = append(result, *actor)
		}
	}
	return result, nil
}

// AvailableTechniciansForTicket is AvailableTechnicians for the ticket's category.
func (s *AssignmentService) AvailableTechniciansForTicket(ctx context.Context, actorID, ticketID int64) ([]domain.User, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return s.AvailableTechnicians(ctx, actorID, ticket.CategoryID)
}

// LinkTechnician grants supervisorID assignment authority over technicianID.
func (s *AssignmentService) LinkTechnician(ctx context.Context, actorID, supervisorID, technicianID int64) (*domain.SupervisorTechnicianLink, error) {
	var link *domain.SupervisorTechnicianLink
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireLinkManager(ctx, actorID, supervisorID); err != nil {
			return err
		}
		supervisor, err := loadUser(ctx, s.users, supervisorID, "supervisor")
		if err != nil {
			return err
		}
		technician, err := loadUser(ctx, s.users, technicianID, "technician")
		if err != nil {
			return err
		}
		if !supervisor.IsSupervisor() {
			return apperrors.NewValidationError("user is not a supervisor", map[string]any{"supervisor_id": supervisorID})
		}
		if !technician.IsTechnician() {
			return apperrors.NewValidationError("user is not a technician", map[string]any{"technician_id": technicianID})
		}
		if supervisorID == technicianID {
			return apperrors.NewValidationError("a supervisor cannot be linked to themselves", map[string]any{"supervisor_id": supervisorID})
		}
		if supervisor.CategoryID == nil || technician.CategoryID == nil {
			return apperrors.NewValidationError("supervisor and technician must both have a category", nil)
		}
		if *supervisor.CategoryID != *technician.CategoryID {
			return apperrors.NewValidationError("supervisor and technician belong to different categories", map[string]any{
				"supervisor_category_id": *supervisor.CategoryID,
				"technician_category_id": *technician.CategoryID,
			})
		}

		details := map[string]any{"supervisor_id": supervisorID, "technician_id": technicianID}
		exists, err := s.links.ExistsActive(ctx, supervisorID, technicianID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if exists {
			return apperrors.NewConflict("technician already linked to supervisor", details)
		}
		link = &domain.SupervisorTechnicianLink{
			SupervisorID: supervisorID,
			TechnicianID: technicianID,
			Active:       true,
			AssignedAt:   s.now(),
		}
		if err := s.links.Create(ctx, link); err != nil {
			if repository.IsUniqueViolation(err) {
				return apperrors.NewConflict("technician already linked to supervisor", details)
			}
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("supervisor link created",
		zap.Int64("supervisor_id", supervisorID),
		zap.Int64("technician_id", technicianID),
		zap.Int64("actor_id", actorID))
	return link, nil
}

// UnlinkTechnician revokes the active link. The row is kept for audit.
func (s *AssignmentService) UnlinkTechnician(ctx context.Context, actorID, supervisorID, technicianID int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireLinkManager(ctx, actorID, supervisorID); err != nil {
			return err
		}
		link, err := s.links.GetActive(ctx, supervisorID, technicianID)
		if err != nil {
			return notFoundOr(err, "supervisor link", map[string]any{
				"supervisor_id": supervisorID,
				"technician_id": technicianID,
			})
		}
		link.Active = false
		return apperrors.MapError(s.links.Update(ctx, link))
	})
	if err != nil {
		return err
	}
	s.logger.Info("supervisor link revoked",
		zap.Int64("supervisor_id", supervisorID),
		zap.Int64("technician_id", technicianID),
		zap.Int64("actor_id", actorID))
	return nil
}

// TechniciansOf lists the technicians actively linked to supervisorID.
func (s *AssignmentService) TechniciansOf(ctx context.Context, supervisorID int64) ([]domain.User, error) {
	if _, err := loadUser(ctx, s.users, supervisorID, "supervisor"); err != nil {
		return nil, err
	}
	users, err := s.links.ListActiveTechnicians(ctx, supervisorID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return nonNilUsers(users), nil
}

// SupervisorsOf lists the supervisors actively linked to technicianID.
func (s *AssignmentService) SupervisorsOf(ctx context.Context, technicianID int64) ([]domain.User, error) {
	if _, err := loadUser(ctx, s.users, technicianID, "technician"); err != nil {
		return nil, err
	}
	users, err := s.links.ListActiveSupervisors(ctx, technicianID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return nonNilUsers(users), nil
}

func (s *AssignmentService) requireLinkManager(ctx context.Context, actorID, supervisorID int64) error {
	actor, err := loadUser(ctx, s.users, actorID, "user")
	if err != nil {
		return err
	}
	if actor.IsAdmin() || (actor.IsSupervisor() && actor.ID == supervisorID) {
		return nil
	}
	return apperrors.NewForbidden("only administrators or the supervisor may manage this link")
}

func nonNilUsers(users []domain.User) []domain.User {
	if users == nil {
		return []domain.User{}
	}
	return users
}
