package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets    *service.TicketService
	assignment *service.AssignmentService
	numbers    *service.TicketNumberGenerator
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, assignment *service.AssignmentService, numbers *service.TicketNumberGenerator) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, assignment: assignment, numbers: numbers}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Create(c.UserContext(), service.TicketCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
	}, actorID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	entries, err := h.tickets.History(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewChangeLogResponses(entries)})
}

// Transition PATCH /tickets/:id/state.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Transition(c.UserContext(), id, req.State, actorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil || req.TechnicianID <= 0 {
		return apperrors.NewValidationError("technician_id required", nil)
	}
	ticket, err := h.tickets.AssignTechnician(c.UserContext(), id, req.TechnicianID, actorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AvailableTechnicians GET /tickets/:id/available-technicians.
func (h *TicketsHandler) AvailableTechnicians(c *fiber.Ctx) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	users, err := h.assignment.AvailableTechniciansForTicket(c.UserContext(), actorID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserSummaries(users)})
}

// BulkTransition POST /tickets/bulk/state.
func (h *TicketsHandler) BulkTransition(c *fiber.Ctx) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}
	var req dto.BulkTransitionRequest
	if err := c.BodyParser(&req); err != nil || len(req.TicketIDs) == 0 {
		return apperrors.NewValidationError("ticket_ids required", nil)
	}
	result, err := h.tickets.BulkTransition(c.UserContext(), req.TicketIDs, req.State, actorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// BulkAssign POST /tickets/bulk/assign.
func (h *TicketsHandler) BulkAssign(c *fiber.Ctx) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}
	var req dto.BulkAssignRequest
	if err := c.BodyParser(&req); err != nil || len(req.TicketIDs) == 0 || req.TechnicianID <= 0 {
		return apperrors.NewValidationError("ticket_ids and technician_id required", nil)
	}
	result, err := h.tickets.BulkAssign(c.UserContext(), req.TicketIDs, req.TechnicianID, actorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// LastCorrelative GET /tickets/numbering/last.
func (h *TicketsHandler) LastCorrelative(c *fiber.Ctx) error {
	last, err := h.numbers.LastCorrelative(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CorrelativeResponse{LastCorrelative: last}})
}

// ResetCorrelative POST /tickets/numbering/reset.
func (h *TicketsHandler) ResetCorrelative(c *fiber.Ctx) error {
	last, err := h.numbers.ResetCorrelative(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CorrelativeResponse{LastCorrelative: last}})
}

// NumberingSettings PUT /tickets/numbering/settings.
func (h *TicketsHandler) NumberingSettings(c *fiber.Ctx) error {
	var req dto.NumberingSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	format, err := h.numbers.UpdateFormat(c.UserContext(), req.Prefix, req.Digits)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": format})
}
