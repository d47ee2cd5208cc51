package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SupervisorLinksHandler exposes the assignment authorizer.
type SupervisorLinksHandler struct {
	assignment *service.AssignmentService
}

func NewSupervisorLinksHandler(assignment *service.AssignmentService) *SupervisorLinksHandler {
	return &SupervisorLinksHandler{assignment: assignment}
}

// Link POST /supervisor-links.
func (h *SupervisorLinksHandler) Link(c *fiber.Ctx) error {
	actorID, req, err := h.linkRequest(c)
	if err != nil {
		return err
	}
	link, err := h.assignment.LinkTechnician(c.UserContext(), actorID, req.SupervisorID, req.TechnicianID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewLinkResponse(link)})
}

// Unlink DELETE /supervisor-links.
func (h *SupervisorLinksHandler) Unlink(c *fiber.Ctx) error {
	actorID, req, err := h.linkRequest(c)
	if err != nil {
		return err
	}
	if err := h.assignment.UnlinkTechnician(c.UserContext(), actorID, req.SupervisorID, req.TechnicianID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// TechniciansOf GET /supervisor-links/supervisors/:id/technicians.
func (h *SupervisorLinksHandler) TechniciansOf(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	users, err := h.assignment.TechniciansOf(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserSummaries(users)})
}

// SupervisorsOf GET /supervisor-links/technicians/:id/supervisors.
func (h *SupervisorLinksHandler) SupervisorsOf(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	users, err := h.assignment.SupervisorsOf(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserSummaries(users)})
}

// CanAssign GET /supervisor-links/can-assign?technician_id=.
func (h *SupervisorLinksHandler) CanAssign(c *fiber.Ctx) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}
	technicianID, err := queryID(c, "technician_id")
	if err != nil {
		return err
	}
	allowed, err := h.assignment.CanAssign(c.UserContext(), actorID, technicianID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CanAssignResponse{ActorID: actorID, TechnicianID: technicianID, Allowed: allowed}})
}

// Available GET /supervisor-links/available?category_id=.
func (h *SupervisorLinksHandler) Available(c *fiber.Ctx) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}
	categoryID, err := queryID(c, "category_id")
	if err != nil {
		return err
	}
	users, err := h.assignment.AvailableTechnicians(c.UserContext(), actorID, categoryID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserSummaries(users)})
}

func (h *SupervisorLinksHandler) linkRequest(c *fiber.Ctx) (int64, dto.LinkRequest, error) {
	var req dto.LinkRequest
	actorID, err := principalID(c)
	if err != nil {
		return 0, req, err
	}
	if err := c.BodyParser(&req); err != nil || req.SupervisorID <= 0 || req.TechnicianID <= 0 {
		return 0, req, apperrors.NewValidationError("supervisor_id and technician_id required", nil)
	}
	return actorID, req, nil
}
