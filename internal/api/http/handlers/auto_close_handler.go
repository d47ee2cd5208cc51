package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/scheduler"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AutoCloser is the scheduler surface exposed over HTTP.
type AutoCloser interface {
	RunSweep(ctx context.Context) (*scheduler.SweepResult, error)
	RunSweepFull(ctx context.Context) (*scheduler.SweepResult, error)
	Reconfigure(ctx context.Context) error
	Status(ctx context.Context) (scheduler.Status, error)
	UpdateSettings(ctx context.Context, u scheduler.SettingsUpdate) (scheduler.Status, error)
}

// AutoCloseHandler lets administrators drive the auto-close job.
type AutoCloseHandler struct {
	scheduler AutoCloser
}

func NewAutoCloseHandler(s AutoCloser) *AutoCloseHandler {
	return &AutoCloseHandler{scheduler: s}
}

// Run POST /auto-close/run.
func (h *AutoCloseHandler) Run(c *fiber.Ctx) error {
	result, err := h.scheduler.RunSweep(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// RunFull POST /auto-close/run-full.
func (h *AutoCloseHandler) RunFull(c *fiber.Ctx) error {
	result, err := h.scheduler.RunSweepFull(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Reconfigure POST /auto-close/reconfigure.
func (h *AutoCloseHandler) Reconfigure(c *fiber.Ctx) error {
	if err := h.scheduler.Reconfigure(c.UserContext()); err != nil {
		return err
	}
	return h.Status(c)
}

// Status GET /auto-close/status.
func (h *AutoCloseHandler) Status(c *fiber.Ctx) error {
	status, err := h.scheduler.Status(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": status})
}

// UpdateSettings PUT /auto-close/settings.
func (h *AutoCloseHandler) UpdateSettings(c *fiber.Ctx) error {
	var req dto.AutoCloseSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	update := scheduler.SettingsUpdate{
		Enabled:   req.Enabled,
		GraceDays: req.GraceDays,
		Hour:      req.Hour,
		Minute:    req.Minute,
	}
	if req.Frequency != nil {
		f := scheduler.Frequency(*req.Frequency)
		update.Frequency = &f
	}
	status, err := h.scheduler.UpdateSettings(c.UserContext(), update)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": status})
}
