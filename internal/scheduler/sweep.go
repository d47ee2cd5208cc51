package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SweepMode selects which resolved tickets a sweep considers.
type SweepMode string

const (
	// SweepFiltered closes tickets resolved longer ago than the grace period.
	SweepFiltered SweepMode = "filtered"
	// SweepFull closes every resolved ticket.
	SweepFull SweepMode = "full"
)

// SweepFailure records a ticket the sweep could not close.
type SweepFailure struct {
	TicketID int64  `json:"ticket_id"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Mode       SweepMode      `json:"mode"`
	Skipped    bool           `json:"skipped"`
	ActorID    int64          `json:"actor_id,omitempty"`
	Candidates int            `json:"candidates"`
	Closed     []int64        `json:"closed"`
	Stale      []int64        `json:"stale"`
	Failures   []SweepFailure `json:"failures"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// RunSweep closes tickets past the grace period.
func (s *Scheduler) RunSweep(ctx context.Context) (*SweepResult, error) {
	return s.sweep(ctx, SweepFiltered)
}

// RunSweepFull closes every resolved ticket regardless of age.
func (s *Scheduler) RunSweepFull(ctx context.Context) (*SweepResult, error) {
	return s.sweep(ctx, SweepFull)
}

func (s *Scheduler) sweep(ctx context.Context, mode SweepMode) (*SweepResult, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	started := s.now()
	result := &SweepResult{Mode: mode, StartedAt: started, Closed: []int64{}, Stale: []int64{}, Failures: []SweepFailure{}}

	cfg := LoadConfig(ctx, s.settings)
	if !cfg.Enabled {
		result.Skipped = true
		result.FinishedAt = started
		s.metrics.RecordSweep(true, 0, 0, false)
		s.logger.Info("auto-close disabled; sweep skipped", zap.String("mode", string(mode)))
		return result, nil
	}

	actor, err := s.actors.Resolve(ctx)
	if err != nil {
		s.metrics.RecordSweep(false, 0, 0, true)
		return nil, err
	}
	result.ActorID = actor.ID

	opts := service.TransitionOptions{Automatic: true, RequireState: domain.TicketStateResolved}
	var tickets []domain.Ticket
	if mode == SweepFull {
		tickets, err = s.tickets.ListByState(ctx, domain.TicketStateResolved)
	} else {
		before := cutoff(started, cfg.GraceDays)
		opts.ResolvedBefore = &before
		tickets, err = s.tickets.ListByStateResolvedBefore(ctx, domain.TicketStateResolved, before)
	}
	if err != nil {
		s.metrics.RecordSweep(false, 0, 0, true)
		return nil, apperrors.MapError(err)
	}
	result.Candidates = len(tickets)

	for _, ticket := range tickets {
		_, err := s.closer.TransitionWithOptions(ctx, ticket.ID, domain.TicketStateClosed, actor.ID, opts)
		if apperrors.HasCode(err, apperrors.CodePrecondition) {
			// Reopened or resolved again since it was listed.
			s.logger.Info("auto-close skipped changed ticket", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
			result.Stale = append(result.Stale, ticket.ID)
			continue
		}
		if err != nil {
			domainErr := apperrors.ToDomainError(err)
			s.logger.Warn("auto-close ticket failed",
				zap.Int64("ticket_id", ticket.ID),
				zap.String("ticket_number", ticket.TicketNumber),
				zap.Error(err))
			result.Failures = append(result.Failures, SweepFailure{
				TicketID: ticket.ID,
				Code:     domainErr.Code,
				Message:  domainErr.Message,
			})
			continue
		}
		result.Closed = append(result.Closed, ticket.ID)
	}
	result.FinishedAt = s.now()

	s.recordStats(ctx, int64(len(result.Closed)), result.FinishedAt)
	s.metrics.RecordSweep(false, len(result.Closed), len(result.Failures), false)
	s.logger.Info("auto-close sweep finished",
		zap.String("mode", string(mode)),
		zap.Int("candidates", result.Candidates),
		zap.Int("closed", len(result.Closed)),
		zap.Int("stale", len(result.Stale)),
		zap.Int("failed", len(result.Failures)))
	return result, nil
}

// recordStats never fails the sweep; errors are only logged.
func (s *Scheduler) recordStats(ctx context.Context, closed int64, at time.Time) {
	if s.stats == nil {
		return
	}
	if _, err := s.stats.AddClosed(ctx, closed); err != nil {
		s.logger.Warn("update auto-close total failed", zap.Error(err))
	}
	if err := s.stats.MarkRun(ctx, at); err != nil {
		s.logger.Warn("update auto-close last run failed", zap.Error(err))
	}
}
