// Package scheduler owns the self-reconfiguring auto-close job.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/settings"
	"github.com/spec-kit/helpdesk-service/internal/stats"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Closer performs the CLOSED transition for a ticket.
type Closer interface {
	TransitionWithOptions(ctx context.Context, ticketID int64, newState domain.TicketState, actorID int64, opts service.TransitionOptions) (*domain.Ticket, error)
}

// ActorResolver finds the account automatic changes are attributed to.
type ActorResolver interface {
	Resolve(ctx context.Context) (*domain.User, error)
}

// Dependencies bundles collaborators of the scheduler.
type Dependencies struct {
	Settings *settings.Store
	Tickets  repository.TicketRepository
	Closer   Closer
	Actors   ActorResolver
	Stats    stats.AutoCloseStats
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
	// Refresh is how often the owner re-reads the schedule settings so changes
	// written by other processes take effect. Zero means one minute.
	Refresh time.Duration
}

// Scheduler keeps at most one cron entry for the auto-close sweep and
// rebuilds it whenever the schedule settings change.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	armed   bool
	running bool
	spec    string
	runCtx  context.Context

	sweepMu  sync.Mutex
	updateMu sync.Mutex

	settings *settings.Store
	tickets  repository.TicketRepository
	closer   Closer
	actors   ActorResolver
	stats    stats.AutoCloseStats
	metrics  *observability.Metrics
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time
	refresh  time.Duration
}

// Status is the operator view of the scheduler. Owner reports whether this
// process runs the cron loop; Armed and NextRun are only set when it does.
type Status struct {
	Owner          bool           `json:"owner"`
	Armed          bool           `json:"armed"`
	Enabled        bool           `json:"enabled"`
	CronExpression string         `json:"cron_expression,omitempty"`
	Schedule       string         `json:"schedule"`
	NextRun        *time.Time     `json:"next_run,omitempty"`
	Frequency      Frequency      `json:"frequency"`
	GraceDays      int            `json:"grace_days"`
	PendingTickets int            `json:"pending_tickets"`
	Stats          stats.Snapshot `json:"stats"`
}

// New creates a scheduler in the disarmed state.
func New(deps Dependencies) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	location := deps.Location
	if location == nil {
		location = time.Local
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	refresh := deps.Refresh
	if refresh <= 0 {
		refresh = time.Minute
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(location)),
		runCtx:   context.Background(),
		settings: deps.Settings,
		tickets:  deps.Tickets,
		closer:   deps.Closer,
		actors:   deps.Actors,
		stats:    deps.Stats,
		metrics:  deps.Metrics,
		logger:   logger,
		location: location,
		now:      now,
		refresh:  refresh,
	}
}

// Start runs the cron loop and arms the job from the current settings.
// Blocks until ctx is cancelled, then waits for a running sweep to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.running = true
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("auto-close scheduler started")
	if err := s.Reconfigure(ctx); err != nil {
		s.logger.Error("auto-close scheduler not armed", zap.Error(err))
	}

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			<-s.cron.Stop().Done()
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			s.logger.Info("auto-close scheduler stopped")
			return nil
		case <-ticker.C:
			s.refreshIfChanged(ctx)
		}
	}
}

// Initialize arms the scheduler for the first time.
func (s *Scheduler) Initialize(ctx context.Context) error {
	return s.Reconfigure(ctx)
}

// Reconfigure drops the current entry and arms a new one from the latest
// settings. A sweep that is already running is left to finish. On any
// failure the scheduler stays disarmed.
func (s *Scheduler) Reconfigure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarm()

	cfg := LoadConfig(ctx, s.settings)
	if !cfg.Enabled {
		s.logger.Info("auto-close disabled; scheduler disarmed")
		return nil
	}

	if _, err := s.actors.Resolve(ctx); err != nil {
		if !apperrors.HasCode(err, apperrors.CodeConfiguration) {
			err = apperrors.NewConfigurationError("resolve system account", err)
		}
		return err
	}

	spec := cfg.CronSpec()
	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return apperrors.NewConfigurationError(fmt.Sprintf("invalid cron expression %q", spec), err)
	}
	s.entryID = id
	s.armed = true
	s.spec = spec
	s.logger.Info("auto-close scheduler armed",
		zap.String("cron", spec),
		zap.String("schedule", cfg.Describe()),
		zap.Int("grace_days", cfg.GraceDays))
	return nil
}

// Status reports the live entry together with the current settings.
func (s *Scheduler) Status(ctx context.Context) (Status, error) {
	s.mu.Lock()
	armed, spec, running := s.armed && s.running, s.spec, s.running
	s.mu.Unlock()

	cfg := LoadConfig(ctx, s.settings)
	status := Status{
		Owner:          running,
		Armed:          armed,
		Enabled:        cfg.Enabled,
		CronExpression: spec,
		Schedule:       cfg.Describe(),
		Frequency:      cfg.Frequency,
		GraceDays:      cfg.GraceDays,
	}
	now := s.now()
	if armed {
		if schedule, err := cron.ParseStandard(spec); err == nil {
			next := schedule.Next(now.In(s.location))
			status.NextRun = &next
		}
	}

	pending, err := s.tickets.CountByStateResolvedBefore(ctx, domain.TicketStateResolved, cutoff(now, cfg.GraceDays))
	if err != nil {
		return status, apperrors.MapError(err)
	}
	status.PendingTickets = pending

	if s.stats != nil {
		snap, err := s.stats.Snapshot(ctx)
		if err != nil {
			s.logger.Warn("read auto-close statistics failed", zap.Error(err))
		}
		status.Stats = snap
	}
	return status, nil
}

// refreshIfChanged re-arms when the stored schedule no longer matches the live entry.
func (s *Scheduler) refreshIfChanged(ctx context.Context) {
	cfg := LoadConfig(ctx, s.settings)
	want := ""
	if cfg.Enabled {
		want = cfg.CronSpec()
	}
	s.mu.Lock()
	current := s.spec
	s.mu.Unlock()
	if want == current {
		return
	}
	s.logger.Info("auto-close schedule changed", zap.String("from", current), zap.String("to", want))
	if err := s.Reconfigure(ctx); err != nil {
		s.logger.Error("auto-close scheduler not armed", zap.Error(err))
	}
}

// disarm removes the live entry; callers hold s.mu.
func (s *Scheduler) disarm() {
	if s.armed {
		s.cron.Remove(s.entryID)
	}
	s.armed = false
	s.entryID = 0
	s.spec = ""
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()

	if _, err := s.RunSweep(ctx); err != nil {
		s.logger.Error("scheduled auto-close failed", zap.Error(err))
	}
}

func cutoff(now time.Time, graceDays int) time.Time {
	return now.Add(-time.Duration(graceDays) * 24 * time.Hour)
}
