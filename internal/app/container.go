// Package app assembles the service graph shared by the API server and the admin CLI.
package app

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/scheduler"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/settings"
	"github.com/spec-kit/helpdesk-service/internal/stats"
)

// Container holds the wired services.
type Container struct {
	Users         repository.UserRepository
	Settings      *settings.Store
	Dispatcher    events.Dispatcher
	Numbers       *service.TicketNumberGenerator
	Tickets       *service.TicketService
	Assignment    *service.AssignmentService
	SystemAccount *service.SystemAccountService
	Notifications *service.NotificationService
	Scheduler     *scheduler.Scheduler
	Metrics       *observability.Metrics
}

// Build wires repositories and services over pool. Redis backs statistics
// and the notification outbox when enabled.
func Build(cfg *config.Config, pool *pgxpool.Pool, rdb *persistence.Redis, logger *zap.Logger) *Container {
	txManager := repository.NewTxManager(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	linkRepo := repository.NewSupervisorLinkRepository(pool)

	store := settings.NewStore(repository.NewSystemSettingRepository(pool), logger)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	var (
		statsStore stats.AutoCloseStats = stats.NewSettingsStats(store)
		outbox     events.Outbox
	)
	if rdb.Enabled() {
		statsStore = stats.NewRedisStats(rdb.Client)
		outbox = events.NewRedisOutbox(rdb.Client, cfg.Notification.Stream, cfg.Notification.StreamMaxLen)
	}

	numbers := service.NewTicketNumberGenerator(ticketRepo, store)
	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		TxManager:  txManager,
		UserRepo:   userRepo,
		LinkRepo:   linkRepo,
		TicketRepo: ticketRepo,
		Logger:     logger,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		TxManager:     txManager,
		TicketRepo:    ticketRepo,
		ChangeLogRepo: repository.NewChangeLogRepository(pool),
		UserRepo:      userRepo,
		CategoryRepo:  repository.NewCategoryRepository(pool),
		Numbers:       numbers,
		Authorizer:    assignment,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	systemAccount := service.NewSystemAccountService(userRepo, cfg.Scheduler.SystemUserEmail, cfg.Auth.BcryptCost, logger)

	return &Container{
		Users:         userRepo,
		Settings:      store,
		Dispatcher:    dispatcher,
		Numbers:       numbers,
		Tickets:       tickets,
		Assignment:    assignment,
		SystemAccount: systemAccount,
		Notifications: service.NewNotificationService(dispatcher, outbox, logger, cfg.Notification),
		Scheduler: scheduler.New(scheduler.Dependencies{
			Settings: store,
			Tickets:  ticketRepo,
			Closer:   tickets,
			Actors:   systemAccount,
			Stats:    statsStore,
			Metrics:  metrics,
			Logger:   logger,
			Refresh:  time.Duration(cfg.Scheduler.RefreshSeconds) * time.Second,
		}),
		Metrics: metrics,
	}
}
