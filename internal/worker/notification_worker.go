package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/scheduler"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartAutoCloseWorker runs the auto-close scheduler until ctx is cancelled.
// The returned channel closes once the scheduler has stopped.
func StartAutoCloseWorker(ctx context.Context, s *scheduler.Scheduler, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Start(ctx); err != nil {
			logger.Error("auto-close scheduler exited", zap.Error(err))
		}
	}()
	return done
}
