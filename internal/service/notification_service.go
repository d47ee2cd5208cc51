package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// NotificationService forwards ticket events to the mailer outbox.
type NotificationService struct {
	dispatcher events.Dispatcher
	outbox     events.Outbox
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. A nil outbox leaves notifications logged only.
func NewNotificationService(dispatcher events.Dispatcher, outbox events.Outbox, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		outbox:     outbox,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket notification",
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("ticket_number", event.TicketNumber),
		zap.Any("payload", event.Payload))
	if n.outbox == nil {
		return nil
	}
	if err := n.outbox.Append(ctx, event); err != nil {
		return err
	}
	n.logger.Debug("notification queued",
		zap.String("stream", n.cfg.Stream),
		zap.String("from", n.cfg.EmailFrom),
		zap.String("event_id", event.ID))
	return nil
}
