package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Outbox hands events to the external mailer.
type Outbox interface {
	Append(ctx context.Context, event Event) error
}

// RedisOutbox appends events to a capped Redis stream.
type RedisOutbox struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

func NewRedisOutbox(client redis.Cmdable, stream string, maxLen int64) *RedisOutbox {
	return &RedisOutbox{client: client, stream: stream, maxLen: maxLen}
}

func (o *RedisOutbox) Append(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: o.stream,
		Values: map[string]any{
			"id":        event.ID,
			"type":      string(event.Type),
			"ticket_id": event.TicketID,
			"body":      body,
		},
	}
	if o.maxLen > 0 {
		args.MaxLen = o.maxLen
		args.Approx = true
	}
	return o.client.XAdd(ctx, args).Err()
}
