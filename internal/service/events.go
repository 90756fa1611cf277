package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/table-reservation/internal/queue"
)

// Events publishes committed changes.  Publishing never fails the calling
// operation: errors are logged and dropped.  A nil *Events publishes
// nothing.
type Events struct {
	Publisher        queue.Publisher
	ReservationTopic string
	ReviewTopic      string
	Timeout          time.Duration
}

func (e *Events) publish(ctx context.Context, topic string, msg queue.Message) {
	if e == nil || e.Publisher == nil || topic == "" {
		return
	}
	// The request may be finishing; the event should still go out.
	ctx = context.WithoutCancel(ctx)
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	if err := e.Publisher.Publish(ctx, topic, msg); err != nil {
		slog.Warn("event publish failed", "topic", topic, "err", err)
	}
}

func (e *Events) reservation(ctx context.Context, ev queue.ReservationEvent) {
	if e == nil {
		return
	}
	e.publish(ctx, e.ReservationTopic, ev)
}

func (e *Events) review(ctx context.Context, ev queue.ReviewEvent) {
	if e == nil {
		return
	}
	e.publish(ctx, e.ReviewTopic, ev)
}
