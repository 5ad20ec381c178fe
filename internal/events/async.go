package events

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when an Async publisher has no room for an event.
var ErrQueueFull = errors.New("event queue full")

// Async queues events for a slow publisher and delivers them from Run, so
// a webhook or mail server never holds up the caller.
type Async struct {
	next    Publisher
	queue   chan Event
	timeout time.Duration
	log     *zap.Logger
}

// NewAsync wraps next with a queue of buffer events. Each delivery is
// bounded by timeout when it is positive.
func NewAsync(next Publisher, buffer int, timeout time.Duration, log *zap.Logger) *Async {
	if buffer <= 0 {
		buffer = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Async{
		next:    next,
		queue:   make(chan Event, buffer),
		timeout: timeout,
		log:     log.Named("events"),
	}
}

// Publish enqueues ev without waiting for delivery.
func (a *Async) Publish(_ context.Context, ev Event) error {
	select {
	case a.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued events.
func (a *Async) Pending() int { return len(a.queue) }

// Run delivers queued events until ctx is cancelled.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if n := len(a.queue); n > 0 {
				a.log.Warn("dropping undelivered events", zap.Int("pending", n))
			}
			return nil
		case ev := <-a.queue:
			a.deliver(ctx, ev)
		}
	}
}

func (a *Async) deliver(ctx context.Context, ev Event) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := a.next.Publish(ctx, ev); err != nil {
		a.log.Warn("deliver event failed", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}
