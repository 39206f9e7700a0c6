package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher accepts events from domain logic without blocking it: Emit drops
// into a buffered inbox and the worker persists in the background. A full
// inbox drops the event with a warning; audit here is observability, not a
// compliance trail, so losing an event must never stall a commit.
type Publisher struct {
	store  Store
	logger *slog.Logger
	inbox  chan Event
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:  store,
		logger: logger,
		inbox:  make(chan Event, 256),
	}
}

// Emit queues an event, filling in ID and timestamp when absent.
func (p *Publisher) Emit(event Event) {
	if p == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit inbox full, dropping event", "action", string(event.Action))
	}
}

// Run consumes the inbox until ctx is cancelled, draining what it can on the
// way out.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return ctx.Err()
		case event := <-p.inbox:
			p.persist(ctx, event)
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case event := <-p.inbox:
			p.persist(ctx, event)
		default:
			return
		}
	}
}

func (p *Publisher) persist(ctx context.Context, event Event) {
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "failed to persist audit event",
			"action", string(event.Action),
			"error", err,
		)
	}
}
