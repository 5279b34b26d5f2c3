// Package publisher delivers audit events to a store, synchronously by
// default or through a bounded async buffer when emission must not sit on
// the request path.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	audit "medicus/pkg/platform/audit"
)

// Publisher forwards events to a backing store. In async mode a full
// buffer drops the event rather than blocking the caller: audit loss is
// preferable to stalling patient operations.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox chan audit.Event
	done  chan struct{}
	once  sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous delivery through a buffer of the
// given size. Close drains the buffer before returning.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger sets the logger used to report dropped or failed events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher builds a Publisher over store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

// Emit records one event. Synchronous mode returns the store's error;
// async mode enqueues and never fails, dropping the event if the buffer
// is full.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		if p.logger != nil {
			p.logger.Warn("audit buffer full, event dropped",
				"action", event.Action, "subject", event.Subject)
		}
		return nil
	}
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("audit append failed",
				"action", event.Action, "subject", event.Subject, "error", err)
		}
	}
}

// Close stops the publisher. In async mode it drains buffered events
// before returning. Safe to call more than once.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox == nil {
			close(p.done)
			return
		}
		close(p.inbox)
	})
	<-p.done
}

// List exposes the backing store's per-subject listing when the store
// supports it (the in-memory store does). Convenience for tests and the
// admin surface.
func (p *Publisher) List(ctx context.Context, subject string) ([]audit.Event, error) {
	lister, ok := p.store.(interface {
		ListBySubject(ctx context.Context, subject string) ([]audit.Event, error)
	})
	if !ok {
		return nil, nil
	}
	return lister.ListBySubject(ctx, subject)
}
