// Package publisher fronts an audit.Store with optional asynchronous
// buffering. Emission is best-effort: a full buffer drops the event rather
// than blocking the caller.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "semaforo/pkg/platform/audit"
)

var (
	// ErrListUnsupported is returned by List when the store cannot be queried.
	ErrListUnsupported = errors.New("audit store does not support listing")

	// ErrClosed is returned by Emit once Close has been called.
	ErrClosed = errors.New("audit publisher closed")
)

type subjectLister interface {
	ListBySubject(ctx context.Context, subject string) ([]audit.Event, error)
}

// Publisher forwards audit events to a store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	// mu guards closed and the send on buffer so Close never races Emit.
	mu        sync.RWMutex
	closed    bool
	buffer    chan audit.Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with a buffer
// of size n. Events emitted while the buffer is full are dropped.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = make(chan audit.Event, n)
		}
	}
}

// WithLogger sets a logger for dropped or failed events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher over store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records event. The timestamp and category are filled in when unset.
// Emitting after Close returns ErrClosed.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.buffer <- event:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event",
				"action", event.Action,
				"subject", event.Subject,
			)
		}
	}
	return nil
}

// List returns the events recorded for subject when the store supports it.
func (p *Publisher) List(ctx context.Context, subject string) ([]audit.Event, error) {
	lister, ok := p.store.(subjectLister)
	if !ok {
		return nil, ErrListUnsupported
	}
	return lister.ListBySubject(ctx, subject)
}

// Close stops accepting events and drains the async buffer.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		if p.buffer != nil {
			close(p.buffer)
		}
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Warn("failed to persist audit event",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
	}
}
