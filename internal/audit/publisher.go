package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	id "roster/pkg/domain"
)

// dropLogEvery samples the buffer-full warning so a saturated buffer does not
// flood the log with one line per lost event.
const dropLogEvery = 100

// Publisher is the portal's audit fan-in. Services emit events; the
// publisher stamps and persists them, either inline or through a buffered
// background writer. The trail is advisory: a full buffer drops events
// rather than stalling tenant operations.
type Publisher struct {
	store  Store
	logger *slog.Logger

	async  bool
	events chan Event
	wg     sync.WaitGroup
	drops  atomic.Int64
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer moves persistence onto a background goroutine behind a
// buffer of the given size. Non-positive sizes leave the publisher
// synchronous.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets the logger used for persistence failures and
// drop reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records one event. The timestamp defaults to now in UTC when the
// caller left it zero. In async mode Emit never blocks; a full buffer loses
// the event and bumps the drop counter instead.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if !p.async {
		return p.store.Append(ctx, event)
	}

	select {
	case p.events <- event:
	default:
		p.countDrop(event)
	}
	return nil
}

// List reads the trail back for a tenant, newest first.
func (p *Publisher) List(ctx context.Context, tenantID id.TenantID, limit int) ([]Event, error) {
	return p.store.ListByTenant(ctx, tenantID, limit)
}

// Close stops the background writer after persisting everything queued.
func (p *Publisher) Close() {
	if !p.async {
		return
	}
	close(p.events)
	p.wg.Wait()
	if n := p.drops.Load(); n > 0 && p.logger != nil {
		p.logger.Warn("audit events lost to full buffer", "dropped", n)
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	// Detached context: the events were accepted before shutdown began and
	// still belong in the trail.
	ctx := context.Background()
	for event := range p.events {
		if err := p.store.Append(ctx, event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"tenant_id", event.TenantID.String(),
			)
		}
	}
}

func (p *Publisher) countDrop(event Event) {
	n := p.drops.Add(1)
	if p.logger != nil && (n == 1 || n%dropLogEvery == 0) {
		p.logger.Warn("audit buffer full, dropping events",
			"dropped_so_far", n,
			"action", event.Action,
			"tenant_id", event.TenantID.String(),
		)
	}
}
