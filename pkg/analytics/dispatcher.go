// Package analytics delivers lifecycle events to an AnalyticsCollector
// without ever blocking play.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PixelPioneer1807/adventure/internal/logging"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
)

const (
	defaultBufferSize = 64
	defaultTimeout    = 5 * time.Second
)

// Dispatcher forwards events to a collector from a single worker, in emission order.
// Emit never blocks: when the buffer is full the event is dropped with a warning.
type Dispatcher struct {
	collector ports.AnalyticsCollector
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
	events chan domain.AnalyticsEvent
	done   chan struct{}
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger configures a logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithBufferSize sets how many events may wait for delivery.
func WithBufferSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.events = make(chan domain.AnalyticsEvent, n)
		}
	}
}

// WithTimeout bounds each delivery.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher starts the delivery worker.
func NewDispatcher(collector ports.AnalyticsCollector, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		collector: collector,
		logger:    logging.NewNop(),
		timeout:   defaultTimeout,
		now:       time.Now,
		events:    make(chan domain.AnalyticsEvent, defaultBufferSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.loop()
	return d
}

// Emit queues an event for delivery.
func (d *Dispatcher) Emit(event domain.AnalyticsEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Debug("Analytics event after close dropped", "story_id", event.StoryID, "event_type", event.Type)
		return
	}

	select {
	case d.events <- event:
	default:
		d.logger.Warn("Analytics buffer full, event dropped",
			"story_id", event.StoryID,
			"event_type", event.Type,
		)
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for event := range d.events {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event domain.AnalyticsEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.collector.Record(ctx, event); err != nil {
		d.logger.Warn("Failed to record analytics event",
			"story_id", event.StoryID,
			"session_id", event.SessionID,
			"event_type", event.Type,
			"err", err,
		)
	}
}

// Close stops accepting events and waits for queued ones to be delivered,
// or for ctx to be done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
