package session

import (
	"log/slog"
	"time"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
)

// DefaultAutoSaveInterval is the auto-save period used when none is configured.
const DefaultAutoSaveInterval = 30 * time.Second

// DefaultSaveTimeout bounds a background auto-save round trip.
const DefaultSaveTimeout = 10 * time.Second

// Emitter receives analytics events. analytics.Dispatcher implements it.
type Emitter interface {
	Emit(event domain.AnalyticsEvent)
}

// ViewListener is notified with the new view after every visible change.
type ViewListener func(view domain.SessionView)

// Option configures a Session.
type Option func(*Session)

// WithID sets the session identifier. Defaults to a random UUID.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithStore attaches the save store used by saves, loads and auto-save.
func WithStore(store ports.SaveStore) Option {
	return func(s *Session) {
		s.store = store
	}
}

// WithEmitter attaches the analytics sink.
func WithEmitter(e Emitter) Option {
	return func(s *Session) {
		s.emitter = e
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// WithViewListener registers a callback receiving each new view.
func WithViewListener(fn ViewListener) Option {
	return func(s *Session) {
		s.listener = fn
	}
}

// WithLogger configures a logger for the Session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithTicker overrides how the auto-save timer is created.
func WithTicker(factory TickerFactory) Option {
	return func(s *Session) {
		s.newTicker = factory
	}
}

// WithAutoSaveInterval sets the auto-save period.
func WithAutoSaveInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithAutoSave sets the initial auto-save preference. Defaults to enabled.
func WithAutoSave(enabled bool) Option {
	return func(s *Session) {
		s.autoSave = enabled
	}
}

// WithSaveTimeout bounds each background auto-save request.
func WithSaveTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.saveTimeout = d
		}
	}
}
