package adventure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/PixelPioneer1807/adventure/internal/logging"
	"github.com/PixelPioneer1807/adventure/pkg/adapters/loam"
	"github.com/PixelPioneer1807/adventure/pkg/analytics"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/navigator"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
	"github.com/PixelPioneer1807/adventure/pkg/session"
)

// Version is the engine release. Overridden at build time with
// -ldflags "-X github.com/PixelPioneer1807/adventure.Version=...".
var Version = "0.1.0"

// Engine is the high-level entry point for the library.
// It wires a graph provider, an optional save store and analytics into a
// session Manager.
type Engine struct {
	manager     *session.Manager
	graphs      ports.GraphProvider
	store       ports.SaveStore
	collector   ports.AnalyticsCollector
	dispatchOpt []analytics.Option
	dispatcher  *analytics.Dispatcher
	hooks       domain.LifecycleHooks
	sessionOpts []session.Option
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithGraphProvider injects a story source, bypassing the default Loam provider.
func WithGraphProvider(p ports.GraphProvider) Option {
	return func(e *Engine) {
		e.graphs = p
	}
}

// WithSaveStore enables saving and loading.
func WithSaveStore(s ports.SaveStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithAnalytics forwards session events to collector through a non-blocking
// Dispatcher owned by the Engine.
func WithAnalytics(collector ports.AnalyticsCollector, opts ...analytics.Option) Option {
	return func(e *Engine) {
		e.collector = collector
		e.dispatchOpt = opts
	}
}

// WithLifecycleHooks registers observability hooks on every session.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithSessionOptions appends options applied to every session.
func WithSessionOptions(opts ...session.Option) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, opts...)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine. storiesDir is read with Loam unless a graph provider
// is injected, in which case it may be empty.
func New(storiesDir string, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.graphs == nil {
		if storiesDir == "" {
			return nil, errors.New("stories directory is required without a graph provider")
		}
		e.graphs = loam.New(storiesDir)
	}

	sessionOpts := make([]session.Option, 0, len(e.sessionOpts)+2)
	sessionOpts = append(sessionOpts, session.WithHooks(e.hooks))
	if e.collector != nil {
		dispatchOpts := append([]analytics.Option{analytics.WithLogger(e.logger)}, e.dispatchOpt...)
		e.dispatcher = analytics.NewDispatcher(e.collector, dispatchOpts...)
		sessionOpts = append(sessionOpts, session.WithEmitter(e.dispatcher))
	}
	sessionOpts = append(sessionOpts, e.sessionOpts...)

	e.manager = session.NewManager(e.graphs, e.store,
		session.WithManagerLogger(e.logger),
		session.WithSessionOptions(sessionOpts...),
	)
	return e, nil
}

// Manager returns the session manager, for transports.
func (e *Engine) Manager() *session.Manager {
	return e.manager
}

// Graphs returns the story source.
func (e *Engine) Graphs() ports.GraphProvider {
	return e.graphs
}

// Store returns the save store, or nil.
func (e *Engine) Store() ports.SaveStore {
	return e.store
}

// Play starts a new session at the story root.
func (e *Engine) Play(ctx context.Context, storyID string, opts ...session.Option) (*session.Session, error) {
	return e.manager.Open(ctx, storyID, opts...)
}

// Resume creates a session positioned on a stored save.
func (e *Engine) Resume(ctx context.Context, saveID string, opts ...session.Option) (*session.Session, error) {
	return e.manager.Resume(ctx, saveID, opts...)
}

// Validate loads a story and checks its integrity. The report is returned
// even when it carries problems; the error is non-nil in that case.
func (e *Engine) Validate(ctx context.Context, storyID string) (*navigator.Report, error) {
	g, err := e.graphs.Graph(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("load story %q: %w", storyID, err)
	}
	report := navigator.Validate(g)
	return report, report.Err()
}

// Close tears down every live session and drains pending analytics.
func (e *Engine) Close(ctx context.Context) error {
	e.manager.CloseAll()
	if e.dispatcher != nil {
		return e.dispatcher.Close(ctx)
	}
	return nil
}
