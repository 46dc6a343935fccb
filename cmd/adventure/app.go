package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/PixelPioneer1807/adventure"
	"github.com/PixelPioneer1807/adventure/internal/config"
	"github.com/PixelPioneer1807/adventure/internal/logging"
	"github.com/PixelPioneer1807/adventure/pkg/adapters/file"
	"github.com/PixelPioneer1807/adventure/pkg/adapters/loam"
	"github.com/PixelPioneer1807/adventure/pkg/adapters/memory"
	"github.com/PixelPioneer1807/adventure/pkg/adapters/postgres"
	"github.com/PixelPioneer1807/adventure/pkg/adapters/redis"
	"github.com/PixelPioneer1807/adventure/pkg/adapters/rest"
	"github.com/PixelPioneer1807/adventure/pkg/analytics"
	"github.com/PixelPioneer1807/adventure/pkg/observability"
	"github.com/PixelPioneer1807/adventure/pkg/persistence/middleware"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
	"github.com/PixelPioneer1807/adventure/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// errNoStore is returned by commands that need saves when saves.driver is none.
var errNoStore = errors.New("no save store configured (saves.driver is none)")

// app holds everything a command needs, built from the config.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	engine   *adventure.Engine
	registry *prometheus.Registry
	closers  []func()
}

// newApp loads the config named by --config and wires adapters from it.
// extra options are applied to every session after the configured ones.
func newApp(cmd *cobra.Command, extra ...session.Option) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logging.NewWriter(os.Stderr, level, cfg.Log.Format),
		registry: prometheus.NewRegistry(),
	}
	if err := a.wire(cmd.Context(), extra); err != nil {
		a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, extra []session.Option) error {
	var client *rest.Client
	backend := func() *rest.Client {
		if client == nil {
			client = rest.NewClient(a.cfg.Backend.BaseURL,
				rest.WithToken(a.cfg.Backend.Token),
				rest.WithLogger(a.logger),
			)
		}
		return client
	}

	graphs, err := a.openGraphs(backend)
	if err != nil {
		return err
	}
	store, err := a.openStore(ctx, backend)
	if err != nil {
		return err
	}
	collector := a.openCollector(backend)

	metrics := observability.NewMetrics(a.registry)
	opts := []adventure.Option{
		adventure.WithGraphProvider(graphs),
		adventure.WithLogger(a.logger),
		adventure.WithLifecycleHooks(observability.Chain(observability.LogHooks(a.logger), metrics.Hooks())),
		adventure.WithSessionOptions(
			session.WithAutoSave(a.cfg.Session.AutoSave),
			session.WithAutoSaveInterval(a.cfg.Session.AutoSaveInterval),
			session.WithSaveTimeout(a.cfg.Session.SaveTimeout),
		),
		adventure.WithSessionOptions(extra...),
	}
	if store != nil {
		store = middleware.Chain(store,
			middleware.NewLoggingMiddleware(a.logger),
			middleware.NewNameMiddleware(middleware.DefaultMaxNameLength),
		)
		opts = append(opts, adventure.WithSaveStore(store))
	}
	if collector != nil {
		opts = append(opts, adventure.WithAnalytics(collector,
			analytics.WithBufferSize(a.cfg.Analytics.BufferSize),
			analytics.WithTimeout(a.cfg.Analytics.Timeout),
		))
	}

	engine, err := adventure.New("", opts...)
	if err != nil {
		return err
	}
	a.engine = engine
	return nil
}

func (a *app) openGraphs(backend func() *rest.Client) (ports.GraphProvider, error) {
	switch a.cfg.Stories.Driver {
	case "file":
		return file.NewGraphProvider(a.cfg.Stories.Path), nil
	case "loam":
		return loam.New(a.cfg.Stories.Path), nil
	case "rest":
		return rest.NewGraphProvider(backend()), nil
	default:
		return nil, fmt.Errorf("unknown stories driver %q", a.cfg.Stories.Driver)
	}
}

// openStore returns a nil store for the none driver.
func (a *app) openStore(ctx context.Context, backend func() *rest.Client) (ports.SaveStore, error) {
	c := a.cfg.Saves
	switch c.Driver {
	case "none":
		return nil, nil
	case "memory":
		return memory.NewStore(), nil
	case "file":
		return file.New(c.Path, file.WithLogger(a.logger)), nil
	case "redis":
		store := redis.New(c.RedisAddr, c.RedisPassword, c.RedisDB, redis.WithTTL(c.RedisTTL))
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("Failed to close redis client", "err", err)
			}
		})
		return store, nil
	case "postgres":
		pool, err := postgres.Connect(ctx, c.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		store := postgres.New(pool, postgres.WithLogger(a.logger))
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "rest":
		return rest.NewSaveStore(backend()), nil
	default:
		return nil, fmt.Errorf("unknown saves driver %q", c.Driver)
	}
}

func (a *app) openCollector(backend func() *rest.Client) ports.AnalyticsCollector {
	switch a.cfg.Analytics.Driver {
	case "log":
		return analytics.NewLogCollector(a.logger)
	case "rest":
		return rest.NewAnalyticsCollector(backend())
	default:
		return nil
	}
}

// store returns the configured save store or errNoStore.
func (a *app) store() (ports.SaveStore, error) {
	if s := a.engine.Store(); s != nil {
		return s, nil
	}
	return nil, errNoStore
}

// close tears the engine down, then releases connections.
func (a *app) close(ctx context.Context) {
	if a.engine != nil {
		if err := a.engine.Close(ctx); err != nil {
			a.logger.Warn("Analytics did not drain", "err", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
