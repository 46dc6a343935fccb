package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PixelPioneer1807/adventure"
	httpadapter "github.com/PixelPioneer1807/adventure/pkg/adapters/http"
	"github.com/PixelPioneer1807/adventure/pkg/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP session server",
	Long: `Serves the session API over HTTP, with Server-Sent Events on
/sessions/{id}/events and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		streams := httpadapter.NewStreamManager(nil)
		a, err := newApp(cmd, session.WithViewListener(streams.Publish))
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		addr := a.cfg.HTTP.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		opts := []httpadapter.Option{
			httpadapter.WithLogger(a.logger),
			httpadapter.WithStreams(streams),
			httpadapter.WithVersion(adventure.Version),
		}
		if a.cfg.HTTP.Metrics {
			opts = append(opts, httpadapter.WithMetricsHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           httpadapter.NewHandler(a.engine.Manager(), opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			a.logger.Info("Starting adventure server", "addr", srv.Addr,
				"stories", a.cfg.Stories.Driver, "saves", a.cfg.Saves.Driver)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil

		case sig := <-shutdown:
			a.logger.Info("Shutting down", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				a.logger.Warn("Graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("close server: %w", err)
				}
			}
			a.logger.Info("Adventure server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Listen address; overrides http.addr")
}
