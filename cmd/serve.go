package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	database "github.com/FACorreiaa/smart-travel-guide/app/db"
	"github.com/FACorreiaa/smart-travel-guide/app/telemetry"
	"github.com/FACorreiaa/smart-travel-guide/app/tracer"
	"github.com/FACorreiaa/smart-travel-guide/internal/container"
	"github.com/FACorreiaa/smart-travel-guide/internal/router"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and metrics servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetString("port")
			noRetention, _ := cmd.Flags().GetBool("no-retention")
			return a.serve(cmd.Context(), port, !noRetention)
		},
	}
	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides config)")
	cmd.Flags().Bool("no-retention", false, "Do not prune old cache rows while serving")
	return cmd
}

func (a *app) serve(parent context.Context, port string, retention bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	logger := a.logger

	flush := telemetry.Init(a.cfg.Sentry.DSN, a.cfg.Mode, logger)
	defer flush()

	metricsHandler, shutdownTelemetry, err := tracer.InitTracingAndMetrics()
	if err != nil {
		return err
	}

	c, err := container.NewContainer(ctx, &a.cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}
	defer c.Close()

	if port == "" {
		port = a.cfg.Server.HTTPPort
	}
	apiSrv := &http.Server{
		Addr: ":" + port,
		Handler: router.SetupRouter(&router.Config{
			RecommendationHandler: c.RecommendationHandler,
			ItineraryHandler:      c.ItineraryHandler,
			WeatherHandler:        c.WeatherHandler,
			RequestTimeout:        a.cfg.Server.Timeout,
			Logger:                logger,
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	metricsSrv := &http.Server{
		Addr:              ":" + a.cfg.Handlers.Prometheus.Port,
		Handler:           metricsHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", apiSrv.Addr), slog.String("store", a.cfg.Store))
		return listen(apiSrv)
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", slog.String("address", metricsSrv.Addr))
		return listen(metricsSrv)
	})
	if retention {
		g.Go(func() error {
			database.RunRetention(gctx, c.Pruner(), c.RetentionPolicy(), a.cfg.Cache.PruneInterval, logger)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, starting graceful shutdown...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return errors.Join(
			apiSrv.Shutdown(shutdownCtx),
			metricsSrv.Shutdown(shutdownCtx),
			shutdownTelemetry(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", slog.Any("error", err))
		return err
	}
	logger.Info("Application shut down complete.")
	return nil
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s: %w", srv.Addr, err)
	}
	return nil
}
