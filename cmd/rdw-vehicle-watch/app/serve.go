package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	watchapp "github.com/rdwwatch/rdw-vehicle-watch/internal/app"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/config"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/telemetry"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/versions"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch the plate and serve the vehicle API",
	Long: `Start the refresh coordinator for the configured plate and serve the merged
record, readouts and diagnostics over HTTP.

The plate comes from vehicle.licensePlate in --config, --plate or RDW_WATCH_PLATE.
See examples/ for a sample configuration.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
)

func init() {
	serveCmd.Flags().String(config.KeyListenAddress, "", "Address to listen on (overrides server.address)")
	serveCmd.Flags().String(config.KeyInterval, "", "Refresh interval (overrides sync.interval)")

	for _, key := range []string{config.KeyListenAddress, config.KeyInterval} {
		if err := cliViper.BindPFlag(key, serveCmd.Flags().Lookup(key)); err != nil {
			slog.Error("Error binding flag", "flag", key, "error", err)
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	id, err := cfg.Plate()
	if err != nil {
		return fmt.Errorf("invalid license plate: %w", err)
	}
	slog.Info("Loaded configuration",
		"plate", id,
		"interval", cfg.Sync.GetInterval(),
		"stolen_register", cfg.StolenRegister.Enabled(),
		"history", cfg.Database != nil)

	tel, err := telemetry.New(ctx,
		telemetry.WithTelemetryConfig(cfg.Telemetry),
		telemetry.WithServiceVersion(versions.Version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(tel)

	opts := []watchapp.WatchAppOptions{
		watchapp.WithConfig(cfg),
		watchapp.WithMeterProvider(tel.MeterProvider()),
		watchapp.WithTracerProvider(tel.TracerProvider()),
	}
	if h := tel.MetricsHandler(); h != nil {
		opts = append(opts, watchapp.WithMetricsHandler(h))
	}

	watch, err := watchapp.NewWatchApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- watch.Start()
	}()

	select {
	case err := <-errCh:
		if stopErr := watch.Stop(defaultGracefulTimeout); stopErr != nil {
			slog.Error("Failed to stop application", "error", stopErr)
		}
		return err
	case <-ctx.Done():
	}

	return watch.Stop(defaultGracefulTimeout)
}

func shutdownTelemetry(tel *telemetry.Telemetry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tel.Shutdown(ctx); err != nil {
		slog.Error("Failed to shutdown telemetry", "error", err)
	}
}
