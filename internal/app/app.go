// Package app provides application lifecycle management for the vehicle watcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/config"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/coordinator"
)

// WatchApp encapsulates all components needed to watch one plate and serve its API.
// It provides lifecycle management and graceful shutdown.
type WatchApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start runs the coordinator in the background and the HTTP server in the foreground.
// It blocks until the HTTP server stops or fails.
func (app *WatchApp) Start() error {
	go func() {
		if err := app.components.Coordinator.Start(app.ctx); err != nil {
			slog.Error("Coordinator failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop stops the coordinator, waiting for any cycle in flight, then shuts down
// the HTTP server within timeout and finally releases storage (status lock,
// database pool). Storage is released even when the server shutdown times out.
func (app *WatchApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	if err := app.components.Coordinator.Stop(); err != nil {
		slog.Error("Failed to stop coordinator", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	shutdownErr := app.httpServer.Shutdown(shutdownCtx)

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	if shutdownErr != nil {
		return fmt.Errorf("server forced to shutdown: %w", shutdownErr)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *WatchApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server
func (app *WatchApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Coordinator returns the coordinator of the watched plate
func (app *WatchApp) Coordinator() coordinator.Coordinator {
	return app.components.Coordinator
}
