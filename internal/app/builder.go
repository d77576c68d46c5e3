package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/api"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/app/storage"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/config"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/httpclient"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sources"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
	pkgsync "github.com/rdwwatch/rdw-vehicle-watch/internal/sync"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/coordinator"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/writer"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/telemetry"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 45 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	// TracerName is the instrumentation scope of the coordinator and sources
	TracerName = "github.com/rdwwatch/rdw-vehicle-watch"
)

// WatchAppOptions is a function that configures the app builder
type WatchAppOptions func(*watchAppConfig) error

// watchAppConfig collects the builder inputs. Component overrides are mainly for tests.
type watchAppConfig struct {
	config *config.Config

	syncManager    pkgsync.Manager
	storageFactory storage.Factory
	httpClient     httpclient.Client

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...WatchAppOptions) (*watchAppConfig, error) {
	cfg := &watchAppConfig{
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.address == "" {
		cfg.address = cfg.config.Server.GetAddress()
	}

	return cfg, nil
}

// NewWatchApp builds the coordinator, its storage and the HTTP server
func NewWatchApp(ctx context.Context, opts ...WatchAppOptions) (*WatchApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if cfg.storageFactory == nil {
		cfg.storageFactory, err = storage.NewStorageFactory(ctx, cfg.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	// Ensure cleanup happens on error
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			cfg.storageFactory.Cleanup()
		}
	}()

	components, err := buildSyncComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	httpServer, err := buildHTTPServer(cfg, components)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	cleanupNeeded = false

	cancelFunc := func() {
		cfg.storageFactory.Cleanup()
		cancel()
	}

	return &WatchApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancelFunc,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) WatchAppOptions {
	return func(cfg *watchAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address, overriding server.address
func WithAddress(addr string) WatchAppOptions {
	return func(cfg *watchAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) WatchAppOptions {
	return func(cfg *watchAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) WatchAppOptions {
	return func(cfg *watchAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithSyncManager allows injecting a custom sync manager (for testing)
func WithSyncManager(sm pkgsync.Manager) WatchAppOptions {
	return func(cfg *watchAppConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithHTTPClient sets the client shared by both sources
func WithHTTPClient(c httpclient.Client) WatchAppOptions {
	return func(cfg *watchAppConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithMeterProvider enables cycle, source and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) WatchAppOptions {
	return func(cfg *watchAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider enables coordinator, source and HTTP spans
func WithTracerProvider(tp trace.TracerProvider) WatchAppOptions {
	return func(cfg *watchAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves the Prometheus scrape endpoint
func WithMetricsHandler(h http.Handler) WatchAppOptions {
	return func(cfg *watchAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// NewSyncManager builds the two sources on a shared client and the manager joining them.
// A nil client gets a default client sized for the slower source.
func NewSyncManager(
	cfg *config.Config, client httpclient.Client, tracer trace.Tracer, mp metric.MeterProvider,
) (pkgsync.Manager, error) {
	if client == nil {
		client = httpclient.NewDefaultClient(max(cfg.Registry.GetTimeout(), cfg.StolenRegister.GetTimeout()))
	}
	set := sources.NewFromConfig(cfg, client, tracer)

	sourceMetrics, err := telemetry.NewSourceMetrics(mp)
	if err != nil {
		return nil, fmt.Errorf("failed to create source metrics: %w", err)
	}

	if !cfg.StolenRegister.Enabled() {
		slog.Warn("Stolen register endpoint not configured; stolen status stays unknown")
	}
	return pkgsync.NewDefaultSyncManager(set.Registry, set.Stolen, pkgsync.WithSourceMetrics(sourceMetrics)), nil
}

// buildSyncComponents builds the manager, coordinator and change subscribers
func buildSyncComponents(ctx context.Context, b *watchAppConfig) (*AppComponents, error) {
	slog.Info("Initializing sync components")

	id, err := b.config.Plate()
	if err != nil {
		return nil, fmt.Errorf("invalid license plate: %w", err)
	}

	var tracer trace.Tracer
	if b.tracerProvider != nil {
		tracer = b.tracerProvider.Tracer(TracerName)
	}

	if b.syncManager == nil {
		b.syncManager, err = NewSyncManager(b.config, b.httpClient, tracer, b.meterProvider)
		if err != nil {
			return nil, err
		}
	}

	stateService, err := b.storageFactory.CreateStateService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to create state service: %w", err)
	}

	cycleMetrics, err := telemetry.NewCycleMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create cycle metrics: %w", err)
	}

	coord := coordinator.New(id, b.syncManager,
		coordinator.WithInterval(b.config.Sync.GetInterval()),
		coordinator.WithRetryInitialInterval(b.config.Sync.GetRetryInitialInterval()),
		coordinator.WithStateService(stateService),
		coordinator.WithCycleMetrics(cycleMetrics),
		coordinator.WithTracer(tracer),
	)

	if _, err := coord.Subscribe(coordinator.SubscriberFunc(logChange)); err != nil {
		return nil, fmt.Errorf("failed to subscribe change logger: %w", err)
	}

	history, err := b.storageFactory.CreateHistoryWriter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create history writer: %w", err)
	}
	if history != nil {
		if _, err := coord.Subscribe(writer.NewRecorder(history)); err != nil {
			return nil, fmt.Errorf("failed to subscribe history writer: %w", err)
		}
		slog.Info("Change history enabled")
	}

	slog.Info("Sync components initialized successfully",
		"plate", id, "interval", coord.Interval())

	return &AppComponents{Coordinator: coord, History: history}, nil
}

func logChange(ctx context.Context, snap *status.Snapshot) {
	slog.InfoContext(ctx, "Vehicle record changed",
		"plate", snap.Plate,
		"is_stolen", snap.Record.Stolen.String(),
		"facts", len(snap.Record.Facts))
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(b *watchAppConfig, components *AppComponents) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Telemetry goes first so rejected and timed out requests are captured
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		b.middlewares = append([]func(http.Handler) http.Handler{metricsMiddleware}, b.middlewares...)
		slog.Info("HTTP metrics middleware enabled")
	}
	if b.tracerProvider != nil {
		b.middlewares = append([]func(http.Handler) http.Handler{telemetry.TracingMiddleware(b.tracerProvider)}, b.middlewares...)
	}

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(b.middlewares...),
		api.WithEnabledFields(b.config.Vehicle.EnabledFields()),
	}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}
	if components.History != nil {
		serverOpts = append(serverOpts, api.WithHistory(components.History))
	}

	router := api.NewServer(components.Coordinator, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
