package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
	pkgsync "github.com/rdwwatch/rdw-vehicle-watch/internal/sync"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/state"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/telemetry"
)

const (
	// DefaultInterval is the time between cycles after a success
	DefaultInterval = 24 * time.Hour

	// DefaultRetryInitialInterval is the first delay after a failed cycle
	DefaultRetryInitialInterval = 5 * time.Minute
)

var (
	// ErrCoordinatorStopped is returned when subscribing to or starting a stopped coordinator
	ErrCoordinatorStopped = errors.New("coordinator stopped")

	// ErrCoordinatorRunning is returned by a second Start
	ErrCoordinatorRunning = errors.New("coordinator already running")

	// ErrSubscriberNotFound is returned by Unsubscribe for an unknown id
	ErrSubscriberNotFound = errors.New("subscriber not found")

	// ErrNilSubscriber is returned by Subscribe for a nil subscriber
	ErrNilSubscriber = errors.New("subscriber is nil")
)

//go:generate mockgen -destination=mocks/mock_coordinator.go -package=mocks -source=coordinator.go Coordinator

// Coordinator owns the refresh lifecycle of a single license plate
type Coordinator interface {
	// Start runs the first cycle and then the scheduling loop.
	// Blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for it to return
	Stop() error

	// Refresh runs one cycle, or joins the cycle already in flight.
	// It never fails; the outcome is described by the Result.
	Refresh(ctx context.Context, trigger Trigger) *Result

	// Snapshot returns the current state without blocking or fetching
	Snapshot() *status.Snapshot

	// Plate returns the watched identifier
	Plate() plate.Identifier

	// Interval returns the configured refresh interval
	Interval() time.Duration

	// Subscribe registers a subscriber notified after every committed change
	Subscribe(sub Subscriber) (string, error)

	// Unsubscribe removes a subscriber
	Unsubscribe(id string) error
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	plate    plate.Identifier
	manager  pkgsync.Manager
	detector pkgsync.DataChangeDetector
	state    state.StateService

	interval     time.Duration
	retryInitial time.Duration
	now          func() time.Time

	flight singleflight.Group

	subsMu      sync.RWMutex
	subscribers map[string]Subscriber
	order       []string

	// Lifecycle management. lifeCtx bounds every cycle; the loop has its own cancel.
	lifecycleMu sync.Mutex
	lifeCtx     context.Context
	lifeCancel  context.CancelFunc
	cycles      sync.WaitGroup
	cancelFunc  context.CancelFunc
	done        chan struct{}
	stopped     bool

	metrics *telemetry.CycleMetrics
	tracer  trace.Tracer
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithInterval sets the refresh interval
func WithInterval(interval time.Duration) Option {
	return func(c *defaultCoordinator) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithRetryInitialInterval sets the first retry delay after a failed cycle.
// Zero disables retry pacing.
func WithRetryInitialInterval(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		c.retryInitial = max(d, 0)
	}
}

// WithStateService replaces the in-memory state service, e.g. to persist snapshots
func WithStateService(svc state.StateService) Option {
	return func(c *defaultCoordinator) {
		if svc != nil {
			c.state = svc
		}
	}
}

// WithChangeDetector replaces the structural change detector
func WithChangeDetector(d pkgsync.DataChangeDetector) Option {
	return func(c *defaultCoordinator) {
		if d != nil {
			c.detector = d
		}
	}
}

// WithCycleMetrics sets the cycle metrics for the coordinator
func WithCycleMetrics(metrics *telemetry.CycleMetrics) Option {
	return func(c *defaultCoordinator) {
		c.metrics = metrics
	}
}

// WithTracer enables a span per cycle
func WithTracer(tracer trace.Tracer) Option {
	return func(c *defaultCoordinator) {
		c.tracer = tracer
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(c *defaultCoordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a coordinator for id. State starts empty.
func New(id plate.Identifier, manager pkgsync.Manager, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		plate:        id,
		manager:      manager,
		detector:     pkgsync.DefaultDataChangeDetector{},
		interval:     DefaultInterval,
		retryInitial: DefaultRetryInitialInterval,
		now:          time.Now,
		subscribers:  make(map[string]Subscriber),
	}
	c.lifeCtx, c.lifeCancel = context.WithCancel(context.Background())

	for _, opt := range opts {
		opt(c)
	}

	if c.state == nil {
		c.state = state.NewStateService(status.Empty(id), nil)
	}

	return c
}

func (c *defaultCoordinator) Plate() plate.Identifier {
	return c.plate
}

func (c *defaultCoordinator) Interval() time.Duration {
	return c.interval
}

func (c *defaultCoordinator) Snapshot() *status.Snapshot {
	return c.state.Snapshot()
}

// Start begins the refresh loop. It returns when ctx ends or Stop is called;
// after a ctx-ended return the coordinator may be started again.
func (c *defaultCoordinator) Start(ctx context.Context) error {
	c.lifecycleMu.Lock()
	if c.stopped {
		c.lifecycleMu.Unlock()
		return ErrCoordinatorStopped
	}
	if c.cancelFunc != nil {
		c.lifecycleMu.Unlock()
		return ErrCoordinatorRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancelFunc = cancel
	c.done = done
	c.lifecycleMu.Unlock()

	defer func() {
		cancel()
		c.lifecycleMu.Lock()
		c.cancelFunc = nil
		c.done = nil
		c.lifecycleMu.Unlock()
		close(done)
		slog.Info("Refresh coordinator shutting down", "plate", c.plate.String())
	}()

	scheduler := pkgsync.NewRefreshScheduler(c.interval, c.retryInitial)
	slog.Info("Starting refresh coordinator",
		"plate", c.plate.String(),
		"interval", c.interval,
		"retry_initial_interval", c.retryInitial)

	result := c.Refresh(loopCtx, TriggerInitial)

	timer := time.NewTimer(scheduler.Next(!result.Success))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			result = c.Refresh(loopCtx, TriggerScheduled)
			next := scheduler.Next(!result.Success)
			slog.Debug("Next refresh scheduled", "plate", c.plate.String(), "in", next)
			timer.Reset(next)
		case <-loopCtx.Done():
			slog.Info("Refresh coordinator stopping", "plate", c.plate.String())
			return nil
		}
	}
}

// Stop ends the loop, cancels the cycle in flight and waits for both.
// No cycle commits after Stop returns, and Subscribe and Start are rejected.
func (c *defaultCoordinator) Stop() error {
	c.lifecycleMu.Lock()
	c.stopped = true
	cancel, done := c.cancelFunc, c.done
	c.lifecycleMu.Unlock()

	slog.Info("Stopping refresh coordinator", "plate", c.plate.String())
	c.lifeCancel()
	if cancel != nil {
		cancel()
		<-done
	}
	c.cycles.Wait()
	return nil
}

// beginCycle registers a cycle with the lifecycle; false once stopped
func (c *defaultCoordinator) beginCycle() bool {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.stopped {
		return false
	}
	c.cycles.Add(1)
	return true
}

func (c *defaultCoordinator) isStopped() bool {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	return c.stopped
}
