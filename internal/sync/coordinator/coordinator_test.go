package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sources"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
	statusmocks "github.com/rdwwatch/rdw-vehicle-watch/internal/status/mocks"
	pkgsync "github.com/rdwwatch/rdw-vehicle-watch/internal/sync"
	syncmocks "github.com/rdwwatch/rdw-vehicle-watch/internal/sync/mocks"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/state"
	statemocks "github.com/rdwwatch/rdw-vehicle-watch/internal/sync/state/mocks"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/telemetry"
)

var testPlate = plate.MustParse("G727FN")

func success(facts record.Facts, stolen record.StolenStatus) *pkgsync.CycleOutcome {
	return &pkgsync.CycleOutcome{
		Registry: pkgsync.RegistryResult{Outcome: pkgsync.RegistrySuccess, Facts: facts},
		Stolen:   stolen,
	}
}

func registryFailure(kind sources.FailureKind, stolen record.StolenStatus) *pkgsync.CycleOutcome {
	outcome := pkgsync.RegistryFailed
	if kind == sources.NoDataFound {
		outcome = pkgsync.RegistryEmpty
	}
	return &pkgsync.CycleOutcome{
		Registry: pkgsync.RegistryResult{
			Outcome: outcome,
			Kind:    kind,
			Err:     sources.NewFetchError(kind, testPlate, nil),
		},
		Stolen: stolen,
	}
}

// recorder collects notified snapshots
type recorder struct {
	mu        sync.Mutex
	snapshots []*status.Snapshot
}

func (r *recorder) OnRecordChanged(_ context.Context, s *status.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCoordinator(t *testing.T, opts ...Option) (*syncmocks.MockManager, Coordinator, *recorder, *fakeClock) {
	t.Helper()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}

	c := New(testPlate, manager, append([]Option{WithClock(clock.Now)}, opts...)...)
	rec := &recorder{}
	_, err := c.Subscribe(rec)
	require.NoError(t, err)
	return manager, c, rec, clock
}

func TestRefresh_FirstCycleNotifies(t *testing.T) {
	t.Parallel()

	manager, c, rec, clock := newTestCoordinator(t)
	manager.EXPECT().Gather(gomock.Any(), testPlate).
		Return(success(record.Facts{"merk": record.Text("Toyota")}, record.StolenTrue), nil)

	result := c.Refresh(context.Background(), TriggerManual)

	expected := record.Merge(record.Facts{"merk": record.Text("Toyota")}, record.StolenTrue)
	assert.True(t, result.Success)
	assert.True(t, result.Changed)
	assert.Equal(t, ReasonFirstRecord, result.Reason)
	assert.True(t, expected.Equal(result.Record), record.Diff(expected, result.Record))

	snapshot := c.Snapshot()
	assert.Same(t, result.Snapshot, snapshot)
	require.NotNil(t, snapshot.LastSuccess)
	assert.Equal(t, clock.Now(), *snapshot.LastSuccess)
	assert.Equal(t, 0, snapshot.ConsecutiveFailures)
	assert.False(t, snapshot.Stale())
	assert.Equal(t, "success", snapshot.RegistryOutcome)

	require.Equal(t, 1, rec.count())
	assert.Same(t, snapshot, rec.snapshots[0])
}

func TestRefresh_NoChangeResetsFailuresWithoutNotification(t *testing.T) {
	t.Parallel()

	manager, c, rec, clock := newTestCoordinator(t)
	facts := record.Facts{"merk": record.Text("Toyota")}

	gomock.InOrder(
		manager.EXPECT().Gather(gomock.Any(), testPlate).Return(success(facts, record.StolenFalse), nil),
		manager.EXPECT().Gather(gomock.Any(), testPlate).Return(registryFailure(sources.Timeout, record.StolenUnknown), nil),
		manager.EXPECT().Gather(gomock.Any(), testPlate).Return(success(facts.Clone(), record.StolenFalse), nil),
	)

	first := c.Refresh(context.Background(), TriggerScheduled)
	require.True(t, first.Changed)

	clock.Advance(time.Hour)
	failed := c.Refresh(context.Background(), TriggerScheduled)
	assert.False(t, failed.Success)
	assert.Equal(t, 1, failed.Snapshot.ConsecutiveFailures)

	clock.Advance(time.Hour)
	again := c.Refresh(context.Background(), TriggerScheduled)
	assert.True(t, again.Success)
	assert.False(t, again.Changed)
	assert.Equal(t, ReasonNoChange, again.Reason)
	assert.Same(t, first.Record, again.Record)
	assert.Equal(t, 0, again.Snapshot.ConsecutiveFailures)
	assert.False(t, again.Snapshot.LastCycleFailed)
	assert.Equal(t, clock.Now(), *again.Snapshot.LastSuccess)

	assert.Equal(t, 1, rec.count())
}

func TestRefresh_NoDataWithKnownStolenIsSuccess(t *testing.T) {
	t.Parallel()

	manager, c, rec, _ := newTestCoordinator(t)
	manager.EXPECT().Gather(gomock.Any(), testPlate).
		Return(registryFailure(sources.NoDataFound, record.StolenFalse), nil).Times(3)

	for range 3 {
		result := c.Refresh(context.Background(), TriggerScheduled)
		assert.True(t, result.Success)
		assert.True(t, record.Merge(nil, record.StolenFalse).Equal(result.Record))
	}

	snapshot := c.Snapshot()
	assert.Equal(t, 0, snapshot.ConsecutiveFailures)
	assert.Equal(t, "no_data_found", snapshot.RegistryOutcome)
	assert.Equal(t, 1, rec.count())
}

func TestRefresh_FailureKeepsPreviousRecord(t *testing.T) {
	t.Parallel()

	manager, c, rec, clock := newTestCoordinator(t)
	facts := record.Facts{"merk": record.Text("Toyota")}

	gomock.InOrder(
		manager.EXPECT().Gather(gomock.Any(), testPlate).Return(success(facts, record.StolenTrue), nil),
		manager.EXPECT().Gather(gomock.Any(), testPlate).Return(registryFailure(sources.Timeout, record.StolenUnknown), nil),
	)

	first := c.Refresh(context.Background(), TriggerScheduled)
	firstSuccess := *first.Snapshot.LastSuccess

	clock.Advance(time.Hour)
	result := c.Refresh(context.Background(), TriggerScheduled)

	assert.False(t, result.Success)
	assert.False(t, result.Changed)
	assert.Equal(t, ReasonSourcesFailed, result.Reason)
	assert.Same(t, first.Record, result.Record)

	snapshot := c.Snapshot()
	assert.Equal(t, 1, snapshot.ConsecutiveFailures)
	assert.True(t, snapshot.LastCycleFailed)
	assert.True(t, snapshot.Stale())
	assert.Equal(t, firstSuccess, *snapshot.LastSuccess)
	assert.Equal(t, clock.Now(), *snapshot.LastAttempt)
	assert.Equal(t, "timeout", snapshot.RegistryOutcome)
	assert.Equal(t, record.StolenUnknown, snapshot.StolenStatus)
	assert.Equal(t, status.PhaseFailed, snapshot.Phase())
	assert.Equal(t, 1, rec.count())
}

func TestRefresh_FailureWithoutPreviousRecord(t *testing.T) {
	t.Parallel()

	manager, c, rec, _ := newTestCoordinator(t)
	manager.EXPECT().Gather(gomock.Any(), testPlate).
		Return(registryFailure(sources.ConnectionFailure, record.StolenUnknown), nil)

	result := c.Refresh(context.Background(), TriggerInitial)
	assert.False(t, result.Success)
	assert.Nil(t, result.Record)
	assert.False(t, c.Snapshot().HasRecord())
	assert.Equal(t, 0, rec.count())
}

func TestRefresh_RecoveryAfterFailures(t *testing.T) {
	t.Parallel()

	manager, c, rec, clock := newTestCoordinator(t)

	manager.EXPECT().Gather(gomock.Any(), testPlate).
		Return(registryFailure(sources.ConnectionFailure, record.StolenUnknown), nil).Times(4)
	for i := 1; i <= 4; i++ {
		clock.Advance(time.Minute)
		result := c.Refresh(context.Background(), TriggerScheduled)
		assert.Equal(t, i, result.Snapshot.ConsecutiveFailures)
		assert.Nil(t, result.Snapshot.LastSuccess)
	}

	manager.EXPECT().Gather(gomock.Any(), testPlate).
		Return(success(record.Facts{"merk": record.Text("Volvo")}, record.StolenUnknown), nil)
	clock.Advance(time.Minute)
	result := c.Refresh(context.Background(), TriggerScheduled)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Snapshot.ConsecutiveFailures)
	assert.Equal(t, clock.Now(), *result.Snapshot.LastSuccess)
	assert.Equal(t, 1, rec.count())
}

func TestRefresh_ChangedRecordCarriesDiff(t *testing.T) {
	t.Parallel()

	manager, c, rec, _ := newTestCoordinator(t)
	gomock.InOrder(
		manager.EXPECT().Gather(gomock.Any(), testPlate).
			Return(success(record.Facts{"merk": record.Text("Toyota")}, record.StolenFalse), nil),
		manager.EXPECT().Gather(gomock.Any(), testPlate).
			Return(success(record.Facts{"merk": record.Text("Toyota")}, record.StolenTrue), nil),
	)

	c.Refresh(context.Background(), TriggerScheduled)
	result := c.Refresh(context.Background(), TriggerScheduled)

	assert.Equal(t, ReasonRecordChanged, result.Reason)
	assert.Contains(t, result.Diff, "is_stolen: false -> true")
	assert.Equal(t, 2, rec.count())
}

func TestRefresh_ConcurrentCallsCoalesce(t *testing.T) {
	t.Parallel()

	manager, c, rec, _ := newTestCoordinator(t)

	started := make(chan struct{})
	release := make(chan struct{})
	manager.EXPECT().Gather(gomock.Any(), testPlate).DoAndReturn(
		func(context.Context, plate.Identifier) (*pkgsync.CycleOutcome, error) {
			close(started)
			<-release
			return success(record.Facts{"merk": record.Text("Toyota")}, record.StolenTrue), nil
		}).Times(1)

	const callers = 5
	results := make([]*Result, callers)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = c.Refresh(context.Background(), TriggerScheduled)
	}()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Refresh(context.Background(), TriggerManual)
		}(i)
	}
	// let the joiners reach the in-flight call
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	shared := 0
	for _, r := range results {
		require.NotNil(t, r)
		assert.True(t, r.Success)
		assert.Same(t, results[0].Record, r.Record)
		if r.Shared {
			shared++
		}
	}
	assert.Equal(t, callers, shared)
	assert.Equal(t, 1, rec.count())
}

func TestRefresh_CancelledBeforeCommit(t *testing.T) {
	t.Parallel()

	manager, c, rec, _ := newTestCoordinator(t)
	before := c.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	manager.EXPECT().Gather(gomock.Any(), testPlate).DoAndReturn(
		func(context.Context, plate.Identifier) (*pkgsync.CycleOutcome, error) {
			cancel()
			return nil, context.Canceled
		})

	result := c.Refresh(ctx, TriggerManual)
	assert.Equal(t, ReasonCancelled, result.Reason)
	assert.False(t, result.Success)
	assert.Same(t, before, c.Snapshot())
	assert.Equal(t, 0, rec.count())
}

func TestRefresh_SubscriberPanicIsRecovered(t *testing.T) {
	t.Parallel()

	manager, c, rec, _ := newTestCoordinator(t)

	var after atomic.Int32
	_, err := c.Subscribe(SubscriberFunc(func(context.Context, *status.Snapshot) {
		panic("subscriber bug")
	}))
	require.NoError(t, err)
	_, err = c.Subscribe(SubscriberFunc(func(context.Context, *status.Snapshot) {
		after.Add(1)
	}))
	require.NoError(t, err)

	manager.EXPECT().Gather(gomock.Any(), testPlate).
		Return(success(record.Facts{"merk": record.Text("Toyota")}, record.StolenFalse), nil)

	result := c.Refresh(context.Background(), TriggerManual)
	assert.True(t, result.Success)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, int32(1), after.Load())
}

func TestSubscribe_Lifecycle(t *testing.T) {
	t.Parallel()

	manager, c, rec, _ := newTestCoordinator(t)

	_, err := c.Subscribe(nil)
	assert.ErrorIs(t, err, ErrNilSubscriber)

	other := &recorder{}
	id, err := c.Subscribe(other)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, c.Unsubscribe(id))
	assert.ErrorIs(t, c.Unsubscribe(id), ErrSubscriberNotFound)

	manager.EXPECT().Gather(gomock.Any(), testPlate).
		Return(success(record.Facts{"merk": record.Text("Toyota")}, record.StolenFalse), nil)
	c.Refresh(context.Background(), TriggerManual)

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 0, other.count())

	require.NoError(t, c.Stop())
	_, err = c.Subscribe(other)
	assert.ErrorIs(t, err, ErrCoordinatorStopped)
	assert.ErrorIs(t, c.Start(context.Background()), ErrCoordinatorStopped)
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	manager, c, rec, _ := newTestCoordinator(t,
		WithInterval(20*time.Millisecond),
		WithRetryInitialInterval(0),
	)

	var cycles atomic.Int32
	manager.EXPECT().Gather(gomock.Any(), testPlate).DoAndReturn(
		func(context.Context, plate.Identifier) (*pkgsync.CycleOutcome, error) {
			n := cycles.Add(1)
			return success(record.Facts{"aantal_cycli": record.Number(float64(n))}, record.StolenFalse), nil
		}).MinTimes(2)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(context.Background()) }()

	require.Eventually(t, func() bool { return cycles.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, c.Start(context.Background()), ErrCoordinatorRunning)

	require.NoError(t, c.Stop())
	require.NoError(t, <-errCh)
	assert.GreaterOrEqual(t, rec.count(), 2)
	assert.Equal(t, 20*time.Millisecond, c.Interval())
	assert.Equal(t, testPlate, c.Plate())
}

func TestStop_BeforeStart(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := New(testPlate, syncmocks.NewMockManager(ctrl))
	assert.NoError(t, c.Stop())
	assert.Equal(t, DefaultInterval, c.Interval())
	assert.Equal(t, status.PhasePending, c.Snapshot().Phase())
}

func TestRefresh_PersistsAndInstruments(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	persistence := statusmocks.NewMockStatusPersistence(ctrl)
	persistence.EXPECT().SaveStatus(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s *status.Snapshot) error {
			assert.Equal(t, testPlate, s.Plate)
			return nil
		}).Times(2)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := telemetry.NewCycleMetrics(mp)
	require.NoError(t, err)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	manager, c, _, _ := newTestCoordinator(t,
		WithStateService(state.NewStateService(status.Empty(testPlate), persistence)),
		WithCycleMetrics(metrics),
		WithTracer(tp.Tracer("test")),
	)
	gomock.InOrder(
		manager.EXPECT().Gather(gomock.Any(), testPlate).
			Return(success(record.Facts{"merk": record.Text("Toyota")}, record.StolenFalse), nil),
		manager.EXPECT().Gather(gomock.Any(), testPlate).
			Return(registryFailure(sources.ProtocolError, record.StolenUnknown), nil),
	)

	c.Refresh(context.Background(), TriggerManual)
	c.Refresh(context.Background(), TriggerManual)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["rdw_watch_cycle_duration_seconds"])
	assert.True(t, names["rdw_watch_consecutive_failures"])
	assert.True(t, names["rdw_watch_record_changes_total"])

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "coordinator.refresh", spans[0].Name)
}

func TestRefresh_GatherErrorIsAbandoned(t *testing.T) {
	t.Parallel()

	manager, c, _, _ := newTestCoordinator(t)
	manager.EXPECT().Gather(gomock.Any(), testPlate).Return(nil, errors.New("context ended"))

	result := c.Refresh(context.Background(), TriggerManual)
	assert.Equal(t, ReasonCancelled, result.Reason)
	assert.Equal(t, status.PhasePending, c.Snapshot().Phase())
}

func TestRefresh_StarterCancelDoesNotAbandonSharedCycle(t *testing.T) {
	t.Parallel()

	manager, c, rec, _ := newTestCoordinator(t)

	started := make(chan struct{})
	release := make(chan struct{})
	manager.EXPECT().Gather(gomock.Any(), testPlate).DoAndReturn(
		func(ctx context.Context, _ plate.Identifier) (*pkgsync.CycleOutcome, error) {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return success(record.Facts{"merk": record.Text("Toyota")}, record.StolenTrue), nil
		}).Times(1)

	manualCtx, cancelManual := context.WithCancel(context.Background())
	manual := make(chan *Result, 1)
	go func() { manual <- c.Refresh(manualCtx, TriggerManual) }()
	<-started

	scheduled := make(chan *Result, 1)
	go func() { scheduled <- c.Refresh(context.Background(), TriggerScheduled) }()
	// let the scheduled tick join the in-flight cycle
	time.Sleep(50 * time.Millisecond)

	cancelManual()
	manualResult := <-manual
	assert.Equal(t, ReasonCancelled, manualResult.Reason)

	close(release)
	tick := <-scheduled
	assert.True(t, tick.Success)
	assert.True(t, tick.Shared)
	assert.Equal(t, ReasonFirstRecord, tick.Reason)
	require.NotNil(t, tick.Record)
	assert.Equal(t, record.StolenTrue, tick.Record.Stolen)

	assert.Equal(t, 1, rec.count())
	assert.NotNil(t, c.Snapshot().LastAttempt)
}

func TestStop_CancelsCycleInFlight(t *testing.T) {
	t.Parallel()

	manager, c, rec, _ := newTestCoordinator(t)
	before := c.Snapshot()

	started := make(chan struct{})
	manager.EXPECT().Gather(gomock.Any(), testPlate).DoAndReturn(
		func(ctx context.Context, _ plate.Identifier) (*pkgsync.CycleOutcome, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}).Times(1)

	resultCh := make(chan *Result, 1)
	go func() { resultCh <- c.Refresh(context.Background(), TriggerManual) }()
	<-started

	require.NoError(t, c.Stop())

	result := <-resultCh
	assert.Equal(t, ReasonCancelled, result.Reason)
	assert.False(t, result.Success)
	assert.Same(t, before, c.Snapshot())
	assert.Equal(t, 0, rec.count())

	// no new cycle starts once stopped
	after := c.Refresh(context.Background(), TriggerManual)
	assert.Equal(t, ReasonCancelled, after.Reason)
}

func TestStop_WaitsForCycleIgnoringCancellation(t *testing.T) {
	t.Parallel()

	manager, c, rec, _ := newTestCoordinator(t)
	before := c.Snapshot()

	started := make(chan struct{})
	release := make(chan struct{})
	manager.EXPECT().Gather(gomock.Any(), testPlate).DoAndReturn(
		func(context.Context, plate.Identifier) (*pkgsync.CycleOutcome, error) {
			close(started)
			<-release
			return success(record.Facts{"merk": record.Text("Toyota")}, record.StolenTrue), nil
		}).Times(1)

	resultCh := make(chan *Result, 1)
	go func() { resultCh <- c.Refresh(context.Background(), TriggerManual) }()
	<-started

	stopped := make(chan struct{})
	go func() {
		assert.NoError(t, c.Stop())
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a cycle was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopped

	result := <-resultCh
	assert.Equal(t, ReasonCancelled, result.Reason)
	assert.Same(t, before, c.Snapshot())
	assert.Equal(t, 0, rec.count())
}

func TestStart_AgainAfterContextEnds(t *testing.T) {
	t.Parallel()

	manager, c, _, _ := newTestCoordinator(t, WithRetryInitialInterval(0))
	manager.EXPECT().Gather(gomock.Any(), testPlate).
		Return(success(record.Facts{"merk": record.Text("Toyota")}, record.StolenFalse), nil).
		AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return c.Snapshot().HasRecord() }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	go func() { errCh <- c.Start(context.Background()) }()
	require.NoError(t, c.Stop())
	err := <-errCh
	if err != nil {
		// Stop may win the race with the second Start
		assert.ErrorIs(t, err, ErrCoordinatorStopped)
	}
	assert.ErrorIs(t, c.Start(context.Background()), ErrCoordinatorStopped)
}

func TestRefresh_FailedCycleCommitsOnce(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	stateSvc := statemocks.NewMockStateService(ctrl)

	previous := &status.Snapshot{
		Plate:  testPlate,
		Record: record.Merge(record.Facts{"merk": record.Text("Toyota")}, record.StolenFalse),
	}
	stateSvc.EXPECT().Snapshot().Return(previous).AnyTimes()
	stateSvc.EXPECT().Commit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, s *status.Snapshot) {
			assert.Same(t, previous.Record, s.Record)
			assert.Equal(t, 1, s.ConsecutiveFailures)
			assert.True(t, s.LastCycleFailed)
			assert.Nil(t, s.LastSuccess)
		}).Times(1)

	manager.EXPECT().Gather(gomock.Any(), testPlate).
		Return(registryFailure(sources.Timeout, record.StolenUnknown), nil)

	c := New(testPlate, manager, WithStateService(stateSvc))
	result := c.Refresh(context.Background(), TriggerScheduled)
	assert.False(t, result.Success)
	assert.Equal(t, ReasonSourcesFailed, result.Reason)
	assert.Same(t, previous.Record, result.Record)
}
