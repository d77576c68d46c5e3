package sync

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/otel"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sources"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/telemetry"
)

// RegistryOutcome classifies the registry result of one cycle
type RegistryOutcome int

const (
	// RegistrySuccess means facts were returned
	RegistrySuccess RegistryOutcome = iota
	// RegistryEmpty means the registry answered NoDataFound
	RegistryEmpty
	// RegistryFailed means any other failure
	RegistryFailed
)

func (o RegistryOutcome) String() string {
	switch o {
	case RegistrySuccess:
		return "success"
	case RegistryEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// RegistryResult is the classified registry half of a cycle
type RegistryResult struct {
	Outcome RegistryOutcome
	Facts   record.Facts
	// Kind is set for RegistryEmpty and RegistryFailed
	Kind    sources.FailureKind
	Err     error
	Latency time.Duration
}

// Label returns "success" or the failure kind, as used in metrics and snapshots.
func (r RegistryResult) Label() string {
	if r.Outcome == RegistrySuccess {
		return r.Outcome.String()
	}
	return r.Kind.String()
}

// CycleOutcome is the joined result of both sources for one cycle
type CycleOutcome struct {
	Registry      RegistryResult
	Stolen        record.StolenStatus
	StolenLatency time.Duration
}

// Productive reports whether the cycle counts as a success: the registry
// returned facts or the stolen status is known.
func (o *CycleOutcome) Productive() bool {
	return o.Registry.Outcome == RegistrySuccess || o.Stolen.Known()
}

// Merge builds the merged record. Facts are included only on registry success.
func (o *CycleOutcome) Merge() *record.MergedRecord {
	var facts record.Facts
	if o.Registry.Outcome == RegistrySuccess {
		facts = o.Registry.Facts
	}
	return record.Merge(facts, o.Stolen)
}

// ClassifyRegistry turns a RegistrySource return into a RegistryResult.
func ClassifyRegistry(facts record.Facts, err error) RegistryResult {
	if err == nil {
		return RegistryResult{Outcome: RegistrySuccess, Facts: facts}
	}
	kind := sources.KindOf(err)
	if kind == 0 {
		kind = sources.ProtocolError
	}
	if kind == sources.NoDataFound {
		return RegistryResult{Outcome: RegistryEmpty, Kind: kind, Err: err}
	}
	return RegistryResult{Outcome: RegistryFailed, Kind: kind, Err: err}
}

// Manager gathers the inputs of a refresh cycle
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/rdwwatch/rdw-vehicle-watch/internal/sync Manager
type Manager interface {
	// Gather queries both sources concurrently and waits for both.
	// It returns an error only when ctx ended, in which case the cycle is abandoned.
	Gather(ctx context.Context, id plate.Identifier) (*CycleOutcome, error)
}

// defaultSyncManager is the default implementation of Manager
type defaultSyncManager struct {
	registry sources.RegistrySource
	stolen   sources.StolenCheckSource
	metrics  *telemetry.SourceMetrics
}

// ManagerOption configures the default manager
type ManagerOption func(*defaultSyncManager)

// WithSourceMetrics records per-source results and latency
func WithSourceMetrics(metrics *telemetry.SourceMetrics) ManagerOption {
	return func(m *defaultSyncManager) {
		m.metrics = metrics
	}
}

// NewDefaultSyncManager creates a Manager over the two sources
func NewDefaultSyncManager(
	registry sources.RegistrySource, stolen sources.StolenCheckSource, opts ...ManagerOption,
) Manager {
	m := &defaultSyncManager{registry: registry, stolen: stolen}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Gather implements Manager. Neither goroutine returns an error, so one source
// failing never cancels the other; each result is carried in its own variable.
func (m *defaultSyncManager) Gather(ctx context.Context, id plate.Identifier) (*CycleOutcome, error) {
	var (
		outcome CycleOutcome
		g       errgroup.Group
	)

	g.Go(func() error {
		start := time.Now()
		facts, err := m.registry.Fetch(ctx, id)
		outcome.Registry = ClassifyRegistry(facts, err)
		outcome.Registry.Latency = time.Since(start)
		m.metrics.RecordResult(ctx, otel.SourceRegistry, outcome.Registry.Label(), outcome.Registry.Latency)
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		outcome.Stolen = m.stolen.Check(ctx, id)
		outcome.StolenLatency = time.Since(start)
		m.metrics.RecordResult(ctx, otel.SourceStolen, outcome.Stolen.String(), outcome.StolenLatency)
		return nil
	})

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &outcome, nil
}
