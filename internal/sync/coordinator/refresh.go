package coordinator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/otel"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
	pkgsync "github.com/rdwwatch/rdw-vehicle-watch/internal/sync"
)

// Trigger names what started a cycle
type Trigger string

const (
	// TriggerInitial is the first cycle after Start
	TriggerInitial Trigger = "initial"
	// TriggerScheduled is a cycle started by the timer
	TriggerScheduled Trigger = "scheduled"
	// TriggerManual is a cycle requested by a user
	TriggerManual Trigger = "manual"
)

// Reason explains the result of a cycle
type Reason string

const (
	// ReasonFirstRecord means the cycle produced the first record
	ReasonFirstRecord Reason = "first-record"
	// ReasonRecordChanged means the merged record differs from the last one
	ReasonRecordChanged Reason = "record-changed"
	// ReasonNoChange means the cycle succeeded with an identical record
	ReasonNoChange Reason = "no-change"
	// ReasonSourcesFailed means neither source produced usable data
	ReasonSourcesFailed Reason = "sources-failed"
	// ReasonCancelled means the cycle was abandoned before commit
	ReasonCancelled Reason = "cancelled"
)

// Result describes one refresh cycle
type Result struct {
	// Record is the current record after the cycle; nil means no data yet
	Record *record.MergedRecord

	// Snapshot is the state after the cycle
	Snapshot *status.Snapshot

	// Outcome is the joined source result; nil when the cycle was cancelled
	Outcome *pkgsync.CycleOutcome

	Success bool
	Changed bool
	Reason  Reason
	Trigger Trigger

	// Shared is true when the caller joined a cycle started by another caller
	Shared bool

	// Diff is a readable difference to the previous record when Changed
	Diff string
}

// Refresh runs one cycle. Concurrent calls share the cycle in flight. The
// cycle belongs to the coordinator: it keeps the starter's context values but
// is only cancelled by Stop. A caller whose own context ends stops waiting and
// gets a cancelled Result while the cycle carries on for the others.
func (c *defaultCoordinator) Refresh(ctx context.Context, trigger Trigger) *Result {
	ch := c.flight.DoChan(c.plate.String(), func() (any, error) {
		if !c.beginCycle() {
			return c.cancelled(trigger), nil
		}
		defer c.cycles.Done()

		cycleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(c.lifeCtx, cancel)
		defer stop()

		return c.performCycle(cycleCtx, trigger), nil
	})

	select {
	case res := <-ch:
		result := *res.Val.(*Result)
		result.Shared = res.Shared
		return &result
	case <-ctx.Done():
		return c.cancelled(trigger)
	}
}

func (c *defaultCoordinator) cancelled(trigger Trigger) *Result {
	snapshot := c.state.Snapshot()
	return &Result{
		Record:   snapshot.Record,
		Snapshot: snapshot,
		Reason:   ReasonCancelled,
		Trigger:  trigger,
	}
}

// performCycle gathers, merges and commits one cycle
func (c *defaultCoordinator) performCycle(ctx context.Context, trigger Trigger) *Result {
	startTime := time.Now()
	plateStr := c.plate.String()

	ctx, span := otel.StartSpan(ctx, c.tracer, "coordinator.refresh",
		trace.WithAttributes(
			otel.AttrPlate.String(plateStr),
			attribute.String("cycle.trigger", string(trigger)),
		))
	defer span.End()

	slog.Info("Starting refresh cycle", "plate", plateStr, "trigger", trigger)

	outcome, err := c.manager.Gather(ctx, c.plate)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		slog.Warn("Refresh cycle abandoned", "plate", plateStr, "error", err)
		otel.RecordError(span, err)
		return c.cancelled(trigger)
	}

	previous := c.state.Snapshot()
	now := c.now()

	next := *previous
	next.LastAttempt = &now
	next.RegistryOutcome = outcome.Registry.Label()
	next.StolenStatus = outcome.Stolen

	result := &Result{Outcome: outcome, Trigger: trigger}

	if outcome.Productive() {
		merged := outcome.Merge()
		changed, diff := c.detector.IsDataChanged(previous.Record, merged)

		next.ConsecutiveFailures = 0
		next.LastCycleFailed = false
		next.LastSuccess = &now
		result.Success = true

		switch {
		case !changed:
			result.Reason = ReasonNoChange
		case previous.Record == nil:
			next.Record = merged
			result.Changed = true
			result.Reason = ReasonFirstRecord
		default:
			next.Record = merged
			result.Changed = true
			result.Reason = ReasonRecordChanged
			result.Diff = diff
		}
	} else {
		next.ConsecutiveFailures++
		next.LastCycleFailed = true
		result.Reason = ReasonSourcesFailed
	}

	c.state.Commit(ctx, &next)
	result.Snapshot = &next
	result.Record = next.Record

	duration := time.Since(startTime)
	c.metrics.RecordCycle(ctx, plateStr, duration, result.Success, next.ConsecutiveFailures)
	span.SetAttributes(
		otel.AttrCycleSuccess.Bool(result.Success),
		otel.AttrCycleChanged.Bool(result.Changed),
		otel.AttrStolenStatus.String(outcome.Stolen.String()),
	)

	if result.Success {
		slog.Info("Refresh cycle completed",
			"plate", plateStr,
			"reason", result.Reason,
			"registry", outcome.Registry.Label(),
			"stolen", outcome.Stolen.String(),
			"duration", duration)
	} else {
		slog.Error("Refresh cycle failed",
			"plate", plateStr,
			"registry", outcome.Registry.Label(),
			"stolen", outcome.Stolen.String(),
			"consecutive_failures", next.ConsecutiveFailures)
	}

	if result.Changed {
		if result.Diff != "" {
			slog.Debug("Vehicle record changed", "plate", plateStr, "diff", result.Diff)
		}
		c.metrics.RecordChange(ctx, plateStr)
		c.notify(ctx, &next)
	}

	return result
}
