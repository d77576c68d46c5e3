package sync

import (
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
)

// DataChangeDetector decides whether a merged record differs from the last one
type DataChangeDetector interface {
	// IsDataChanged reports whether current differs from previous, with a
	// readable diff when it does. A nil previous is always a change.
	IsDataChanged(previous, current *record.MergedRecord) (bool, string)
}

// DefaultDataChangeDetector compares records structurally
type DefaultDataChangeDetector struct{}

// IsDataChanged implements DataChangeDetector
func (DefaultDataChangeDetector) IsDataChanged(previous, current *record.MergedRecord) (bool, string) {
	if previous == nil {
		return true, ""
	}
	if previous.Equal(current) {
		return false, ""
	}
	return true, record.Diff(previous, current)
}

// RefreshScheduler computes the delay before the next cycle. The delay is the
// interval after a success; after failures it grows exponentially from the
// initial retry delay and never exceeds the interval.
//
// A RefreshScheduler is owned by a single loop and is not safe for concurrent use.
type RefreshScheduler struct {
	interval time.Duration
	backoff  *backoff.ExponentialBackOff
}

// NewRefreshScheduler creates a scheduler. retryInitial <= 0 disables retry
// pacing so failed cycles wait the full interval.
func NewRefreshScheduler(interval, retryInitial time.Duration) *RefreshScheduler {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min(max(retryInitial, 0), interval)
	b.MaxInterval = interval
	b.Reset()
	return &RefreshScheduler{interval: interval, backoff: b}
}

// Interval returns the configured interval
func (s *RefreshScheduler) Interval() time.Duration {
	return s.interval
}

// Next returns the delay after a cycle that succeeded or failed
func (s *RefreshScheduler) Next(failed bool) time.Duration {
	if !failed || s.backoff.InitialInterval <= 0 {
		s.backoff.Reset()
		return s.interval
	}
	d := s.backoff.NextBackOff()
	if d == backoff.Stop || d <= 0 || d > s.interval {
		return s.interval
	}
	return d
}
