package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
)

//go:generate mockgen -destination=mocks/mock_sources.go -package=mocks -source=types.go RegistrySource,StolenCheckSource,MarkerRule

// RegistrySource fetches structured vehicle facts for an identifier.
type RegistrySource interface {
	// Fetch returns the facts for id. Errors are always *FetchError.
	Fetch(ctx context.Context, id plate.Identifier) (record.Facts, error)
}

// StolenCheckSource consults the stolen-vehicle register. It never fails; every
// problem is reported as record.StolenUnknown.
type StolenCheckSource interface {
	Check(ctx context.Context, id plate.Identifier) record.StolenStatus
}

// MarkerRule decides the stolen status from a fetched register page.
// Returning an error maps the check to unknown.
type MarkerRule interface {
	Evaluate(page []byte) (record.StolenStatus, error)
}

// FailureKind classifies registry failures.
type FailureKind int

const (
	// ConnectionFailure covers DNS, dial and socket errors plus non-2xx responses.
	ConnectionFailure FailureKind = iota + 1
	// Timeout means the per-call deadline expired.
	Timeout
	// NoDataFound means the registry answered successfully with an empty result.
	NoDataFound
	// ProtocolError covers malformed or unexpected responses.
	ProtocolError
)

func (k FailureKind) String() string {
	switch k {
	case ConnectionFailure:
		return "connection_failure"
	case Timeout:
		return "timeout"
	case NoDataFound:
		return "no_data_found"
	case ProtocolError:
		return "protocol_error"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Sentinel errors matching each FailureKind, usable with errors.Is.
var (
	ErrConnection  = errors.New("registry connection failure")
	ErrTimeout     = errors.New("registry request timed out")
	ErrNoDataFound = errors.New("no registry data found")
	ErrProtocol    = errors.New("registry protocol error")
)

// FetchError is the error returned by RegistrySource implementations.
type FetchError struct {
	Kind  FailureKind
	Plate plate.Identifier
	Err   error
}

// NewFetchError creates a FetchError.
func NewFetchError(kind FailureKind, id plate.Identifier, err error) *FetchError {
	return &FetchError{Kind: kind, Plate: id, Err: err}
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("registry fetch for %s: %s", e.Plate, e.Kind)
	}
	return fmt.Sprintf("registry fetch for %s: %s: %v", e.Plate, e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *FetchError) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

// KindOf returns the FailureKind of err, or 0 when err is not a *FetchError.
func KindOf(err error) FailureKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// IsKind reports whether err is a *FetchError of the given kind.
func IsKind(err error, kind FailureKind) bool {
	return KindOf(err) == kind
}

func sentinelFor(kind FailureKind) error {
	switch kind {
	case ConnectionFailure:
		return ErrConnection
	case Timeout:
		return ErrTimeout
	case NoDataFound:
		return ErrNoDataFound
	case ProtocolError:
		return ErrProtocol
	default:
		return nil
	}
}
