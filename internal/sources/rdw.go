package sources

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-logr/logr"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/httpclient"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/otel"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
)

const (
	// DefaultRegistryEndpoint is the RDW open-data dataset for registered vehicles.
	DefaultRegistryEndpoint = "https://opendata.rdw.nl/resource/m9d7-ebf2.json"

	// RegistryPlateParam is the query parameter carrying the license plate.
	RegistryPlateParam = "kenteken"
)

// RDWRegistry is a RegistrySource backed by the RDW open-data JSON API.
type RDWRegistry struct {
	client   httpclient.Client
	endpoint string
	timeout  time.Duration
	tracer   trace.Tracer
}

// RegistryOption configures an RDWRegistry.
type RegistryOption func(*RDWRegistry)

// WithRegistryEndpoint overrides DefaultRegistryEndpoint.
func WithRegistryEndpoint(endpoint string) RegistryOption {
	return func(r *RDWRegistry) {
		if endpoint != "" {
			r.endpoint = endpoint
		}
	}
}

// WithRegistryTimeout sets the per-call deadline.
func WithRegistryTimeout(timeout time.Duration) RegistryOption {
	return func(r *RDWRegistry) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithRegistryTracer enables spans around each fetch.
func WithRegistryTracer(tracer trace.Tracer) RegistryOption {
	return func(r *RDWRegistry) {
		r.tracer = tracer
	}
}

// NewRDWRegistry creates a registry source using client.
func NewRDWRegistry(client httpclient.Client, opts ...RegistryOption) *RDWRegistry {
	r := &RDWRegistry{
		client:   client,
		endpoint: DefaultRegistryEndpoint,
		timeout:  httpclient.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch retrieves the facts for id.
func (r *RDWRegistry) Fetch(ctx context.Context, id plate.Identifier) (record.Facts, error) {
	ctx, span := otel.StartSpan(ctx, r.tracer, "sources.registry.fetch",
		trace.WithAttributes(otel.AttrPlate.String(id.String())))
	defer span.End()

	logger := logr.FromContextOrDiscard(ctx).WithValues("source", otel.SourceRegistry, "plate", id.String())

	facts, err := r.fetch(ctx, id)
	if err != nil {
		kind := KindOf(err)
		span.SetAttributes(otel.AttrSourceOutcome.String(kind.String()))
		if kind == NoDataFound {
			logger.Info("No registry data found")
		} else {
			logger.Error(err, "Registry fetch failed", "kind", kind.String())
			otel.RecordError(span, err)
		}
		return nil, err
	}

	span.SetAttributes(
		otel.AttrSourceOutcome.String("success"),
		otel.AttrFactCount.Int(len(facts)),
	)
	logger.V(1).Info("Fetched registry data", "facts", len(facts))
	return facts, nil
}

func (r *RDWRegistry) fetch(ctx context.Context, id plate.Identifier) (record.Facts, error) {
	reqURL, err := r.requestURL(id)
	if err != nil {
		return nil, NewFetchError(ProtocolError, id, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := r.client.Get(ctx, reqURL, httpclient.AcceptJSON)
	if err != nil {
		return nil, NewFetchError(classifyTransportError(err), id, err)
	}

	return parseRegistryBody(id, body)
}

func (r *RDWRegistry) requestURL(id plate.Identifier) (string, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid registry endpoint: %w", err)
	}
	q := u.Query()
	q.Set(RegistryPlateParam, id.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// parseRegistryBody turns the JSON array returned by the registry into facts.
// An empty array or a JSON null is NoDataFound; element 0 carries the facts.
func parseRegistryBody(id plate.Identifier, body []byte) (record.Facts, error) {
	if !gjson.ValidBytes(body) {
		return nil, NewFetchError(ProtocolError, id, errors.New("response is not valid JSON"))
	}

	res := gjson.ParseBytes(body)
	if res.Type == gjson.Null {
		return nil, NewFetchError(NoDataFound, id, nil)
	}
	if !res.IsArray() {
		return nil, NewFetchError(ProtocolError, id, fmt.Errorf("expected JSON array, got %s", res.Type))
	}

	items := res.Array()
	if len(items) == 0 {
		return nil, NewFetchError(NoDataFound, id, nil)
	}
	if !items[0].IsObject() {
		return nil, NewFetchError(ProtocolError, id, fmt.Errorf("expected JSON object at index 0, got %s", items[0].Type))
	}

	return record.ParseFacts(items[0]), nil
}

// classifyTransportError maps an httpclient error onto the failure taxonomy.
func classifyTransportError(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	if httpclient.StatusCode(err) != 0 {
		return ConnectionFailure
	}
	if errors.Is(err, httpclient.ErrResponseTooLarge) {
		return ProtocolError
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || errors.Is(err, context.Canceled) {
		return ConnectionFailure
	}
	return ProtocolError
}
