package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/httpclient"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/otel"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
)

const (
	// DefaultMarkerSelector locates the register's result message.
	DefaultMarkerSelector = "#panel-4 div.card-block p"

	// DefaultMarkerPhrase is the register's "no result" message.
	DefaultMarkerPhrase = "Uw zoekopdracht naar het object heeft geen resultaat opgeleverd"

	// DefaultLangParam is the query parameter selecting the page language.
	DefaultLangParam = "lang"

	// DefaultSearchParam is the query parameter carrying the license plate.
	DefaultSearchParam = "search"
)

// PhraseMarkerRule reads a page as "not stolen" when the first element matching
// Selector contains Phrase. Any other page, including a blank one or one
// without the element, is read as stolen.
//
// Design risk: "stolen" is inferred from the missing no-result marker, not from
// a positive match, so a layout change upstream turns every plate stolen. Kept
// as the register has always been read until there is a positive signal to use.
type PhraseMarkerRule struct {
	Selector string
	Phrase   string
}

// DefaultMarkerRule returns the rule for the current register layout.
func DefaultMarkerRule() PhraseMarkerRule {
	return PhraseMarkerRule{Selector: DefaultMarkerSelector, Phrase: DefaultMarkerPhrase}
}

// Evaluate implements MarkerRule.
func (r PhraseMarkerRule) Evaluate(page []byte) (record.StolenStatus, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return record.StolenUnknown, fmt.Errorf("failed to parse register page: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	marker := doc.Find(r.Selector).First()
	if marker.Length() > 0 && strings.Contains(collapseSpace(marker.Text()), r.Phrase) {
		return record.StolenFalse, nil
	}
	return record.StolenTrue, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StolenRegister is a StolenCheckSource backed by an HTML search page.
type StolenRegister struct {
	client      httpclient.Client
	endpoint    string
	langParam   string
	searchParam string
	timeout     time.Duration
	rule        MarkerRule
	tracer      trace.Tracer
}

// StolenOption configures a StolenRegister.
type StolenOption func(*StolenRegister)

// WithQueryParams overrides the language and search parameter names.
func WithQueryParams(langParam, searchParam string) StolenOption {
	return func(s *StolenRegister) {
		if langParam != "" {
			s.langParam = langParam
		}
		if searchParam != "" {
			s.searchParam = searchParam
		}
	}
}

// WithStolenTimeout sets the per-call deadline.
func WithStolenTimeout(timeout time.Duration) StolenOption {
	return func(s *StolenRegister) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithMarkerRule replaces the page interpretation.
func WithMarkerRule(rule MarkerRule) StolenOption {
	return func(s *StolenRegister) {
		if rule != nil {
			s.rule = rule
		}
	}
}

// WithStolenTracer enables spans around each check.
func WithStolenTracer(tracer trace.Tracer) StolenOption {
	return func(s *StolenRegister) {
		s.tracer = tracer
	}
}

// NewStolenRegister creates a stolen register source querying endpoint.
func NewStolenRegister(client httpclient.Client, endpoint string, opts ...StolenOption) *StolenRegister {
	s := &StolenRegister{
		client:      client,
		endpoint:    endpoint,
		langParam:   DefaultLangParam,
		searchParam: DefaultSearchParam,
		timeout:     httpclient.DefaultTimeout,
		rule:        DefaultMarkerRule(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check consults the register for id.
func (s *StolenRegister) Check(ctx context.Context, id plate.Identifier) record.StolenStatus {
	ctx, span := otel.StartSpan(ctx, s.tracer, "sources.stolen.check",
		trace.WithAttributes(otel.AttrPlate.String(id.String())))
	defer span.End()

	logger := logr.FromContextOrDiscard(ctx).WithValues("source", otel.SourceStolen, "plate", id.String())

	status, err := s.check(ctx, id)
	if err != nil {
		logger.Error(err, "Stolen register check failed, status unknown")
		otel.RecordError(span, err)
	} else {
		logger.V(1).Info("Checked stolen register", "stolen", status.String())
	}
	span.SetAttributes(otel.AttrStolenStatus.String(status.String()))
	return status
}

func (s *StolenRegister) check(ctx context.Context, id plate.Identifier) (record.StolenStatus, error) {
	reqURL, err := s.requestURL(id)
	if err != nil {
		return record.StolenUnknown, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	page, err := s.client.Get(ctx, reqURL, httpclient.AcceptHTML)
	if err != nil {
		return record.StolenUnknown, fmt.Errorf("%s: %w", classifyTransportError(err), err)
	}

	status, err := s.rule.Evaluate(page)
	if err != nil {
		return record.StolenUnknown, err
	}
	return status, nil
}

func (s *StolenRegister) requestURL(id plate.Identifier) (string, error) {
	if s.endpoint == "" {
		return "", errors.New("stolen register endpoint is not configured")
	}
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid stolen register endpoint: %w", err)
	}
	q := u.Query()
	q.Set(s.langParam, "1")
	q.Set(s.searchParam, id.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Disabled is a StolenCheckSource that always reports unknown, used when no
// register endpoint is configured.
type Disabled struct{}

// Check implements StolenCheckSource.
func (Disabled) Check(context.Context, plate.Identifier) record.StolenStatus {
	return record.StolenUnknown
}
