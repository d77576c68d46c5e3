package sources

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/config"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/httpclient"
)

// Set is the pair of sources consulted in every cycle.
type Set struct {
	Registry RegistrySource
	Stolen   StolenCheckSource
}

// NewFromConfig builds both sources on a shared client. A stolen register
// without an endpoint is replaced by Disabled.
func NewFromConfig(cfg *config.Config, client httpclient.Client, tracer trace.Tracer) Set {
	registry := NewRDWRegistry(client,
		WithRegistryEndpoint(cfg.Registry.GetEndpoint()),
		WithRegistryTimeout(cfg.Registry.GetTimeout()),
		WithRegistryTracer(tracer),
	)

	if !cfg.StolenRegister.Enabled() {
		return Set{Registry: registry, Stolen: Disabled{}}
	}

	rule := DefaultMarkerRule()
	if cfg.StolenRegister.MarkerSelector != "" {
		rule.Selector = cfg.StolenRegister.MarkerSelector
	}
	if cfg.StolenRegister.MarkerPhrase != "" {
		rule.Phrase = cfg.StolenRegister.MarkerPhrase
	}

	stolen := NewStolenRegister(client, cfg.StolenRegister.Endpoint,
		WithQueryParams(cfg.StolenRegister.LangParam, cfg.StolenRegister.SearchParam),
		WithStolenTimeout(cfg.StolenRegister.GetTimeout()),
		WithMarkerRule(rule),
		WithStolenTracer(tracer),
	)
	return Set{Registry: registry, Stolen: stolen}
}
