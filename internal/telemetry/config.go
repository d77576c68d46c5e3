// Package telemetry provides OpenTelemetry instrumentation for the vehicle watcher.
// It supports configurable tracing with an OTLP exporter and metrics exported
// over OTLP and/or a Prometheus scrape endpoint.
package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultServiceName is reported when the config leaves the service name empty
	DefaultServiceName = "rdw-vehicle-watch"

	// DefaultEndpoint is the OTLP HTTP collector address
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling samples every refresh cycle. A watcher runs a handful of
	// cycles a day, so there is nothing to thin out.
	DefaultSampling = 1.0

	// DefaultExportInterval is the push interval of the OTLP metrics exporter
	DefaultExportInterval = 60 * time.Second
)

// Config is the telemetry section of the watcher configuration.
type Config struct {
	// Enabled turns on the tracer and meter providers; everything else is ignored when false
	Enabled bool `yaml:"enabled"`

	ServiceName    string `yaml:"serviceName,omitempty"`
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is "host:port"; the exporters append /v1/traces and /v1/metrics
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends OTLP over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	// ResourceAttributes are added to every span and metric, e.g. deployment.environment
	ResourceAttributes map[string]string `yaml:"resourceAttributes,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the TraceIDRatioBased ratio; 0 means DefaultSampling
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Prometheus serves metrics on the API's /metrics endpoint
	Prometheus bool `yaml:"prometheus,omitempty"`

	// DisableOTLP turns off the push exporter for scrape-only setups
	DisableOTLP bool `yaml:"disableOTLP,omitempty"`

	// ExportInterval is the OTLP push interval as a Go duration, e.g. "30s"
	ExportInterval string `yaml:"exportInterval,omitempty"`
}

// GetServiceName returns the service name or DefaultServiceName
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetEndpoint returns the collector endpoint or DefaultEndpoint
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio. An unset value and an explicit 0
// cannot be told apart in YAML, so both mean DefaultSampling.
func (c *TracingConfig) GetSampling() float64 {
	if c == nil || c.Sampling == 0 {
		return DefaultSampling
	}
	return c.Sampling
}

// GetExportInterval returns the parsed push interval or DefaultExportInterval.
// Call Validate first; an unparseable value also yields the default.
func (c *MetricsConfig) GetExportInterval() time.Duration {
	if c == nil || c.ExportInterval == "" {
		return DefaultExportInterval
	}
	d, err := time.ParseDuration(c.ExportInterval)
	if err != nil || d <= 0 {
		return DefaultExportInterval
	}
	return d
}

// Validate checks an enabled configuration. A nil or disabled config is valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	for k := range c.ResourceAttributes {
		if strings.TrimSpace(k) == "" {
			errs = append(errs, errors.New("resourceAttributes: empty attribute name"))
			break
		}
	}
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}
	return errors.Join(errs...)
}

// Validate checks the sampling ratio of enabled tracing
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if c.Sampling < 0 || c.Sampling > 1.0 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}
	return nil
}

// Validate checks that enabled metrics keep at least one exporter
func (c *MetricsConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if c.DisableOTLP && !c.Prometheus {
		return errors.New("at least one exporter is required: enable prometheus or keep OTLP")
	}
	if c.ExportInterval != "" {
		d, err := time.ParseDuration(c.ExportInterval)
		if err != nil {
			return fmt.Errorf("invalid exportInterval %q: %w", c.ExportInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("exportInterval must be positive, got %s", c.ExportInterval)
		}
	}
	return nil
}
