// Package config provides configuration loading and management for the vehicle watcher.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/filtering"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/telemetry"
)

// EnvPrefix is the prefix for environment variable overrides (RDW_WATCH_PLATE, ...).
const EnvPrefix = "RDW_WATCH"

// Viper keys that may override the file. Flags and environment variables bind to these.
const (
	KeyPlate         = "plate"
	KeyInterval      = "interval"
	KeyListenAddress = "listen-address"
	KeyStatusDir     = "status-dir"
)

const (
	// DefaultInterval is the polling interval when none is configured
	DefaultInterval = 24 * time.Hour

	// DefaultRetryInitialInterval is the first retry delay after a failed cycle
	DefaultRetryInitialInterval = 5 * time.Minute

	// DefaultSourceTimeout is the per-call deadline for each source
	DefaultSourceTimeout = 10 * time.Second

	// DefaultListenAddress is the address of the read-only HTTP API
	DefaultListenAddress = ":8080"

	// DefaultRegistryEndpoint is the RDW open-data dataset for registered vehicles
	DefaultRegistryEndpoint = "https://opendata.rdw.nl/resource/m9d7-ebf2.json"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path  string
	viper *viper.Viper
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// WithViper applies overrides from v (flags bound by the CLI and RDW_WATCH_* variables).
func WithViper(v *viper.Viper) Option {
	return func(cfg *loaderConfig) error {
		if v == nil {
			return fmt.Errorf("viper instance is required")
		}
		cfg.viper = v
		return nil
	}
}

// NewViper returns a viper instance reading RDW_WATCH_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Config represents the root configuration structure
type Config struct {
	Vehicle        VehicleConfig        `yaml:"vehicle"`
	Sync           SyncConfig           `yaml:"sync,omitempty"`
	Registry       RegistryConfig       `yaml:"registry,omitempty"`
	StolenRegister StolenRegisterConfig `yaml:"stolenRegister,omitempty"`
	Status         StatusConfig         `yaml:"status,omitempty"`
	Server         ServerConfig         `yaml:"server,omitempty"`
	Database       *DatabaseConfig      `yaml:"database,omitempty"`
	Telemetry      *telemetry.Config    `yaml:"telemetry,omitempty"`
}

// VehicleConfig identifies the watched vehicle
type VehicleConfig struct {
	// LicensePlate is the plate to watch, in any common notation ("G-727-FN", "g727fn")
	LicensePlate string `yaml:"licensePlate"`

	// Fields restricts the exposed readouts to registry keys matching these
	// glob patterns ("merk", "*_dt"). Empty means every known key.
	Fields []string `yaml:"fields,omitempty"`

	// ExcludeFields removes matching keys, taking precedence over Fields.
	ExcludeFields []string `yaml:"excludeFields,omitempty"`
}

// SyncConfig defines the polling schedule
type SyncConfig struct {
	// Interval between refresh cycles (e.g. "24h"). Defaults to 24h.
	Interval string `yaml:"interval,omitempty"`

	// RetryInitialInterval is the first delay after a failed cycle. Later
	// retries back off exponentially up to Interval.
	RetryInitialInterval string `yaml:"retryInitialInterval,omitempty"`
}

// RegistryConfig defines the RDW JSON endpoint
type RegistryConfig struct {
	// Endpoint is the dataset URL. The plate is passed as ?kenteken=
	Endpoint string `yaml:"endpoint,omitempty"`

	// Timeout per request (e.g. "10s")
	Timeout string `yaml:"timeout,omitempty"`
}

// StolenRegisterConfig defines the stolen-vehicle register page.
// The check is disabled when Endpoint is empty and the stolen status stays unknown.
type StolenRegisterConfig struct {
	Endpoint    string `yaml:"endpoint,omitempty"`
	LangParam   string `yaml:"langParam,omitempty"`
	SearchParam string `yaml:"searchParam,omitempty"`
	Timeout     string `yaml:"timeout,omitempty"`

	// MarkerSelector and MarkerPhrase describe the "no result" message.
	MarkerSelector string `yaml:"markerSelector,omitempty"`
	MarkerPhrase   string `yaml:"markerPhrase,omitempty"`
}

// StatusConfig defines where cycle snapshots are persisted
type StatusConfig struct {
	// Dir is the base directory; defaults to $XDG_STATE_HOME/rdw-vehicle-watch
	Dir string `yaml:"dir,omitempty"`

	// Disabled turns off snapshot persistence
	Disabled bool `yaml:"disabled,omitempty"`
}

// ServerConfig defines the HTTP API
type ServerConfig struct {
	Address string `yaml:"address,omitempty"`
}

// DatabaseConfig defines database connection settings for the change history
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`
}

// PasswordEnvVar is consulted when no password file is configured.
const PasswordEnvVar = EnvPrefix + "_DATABASE_PASSWORD"

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from RDW_WATCH_DATABASE_PASSWORD environment variable
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(PasswordEnvVar); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", PasswordEnvVar,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	), nil
}

// LoadConfig loads and parses configuration from a YAML file and/or viper overrides.
// At least one of the two must provide a license plate.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	var config Config
	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if loaderCfg.viper != nil {
		config.applyOverrides(loaderCfg.viper)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyOverrides(v *viper.Viper) {
	if s := v.GetString(KeyPlate); s != "" {
		c.Vehicle.LicensePlate = s
	}
	if s := v.GetString(KeyInterval); s != "" {
		c.Sync.Interval = s
	}
	if s := v.GetString(KeyListenAddress); s != "" {
		c.Server.Address = s
	}
	if s := v.GetString(KeyStatusDir); s != "" {
		c.Status.Dir = s
	}
}

// Plate returns the normalized license plate.
func (c *Config) Plate() (plate.Identifier, error) {
	return plate.Parse(c.Vehicle.LicensePlate)
}

// GetInterval returns the polling interval, using DefaultInterval if unset or invalid
func (s *SyncConfig) GetInterval() time.Duration {
	return parseDurationOr(s.Interval, DefaultInterval)
}

// GetRetryInitialInterval returns the first retry delay, never longer than the interval
func (s *SyncConfig) GetRetryInitialInterval() time.Duration {
	return min(parseDurationOr(s.RetryInitialInterval, DefaultRetryInitialInterval), s.GetInterval())
}

// GetEndpoint returns the registry endpoint
func (r *RegistryConfig) GetEndpoint() string {
	if r.Endpoint == "" {
		return DefaultRegistryEndpoint
	}
	return r.Endpoint
}

// GetTimeout returns the registry request timeout
func (r *RegistryConfig) GetTimeout() time.Duration {
	return parseDurationOr(r.Timeout, DefaultSourceTimeout)
}

// Enabled reports whether the stolen register check is configured
func (s *StolenRegisterConfig) Enabled() bool {
	return s.Endpoint != ""
}

// GetTimeout returns the stolen register request timeout
func (s *StolenRegisterConfig) GetTimeout() time.Duration {
	return parseDurationOr(s.Timeout, DefaultSourceTimeout)
}

// GetAddress returns the listen address of the HTTP API
func (s *ServerConfig) GetAddress() string {
	if s.Address == "" {
		return DefaultListenAddress
	}
	return s.Address
}

// EnabledFields returns the registry keys exposed as readouts, in display order.
func (v *VehicleConfig) EnabledFields() []string {
	filter, err := filtering.NewFieldFilter(v.Fields, v.ExcludeFields)
	if err != nil {
		// Rejected by validate; fall back to every key
		return append([]string(nil), record.KnownKeys...)
	}
	return filter.Select(record.KnownKeys)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error

	if c.Vehicle.LicensePlate == "" {
		errs = append(errs, fmt.Errorf("vehicle.licensePlate is required"))
	} else if _, err := c.Plate(); err != nil {
		errs = append(errs, fmt.Errorf("vehicle.licensePlate: %w", err))
	}
	errs = append(errs, validateFields(&c.Vehicle))

	errs = append(errs,
		validateDuration(c.Sync.Interval, "sync.interval"),
		validateDuration(c.Sync.RetryInitialInterval, "sync.retryInitialInterval"),
		validateDuration(c.Registry.Timeout, "registry.timeout"),
		validateDuration(c.StolenRegister.Timeout, "stolenRegister.timeout"),
	)

	if c.Registry.Endpoint != "" {
		errs = append(errs, validateEndpoint(c.Registry.Endpoint, "registry.endpoint"))
	}
	if c.StolenRegister.Enabled() {
		errs = append(errs, validateEndpoint(c.StolenRegister.Endpoint, "stolenRegister.endpoint"))
	}

	if c.Database != nil {
		errs = append(errs, validateDatabaseConfig(c.Database))
	}

	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}

func validateFields(v *VehicleConfig) error {
	filter, err := filtering.NewFieldFilter(v.Fields, v.ExcludeFields)
	if err != nil {
		return fmt.Errorf("vehicle.fields: %w", err)
	}
	var errs []error
	for _, p := range filter.Unmatched(record.KnownKeys) {
		errs = append(errs, fmt.Errorf("vehicle.fields: %q matches no known registry field", p))
	}
	if len(errs) == 0 && len(filter.Select(record.KnownKeys)) == 0 {
		errs = append(errs, fmt.Errorf("vehicle.excludeFields removes every registry field"))
	}
	return errors.Join(errs...)
}

func validateDuration(value, field string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '30m', '24h'): %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return nil
}

func validateEndpoint(endpoint, field string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https, got %q", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: host is required", field)
	}
	return nil
}

func validateDatabaseConfig(d *DatabaseConfig) error {
	var errs []error
	if d.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, fmt.Errorf("database.port must be between 1 and 65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}
	if d.Database == "" {
		errs = append(errs, fmt.Errorf("database.database is required"))
	}
	return errors.Join(errs...)
}
