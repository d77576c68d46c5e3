package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/telemetry"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		yamlContent string
		wantConfig  *Config
		wantErr     string
	}{
		{
			name: "full_config",
			yamlContent: `vehicle:
  licensePlate: g-727-fn
  fields: [merk, vervaldatum_apk_dt]
sync:
  interval: 12h
  retryInitialInterval: 10m
registry:
  endpoint: https://opendata.rdw.nl/resource/m9d7-ebf2.json
  timeout: 5s
stolenRegister:
  endpoint: https://register.example.nl/zoeken
  langParam: taal
  searchParam: trefwoord
status:
  dir: /var/lib/rdw
server:
  address: 127.0.0.1:9090`,
			wantConfig: &Config{
				Vehicle: VehicleConfig{LicensePlate: "g-727-fn", Fields: []string{"merk", "vervaldatum_apk_dt"}},
				Sync:    SyncConfig{Interval: "12h", RetryInitialInterval: "10m"},
				Registry: RegistryConfig{
					Endpoint: "https://opendata.rdw.nl/resource/m9d7-ebf2.json",
					Timeout:  "5s",
				},
				StolenRegister: StolenRegisterConfig{
					Endpoint:    "https://register.example.nl/zoeken",
					LangParam:   "taal",
					SearchParam: "trefwoord",
				},
				Status: StatusConfig{Dir: "/var/lib/rdw"},
				Server: ServerConfig{Address: "127.0.0.1:9090"},
			},
		},
		{
			name:        "minimal_config",
			yamlContent: "vehicle:\n  licensePlate: AB12CD\n",
			wantConfig:  &Config{Vehicle: VehicleConfig{LicensePlate: "AB12CD"}},
		},
		{
			name:        "missing_plate",
			yamlContent: "sync:\n  interval: 1h\n",
			wantErr:     "vehicle.licensePlate is required",
		},
		{
			name:        "invalid_plate",
			yamlContent: "vehicle:\n  licensePlate: \"AB!12\"\n",
			wantErr:     "invalid license plate",
		},
		{
			name:        "unknown_field",
			yamlContent: "vehicle:\n  licensePlate: AB12CD\n  fields: [kleur]\n",
			wantErr:     `"kleur" matches no known registry field`,
		},
		{
			name:        "invalid_field_pattern",
			yamlContent: "vehicle:\n  licensePlate: AB12CD\n  fields: [\"massa_[\"]\n",
			wantErr:     "invalid include pattern",
		},
		{
			name:        "everything_excluded",
			yamlContent: "vehicle:\n  licensePlate: AB12CD\n  excludeFields: [\"*\"]\n",
			wantErr:     "removes every registry field",
		},
		{
			name:        "invalid_interval",
			yamlContent: "vehicle:\n  licensePlate: AB12CD\nsync:\n  interval: daily\n",
			wantErr:     "sync.interval must be a valid duration",
		},
		{
			name:        "negative_timeout",
			yamlContent: "vehicle:\n  licensePlate: AB12CD\nregistry:\n  timeout: -1s\n",
			wantErr:     "registry.timeout must be positive",
		},
		{
			name:        "bad_stolen_endpoint_scheme",
			yamlContent: "vehicle:\n  licensePlate: AB12CD\nstolenRegister:\n  endpoint: ftp://register\n",
			wantErr:     "stolenRegister.endpoint: scheme must be http or https",
		},
		{
			name:        "incomplete_database",
			yamlContent: "vehicle:\n  licensePlate: AB12CD\ndatabase:\n  host: localhost\n",
			wantErr:     "database.user is required",
		},
		{
			name:        "invalid_telemetry_sampling",
			yamlContent: "vehicle:\n  licensePlate: AB12CD\ntelemetry:\n  enabled: true\n  tracing:\n    enabled: true\n    sampling: 2\n",
			wantErr:     "sampling must be between 0.0 and 1.0",
		},
		{
			name:        "invalid_yaml",
			yamlContent: "vehicle: [",
			wantErr:     "failed to parse YAML config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := LoadConfig(WithConfigPath(writeConfig(t, tt.yamlContent)))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantConfig, cfg)
		})
	}
}

func TestLoadConfig_ViperOverrides(t *testing.T) {
	t.Parallel()

	v := NewViper()
	v.Set(KeyPlate, "xx-99-yy")
	v.Set(KeyInterval, "6h")
	v.Set(KeyListenAddress, ":9999")
	v.Set(KeyStatusDir, "/tmp/rdw")

	path := writeConfig(t, "vehicle:\n  licensePlate: AB12CD\nsync:\n  interval: 1h\n")

	cfg, err := LoadConfig(WithConfigPath(path), WithViper(v))
	require.NoError(t, err)

	id, err := cfg.Plate()
	require.NoError(t, err)
	assert.Equal(t, plate.Identifier("XX99YY"), id)
	assert.Equal(t, 6*time.Hour, cfg.Sync.GetInterval())
	assert.Equal(t, ":9999", cfg.Server.GetAddress())
	assert.Equal(t, "/tmp/rdw", cfg.Status.Dir)
}

func TestLoadConfig_ViperOnly(t *testing.T) {
	t.Parallel()

	v := NewViper()
	v.Set(KeyPlate, "AB12CD")

	cfg, err := LoadConfig(WithViper(v))
	require.NoError(t, err)
	assert.Equal(t, "AB12CD", cfg.Vehicle.LicensePlate)
}

func TestLoadConfig_NoSource(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vehicle.licensePlate is required")
}

func TestWithConfigPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "empty path", path: "", wantErr: "path is required"},
		{name: "missing file", path: filepath.Join(t.TempDir(), "missing.yaml"), wantErr: "failed to evaluate symlinks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadConfig(WithConfigPath(tt.path))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, DefaultInterval, cfg.Sync.GetInterval())
	assert.Equal(t, DefaultRetryInitialInterval, cfg.Sync.GetRetryInitialInterval())
	assert.Equal(t, DefaultRegistryEndpoint, cfg.Registry.GetEndpoint())
	assert.Equal(t, DefaultSourceTimeout, cfg.Registry.GetTimeout())
	assert.Equal(t, DefaultSourceTimeout, cfg.StolenRegister.GetTimeout())
	assert.Equal(t, DefaultListenAddress, cfg.Server.GetAddress())
	assert.False(t, cfg.StolenRegister.Enabled())
	assert.Equal(t, record.KnownKeys, cfg.Vehicle.EnabledFields())
}

func TestSyncConfig_RetryCappedAtInterval(t *testing.T) {
	t.Parallel()

	s := SyncConfig{Interval: "1m", RetryInitialInterval: "10m"}
	assert.Equal(t, time.Minute, s.GetRetryInitialInterval())
}

func TestVehicleConfig_EnabledFieldsKeepsDisplayOrder(t *testing.T) {
	t.Parallel()

	v := VehicleConfig{Fields: []string{"vervaldatum_apk_dt", "merk", "kenteken"}}
	assert.Equal(t, []string{"kenteken", "merk", "vervaldatum_apk_dt"}, v.EnabledFields())
}

func TestVehicleConfig_EnabledFieldsPatterns(t *testing.T) {
	t.Parallel()

	v := VehicleConfig{Fields: []string{"*_dt"}, ExcludeFields: []string{"datum_eerste_*"}}
	assert.Equal(t, []string{"vervaldatum_apk_dt", "datum_tenaamstelling_dt"}, v.EnabledFields())

	v = VehicleConfig{ExcludeFields: []string{"*"}}
	assert.Empty(t, v.EnabledFields())

	v = VehicleConfig{Fields: []string{"["}}
	assert.Equal(t, record.KnownKeys, v.EnabledFields())
}

func TestDatabaseConfig_GetConnectionString(t *testing.T) {
	t.Parallel()

	pwFile := filepath.Join(t.TempDir(), "pw")
	require.NoError(t, os.WriteFile(pwFile, []byte("p@ss word\n"), 0600))

	d := &DatabaseConfig{Host: "db", Port: 5432, User: "rdw", Database: "history", PasswordFile: pwFile}
	conn, err := d.GetConnectionString()
	require.NoError(t, err)
	assert.Equal(t, "postgres://rdw:p%40ss+word@db:5432/history?sslmode=require", conn)

	d.SSLMode = "disable"
	conn, err = d.GetConnectionString()
	require.NoError(t, err)
	assert.Contains(t, conn, "sslmode=disable")
}

func TestDatabaseConfig_PasswordFromEnv(t *testing.T) {
	t.Setenv(PasswordEnvVar, "from-env")

	d := &DatabaseConfig{}
	pw, err := d.GetPassword()
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw)
}

func TestDatabaseConfig_NoPassword(t *testing.T) {
	t.Setenv(PasswordEnvVar, "")

	_, err := (&DatabaseConfig{}).GetPassword()
	require.Error(t, err)
	assert.Contains(t, err.Error(), PasswordEnvVar)
}

func TestConfig_TelemetryNilIsValid(t *testing.T) {
	t.Parallel()

	cfg := &Config{Vehicle: VehicleConfig{LicensePlate: "AB12CD"}, Telemetry: (*telemetry.Config)(nil)}
	assert.NoError(t, cfg.validate())
}
