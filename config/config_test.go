package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"secureflow/native/escrow"
	"secureflow/storage"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secureflow.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, storage.BackendLevelDB, cfg.Backend)
	_, err = os.Stat(path)
	require.NoError(t, err, "default config persisted")

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)

	limits, err := again.Limits()
	require.NoError(t, err)
	require.Equal(t, escrow.DefaultLimits(), limits)
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secureflow.toml")
	contents := `DataDir = "/var/lib/secureflow"
Backend = "Bolt"

[escrow]
DisputePeriodSecs = 86400
MaxMilestones = 8
ReputationThreshold = "1000"
InitialFeeBps = 100

[logging]
Level = "DEBUG"
File = "/var/log/secureflow.log"

[telemetry]
Traces = true
SampleRatio = 0.25
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/secureflow", cfg.DataDir)
	require.Equal(t, storage.BackendBolt, cfg.Backend)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, uint32(100), cfg.Escrow.InitialFeeBps)
	require.True(t, cfg.Telemetry.Traces)
	require.Equal(t, 0.25, cfg.Telemetry.SampleRatio)

	limits, err := cfg.Limits()
	require.NoError(t, err)
	require.Equal(t, uint64(86400), limits.DisputePeriod)
	require.Equal(t, uint64(8), limits.MaxMilestones)
	require.Equal(t, uint64(1000), limits.ReputationThreshold.Uint64())
	require.Equal(t, escrow.DefaultLimits().MaxArbiters, limits.MaxArbiters, "unset keys keep defaults")
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secureflow.yaml")
	contents := `data_dir: ./data
backend: sqlite
escrow:
  max_applications: 10
  emergency_delay_secs: 3600
logging:
  env: staging
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, storage.BackendSQLite, cfg.Backend)
	require.Equal(t, uint64(10), cfg.Escrow.MaxApplications)
	require.Equal(t, uint64(3600), cfg.Escrow.EmergencyDelaySecs)
	require.Equal(t, "staging", cfg.Logging.Env)
	require.Equal(t, escrow.DefaultLimits().MaxDuration, cfg.Escrow.MaxDurationSecs)
}

func TestLoadRejectsUnknownTOMLKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secureflow.toml")
	require.NoError(t, os.WriteFile(path, []byte("ListenAddress = \":6001\"\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Backend = "cassandra" }},
		{"missing data dir", func(c *Config) { c.DataDir = "" }},
		{"min above max", func(c *Config) { c.Escrow.MinDurationSecs = c.Escrow.MaxDurationSecs + 1 }},
		{"min below floor", func(c *Config) { c.Escrow.MinDurationSecs = 1 }},
		{"zero dispute period", func(c *Config) { c.Escrow.DisputePeriodSecs = 0 }},
		{"zero milestones", func(c *Config) { c.Escrow.MaxMilestones = 0 }},
		{"fee above max", func(c *Config) { c.Escrow.InitialFeeBps = 1001 }},
		{"bad threshold", func(c *Config) { c.Escrow.ReputationThreshold = "-5" }},
		{"sample ratio", func(c *Config) { c.Telemetry.SampleRatio = 1.5 }},
		{"negative rotation", func(c *Config) { c.Logging.MaxBackups = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			require.Error(t, Validate(cfg))
		})
	}

	cfg := Default()
	cfg.Backend = storage.BackendMemory
	cfg.DataDir = ""
	require.NoError(t, Validate(cfg), "memory backend needs no data dir")
	require.Error(t, Validate(nil))
}
