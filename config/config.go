package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"secureflow/native/escrow"
	"secureflow/storage"
)

// Config is the runtime configuration of the ledger and its CLI.
type Config struct {
	DataDir string `toml:"DataDir" yaml:"data_dir"`
	Backend string `toml:"Backend" yaml:"backend"`

	// Custody optionally pins the custody account; empty derives it.
	Custody   string    `toml:"Custody" yaml:"custody"`
	Escrow    Escrow    `toml:"escrow" yaml:"escrow"`
	Logging   Logging   `toml:"logging" yaml:"logging"`
	Telemetry Telemetry `toml:"telemetry" yaml:"telemetry"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	limits := escrow.DefaultLimits()
	return &Config{
		DataDir: "./secureflow-data",
		Backend: storage.BackendLevelDB,
		Escrow: Escrow{
			MinDurationSecs:     limits.MinDuration,
			MaxDurationSecs:     limits.MaxDuration,
			DisputePeriodSecs:   limits.DisputePeriod,
			EmergencyDelaySecs:  limits.EmergencyDelay,
			MaxExtensionSecs:    limits.MaxExtension,
			MaxArbiters:         limits.MaxArbiters,
			MaxMilestones:       limits.MaxMilestones,
			MaxApplications:     limits.MaxApplications,
			MilestoneReputation: limits.MilestoneReputation,
			EscrowReputation:    limits.EscrowReputation,
			ReputationThreshold: limits.ReputationThreshold.Dec(),
			InitialFeeBps:       250,
		},
		Logging: Logging{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Telemetry: Telemetry{
			Endpoint: "localhost:4318",
		},
	}
}

// Load loads the configuration from the given path. A missing file is created
// with defaults. Files ending in .yaml or .yml are decoded as YAML, anything
// else as TOML. Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path required")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	if isYAML(path) {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
		}
	}

	cfg.normalize()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func (cfg *Config) normalize() {
	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend == "" {
		cfg.Backend = storage.BackendLevelDB
	}
	cfg.Custody = strings.TrimSpace(cfg.Custody)
	cfg.Escrow.ReputationThreshold = strings.TrimSpace(cfg.Escrow.ReputationThreshold)
	if cfg.Escrow.ReputationThreshold == "" {
		cfg.Escrow.ReputationThreshold = "0"
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
}

// Limits converts the escrow section into engine limits.
func (cfg *Config) Limits() (escrow.Limits, error) {
	threshold, err := uint256.FromDecimal(cfg.Escrow.ReputationThreshold)
	if err != nil {
		return escrow.Limits{}, fmt.Errorf("invalid escrow.ReputationThreshold: %w", err)
	}
	e := cfg.Escrow
	return escrow.Limits{
		MinDuration:         e.MinDurationSecs,
		MaxDuration:         e.MaxDurationSecs,
		DisputePeriod:       e.DisputePeriodSecs,
		EmergencyDelay:      e.EmergencyDelaySecs,
		MaxExtension:        e.MaxExtensionSecs,
		MaxArbiters:         e.MaxArbiters,
		MaxMilestones:       e.MaxMilestones,
		MaxApplications:     e.MaxApplications,
		MilestoneReputation: e.MilestoneReputation,
		EscrowReputation:    e.EscrowReputation,
		ReputationThreshold: threshold,
	}, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	return toml.NewEncoder(f).Encode(cfg)
}
