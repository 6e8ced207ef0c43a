package config

import (
	"fmt"

	"github.com/holiman/uint256"

	"secureflow/native/fees"
	"secureflow/storage"
)

var (
	MinDurationFloorSeconds = uint64(60)
)

// Validate checks the loaded configuration for values the ledger cannot run
// with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is missing")
	}
	switch cfg.Backend {
	case storage.BackendMemory, storage.BackendLevelDB, storage.BackendBolt, storage.BackendSQLite:
	default:
		return fmt.Errorf("storage: unsupported backend %q", cfg.Backend)
	}
	if cfg.Backend != storage.BackendMemory && cfg.DataDir == "" {
		return fmt.Errorf("storage: data_dir required for %s backend", cfg.Backend)
	}

	e := cfg.Escrow
	if e.MinDurationSecs < MinDurationFloorSeconds {
		return fmt.Errorf("escrow: min_duration below %d seconds", MinDurationFloorSeconds)
	}
	if e.MinDurationSecs > e.MaxDurationSecs {
		return fmt.Errorf("escrow: min_duration > max_duration")
	}
	if e.DisputePeriodSecs == 0 {
		return fmt.Errorf("escrow: dispute_period must be positive")
	}
	if e.EmergencyDelaySecs == 0 {
		return fmt.Errorf("escrow: emergency_delay must be positive")
	}
	if e.MaxExtensionSecs == 0 {
		return fmt.Errorf("escrow: max_extension must be positive")
	}
	if e.MaxArbiters == 0 || e.MaxMilestones == 0 || e.MaxApplications == 0 {
		return fmt.Errorf("escrow: count limits must be positive")
	}
	if err := fees.ValidateRate(e.InitialFeeBps); err != nil {
		return fmt.Errorf("escrow: initial_fee_bps: %w", err)
	}
	if _, err := uint256.FromDecimal(e.ReputationThreshold); err != nil {
		return fmt.Errorf("escrow: invalid reputation_threshold: %w", err)
	}

	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample_ratio outside [0,1]")
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging: rotation settings must not be negative")
	}
	return nil
}
