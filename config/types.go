package config

// Escrow carries the engine bounds. Durations are seconds.
type Escrow struct {
	MinDurationSecs     uint64 `toml:"MinDurationSecs" yaml:"min_duration_secs"`
	MaxDurationSecs     uint64 `toml:"MaxDurationSecs" yaml:"max_duration_secs"`
	DisputePeriodSecs   uint64 `toml:"DisputePeriodSecs" yaml:"dispute_period_secs"`
	EmergencyDelaySecs  uint64 `toml:"EmergencyDelaySecs" yaml:"emergency_delay_secs"`
	MaxExtensionSecs    uint64 `toml:"MaxExtensionSecs" yaml:"max_extension_secs"`
	MaxArbiters         uint64 `toml:"MaxArbiters" yaml:"max_arbiters"`
	MaxMilestones       uint64 `toml:"MaxMilestones" yaml:"max_milestones"`
	MaxApplications     uint64 `toml:"MaxApplications" yaml:"max_applications"`
	MilestoneReputation uint64 `toml:"MilestoneReputation" yaml:"milestone_reputation"`
	EscrowReputation    uint64 `toml:"EscrowReputation" yaml:"escrow_reputation"`

	// ReputationThreshold is a base-unit decimal string.
	ReputationThreshold string `toml:"ReputationThreshold" yaml:"reputation_threshold"`

	// InitialFeeBps is the platform fee applied by "admin init" unless the
	// command overrides it.
	InitialFeeBps uint32 `toml:"InitialFeeBps" yaml:"initial_fee_bps"`
}

// Logging controls the slog setup.
type Logging struct {
	Level      string `toml:"Level" yaml:"level"`
	Env        string `toml:"Env" yaml:"env"`
	File       string `toml:"File" yaml:"file"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"max_size_mb"`
	MaxBackups int    `toml:"MaxBackups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"MaxAgeDays" yaml:"max_age_days"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Traces      bool    `toml:"Traces" yaml:"traces"`
	Metrics     bool    `toml:"Metrics" yaml:"metrics"`
	Endpoint    string  `toml:"Endpoint" yaml:"endpoint"`
	Insecure    bool    `toml:"Insecure" yaml:"insecure"`
	Headers     string  `toml:"Headers" yaml:"headers"`
	SampleRatio float64 `toml:"SampleRatio" yaml:"sample_ratio"`
}
