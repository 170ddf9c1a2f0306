// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/voxforge9/clickpilot/api/schemas"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Actions  ActionsConfig  `mapstructure:"actions" yaml:"actions"`
	ROI      ROIConfig      `mapstructure:"roi" yaml:"roi"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector"`
	Host     HostConfig     `mapstructure:"host" yaml:"host"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	// DedupWindow throttles repeated identical log lines. It affects log
	// output only, never control flow.
	DedupWindow time.Duration `mapstructure:"dedup_window" yaml:"dedup_window"`
	Colors      ColorConfig   `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig configures the scan/act scheduler.
type EngineConfig struct {
	// PollInterval is the fixed repeating scan interval.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// FollowUpDelay is the bounded delay before the chained re-scan that
	// follows a successful action.
	FollowUpDelay time.Duration `mapstructure:"follow_up_delay" yaml:"follow_up_delay"`
	// MaxChainLength bounds how many chained follow-up cycles one successful
	// action may trigger before control returns to the main interval timer.
	MaxChainLength int `mapstructure:"max_chain_length" yaml:"max_chain_length"`
	// SiblingWalkDepth bounds the preceding-sibling walk of the baseline
	// host-specific scan.
	SiblingWalkDepth int `mapstructure:"sibling_walk_depth" yaml:"sibling_walk_depth"`
	// MessageLookback is how many recent conversation blocks the executor
	// searches for code-change metadata.
	MessageLookback int `mapstructure:"message_lookback" yaml:"message_lookback"`
}

// ActionsConfig maps recognized action-type names to enabled flags. Types
// absent from the map fall back to enabled.
type ActionsConfig struct {
	Enabled map[string]bool `mapstructure:"enabled" yaml:"enabled"`
}

// EnabledTypes converts the string-keyed viper map into the typed form the
// engine consumes, merged over the full default set.
func (a ActionsConfig) EnabledTypes() map[schemas.ActionType]bool {
	out := schemas.DefaultActionConfig()
	for name, on := range a.Enabled {
		out[schemas.ActionType(name)] = on
	}
	return out
}

// ROIConfig seeds the calibratable workflow baselines.
type ROIConfig struct {
	ManualWorkflowMs    int64 `mapstructure:"manual_workflow_ms" yaml:"manual_workflow_ms"`
	AutomatedWorkflowMs int64 `mapstructure:"automated_workflow_ms" yaml:"automated_workflow_ms"`
}

// StoreConfig selects the snapshot store backend.
type StoreConfig struct {
	// Backend is "sqlite", "file" or "memory".
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
	// Origin namespaces the snapshot key, matching the host document's
	// per-origin durable storage.
	Origin string `mapstructure:"origin" yaml:"origin"`
}

// DetectorConfig tunes host variant detection.
type DetectorConfig struct {
	// Override pins the variant and skips fingerprint scoring entirely.
	Override string `mapstructure:"override" yaml:"override"`
}

// HostConfig describes how to reach the host UI.
type HostConfig struct {
	// DevtoolsURL attaches to a running host over the DevTools protocol.
	DevtoolsURL string `mapstructure:"devtools_url" yaml:"devtools_url"`
	// SnapshotPath scans a saved HTML rendering instead of a live host.
	SnapshotPath string `mapstructure:"snapshot_path" yaml:"snapshot_path"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "clickpilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.dedup_window", "2s")

	// -- Engine --
	v.SetDefault("engine.poll_interval", "2s")
	v.SetDefault("engine.follow_up_delay", "500ms")
	v.SetDefault("engine.max_chain_length", 10)
	v.SetDefault("engine.sibling_walk_depth", 15)
	v.SetDefault("engine.message_lookback", 5)

	// -- ROI --
	v.SetDefault("roi.manual_workflow_ms", schemas.DefaultManualWorkflowMs)
	v.SetDefault("roi.automated_workflow_ms", schemas.DefaultAutomatedWorkflowMs)

	// -- Store --
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.path", "clickpilot.db")
	v.SetDefault("store.origin", "default")

	// -- Detector --
	v.SetDefault("detector.override", "")
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Unreachable with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("engine.poll_interval must be a positive duration")
	}
	if c.Engine.FollowUpDelay <= 0 {
		return fmt.Errorf("engine.follow_up_delay must be a positive duration")
	}
	if c.Engine.MaxChainLength <= 0 {
		return fmt.Errorf("engine.max_chain_length must be greater than 0")
	}
	if c.Engine.SiblingWalkDepth <= 0 {
		return fmt.Errorf("engine.sibling_walk_depth must be greater than 0")
	}
	if c.Engine.MessageLookback <= 0 {
		return fmt.Errorf("engine.message_lookback must be greater than 0")
	}
	if c.ROI.ManualWorkflowMs <= 0 || c.ROI.AutomatedWorkflowMs < 0 {
		return fmt.Errorf("roi workflow baselines must be positive")
	}
	switch c.Store.Backend {
	case "sqlite", "file", "memory":
	default:
		return fmt.Errorf("store.backend must be one of sqlite, file, memory; got %q", c.Store.Backend)
	}
	switch c.Detector.Override {
	case "", string(schemas.VariantCursor), string(schemas.VariantWindsurf):
	default:
		return fmt.Errorf("detector.override must name a known host variant; got %q", c.Detector.Override)
	}
	return nil
}
