// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. Values are resolved by
// viper with the precedence: flags > environment > config file > defaults.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Models   ModelsConfig   `mapstructure:"models" yaml:"models"`
}

// LoggerConfig configures the zap logger and its optional rotating file sink.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors for the console encoder.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig holds the runtime options the decision engine recognizes.
type EngineConfig struct {
	// WorkerConcurrency bounds the per-finding scoring worker pool.
	WorkerConcurrency int `mapstructure:"worker_concurrency" yaml:"worker_concurrency"`

	// NoiseThreshold is the probability at or above which a finding is
	// classified as noise. Must be in [0,1].
	NoiseThreshold float64 `mapstructure:"noise_threshold" yaml:"noise_threshold"`

	// SchemaVersion selects the feature schema: "6", "16", or "auto" to
	// derive it from the loaded risk classifier's input dimensionality.
	SchemaVersion string `mapstructure:"schema_version" yaml:"schema_version"`

	// InferenceTimeout bounds a single classifier call. Zero disables the
	// bound. A timeout surfaces as an inference error, never a hang.
	InferenceTimeout time.Duration `mapstructure:"inference_timeout" yaml:"inference_timeout"`

	// SeverityThreshold optionally filters the report to findings at or
	// above the given severity. Empty keeps everything.
	SeverityThreshold string `mapstructure:"severity_threshold" yaml:"severity_threshold"`
}

// AnalysisConfig holds the caller-supplied lookup sets consumed by the
// impact analyzer and prioritizer. All other tables are static data owned
// by the engine.
type AnalysisConfig struct {
	// InternalPathAllowlist lists path prefixes considered internal-only.
	// Findings outside it are treated as externally exposed.
	InternalPathAllowlist []string `mapstructure:"internal_path_allowlist" yaml:"internal_path_allowlist"`

	// TrendingWeaknessIDs lists weakness/advisory identifiers currently
	// flagged as trending by the caller's threat intelligence.
	TrendingWeaknessIDs []string `mapstructure:"trending_weakness_ids" yaml:"trending_weakness_ids"`
}

// ModelsConfig points at the classifier artifacts. Empty paths select the
// embedded default artifacts.
type ModelsConfig struct {
	RiskPath  string `mapstructure:"risk_path" yaml:"risk_path"`
	NoisePath string `mapstructure:"noise_path" yaml:"noise_path"`
}

// SetDefaults registers the default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "vulntriage")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("engine.worker_concurrency", 4)
	v.SetDefault("engine.noise_threshold", 0.7)
	v.SetDefault("engine.schema_version", "auto")
	v.SetDefault("engine.inference_timeout", 5*time.Second)

	v.SetDefault("analysis.internal_path_allowlist", []string{})
	v.SetDefault("analysis.trending_weakness_ids", []string{})
}

// Validate checks the invariants of the resolved configuration. Run-level
// configuration errors abort before any finding is processed.
func (c *Config) Validate() error {
	if c.Engine.NoiseThreshold < 0 || c.Engine.NoiseThreshold > 1 {
		return fmt.Errorf("engine.noise_threshold must be in [0,1], got %v", c.Engine.NoiseThreshold)
	}
	switch strings.ToLower(c.Engine.SchemaVersion) {
	case "auto", "6", "16":
	default:
		return fmt.Errorf("engine.schema_version must be auto, 6 or 16, got %q", c.Engine.SchemaVersion)
	}
	if c.Engine.WorkerConcurrency < 0 {
		return fmt.Errorf("engine.worker_concurrency must be >= 0, got %d", c.Engine.WorkerConcurrency)
	}
	return nil
}
