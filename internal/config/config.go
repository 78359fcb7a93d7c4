// Package config defines the engine configuration document, its YAML loader,
// and the embedded JSON schema it is validated against.
package config

import "log/slog"

// Config is the root of a KLON engine configuration document.
type Config struct {
	// SchemaVersion gates compatibility. Only major version v1 is accepted.
	SchemaVersion string `yaml:"schemaVersion"`

	// Logging configures the engine's structured logger.
	Logging *LoggingConfig `yaml:"logging,omitempty"`

	// Tracing configures OpenTelemetry span emission.
	Tracing *TracingConfig `yaml:"tracing,omitempty"`

	// Engine holds the copy-engine tunables.
	Engine *EngineConfig `yaml:"engine,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level,omitempty"`
	// Format is one of text, json. Defaults to text.
	Format string `yaml:"format,omitempty"`
}

// TracingConfig controls span emission. The exporter endpoint itself is
// taken from the standard OTEL_* environment variables.
type TracingConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// EngineConfig holds the copy-engine tunables.
type EngineConfig struct {
	// MaxDepth bounds recursion during a clone walk. Zero means the default.
	MaxDepth int `yaml:"maxDepth,omitempty"`
	// ReplicateParallelism caps the workers used to produce replica sets.
	// Zero keeps replication sequential.
	ReplicateParallelism int `yaml:"replicateParallelism,omitempty"`
}

// DefaultMaxDepth bounds clone recursion when the config does not set one.
const DefaultMaxDepth = 10000

// SlogLevel maps the configured level string to a slog.Level, defaulting
// to info for empty or unknown values.
func (c *LoggingConfig) SlogLevel() slog.Level {
	if c == nil {
		return slog.LevelInfo
	}
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MaxDepthOrDefault returns the configured depth bound, or DefaultMaxDepth.
func (c *EngineConfig) MaxDepthOrDefault() int {
	if c == nil || c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}
