// Package klon is the entry point of the KLON deep-copy engine: a library
// that deep-clones arbitrary object graphs while preserving aliasing and
// cycles. The public interfaces and types live under pkg/klon/v1; this
// package only wires the implementation together.
package klon

import (
	"context"

	"github.com/klon-labs/klon/internal/config"
	"github.com/klon-labs/klon/internal/engine"
	"github.com/klon-labs/klon/internal/logger"
	v1 "github.com/klon-labs/klon/pkg/klon/v1"
	klonlog "github.com/klon-labs/klon/pkg/klon/v1/log"
)

// New creates an engine with the given logger and options. A nil logger is
// replaced with the default text logger at info level.
func New(log klonlog.Logger, opts ...v1.EngineOption) (v1.EngineV1, error) {
	if log == nil {
		log = logger.NewDefaultLogger("info")
	}
	return engine.NewEngine(log, opts...)
}

// NewFromConfigFile creates an engine from a YAML configuration file. The
// document is schema-validated and version-gated before anything is built.
// Options are applied after the file, so they win on conflicts.
func NewFromConfigFile(ctx context.Context, path string, opts ...v1.EngineOption) (v1.EngineV1, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return engine.NewEngineFromConfig(ctx, cfg, opts...)
}
