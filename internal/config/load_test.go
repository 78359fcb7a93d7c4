package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
)

func TestLoad_ValidDocument(t *testing.T) {
	doc := []byte(`
schemaVersion: "1.0.0"
logging:
  level: debug
  format: json
tracing:
  enabled: true
engine:
  maxDepth: 500
  replicateParallelism: 4
`)
	cfg, err := Load(doc, "test.yaml")
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", cfg.SchemaVersion)
	assert.Equal(t, slog.LevelDebug, cfg.Logging.SlogLevel())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, 500, cfg.Engine.MaxDepthOrDefault())
	assert.Equal(t, 4, cfg.Engine.ReplicateParallelism)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]byte(`schemaVersion: "1.0.0"`), "test.yaml")
	require.NoError(t, err)

	assert.Equal(t, slog.LevelInfo, cfg.Logging.SlogLevel(), "nil logging section must default to info")
	assert.Equal(t, DefaultMaxDepth, cfg.Engine.MaxDepthOrDefault())
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"missing schemaVersion", `logging: {level: info}`},
		{"wrong major version", `schemaVersion: "2.0.0"`},
		{"unknown field", "schemaVersion: \"1.0.0\"\nunknownSection: {}"},
		{"bad level", "schemaVersion: \"1.0.0\"\nlogging: {level: loud}"},
		{"negative depth", "schemaVersion: \"1.0.0\"\nengine: {maxDepth: -1}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load([]byte(tc.doc), "test.yaml")
			require.Error(t, err)
		})
	}
}

func TestLoad_SchemaVersionPrefixTolerance(t *testing.T) {
	cfg, err := Load([]byte(`schemaVersion: "v1.0.0"`), "test.yaml")
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", cfg.SchemaVersion)
}

func TestLoadFromFile_EmptyPath(t *testing.T) {
	_, err := LoadFromFile("")
	var cfgErr *klonerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
