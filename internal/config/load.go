package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
)

// SupportedSchemaVersionConstraint is the major version a loaded
// configuration must carry. A v1 engine only accepts v1 documents.
const SupportedSchemaVersionConstraint = "v1"

// Load parses the given YAML bytes into a Config. The document is validated
// against the embedded JSON schema, decoded strictly so unknown fields are
// rejected, and gated on its declared schema version.
func Load(configYAML []byte, filePathHint string) (*Config, error) {
	if len(configYAML) == 0 {
		return nil, klonerrors.NewConfigError("configuration content cannot be empty", nil)
	}

	if err := ValidateWithSchema(configYAML); err != nil {
		return nil, klonerrors.NewConfigError(fmt.Sprintf("configuration '%s' failed schema validation", filePathHint), err)
	}

	var cfg Config
	if err := yamlUnmarshalStrict(configYAML, &cfg); err != nil {
		return nil, klonerrors.NewConfigError(fmt.Sprintf("failed to parse configuration YAML '%s'", filePathHint), err)
	}

	if cfg.SchemaVersion == "" {
		return nil, klonerrors.NewValidationError(fmt.Sprintf("configuration '%s' is missing required 'schemaVersion' field", filePathHint), nil)
	}
	ver := cfg.SchemaVersion
	if !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	if !semver.IsValid(ver) {
		return nil, klonerrors.NewValidationError(fmt.Sprintf("configuration '%s' has invalid 'schemaVersion' format: '%s'", filePathHint, cfg.SchemaVersion), nil)
	}
	if semver.Major(ver) != SupportedSchemaVersionConstraint {
		return nil, klonerrors.NewValidationError(
			fmt.Sprintf("configuration '%s' schemaVersion '%s' is not compatible with engine requirement '%s'",
				filePathHint, cfg.SchemaVersion, SupportedSchemaVersionConstraint),
			nil,
		)
	}

	return &cfg, nil
}

// LoadFromFile is a convenience wrapper that reads a configuration from disk.
func LoadFromFile(filePath string) (*Config, error) {
	if filePath == "" {
		return nil, klonerrors.NewConfigError("configuration file path cannot be empty", nil)
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, klonerrors.NewConfigError(fmt.Sprintf("failed to get absolute path for '%s'", filePath), err)
	}
	yamlFile, err := os.ReadFile(absPath)
	if err != nil {
		return nil, klonerrors.NewConfigError(fmt.Sprintf("failed to read configuration file '%s'", absPath), err)
	}
	return Load(yamlFile, absPath)
}

// yamlUnmarshalStrict decodes YAML while rejecting unknown fields, so typos
// in configuration files surface as errors instead of silent defaults.
func yamlUnmarshalStrict(in []byte, out interface{}) error {
	decoder := yaml.NewDecoder(strings.NewReader(string(in)))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("YAML parsing error: %w", err)
	}
	return nil
}
