package config

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	klonerrors "github.com/klon-labs/klon/pkg/klon/v1/errors"
)

//go:embed klon_schema_v1.0.0.json
var schemaV1Bytes []byte

var (
	schemaV1   *gojsonschema.Schema
	schemaOnce sync.Once
	schemaErr  error
)

// loadSchema compiles the embedded schema once, thread-safely.
func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		if len(schemaV1Bytes) == 0 {
			schemaErr = klonerrors.NewConfigError("embedded schema 'klon_schema_v1.0.0.json' is empty or not found", nil)
			return
		}
		schemaV1, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaV1Bytes))
		if schemaErr != nil {
			schemaErr = klonerrors.NewConfigError("failed to compile embedded schema 'klon_schema_v1.0.0.json'", schemaErr)
		}
	})
	return schemaV1, schemaErr
}

// ValidateWithSchema validates the given YAML document bytes against the
// embedded v1.0.0 schema. The YAML is parsed into generic Go values first,
// since the validator works on JSON-like structures.
func ValidateWithSchema(documentYAML []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	var jsonData interface{}
	if err := yaml.Unmarshal(documentYAML, &jsonData); err != nil {
		return klonerrors.NewConfigError("failed to parse configuration YAML for schema validation", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(jsonData))
	if err != nil {
		return klonerrors.NewConfigError("schema validation process failed", err)
	}

	if !result.Valid() {
		errMsg := "configuration failed JSON schema validation:"
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "(root)" || field == "" {
				field = desc.Context().String()
			}
			errMsg += fmt.Sprintf("\n  - Field '%s': %s", field, desc.Description())
		}
		return klonerrors.NewValidationError(errMsg, nil)
	}
	return nil
}
