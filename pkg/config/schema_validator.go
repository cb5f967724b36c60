package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var embeddedSchemaJSON []byte

const errorFormat = "  - %s"

var (
	schemaOnce    sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr     error
)

// SchemaValidator validates a marshaled Config against the embedded JSON
// schema, grounded on the teacher's pkg/config/schema_validator.go use of
// xeipuuv/gojsonschema. Unlike the teacher, this SDK never fetches a
// schema remotely: the config surface is small, flat, and shipped with the
// module, so only the embedded copy is ever used.
type SchemaValidator struct{}

// NewSchemaValidator creates a SchemaValidator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{}
}

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		loader := gojsonschema.NewBytesLoader(embeddedSchemaJSON)
		compiledSchema, schemaErr = gojsonschema.NewSchema(loader)
	})
	return compiledSchema, schemaErr
}

// Validate marshals cfg to JSON and checks it against the embedded schema,
// returning a combined error describing every violation.
func (v *SchemaValidator) Validate(cfg *Config) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("load config schema: %w", err)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config for schema validation: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("run schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var lines []string
	for _, e := range result.Errors() {
		lines = append(lines, fmt.Sprintf(errorFormat, e.String()))
	}
	return fmt.Errorf("config failed schema validation:\n%s", strings.Join(lines, "\n"))
}
