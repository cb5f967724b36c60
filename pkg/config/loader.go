package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load parses JSON bytes into a Config, applies WithDefaults, and runs the
// schema validator. It does not run ConfigValidator — callers that need the
// spec section 7 "Configuration error" checks should call Validate
// explicitly once the Config is fully assembled (e.g. after a preset has
// been overridden by caller options).
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json config: %w", err)
	}
	cfg = cfg.WithDefaults()

	if err := NewSchemaValidator().Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadYAML parses YAML bytes into a Config, applies WithDefaults, and runs
// the schema validator.
func LoadYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml config: %w", err)
	}
	cfg = cfg.WithDefaults()

	if err := NewSchemaValidator().Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile dispatches to Load or LoadYAML based on path's extension
// (".json" vs ".yaml"/".yml").
func LoadFile(path string, data []byte) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return Load(data)
	case ".yaml", ".yml":
		return LoadYAML(data)
	default:
		return nil, fmt.Errorf("unrecognized config file extension: %s", path)
	}
}

// Validate runs the spec section 7 configuration-error checks (as opposed
// to the structural schema checks Load/LoadYAML already ran) and returns
// the accumulated errors plus any warnings.
func Validate(cfg *Config) (warnings []string, err error) {
	v := NewConfigValidator(cfg)
	err = v.Validate()
	return v.GetWarnings(), err
}
