package config

import (
	"embed"
	"fmt"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// PresetName identifies one of the six named presets from spec section 4.H.
type PresetName string

// Recognized preset names.
const (
	PresetFast      PresetName = "fast"
	PresetAdaptive  PresetName = "adaptive"
	PresetSmartTurn PresetName = "smart_turn"
	PresetScribe    PresetName = "scribe"
	PresetCaptions  PresetName = "captions"
	PresetExternal  PresetName = "external"
)

// PresetNames lists every built-in preset, in the order spec section 4.H's
// table presents them.
var PresetNames = []PresetName{
	PresetFast, PresetAdaptive, PresetSmartTurn, PresetScribe, PresetCaptions, PresetExternal,
}

// Preset loads one of the six named presets embedded at build time and
// applies WithDefaults so every unset field carries a spec-mandated
// default. Each call returns a fresh Config; callers may mutate it freely.
func Preset(name PresetName) (*Config, error) {
	data, err := presetFS.ReadFile(fmt.Sprintf("presets/%s.yaml", name))
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q: %w", name, err)
	}

	cfg, err := LoadYAML(data)
	if err != nil {
		return nil, fmt.Errorf("load preset %q: %w", name, err)
	}
	return cfg, nil
}
