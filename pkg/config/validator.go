package config

import (
	"fmt"
	"regexp"
)

// reservedEngineSpeakerLabel matches the engine's own S<N> speaker id
// pattern, which must not be reused for enrolled speakers (spec section
// 3, "SpeakerIdentifier").
var reservedEngineSpeakerLabel = regexp.MustCompile(`^S\d+$`)

// ConfigValidator validates a Config against the "Configuration error"
// cases of spec section 7, collecting every failure instead of stopping at
// the first one. Mirrors the teacher's ConfigValidator shape
// (errors/warnings slices, Validate/GetWarnings).
type ConfigValidator struct {
	cfg    *Config
	errors []error
	warns  []string
}

// NewConfigValidator creates a validator for cfg.
func NewConfigValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// Validate runs every check and returns a combined error if any failed.
// A KindConfig error per spec section 7 should wrap this result at the
// call site (pkg/config has no dependency on pkg/errors to avoid a cycle;
// the facade is responsible for that wrapping).
func (v *ConfigValidator) Validate() error {
	v.validateTiming()
	v.validateTurnPolicy()
	v.validateFocus()
	v.validateSpeakers()
	v.validateAudio()

	if len(v.errors) > 0 {
		return fmt.Errorf("configuration validation failed with %d errors: %v", len(v.errors), v.errors)
	}
	return nil
}

// GetWarnings returns every non-fatal observation accumulated during Validate.
func (v *ConfigValidator) GetWarnings() []string {
	return v.warns
}

func (v *ConfigValidator) validateTiming() {
	c := v.cfg
	if c.MaxDelay <= 0 {
		v.errors = append(v.errors, fmt.Errorf("max_delay must be positive, got %v", c.MaxDelay))
	}
	if c.EndOfUtteranceSilenceTrigger <= 0 {
		v.errors = append(v.errors, fmt.Errorf("end_of_utterance_silence_trigger must be positive, got %v", c.EndOfUtteranceSilenceTrigger))
	}
	if c.MaxDelay > 0 && c.EndOfUtteranceSilenceTrigger > 0 && c.EndOfUtteranceSilenceTrigger >= c.MaxDelay {
		v.errors = append(v.errors, fmt.Errorf(
			"end_of_utterance_silence_trigger (%v) must be < max_delay (%v)",
			c.EndOfUtteranceSilenceTrigger, c.MaxDelay,
		))
	}
	if c.EndOfUtteranceMaxDelay != 0 && c.MaxDelay != 0 && c.EndOfUtteranceMaxDelay < c.MaxDelay {
		v.warns = append(v.warns, fmt.Sprintf(
			"end_of_utterance_max_delay (%v) is less than max_delay (%v); the hard ceiling will fire before the adaptive window can",
			c.EndOfUtteranceMaxDelay, c.MaxDelay,
		))
	}
}

func (v *ConfigValidator) validateTurnPolicy() {
	switch v.cfg.TurnPolicy {
	case "", TurnPolicyFixed, TurnPolicyAdaptive, TurnPolicySmart, TurnPolicyExternal:
	default:
		v.errors = append(v.errors, fmt.Errorf("unrecognized turn_policy: %q", v.cfg.TurnPolicy))
	}
	if v.cfg.TurnPolicy == TurnPolicySmart && v.cfg.SmartTurnThreshold != 0 && (v.cfg.SmartTurnThreshold < 0 || v.cfg.SmartTurnThreshold > 1) {
		v.errors = append(v.errors, fmt.Errorf("smart_turn_threshold must be in [0,1], got %v", v.cfg.SmartTurnThreshold))
	}
}

func (v *ConfigValidator) validateFocus() {
	f := v.cfg.Focus
	if f.Mode != "" && f.Mode != FocusRetain && f.Mode != FocusIgnore {
		v.errors = append(v.errors, fmt.Errorf("unrecognized speaker_focus mode: %q", f.Mode))
	}

	focused := make(map[string]bool, len(f.FocusSpeakers))
	for _, s := range f.FocusSpeakers {
		focused[s] = true
	}
	for _, s := range f.IgnoreSpeakers {
		if focused[s] {
			v.errors = append(v.errors, fmt.Errorf("speaker %q appears in both focus_speakers and ignore_speakers", s))
		}
	}

	if len(f.FocusSpeakers) == 0 && len(f.IgnoreSpeakers) == 0 {
		v.warns = append(v.warns, "speaker_focus has no focus_speakers or ignore_speakers configured; every speaker is treated as active")
	}
}

func (v *ConfigValidator) validateSpeakers() {
	seen := make(map[string]bool, len(v.cfg.KnownSpeakers))
	for _, ks := range v.cfg.KnownSpeakers {
		if ks.Label == "" {
			v.errors = append(v.errors, fmt.Errorf("known_speakers entry missing label"))
			continue
		}
		if reservedEngineSpeakerLabel.MatchString(ks.Label) {
			v.errors = append(v.errors, fmt.Errorf("known_speakers label %q collides with the engine's reserved S<N> pattern", ks.Label))
		}
		if seen[ks.Label] {
			v.errors = append(v.errors, fmt.Errorf("duplicate known_speakers label: %q", ks.Label))
		}
		seen[ks.Label] = true
		if len(ks.Identifiers) == 0 {
			v.warns = append(v.warns, fmt.Sprintf("known speaker %q has no identifiers; it will never be matched by a SpeakersResult", ks.Label))
		}
	}

	if v.cfg.SpeakerSensitivity != 0 && (v.cfg.SpeakerSensitivity < 0 || v.cfg.SpeakerSensitivity > 1) {
		v.errors = append(v.errors, fmt.Errorf("speaker_sensitivity must be in [0,1], got %v", v.cfg.SpeakerSensitivity))
	}
	if v.cfg.MaxSpeakers != nil && *v.cfg.MaxSpeakers <= 0 {
		v.errors = append(v.errors, fmt.Errorf("max_speakers must be positive when set, got %v", *v.cfg.MaxSpeakers))
	}
}

func (v *ConfigValidator) validateAudio() {
	if v.cfg.SampleRate <= 0 {
		v.errors = append(v.errors, fmt.Errorf("sample_rate must be positive, got %v", v.cfg.SampleRate))
	}
	if v.cfg.AudioEncoding != "" && v.cfg.AudioEncoding != AudioEncodingPCMS16LE {
		v.warns = append(v.warns, fmt.Sprintf("audio_encoding %q is not the default %q; verify the server supports it", v.cfg.AudioEncoding, AudioEncodingPCMS16LE))
	}
}
