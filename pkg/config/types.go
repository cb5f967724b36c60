// Package config provides the strongly-typed configuration surface for the
// Voice Agent facade (component H), covering every field enumerated in
// spec section 6 ("Configuration surface"), plus the six named presets
// from spec section 4.H. It mirrors the teacher's (AltairaLabs PromptKit)
// pkg/config loader/validator/schema-validator shape, adapted to a flat,
// single-struct configuration rather than a multi-file manifest.
package config

import "time"

// TurnPolicy selects one of the four interchangeable turn-end policies
// (spec section 4.G).
type TurnPolicy string

// Recognized turn policies.
const (
	TurnPolicyFixed    TurnPolicy = "fixed"
	TurnPolicyAdaptive TurnPolicy = "adaptive"
	TurnPolicySmart    TurnPolicy = "smart"
	TurnPolicyExternal TurnPolicy = "external"
)

// FocusMode selects how the segmentation engine treats non-focused
// speakers (spec section 4.F).
type FocusMode string

// Recognized focus modes.
const (
	FocusRetain FocusMode = "retain"
	FocusIgnore FocusMode = "ignore"
)

// OperatingPoint selects the server's recognition model tier.
type OperatingPoint string

// Recognized operating points.
const (
	OperatingPointStandard OperatingPoint = "standard"
	OperatingPointEnhanced OperatingPoint = "enhanced"
)

// AudioEncodingPCMS16LE is the default audio_encoding value.
const AudioEncodingPCMS16LE = "pcm_s16le"

// AdditionalVocabEntry is one entry of the additional_vocab list.
type AdditionalVocabEntry struct {
	Content    string   `json:"content" yaml:"content"`
	SoundsLike []string `json:"sounds_like,omitempty" yaml:"sounds_like,omitempty"`
}

// KnownSpeaker is a pre-enrolled SpeakerIdentifier handed to the server
// (and the local speaker registry, component I) ahead of time.
type KnownSpeaker struct {
	Label       string   `json:"label" yaml:"label"`
	Identifiers []string `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`
}

// FocusConfig is the speaker_focus configuration surface field: a mode
// plus its two disjoint speaker sets.
type FocusConfig struct {
	Mode           FocusMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	FocusSpeakers  []string  `json:"focus_speakers,omitempty" yaml:"focus_speakers,omitempty"`
	IgnoreSpeakers []string  `json:"ignore_speakers,omitempty" yaml:"ignore_speakers,omitempty"`
}

// Config is the recognized configuration surface of spec section 6, plus
// the connection-level timeouts of spec section 5 that a runnable session
// needs but the distilled spec leaves as defaults.
type Config struct {
	// --- Recognized transcription options (spec section 6) ---

	Language                     string                 `json:"language" yaml:"language"`
	OperatingPoint               OperatingPoint         `json:"operating_point,omitempty" yaml:"operating_point,omitempty"`
	Domain                       string                 `json:"domain,omitempty" yaml:"domain,omitempty"`
	OutputLocale                 string                 `json:"output_locale,omitempty" yaml:"output_locale,omitempty"`
	MaxDelay                     float64                `json:"max_delay" yaml:"max_delay"`
	EndOfUtteranceSilenceTrigger float64                `json:"end_of_utterance_silence_trigger" yaml:"end_of_utterance_silence_trigger"`
	EndOfUtteranceMaxDelay       float64                `json:"end_of_utterance_max_delay,omitempty" yaml:"end_of_utterance_max_delay,omitempty"`
	TurnPolicy                   TurnPolicy             `json:"turn_policy" yaml:"turn_policy"`
	EnableDiarization            bool                   `json:"enable_diarization" yaml:"enable_diarization"`
	SpeakerSensitivity           float64                `json:"speaker_sensitivity,omitempty" yaml:"speaker_sensitivity,omitempty"`
	MaxSpeakers                  *int                   `json:"max_speakers,omitempty" yaml:"max_speakers,omitempty"`
	PreferCurrentSpeaker         bool                   `json:"prefer_current_speaker,omitempty" yaml:"prefer_current_speaker,omitempty"`
	Focus                        FocusConfig            `json:"speaker_focus,omitempty" yaml:"speaker_focus,omitempty"`
	KnownSpeakers                []KnownSpeaker         `json:"known_speakers,omitempty" yaml:"known_speakers,omitempty"`
	AdditionalVocab              []AdditionalVocabEntry `json:"additional_vocab,omitempty" yaml:"additional_vocab,omitempty"`
	PunctuationOverrides         map[string]string      `json:"punctuation_overrides,omitempty" yaml:"punctuation_overrides,omitempty"`
	SampleRate                   int                    `json:"sample_rate" yaml:"sample_rate"`
	AudioEncoding                string                 `json:"audio_encoding,omitempty" yaml:"audio_encoding,omitempty"`
	IncludeResults               bool                   `json:"include_results,omitempty" yaml:"include_results,omitempty"`

	// --- Connection / timing (spec section 5 and 6's endpoint/env surface) ---

	// URL overrides SPEECHMATICS_RT_URL / the built-in default endpoint.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	PingInterval time.Duration `json:"ping_interval,omitempty" yaml:"ping_interval,omitempty"`
	PingTimeout  time.Duration `json:"ping_timeout,omitempty" yaml:"ping_timeout,omitempty"`
	OpenTimeout  time.Duration `json:"open_timeout,omitempty" yaml:"open_timeout,omitempty"`
	CloseTimeout time.Duration `json:"close_timeout,omitempty" yaml:"close_timeout,omitempty"`

	// AudioQueueHighWaterMark bounds audio_seq_sent - audio_seq_acked
	// (spec section 5, default 256 frames).
	AudioQueueHighWaterMark int `json:"audio_queue_high_water_mark,omitempty" yaml:"audio_queue_high_water_mark,omitempty"`

	// SmartTurnThreshold and SmartTurnWindowSeconds configure the Smart
	// policy's classifier decision and ring buffer length (spec section 4.G).
	SmartTurnThreshold     float64 `json:"smart_turn_threshold,omitempty" yaml:"smart_turn_threshold,omitempty"`
	SmartTurnWindowSeconds float64 `json:"smart_turn_window_seconds,omitempty" yaml:"smart_turn_window_seconds,omitempty"`

	// MaxIntraGap overrides the segmentation engine's inter-word gap
	// threshold; defaults to MaxDelay when zero (spec section 4.F rule 1).
	MaxIntraGap float64 `json:"max_intra_gap,omitempty" yaml:"max_intra_gap,omitempty"`

	// EmitCadence records which of the preset table's cadences
	// (spec section 4.H) this configuration was built for: "words",
	// "sentences", "complete", or "complete+timing". It does not change
	// engine behavior (the segmentation engine always emits partial/final
	// pairs per spec section 4.F.4); it is informational for a caller
	// deciding how eagerly to read partial segments off the listener.
	EmitCadence string `json:"emit_cadence,omitempty" yaml:"emit_cadence,omitempty"`
}

// Default connection timing constants (spec section 5).
const (
	DefaultPingInterval            = 20 * time.Second
	DefaultPingTimeout              = 60 * time.Second
	DefaultOpenTimeout              = 30 * time.Second
	DefaultCloseTimeout             = 10 * time.Second
	DefaultAudioQueueHighWaterMark  = 256
	DefaultEndOfUtteranceMaxDelay   = 10.0
	DefaultSmartTurnThreshold       = 0.5
	DefaultSmartTurnWindowSeconds   = 8.0
	DefaultSampleRate               = 16000
)

// Default returns a Config populated with the spec's baseline defaults:
// language "en", fixed policy, no diarization, the connection timeouts of
// spec section 5.
func Default() Config {
	return Config{
		Language:                     "en",
		OperatingPoint:               OperatingPointStandard,
		MaxDelay:                     0.8,
		EndOfUtteranceSilenceTrigger: 0.3,
		EndOfUtteranceMaxDelay:       DefaultEndOfUtteranceMaxDelay,
		TurnPolicy:                   TurnPolicyFixed,
		SampleRate:                   DefaultSampleRate,
		AudioEncoding:                AudioEncodingPCMS16LE,
		PingInterval:                 DefaultPingInterval,
		PingTimeout:                  DefaultPingTimeout,
		OpenTimeout:                  DefaultOpenTimeout,
		CloseTimeout:                 DefaultCloseTimeout,
		AudioQueueHighWaterMark:      DefaultAudioQueueHighWaterMark,
		SmartTurnThreshold:           DefaultSmartTurnThreshold,
		SmartTurnWindowSeconds:       DefaultSmartTurnWindowSeconds,
	}
}

// WithDefaults returns a copy of c with every zero-valued field that has a
// spec-mandated default filled in. Fields the caller explicitly set are
// left untouched.
func (c Config) WithDefaults() Config {
	d := Default()

	if c.Language == "" {
		c.Language = d.Language
	}
	if c.OperatingPoint == "" {
		c.OperatingPoint = d.OperatingPoint
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.EndOfUtteranceSilenceTrigger == 0 {
		c.EndOfUtteranceSilenceTrigger = d.EndOfUtteranceSilenceTrigger
	}
	if c.EndOfUtteranceMaxDelay == 0 {
		c.EndOfUtteranceMaxDelay = d.EndOfUtteranceMaxDelay
	}
	if c.TurnPolicy == "" {
		c.TurnPolicy = d.TurnPolicy
	}
	if c.SampleRate == 0 {
		c.SampleRate = d.SampleRate
	}
	if c.AudioEncoding == "" {
		c.AudioEncoding = d.AudioEncoding
	}
	if c.PingInterval == 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = d.PingTimeout
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = d.CloseTimeout
	}
	if c.AudioQueueHighWaterMark == 0 {
		c.AudioQueueHighWaterMark = d.AudioQueueHighWaterMark
	}
	if c.SmartTurnThreshold == 0 {
		c.SmartTurnThreshold = d.SmartTurnThreshold
	}
	if c.SmartTurnWindowSeconds == 0 {
		c.SmartTurnWindowSeconds = d.SmartTurnWindowSeconds
	}
	if c.MaxIntraGap == 0 {
		c.MaxIntraGap = c.MaxDelay
	}
	if c.Focus.Mode == "" {
		c.Focus.Mode = FocusRetain
	}

	return c
}
