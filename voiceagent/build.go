package voiceagent

import (
	"os"
	"time"

	"github.com/speechmatics/speechmatics-go-sdk/pkg/config"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/audio"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/codec"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/credentials"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/segmentation"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/session"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/transport"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/turndetector"
)

// DefaultURL is the built-in RT endpoint used when neither Config.URL nor
// SPEECHMATICS_RT_URL is set (spec section 6).
const DefaultURL = "wss://eu2.rt.speechmatics.com/v2"

// audioFormatType is the only audio_format.type this SDK ever sends: a raw
// PCM stream framed entirely out-of-band as binary WebSocket messages.
const audioFormatType = "raw"

func resolveURL(cfg config.Config) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	if v := os.Getenv("SPEECHMATICS_RT_URL"); v != "" {
		return v
	}
	return DefaultURL
}

func buildAudioFormat(cfg config.Config) codec.AudioFormat {
	return codec.AudioFormat{Type: audioFormatType, Encoding: cfg.AudioEncoding, SampleRate: cfg.SampleRate}
}

func buildTranscriptionConfig(cfg config.Config) codec.TranscriptionConfig {
	vocab := make([]codec.AdditionalVocabItem, 0, len(cfg.AdditionalVocab))
	for _, v := range cfg.AdditionalVocab {
		vocab = append(vocab, codec.AdditionalVocabItem{Content: v.Content, SoundsLike: v.SoundsLike})
	}

	var punct map[string]any
	if len(cfg.PunctuationOverrides) > 0 {
		punct = make(map[string]any, len(cfg.PunctuationOverrides))
		for k, v := range cfg.PunctuationOverrides {
			punct[k] = v
		}
	}

	known := make([]codec.KnownSpeaker, 0, len(cfg.KnownSpeakers))
	for _, ks := range cfg.KnownSpeakers {
		var ident string
		if len(ks.Identifiers) > 0 {
			ident = ks.Identifiers[0]
		}
		known = append(known, codec.KnownSpeaker{Label: ks.Label, SpeakerID: ident})
	}

	return codec.TranscriptionConfig{
		Language:                     cfg.Language,
		OperatingPoint:               string(cfg.OperatingPoint),
		Domain:                       cfg.Domain,
		OutputLocale:                 cfg.OutputLocale,
		MaxDelay:                     cfg.MaxDelay,
		EndOfUtteranceSilenceTrigger: cfg.EndOfUtteranceSilenceTrigger,
		EnableDiarization:            cfg.EnableDiarization,
		SpeakerSensitivity:           cfg.SpeakerSensitivity,
		MaxSpeakers:                  cfg.MaxSpeakers,
		PreferCurrentSpeaker:         cfg.PreferCurrentSpeaker,
		KnownSpeakers:                known,
		AdditionalVocab:              vocab,
		PunctuationOverrides:         punct,
		IncludeResults:               cfg.IncludeResults,
	}
}

func buildSessionConfig(cfg config.Config, cred credentials.Credential) session.Config {
	return session.Config{
		Transport: transport.ConnConfig{
			URL:        resolveURL(cfg),
			Credential: cred,
			Logger:     newTransportLogger(),
		},
		AudioFormat:             buildAudioFormat(cfg),
		TranscriptionConfig:     buildTranscriptionConfig(cfg),
		AudioQueueHighWaterMark: cfg.AudioQueueHighWaterMark,
		PingInterval:            cfg.PingInterval,
		PingTimeout:             cfg.PingTimeout,
		CloseTimeout:            cfg.CloseTimeout,
	}
}

func sliceToSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[s] = true
	}
	return out
}

func buildSegmentationConfig(cfg config.Config) segmentation.Config {
	return segmentation.Config{
		MaxIntraGap:    cfg.MaxIntraGap,
		Mode:           segmentation.FocusMode(cfg.Focus.Mode),
		FocusSpeakers:  sliceToSet(cfg.Focus.FocusSpeakers),
		IgnoreSpeakers: sliceToSet(cfg.Focus.IgnoreSpeakers),
	}
}

func buildTurnDetectorConfig(cfg config.Config, classifier audio.SmartTurnClassifier, lookup turndetector.AnnotationLookup) turndetector.Config {
	return turndetector.Config{
		Policy:                 turndetector.Policy(cfg.TurnPolicy),
		SilenceTrigger:         cfg.EndOfUtteranceSilenceTrigger,
		MaxDelay:               cfg.MaxDelay,
		EndOfUtteranceMaxDelay: time.Duration(cfg.EndOfUtteranceMaxDelay * float64(time.Second)),
		Classifier:             classifier,
		SmartThreshold:         cfg.SmartTurnThreshold,
		SmartWindow:            time.Duration(cfg.SmartTurnWindowSeconds * float64(time.Second)),
		SampleRate:             cfg.SampleRate,
		Lookup:                 lookup,
	}
}
