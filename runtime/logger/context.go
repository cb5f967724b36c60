// Package logger provides structured logging with automatic credential redaction.
package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields. These keys are used to store
// values in context.Context that are automatically extracted and added to
// log entries by ContextHandler/ModuleHandler.
const (
	// ContextKeyTurnID identifies the current turn.
	ContextKeyTurnID contextKey = "turn_id"

	// ContextKeySessionID identifies the RT session.
	ContextKeySessionID contextKey = "session_id"

	// ContextKeySpeakerID identifies the speaker attributed to the current operation.
	ContextKeySpeakerID contextKey = "speaker_id"

	// ContextKeyPolicy identifies the active turn-detection policy
	// (fixed, adaptive, external, smart_turn).
	ContextKeyPolicy contextKey = "policy"

	// ContextKeyPreset identifies the named configuration preset in effect.
	ContextKeyPreset contextKey = "preset"

	// ContextKeyStage identifies the pipeline stage (e.g., "connecting", "streaming").
	ContextKeyStage contextKey = "stage"

	// ContextKeyRequestID identifies the individual request.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyCorrelationID is used for distributed tracing.
	ContextKeyCorrelationID contextKey = "correlation_id"

	// ContextKeyEnvironment identifies the deployment environment.
	ContextKeyEnvironment contextKey = "environment"
)

// allContextKeys lists all context keys that should be extracted for logging.
var allContextKeys = []contextKey{
	ContextKeyTurnID,
	ContextKeySessionID,
	ContextKeySpeakerID,
	ContextKeyPolicy,
	ContextKeyPreset,
	ContextKeyStage,
	ContextKeyRequestID,
	ContextKeyCorrelationID,
	ContextKeyEnvironment,
}

// WithTurnID returns a new context with the turn ID set.
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, ContextKeyTurnID, turnID)
}

// WithSessionID returns a new context with the session ID set.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// WithSpeakerID returns a new context with the speaker ID set.
func WithSpeakerID(ctx context.Context, speakerID string) context.Context {
	return context.WithValue(ctx, ContextKeySpeakerID, speakerID)
}

// WithPolicy returns a new context with the turn-detection policy name set.
func WithPolicy(ctx context.Context, policy string) context.Context {
	return context.WithValue(ctx, ContextKeyPolicy, policy)
}

// WithPreset returns a new context with the configuration preset name set.
func WithPreset(ctx context.Context, preset string) context.Context {
	return context.WithValue(ctx, ContextKeyPreset, preset)
}

// WithStage returns a new context with the pipeline stage set.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ContextKeyStage, stage)
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithCorrelationID returns a new context with the correlation ID set.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationID, correlationID)
}

// WithEnvironment returns a new context with the environment set.
func WithEnvironment(ctx context.Context, environment string) context.Context {
	return context.WithValue(ctx, ContextKeyEnvironment, environment)
}

// WithLoggingContext returns a new context with multiple logging fields set
// at once. Only non-empty values are set.
func WithLoggingContext(ctx context.Context, fields *LoggingFields) context.Context {
	if fields == nil {
		return ctx
	}
	if fields.TurnID != "" {
		ctx = WithTurnID(ctx, fields.TurnID)
	}
	if fields.SessionID != "" {
		ctx = WithSessionID(ctx, fields.SessionID)
	}
	if fields.SpeakerID != "" {
		ctx = WithSpeakerID(ctx, fields.SpeakerID)
	}
	if fields.Policy != "" {
		ctx = WithPolicy(ctx, fields.Policy)
	}
	if fields.Preset != "" {
		ctx = WithPreset(ctx, fields.Preset)
	}
	if fields.Stage != "" {
		ctx = WithStage(ctx, fields.Stage)
	}
	if fields.RequestID != "" {
		ctx = WithRequestID(ctx, fields.RequestID)
	}
	if fields.CorrelationID != "" {
		ctx = WithCorrelationID(ctx, fields.CorrelationID)
	}
	if fields.Environment != "" {
		ctx = WithEnvironment(ctx, fields.Environment)
	}
	return ctx
}

// LoggingFields holds all standard logging context fields, for bulk setting
// with WithLoggingContext.
type LoggingFields struct {
	TurnID        string
	SessionID     string
	SpeakerID     string
	Policy        string
	Preset        string
	Stage         string
	RequestID     string
	CorrelationID string
	Environment   string
}

// ExtractLoggingFields extracts all logging fields from a context.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	fields := LoggingFields{}
	if v := ctx.Value(ContextKeyTurnID); v != nil {
		fields.TurnID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeySessionID); v != nil {
		fields.SessionID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeySpeakerID); v != nil {
		fields.SpeakerID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyPolicy); v != nil {
		fields.Policy, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyPreset); v != nil {
		fields.Preset, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyStage); v != nil {
		fields.Stage, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyRequestID); v != nil {
		fields.RequestID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyCorrelationID); v != nil {
		fields.CorrelationID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyEnvironment); v != nil {
		fields.Environment, _ = v.(string)
	}
	return fields
}
