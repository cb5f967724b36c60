// Package errors provides standardized error types shared across the
// Speechmatics real-time SDK's packages.
//
// ContextualError is the base error type. It captures component, operation,
// a taxonomy Kind (see spec section 7 "Error handling design"), and an
// optional cause and details map. It implements the error and Unwrap
// interfaces for use with errors.Is/errors.As.
//
// Usage:
//
//	err := errors.Transport("session", "connect", dialErr)
//	err = err.WithDetails(map[string]any{"url": endpoint})
package errors

import "fmt"

// Kind classifies an error per the taxonomy in spec section 7.
type Kind string

// Error kinds.
const (
	KindAuth             Kind = "auth"
	KindTransport        Kind = "transport"
	KindProtocol         Kind = "protocol"
	KindServerWarning    Kind = "server_warning"
	KindServerError      Kind = "server_error"
	KindBackpressure     Kind = "backpressure"
	KindConfig           Kind = "config"
	KindCapabilityAbsent Kind = "capability_absent"
)

// ContextualError is a structured error type that provides consistent
// context about where and why an error occurred.
type ContextualError struct {
	// Kind classifies the failure per the spec section 7 taxonomy.
	Kind Kind

	// Component identifies the package that produced the error (e.g. "session").
	Component string

	// Operation describes what was being done when the error occurred.
	Operation string

	// StatusCode is an optional protocol-level status code (e.g. a WebSocket close code).
	StatusCode int

	// Details holds optional structured metadata about the error.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a ContextualError with an explicit kind.
func New(kind Kind, component, operation string, cause error) *ContextualError {
	return &ContextualError{Kind: kind, Component: component, Operation: operation, Cause: cause}
}

// Auth builds a KindAuth error. Always fatal, never retried.
func Auth(component, operation string, cause error) *ContextualError {
	return New(KindAuth, component, operation, cause)
}

// Transport builds a KindTransport error. Fatal once the session has
// reached "started"; retryable during connect, at the caller's discretion.
func Transport(component, operation string, cause error) *ContextualError {
	return New(KindTransport, component, operation, cause)
}

// Protocol builds a KindProtocol error (malformed frame, out-of-order
// discriminator, audio_seq mismatch). Always fatal.
func Protocol(component, operation string, cause error) *ContextualError {
	return New(KindProtocol, component, operation, cause)
}

// ServerWarning builds a KindServerWarning error. Never fatal.
func ServerWarning(component, operation string, cause error) *ContextualError {
	return New(KindServerWarning, component, operation, cause)
}

// ServerError builds a KindServerError error. Always fatal.
func ServerError(component, operation string, cause error) *ContextualError {
	return New(KindServerError, component, operation, cause)
}

// Backpressure builds a KindBackpressure error. Never fatal; caller retries or drops.
func Backpressure(component, operation string, cause error) *ContextualError {
	return New(KindBackpressure, component, operation, cause)
}

// Config builds a KindConfig error (validation failure pre-connect). Always fatal.
func Config(component, operation string, cause error) *ContextualError {
	return New(KindConfig, component, operation, cause)
}

// CapabilityAbsent builds a KindCapabilityAbsent error (e.g. missing smart-turn
// classifier). Never fatal; the caller downgrades policy instead.
func CapabilityAbsent(component, operation string, cause error) *ContextualError {
	return New(KindCapabilityAbsent, component, operation, cause)
}

// Error returns a human-readable representation of the error.
func (e *ContextualError) Error() string {
	base := fmt.Sprintf("[%s:%s] %s", e.Kind, e.Component, e.Operation)

	if e.StatusCode != 0 {
		base += fmt.Sprintf(" (status %d)", e.StatusCode)
	}

	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}

	return base
}

// Unwrap returns the underlying cause, enabling use with errors.Is and errors.As.
func (e *ContextualError) Unwrap() error {
	return e.Cause
}

// WithStatusCode returns the error with the given status code set.
func (e *ContextualError) WithStatusCode(code int) *ContextualError {
	e.StatusCode = code
	return e
}

// WithDetails returns the error with the given details map set.
func (e *ContextualError) WithDetails(details map[string]any) *ContextualError {
	e.Details = details
	return e
}

// Fatal reports whether this error kind always terminates the session it
// occurred on. Server warnings, backpressure, and a missing smart-turn
// capability are the only non-fatal kinds.
func (e *ContextualError) Fatal() bool {
	switch e.Kind {
	case KindServerWarning, KindBackpressure, KindCapabilityAbsent:
		return false
	default:
		return true
	}
}
