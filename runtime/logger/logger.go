// Package logger provides structured logging with automatic credential
// redaction for the voice agent runtime.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - Wire frame tracing (frames sent/received over the RT WebSocket)
//   - Session and turn lifecycle logging
//   - Automatic API key, bearer token, and JWT redaction
//   - Contextual logging with session/turn/speaker tracing
//   - Level-based and per-module verbosity control
//
// All exported functions use the global DefaultLogger, which can be
// reconfigured with SetLevel, SetVerbose, SetLogger, SetOutput, or Configure.
package logger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger

	// customHandler is non-nil once SetLogger has installed a caller-supplied
	// logger. While set, SetLevel and Configure must not replace it outright.
	customHandler slog.Handler

	logOutput    io.Writer = os.Stderr
	currentFormat          = FormatText
	currentLevel           = slog.LevelInfo
)

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}
	if envFormat := os.Getenv("LOG_FORMAT"); strings.EqualFold(envFormat, FormatJSON) {
		currentFormat = FormatJSON
	}
	initLogger(level, nil)
}

// ParseLevel converts a textual level name into a slog.Level. Unknown or
// empty input defaults to slog.LevelInfo.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return slog.LevelDebug - 4
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// initLogger (re)builds DefaultLogger from the package-level format/output
// state, wrapping the base handler in a ContextHandler so every log record
// picks up session/turn/speaker fields from its context.
func initLogger(level slog.Level, commonFields []slog.Attr) {
	currentLevel = level

	var base slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if currentFormat == FormatJSON {
		base = slog.NewJSONHandler(logOutput, opts)
	} else {
		base = slog.NewTextHandler(logOutput, opts)
	}

	handler := NewContextHandler(base, commonFields...)
	DefaultLogger = slog.New(handler)
	slog.SetDefault(DefaultLogger)
}

// SetLevel changes the logging level for all subsequent log operations. If a
// custom logger was installed via SetLogger, it is left untouched; only the
// package-managed default logger is rebuilt.
func SetLevel(level slog.Level) {
	if customHandler != nil {
		return
	}
	initLogger(level, nil)
}

// SetVerbose enables debug-level logging when verbose is true, otherwise
// resets to info-level. Convenience wrapper around SetLevel for CLI flags.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// SetLogger installs a caller-supplied *slog.Logger as the package default,
// bypassing the built-in handler chain entirely. Passing nil reverts to the
// package-managed logger.
func SetLogger(l *slog.Logger) {
	if l == nil {
		customHandler = nil
		initLogger(currentLevel, nil)
		return
	}
	customHandler = l.Handler()
	DefaultLogger = l
	slog.SetDefault(DefaultLogger)
}

// SetOutput redirects the package-managed logger's output, preserving the
// current format and level. Passing nil resets output to stderr. Has no
// effect while a custom logger is installed via SetLogger.
func SetOutput(w io.Writer) {
	if w == nil {
		logOutput = os.Stderr
	} else {
		logOutput = w
	}
	if customHandler == nil {
		initLogger(currentLevel, nil)
	}
}

// Info logs an informational message with structured key-value attributes.
// Args should be provided in key-value pairs: key1, value1, key2, value2, ...
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with structured attributes.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// FrameSent logs an outbound wire frame (structured or binary audio) at
// debug level, for tracing the RT Session's write path.
func FrameSent(sessionID, kind string, bytes int, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs, "session_id", sessionID, "kind", kind, "bytes", bytes)
	allAttrs = append(allAttrs, attrs...)
	Debug("frame sent", allAttrs...)
}

// FrameReceived logs an inbound wire frame at debug level, for tracing the
// RT Session's read path.
func FrameReceived(sessionID, kind string, bytes int, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs, "session_id", sessionID, "kind", kind, "bytes", bytes)
	allAttrs = append(allAttrs, attrs...)
	Debug("frame received", allAttrs...)
}

// SessionTransition logs a Session state machine transition.
func SessionTransition(sessionID, from, to string, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs, "session_id", sessionID, "from", from, "to", to)
	allAttrs = append(allAttrs, attrs...)
	Info("session state changed", allAttrs...)
}

// TurnEvent logs a turn lifecycle event (opened, closing, closed) with the
// policy responsible for the transition.
func TurnEvent(sessionID string, turnID int, policy, event string, attrs ...any) {
	allAttrs := make([]any, 0, 8+len(attrs))
	allAttrs = append(allAttrs, "session_id", sessionID, "turn_id", turnID, "policy", policy, "event", event)
	allAttrs = append(allAttrs, attrs...)
	Info("turn event", allAttrs...)
}

var (
	// sensitivePatterns matches credential-shaped substrings so they never
	// reach log output verbatim.
	sensitivePatterns = []*regexp.Regexp{
		regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`),                 // OpenAI-style API keys
		regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`),               // Google-style API keys
		regexp.MustCompile(`(?i)Bearer\s+[a-zA-Z0-9_\-.]+`),       // Bearer tokens
		regexp.MustCompile(`(?i)([?&]jwt=)[a-zA-Z0-9_\-.]+`),      // ?jwt=... query params
		regexp.MustCompile(`(?i)([?&]api_?key=)[a-zA-Z0-9_\-.]+`), // ?api_key=... query params
	}
)

// RedactSensitiveData removes API keys, bearer tokens, and JWT/API-key query
// parameters from strings before they are logged, preserving enough of the
// prefix for debugging while hiding the sensitive portion.
func RedactSensitiveData(input string) string {
	result := input

	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			switch {
			case strings.HasPrefix(strings.ToLower(match), "bearer"):
				return "Bearer [REDACTED]"
			case strings.Contains(strings.ToLower(match), "jwt=") || strings.Contains(strings.ToLower(match), "api_key="):
				eq := strings.IndexByte(match, '=')
				return match[:eq+1] + "[REDACTED]"
			case len(match) > 8:
				return match[:4] + "...[REDACTED]"
			default:
				return "[REDACTED]"
			}
		})
	}

	return result
}

// APIRequest logs an HTTP request (e.g. credential resolution against the
// Speechmatics management API) at debug level with automatic redaction.
// No-op when debug logging is disabled.
func APIRequest(provider, method, url string, headers map[string]string, body interface{}) {
	if !DefaultLogger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := make([]any, 0, 8)
	attrs = append(attrs,
		"provider", provider,
		"method", method,
		"url", RedactSensitiveData(url),
	)

	if len(headers) > 0 {
		redactedHeaders := make(map[string]string, len(headers))
		for key, value := range headers {
			redactedHeaders[key] = RedactSensitiveData(value)
		}
		attrs = append(attrs, "headers", redactedHeaders)
	}

	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			attrs = append(attrs, "body_error", err.Error())
		} else {
			attrs = append(attrs, "body", RedactSensitiveData(string(bodyJSON)))
		}
	}

	Debug("outbound API request", attrs...)
}

// APIResponse logs an HTTP response at debug level with automatic redaction.
// No-op when debug logging is disabled.
func APIResponse(provider string, statusCode int, body string, err error) {
	if !DefaultLogger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := make([]any, 0, 6)
	attrs = append(attrs, "provider", provider, "status_code", statusCode)

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		Error("API response error", attrs...)
		return
	}

	if body != "" {
		var jsonObj interface{}
		if json.Unmarshal([]byte(body), &jsonObj) == nil {
			prettyJSON, _ := json.MarshalIndent(jsonObj, "", "  ")
			attrs = append(attrs, "body", RedactSensitiveData(string(prettyJSON)))
		} else {
			attrs = append(attrs, "body", RedactSensitiveData(body))
		}
	}

	Debug("API response", attrs...)
}
