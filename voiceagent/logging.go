package voiceagent

import (
	"github.com/speechmatics/speechmatics-go-sdk/runtime/events"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/logger"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/transport"
)

// transportLogger adapts the package-wide structured logger to
// transport.Logger, so the RT Session's connect/retry/heartbeat
// bookkeeping logs through the same slog pipeline (and redaction) as the
// rest of the SDK instead of a separate one-off logger.
type transportLogger struct{}

func newTransportLogger() transport.Logger { return transportLogger{} }

func (transportLogger) Debug(msg string, kv ...interface{}) { logger.Debug(msg, kv...) }
func (transportLogger) Info(msg string, kv ...interface{})  { logger.Info(msg, kv...) }
func (transportLogger) Warn(msg string, kv ...interface{})  { logger.Warn(msg, kv...) }
func (transportLogger) Error(msg string, kv ...interface{}) { logger.Error(msg, kv...) }

// subscribeLogging wires session and turn lifecycle events into the
// domain convenience loggers, mirroring the teacher's pattern of logging
// state transitions and calls as they happen rather than only on error.
func (a *Agent) subscribeLogging() {
	a.bus.Subscribe(events.EventSessionStateChanged, func(e *events.Event) {
		d, ok := e.Data.(events.SessionStateChangedData)
		if !ok {
			return
		}
		logger.SessionTransition(e.SessionID, d.From, d.To)
	})

	a.bus.Subscribe(events.EventEndOfTurn, func(e *events.Event) {
		d, ok := e.Data.(events.EndOfTurnData)
		if !ok {
			return
		}
		a.recordTurnClosed()
		logger.TurnEvent(e.SessionID, d.TurnID, string(a.turns.EffectivePolicy()), "end_of_turn", "speaker", d.SpeakerID)
	})

	a.bus.Subscribe(events.EventError, func(e *events.Event) {
		d, ok := e.Data.(events.ErrorData)
		if !ok {
			return
		}
		logger.Error("session terminated", "kind", d.Kind, "message", d.Message)
	})
}
