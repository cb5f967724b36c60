package prometheus

import (
	"github.com/speechmatics/speechmatics-go-sdk/runtime/events"
)

// MetricsListener records session events as Prometheus metrics. It
// implements the events.Listener signature and should be registered with an
// EventBus using SubscribeAll.
type MetricsListener struct {
	sessionStarted bool
}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
func (l *MetricsListener) Handle(event *events.Event) {
	//exhaustive:ignore
	switch event.Type {
	case events.EventSessionStateChanged:
		l.handleSessionStateChanged(event)
	case events.EventAudioAdded:
		RecordAudioFrameAcked()
	case events.EventAddSegment:
		RecordSegmentEmitted("final")
	case events.EventAddPartialSegment:
		RecordSegmentEmitted("partial")
	case events.EventEndOfTurn:
		RecordTurnEmitted()
	case events.EventWarning:
		l.handleWarning(event)
	case events.EventError:
		l.handleError(event)
	default:
		// Ignore events that don't have metrics.
	}
}

func (l *MetricsListener) handleSessionStateChanged(event *events.Event) {
	data, ok := event.Data.(*events.SessionStateChangedData)
	if !ok {
		return
	}
	switch data.To {
	case "connecting":
		if !l.sessionStarted {
			RecordSessionStarted()
			l.sessionStarted = true
		}
	case "closed", "failed":
		if l.sessionStarted {
			RecordSessionEnded()
			l.sessionStarted = false
		}
	}
}

func (l *MetricsListener) handleWarning(event *events.Event) {
	data, ok := event.Data.(*events.WarningData)
	if !ok {
		return
	}
	if data.Kind == "turn_policy_fallback" {
		RecordTurnPolicyFallback()
	}
}

func (l *MetricsListener) handleError(event *events.Event) {
	data, ok := event.Data.(*events.ErrorData)
	if !ok {
		return
	}
	RecordSessionError(data.Kind)
}

// Listener returns an events.Listener function that can be registered with an EventBus.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}
