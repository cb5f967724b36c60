// Package prometheus exports voice-agent session metrics via the
// Prometheus client library.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voiceagent"

var (
	// audioFramesSentTotal counts outbound audio chunks sent via send_audio.
	audioFramesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_sent_total",
			Help:      "Total number of audio frames sent to the server",
		},
	)

	// audioFramesAckedTotal counts AudioAdded acknowledgements received.
	audioFramesAckedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_acked_total",
			Help:      "Total number of audio frames acknowledged by the server",
		},
	)

	// audioSeqLag is a gauge of the gap between sent and acknowledged sequence numbers.
	audioSeqLag = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audio_seq_lag",
			Help:      "Outstanding audio frames sent but not yet acknowledged",
		},
	)

	// segmentsEmittedTotal counts segments emitted by kind (partial, final).
	segmentsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_emitted_total",
			Help:      "Total number of segments emitted by the segmentation engine",
		},
		[]string{"kind"},
	)

	// turnsEmittedTotal counts EndOfTurn events.
	turnsEmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_emitted_total",
			Help:      "Total number of turns closed",
		},
	)

	// turnPolicyFallbacksTotal counts Smart->Adaptive policy fallbacks.
	turnPolicyFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_policy_fallbacks_total",
			Help:      "Total number of turn detector policy fallbacks (e.g. smart to adaptive)",
		},
	)

	// reconnectAttemptsTotal counts RT session reconnect attempts by outcome.
	reconnectAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Total number of session reconnect attempts",
		},
		[]string{"outcome"}, // outcome: success, failure
	)

	// sessionsActive is a gauge of sessions currently in a non-terminal state.
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently connecting, started, or draining",
		},
	)

	// sessionErrorsTotal counts terminal session errors by kind.
	sessionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_errors_total",
			Help:      "Total number of terminal session errors by kind",
		},
		[]string{"kind"},
	)

	allMetrics = []prometheus.Collector{
		audioFramesSentTotal,
		audioFramesAckedTotal,
		audioSeqLag,
		segmentsEmittedTotal,
		turnsEmittedTotal,
		turnPolicyFallbacksTotal,
		reconnectAttemptsTotal,
		sessionsActive,
		sessionErrorsTotal,
	}
)

// RecordAudioFrameSent records an outbound audio frame and bumps the lag gauge.
func RecordAudioFrameSent() {
	audioFramesSentTotal.Inc()
	audioSeqLag.Inc()
}

// RecordAudioFrameAcked records an AudioAdded acknowledgement.
func RecordAudioFrameAcked() {
	audioFramesAckedTotal.Inc()
	audioSeqLag.Dec()
}

// RecordSegmentEmitted records a segment emission by kind ("partial" or "final").
func RecordSegmentEmitted(kind string) {
	segmentsEmittedTotal.WithLabelValues(kind).Inc()
}

// RecordTurnEmitted records a closed turn.
func RecordTurnEmitted() {
	turnsEmittedTotal.Inc()
}

// RecordTurnPolicyFallback records a turn detector policy fallback.
func RecordTurnPolicyFallback() {
	turnPolicyFallbacksTotal.Inc()
}

// RecordReconnectAttempt records a reconnect attempt outcome ("success" or "failure").
func RecordReconnectAttempt(outcome string) {
	reconnectAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordSessionStarted increments the active session gauge.
func RecordSessionStarted() {
	sessionsActive.Inc()
}

// RecordSessionEnded decrements the active session gauge.
func RecordSessionEnded() {
	sessionsActive.Dec()
}

// RecordSessionError records a terminal session error by kind.
func RecordSessionError(kind string) {
	sessionErrorsTotal.WithLabelValues(kind).Inc()
}
