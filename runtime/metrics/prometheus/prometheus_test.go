package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/events"
)

func TestRecordAudioFrames(t *testing.T) {
	audioFramesSentTotal.Add(0)
	audioFramesAckedTotal.Add(0)
	audioSeqLag.Set(0)

	RecordAudioFrameSent()
	RecordAudioFrameSent()
	RecordAudioFrameAcked()

	sent := testutil.ToFloat64(audioFramesSentTotal)
	acked := testutil.ToFloat64(audioFramesAckedTotal)
	lag := testutil.ToFloat64(audioSeqLag)

	if sent != 2 {
		t.Errorf("expected 2 frames sent, got %f", sent)
	}
	if acked != 1 {
		t.Errorf("expected 1 frame acked, got %f", acked)
	}
	if lag != 1 {
		t.Errorf("expected lag of 1, got %f", lag)
	}
}

func TestRecordSegmentEmitted(t *testing.T) {
	segmentsEmittedTotal.Reset()

	RecordSegmentEmitted("partial")
	RecordSegmentEmitted("partial")
	RecordSegmentEmitted("final")

	partial := testutil.ToFloat64(segmentsEmittedTotal.WithLabelValues("partial"))
	final := testutil.ToFloat64(segmentsEmittedTotal.WithLabelValues("final"))

	if partial != 2 {
		t.Errorf("expected 2 partial segments, got %f", partial)
	}
	if final != 1 {
		t.Errorf("expected 1 final segment, got %f", final)
	}
}

func TestRecordTurnEmitted(t *testing.T) {
	turnsEmittedTotal.Add(0)

	RecordTurnEmitted()
	RecordTurnEmitted()

	count := testutil.ToFloat64(turnsEmittedTotal)
	if count != 2 {
		t.Errorf("expected 2 turns emitted, got %f", count)
	}
}

func TestRecordTurnPolicyFallback(t *testing.T) {
	turnPolicyFallbacksTotal.Add(0)

	RecordTurnPolicyFallback()

	count := testutil.ToFloat64(turnPolicyFallbacksTotal)
	if count != 1 {
		t.Errorf("expected 1 fallback, got %f", count)
	}
}

func TestRecordReconnectAttempt(t *testing.T) {
	reconnectAttemptsTotal.Reset()

	RecordReconnectAttempt("success")
	RecordReconnectAttempt("failure")
	RecordReconnectAttempt("failure")

	success := testutil.ToFloat64(reconnectAttemptsTotal.WithLabelValues("success"))
	failure := testutil.ToFloat64(reconnectAttemptsTotal.WithLabelValues("failure"))

	if success != 1 {
		t.Errorf("expected 1 success, got %f", success)
	}
	if failure != 2 {
		t.Errorf("expected 2 failures, got %f", failure)
	}
}

func TestRecordSessionLifecycle(t *testing.T) {
	sessionsActive.Set(0)

	RecordSessionStarted()
	active := testutil.ToFloat64(sessionsActive)
	if active != 1 {
		t.Errorf("expected 1 active session, got %f", active)
	}

	RecordSessionEnded()
	active = testutil.ToFloat64(sessionsActive)
	if active != 0 {
		t.Errorf("expected 0 active sessions, got %f", active)
	}
}

func TestRecordSessionError(t *testing.T) {
	sessionErrorsTotal.Reset()

	RecordSessionError("transport")
	RecordSessionError("transport")
	RecordSessionError("auth")

	transport := testutil.ToFloat64(sessionErrorsTotal.WithLabelValues("transport"))
	auth := testutil.ToFloat64(sessionErrorsTotal.WithLabelValues("auth"))

	if transport != 2 {
		t.Errorf("expected 2 transport errors, got %f", transport)
	}
	if auth != 1 {
		t.Errorf("expected 1 auth error, got %f", auth)
	}
}

func TestNewExporter(t *testing.T) {
	exporter := NewExporter(":9091")
	if exporter == nil {
		t.Fatal("expected non-nil exporter")
	}
	if exporter.Registry() == nil {
		t.Error("expected non-nil registry")
	}
}

func TestNewExporterWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	exporter := NewExporterWithRegistry(":9092", reg)

	if exporter.Registry() != reg {
		t.Error("expected custom registry to be used")
	}
}

func TestExporterHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "Test counter",
	})
	reg.MustRegister(counter)
	counter.Inc()

	exporter := NewExporterWithRegistry(":9093", reg)
	handler := exporter.Handler()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	resp := rec.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "test_counter") {
		t.Error("expected response to contain test_counter metric")
	}
}

func TestExporterRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	exporter := NewExporterWithRegistry(":9094", reg)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "custom_counter",
		Help: "Custom counter",
	})

	if err := exporter.Register(counter); err != nil {
		t.Errorf("expected no error registering counter, got %v", err)
	}

	if err := exporter.Register(counter); err == nil {
		t.Error("expected error when registering duplicate counter")
	}
}

func TestExporterMustRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	exporter := NewExporterWithRegistry(":9095", reg)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "must_register_counter",
		Help: "Must register counter",
	})

	exporter.MustRegister(counter)
}

func TestExporterStartShutdown(t *testing.T) {
	exporter := NewExporterWithRegistry(":0", prometheus.NewRegistry())

	errCh := make(chan error, 1)
	go func() {
		errCh <- exporter.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := exporter.Shutdown(ctx); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			t.Errorf("expected ErrServerClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for server to stop")
	}
}

func TestExporterDoubleStart(t *testing.T) {
	exporter := NewExporterWithRegistry(":0", prometheus.NewRegistry())

	go func() {
		_ = exporter.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	if err := exporter.Start(); err != nil {
		t.Errorf("expected nil on double start, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = exporter.Shutdown(ctx)
}

func TestMetricsListener_SessionLifecycle(t *testing.T) {
	sessionsActive.Set(0)

	listener := NewMetricsListener()

	listener.Handle(&events.Event{
		Type: events.EventSessionStateChanged,
		Data: &events.SessionStateChangedData{From: "idle", To: "connecting"},
	})
	active := testutil.ToFloat64(sessionsActive)
	if active != 1 {
		t.Errorf("expected 1 active session, got %f", active)
	}

	listener.Handle(&events.Event{
		Type: events.EventSessionStateChanged,
		Data: &events.SessionStateChangedData{From: "draining", To: "closed"},
	})
	active = testutil.ToFloat64(sessionsActive)
	if active != 0 {
		t.Errorf("expected 0 active sessions, got %f", active)
	}
}

func TestMetricsListener_AudioAndSegments(t *testing.T) {
	audioFramesAckedTotal.Add(0)
	segmentsEmittedTotal.Reset()
	turnsEmittedTotal.Add(0)

	listener := NewMetricsListener()

	listener.Handle(&events.Event{Type: events.EventAudioAdded, Data: &events.AudioAddedData{SeqNo: 1}})
	listener.Handle(&events.Event{Type: events.EventAddSegment, Data: &events.SegmentData{Text: "hi"}})
	listener.Handle(&events.Event{Type: events.EventAddPartialSegment, Data: &events.SegmentData{Text: "h"}})
	listener.Handle(&events.Event{Type: events.EventEndOfTurn, Data: &events.EndOfTurnData{TurnID: 1}})

	if testutil.ToFloat64(audioFramesAckedTotal) != 1 {
		t.Error("expected 1 audio frame acked")
	}
	if testutil.ToFloat64(segmentsEmittedTotal.WithLabelValues("final")) != 1 {
		t.Error("expected 1 final segment")
	}
	if testutil.ToFloat64(segmentsEmittedTotal.WithLabelValues("partial")) != 1 {
		t.Error("expected 1 partial segment")
	}
	if testutil.ToFloat64(turnsEmittedTotal) != 1 {
		t.Error("expected 1 turn emitted")
	}
}

func TestMetricsListener_WarningAndError(t *testing.T) {
	turnPolicyFallbacksTotal.Add(0)
	sessionErrorsTotal.Reset()

	listener := NewMetricsListener()

	listener.Handle(&events.Event{
		Type: events.EventWarning,
		Data: &events.WarningData{Kind: "turn_policy_fallback", Message: "smart turn unavailable"},
	})
	if testutil.ToFloat64(turnPolicyFallbacksTotal) != 1 {
		t.Error("expected 1 turn policy fallback")
	}

	listener.Handle(&events.Event{
		Type: events.EventError,
		Data: &events.ErrorData{Kind: "transport", Message: "connection reset"},
	})
	if testutil.ToFloat64(sessionErrorsTotal.WithLabelValues("transport")) != 1 {
		t.Error("expected 1 transport error")
	}
}

func TestMetricsListenerFunction(t *testing.T) {
	listener := NewMetricsListener()
	fn := listener.Listener()

	if fn == nil {
		t.Fatal("expected non-nil listener function")
	}

	sessionsActive.Set(0)
	fn(&events.Event{
		Type: events.EventSessionStateChanged,
		Data: &events.SessionStateChangedData{From: "idle", To: "connecting"},
	})

	if testutil.ToFloat64(sessionsActive) != 1 {
		t.Error("expected 1 active session via listener function")
	}
}

func TestMetricsListenerIgnoresUnknownEvents(t *testing.T) {
	listener := NewMetricsListener()

	listener.Handle(&events.Event{Type: events.EventInfo, Data: &events.InfoData{}})
	listener.Handle(&events.Event{Type: events.EventWordsUpdated, Data: &events.WordsUpdatedData{}})
}

func TestMetricsListenerNilData(t *testing.T) {
	listener := NewMetricsListener()

	listener.Handle(&events.Event{Type: events.EventSessionStateChanged, Data: nil})
	listener.Handle(&events.Event{Type: events.EventWarning, Data: nil})
	listener.Handle(&events.Event{Type: events.EventError, Data: nil})
}
