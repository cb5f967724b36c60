// Package session implements the RT Session (component D): a full-duplex
// WebSocket state machine that streams PCM audio upstream and
// demultiplexes control, partial, and final transcription frames
// downstream, with audio-frame acknowledgement accounting and
// at-least-once completion guarantees (spec section 4.D, "the hardest
// component").
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/speechmatics/speechmatics-go-sdk/pkg/errors"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/codec"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/events"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/metrics/prometheus"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/transport"
)

// writeRequest is one entry on the single writer queue that preserves
// outbound frame order regardless of which caller goroutine produced it
// (spec section 9, "all sends funnel through one writer queue").
type writeRequest struct {
	binary bool
	data   []byte
}

// Session is the RT Session state machine. It exclusively owns the
// underlying transport.Conn; all inbound frames are delivered to the
// downstream components in receipt order, and all outbound frames are
// transmitted in the order their callers completed the corresponding
// operation.
type Session struct {
	cfg      Config
	handlers Handlers
	bus      *events.EventBus

	conn *transport.Conn

	mu            sync.Mutex
	state         State
	recognitionID string
	languagePack  map[string]any
	baseTime      time.Time

	audioSeqSent  uint64
	audioSeqAcked uint64
	lastSeq       uint64
	finalizeSent  bool

	startedCh chan struct{}
	closedCh  chan struct{}
	closeOnce sync.Once

	writeCh chan writeRequest
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Session. Connect must be called before any other
// operation.
func New(cfg Config, handlers Handlers, bus *events.EventBus) *Session {
	cfg.defaults()
	return &Session{
		cfg:       cfg,
		handlers:  handlers,
		bus:       bus,
		state:     StateIdle,
		startedCh: make(chan struct{}),
		closedCh:  make(chan struct{}),
		writeCh:   make(chan writeRequest, cfg.AudioQueueHighWaterMark),
		limiter:   rate.NewLimiter(rate.Limit(DefaultAudioFrameRate), DefaultAudioFrameRate),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RecognitionID returns the server-assigned recognition id, set once
// RecognitionStarted is observed.
func (s *Session) RecognitionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recognitionID
}

// AudioSeqAcked returns the highest audio sequence number acknowledged by
// the server so far, for callers persisting resumability metadata.
func (s *Session) AudioSeqAcked() uint64 {
	return atomic.LoadUint64(&s.audioSeqAcked)
}

// Elapsed returns the session-relative time in seconds since
// RecognitionStarted was observed, matching the units of Word/Segment
// start_time/end_time (spec section 3, "Times are seconds since session
// start"). Zero before the session has started.
func (s *Session) Elapsed() float64 {
	s.mu.Lock()
	baseTime := s.baseTime
	s.mu.Unlock()
	if baseTime.IsZero() {
		return 0
	}
	return time.Since(baseTime).Seconds()
}

// Connect dials the endpoint, sends StartRecognition, and blocks until
// RecognitionStarted is observed (session reaches started) or ctx is
// canceled (spec section 4.D operation table).
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return errors.Config("session", "connect", nil).WithDetails(map[string]any{"reason": "already connected"})
	}
	s.state = StateConnecting
	s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.conn = transport.NewConn(&s.cfg.Transport)

	if err := s.conn.ConnectWithRetry(ctx); err != nil {
		prometheus.RecordReconnectAttempt("failure")
		s.failLocked(err)
		return err
	}
	prometheus.RecordReconnectAttempt("success")

	start := codec.NewStartRecognition(s.cfg.AudioFormat, s.cfg.TranscriptionConfig)
	payload, err := codec.Encode(start)
	if err != nil {
		s.failLocked(err)
		return err
	}
	if err := s.conn.SendText(payload); err != nil {
		s.failLocked(err)
		return err
	}

	g, gctx := errgroup.WithContext(s.ctx)
	frameCh := make(chan transport.Frame, 16)

	g.Go(func() error { return s.conn.ReceiveLoop(gctx, frameCh) })
	g.Go(func() error { return s.dispatchLoop(gctx, frameCh) })
	g.Go(func() error { return s.writerLoop(gctx) })

	s.conn.StartHeartbeat(gctx, s.cfg.PingInterval)

	go func() {
		if err := g.Wait(); err != nil && gctx.Err() == nil {
			s.failLocked(err)
		}
	}()

	select {
	case <-s.startedCh:
		prometheus.RecordSessionStarted()
		return nil
	case <-ctx.Done():
		s.failLocked(ctx.Err())
		return ctx.Err()
	case <-s.closedCh:
		return errors.Transport("session", "connect", nil).WithDetails(map[string]any{"reason": "closed before started"})
	}
}

// SendAudio transmits one chunk of PCM audio, incrementing audio_seq_sent.
// Returns a backpressure error when audio_seq_sent - audio_seq_acked
// exceeds the configured high-water mark, and a config error when the
// session hasn't reached started (spec section 4.D operation table).
func (s *Session) SendAudio(ctx context.Context, pcm []byte) error {
	if s.State() != StateStarted {
		return errors.Config("session", "send_audio", nil).WithDetails(map[string]any{"reason": "session not started"})
	}

	sent := atomic.LoadUint64(&s.audioSeqSent)
	acked := atomic.LoadUint64(&s.audioSeqAcked)
	if sent-acked >= uint64(s.cfg.AudioQueueHighWaterMark) {
		return errors.Backpressure("session", "send_audio", nil).WithDetails(map[string]any{
			"audio_seq_sent":  sent,
			"audio_seq_acked": acked,
		})
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return errors.Transport("session", "send_audio", err)
	}

	atomic.AddUint64(&s.audioSeqSent, 1)
	prometheus.RecordAudioFrameSent()

	return s.enqueueWrite(ctx, writeRequest{binary: true, data: codec.EncodeAudio(pcm)})
}

// SendControl enqueues an arbitrary encodable control frame (e.g.
// SetRecognitionConfig, GetSpeakers) on the writer queue.
func (s *Session) SendControl(ctx context.Context, msg any) error {
	if s.State() != StateStarted {
		return errors.Config("session", "send_control", nil).WithDetails(map[string]any{"reason": "session not started"})
	}
	payload, err := codec.Encode(msg)
	if err != nil {
		return err
	}
	return s.enqueueWrite(ctx, writeRequest{binary: false, data: payload})
}

func (s *Session) enqueueWrite(ctx context.Context, req writeRequest) error {
	select {
	case s.writeCh <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closedCh:
		return errors.Transport("session", "send", nil).WithDetails(map[string]any{"reason": "session closed"})
	}
}

// Finalize closes the upstream audio stream with EndOfStream{last_seq =
// audio_seq_sent} and transitions to draining (spec section 4.D operation
// table). Calling it more than once is an error.
func (s *Session) Finalize(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateStarted {
		state := s.state
		s.mu.Unlock()
		return errors.Config("session", "finalize", nil).WithDetails(map[string]any{"reason": "not in started state", "state": state})
	}
	lastSeq := atomic.LoadUint64(&s.audioSeqSent)
	s.lastSeq = lastSeq
	s.finalizeSent = true
	s.state = StateDraining
	s.mu.Unlock()

	s.publish(events.EventSessionStateChanged, events.SessionStateChangedData{From: string(StateStarted), To: string(StateDraining)})

	eos := codec.NewEndOfStream(int(lastSeq))
	payload, err := codec.Encode(eos)
	if err != nil {
		return err
	}
	return s.enqueueWrite(ctx, writeRequest{binary: false, data: payload})
}

// Close performs a hard close: cancels all listeners and in-flight
// operations and transitions to closed. Safe to call more than once and
// from any state.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		prevState := s.state
		s.state = StateClosed
		s.mu.Unlock()

		close(s.closedCh)
		if s.cancel != nil {
			s.cancel()
		}
		if s.conn != nil {
			err = s.conn.Close()
		}
		if prevState != StateFailed {
			prometheus.RecordSessionEnded()
		}
		s.publish(events.EventSessionStateChanged, events.SessionStateChangedData{From: string(prevState), To: string(StateClosed)})
		if s.bus != nil {
			s.bus.Close()
		}
	})
	return err
}

// failLocked transitions the session to failed, publishes the terminal
// error event, and begins closing. No further events are delivered after
// this call (spec section 7, "the facade never swallows a fatal error").
func (s *Session) failLocked(cause error) {
	s.mu.Lock()
	if s.state == StateClosed || s.state == StateFailed {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = StateFailed
	s.mu.Unlock()

	kind := "transport"
	if ce, ok := cause.(*errors.ContextualError); ok {
		kind = string(ce.Kind)
	}
	prometheus.RecordSessionError(kind)

	s.publish(events.EventSessionStateChanged, events.SessionStateChangedData{From: string(prev), To: string(StateFailed)})
	s.publish(events.EventError, events.ErrorData{Kind: kind, Message: errMessage(cause), Cause: cause})

	go s.Close()
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *Session) publish(t events.EventType, data events.EventData) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(&events.Event{Type: t, Timestamp: time.Now(), SessionID: s.recognitionID, Data: data})
}

// writerLoop is the single writer goroutine; every outbound frame funnels
// through writeCh so wire order matches completion order regardless of
// which caller produced it.
func (s *Session) writerLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.writeCh:
			var err error
			if req.binary {
				err = s.conn.SendBinary(req.data)
			} else {
				err = s.conn.SendText(req.data)
			}
			if err != nil {
				return err
			}
		}
	}
}

// dispatchLoop processes inbound frames strictly in receipt order (spec
// section 4.D, "no reordering").
func (s *Session) dispatchLoop(ctx context.Context, frameCh <-chan transport.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frameCh:
			if !ok {
				return nil
			}
			if frame.Binary {
				continue
			}
			if err := s.handleFrame(frame.Data); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handleFrame(data []byte) error {
	kind, payload, ok, err := codec.Decode(data)
	if err != nil {
		return err
	}
	if !ok {
		s.publish(events.EventInfo, events.InfoData{Kind: "unknown_frame", Message: kind})
		return nil
	}

	switch msg := payload.(type) {
	case *codec.RecognitionStarted:
		s.handleRecognitionStarted(msg)
	case *codec.AudioAdded:
		s.handleAudioAdded(msg)
	case *codec.AddPartialTranscript:
		if s.handlers.OnPartialTranscript != nil {
			s.handlers.OnPartialTranscript(msg)
		}
	case *codec.AddTranscript:
		if s.handlers.OnTranscript != nil {
			s.handlers.OnTranscript(msg)
		}
	case *codec.EndOfUtterance:
		s.publish(events.EventEndOfUtterance, events.EndOfUtteranceData{})
		if s.handlers.OnEndOfUtterance != nil {
			s.handlers.OnEndOfUtterance()
		}
	case *codec.SpeakersResult:
		s.publish(events.EventSpeakersResult, events.SpeakersResultData{Speakers: msg.Speakers})
		if s.handlers.OnSpeakersResult != nil {
			s.handlers.OnSpeakersResult(msg.Speakers)
		}
	case *codec.Info:
		s.publish(events.EventInfo, events.InfoData{Kind: msg.Type, Message: msg.Reason})
	case *codec.Warning:
		s.publish(events.EventWarning, events.WarningData{Kind: msg.Type, Message: msg.Reason})
	case *codec.Error:
		return errors.ServerError("session", "handle_frame", nil).WithDetails(map[string]any{"type": msg.Type, "reason": msg.Reason})
	case *codec.EndOfTranscript:
		return s.handleEndOfTranscript()
	}
	return nil
}

func (s *Session) handleRecognitionStarted(msg *codec.RecognitionStarted) {
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateStarted
	s.recognitionID = msg.ID
	s.baseTime = time.Now()
	s.mu.Unlock()

	s.publish(events.EventSessionStateChanged, events.SessionStateChangedData{From: string(StateConnecting), To: string(StateStarted)})
	s.publish(events.EventRecognitionStarted, events.RecognitionStartedData{RecognitionID: msg.ID})

	close(s.startedCh)
}

func (s *Session) handleAudioAdded(msg *codec.AudioAdded) {
	atomic.StoreUint64(&s.audioSeqAcked, msg.SeqNo)
	prometheus.RecordAudioFrameAcked()
	s.publish(events.EventAudioAdded, events.AudioAddedData{SeqNo: int(msg.SeqNo)})
}

func (s *Session) handleEndOfTranscript() error {
	s.mu.Lock()
	state := s.state
	if state == StateStarted {
		s.state = StateDraining
	}
	finalizeSent := s.finalizeSent
	lastSeq := s.lastSeq
	s.mu.Unlock()

	s.publish(events.EventEndOfTranscript, events.EndOfTranscriptData{})

	acked := atomic.LoadUint64(&s.audioSeqAcked)
	if finalizeSent && acked < lastSeq {
		return errors.Protocol("session", "end_of_transcript", nil).WithDetails(map[string]any{
			"last_seq":        lastSeq,
			"audio_seq_acked": acked,
		})
	}

	go s.Close()
	return nil
}
