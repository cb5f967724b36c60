// Package turndetector decides when the current speaker has finished a
// conversational turn (component G), under four interchangeable policies,
// and emits EndOfTurn exactly once per turn (spec section 4.G).
package turndetector

import (
	"context"
	"sync"
	"time"

	"github.com/speechmatics/speechmatics-go-sdk/runtime/audio"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/events"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/metrics/prometheus"
)

// turnState tracks one turn's lifecycle: open -> closing -> closed
// (spec section 3, "Turn").
type turnState int

const (
	stateOpen turnState = iota
	stateClosing
)

// Config configures a Detector.
type Config struct {
	Policy Policy

	// SilenceTrigger is end_of_utterance_silence_trigger in seconds.
	SilenceTrigger float64
	// MaxDelay is max_delay in seconds, the Adaptive window's upper clamp.
	MaxDelay float64
	// EndOfUtteranceMaxDelay is the hard ceiling (spec section 4.G,
	// default 10s) that force-closes any open turn regardless of policy.
	EndOfUtteranceMaxDelay time.Duration
	// MinQuiescence is the closing->closed dwell time (default 50ms).
	MinQuiescence time.Duration
	// AdaptiveStep is the Δ adjustment the Adaptive policy applies per
	// trailing-annotation signal (default 150ms).
	AdaptiveStep time.Duration

	// Classifier backs the Smart policy. A nil Classifier downgrades Smart
	// to Adaptive with a one-time warning (spec section 4.G).
	Classifier     audio.SmartTurnClassifier
	SmartThreshold float64
	SmartWindow    time.Duration
	SampleRate     int

	Lookup AnnotationLookup
}

func (c *Config) defaults() {
	if c.EndOfUtteranceMaxDelay == 0 {
		c.EndOfUtteranceMaxDelay = DefaultEndOfUtteranceMaxDelay
	}
	if c.MinQuiescence == 0 {
		c.MinQuiescence = DefaultMinQuiescence
	}
	if c.AdaptiveStep == 0 {
		c.AdaptiveStep = DefaultAdaptiveStep
	}
	if c.SmartThreshold == 0 {
		c.SmartThreshold = DefaultSmartTurnThreshold
	}
	if c.SmartWindow == 0 {
		c.SmartWindow = time.Duration(audio.DefaultRingBufferSeconds * float64(time.Second))
	}
	if c.SampleRate == 0 {
		c.SampleRate = audio.DefaultSmartTurnSampleRate
	}
	if c.Lookup == nil {
		c.Lookup = func(string) (TrailingAnnotations, bool) { return TrailingAnnotations{}, false }
	}
}

// FallbackWarning is published once, the first time a Smart policy
// downgrades to Adaptive for lack of a classifier.
type FallbackWarning struct {
	Reason string
}

// Detector implements the turn-end state machine. One Detector tracks
// exactly one turn at a time; turn_id increases monotonically from 0 and
// EndOfTurn fires exactly once per closing->closed transition.
type Detector struct {
	mu sync.Mutex

	cfg             Config
	effectivePolicy Policy
	fellBack        bool

	bus *events.EventBus

	turnID         int
	state          turnState
	currentSpeaker string

	closingTimer    *time.Timer
	predictionTimer *time.Timer
	ceilingTimer    *time.Timer

	ring       *audio.RingBuffer
	closed     bool
}

// New creates a Detector. bus receives EndOfTurnPrediction and EndOfTurn
// events; it may be nil in tests that only check return values via the
// On* methods' side effects.
func New(cfg Config, bus *events.EventBus) *Detector {
	cfg.defaults()

	effective := cfg.Policy
	fellBack := false
	if cfg.Policy == PolicySmart && cfg.Classifier == nil {
		effective = PolicyAdaptive
		fellBack = true
	}

	var ring *audio.RingBuffer
	if effective == PolicySmart {
		ring = audio.NewRingBuffer(cfg.SmartWindow.Seconds(), cfg.SampleRate)
	}

	d := &Detector{
		cfg:             cfg,
		effectivePolicy: effective,
		fellBack:        fellBack,
		bus:             bus,
		ring:            ring,
	}

	if fellBack {
		prometheus.RecordTurnPolicyFallback()
		d.publishFallbackWarning()
	}

	return d
}

func (d *Detector) publishFallbackWarning() {
	if d.bus == nil {
		return
	}
	d.bus.Publish(&events.Event{
		Type:      events.EventWarning,
		Timestamp: time.Now(),
		Data: events.WarningData{
			Kind:    "capability_absent",
			Message: "smart turn classifier not configured; falling back to adaptive policy",
		},
	})
}

// PushAudio non-blockingly appends PCM audio to the Smart policy's ring
// buffer. A no-op when the effective policy isn't Smart.
func (d *Detector) PushAudio(pcm []byte) {
	d.mu.Lock()
	ring := d.ring
	d.mu.Unlock()
	if ring != nil {
		ring.Push(pcm)
	}
}

// NotifyWord reports that a new word arrived for speakerID, cancelling any
// in-flight closing or prediction timer for the current turn (spec
// section 4.G, "If no new word arrives within d ... otherwise cancel").
func (d *Detector) NotifyWord(speakerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.currentSpeaker = speakerID
	d.stopTimer(&d.predictionTimer)

	if d.state == stateClosing {
		d.stopTimer(&d.closingTimer)
		d.state = stateOpen
	}
}

// NotifyEndOfUtterance reports the server's own silence-based endpointing
// signal. Fixed closes immediately; Adaptive opens a prediction window;
// Smart invokes the classifier; External ignores it entirely.
func (d *Detector) NotifyEndOfUtterance(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.publish(events.EventEndOfUtterance, events.EndOfUtteranceData{})

	switch d.effectivePolicy {
	case PolicyFixed:
		d.beginClosingLocked()
	case PolicyAdaptive:
		d.openPredictionWindowLocked()
	case PolicySmart:
		d.runClassifierLocked(ctx)
	case PolicyExternal:
		// Explicit finalize(end_of_turn=true) is the only thing that
		// closes a turn under this policy.
	}
}

// openPredictionWindowLocked computes the Adaptive window per spec section
// 4.G and starts it. Called with d.mu held.
func (d *Detector) openPredictionWindowLocked() {
	window := d.adaptiveWindowLocked()

	d.stopTimer(&d.predictionTimer)
	d.publish(events.EventEndOfTurnPrediction, events.EndOfTurnPredictionData{WindowSeconds: window.Seconds()})

	d.predictionTimer = time.AfterFunc(window, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed {
			return
		}
		d.beginClosingLocked()
	})
}

// adaptiveWindowLocked computes d per spec section 4.G's formula, clamped
// to [SilenceTrigger, MaxDelay]. Must be called with d.mu held.
func (d *Detector) adaptiveWindowLocked() time.Duration {
	base := d.cfg.SilenceTrigger
	step := d.cfg.AdaptiveStep.Seconds()

	window := base
	if ann, ok := d.cfg.Lookup(d.currentSpeaker); ok {
		if ann.HasDisfluency {
			window += step
		}
		if !ann.EndsWithPunctuation {
			window += step
		}
		if ann.EndsWithEOS {
			window -= step
		}
	}

	if window < d.cfg.SilenceTrigger {
		window = d.cfg.SilenceTrigger
	}
	if window > d.cfg.MaxDelay {
		window = d.cfg.MaxDelay
	}
	return time.Duration(window * float64(time.Second))
}

// runClassifierLocked invokes the Smart Turn classifier against the
// current ring buffer contents. Called with d.mu held; the blocking
// inference call itself runs synchronously (spec's cooperative,
// single-logical-thread scheduling model treats this as a suspension
// point of NotifyEndOfUtterance, matching connect/send_audio elsewhere).
func (d *Detector) runClassifierLocked(ctx context.Context) {
	classifier := d.cfg.Classifier
	ring := d.ring
	if classifier == nil || ring == nil {
		d.beginClosingLocked()
		return
	}

	pcm := ring.Snapshot()
	d.mu.Unlock()
	prob, err := classifier.Infer(ctx, pcm, d.cfg.SampleRate)
	d.mu.Lock()

	if d.closed {
		return
	}
	if err != nil || prob >= d.cfg.SmartThreshold {
		d.beginClosingLocked()
	}
}

// Finalize force-closes the current turn when endOfTurn is true (the
// facade's finalize(end_of_turn=true) operation, and the External
// policy's only closing trigger). A no-op otherwise.
func (d *Detector) Finalize(endOfTurn bool) {
	if !endOfTurn {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closeTurnLocked()
}

// beginClosingLocked transitions open -> closing and starts the
// min-quiescence dwell timer. Must be called with d.mu held.
func (d *Detector) beginClosingLocked() {
	d.state = stateClosing
	d.stopTimer(&d.closingTimer)
	d.closingTimer = time.AfterFunc(d.cfg.MinQuiescence, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed || d.state != stateClosing {
			return
		}
		d.closeTurnLocked()
	})
}

// closeTurnLocked performs the closing -> closed transition, emitting
// EndOfTurn exactly once and resetting state for the next turn. Must be
// called with d.mu held.
func (d *Detector) closeTurnLocked() {
	d.stopTimer(&d.closingTimer)
	d.stopTimer(&d.predictionTimer)

	speakerID := d.currentSpeaker
	turnID := d.turnID
	d.turnID++
	d.state = stateOpen

	if d.ring != nil {
		d.ring.Reset()
	}

	prometheus.RecordTurnEmitted()
	d.publish(events.EventEndOfTurn, events.EndOfTurnData{TurnID: turnID, SpeakerID: speakerID})

	d.startCeilingLocked()
}

// Start arms the hard ceiling timer for the first turn; call once after
// construction. Subsequent turns re-arm it automatically on close.
func (d *Detector) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startCeilingLocked()
}

// startCeilingLocked (re)arms the end_of_utterance_max_delay ceiling,
// which force-closes any open turn regardless of policy (spec section
// 4.G). Must be called with d.mu held.
func (d *Detector) startCeilingLocked() {
	d.stopTimer(&d.ceilingTimer)
	d.ceilingTimer = time.AfterFunc(d.cfg.EndOfUtteranceMaxDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed {
			return
		}
		d.closeTurnLocked()
	})
}

// stopTimer cancels *t if set, per spec section 9 ("two timers can never
// fire concurrently for the same turn; the newer cancels the older").
func (d *Detector) stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// Close cancels every pending timer and stops emitting further events.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.stopTimer(&d.closingTimer)
	d.stopTimer(&d.predictionTimer)
	d.stopTimer(&d.ceilingTimer)
}

// EffectivePolicy returns the policy actually in effect, which may differ
// from Config.Policy after a Smart->Adaptive fallback.
func (d *Detector) EffectivePolicy() Policy {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.effectivePolicy
}

// FellBack reports whether this Detector downgraded from Smart to
// Adaptive for lack of a classifier.
func (d *Detector) FellBack() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fellBack
}

func (d *Detector) publish(t events.EventType, data events.EventData) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(&events.Event{Type: t, Timestamp: time.Now(), Data: data})
}
