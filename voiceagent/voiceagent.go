// Package voiceagent is the Voice Agent facade (component H): thin glue
// combining the RT Session (D), transcript assembler (E), segmentation
// engine (F), turn detector (G), and speaker registry (I) behind one
// public surface, constructed from a single configuration or one of the
// six named presets (spec section 4.H).
package voiceagent

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/speechmatics/speechmatics-go-sdk/pkg/config"
	"github.com/speechmatics/speechmatics-go-sdk/pkg/errors"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/audio"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/codec"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/credentials"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/events"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/segmentation"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/session"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/speakers"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/statestore"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/transcript"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/turndetector"
)

// options collects the construction-time choices that don't belong in the
// wire-level config.Config: the auth credential, an optional Smart Turn
// classifier implementation, and an optional resumability store.
type options struct {
	credential credentials.Credential
	classifier audio.SmartTurnClassifier
	store      statestore.Store
	sessionID  string
}

// Option configures an Agent at construction time.
type Option func(*options)

// WithCredential sets the auth applied to the WebSocket upgrade request.
func WithCredential(c credentials.Credential) Option {
	return func(o *options) { o.credential = c }
}

// WithSmartTurnClassifier supplies the Smart policy's pluggable classifier.
// Without one, a "smart" turn_policy silently downgrades to "adaptive".
func WithSmartTurnClassifier(c audio.SmartTurnClassifier) Option {
	return func(o *options) { o.classifier = c }
}

// WithStateStore enables resumability snapshotting: known speakers and
// audio/turn bookkeeping are loaded from store under sessionID at
// construction and saved back to it on Disconnect.
func WithStateStore(store statestore.Store, sessionID string) Option {
	return func(o *options) { o.store = store; o.sessionID = sessionID }
}

// Agent is the single entry point a caller uses: connect, send_audio,
// disconnect, finalize, update_focus, send_control, and on/once/off event
// subscription (spec section 4.H). It owns exactly one Session, which in
// turn exclusively owns the socket (spec section 3's ownership model).
type Agent struct {
	cfg config.Config

	bus        *events.EventBus
	sess       *session.Session
	buffer     *transcript.Buffer
	segs       *segmentation.Engine
	turns      *turndetector.Detector
	speakerReg *speakers.Registry

	store     statestore.Store
	sessionID string

	turnsClosed int64

	idleCancel context.CancelFunc
}

// idleSegmentCheckInterval paces the periodic scan for segments that have
// gone quiet beyond max_delay (spec section 4.F's "inactivity beyond
// max_delay" close trigger). It runs well under the smallest sensible
// MaxIntraGap so an idle close is never more than a tick late.
const idleSegmentCheckInterval = 100 * time.Millisecond

// New constructs an Agent from a fully-specified Config, validating it
// per spec section 7's configuration-error checks before wiring anything.
func New(cfg config.Config, opts ...Option) (*Agent, error) {
	cfg = cfg.WithDefaults()
	if warnings, err := config.Validate(&cfg); err != nil {
		return nil, errors.Config("voiceagent", "new", err).WithDetails(map[string]any{"warnings": warnings})
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	reg, err := buildSpeakerRegistry(context.Background(), cfg, o)
	if err != nil {
		return nil, errors.Config("voiceagent", "new", err)
	}

	a := &Agent{
		cfg:        cfg,
		bus:        events.NewEventBus(),
		buffer:     transcript.NewBuffer(),
		segs:       segmentation.NewEngine(buildSegmentationConfig(cfg)),
		speakerReg: reg,
		store:      o.store,
		sessionID:  o.sessionID,
	}

	a.turns = turndetector.New(buildTurnDetectorConfig(cfg, o.classifier, a.annotationLookup), a.bus)
	a.sess = session.New(buildSessionConfig(cfg, o.credential), a.handlers(), a.bus)

	a.subscribeLogging()

	return a, nil
}

// NewFromPreset loads one of the six named presets (fast, adaptive,
// smart_turn, scribe, captions, external) and constructs an Agent from it,
// with opts layered on top (spec section 4.H).
func NewFromPreset(name config.PresetName, opts ...Option) (*Agent, error) {
	preset, err := config.Preset(name)
	if err != nil {
		return nil, errors.Config("voiceagent", "new_from_preset", err)
	}
	return New(*preset, opts...)
}

// Connect dials the RT endpoint and arms the turn detector's hard ceiling.
func (a *Agent) Connect(ctx context.Context) error {
	if err := a.sess.Connect(ctx); err != nil {
		return err
	}
	a.turns.Start()
	a.startIdleSegmentCloser()
	return nil
}

// startIdleSegmentCloser runs a ticker that force-closes any segment whose
// tail has gone quiet beyond MaxIntraGap, the only segmentation close
// trigger that isn't driven by an incoming word (spec section 4.F rule 2).
// Without it, CloseIdle would never run: the dispatch loop only calls
// Engine.Update on new words from the server, so a speaker falling silent
// mid-segment would otherwise leave that segment open forever.
func (a *Agent) startIdleSegmentCloser() {
	ctx, cancel := context.WithCancel(context.Background())
	a.idleCancel = cancel

	go func() {
		ticker := time.NewTicker(idleSegmentCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, ev := range a.segs.CloseIdle(a.sess.Elapsed()) {
					a.publishSegment(ev)
				}
			}
		}
	}()
}

// SendAudio streams one chunk of PCM audio. The Smart policy's ring buffer
// (owned by G) is fed the same bytes non-blockingly before the frame is
// handed to the Session, so a classifier invocation always sees audio up
// to and including what the caller just sent.
func (a *Agent) SendAudio(ctx context.Context, pcm []byte) error {
	a.turns.PushAudio(pcm)
	return a.sess.SendAudio(ctx, pcm)
}

// SendControl enqueues an arbitrary control frame (e.g. a
// SetRecognitionConfig or GetSpeakers built via runtime/codec) on the
// session's writer queue.
func (a *Agent) SendControl(ctx context.Context, msg any) error {
	return a.sess.SendControl(ctx, msg)
}

// FocusUpdate is the update_focus operation's argument: a new speaker
// visibility policy, replacing the one supplied at construction.
type FocusUpdate struct {
	Mode           config.FocusMode
	FocusSpeakers  []string
	IgnoreSpeakers []string
}

// UpdateFocus replaces the segmentation engine's speaker focus policy.
// Segments already emitted are unaffected; only subsequent word updates
// apply the new policy (spec section 4.H).
func (a *Agent) UpdateFocus(update FocusUpdate) {
	a.segs.SetFocus(
		segmentation.FocusMode(update.Mode),
		sliceToSet(update.FocusSpeakers),
		sliceToSet(update.IgnoreSpeakers),
	)
}

// Finalize closes the upstream audio stream and, when endOfTurn is true,
// force-closes the current turn regardless of policy (the External
// policy's only closing trigger, and the explicit override for every
// other policy).
func (a *Agent) Finalize(ctx context.Context, endOfTurn bool) error {
	if err := a.sess.Finalize(ctx); err != nil {
		return err
	}
	for _, ev := range a.segs.Finalize() {
		a.publishSegment(ev)
	}
	a.turns.Finalize(endOfTurn)
	return nil
}

// Disconnect performs a hard close of the session, persists a
// resumability snapshot if a state store was configured, and stops
// delivering further events.
func (a *Agent) Disconnect() error {
	if a.idleCancel != nil {
		a.idleCancel()
	}
	a.persistSnapshot(context.Background())
	a.turns.Close()
	return a.sess.Close()
}

// On registers a listener for a specific event type.
func (a *Agent) On(eventType events.EventType, listener events.Listener) events.UnsubscribeFunc {
	return a.bus.Subscribe(eventType, listener)
}

// Once registers a listener that fires at most once.
func (a *Agent) Once(eventType events.EventType, listener events.Listener) events.UnsubscribeFunc {
	return a.bus.Once(eventType, listener)
}

// Off removes a listener previously registered via On or Once.
func (a *Agent) Off(unsubscribe events.UnsubscribeFunc) {
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (a *Agent) recordTurnClosed() {
	atomic.AddInt64(&a.turnsClosed, 1)
}

func (a *Agent) turnCount() int {
	return int(atomic.LoadInt64(&a.turnsClosed))
}

// handlers wires the Session's decoded-frame callbacks into the transcript
// assembler, segmentation engine, and turn detector — the chain spec
// section 3 describes as "facade owns E, F, G; Session notifies by
// callback, never by direct reference".
func (a *Agent) handlers() session.Handlers {
	return session.Handlers{
		OnPartialTranscript: a.onPartialTranscript,
		OnTranscript:        a.onTranscript,
		OnEndOfUtterance:    a.onEndOfUtterance,
		OnSpeakersResult:    a.onSpeakersResult,
	}
}

func (a *Agent) onPartialTranscript(msg *codec.AddPartialTranscript) {
	update := a.buffer.IngestPartial(msg)
	a.publishWordsUpdated(update)
	for _, ev := range a.segs.Update(nil, update.RevisedPartials) {
		a.publishSegment(ev)
	}
	a.notifyWords(update.RevisedPartials)
}

func (a *Agent) onTranscript(msg *codec.AddTranscript) {
	update := a.buffer.Commit(msg)
	a.publishWordsUpdated(update)
	for _, ev := range a.segs.Update(update.NewFinals, update.RevisedPartials) {
		a.publishSegment(ev)
	}
	a.notifyWords(update.NewFinals)
}

func (a *Agent) onEndOfUtterance() {
	a.turns.NotifyEndOfUtterance(context.Background())
}

func (a *Agent) onSpeakersResult(result map[string][]string) {
	a.speakerReg.ApplySpeakersResult(result)
}

func (a *Agent) notifyWords(words []events.WordRef) {
	for _, w := range words {
		a.turns.NotifyWord(w.SpeakerID)
	}
}

func (a *Agent) publishWordsUpdated(update events.WordsUpdatedData) {
	a.bus.Publish(&events.Event{Type: events.EventWordsUpdated, Timestamp: time.Now(), Data: update})
}

// publishSegment resolves the segment's speaker id through the registry at
// emission time, not retroactively: a SpeakersResult learned after a
// segment closed never rewrites that segment's already-delivered label
// (spec section 4.I's explicit non-retroactive choice).
func (a *Agent) publishSegment(ev segmentation.Event) {
	data := ev.Data
	data.SpeakerID = a.speakerReg.Resolve(data.SpeakerID)
	a.bus.Publish(&events.Event{Type: ev.Type, Timestamp: time.Now(), Data: data})
}

// annotationLookup adapts the segmentation engine's closed-segment
// snapshots into the turn detector's narrow AnnotationLookup contract, so
// G never holds a reference to F itself (spec section 3).
func (a *Agent) annotationLookup(speakerID string) (turndetector.TrailingAnnotations, bool) {
	data, ok := a.segs.LastClosed(speakerID)
	if !ok {
		return turndetector.TrailingAnnotations{}, false
	}

	var ann turndetector.TrailingAnnotations
	for _, label := range data.Annotations {
		switch label {
		case segmentation.AnnotationHasDisfluency:
			ann.HasDisfluency = true
		case segmentation.AnnotationEndsWithPunctuation:
			ann.EndsWithPunctuation = true
		case segmentation.AnnotationEndsWithEOS:
			ann.EndsWithEOS = true
		}
	}
	return ann, true
}
