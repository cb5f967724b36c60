// Package segmentation groups the transcript assembler's word stream into
// speaker segments, applies the focus/ignore visibility policy, and derives
// the per-segment annotation set consumed by the turn detector and the
// facade's listeners.
package segmentation

import (
	"strings"
	"sync"

	"github.com/speechmatics/speechmatics-go-sdk/runtime/events"
)

// FocusMode selects how non-focused speakers are treated.
type FocusMode string

const (
	// FocusRetain emits segments for every speaker, marking only focused
	// speakers IsActive.
	FocusRetain FocusMode = "retain"
	// FocusIgnore suppresses emission (partial and final) for ignored speakers.
	FocusIgnore FocusMode = "ignore"
)

// defaultFastSpeakerWPS is the words-per-second threshold above which a
// segment is annotated fast_speaker.
const defaultFastSpeakerWPS = 3.5

var defaultDisfluencies = map[string]struct{}{
	"um": {}, "uh": {}, "er": {}, "erm": {}, "mm": {},
}

// Config configures the segmentation engine's grouping and policy rules.
type Config struct {
	// MaxIntraGap is the largest inter-word gap tolerated within one
	// segment before a speaker change forces a new segment to open.
	// Defaults to 0.8s (the spec's default max_delay) when zero.
	MaxIntraGap float64

	Mode           FocusMode
	FocusSpeakers  map[string]bool
	IgnoreSpeakers map[string]bool

	// FastSpeakerWPS overrides defaultFastSpeakerWPS when non-zero.
	FastSpeakerWPS float64

	// Disfluencies overrides defaultDisfluencies when non-nil.
	Disfluencies map[string]struct{}
}

func (c *Config) maxIntraGap() float64 {
	if c.MaxIntraGap > 0 {
		return c.MaxIntraGap
	}
	return 0.8
}

func (c *Config) fastSpeakerWPS() float64 {
	if c.FastSpeakerWPS > 0 {
		return c.FastSpeakerWPS
	}
	return defaultFastSpeakerWPS
}

func (c *Config) disfluencies() map[string]struct{} {
	if c.Disfluencies != nil {
		return c.Disfluencies
	}
	return defaultDisfluencies
}

func (c *Config) visible(speakerID string) bool {
	if c.Mode == FocusIgnore && c.IgnoreSpeakers[speakerID] {
		return false
	}
	return true
}

func (c *Config) active(speakerID string) bool {
	if len(c.FocusSpeakers) == 0 {
		return true
	}
	return c.FocusSpeakers[speakerID]
}

// segment is the engine's mutable per-speaker working state.
type segment struct {
	speakerID string
	words     []events.WordRef
}

func (s *segment) text() string {
	var b strings.Builder
	for i, w := range s.words {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(w.Text)
		b.WriteString(w.Punctuation)
	}
	return b.String()
}

func (s *segment) startTime() float64 {
	if len(s.words) == 0 {
		return 0
	}
	return s.words[0].StartTime
}

func (s *segment) endTime() float64 {
	if len(s.words) == 0 {
		return 0
	}
	return s.words[len(s.words)-1].EndTime
}

// Event pairs a segmentation event type with its payload, preserving the
// emission order the engine computed.
type Event struct {
	Type events.EventType
	Data events.SegmentData
}

// Engine groups words into segments per speaker and tracks the tail
// partial text for emission.
type Engine struct {
	// mu guards all fields below. The voiceagent facade drives the engine
	// from two independent goroutines (the session's dispatch loop, on
	// every WordsUpdated, and a periodic idle-close timer), so the engine
	// must be safe for concurrent use, unlike the turn detector's
	// single-caller NotifyWord/NotifyEndOfUtterance which only ever race
	// against their own timers.
	mu sync.Mutex

	cfg Config

	open           map[string]*segment
	lastPartial    map[string]string
	closedSnap     map[string]events.SegmentData // most recent closed segment per speaker, for the turn detector
	currentSpeaker string                        // speaker of the most recently appended final word, the engine's single open "tail"
}

// NewEngine creates a segmentation engine with the given config.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:         cfg,
		open:        make(map[string]*segment),
		lastPartial: make(map[string]string),
		closedSnap:  make(map[string]events.SegmentData),
	}
}

// Update folds a transcript update (new finals plus the current partial
// tail) into open segments and returns the ordered emission list: zero or
// more AddSegment events from finals, followed by zero or more
// AddPartialSegment events for tails whose text changed.
func (e *Engine) Update(newFinals, partials []events.WordRef) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Event

	for i, w := range newFinals {
		if closeEv, did := e.appendFinal(w, priorPunctuation(newFinals, i)); did {
			out = append(out, closeEv)
		}
	}

	out = append(out, e.applyPartials(partials)...)

	return out
}

// priorPunctuation returns the punctuation of the word immediately before
// index i in the batch, used to detect an in-batch sentence boundary.
func priorPunctuation(words []events.WordRef, i int) string {
	if i == 0 {
		return ""
	}
	return words[i-1].Punctuation
}

// appendFinal appends w to its speaker's open segment, closing the prior
// segment first on a speaker change (spec section 4.F rule 1: "on speaker
// change ... a new segment opens"), an inter-word gap beyond MaxIntraGap,
// or a sentence boundary in the immediately preceding word. Only one
// speaker's segment is ever open at a time: e.currentSpeaker tracks which
// one, so a word from a different speaker closes it immediately rather
// than waiting for that speaker's own next word. Returns the AddSegment
// event if a close occurred.
func (e *Engine) appendFinal(w events.WordRef, precedingPunctuation string) (Event, bool) {
	eos := isSentenceEnd(precedingPunctuation)

	var closeEv Event
	var closed bool

	if e.currentSpeaker != "" && e.currentSpeaker != w.SpeakerID {
		closeEv, closed = e.closeSegment(e.currentSpeaker, eos)
	} else if seg, exists := e.open[w.SpeakerID]; exists {
		gap := w.StartTime - seg.endTime()
		if gap > e.cfg.maxIntraGap() || eos {
			closeEv, closed = e.closeSegment(w.SpeakerID, eos)
		}
	}

	seg, exists := e.open[w.SpeakerID]
	if !exists {
		seg = &segment{speakerID: w.SpeakerID}
		e.open[w.SpeakerID] = seg
	}
	seg.words = append(seg.words, w)
	e.currentSpeaker = w.SpeakerID

	return closeEv, closed
}

func (e *Engine) closeSegment(speakerID string, eos bool) (Event, bool) {
	seg, exists := e.open[speakerID]
	if !exists || len(seg.words) == 0 {
		return Event{}, false
	}
	delete(e.open, speakerID)
	delete(e.lastPartial, speakerID)
	if e.currentSpeaker == speakerID {
		e.currentSpeaker = ""
	}

	data := e.snapshot(seg, eos)
	e.closedSnap[speakerID] = data

	if !e.cfg.visible(speakerID) {
		return Event{}, false
	}
	return Event{Type: events.EventAddSegment, Data: data}, true
}

// applyPartials overlays the current partial tail on top of each
// speaker's open segment (without committing it) and emits
// AddPartialSegment for every tail whose rendered text changed.
func (e *Engine) applyPartials(partials []events.WordRef) []Event {
	bySpeaker := make(map[string][]events.WordRef)
	for _, w := range partials {
		bySpeaker[w.SpeakerID] = append(bySpeaker[w.SpeakerID], w)
	}

	var out []Event
	for speakerID, words := range bySpeaker {
		if !e.cfg.visible(speakerID) {
			continue
		}

		seg, exists := e.open[speakerID]
		if !exists {
			seg = &segment{speakerID: speakerID}
		}

		combined := &segment{speakerID: speakerID, words: append(append([]events.WordRef{}, seg.words...), words...)}
		text := combined.text()

		if e.lastPartial[speakerID] == text {
			continue
		}
		e.lastPartial[speakerID] = text

		out = append(out, Event{Type: events.EventAddPartialSegment, Data: e.snapshot(combined, false)})
	}
	return out
}

// CloseIdle force-closes any open segment whose tail has had no word
// arrive within maxIntraGap of now (session-relative seconds).
func (e *Engine) CloseIdle(now float64) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Event
	for speakerID, seg := range e.open {
		if len(seg.words) == 0 {
			continue
		}
		if now-seg.endTime() < e.cfg.maxIntraGap() {
			continue
		}
		if ev, closed := e.closeSegment(speakerID, false); closed {
			out = append(out, ev)
		}
	}
	return out
}

// Finalize force-closes every open segment, used when the session drains.
func (e *Engine) Finalize() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Event
	for speakerID := range e.open {
		if ev, closed := e.closeSegment(speakerID, false); closed {
			out = append(out, ev)
		}
	}
	return out
}

// SetFocus replaces the engine's speaker focus policy (mode plus the
// focus/ignore sets), used by the facade's update_focus operation. It
// never touches segments already emitted (spec section 3, speaker
// visibility changes apply going forward only).
func (e *Engine) SetFocus(mode FocusMode, focusSpeakers, ignoreSpeakers map[string]bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg.Mode = mode
	e.cfg.FocusSpeakers = focusSpeakers
	e.cfg.IgnoreSpeakers = ignoreSpeakers
}

// LastClosed returns the most recently closed segment snapshot for a
// speaker, used by the turn detector's Adaptive policy to inspect
// trailing annotations without owning segmentation state.
func (e *Engine) LastClosed(speakerID string) (events.SegmentData, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, ok := e.closedSnap[speakerID]
	return data, ok
}

func isSentenceEnd(punct string) bool {
	return strings.ContainsAny(punct, ".?!")
}
