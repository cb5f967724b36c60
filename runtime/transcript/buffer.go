// Package transcript assembles server AddPartialTranscript/AddTranscript
// batches into an ordered word buffer, reconciling partial revisions
// against committed finals and emitting a normalized update for the
// segmentation engine.
package transcript

import (
	"sync"

	"github.com/speechmatics/speechmatics-go-sdk/runtime/codec"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/events"
)

// wordKey identifies a word's position in the stream, independent of
// revision: (start_time, end_time, channel).
type wordKey struct {
	startTime float64
	endTime   float64
	channel   string
}

func keyOf(w events.WordRef, channel string) wordKey {
	return wordKey{startTime: w.StartTime, endTime: w.EndTime, channel: channel}
}

// Buffer is the ordered word buffer owned exclusively by the transcript
// assembler. The segmentation engine reads it only through Update's
// returned snapshot, never by reaching into the buffer directly.
type Buffer struct {
	mu sync.Mutex

	finals    []events.WordRef
	finalKeys map[wordKey]int

	partials     []events.WordRef
	partialKeys  map[wordKey]struct{}

	latestTime float64
}

// NewBuffer creates an empty word buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		finalKeys:   make(map[wordKey]int),
		partialKeys: make(map[wordKey]struct{}),
	}
}

// IngestPartial reconciles a new partial transcript batch. A partial batch
// fully replaces the previously held partial tail that shares its head
// word; words already committed as finals are excluded.
func (b *Buffer) IngestPartial(msg *codec.AddPartialTranscript) events.WordsUpdatedData {
	b.mu.Lock()
	defer b.mu.Unlock()

	words := convertResults(msg.Results, false)

	filtered := words[:0:0]
	for _, w := range words {
		if _, isFinal := b.finalKeys[keyOf(w, "")]; isFinal {
			continue
		}
		filtered = append(filtered, w)
	}

	b.partials = filtered
	b.partialKeys = make(map[wordKey]struct{}, len(filtered))
	for _, w := range filtered {
		b.partialKeys[keyOf(w, "")] = struct{}{}
	}

	b.bumpLatest(filtered)

	return events.WordsUpdatedData{
		RevisedPartials: cloneWords(filtered),
		LatestTime:      b.latestTime,
	}
}

// Commit reconciles a final transcript batch: words matching a held
// partial are promoted and the partial entry removed; words with no
// partial counterpart (out-of-order final) are written directly. A final
// whose key already exists in the committed buffer is idempotent and
// produces no new entry.
func (b *Buffer) Commit(msg *codec.AddTranscript) events.WordsUpdatedData {
	b.mu.Lock()
	defer b.mu.Unlock()

	words := convertResults(msg.Results, true)

	var newFinals []events.WordRef
	for _, w := range words {
		key := keyOf(w, "")
		if _, exists := b.finalKeys[key]; exists {
			continue
		}

		b.finals = append(b.finals, w)
		b.finalKeys[key] = len(b.finals) - 1
		newFinals = append(newFinals, w)

		delete(b.partialKeys, key)
	}

	if len(newFinals) > 0 {
		b.partials = removeKeys(b.partials, newFinals)
	}

	b.bumpLatest(words)

	return events.WordsUpdatedData{
		NewFinals:       newFinals,
		RevisedPartials: cloneWords(b.partials),
		LatestTime:      b.latestTime,
	}
}

// Finals returns a copy of every word committed so far, in arrival order.
func (b *Buffer) Finals() []events.WordRef {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneWords(b.finals)
}

// Partials returns a copy of the currently held (not yet committed) tail.
func (b *Buffer) Partials() []events.WordRef {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneWords(b.partials)
}

func (b *Buffer) bumpLatest(words []events.WordRef) {
	for _, w := range words {
		if w.EndTime > b.latestTime {
			b.latestTime = w.EndTime
		}
	}
}

func removeKeys(words []events.WordRef, remove []events.WordRef) []events.WordRef {
	if len(remove) == 0 {
		return words
	}
	drop := make(map[wordKey]struct{}, len(remove))
	for _, w := range remove {
		drop[keyOf(w, "")] = struct{}{}
	}
	kept := words[:0:0]
	for _, w := range words {
		if _, found := drop[keyOf(w, "")]; found {
			continue
		}
		kept = append(kept, w)
	}
	return kept
}

func cloneWords(words []events.WordRef) []events.WordRef {
	if len(words) == 0 {
		return nil
	}
	out := make([]events.WordRef, len(words))
	copy(out, words)
	return out
}
