package segmentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speechmatics/speechmatics-go-sdk/runtime/events"
)

func wr(text string, start, end float64, speaker string, final bool) events.WordRef {
	return events.WordRef{Text: text, StartTime: start, EndTime: end, SpeakerID: speaker, IsFinal: final}
}

func TestEngine_PartialEmitsOnTextChange(t *testing.T) {
	e := NewEngine(Config{})

	out := e.Update(nil, []events.WordRef{wr("hello", 0, 0.3, "S1", false)})
	require.Len(t, out, 1)
	assert.Equal(t, events.EventAddPartialSegment, out[0].Type)
	assert.Equal(t, "hello", out[0].Data.Text)

	out = e.Update(nil, []events.WordRef{wr("hello", 0, 0.3, "S1", false), wr("there", 0.3, 0.5, "S1", false)})
	require.Len(t, out, 1)
	assert.Equal(t, "hello there", out[0].Data.Text)
}

func TestEngine_PartialNoEmitWhenTextUnchanged(t *testing.T) {
	e := NewEngine(Config{})

	e.Update(nil, []events.WordRef{wr("hello", 0, 0.3, "S1", false)})
	out := e.Update(nil, []events.WordRef{wr("hello", 0, 0.3, "S1", false)})
	assert.Empty(t, out)
}

func TestEngine_FinalAppendsToOpenSegment(t *testing.T) {
	e := NewEngine(Config{})

	out := e.Update([]events.WordRef{wr("hello", 0, 0.3, "S1", true)}, nil)
	assert.Empty(t, out) // no close yet, nothing emitted until segment closes or partial changes

	out = e.Update(nil, []events.WordRef{})
	assert.Empty(t, out)
}

func TestEngine_SpeakerChangeClosesSegment(t *testing.T) {
	e := NewEngine(Config{})

	e.Update([]events.WordRef{wr("hello", 0, 0.3, "S1", true)}, nil)
	out := e.Update([]events.WordRef{wr("hi", 0.3, 0.6, "S2", true)}, nil)

	require.Len(t, out, 1)
	assert.Equal(t, events.EventAddSegment, out[0].Type)
	assert.Equal(t, "S1", out[0].Data.SpeakerID)
	assert.Equal(t, "hello", out[0].Data.Text)
}

func TestEngine_GapClosesSegment(t *testing.T) {
	e := NewEngine(Config{MaxIntraGap: 0.5})

	e.Update([]events.WordRef{wr("hello", 0, 0.3, "S1", true)}, nil)
	out := e.Update([]events.WordRef{wr("later", 2.0, 2.3, "S1", true)}, nil)

	require.Len(t, out, 1)
	assert.Equal(t, events.EventAddSegment, out[0].Type)
	assert.Equal(t, "hello", out[0].Data.Text)
}

func TestEngine_SentenceBoundaryClosesSegment(t *testing.T) {
	e := NewEngine(Config{})

	first := wr("done", 0, 0.3, "S1", true)
	first.Punctuation = "."
	out := e.Update([]events.WordRef{first, wr("next", 0.3, 0.5, "S1", true)}, nil)

	require.Len(t, out, 1)
	assert.Equal(t, events.EventAddSegment, out[0].Type)
	assert.Contains(t, out[0].Data.Annotations, AnnotationEndsWithEOS)
}

func TestEngine_FocusIgnoreSuppressesSpeaker(t *testing.T) {
	e := NewEngine(Config{Mode: FocusIgnore, IgnoreSpeakers: map[string]bool{"S2": true}})

	out := e.Update(nil, []events.WordRef{wr("hi", 0, 0.3, "S2", false)})
	assert.Empty(t, out)

	e.Update([]events.WordRef{wr("ignored", 0, 0.3, "S2", true)}, nil)
	out = e.Update([]events.WordRef{wr("ignored2", 0.3, 0.6, "S2", true), wr("hello", 0.6, 0.9, "S1", true)}, nil)
	assert.Empty(t, out)
}

func TestEngine_FocusRetainMarksActive(t *testing.T) {
	e := NewEngine(Config{Mode: FocusRetain, FocusSpeakers: map[string]bool{"S1": true}})

	out := e.Update(nil, []events.WordRef{wr("hi", 0, 0.3, "S2", false)})
	require.Len(t, out, 1)
	assert.False(t, out[0].Data.IsActive)

	out = e.Update(nil, []events.WordRef{wr("hey", 0, 0.3, "S1", false)})
	require.Len(t, out, 1)
	assert.True(t, out[0].Data.IsActive)
}

func TestEngine_Finalize(t *testing.T) {
	e := NewEngine(Config{})

	e.Update([]events.WordRef{wr("hello", 0, 0.3, "S1", true)}, nil)
	out := e.Finalize()

	require.Len(t, out, 1)
	assert.Equal(t, events.EventAddSegment, out[0].Type)
	assert.Equal(t, "hello", out[0].Data.Text)
}

func TestEngine_CloseIdle(t *testing.T) {
	e := NewEngine(Config{MaxIntraGap: 0.5})

	e.Update([]events.WordRef{wr("hello", 0, 0.3, "S1", true)}, nil)
	out := e.CloseIdle(0.3)
	assert.Empty(t, out)

	out = e.CloseIdle(1.0)
	require.Len(t, out, 1)
	assert.Equal(t, "hello", out[0].Data.Text)
}

func TestDeriveAnnotations_Disfluency(t *testing.T) {
	words := []events.WordRef{wr("um", 0, 0.2, "S1", true), wr("hello", 0.2, 0.5, "S1", true)}
	ann := deriveAnnotations(words, defaultFastSpeakerWPS, defaultDisfluencies, false)
	assert.Contains(t, ann, AnnotationHasDisfluency)
}

func TestDeriveAnnotations_FastSpeaker(t *testing.T) {
	words := []events.WordRef{
		wr("a", 0, 0.05, "S1", true),
		wr("b", 0.05, 0.1, "S1", true),
		wr("c", 0.1, 0.15, "S1", true),
		wr("d", 0.15, 0.2, "S1", true),
	}
	ann := deriveAnnotations(words, 3.5, defaultDisfluencies, false)
	assert.Contains(t, ann, AnnotationFastSpeaker)
}

func TestEngine_LastClosed(t *testing.T) {
	e := NewEngine(Config{})

	e.Update([]events.WordRef{wr("hello", 0, 0.3, "S1", true)}, nil)
	e.Update([]events.WordRef{wr("hi", 0.3, 0.6, "S2", true)}, nil)

	snap, ok := e.LastClosed("S1")
	require.True(t, ok)
	assert.Equal(t, "hello", snap.Text)
}
