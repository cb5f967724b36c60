package turndetector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speechmatics/speechmatics-go-sdk/runtime/audio"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/events"
)

// collector gathers EndOfTurn and EndOfTurnPrediction payloads for assertion.
type collector struct {
	mu        sync.Mutex
	turns     []events.EndOfTurnData
	predicted []events.EndOfTurnPredictionData
}

func (c *collector) onEvent(e *events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch d := e.Data.(type) {
	case events.EndOfTurnData:
		c.turns = append(c.turns, d)
	case events.EndOfTurnPredictionData:
		c.predicted = append(c.predicted, d)
	}
}

func (c *collector) turnIDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int, len(c.turns))
	for i, t := range c.turns {
		ids[i] = t.TurnID
	}
	return ids
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

func newTestBus(c *collector) *events.EventBus {
	bus := events.NewEventBus()
	bus.SubscribeAll(c.onEvent)
	return bus
}

func TestDetector_Fixed_EmitsOnceAndClosesTurn(t *testing.T) {
	c := &collector{}
	bus := newTestBus(c)
	defer bus.Close()

	d := New(Config{
		Policy:                 PolicyFixed,
		SilenceTrigger:         0.2,
		MaxDelay:               1.0,
		MinQuiescence:          5 * time.Millisecond,
		EndOfUtteranceMaxDelay: time.Second,
	}, bus)
	defer d.Close()
	d.Start()

	d.NotifyWord("S1")
	d.NotifyEndOfUtterance(context.Background())

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []int{0}, c.turnIDs())
}

// TestDetector_TurnUniqueness exercises spec property 3: across a session
// the multiset of EndOfTurn.turn_id values is {0,...,K} with no duplicates
// or gaps.
func TestDetector_TurnUniqueness(t *testing.T) {
	c := &collector{}
	bus := newTestBus(c)
	defer bus.Close()

	d := New(Config{
		Policy:                 PolicyFixed,
		SilenceTrigger:         0.05,
		MaxDelay:               0.2,
		MinQuiescence:          5 * time.Millisecond,
		EndOfUtteranceMaxDelay: time.Second,
	}, bus)
	defer d.Close()
	d.Start()

	const turns = 5
	for i := 0; i < turns; i++ {
		d.NotifyWord("S1")
		d.NotifyEndOfUtterance(context.Background())
		require.Eventually(t, func() bool { return c.count() == i+1 }, time.Second, time.Millisecond)
	}

	ids := c.turnIDs()
	require.Len(t, ids, turns)
	for i, id := range ids {
		assert.Equal(t, i, id)
	}
}

// TestDetector_AdaptiveWindow exercises spec scenario S-D and property 6:
// the chosen window is strictly within [silence_trigger, max_delay] when a
// disfluency and no ends_with_eos annotation are present, and exactly one
// EndOfTurn with turn_id 0 fires once the window elapses with no new word.
func TestDetector_AdaptiveWindow(t *testing.T) {
	c := &collector{}
	bus := newTestBus(c)
	defer bus.Close()

	lookup := func(string) (TrailingAnnotations, bool) {
		return TrailingAnnotations{HasDisfluency: true, EndsWithPunctuation: false, EndsWithEOS: false}, true
	}

	d := New(Config{
		Policy:                 PolicyAdaptive,
		SilenceTrigger:         0.2,
		MaxDelay:               1.0,
		AdaptiveStep:           150 * time.Millisecond,
		MinQuiescence:          5 * time.Millisecond,
		EndOfUtteranceMaxDelay: 5 * time.Second,
		Lookup:                 lookup,
	}, bus)
	defer d.Close()
	d.Start()

	d.NotifyWord("S1")
	d.NotifyEndOfUtterance(context.Background())

	require.Eventually(t, func() bool { return len(c.predicted) == 1 }, time.Second, time.Millisecond)
	c.mu.Lock()
	window := c.predicted[0].WindowSeconds
	c.mu.Unlock()
	assert.Greater(t, window, 0.2)
	assert.LessOrEqual(t, window, 1.0)

	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, []int{0}, c.turnIDs())
}

// TestDetector_AdaptiveWindow_WordCancelsPrediction verifies a new word
// arriving within the prediction window cancels it (spec section 4.G).
func TestDetector_AdaptiveWindow_WordCancelsPrediction(t *testing.T) {
	c := &collector{}
	bus := newTestBus(c)
	defer bus.Close()

	d := New(Config{
		Policy:                 PolicyAdaptive,
		SilenceTrigger:         0.05,
		MaxDelay:               1.0,
		MinQuiescence:          5 * time.Millisecond,
		EndOfUtteranceMaxDelay: 5 * time.Second,
	}, bus)
	defer d.Close()
	d.Start()

	d.NotifyWord("S1")
	d.NotifyEndOfUtterance(context.Background())
	time.Sleep(10 * time.Millisecond)
	d.NotifyWord("S1")

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, c.count(), "a fresh word must cancel the pending prediction window")
}

// TestDetector_External_IgnoresEndOfUtterance exercises spec scenario S-E:
// under policy external, repeated EndOfUtterance notifications never close
// a turn; only an explicit Finalize(true) does, exactly once.
func TestDetector_External_IgnoresEndOfUtterance(t *testing.T) {
	c := &collector{}
	bus := newTestBus(c)
	defer bus.Close()

	d := New(Config{
		Policy:                 PolicyExternal,
		SilenceTrigger:         0.2,
		MaxDelay:               1.0,
		MinQuiescence:          5 * time.Millisecond,
		EndOfUtteranceMaxDelay: 5 * time.Second,
	}, bus)
	defer d.Close()
	d.Start()

	d.NotifyWord("S1")
	for i := 0; i < 3; i++ {
		d.NotifyEndOfUtterance(context.Background())
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, c.count())

	d.Finalize(true)
	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []int{0}, c.turnIDs())

	d.Finalize(true)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, c.count(), "a second finalize without an intervening open turn must not emit again")
}

// TestDetector_HardCeiling_ForceClosesRegardlessOfPolicy verifies the
// end_of_utterance_max_delay hard ceiling closes an open turn even under
// the external policy, which otherwise never closes on its own.
func TestDetector_HardCeiling_ForceClosesRegardlessOfPolicy(t *testing.T) {
	c := &collector{}
	bus := newTestBus(c)
	defer bus.Close()

	d := New(Config{
		Policy:                 PolicyExternal,
		SilenceTrigger:         0.2,
		MaxDelay:               1.0,
		MinQuiescence:          5 * time.Millisecond,
		EndOfUtteranceMaxDelay: 30 * time.Millisecond,
	}, bus)
	defer d.Close()
	d.Start()

	d.NotifyWord("S1")
	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, time.Millisecond)
}

// TestDetector_Smart_NilClassifierFallsBackToAdaptive verifies the
// capability-absent downgrade path.
func TestDetector_Smart_NilClassifierFallsBackToAdaptive(t *testing.T) {
	c := &collector{}
	bus := newTestBus(c)
	defer bus.Close()

	d := New(Config{
		Policy:                 PolicySmart,
		SilenceTrigger:         0.05,
		MaxDelay:               0.2,
		MinQuiescence:          5 * time.Millisecond,
		EndOfUtteranceMaxDelay: time.Second,
	}, bus)
	defer d.Close()

	assert.True(t, d.FellBack())
	assert.Equal(t, PolicyAdaptive, d.EffectivePolicy())
}

// fakeClassifier always returns a fixed probability.
type fakeClassifier struct {
	prob float64
}

func (f *fakeClassifier) Load(ctx context.Context) error { return nil }
func (f *fakeClassifier) Infer(ctx context.Context, pcm []byte, sampleRate int) (float64, error) {
	return f.prob, nil
}

func TestDetector_Smart_ClassifierAboveThresholdClosesTurn(t *testing.T) {
	c := &collector{}
	bus := newTestBus(c)
	defer bus.Close()

	d := New(Config{
		Policy:                 PolicySmart,
		SilenceTrigger:         0.05,
		MaxDelay:               0.2,
		MinQuiescence:          5 * time.Millisecond,
		EndOfUtteranceMaxDelay: time.Second,
		Classifier:             &fakeClassifier{prob: 0.9},
		SmartThreshold:         0.5,
	}, bus)
	defer d.Close()
	d.Start()

	require.False(t, d.FellBack())
	require.Equal(t, PolicySmart, d.EffectivePolicy())

	d.PushAudio(make([]byte, 320))
	d.NotifyWord("S1")
	d.NotifyEndOfUtterance(context.Background())

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, time.Millisecond)
}

func TestDetector_Smart_ClassifierBelowThresholdKeepsTurnOpen(t *testing.T) {
	c := &collector{}
	bus := newTestBus(c)
	defer bus.Close()

	d := New(Config{
		Policy:                 PolicySmart,
		SilenceTrigger:         0.05,
		MaxDelay:               0.2,
		MinQuiescence:          5 * time.Millisecond,
		EndOfUtteranceMaxDelay: 5 * time.Second,
		Classifier:             &fakeClassifier{prob: 0.1},
		SmartThreshold:         0.5,
	}, bus)
	defer d.Close()
	d.Start()

	d.NotifyWord("S1")
	d.NotifyEndOfUtterance(context.Background())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, c.count())
}

var _ audio.SmartTurnClassifier = (*fakeClassifier)(nil)
