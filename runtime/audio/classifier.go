package audio

import "context"

// DefaultSmartTurnSampleRate is used to size a RingBuffer when the caller's
// configured sample rate is not yet known.
const DefaultSmartTurnSampleRate = 16000

// DefaultSmartTurnThreshold is the probability above which the Smart Turn
// policy treats the buffered audio as a completed turn.
const DefaultSmartTurnThreshold = 0.5

// SmartTurnClassifier is the pluggable capability behind the Smart turn
// detection policy (spec section 4.G): "a pluggable capability { load(),
// infer(pcm, sample_rate) -> float }". Implementations live outside this
// module (spec section 9, "trivially stubbed in tests"); this package only
// defines the contract and the ring buffer that feeds it.
type SmartTurnClassifier interface {
	// Load prepares the classifier (e.g. loading model weights). Called at
	// most once per turn detector instance, before the first Infer.
	Load(ctx context.Context) error

	// Infer scores whether pcm (raw PCM16LE mono samples at sampleRate)
	// ends a conversational turn, returning P(turn_complete) in [0, 1].
	Infer(ctx context.Context, pcm []byte, sampleRate int) (float64, error)
}
