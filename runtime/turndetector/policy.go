package turndetector

import "time"

// Policy selects one of the four interchangeable turn-end policies of
// spec section 4.G. Exactly one is active per Detector.
type Policy string

// Recognized policies.
const (
	PolicyFixed    Policy = "fixed"
	PolicyAdaptive Policy = "adaptive"
	PolicySmart    Policy = "smart"
	PolicyExternal Policy = "external"
)

// Default tuning constants (spec section 4.G).
const (
	DefaultMinQuiescence          = 50 * time.Millisecond
	DefaultEndOfUtteranceMaxDelay = 10 * time.Second
	DefaultAdaptiveStep           = 150 * time.Millisecond
	DefaultSmartTurnThreshold     = 0.5
)

// TrailingAnnotations is the slice of a segment's derived annotations (per
// spec section 4.F.5) the Adaptive policy needs to compute its prediction
// window. The turn detector holds no reference to segmentation.Engine
// (spec section 3, "weak, non-owning reference... by notification"); the
// facade supplies these via a lookup function at construction.
type TrailingAnnotations struct {
	HasDisfluency       bool
	EndsWithPunctuation bool
	EndsWithEOS         bool
}

// AnnotationLookup returns the trailing annotations of the most recently
// closed segment for speakerID, if any.
type AnnotationLookup func(speakerID string) (TrailingAnnotations, bool)
