// Package speakers maps the engine's opaque per-session speaker
// identifiers ("S1", "S2", ...) to user-visible labels (component I).
// Enrolled identities are pre-loaded from configuration or the state
// store; the server's SpeakersResult frame is reconciled against them as
// it arrives, mid- or end-of-session.
package speakers

import (
	"context"
	"regexp"
	"sync"

	"github.com/speechmatics/speechmatics-go-sdk/pkg/errors"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/statestore"
)

// reservedEnginePattern matches the engine's own speaker id shape; per
// spec section 3 it must never be used as an enrolled label.
var reservedEnginePattern = regexp.MustCompile(`^S\d+$`)

// ignoredLabelPattern matches labels the segmentation engine silently
// ignores (spec section 3, "labels matching __...__").
var ignoredLabelPattern = regexp.MustCompile(`^__.*__$`)

// IsReservedLabel reports whether label collides with the engine's
// reserved S<N> speaker-id pattern.
func IsReservedLabel(label string) bool {
	return reservedEnginePattern.MatchString(label)
}

// IsIgnoredLabel reports whether label matches the __..__ pattern the
// segmentation engine silently ignores.
func IsIgnoredLabel(label string) bool {
	return ignoredLabelPattern.MatchString(label)
}

// SpeakerIdentifier is one pre-enrolled or learned speaker identity
// (spec section 3).
type SpeakerIdentifier struct {
	Label       string
	Identifiers []string
}

// Registry holds pre-enrolled speakers and the identifier->label mapping
// learned from SpeakersResult frames. Mutations are advisory: they affect
// how speaker ids are resolved going forward but never rewrite the
// speaker_id field of a segment already emitted (spec section 4.I).
type Registry struct {
	mu sync.RWMutex

	enrolled     map[string]*SpeakerIdentifier // label -> record
	byIdentifier map[string]string             // server identifier -> label
	learned      map[string]string             // engine speaker id ("S1") -> label
}

// NewRegistry builds a Registry from a set of pre-enrolled speakers,
// validating that no label collides with the engine's reserved pattern.
func NewRegistry(known []SpeakerIdentifier) (*Registry, error) {
	r := &Registry{
		enrolled:     make(map[string]*SpeakerIdentifier, len(known)),
		byIdentifier: make(map[string]string),
		learned:      make(map[string]string),
	}
	for _, k := range known {
		if err := r.enroll(k); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Enroll adds (or replaces) a pre-enrolled speaker identity after
// construction, e.g. from a facade control call.
func (r *Registry) Enroll(id SpeakerIdentifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enroll(id)
}

func (r *Registry) enroll(id SpeakerIdentifier) error {
	if id.Label == "" {
		return errors.Config("speakers", "enroll", nil).WithDetails(map[string]any{"reason": "empty label"})
	}
	if IsReservedLabel(id.Label) {
		return errors.Config("speakers", "enroll", nil).WithDetails(map[string]any{
			"reason": "label collides with engine reserved pattern",
			"label":  id.Label,
		})
	}

	rec := &SpeakerIdentifier{Label: id.Label, Identifiers: append([]string(nil), id.Identifiers...)}
	r.enrolled[id.Label] = rec
	for _, ident := range rec.Identifiers {
		r.byIdentifier[ident] = rec.Label
	}
	return nil
}

// ApplySpeakersResult reconciles a server SpeakersResult frame
// (speaker_id -> identifiers) against the enrolled identities, updating
// the engine-speaker-id -> label mapping for every match. It returns the
// engine speaker ids that were newly labeled by this call.
func (r *Registry) ApplySpeakersResult(speakers map[string][]string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var newlyLabeled []string
	for speakerID, identifiers := range speakers {
		for _, ident := range identifiers {
			if label, ok := r.byIdentifier[ident]; ok {
				if r.learned[speakerID] != label {
					r.learned[speakerID] = label
					newlyLabeled = append(newlyLabeled, speakerID)
				}
				break
			}
		}
	}
	return newlyLabeled
}

// Resolve returns the user-visible label for an engine speaker id if one
// has been learned, otherwise speakerID unchanged.
func (r *Registry) Resolve(speakerID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if label, ok := r.learned[speakerID]; ok {
		return label
	}
	return speakerID
}

// KnownLabels returns every pre-enrolled label, for presenting to the
// server at StartRecognition.
func (r *Registry) KnownLabels() []SpeakerIdentifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SpeakerIdentifier, 0, len(r.enrolled))
	for _, rec := range r.enrolled {
		out = append(out, SpeakerIdentifier{Label: rec.Label, Identifiers: append([]string(nil), rec.Identifiers...)})
	}
	return out
}

// Snapshot renders the registry's enrolled speakers into the
// statestore.SessionSnapshot.KnownSpeakers shape (label -> primary
// identifier), for cross-session persistence.
func (r *Registry) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.enrolled))
	for label, rec := range r.enrolled {
		if len(rec.Identifiers) > 0 {
			out[label] = rec.Identifiers[0]
		}
	}
	return out
}

// LoadFromStore loads a prior session's known-speaker snapshot and enrolls
// each entry. Missing snapshots (statestore.ErrNotFound) are not an error.
func LoadFromStore(ctx context.Context, store statestore.Store, sessionID string) (*Registry, error) {
	snap, err := store.Load(ctx, sessionID)
	if err != nil {
		if err == statestore.ErrNotFound {
			return NewRegistry(nil)
		}
		return nil, err
	}

	known := make([]SpeakerIdentifier, 0, len(snap.KnownSpeakers))
	for label, ident := range snap.KnownSpeakers {
		known = append(known, SpeakerIdentifier{Label: label, Identifiers: []string{ident}})
	}
	return NewRegistry(known)
}
