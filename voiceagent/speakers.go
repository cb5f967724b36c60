package voiceagent

import (
	"context"

	"github.com/speechmatics/speechmatics-go-sdk/pkg/config"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/speakers"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/statestore"
)

// buildSpeakerRegistry prefers a persisted snapshot (when a state store and
// session id were supplied) over the configured known_speakers list, then
// falls back to building a fresh registry from cfg.KnownSpeakers.
func buildSpeakerRegistry(ctx context.Context, cfg config.Config, o options) (*speakers.Registry, error) {
	if o.store != nil && o.sessionID != "" {
		return speakers.LoadFromStore(ctx, o.store, o.sessionID)
	}

	known := make([]speakers.SpeakerIdentifier, 0, len(cfg.KnownSpeakers))
	for _, ks := range cfg.KnownSpeakers {
		known = append(known, speakers.SpeakerIdentifier{Label: ks.Label, Identifiers: ks.Identifiers})
	}
	return speakers.NewRegistry(known)
}

// persistSnapshot saves the registry's enrolled speakers and turn/audio
// bookkeeping to the configured state store, if any (spec.md's
// supplemented "reconnect-free resumability metadata" feature). A no-op
// when no store was configured.
func (a *Agent) persistSnapshot(ctx context.Context) {
	if a.store == nil || a.sessionID == "" {
		return
	}
	snap := &statestore.SessionSnapshot{
		SessionID:     a.sessionID,
		AudioSeqAcked: a.sess.AudioSeqAcked(),
		TurnCounter:   a.turnCount(),
		KnownSpeakers: a.speakerReg.Snapshot(),
	}
	_ = a.store.Save(ctx, snap)
}
