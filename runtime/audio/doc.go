// Package audio provides the Smart Turn policy's raw-PCM support: a
// fixed-duration ring buffer of recently sent audio and a pluggable
// classifier capability that scores whether the buffered audio ends a
// conversational turn.
//
// Neither type performs speech-to-text; the RT Session is the only
// component that talks to the remote transcription service. The ring
// buffer exists so the turn detector (component G) can hand a short
// trailing audio window to an external classifier without the turn
// detector owning transport or codec concerns.
package audio
