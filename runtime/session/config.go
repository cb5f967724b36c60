package session

import (
	"time"

	"github.com/speechmatics/speechmatics-go-sdk/runtime/codec"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/transport"
)

// Default tuning constants (spec section 4.J / 6).
const (
	DefaultAudioQueueHighWaterMark = 256
	DefaultPingInterval            = 20 * time.Second
	// DefaultPingTimeout is how long the session tolerates a missing pong
	// before the connection's next read fails and the session transitions
	// to failed (spec section 5, "a missed pong beyond ping_timeout fails
	// the session"; spec section 4.D, "missed pings exceeding
	// ping_timeout" is a fatal -> failed transition).
	DefaultPingTimeout = 60 * time.Second
	DefaultCloseTimeout = 10 * time.Second
	// DefaultAudioFrameRate paces the writer loop's token bucket when the
	// caller pushes send_audio faster than real time (e.g. streaming from
	// a file), smoothing bursts onto the wire. It does not gate
	// correctness — the audio_seq_sent/acked high-water mark does that.
	DefaultAudioFrameRate = 100 // frames/sec, well above any real mic cadence
)

// Config configures a Session.
type Config struct {
	Transport transport.ConnConfig

	AudioFormat         codec.AudioFormat
	TranscriptionConfig codec.TranscriptionConfig

	// AudioQueueHighWaterMark bounds audio_seq_sent - audio_seq_acked;
	// send_audio returns a backpressure error once the bound is exceeded
	// (spec section 4.D operation table).
	AudioQueueHighWaterMark int

	PingInterval time.Duration
	// PingTimeout is propagated to Transport.PingTimeout unless the caller
	// already set one explicitly there.
	PingTimeout  time.Duration
	CloseTimeout time.Duration
}

func (c *Config) defaults() {
	if c.AudioQueueHighWaterMark == 0 {
		c.AudioQueueHighWaterMark = DefaultAudioQueueHighWaterMark
	}
	if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = DefaultPingTimeout
	}
	if c.Transport.PingTimeout == 0 {
		c.Transport.PingTimeout = c.PingTimeout
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
}

// Handlers are the downstream hooks a caller (typically the voiceagent
// facade) wires before Connect to receive decoded frames the Session
// itself does not interpret further. The Session owns the socket
// exclusively (spec section 9); everything it decodes that isn't part of
// its own lifecycle bookkeeping is handed off through these.
type Handlers struct {
	// OnPartialTranscript forwards a decoded AddPartialTranscript batch,
	// normally to the transcript assembler.
	OnPartialTranscript func(*codec.AddPartialTranscript)
	// OnTranscript forwards a decoded AddTranscript batch.
	OnTranscript func(*codec.AddTranscript)
	// OnEndOfUtterance notifies the turn detector of the server's own
	// silence-based endpointing signal.
	OnEndOfUtterance func()
	// OnSpeakersResult forwards a decoded SpeakersResult frame.
	OnSpeakersResult func(map[string][]string)
}
