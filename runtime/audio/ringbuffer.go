package audio

import "sync"

// DefaultRingBufferSeconds is the Smart Turn policy's default trailing
// window length, per spec section 4.G ("ring buffer, default 8s").
const DefaultRingBufferSeconds = 8.0

// RingBuffer accumulates the most recent PCM16LE audio samples up to a
// fixed byte capacity, dropping the oldest samples on overflow. It is
// appended to non-blockingly by the RT Session on every send_audio call
// (spec section 5, "appended by D via a non-blocking push; overflow drops
// the oldest samples") and owned exclusively by the turn detector.
type RingBuffer struct {
	mu       sync.Mutex
	buf      []byte
	capacity int
}

// NewRingBuffer creates a ring buffer sized to hold windowSeconds of
// PCM16LE mono audio at sampleRate. windowSeconds <= 0 defaults to
// DefaultRingBufferSeconds.
func NewRingBuffer(windowSeconds float64, sampleRate int) *RingBuffer {
	if windowSeconds <= 0 {
		windowSeconds = DefaultRingBufferSeconds
	}
	const bytesPerSample = 2 // PCM16LE
	capacity := int(windowSeconds * float64(sampleRate) * bytesPerSample)
	if capacity <= 0 {
		capacity = int(DefaultRingBufferSeconds * float64(DefaultSmartTurnSampleRate) * bytesPerSample)
	}
	return &RingBuffer{capacity: capacity}
}

// Push appends pcm to the buffer, non-blockingly dropping the oldest bytes
// if the result would exceed capacity.
func (r *RingBuffer) Push(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = append(r.buf, pcm...)
	if excess := len(r.buf) - r.capacity; excess > 0 {
		r.buf = r.buf[excess:]
	}
}

// Snapshot returns a copy of the currently buffered audio.
func (r *RingBuffer) Snapshot() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]byte, len(r.buf))
	copy(out, r.buf)
	return out
}

// Reset clears the buffer, used when a turn closes so the next turn's
// classification window starts empty.
func (r *RingBuffer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = r.buf[:0]
}

// Len reports the number of bytes currently buffered.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}
