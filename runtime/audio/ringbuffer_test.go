package audio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_PushWithinCapacity(t *testing.T) {
	rb := NewRingBuffer(1, 8) // 1 second at 8Hz mono PCM16LE = 16 bytes capacity

	rb.Push([]byte{1, 2, 3, 4})
	require.Equal(t, 4, rb.Len())
	assert.Equal(t, []byte{1, 2, 3, 4}, rb.Snapshot())
}

func TestRingBuffer_OverflowDropsOldest(t *testing.T) {
	rb := NewRingBuffer(1, 4) // capacity = 1 * 4 * 2 = 8 bytes

	rb.Push(bytes.Repeat([]byte{0xAA}, 6))
	rb.Push(bytes.Repeat([]byte{0xBB}, 6))

	snap := rb.Snapshot()
	require.Len(t, snap, 8)
	// The oldest 4 bytes of 0xAA should have been dropped, leaving
	// 2 trailing 0xAA bytes followed by 6 0xBB bytes.
	assert.Equal(t, []byte{0xAA, 0xAA, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB}, snap)
}

func TestRingBuffer_DefaultsWhenWindowNonPositive(t *testing.T) {
	rb := NewRingBuffer(0, 16000)
	assert.Equal(t, int(DefaultRingBufferSeconds*16000*2), rb.capacity)
}

func TestRingBuffer_Reset(t *testing.T) {
	rb := NewRingBuffer(1, 8)
	rb.Push([]byte{1, 2, 3})
	rb.Reset()
	assert.Equal(t, 0, rb.Len())
	assert.Empty(t, rb.Snapshot())
}

func TestRingBuffer_PushEmptyIsNoop(t *testing.T) {
	rb := NewRingBuffer(1, 8)
	rb.Push(nil)
	assert.Equal(t, 0, rb.Len())
}
