package statestore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_LoadNotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Load(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_LoadInvalidID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Load(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	snap := &SessionSnapshot{
		SessionID:     "sess-123",
		AudioSeqAcked: 42,
		TurnCounter:   3,
		KnownSpeakers: map[string]string{"S1": "alice"},
	}

	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx, "sess-123")
	require.NoError(t, err)
	assert.Equal(t, "sess-123", loaded.SessionID)
	assert.Equal(t, uint64(42), loaded.AudioSeqAcked)
	assert.Equal(t, 3, loaded.TurnCounter)
	assert.Equal(t, "alice", loaded.KnownSpeakers["S1"])
}

func TestMemoryStore_SaveUpdatesExisting(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	snap := &SessionSnapshot{SessionID: "sess-123", AudioSeqAcked: 1}
	require.NoError(t, store.Save(ctx, snap))

	snap.AudioSeqAcked = 99
	snap.TurnCounter = 7
	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx, "sess-123")
	require.NoError(t, err)
	assert.Equal(t, uint64(99), loaded.AudioSeqAcked)
	assert.Equal(t, 7, loaded.TurnCounter)
}

func TestMemoryStore_SaveInvalidSnapshot(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Save(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestMemoryStore_SaveInvalidID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Save(ctx, &SessionSnapshot{SessionID: ""})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &SessionSnapshot{SessionID: "sess-123"}))
	require.NoError(t, store.Delete(ctx, "sess-123"))

	_, err := store.Load(ctx, "sess-123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteNotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Delete(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteInvalidID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Delete(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestMemoryStore_ListAll(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Save(ctx, &SessionSnapshot{SessionID: "sess-" + string(rune('0'+i))}))
	}

	ids, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, ids, 5)
}

func TestMemoryStore_ListWithPagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Save(ctx, &SessionSnapshot{SessionID: "sess-" + string(rune('0'+i))}))
	}

	ids, err := store.List(ctx, ListOptions{Limit: 3, Offset: 0})
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	ids, err = store.List(ctx, ListOptions{Limit: 3, Offset: 9})
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	ids, err = store.List(ctx, ListOptions{Limit: 3, Offset: 15})
	require.NoError(t, err)
	assert.Len(t, ids, 0)
}

func TestMemoryStore_ListSortByUpdatedAt(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &SessionSnapshot{SessionID: "sess-1"}))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, store.Save(ctx, &SessionSnapshot{SessionID: "sess-2"}))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, store.Save(ctx, &SessionSnapshot{SessionID: "sess-3"}))

	ids, err := store.List(ctx, ListOptions{SortBy: SortByUpdatedAt, SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, "sess-3", ids[0])
	assert.Equal(t, "sess-1", ids[2])

	ids, err = store.List(ctx, ListOptions{SortBy: SortByUpdatedAt, SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", ids[0])
	assert.Equal(t, "sess-3", ids[2])
}

func TestMemoryStore_DeepCopyPreventsExternalMutation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	snap := &SessionSnapshot{SessionID: "sess-123", KnownSpeakers: map[string]string{"S1": "original"}}
	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx, "sess-123")
	require.NoError(t, err)
	loaded.KnownSpeakers["S1"] = "mutated"

	loaded2, err := store.Load(ctx, "sess-123")
	require.NoError(t, err)
	assert.Equal(t, "original", loaded2.KnownSpeakers["S1"])
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const numGoroutines = 100
	const numOpsPerGoroutine = 10

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOpsPerGoroutine; j++ {
				sessionID := "sess-" + string(rune('0'+id))
				_ = store.Save(ctx, &SessionSnapshot{SessionID: sessionID, TurnCounter: j})
				_, _ = store.Load(ctx, sessionID)
				_, _ = store.List(ctx, ListOptions{})
				if j%3 == 0 {
					_ = store.Delete(ctx, sessionID)
				}
			}
		}(i)
	}

	wg.Wait()
}

func TestMemoryStore_DefaultLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		require.NoError(t, store.Save(ctx, &SessionSnapshot{SessionID: "sess-" + string(rune(i))}))
	}

	ids, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, ids, 100)
}
