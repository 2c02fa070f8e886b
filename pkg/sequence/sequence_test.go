package sequence

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAllocator_SequentialSlots(t *testing.T) {
	alloc := NewLocalAllocator()
	ctx := context.Background()

	slot, err := alloc.Acquire(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), slot.Sequence)
	assert.Empty(t, slot.PreviousHash)
	require.NoError(t, alloc.Commit(ctx, "s", "sig-0"))

	slot, err = alloc.Acquire(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), slot.Sequence)
	assert.Equal(t, "sig-0", slot.PreviousHash)
	require.NoError(t, alloc.Commit(ctx, "s", "sig-1"))
}

func TestLocalAllocator_AbortDoesNotAdvance(t *testing.T) {
	alloc := NewLocalAllocator()
	ctx := context.Background()

	slot, err := alloc.Acquire(ctx, "s")
	require.NoError(t, err)
	require.NoError(t, alloc.Abort(ctx, "s"))

	again, err := alloc.Acquire(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, slot.Sequence, again.Sequence)
	assert.Equal(t, slot.PreviousHash, again.PreviousHash)
	require.NoError(t, alloc.Commit(ctx, "s", "sig"))
}

func TestLocalAllocator_ReleaseWithoutSlot(t *testing.T) {
	alloc := NewLocalAllocator()
	ctx := context.Background()

	assert.ErrorIs(t, alloc.Commit(ctx, "s", "sig"), ErrNoSlot)
	assert.ErrorIs(t, alloc.Abort(ctx, "s"), ErrNoSlot)

	slot, err := alloc.Acquire(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), slot.Sequence)
	require.NoError(t, alloc.Commit(ctx, "s", "sig-0"))

	// the slot was released by the commit above
	assert.ErrorIs(t, alloc.Commit(ctx, "s", "sig-1"), ErrNoSlot)
	assert.ErrorIs(t, alloc.Abort(ctx, "s"), ErrNoSlot)
}

func TestLocalAllocator_StreamsAreIndependent(t *testing.T) {
	alloc := NewLocalAllocator()
	ctx := context.Background()

	a, err := alloc.Acquire(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, alloc.Commit(ctx, "a", "sig-a"))

	b, err := alloc.Acquire(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, alloc.Commit(ctx, "b", "sig-b"))

	assert.Equal(t, uint64(0), a.Sequence)
	assert.Equal(t, uint64(0), b.Sequence)
	assert.Empty(t, b.PreviousHash)
}

func TestLocalAllocator_Prime(t *testing.T) {
	alloc := NewLocalAllocator()
	alloc.Prime("s", 42, "tail-signature")

	slot, err := alloc.Acquire(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), slot.Sequence)
	assert.Equal(t, "tail-signature", slot.PreviousHash)
	require.NoError(t, alloc.Commit(context.Background(), "s", "sig-42"))
}

func TestLocalAllocator_ConcurrentWritersGetUniqueSequences(t *testing.T) {
	alloc := NewLocalAllocator()
	ctx := context.Background()

	const n = 100
	var mu sync.Mutex
	seen := make(map[uint64]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slot, err := alloc.Acquire(ctx, "s")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			assert.False(t, seen[slot.Sequence])
			seen[slot.Sequence] = true
			mu.Unlock()
			_ = alloc.Commit(ctx, "s", fmt.Sprintf("sig-%d", i))
		}(i)
	}
	wg.Wait()
	assert.Len(t, seen, n)
}
