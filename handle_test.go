package vkcore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Handle safety (spec.md §8): dropping the last handle returns the
// underlying object to its pool, and a pool never hands back a slot
// with a live refcount.
func TestPoolAcquireReleaseReturnsSlot(t *testing.T) {
	pool := NewPool[int]()
	h := pool.Acquire(func() int { return 42 }, false)
	require.True(t, h.Valid())
	assert.Equal(t, 42, *h.Get())
	assert.Equal(t, 1, pool.Live())

	h.Release()
	assert.Equal(t, 0, pool.Live())
}

func TestHandleRetainBalancesRelease(t *testing.T) {
	pool := NewPool[string]()
	h := pool.Acquire(func() string { return "a" }, false)
	h2 := h.Retain()

	assert.EqualValues(t, 2, h.RefCount())

	h.Release()
	assert.Equal(t, 1, pool.Live(), "one outstanding reference keeps the slot live")

	h2.Release()
	assert.Equal(t, 0, pool.Live())
}

func TestPoolRecyclesSlotsWithNewGeneration(t *testing.T) {
	pool := NewPool[int]()
	first := pool.Acquire(func() int { return 1 }, false)
	first.Release()

	second := pool.Acquire(func() int { return 2 }, false)
	assert.Equal(t, 2, *second.Get())
	assert.Equal(t, 1, pool.Live())
	assert.Equal(t, first.index, second.index)
	assert.NotEqual(t, first.generation, second.generation)
}

// A stale release (mismatched generation) must not free a slot that has
// already been recycled into a different object -- the double-free
// precondition spec.md §8 calls out.
func TestPoolReleaseIgnoresStaleGeneration(t *testing.T) {
	pool := NewPool[int]()
	h := pool.Acquire(func() int { return 1 }, false)
	h.Release()
	reused := pool.Acquire(func() int { return 2 }, false)

	pool.release(h.index, h.generation)

	assert.Equal(t, 1, pool.Live())
	assert.Equal(t, 2, *reused.Get())
}

func TestAtomicHandleSafeForConcurrentRetainRelease(t *testing.T) {
	pool := NewPool[int]()
	h := pool.Acquire(func() int { return 0 }, false)

	const n = 64
	var wg sync.WaitGroup
	handles := make([]Handle[int], n)
	for i := 0; i < n; i++ {
		handles[i] = h.Retain()
	}
	h.Release()

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			handles[i].Release()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, pool.Live())
}

func TestPlainRefCounterForInternalSyncHandles(t *testing.T) {
	pool := NewPool[int]()
	h := pool.Acquire(func() int { return 7 }, true)
	h2 := h.Retain()
	assert.EqualValues(t, 2, h.RefCount())
	h.Release()
	h2.Release()
	assert.Equal(t, 0, pool.Live())
}
