package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSetAllocatorDefaultsSetsPerPool(t *testing.T) {
	a := NewSetAllocator(nil, 0)
	assert.EqualValues(t, 16, a.setsPerPool)

	b := NewSetAllocator(nil, 32)
	assert.EqualValues(t, 32, b.setsPerPool)
}

// Reset on a freshly constructed allocator (no pools grown yet) must be
// a safe no-op: nothing to return to the driver and an already-empty
// cache to clear.
func TestSetAllocatorResetOnEmptyAllocatorIsNoop(t *testing.T) {
	a := NewSetAllocator(nil, 8)
	assert.NotPanics(t, func() { a.Reset() })
	assert.Empty(t, a.cache)
	assert.Equal(t, 0, a.current)
}

func TestPoolSizesScaleWithSetsPerPool(t *testing.T) {
	sizes := poolSizes(16)
	assert.Len(t, sizes, 4)
	for _, s := range sizes {
		assert.Greater(t, s.DescriptorCount, uint32(0))
	}

	doubled := poolSizes(32)
	for i := range sizes {
		assert.Equal(t, sizes[i].DescriptorCount*2, doubled[i].DescriptorCount)
	}
}
