package rpcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

// Reset must free every outstanding slot for reuse on the next Bake
// cycle without touching the backing images (spec.md §4.5
// TransientAttachmentAllocator ring discipline).
func TestTransientAllocatorResetFreesAllSlots(t *testing.T) {
	a := NewTransientAllocator(nil, vk.PhysicalDeviceMemoryProperties{}, nil)
	key := transientKey{width: 1920, height: 1080, format: vk.FormatR16Sfloat, samples: vk.SampleCount1Bit}
	a.slots[key] = []*transientSlot{{inUse: true}, {inUse: true}}

	a.Reset()

	for _, s := range a.slots[key] {
		assert.False(t, s.inUse)
	}
}

func TestTransientKeyDistinguishesShape(t *testing.T) {
	a := transientKey{width: 1920, height: 1080, format: vk.FormatR16Sfloat, samples: vk.SampleCount1Bit}
	b := transientKey{width: 1280, height: 720, format: vk.FormatR16Sfloat, samples: vk.SampleCount1Bit}
	assert.NotEqual(t, a, b)

	c := a
	assert.Equal(t, a, c)
}
