package rpcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

// Round-trip (spec.md §8): RenderPassInfo -> hash -> lookup must return
// the same object for the same attachment shape, and a different object
// for an incompatible one.
func TestPassDescKeyIsStableForEquivalentAttachments(t *testing.T) {
	a := PassDesc{
		Color: []AttachmentDesc{{Format: vk.FormatR8g8b8a8Srgb, Samples: vk.SampleCount1Bit, LoadOp: vk.AttachmentLoadOpClear, StoreOp: vk.AttachmentStoreOpStore}},
	}
	b := PassDesc{
		Color: []AttachmentDesc{{Format: vk.FormatR8g8b8a8Srgb, Samples: vk.SampleCount1Bit, LoadOp: vk.AttachmentLoadOpClear, StoreOp: vk.AttachmentStoreOpStore}},
	}
	assert.Equal(t, a.key(), b.key())
}

func TestPassDescKeyDiffersOnFormatOrSampleCount(t *testing.T) {
	base := PassDesc{Color: []AttachmentDesc{{Format: vk.FormatR8g8b8a8Srgb, Samples: vk.SampleCount1Bit}}}
	diffFormat := PassDesc{Color: []AttachmentDesc{{Format: vk.FormatR8g8b8a8Unorm, Samples: vk.SampleCount1Bit}}}
	diffSamples := PassDesc{Color: []AttachmentDesc{{Format: vk.FormatR8g8b8a8Srgb, Samples: vk.SampleCount4Bit}}}

	assert.NotEqual(t, base.key(), diffFormat.key())
	assert.NotEqual(t, base.key(), diffSamples.key())
}

func TestPassDescKeyIncludesDepthAttachment(t *testing.T) {
	color := []AttachmentDesc{{Format: vk.FormatR8g8b8a8Srgb, Samples: vk.SampleCount1Bit}}
	withoutDepth := PassDesc{Color: color}
	withDepth := PassDesc{Color: color, Depth: &AttachmentDesc{Format: vk.FormatD32Sfloat, Samples: vk.SampleCount1Bit}}

	assert.NotEqual(t, withoutDepth.key(), withDepth.key())
}

func TestCacheGetReturnsCachedEntryWithoutRebuilding(t *testing.T) {
	c := NewCache(nil)
	desc := PassDesc{}
	c.entries[desc.key()] = vk.RenderPass(nil)

	rp, err := c.Get(desc)
	assert.NoError(t, err)
	assert.Equal(t, vk.RenderPass(nil), rp)
	assert.Len(t, c.entries, 1, "a cache hit must not create a second entry")
}
