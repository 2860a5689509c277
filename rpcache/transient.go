package rpcache

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/ashforge/vkcore"
)

// transientKey identifies a class of transient attachment images that
// can share the same backing VkImage across passes that never overlap
// in lifetime -- the render graph's aliasing pass (spec.md §4.6 step
// 5) groups resources into these classes before this allocator ever
// sees them.
type transientKey struct {
	width, height uint32
	format        vk.Format
	usage         vk.ImageUsageFlagBits
	samples       vk.SampleCountFlagBits
}

type transientSlot struct {
	image *vkcore.Image
	inUse bool
}

// TransientAllocator hands out (and reuses across bake calls)
// the backing images for a render graph's transient attachments:
// color/depth targets that exist only within one Bake's execution and
// never need to survive past the frame that produced them. Grounded on
// spec.md §4.5/§4.6 and Luna/Include/Luna/Renderer/RenderGraph.hpp's
// physical-attachment pool, which keeps exactly this "reuse same-shaped
// image across non-overlapping passes" discipline rather than
// allocating fresh memory every Bake.
type TransientAllocator struct {
	device   vk.Device
	memProps vk.PhysicalDeviceMemoryProperties
	cookies  *vkcore.CookieSource

	slots map[transientKey][]*transientSlot
}

func NewTransientAllocator(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, cookies *vkcore.CookieSource) *TransientAllocator {
	return &TransientAllocator{device: device, memProps: memProps, cookies: cookies, slots: make(map[transientKey][]*transientSlot)}
}

// Acquire returns an image matching key, reusing a free slot of the
// same shape if one exists. Callers must call Reset once per Bake
// cycle (typically once per frame) to release every slot back to the
// free state; this allocator does not itself know which passes are
// concurrent, that is the render graph's aliasing decision.
func (a *TransientAllocator) Acquire(info vkcore.ImageInfo) (*vkcore.Image, error) {
	key := transientKey{
		width: info.Extent.Width, height: info.Extent.Height,
		format: info.Format, usage: info.Usage, samples: info.Samples,
	}
	for _, slot := range a.slots[key] {
		if !slot.inUse {
			slot.inUse = true
			return slot.image, nil
		}
	}

	img, err := newTransientImage(a.device, a.memProps, a.cookies, info)
	if err != nil {
		return nil, err
	}
	a.slots[key] = append(a.slots[key], &transientSlot{image: img, inUse: true})
	return img, nil
}

// Reset marks every slot free for the next Bake cycle without
// destroying any backing image -- the whole point of the allocator is
// to amortize allocation across frames.
func (a *TransientAllocator) Reset() {
	for _, slots := range a.slots {
		for _, s := range slots {
			s.inUse = false
		}
	}
}

func (a *TransientAllocator) Destroy() {
	for _, slots := range a.slots {
		for _, s := range slots {
			s.image.Destroy()
		}
	}
	a.slots = nil
}

// newTransientImage duplicates vkcore's unexported createImage path
// through the small exported surface vkcore.NewTransientImage exposes
// for collaborating packages, since rpcache must not own the image
// struct fields directly (those stay package-private to vkcore).
func newTransientImage(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, cookies *vkcore.CookieSource, info vkcore.ImageInfo) (*vkcore.Image, error) {
	return vkcore.NewTransientImage(device, memProps, cookies, info)
}
