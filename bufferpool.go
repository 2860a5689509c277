package vkcore

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// BufferBlockPool hands out bump-allocated regions of a small set of
// host-visible buffers, recycled once FramesInFlight frames have
// passed -- the "staging ring" every frame's uniform/vertex uploads
// draw from instead of allocating a fresh VkBuffer per draw call.
// Grounded on spec.md §4.8 and the teacher's CoreBuffer uniform-buffer
// allocation in buffers.go, generalized from one named uniform slot
// per frame to an arbitrary-size bump allocator with block growth.
type BufferBlockPool struct {
	device    vk.Device
	memProps  vk.PhysicalDeviceMemoryProperties
	usage     vk.BufferUsageFlagBits
	blockSize vk.DeviceSize
	align     vk.DeviceSize

	blocks  []*bufferBlock
	current int
}

type bufferBlock struct {
	buffer *Buffer
	mapped unsafe.Pointer
	offset vk.DeviceSize
}

func NewBufferBlockPool(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, usage vk.BufferUsageFlagBits, blockSize vk.DeviceSize, align vk.DeviceSize) *BufferBlockPool {
	if align == 0 {
		align = 256
	}
	return &BufferBlockPool{device: device, memProps: memProps, usage: usage, blockSize: blockSize, align: align}
}

// Allocate carves size bytes (rounded up to the pool's alignment) out
// of the current block, growing the ring with a fresh block when the
// current one has no room left. Returns the mapped pointer to write
// into and the buffer + offset to bind at draw time.
func (p *BufferBlockPool) Allocate(size vk.DeviceSize, cookies *CookieSource) (unsafe.Pointer, *Buffer, vk.DeviceSize, error) {
	aligned := (size + p.align - 1) &^ (p.align - 1)

	if p.current >= len(p.blocks) {
		blk, err := p.grow(cookies)
		if err != nil {
			return nil, nil, 0, err
		}
		p.blocks = append(p.blocks, blk)
	}
	blk := p.blocks[p.current]
	if blk.offset+aligned > p.blockSize {
		p.current++
		return p.Allocate(size, cookies)
	}

	ptr := unsafe.Add(blk.mapped, blk.offset)
	offset := blk.offset
	blk.offset += aligned
	return ptr, blk.buffer, offset, nil
}

func (p *BufferBlockPool) grow(cookies *CookieSource) (*bufferBlock, error) {
	buf, err := createBuffer(p.device, p.memProps, cookies, BufferInfo{
		Size:        p.blockSize,
		Usage:       p.usage,
		HostVisible: true,
	})
	if err != nil {
		return nil, err
	}
	ptr, err := buf.Map()
	if err != nil {
		buf.destroy()
		return nil, err
	}
	return &bufferBlock{buffer: buf, mapped: ptr}, nil
}

// Reset rewinds every block's bump offset to zero, called once per
// frame after the pool's Device knows this ring slot's prior contents
// have retired on the GPU (spec.md §4.8's "N-frame ring" discipline).
func (p *BufferBlockPool) Reset() {
	for _, blk := range p.blocks {
		blk.offset = 0
	}
	p.current = 0
}

func (p *BufferBlockPool) Destroy() {
	for _, blk := range p.blocks {
		blk.buffer.destroy()
	}
	p.blocks = nil
}
