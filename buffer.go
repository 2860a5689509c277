package vkcore

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// BufferInfo describes the buffer a caller wants; Device.AllocateBuffer resolves
// it to a concrete VkBuffer + bound VkDeviceMemory. Grounded on the
// teacher's buffers.go (CoreBuffer/NewCoreUniformBuffer), generalized
// from one hardcoded uniform-buffer shape to arbitrary usage/size per
// spec.md §3's Buffer resource kind.
type BufferInfo struct {
	Size       vk.DeviceSize
	Usage      vk.BufferUsageFlagBits
	HostVisible bool
}

// Buffer is a pooled GPU buffer plus its cookie. Device hands these out
// as Handle[Buffer] so lifetime is governed by the generic refcounted
// pool in handle.go rather than a string-keyed map (§9).
type Buffer struct {
	Cookie
	device vk.Device
	handle vk.Buffer
	memory vk.DeviceMemory
	size   vk.DeviceSize
	mapped unsafe.Pointer
}

func (b *Buffer) Handle() vk.Buffer { return b.handle }
func (b *Buffer) Size() vk.DeviceSize { return b.size }

// Map returns a pointer into the buffer's memory for host-visible
// buffers. Must be paired with Unmap.
func (b *Buffer) Map() (unsafe.Pointer, error) {
	if b.mapped != nil {
		return b.mapped, nil
	}
	var p unsafe.Pointer
	ret := vk.MapMemory(b.device, b.memory, 0, b.size, 0, &p)
	if err := newError(ret); err != nil {
		return nil, err
	}
	b.mapped = p
	return p, nil
}

func (b *Buffer) Unmap() {
	if b.mapped != nil {
		vk.UnmapMemory(b.device, b.memory)
		b.mapped = nil
	}
}

func (b *Buffer) destroy() {
	b.Unmap()
	if b.memory != nil {
		vk.FreeMemory(b.device, b.memory, nil)
	}
	if b.handle != nil {
		vk.DestroyBuffer(b.device, b.handle, nil)
	}
}

func createBuffer(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, cookies *CookieSource, info BufferInfo) (*Buffer, error) {
	var handle vk.Buffer
	ret := vk.CreateBuffer(device, &vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  info.Size,
		Usage: vk.BufferUsageFlags(info.Usage),
	}, nil, &handle)
	if err := newError(ret); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &req)
	req.Deref()

	wantFlags := vk.MemoryPropertyDeviceLocalBit
	if info.HostVisible {
		wantFlags = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}
	memType, ok := findMemoryType(memProps, req.MemoryTypeBits, wantFlags)
	if !ok {
		vk.DestroyBuffer(device, handle, nil)
		return nil, newErrorf(KindOutOfDeviceMemory, "no memory type for buffer requirements 0x%x", req.MemoryTypeBits)
	}

	var memory vk.DeviceMemory
	ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memType,
	}, nil, &memory)
	if err := newError(ret); err != nil {
		vk.DestroyBuffer(device, handle, nil)
		return nil, err
	}
	vk.BindBufferMemory(device, handle, memory, 0)

	return &Buffer{
		Cookie: NewCookie(cookies),
		device: device,
		handle: handle,
		memory: memory,
		size:   info.Size,
	}, nil
}

// findMemoryType mirrors the teacher's FindRequiredMemoryType
// (extensions.go), generalized to take the desired property flags as a
// bitmask instead of a fixed host-visible/host-coherent pair.
func findMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, want vk.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < vk.MaxMemoryTypes; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		props.MemoryTypes[i].Deref()
		if props.MemoryTypes[i].PropertyFlags&vk.MemoryPropertyFlags(want) == vk.MemoryPropertyFlags(want) {
			return i, true
		}
	}
	return 0, false
}
