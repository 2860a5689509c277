package vkcore

import vk "github.com/vulkan-go/vulkan"

// Fence wraps a VkFence that is created signaled-free and recycled
// once waited on, matching the teacher's FenceManager (managers.go).
type Fence struct {
	handle vk.Fence
}

// FencePool recycles fences across frames instead of creating and
// destroying one per submission. Grounded on managers.go's
// FenceManager, which keeps a slice of in-flight fences and reclaims
// them once vk.WaitForFences reports signaled.
type FencePool struct {
	device vk.Device
	free   []*Fence
	inUse  []*Fence
}

func NewFencePool(device vk.Device) *FencePool {
	return &FencePool{device: device}
}

func (p *FencePool) Acquire() (*Fence, error) {
	if n := len(p.free); n > 0 {
		f := p.free[n-1]
		p.free = p.free[:n-1]
		vk.ResetFences(p.device, 1, []vk.Fence{f.handle})
		p.inUse = append(p.inUse, f)
		return f, nil
	}
	var h vk.Fence
	ret := vk.CreateFence(p.device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &h)
	if err := newError(ret); err != nil {
		return nil, err
	}
	f := &Fence{handle: h}
	p.inUse = append(p.inUse, f)
	return f, nil
}

// ReapSignaled walks the in-use fences, moving every signaled one back
// to the free list. Called once per Device.NextFrame, mirroring
// FenceManager's per-frame reclaim pass.
func (p *FencePool) ReapSignaled() error {
	remaining := p.inUse[:0]
	for _, f := range p.inUse {
		status := vk.GetFenceStatus(p.device, f.handle)
		switch status {
		case vk.Success:
			p.free = append(p.free, f)
		case vk.NotReady:
			remaining = append(remaining, f)
		default:
			return newError(status)
		}
	}
	p.inUse = remaining
	return nil
}

func (p *FencePool) Destroy() {
	for _, f := range p.free {
		vk.DestroyFence(p.device, f.handle, nil)
	}
	for _, f := range p.inUse {
		vk.DestroyFence(p.device, f.handle, nil)
	}
	p.free, p.inUse = nil, nil
}

func (f *Fence) Handle() vk.Fence { return f.handle }
