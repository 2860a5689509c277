package vkcore

import vk "github.com/vulkan-go/vulkan"

// frameContext is the per-frame-in-flight state Device cycles through:
// one command pool per queue family in use (roles that share a family
// share its pool), a fence pool, a semaphore pool
// and a deferred-destruction queue. Grounded on
// Luna/Include/Luna/Vulkan/Device.hpp's FrameContext struct, which
// keeps exactly this shape (per-frame command pools + destroyed-object
// lists) so resource teardown never stalls a queue that might still be
// replaying the command buffer that used them.
type frameContext struct {
	pools     [queueRoleCount]vk.CommandPool
	buffers   [queueRoleCount][]vk.CommandBuffer
	nextFree  [queueRoleCount]int

	fences     *FencePool
	semaphores *SemaphorePool

	submissionFence *Fence

	deferred []func()
}

func newFrameContext(device vk.Device, queues *Queues) (*frameContext, error) {
	fc := &frameContext{
		fences:     NewFencePool(device),
		semaphores: NewSemaphorePool(device),
	}
	seen := map[uint32]vk.CommandPool{}
	for role := QueueRole(0); role < queueRoleCount; role++ {
		fam := queues.Family(role)
		if pool, ok := seen[fam]; ok {
			fc.pools[role] = pool
			continue
		}
		var pool vk.CommandPool
		ret := vk.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			QueueFamilyIndex: fam,
			Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
		}, nil, &pool)
		if err := newError(ret); err != nil {
			return nil, err
		}
		fc.pools[role] = pool
		seen[fam] = pool
	}
	return fc, nil
}

// requestCommandBuffer hands back a primary command buffer from this
// frame's pool for role, allocating a new one if every previously
// allocated buffer for this frame is already checked out. Mirrors
// Device::RequestCommandBuffer's per-frame, per-thread allocation
// scheme, minus the thread-index dimension. It takes no lock and is not
// safe for concurrent calls on the same frameContext.
func (fc *frameContext) requestCommandBuffer(device vk.Device, role QueueRole) (vk.CommandBuffer, error) {
	if fc.nextFree[role] < len(fc.buffers[role]) {
		cb := fc.buffers[role][fc.nextFree[role]]
		fc.nextFree[role]++
		return cb, nil
	}
	bufs := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        fc.pools[role],
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, bufs)
	if err := newError(ret); err != nil {
		return nil, err
	}
	fc.buffers[role] = append(fc.buffers[role], bufs[0])
	fc.nextFree[role]++
	return bufs[0], nil
}

// reset returns every command buffer issued this frame to the pool and
// drains the deferred-destruction queue. Called by Device.NextFrame
// once every fence this frame's submissions used has signaled, matching
// Device::EndFrameNoLock's teardown ordering: buffers before resources,
// since a resource destroyed before its last referencing command buffer
// retires would be a use-after-free on the GPU timeline.
func (fc *frameContext) reset(device vk.Device) {
	for role := QueueRole(0); role < queueRoleCount; role++ {
		if fc.nextFree[role] > 0 {
			vk.ResetCommandPool(device, fc.pools[role], vk.CommandPoolResetFlags(0))
			fc.nextFree[role] = 0
		}
	}
	for _, fn := range fc.deferred {
		fn()
	}
	fc.deferred = fc.deferred[:0]
}

// deferDestroy queues fn to run once this frame's resources are known
// retired on the GPU, rather than destroying eagerly mid-frame.
func (fc *frameContext) deferDestroy(fn func()) {
	fc.deferred = append(fc.deferred, fn)
}

func (fc *frameContext) destroy(device vk.Device) {
	fc.reset(device)
	fc.fences.Destroy()
	fc.semaphores.Destroy()
	seen := map[vk.CommandPool]bool{}
	for _, pool := range fc.pools {
		if pool == nil || seen[pool] {
			continue
		}
		seen[pool] = true
		vk.DestroyCommandPool(device, pool, nil)
	}
}
