package vkcore

import vk "github.com/vulkan-go/vulkan"

// Device is the central owner every other vkcore type reaches through:
// the logical device, its queues, N frames-in-flight, the cookie
// source, the object pools and the swapchain hand-off state. It
// supersedes the teacher's CoreDevice (device.go, a map of string name
// to command/descriptor pools) and BaseCore (core.go, file-logger +
// global string-keyed resource maps) -- both collapsed here, per §9's
// instruction to replace per-class singletons and string-keyed lookup
// with handle-based ownership.
type Device struct {
	ctx    *Context
	queues *Queues
	tuning DeviceTuning

	cookies CookieSource

	frames       []*frameContext
	frameIndex   int
	frameCounter uint64

	buffers    *Pool[Buffer]
	images     *Pool[Image]
	samplers   *Pool[Sampler]
	queryPools *Pool[QueryPool]

	swap *swapchainBinding
}

// swapchainBinding holds the per-Device state describing the currently
// acquired swapchain image: its index and the semaphore the present
// engine signaled when the image became available. Kept separate from
// frameContext because acquisition happens once per Device.NextFrame,
// not once per queue role.
type swapchainBinding struct {
	swapchain    *Swapchain
	imageIndex   uint32
	acquireSem   *Semaphore
	releaseSem   *Semaphore
}

// NewDevice builds the per-frame contexts and object pools around an
// already-created Context and Queues. Grounded on
// Luna/Include/Luna/Vulkan/Device.hpp's constructor, which performs the
// same frame-context fan-out once the instance/device/queues already
// exist.
func NewDevice(ctx *Context, queues *Queues, tuning DeviceTuning) (*Device, error) {
	if tuning.FramesInFlight <= 0 {
		tuning = DefaultDeviceTuning()
	}
	d := &Device{
		ctx:        ctx,
		queues:     queues,
		tuning:     tuning,
		buffers:    NewPool[Buffer](),
		images:     NewPool[Image](),
		samplers:   NewPool[Sampler](),
		queryPools: NewPool[QueryPool](),
	}
	for i := 0; i < tuning.FramesInFlight; i++ {
		fc, err := newFrameContext(ctx.Device(), queues)
		if err != nil {
			return nil, err
		}
		d.frames = append(d.frames, fc)
	}
	return d, nil
}

func (d *Device) Context() *Context { return d.ctx }
func (d *Device) Queues() *Queues   { return d.queues }
func (d *Device) Raw() vk.Device    { return d.ctx.Device() }

// FrameIndex returns the current frame-in-flight slot, 0..FramesInFlight-1.
func (d *Device) FrameIndex() int { return d.frameIndex }

// FrameCounter returns the monotonically increasing frame number, never
// wrapping modulo FramesInFlight (unlike FrameIndex), for callers that
// need to tell "two frames ago" from "this frame".
func (d *Device) FrameCounter() uint64 { return d.frameCounter }

func (d *Device) currentFrame() *frameContext { return d.frames[d.frameIndex] }

// NextFrame advances to the next frame-in-flight slot, waits for that
// slot's previous work to retire, reaps signaled fences and drains
// deferred destructions. Mirrors Device::NextFrame /
// Device::EndFrameNoLock's reclaim ordering (§4.2).
func (d *Device) NextFrame() error {
	d.frameIndex = (d.frameIndex + 1) % len(d.frames)
	d.frameCounter++
	fc := d.currentFrame()
	if n := len(fc.fences.inUse); n > 0 {
		handles := make([]vk.Fence, n)
		for i, f := range fc.fences.inUse {
			handles[i] = f.handle
		}
		if err := newError(vk.WaitForFences(d.Raw(), uint32(n), handles, vk.True, vk.MaxUint64)); err != nil {
			return err
		}
	}
	if err := fc.fences.ReapSignaled(); err != nil {
		return err
	}
	fc.reset(d.Raw())
	return nil
}

// AcquireSwapchainImage binds sc as this frame's presentation target,
// consuming an acquire semaphore from the current frame's pool. The
// returned bool reports whether the swapchain needs to be rebuilt
// (KindSwapchainOutOfDate/Suboptimal) rather than ordinary failure --
// the caller's render loop treats that as a recoverable event (§4.2),
// not a fatal error.
func (d *Device) AcquireSwapchainImage(sc *Swapchain) (imageIndex uint32, recoverable bool, err error) {
	fc := d.currentFrame()
	sem, err := fc.semaphores.Acquire()
	if err != nil {
		return 0, false, err
	}
	sem.SetForeignQueue()

	idx, acquireErr := sc.AcquireNextImage(sem.Handle())
	if acquireErr != nil {
		if IsRecoverable(acquireErr) {
			return 0, true, acquireErr
		}
		return 0, false, acquireErr
	}

	release, err := fc.semaphores.Acquire()
	if err != nil {
		return 0, false, err
	}

	d.swap = &swapchainBinding{swapchain: sc, imageIndex: idx, acquireSem: sem, releaseSem: release}
	return idx, false, nil
}

// RequestCommandBuffer returns a primary command buffer for role from
// the current frame's pool, ready for vkBeginCommandBuffer.
func (d *Device) RequestCommandBuffer(role QueueRole) (vk.CommandBuffer, error) {
	return d.currentFrame().requestCommandBuffer(d.Raw(), role)
}

// Submit submits cmd on role's queue. When signalTimeline is non-nil the
// submission also signals that timeline semaphore to targetValue, the
// mechanism the render-graph scheduler uses to let a Compute pass wait
// on a Graphics pass's output without a full queue-family ownership
// transfer (§4.6 step 7's "semaphore" dependency kind). Submission order
// across roles within a frame is the caller's responsibility; Device
// itself only serializes within a single role's queue.
func (d *Device) Submit(role QueueRole, cmd vk.CommandBuffer, waitSemaphores []vk.Semaphore, waitStages []vk.PipelineStageFlags, signalTimeline *Semaphore, targetValue uint64) error {
	fc := d.currentFrame()
	fence, err := fc.fences.Acquire()
	if err != nil {
		return err
	}

	var signalSems []vk.Semaphore
	var signalValues []uint64
	if signalTimeline != nil {
		signalSems = append(signalSems, signalTimeline.Handle())
		signalValues = append(signalValues, targetValue)
	}
	if d.swap != nil && role == QueueGraphics {
		signalSems = append(signalSems, d.swap.releaseSem.Handle())
		signalValues = append(signalValues, 0)
		waitSemaphores = append(waitSemaphores, d.swap.acquireSem.Consume())
		waitStages = append(waitStages, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit))
	}

	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		WaitSemaphoreCount:   uint32(len(waitSemaphores)),
		PWaitSemaphores:      waitSemaphores,
		PWaitDstStageMask:    waitStages,
		SignalSemaphoreCount: uint32(len(signalSems)),
		PSignalSemaphores:    signalSems,
	}
	if len(signalValues) > 0 {
		timelineInfo := vk.TimelineSemaphoreSubmitInfo{
			SType:                     vk.StructureTypeTimelineSemaphoreSubmitInfo,
			SignalSemaphoreValueCount: uint32(len(signalValues)),
			PSignalSemaphoreValues:    signalValues,
		}
		submit.PNext = pNextOf(&timelineInfo)
	}

	ret := vk.QueueSubmit(d.queues.Get(role), 1, []vk.SubmitInfo{submit}, fence.Handle())
	return newError(ret)
}

// EndFrame presents the acquired swapchain image (if one was acquired
// this frame) and clears the swapchain binding. Must run after every
// queue role's Submit for this frame has been issued.
func (d *Device) EndFrame() (recoverable bool, err error) {
	if d.swap == nil {
		return false, nil
	}
	sw, idx, sem := d.swap.swapchain, d.swap.imageIndex, d.swap.releaseSem
	d.swap = nil
	presentErr := sw.Present(d.queues.Get(QueueGraphics), idx, sem.Handle())
	if presentErr != nil {
		return IsRecoverable(presentErr), presentErr
	}
	return false, nil
}

// AllocateBuffer creates a buffer and returns an owning handle.
func (d *Device) AllocateBuffer(info BufferInfo, internalSync bool) (Handle[Buffer], error) {
	var createErr error
	h := d.buffers.Acquire(func() Buffer {
		b, err := createBuffer(d.Raw(), d.ctx.MemoryProperties(), &d.cookies, info)
		if err != nil {
			createErr = err
			return Buffer{}
		}
		return *b
	}, internalSync)
	return h, createErr
}

// AllocateImage creates an image and returns an owning handle.
func (d *Device) AllocateImage(info ImageInfo, internalSync bool) (Handle[Image], error) {
	var createErr error
	h := d.images.Acquire(func() Image {
		img, err := createImage(d.Raw(), d.ctx.MemoryProperties(), &d.cookies, info)
		if err != nil {
			createErr = err
			return Image{}
		}
		return *img
	}, internalSync)
	return h, createErr
}

// AllocateSampler creates a sampler and returns an owning handle.
func (d *Device) AllocateSampler(info SamplerInfo) (Handle[Sampler], error) {
	var createErr error
	h := d.samplers.Acquire(func() Sampler {
		s, err := createSampler(d.Raw(), &d.cookies, info)
		if err != nil {
			createErr = err
			return Sampler{}
		}
		return *s
	}, true)
	return h, createErr
}

// AllocateQueryPool creates a query pool and returns an owning handle.
// Grounded on the same Acquire-around-create shape as AllocateBuffer/
// AllocateImage/AllocateSampler above; without this, createQueryPool
// had no caller at all and QueryPool.Reset/Results were unreachable
// from outside this package.
func (d *Device) AllocateQueryPool(kind vk.QueryType, count uint32) (Handle[QueryPool], error) {
	var createErr error
	h := d.queryPools.Acquire(func() QueryPool {
		q, err := createQueryPool(d.Raw(), &d.cookies, kind, count)
		if err != nil {
			createErr = err
			return QueryPool{}
		}
		return *q
	}, true)
	return h, createErr
}

// DeferDestroy queues a destructor to run once the current frame's
// resources are known retired, rather than destroying immediately --
// used for resources released mid-frame that a previously submitted
// command buffer may still reference.
func (d *Device) DeferDestroy(fn func()) {
	d.currentFrame().deferDestroy(fn)
}

// WaitIdle blocks until the device has no outstanding work, for clean
// shutdown only -- never call this on the per-frame hot path.
func (d *Device) WaitIdle() error {
	return newError(vk.DeviceWaitIdle(d.Raw()))
}

func (d *Device) Destroy() {
	vk.DeviceWaitIdle(d.Raw())
	for _, fc := range d.frames {
		fc.destroy(d.Raw())
	}
	d.ctx.Destroy()
}
