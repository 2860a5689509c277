package rendergraph

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

// noopPass is the minimal Interface every scenario below registers: Bake
// never touches Setup/Build (that's Execute's job), so these only need to
// satisfy the interface.
type noopPass struct{}

func (noopPass) Setup() error                  { return nil }
func (noopPass) Build(cmd CommandRecorder) error { return nil }
func (noopPass) NeedsRender() bool             { return true }

// Scenario 1 (spec.md §8): a single pass writing one swapchain-relative
// color attachment bakes to exactly one physical pass with one color
// attachment and no synthesized edges.
func TestBakeTriangleScenario(t *testing.T) {
	g := New()
	g.SetBackbufferDimensions(1920, 1080, vk.FormatR8g8b8a8Srgb)
	color := g.AddTexture("color", AttachmentInfo{
		SizeClass: SizeSwapchainRelative, SizeX: 1, SizeY: 1,
		Format: vk.FormatR8g8b8a8Srgb, Samples: vk.SampleCount1Bit,
		Flags: AttachmentPersistent,
	})
	p, err := g.AddPass("triangle", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	p.AddColorOutput(color)
	g.SetBackbufferSource("color")

	sched, err := g.Bake()
	require.NoError(t, err)
	require.Len(t, sched.PhysicalPasses, 1)
	assert.Len(t, sched.PhysicalPasses[0].Color, 1)
	assert.Same(t, color, sched.PhysicalPasses[0].Color[0])
	assert.Empty(t, sched.Edges)
}

// Scenario 2 (spec.md §8): pass A writes blur_h, pass B reads blur_h and
// writes color -- two distinct physical passes (different attachment
// sets) joined by exactly one same-queue adjacent barrier edge.
func TestBakePingPongBlurScenario(t *testing.T) {
	g := New()
	g.SetBackbufferDimensions(1920, 1080, vk.FormatR8g8b8a8Srgb)

	blurH := g.AddTexture("blur_h", AttachmentInfo{
		SizeClass: SizeSwapchainRelative, SizeX: 1, SizeY: 1,
		Format: vk.FormatR16g16b16a16Sfloat, Samples: vk.SampleCount1Bit,
	})
	color := g.AddTexture("color", AttachmentInfo{
		SizeClass: SizeSwapchainRelative, SizeX: 1, SizeY: 1,
		Format: vk.FormatR8g8b8a8Srgb, Samples: vk.SampleCount1Bit,
		Flags: AttachmentPersistent,
	})

	passA, err := g.AddPass("blur_h_pass", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	passA.AddColorOutput(blurH)

	passB, err := g.AddPass("blur_v_pass", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	passB.AddTextureInput(blurH)
	passB.AddColorOutput(color)

	g.SetBackbufferSource("color")

	sched, err := g.Bake()
	require.NoError(t, err)
	assert.Len(t, sched.PhysicalPasses, 2)
	require.Len(t, sched.Edges, 1)
	edge := sched.Edges[0]
	assert.Equal(t, DependencyBarrier, edge.kind)
	assert.Same(t, blurH, edge.resource)
	assert.Same(t, passA, edge.producer)
	assert.Same(t, passB, edge.consumer)
}

// Scenario 3 (spec.md §8): an async-compute pass produces a storage image
// a graphics pass then samples -- the queue hand-off must synchronize via
// a full semaphore, never a plain barrier, since the two passes never
// share a queue family.
func TestBakeQueueHandOffScenario(t *testing.T) {
	g := New()
	g.SetBackbufferDimensions(1920, 1080, vk.FormatR8g8b8a8Srgb)

	lum := g.AddTexture("lum", AttachmentInfo{
		SizeClass: SizeAbsolute, SizeX: 256, SizeY: 256,
		Format: vk.FormatR16Sfloat, Samples: vk.SampleCount1Bit,
	})

	compute, err := g.AddPass("luminance", QueueFlagAsyncCompute, noopPass{})
	require.NoError(t, err)
	compute.AddStorageReadWrite(lum)

	graphics, err := g.AddPass("tonemap", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	graphics.AddTextureInput(lum)

	sched, err := g.Bake()
	require.NoError(t, err)
	require.Len(t, sched.Edges, 1)
	edge := sched.Edges[0]
	assert.Equal(t, DependencySemaphore, edge.kind)
	assert.NotEqual(t, DependencyBarrier, edge.kind)
}

// Scenario 4 (spec.md §8): four passes each write one same-shaped,
// non-overlapping-lifetime transient attachment -- the greedy first-fit
// aliasing pass must coalesce them onto a small number of physical slots
// rather than handing out four distinct images.
func TestBakeAliasingScenario(t *testing.T) {
	g := New()
	g.SetBackbufferDimensions(1920, 1080, vk.FormatR8g8b8a8Srgb)

	info := AttachmentInfo{
		SizeClass: SizeAbsolute, SizeX: 1920, SizeY: 1080,
		Format: vk.FormatR16Sfloat, Samples: vk.SampleCount1Bit,
	}

	var resources []*Resource
	for i := 0; i < 4; i++ {
		name := []string{"pass1_scratch", "pass2_scratch", "pass3_scratch", "pass4_scratch"}[i]
		r := g.AddTexture(name, info)
		resources = append(resources, r)
		p, err := g.AddPass(name+"_pass", QueueFlagGraphics, noopPass{})
		require.NoError(t, err)
		p.AddColorOutput(r)
	}

	_, err := g.Bake()
	require.NoError(t, err)

	slots := map[int]bool{}
	for _, r := range resources {
		slots[r.PhysIndex()] = true
	}
	assert.LessOrEqual(t, len(slots), 2, "non-overlapping same-shaped transients should alias onto few slots")
}

// Scenario 5 (spec.md §8, §3 invariant 3): a pass that both writes a
// resource and reads it as history must never alias the two onto the
// same physical slot -- the history read observes last frame's write.
func TestBakeHistoryScenario(t *testing.T) {
	g := New()
	g.SetBackbufferDimensions(1920, 1080, vk.FormatR8g8b8a8Srgb)

	tonemap := g.AddTexture("tonemap_accum", AttachmentInfo{
		SizeClass: SizeSwapchainRelative, SizeX: 1, SizeY: 1,
		Format: vk.FormatR16g16b16a16Sfloat, Samples: vk.SampleCount1Bit,
	})

	p, err := g.AddPass("accumulate", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	p.AddColorOutput(tonemap)
	p.AddHistoryInput(tonemap)

	_, err = g.Bake()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, tonemap.HistoryPhysIndex(), 0)
	assert.NotEqual(t, tonemap.PhysIndex(), tonemap.HistoryPhysIndex())
}

// A pass referencing a resource never registered through AddBuffer/
// AddTexture must fail validation rather than panicking later in Bake.
func TestBakeRejectsUnregisteredResource(t *testing.T) {
	g := New()
	g.SetBackbufferDimensions(1920, 1080, vk.FormatR8g8b8a8Srgb)
	ghost := &Resource{Name: "ghost", Kind: ResourceTexture, physIdx: -1, historyPhysIdx: -1}

	p, err := g.AddPass("broken", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	p.AddColorOutput(ghost)

	_, err = g.Bake()
	require.Error(t, err)
	rgErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrInvalid, rgErr.Kind)
}

// A blit source that was never marked persistent must be rejected: the
// aliasing pass is otherwise free to recycle it before the transfer
// queue reads it (spec.md's one Open Question, resolved as ErrInvalid).
func TestBakeRejectsTransientBlitSource(t *testing.T) {
	g := New()
	g.SetBackbufferDimensions(1920, 1080, vk.FormatR8g8b8a8Srgb)
	src := g.AddTexture("scratch", AttachmentInfo{
		SizeClass: SizeAbsolute, SizeX: 256, SizeY: 256,
		Format: vk.FormatR8g8b8a8Unorm, Samples: vk.SampleCount1Bit,
	})
	dst := g.AddTexture("dest", AttachmentInfo{
		SizeClass: SizeAbsolute, SizeX: 256, SizeY: 256,
		Format: vk.FormatR8g8b8a8Unorm, Samples: vk.SampleCount1Bit,
		Flags: AttachmentPersistent,
	})

	p, err := g.AddPass("blit", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	p.AddBlitSource(src)
	p.AddBlitDest(dst)

	_, err = g.Bake()
	require.Error(t, err)
	rgErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrInvalid, rgErr.Kind)
}

// A cyclic graph (two passes each consuming the other's output) must be
// rejected with ErrCyclic rather than hanging topoSort.
func TestBakeDetectsCycle(t *testing.T) {
	g := New()
	g.SetBackbufferDimensions(1920, 1080, vk.FormatR8g8b8a8Srgb)
	a := g.AddTexture("a", AttachmentInfo{SizeClass: SizeAbsolute, SizeX: 64, SizeY: 64, Format: vk.FormatR8g8b8a8Unorm})
	b := g.AddTexture("b", AttachmentInfo{SizeClass: SizeAbsolute, SizeX: 64, SizeY: 64, Format: vk.FormatR8g8b8a8Unorm})

	passA, err := g.AddPass("a_pass", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	passA.AddTextureInput(b)
	passA.AddColorOutput(a)

	passB, err := g.AddPass("b_pass", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	passB.AddTextureInput(a)
	passB.AddColorOutput(b)

	_, err = g.Bake()
	require.Error(t, err)
	rgErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrCyclic, rgErr.Kind)
}

// fakeRecorder is a CommandRecorder test double that only records which
// synchronization calls Execute issued, in order, so tests can assert
// Execute actually applies a DependencyEvent/DependencySemaphore edge
// rather than just computing one (the gap Bake's classification tests
// above never exercised).
type fakeRecorder struct {
	calls      []string
	eventCount uintptr
	liveEvents map[vk.Event]bool
}

func (f *fakeRecorder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	f.calls = append(f.calls, "Draw")
}
func (f *fakeRecorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	f.calls = append(f.calls, "DrawIndexed")
}
func (f *fakeRecorder) Dispatch(x, y, z uint32) { f.calls = append(f.calls, "Dispatch") }
func (f *fakeRecorder) PipelineBarrier(srcStage, dstStage vk.PipelineStageFlags, imageBarriers []vk.ImageMemoryBarrier, bufferBarriers []vk.BufferMemoryBarrier) {
	f.calls = append(f.calls, "PipelineBarrier")
}
func (f *fakeRecorder) BeginRenderPass(info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	f.calls = append(f.calls, "BeginRenderPass")
}
func (f *fakeRecorder) NextSubpass(contents vk.SubpassContents) { f.calls = append(f.calls, "NextSubpass") }
func (f *fakeRecorder) EndRenderPass()                          { f.calls = append(f.calls, "EndRenderPass") }

func (f *fakeRecorder) CreateEvent() (vk.Event, error) {
	f.eventCount++
	event := vk.Event(unsafe.Pointer(f.eventCount))
	if f.liveEvents == nil {
		f.liveEvents = map[vk.Event]bool{}
	}
	f.liveEvents[event] = true
	f.calls = append(f.calls, "CreateEvent")
	return event, nil
}
func (f *fakeRecorder) DestroyEvent(event vk.Event) {
	delete(f.liveEvents, event)
	f.calls = append(f.calls, "DestroyEvent")
}
func (f *fakeRecorder) SetEvent(event vk.Event, stage vk.PipelineStageFlags) {
	f.calls = append(f.calls, "SetEvent")
}
func (f *fakeRecorder) WaitEvents(events []vk.Event, srcStage, dstStage vk.PipelineStageFlags, imageBarriers []vk.ImageMemoryBarrier) {
	f.calls = append(f.calls, "WaitEvents")
}
func (f *fakeRecorder) ResetEvent(event vk.Event, stage vk.PipelineStageFlags) {
	f.calls = append(f.calls, "ResetEvent")
}

func (f *fakeRecorder) has(name string) bool {
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

// Scenario 2's two passes execute back to back with nothing in between,
// so Bake classifies their edge DependencyBarrier (TestBakePingPongBlurScenario
// above) and Execute must turn that into a PipelineBarrier call, never a
// VkEvent.
func TestExecuteAppliesBarrierEdge(t *testing.T) {
	g := New()
	g.SetBackbufferDimensions(1920, 1080, vk.FormatR8g8b8a8Srgb)

	blurH := g.AddTexture("blur_h", AttachmentInfo{
		SizeClass: SizeSwapchainRelative, SizeX: 1, SizeY: 1,
		Format: vk.FormatR16g16b16a16Sfloat, Samples: vk.SampleCount1Bit,
	})
	color := g.AddTexture("color", AttachmentInfo{
		SizeClass: SizeSwapchainRelative, SizeX: 1, SizeY: 1,
		Format: vk.FormatR8g8b8a8Srgb, Samples: vk.SampleCount1Bit,
		Flags: AttachmentPersistent,
	})

	passA, err := g.AddPass("blur_h_pass", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	passA.AddColorOutput(blurH)

	passB, err := g.AddPass("blur_v_pass", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	passB.AddTextureInput(blurH)
	passB.AddColorOutput(color)

	g.SetBackbufferSource("color")

	_, err = g.Bake()
	require.NoError(t, err)

	rec := &fakeRecorder{}
	beginPass := func(pp *PhysicalPass) (*vk.RenderPassBeginInfo, error) {
		return &vk.RenderPassBeginInfo{}, nil
	}
	resolveImage := func(r *Resource) (vk.Image, vk.ImageAspectFlags) {
		return vk.Image(unsafe.Pointer(uintptr(1))), vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}

	handoffs, err := g.Execute(nil, rec, beginPass, resolveImage)
	require.NoError(t, err)
	assert.Empty(t, handoffs)
	assert.True(t, rec.has("PipelineBarrier"), "adjacent same-queue edge must become a pipeline barrier")
	assert.False(t, rec.has("SetEvent"), "adjacent edge must not be treated as a split event")
	assert.False(t, rec.has("WaitEvents"))
}

// A non-adjacent same-queue edge (an unrelated pass runs between
// producer and consumer) bakes to DependencyEvent, and Execute must set
// the event after the producer's pass and wait+reset it before the
// consumer's, never silently dropping it the way a barrier-only Execute
// would.
func TestExecuteAppliesEventEdge(t *testing.T) {
	g := New()
	g.SetBackbufferDimensions(1920, 1080, vk.FormatR8g8b8a8Srgb)

	x := g.AddTexture("x", AttachmentInfo{
		SizeClass: SizeAbsolute, SizeX: 256, SizeY: 256,
		Format: vk.FormatR16Sfloat, Samples: vk.SampleCount1Bit,
	})
	y := g.AddTexture("y", AttachmentInfo{
		SizeClass: SizeAbsolute, SizeX: 256, SizeY: 256,
		Format: vk.FormatR16Sfloat, Samples: vk.SampleCount1Bit,
	})
	z := g.AddTexture("z", AttachmentInfo{
		SizeClass: SizeAbsolute, SizeX: 256, SizeY: 256,
		Format: vk.FormatR8g8b8a8Srgb, Samples: vk.SampleCount1Bit,
		Flags: AttachmentPersistent,
	})

	passA, err := g.AddPass("writes_x", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	passA.AddColorOutput(x)

	passM, err := g.AddPass("unrelated", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	passM.AddColorOutput(y)

	passB, err := g.AddPass("reads_x", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	passB.AddTextureInput(x)
	passB.AddColorOutput(z)

	sched, err := g.Bake()
	require.NoError(t, err)
	require.Len(t, sched.Edges, 1)
	assert.Equal(t, DependencyEvent, sched.Edges[0].kind)

	rec := &fakeRecorder{}
	beginPass := func(pp *PhysicalPass) (*vk.RenderPassBeginInfo, error) {
		return &vk.RenderPassBeginInfo{}, nil
	}
	resolveImage := func(r *Resource) (vk.Image, vk.ImageAspectFlags) {
		return vk.Image(unsafe.Pointer(uintptr(1))), vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}

	handoffs, err := g.Execute(nil, rec, beginPass, resolveImage)
	require.NoError(t, err)
	assert.Empty(t, handoffs)
	assert.True(t, rec.has("CreateEvent"))
	assert.True(t, rec.has("SetEvent"), "producer pass must signal the event once it finishes")
	assert.True(t, rec.has("WaitEvents"), "consumer pass must wait on the event rather than relying on a barrier")
	assert.True(t, rec.has("ResetEvent"))
	assert.True(t, rec.has("DestroyEvent"), "Execute must not leak the VkEvent it created")
	assert.Empty(t, rec.liveEvents, "every created event must be destroyed by the end of Execute")
}

// A cross-queue edge bakes to DependencySemaphore, and Execute must
// surface it as a SemaphoreHandoff rather than attempt to synchronize it
// with a barrier or event -- neither primitive crosses a queue family.
func TestExecuteReturnsSemaphoreHandoff(t *testing.T) {
	g := New()
	g.SetBackbufferDimensions(1920, 1080, vk.FormatR8g8b8a8Srgb)

	lum := g.AddTexture("lum", AttachmentInfo{
		SizeClass: SizeAbsolute, SizeX: 256, SizeY: 256,
		Format: vk.FormatR16Sfloat, Samples: vk.SampleCount1Bit,
	})

	compute, err := g.AddPass("luminance", QueueFlagAsyncCompute, noopPass{})
	require.NoError(t, err)
	compute.AddStorageReadWrite(lum)

	graphics, err := g.AddPass("tonemap", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	graphics.AddTextureInput(lum)

	_, err = g.Bake()
	require.NoError(t, err)

	rec := &fakeRecorder{}
	beginPass := func(pp *PhysicalPass) (*vk.RenderPassBeginInfo, error) {
		return &vk.RenderPassBeginInfo{}, nil
	}
	resolveImage := func(r *Resource) (vk.Image, vk.ImageAspectFlags) {
		return vk.Image(unsafe.Pointer(uintptr(1))), vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}

	handoffs, err := g.Execute(nil, rec, beginPass, resolveImage)
	require.NoError(t, err)
	require.Len(t, handoffs, 1)
	assert.Equal(t, "lum", handoffs[0].Resource)
	assert.Equal(t, QueueFlagAsyncCompute, handoffs[0].FromQueue)
	assert.Equal(t, QueueFlagGraphics, handoffs[0].ToQueue)
	assert.False(t, rec.has("PipelineBarrier"))
	assert.False(t, rec.has("SetEvent"))
	assert.False(t, rec.has("WaitEvents"))
}

// Reset must clear a prior bake's physical/history slot assignments so a
// resize can rebake from scratch without stale indices leaking through.
func TestResetClearsPhysicalAndHistorySlots(t *testing.T) {
	g := New()
	g.SetBackbufferDimensions(1920, 1080, vk.FormatR8g8b8a8Srgb)
	color := g.AddTexture("color", AttachmentInfo{
		SizeClass: SizeSwapchainRelative, SizeX: 1, SizeY: 1,
		Format: vk.FormatR8g8b8a8Srgb, Samples: vk.SampleCount1Bit,
	})
	p, err := g.AddPass("pass", QueueFlagGraphics, noopPass{})
	require.NoError(t, err)
	p.AddColorOutput(color)
	p.AddHistoryInput(color)

	_, err = g.Bake()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, color.PhysIndex(), 0)
	assert.GreaterOrEqual(t, color.HistoryPhysIndex(), 0)

	g.Reset()
	assert.Equal(t, -1, color.PhysIndex())
	assert.Equal(t, -1, color.HistoryPhysIndex())
}
