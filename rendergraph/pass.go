package rendergraph

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/ashforge/vkcore/taskcomposer"
)

// AccessKind describes how a pass touches a resource: as a color or
// depth attachment it writes, a texture it reads, or a storage
// resource it reads and writes. Mirrors the distinct
// Add*Output/Add*Input method families on Luna's RenderPass.
type AccessKind int

const (
	AccessColorOutput AccessKind = iota
	AccessDepthStencilOutput
	AccessDepthStencilInput
	AccessTextureInput
	AccessStorageReadWrite
	AccessBlitSource
	AccessBlitDest
	AccessHistoryInput // previous frame's version of a color output, double-buffered
)

// Access is one edge of the graph: the pass, the resource it touches,
// and how.
type Access struct {
	Resource *Resource
	Kind     AccessKind
}

// Interface is the capability set a concrete pass implementation
// provides to the graph. Build is the only required method; every
// other behavior below is an optional capability the graph
// type-asserts for at Bake/Execute time, mirroring Luna's
// RenderPassInterface (RenderGraph.hpp) one-for-one:
// RenderPassIsConditional -> Conditional, EnqueuePrepareRenderPass ->
// Preparer, Setup -> DeviceSetup, SetupDependencies -> DependencySetup,
// GetClearColor/GetClearDepthStencil -> ColorClearer/DepthClearer,
// RenderPassIsSeparateLayered + BuildRenderPassSeparateLayer ->
// LayeredBuilder. Per SPEC_FULL.md §4's redesign note, the full set is
// carried here as "all optional except Build" rather than one fat
// interface every pass must implement in full.
type Interface interface {
	// Build records the pass's commands into cmd, which is already
	// inside the pass's render pass instance (or, for compute/transfer
	// passes, simply open for recording).
	Build(cmd CommandRecorder) error
}

// Conditional lets a pass opt out of running a given frame without
// being removed from the graph topology (Luna's
// RenderPassIsConditional/NeedRenderPass). A pass that does not
// implement this always runs.
type Conditional interface {
	NeedsRender() bool
}

// Preparer enqueues CPU-side work (culling, uniform writes, staging
// uploads) onto the frame's TaskComposer before any pass records
// commands -- spec.md §4.6 Execute step 1, Luna's
// EnqueuePrepareRenderPass. Execute enqueues one task per pass that
// implements this into a single task group, so the Prepare calls may run
// concurrently and in any order, and waits for that group before
// recording begins.
type Preparer interface {
	Prepare(composer *taskcomposer.TaskComposer) error
}

// DeviceSetup lets a pass create pipeline/descriptor state once
// physical resources are known, during Execute just ahead of
// recording -- Luna's RenderPassInterface.Setup. Rarely needed once a
// pass's pipeline is built once in its constructor, but kept for passes
// whose pipeline depends on resolved attachment formats.
type DeviceSetup interface {
	Setup() error
}

// DependencySetup lets a pass register additional resource accesses
// against the graph before Bake starts processing -- Luna's
// SetupDependencies, used by passes whose access list depends on
// runtime state (e.g. how many shadow cascades are enabled) rather than
// being fixed at AddPass time.
type DependencySetup interface {
	SetupDependencies(g *RenderGraph) error
}

// ColorClearer supplies the clear value for one of a pass's color
// attachments, by attachment index in AddColorOutput call order --
// Luna's GetClearColor. Callers build the value with vk.NewClearValue,
// the same helper the teacher's main render pass uses.
type ColorClearer interface {
	ClearColor(attachment int) (vk.ClearValue, bool)
}

// DepthClearer supplies the depth/stencil clear value for a pass's
// depth attachment -- Luna's GetClearDepthStencil.
type DepthClearer interface {
	ClearDepthStencil() (vk.ClearValue, bool)
}

// LayeredBuilder marks a pass that must record once per array layer
// rather than once for the whole attachment -- Luna's
// RenderPassIsSeparateLayered + BuildRenderPassSeparateLayer, spec.md's
// "separate_layered"/build_commands_for_layer. SeparateLayers returns
// the layer count to iterate; Execute calls BuildLayer once per layer
// instead of calling Build.
type LayeredBuilder interface {
	SeparateLayers() uint32
	BuildLayer(cmd CommandRecorder, layer uint32) error
}

// CommandRecorder is the minimal surface Build/BuildLayer need;
// rendergraph does not import vkcore directly so CommandRecorder is
// satisfied by *vkcore.CommandBuffer without an import cycle (vkcore
// has no dependency on rendergraph).
type CommandRecorder interface {
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	Dispatch(x, y, z uint32)
	PipelineBarrier(srcStage, dstStage vk.PipelineStageFlags, imageBarriers []vk.ImageMemoryBarrier, bufferBarriers []vk.BufferMemoryBarrier)
	BeginRenderPass(info *vk.RenderPassBeginInfo, contents vk.SubpassContents)
	NextSubpass(contents vk.SubpassContents)
	EndRenderPass()

	// CreateEvent/DestroyEvent/SetEvent/WaitEvents/ResetEvent back the
	// DependencyEvent dependency kind Bake synthesizes for same-queue
	// edges with useful work between producer and consumer (spec.md
	// §4.6 step 7's split event). Execute owns the event's lifetime for
	// the duration of one frame's recording.
	CreateEvent() (vk.Event, error)
	DestroyEvent(event vk.Event)
	SetEvent(event vk.Event, stage vk.PipelineStageFlags)
	WaitEvents(events []vk.Event, srcStage, dstStage vk.PipelineStageFlags, imageBarriers []vk.ImageMemoryBarrier)
	ResetEvent(event vk.Event, stage vk.PipelineStageFlags)
}

// Pass is a node in the graph: a name, the queue it prefers, its
// accesses and its Interface implementation. Grounded on Luna's
// RenderPass: each of its Add*Output/Add*Input methods is kept as a
// one-line wrapper over a shared addAccess helper that records the
// matching AccessKind.
type Pass struct {
	Name     string
	Queues   QueueFlag
	Impl     Interface
	accesses []Access

	index int
}

func newPass(name string, queues QueueFlag, impl Interface) *Pass {
	return &Pass{Name: name, Queues: queues, Impl: impl}
}

func (p *Pass) addAccess(r *Resource, kind AccessKind) {
	p.accesses = append(p.accesses, Access{Resource: r, Kind: kind})
}

func (p *Pass) AddColorOutput(r *Resource)       { p.addAccess(r, AccessColorOutput) }
func (p *Pass) AddDepthStencilOutput(r *Resource) { p.addAccess(r, AccessDepthStencilOutput) }
func (p *Pass) AddDepthStencilInput(r *Resource)  { p.addAccess(r, AccessDepthStencilInput) }
func (p *Pass) AddTextureInput(r *Resource)       { p.addAccess(r, AccessTextureInput) }
func (p *Pass) AddStorageReadWrite(r *Resource)   { p.addAccess(r, AccessStorageReadWrite) }
func (p *Pass) AddBlitSource(r *Resource)         { p.addAccess(r, AccessBlitSource) }
func (p *Pass) AddBlitDest(r *Resource)           { p.addAccess(r, AccessBlitDest) }
func (p *Pass) AddHistoryInput(r *Resource)       { p.addAccess(r, AccessHistoryInput) }

func (p *Pass) Accesses() []Access { return p.accesses }

// Outputs returns every resource this pass writes, the set the
// topological sort and aliasing passes need to find dependency edges.
func (p *Pass) Outputs() []*Resource {
	var out []*Resource
	for _, a := range p.accesses {
		switch a.Kind {
		case AccessColorOutput, AccessDepthStencilOutput, AccessStorageReadWrite, AccessBlitDest:
			out = append(out, a.Resource)
		}
	}
	return out
}

// Inputs returns every resource this pass reads (excluding history
// inputs, which deliberately do not create an edge to the producer of
// the *current* frame's version -- they read last frame's, per
// spec.md's history-resource semantics).
func (p *Pass) Inputs() []*Resource {
	var in []*Resource
	for _, a := range p.accesses {
		switch a.Kind {
		case AccessDepthStencilInput, AccessTextureInput, AccessStorageReadWrite, AccessBlitSource:
			in = append(in, a.Resource)
		}
	}
	return in
}

// needsRender reports whether p should run this frame, defaulting to
// true for passes that don't implement Conditional.
func needsRender(impl Interface) bool {
	if c, ok := impl.(Conditional); ok {
		return c.NeedsRender()
	}
	return true
}

// runSetup calls impl's DeviceSetup hook if it implements one; a no-op
// otherwise.
func runSetup(impl Interface) error {
	if s, ok := impl.(DeviceSetup); ok {
		return s.Setup()
	}
	return nil
}

// accessLayout returns the Vulkan image layout a given AccessKind
// requires, used by the barrier synthesizer.
func accessLayout(kind AccessKind) vk.ImageLayout {
	switch kind {
	case AccessColorOutput:
		return vk.ImageLayoutColorAttachmentOptimal
	case AccessDepthStencilOutput:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case AccessDepthStencilInput:
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case AccessTextureInput, AccessHistoryInput:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case AccessStorageReadWrite:
		return vk.ImageLayoutGeneral
	case AccessBlitSource:
		return vk.ImageLayoutTransferSrcOptimal
	case AccessBlitDest:
		return vk.ImageLayoutTransferDstOptimal
	default:
		return vk.ImageLayoutUndefined
	}
}
