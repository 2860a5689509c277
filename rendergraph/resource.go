// Package rendergraph compiles a declarative graph of passes and
// resources into a concrete schedule of physical render passes,
// barriers and queue submissions. Grounded line-for-line on
// Luna/Include/Luna/Renderer/RenderGraph.hpp, re-expressed in Go: the
// C++ class hierarchy (RenderResource / RenderBufferResource /
// RenderTextureResource) becomes one struct with a Kind discriminant
// plus kind-specific info, which is the idiomatic Go shape the pack's
// larger engines (gviegas-neo3's driver/vk) use in place of C++
// inheritance.
package rendergraph

import vk "github.com/vulkan-go/vulkan"

// AttachmentFlag mirrors Luna's AttachmentInfoFlagBits: whether a
// texture resource is persistent, gets an unorm/sRGB alias view, or
// generates mips. How its extent is specified is SizeClass's job.
type AttachmentFlag uint32

const (
	AttachmentPersistent AttachmentFlag = 1 << iota
	AttachmentUnormSrgbAlias
	AttachmentGenerateMips
)

// SizeClass mirrors Luna's SizeClass: whether an attachment's extent is
// given as an absolute size, a fraction of the swapchain size, or a
// fraction of another named resource's size.
type SizeClass int

const (
	SizeSwapchainRelative SizeClass = iota
	SizeAbsolute
	SizeInputRelative
)

// QueueFlag mirrors Luna's RenderGraphQueueFlagBits: which queue a pass
// prefers to execute on. AsyncGraphics and AsyncCompute are distinct
// bits so a pass can ask for "compute work, but not necessarily off the
// graphics queue" without being conflated with true async compute.
type QueueFlag uint32

const (
	QueueFlagGraphics QueueFlag = 1 << iota
	QueueFlagCompute
	QueueFlagAsyncGraphics
	QueueFlagAsyncCompute
)

// ResourceKind discriminates the two resource shapes the graph
// understands. Buffers are kept as one field set, textures another,
// rather than separate BufferResource/TextureResource interfaces --
// Go's structural composition makes the Luna hierarchy's virtual
// dispatch (GetBufferInfo/GetAttachmentInfo) unnecessary.
type ResourceKind int

const (
	ResourceBuffer ResourceKind = iota
	ResourceTexture
)

// BufferInfo mirrors Luna's BufferInfo: a buffer resource's size and
// usage flags. Buffers are never aliased: each buffer resource gets its
// own physical slot in Bake.
type BufferInfo struct {
	Size  vk.DeviceSize
	Usage vk.BufferUsageFlagBits
}

// AttachmentInfo mirrors Luna's AttachmentInfo: a texture resource's
// format/size/sample description plus the flags controlling how its
// extent resolves against the swapchain or another resource.
type AttachmentInfo struct {
	SizeClass  SizeClass
	SizeX      float32
	SizeY      float32
	SizeRelativeName string
	Format     vk.Format
	Samples    vk.SampleCountFlagBits
	Flags      AttachmentFlag
	Levels     uint32
	Layers     uint32
}

// equal reports whether two AttachmentInfos describe compatible
// physical images. Bake does not call it: aliasResources compares the
// resolved ResourceDimensions' format, extent and sample count instead.
func (a AttachmentInfo) equal(b AttachmentInfo) bool {
	return a.Format == b.Format && a.Samples == b.Samples &&
		a.SizeClass == b.SizeClass && a.SizeX == b.SizeX && a.SizeY == b.SizeY &&
		a.SizeRelativeName == b.SizeRelativeName && a.Levels == b.Levels && a.Layers == b.Layers
}

// ResourceDimensions mirrors Luna's ResourceDimensions: the fully
// resolved, concrete size/format a resource bakes down to, after
// SizeClass has been evaluated against the swapchain's actual extent.
// Two resources with equal ResourceDimensions (ignoring Name/Transient)
// can share one physical allocation.
type ResourceDimensions struct {
	BufferInfo     BufferInfo
	Format         vk.Format
	Extent         vk.Extent2D
	Samples        vk.SampleCountFlagBits
	Levels         uint32
	Layers         uint32
	Queues         QueueFlag
	ImageUsage     vk.ImageUsageFlagBits
	BufferUsage    vk.BufferUsageFlagBits
	IsBufferLike   bool
	UnormSrgbAlias bool
	Name           string
	Transient      bool
}

// UsesSemaphore reports whether a producer->consumer edge between two
// passes touching this resource must synchronize with a full semaphore
// rather than an in-queue barrier or split event. Plain Compute is
// folded into Graphics first, so a Compute->Graphics edge stays on one
// queue; after that, an edge is semaphore-synchronized whenever the two
// sides' queue flags differ. AsyncGraphics/AsyncCompute are not folded
// -- they stay distinct from plain Graphics/Compute so a pass that asks
// for "async" work is never silently coalesced onto the same queue as
// its dependency, while two passes on the same async queue still need
// no semaphore.
func (d ResourceDimensions) UsesSemaphore(producerQueues, consumerQueues QueueFlag) bool {
	fold := func(q QueueFlag) QueueFlag {
		if q&QueueFlagCompute != 0 {
			q = q&^QueueFlagCompute | QueueFlagGraphics
		}
		return q
	}
	producerQueues, consumerQueues = fold(producerQueues), fold(consumerQueues)
	asyncBits := QueueFlagAsyncGraphics | QueueFlagAsyncCompute
	if producerQueues&asyncBits != 0 || consumerQueues&asyncBits != 0 {
		return producerQueues&asyncBits != consumerQueues&asyncBits || producerQueues != consumerQueues
	}
	return producerQueues != consumerQueues
}

// Resource is a named node in the graph: either a buffer or a texture,
// referenced by passes through *Resource pointers held in their Access
// entries. Aliasing records the physical slot in physIdx on the
// Resource itself, so pass definitions stay valid across Bake calls.
type Resource struct {
	Name    string
	Kind    ResourceKind
	Buffer  BufferInfo
	Texture AttachmentInfo

	index   int // position in RenderGraph.order, set at registration
	physIdx int // physical resource slot assigned during Bake, -1 until baked

	// historyPhysIdx holds the second physical slot spec.md §3 invariant
	// 3 requires for a resource that some pass reads via
	// AddHistoryInput: the history read observes the previous frame's
	// write, so it cannot share a physical slot with the current
	// frame's write target. -1 when no pass reads this resource as
	// history.
	historyPhysIdx int
}

func (r *Resource) Index() int            { return r.index }
func (r *Resource) PhysIndex() int        { return r.physIdx }
func (r *Resource) HistoryPhysIndex() int { return r.historyPhysIdx }

func newBufferResource(name string, info BufferInfo) *Resource {
	return &Resource{Name: name, Kind: ResourceBuffer, Buffer: info, physIdx: -1, historyPhysIdx: -1}
}

func newTextureResource(name string, info AttachmentInfo) *Resource {
	return &Resource{Name: name, Kind: ResourceTexture, Texture: info, physIdx: -1, historyPhysIdx: -1}
}
