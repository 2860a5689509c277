package rendergraph

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/ashforge/vkcore/taskcomposer"
)

// Error classifies a graph-compile failure. rendergraph does not
// import vkcore's Kind enum directly (that would be a needless
// cross-package coupling for a type with only four values relevant
// here); callers get a *rendergraph.Error, not a *vkcore.Error.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrInvalid
	ErrCyclic
	ErrBakeFailed
)

type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("rendergraph: %s", e.Reason) }

func errInvalid(format string, args ...interface{}) error {
	return &Error{Kind: ErrInvalid, Reason: fmt.Sprintf(format, args...)}
}

// PhysicalPass is one or more logical Pass values merged into a single
// VkRenderPass instance (subpass merging, spec.md §4.6 step 4): the
// teacher's hardcoded one-subpass-per-renderpass shape generalizes here
// to "merge consecutive same-queue graphics passes that share the
// exact same color+depth attachment set", the simplest subpass-merge
// rule that still captures the common case (a G-buffer fill followed
// immediately by a lighting pass over the same attachments).
type PhysicalPass struct {
	Passes []*Pass
	Color  []*Resource
	Depth  *Resource
	Queues QueueFlag
}

// Schedule is Bake's output: physical passes in execution order plus
// the synthesized dependency edges between them.
type Schedule struct {
	PhysicalPasses []*PhysicalPass
	Edges          []barrierEdge
	Dimensions     map[*Resource]ResourceDimensions
}

// RenderGraph is the top-level graph builder, mirroring Luna's
// RenderGraph class: callers register resources and passes, then call
// Bake once per swapchain-size change (and Execute once per frame
// thereafter). Grounded on
// Luna/Include/Luna/Renderer/RenderGraph.hpp's RenderGraph class shape.
type RenderGraph struct {
	resources map[string]*Resource
	order     []*Resource
	passes    []*Pass
	passIndex map[string]*Pass

	backbufferWidth, backbufferHeight uint32
	backbufferFormat                  vk.Format
	backbufferSource                  string

	schedule *Schedule
}

func New() *RenderGraph {
	return &RenderGraph{
		resources: make(map[string]*Resource),
		passIndex: make(map[string]*Pass),
	}
}

// SetBackbufferDimensions records the swapchain's current size and
// format; every SizeSwapchainRelative texture resolves against these
// values during Bake. Mirrors RenderGraph::SetBackbufferDimensions.
func (g *RenderGraph) SetBackbufferDimensions(width, height uint32, format vk.Format) {
	g.backbufferWidth, g.backbufferHeight, g.backbufferFormat = width, height, format
}

// SetBackbufferSource names the texture resource that is presented:
// Bake marks its entry in Schedule.Dimensions as non-transient. No
// final layout is recorded for it; Bake emits no transition to
// PresentSrcKhr.
func (g *RenderGraph) SetBackbufferSource(name string) {
	g.backbufferSource = name
}

func (g *RenderGraph) AddBuffer(name string, info BufferInfo) *Resource {
	if r, ok := g.resources[name]; ok {
		return r
	}
	r := newBufferResource(name, info)
	r.index = len(g.order)
	g.resources[name] = r
	g.order = append(g.order, r)
	return r
}

func (g *RenderGraph) AddTexture(name string, info AttachmentInfo) *Resource {
	if r, ok := g.resources[name]; ok {
		return r
	}
	r := newTextureResource(name, info)
	r.index = len(g.order)
	g.resources[name] = r
	g.order = append(g.order, r)
	return r
}

// AddPass registers a new pass. Names must be unique.
func (g *RenderGraph) AddPass(name string, queues QueueFlag, impl Interface) (*Pass, error) {
	if _, ok := g.passIndex[name]; ok {
		return nil, errInvalid("pass %q already registered", name)
	}
	p := newPass(name, queues, impl)
	p.index = len(g.passes)
	g.passes = append(g.passes, p)
	g.passIndex[name] = p
	return p, nil
}

// Reset clears a previously computed Bake schedule, forcing the next
// Bake to rebuild from scratch. Resources and passes are untouched;
// callers re-register the graph topology once per application
// lifetime and call Reset+Bake on every swapchain resize. Mirrors
// RenderGraph::Reset.
func (g *RenderGraph) Reset() {
	g.schedule = nil
	for _, r := range g.order {
		r.physIdx = -1
		r.historyPhysIdx = -1
	}
}

// Bake runs the full compile pipeline: validate, resolve sizes,
// topological sort, physical-pass grouping, resource aliasing,
// barrier/event/semaphore synthesis (where Compute passes count as
// Graphics when deciding whether an edge crosses queues) and backbuffer
// tagging -- in that order.
func (g *RenderGraph) Bake() (*Schedule, error) {
	for _, p := range g.passes {
		if ds, ok := p.Impl.(DependencySetup); ok {
			if err := ds.SetupDependencies(g); err != nil {
				return nil, err
			}
		}
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	dims, err := g.resolveSizes()
	if err != nil {
		return nil, err
	}
	sorted, err := g.topoSort()
	if err != nil {
		return nil, err
	}
	physical := g.groupPhysicalPasses(sorted)
	g.aliasResources(sorted, dims)
	edges := g.synthesizeBarriers(sorted, dims)
	g.tagBackbuffer(dims)

	g.schedule = &Schedule{PhysicalPasses: physical, Edges: edges, Dimensions: dims}
	return g.schedule, nil
}

// validate checks the structural invariants Bake depends on: every
// resource a pass accesses must have been registered through AddBuffer/
// AddTexture, and a resource explicitly marked non-persistent
// (transient, i.e. lacking AttachmentPersistent) may never be the
// source of a blit -- a blit source must survive past the end of the
// pass that issues it long enough for the transfer queue to read it,
// which a resource the aliasing pass is free to recycle immediately
// cannot guarantee. This is the one Open Question spec.md left
// unresolved; the decision here is that such a graph is
// ErrInvalid rather than silently promoting the resource to
// persistent.
func (g *RenderGraph) validate() error {
	for _, p := range g.passes {
		for _, a := range p.accesses {
			if _, ok := g.resources[a.Resource.Name]; !ok {
				return errInvalid("pass %q references unregistered resource %q", p.Name, a.Resource.Name)
			}
			if a.Kind == AccessBlitSource && a.Resource.Kind == ResourceTexture {
				if a.Resource.Texture.Flags&AttachmentPersistent == 0 {
					return errInvalid("pass %q blits from transient resource %q: mark it persistent first", p.Name, a.Resource.Name)
				}
			}
		}
	}
	return nil
}

// resolveSizes computes each texture resource's concrete ResourceDimensions.
// Absolute and swapchain-relative sizes resolve in one pass;
// input-relative sizes resolve in a second pass once their named
// dependency is known, mirroring Luna's two-phase
// ResourceDimensions resolution order.
func (g *RenderGraph) resolveSizes() (map[*Resource]ResourceDimensions, error) {
	dims := make(map[*Resource]ResourceDimensions, len(g.order))

	for _, r := range g.order {
		if r.Kind == ResourceBuffer {
			dims[r] = ResourceDimensions{
				BufferInfo:   r.Buffer,
				IsBufferLike: true,
				BufferUsage:  r.Buffer.Usage,
				Name:         r.Name,
			}
			continue
		}
		info := r.Texture
		if info.SizeClass == SizeInputRelative {
			continue
		}
		d := ResourceDimensions{Format: info.Format, Samples: info.Samples, Levels: max1(info.Levels), Layers: max1(info.Layers), Name: r.Name}
		switch info.SizeClass {
		case SizeAbsolute:
			d.Extent = vk.Extent2D{Width: uint32(info.SizeX), Height: uint32(info.SizeY)}
		case SizeSwapchainRelative:
			d.Extent = vk.Extent2D{
				Width:  uint32(float32(g.backbufferWidth) * nonZero(info.SizeX)),
				Height: uint32(float32(g.backbufferHeight) * nonZero(info.SizeY)),
			}
		}
		d.Transient = info.Flags&AttachmentPersistent == 0
		d.UnormSrgbAlias = info.Flags&AttachmentUnormSrgbAlias != 0
		dims[r] = d
	}

	for _, r := range g.order {
		if r.Kind != ResourceTexture || r.Texture.SizeClass != SizeInputRelative {
			continue
		}
		rel, ok := g.resources[r.Texture.SizeRelativeName]
		if !ok {
			return nil, errInvalid("resource %q is sized relative to unregistered resource %q", r.Name, r.Texture.SizeRelativeName)
		}
		base, ok := dims[rel]
		if !ok {
			return nil, errInvalid("resource %q's size-relative target %q has no resolved dimensions", r.Name, rel.Name)
		}
		info := r.Texture
		dims[r] = ResourceDimensions{
			Format:    info.Format,
			Samples:   info.Samples,
			Levels:    max1(info.Levels),
			Layers:    max1(info.Layers),
			Name:      r.Name,
			Transient: info.Flags&AttachmentPersistent == 0,
			Extent: vk.Extent2D{
				Width:  uint32(float32(base.Extent.Width) * nonZero(info.SizeX)),
				Height: uint32(float32(base.Extent.Height) * nonZero(info.SizeY)),
			},
		}
	}
	return dims, nil
}

func max1(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}

func nonZero(v float32) float32 {
	if v == 0 {
		return 1
	}
	return v
}

// topoSort orders passes so every pass appears after every pass that
// produces a resource it reads. Kahn's algorithm; a remaining in-degree
// after the queue empties means a cycle, ErrCyclic (spec.md §4.6
// step 2 names this as the first structural check after validation).
func (g *RenderGraph) topoSort() ([]*Pass, error) {
	producer := make(map[*Resource]*Pass)
	for _, p := range g.passes {
		for _, out := range p.Outputs() {
			producer[out] = p
		}
	}

	inDegree := make(map[*Pass]int, len(g.passes))
	dependents := make(map[*Pass][]*Pass)
	for _, p := range g.passes {
		for _, in := range p.Inputs() {
			if prod, ok := producer[in]; ok && prod != p {
				inDegree[p]++
				dependents[prod] = append(dependents[prod], p)
			}
		}
	}

	var queue []*Pass
	for _, p := range g.passes {
		if inDegree[p] == 0 {
			queue = append(queue, p)
		}
	}

	var sorted []*Pass
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		sorted = append(sorted, p)
		for _, dep := range dependents[p] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) != len(g.passes) {
		return nil, &Error{Kind: ErrCyclic, Reason: "render graph contains a cycle"}
	}
	return sorted, nil
}

// groupPhysicalPasses merges consecutive same-queue passes in sorted
// order that target the exact same color+depth attachment set into one
// PhysicalPass (subpass merge). Passes with no color/depth output
// (pure compute/transfer) are never merged with anything.
func (g *RenderGraph) groupPhysicalPasses(sorted []*Pass) []*PhysicalPass {
	var physical []*PhysicalPass
	for _, p := range sorted {
		color, depth := passAttachments(p)
		if len(color) == 0 && depth == nil {
			physical = append(physical, &PhysicalPass{Passes: []*Pass{p}, Queues: p.Queues})
			continue
		}
		if n := len(physical); n > 0 {
			last := physical[n-1]
			if last.Queues == p.Queues && sameAttachments(last.Color, color) && last.Depth == depth {
				last.Passes = append(last.Passes, p)
				continue
			}
		}
		physical = append(physical, &PhysicalPass{Passes: []*Pass{p}, Color: color, Depth: depth, Queues: p.Queues})
	}
	return physical
}

func passAttachments(p *Pass) (color []*Resource, depth *Resource) {
	for _, a := range p.accesses {
		switch a.Kind {
		case AccessColorOutput:
			color = append(color, a.Resource)
		case AccessDepthStencilOutput:
			depth = a.Resource
		}
	}
	return color, depth
}

func sameAttachments(a, b []*Resource) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// aliasResources assigns a physIdx to every resource, reusing the slot
// of an earlier resource whose lifetime interval (first producing pass
// index to last consuming pass index, in sorted order) has already
// ended and whose ResourceDimensions are compatible. Greedy first-fit
// interval coloring -- the same algorithm Luna's comment on
// "_physicalDimensions" describes as "bin resources by compatible
// lifetime", simplified from Luna's full liveness analysis (which also
// accounts for per-queue timelines) since rendergraph schedules a
// single logical timeline per Bake; lifetimes are not tracked per
// queue.
func (g *RenderGraph) aliasResources(sorted []*Pass, dims map[*Resource]ResourceDimensions) {
	firstUse := map[*Resource]int{}
	lastUse := map[*Resource]int{}
	for i, p := range sorted {
		for _, a := range p.accesses {
			r := a.Resource
			if _, ok := firstUse[r]; !ok {
				firstUse[r] = i
			}
			lastUse[r] = i
		}
	}

	var slots []aliasSlot

	for _, r := range g.order {
		d, ok := dims[r]
		if !ok || !d.Transient || d.IsBufferLike {
			// persistent resources and buffers never alias in this pass;
			// buffers would need a separate size-class notion of
			// "transient" that spec.md does not define, so they always
			// get their own physical slot.
			r.physIdx = len(slots)
			slots = append(slots, aliasSlot{dims: d, freeAt: lastUse[r] + 1})
			continue
		}
		start := firstUse[r]
		assigned := -1
		for i := range slots {
			if slots[i].freeAt <= start && slots[i].dims.Format == d.Format &&
				slots[i].dims.Extent == d.Extent && slots[i].dims.Samples == d.Samples {
				assigned = i
				break
			}
		}
		if assigned < 0 {
			assigned = len(slots)
			slots = append(slots, aliasSlot{})
		}
		slots[assigned].dims = d
		slots[assigned].freeAt = lastUse[r] + 1
		r.physIdx = assigned
	}

	g.assignHistorySlots(dims, len(slots))
}

// aliasSlot is one physical allocation the aliasing pass may hand out to
// more than one logical resource, provided their lifetimes never
// overlap and their dimensions match.
type aliasSlot struct {
	dims   ResourceDimensions
	freeAt int
}

// assignHistorySlots hands every resource some pass reads via
// AddHistoryInput a second, dedicated physical slot that is never
// reused by the regular aliasing loop above (spec.md §3 invariant 3,
// §4.6 step 6): the history read observes last frame's write, so the
// two frames' worth of the same logical resource must be double-
// buffered rather than sharing one physical image. nextSlot is the
// count of slots the regular aliasing pass already handed out; history
// slots are numbered starting right after them and never collide with
// a regular physIdx.
func (g *RenderGraph) assignHistorySlots(dims map[*Resource]ResourceDimensions, nextSlot int) {
	seen := map[*Resource]bool{}
	for _, p := range g.passes {
		for _, a := range p.accesses {
			if a.Kind != AccessHistoryInput || seen[a.Resource] {
				continue
			}
			seen[a.Resource] = true
			a.Resource.historyPhysIdx = nextSlot
			nextSlot++
		}
	}
}

// synthesizeBarriers walks, per resource, the ordered list of passes
// that access it and emits one barrierEdge per consecutive pair,
// classified by classifyDependency.
func (g *RenderGraph) synthesizeBarriers(sorted []*Pass, dims map[*Resource]ResourceDimensions) []barrierEdge {
	order := make(map[*Pass]int, len(sorted))
	for i, p := range sorted {
		order[p] = i
	}

	type touch struct {
		pass  *Pass
		kind  AccessKind
		index int
	}
	touches := map[*Resource][]touch{}
	for _, p := range sorted {
		for _, a := range p.accesses {
			touches[a.Resource] = append(touches[a.Resource], touch{pass: p, kind: a.Kind, index: order[p]})
		}
	}

	var edges []barrierEdge
	for r, list := range touches {
		for i := 1; i < len(list); i++ {
			prev, cur := list[i-1], list[i]
			adjacent := cur.index == prev.index+1
			kind := classifyDependency(dims[r], prev.pass.Queues, cur.pass.Queues, adjacent)
			srcStage, srcAccess := accessStageMask(prev.kind)
			dstStage, dstAccess := accessStageMask(cur.kind)
			edges = append(edges, barrierEdge{
				resource:  r,
				producer:  prev.pass,
				consumer:  cur.pass,
				kind:      kind,
				srcStage:  srcStage,
				dstStage:  dstStage,
				srcAccess: srcAccess,
				dstAccess: dstAccess,
				oldLayout: accessLayout(prev.kind),
				newLayout: accessLayout(cur.kind),
			})
		}
	}
	return edges
}

// tagBackbuffer marks the backbuffer source resource's entry in dims as
// non-transient. It records no layout and adds no barrier, and since it
// runs after aliasResources it does not change slot assignment.
func (g *RenderGraph) tagBackbuffer(dims map[*Resource]ResourceDimensions) {
	if g.backbufferSource == "" {
		return
	}
	if r, ok := g.resources[g.backbufferSource]; ok {
		d := dims[r]
		d.Transient = false
		dims[r] = d
	}
}

// SemaphoreHandoff describes one DependencySemaphore edge the last Bake
// synthesized (spec.md §4.6 step 7's cross-queue case, exercised by the
// §8.3 queue hand-off scenario): work recorded on FromQueue must signal
// a semaphore that the submission on ToQueue waits on, at DstStage,
// before any of its commands run. Execute cannot act on this itself --
// crossing a queue means ending the command buffer it was given and
// requesting a new one from a different queue's pool, a decision only
// the Device-owning caller can make -- so Execute returns every
// handoff it found and leaves the actual Device.Submit wait/signal
// wiring (waitSemaphores/waitStages/signalTimeline) to that caller.
type SemaphoreHandoff struct {
	Resource  string
	FromQueue QueueFlag
	ToQueue   QueueFlag
	SrcStage  vk.PipelineStageFlags
	DstStage  vk.PipelineStageFlags
}

// Execute runs every physical pass in schedule order, issuing barriers
// and split events ahead of each pass and delegating command recording
// to each constituent pass's Interface.Build. beginPass lets the caller
// (cmd/triangle, or a future Device-integrated driver) supply the
// actual VkRenderPass/VkFramebuffer lookup (rpcache) without
// rendergraph importing that package; Execute fills in clear values
// from any ColorClearer/DepthClearer the pass implements before handing
// the RenderPassBeginInfo to cmd.BeginRenderPass. The returned
// SemaphoreHandoff slice lists every cross-queue edge Bake found;
// same-queue edges are fully handled inside this call (a plain barrier
// when producer and consumer are adjacent, a VkEvent set/wait pair
// otherwise) per spec.md §4.6 step 7.
//
// Step 1 (spec.md §4.6) runs before any of this: every pass that
// implements Preparer gets its Prepare called against composer so
// CPU-side work (culling, uniform writes) overlaps with the previous
// frame's GPU work, and the resulting task group is waited on before
// recording starts. composer may be nil, in which case Prepare is
// skipped entirely (a caller not yet wired to a worker pool still gets
// a correct, just less overlapped, recording).
func (g *RenderGraph) Execute(composer *taskcomposer.TaskComposer, cmd CommandRecorder, beginPass func(pp *PhysicalPass) (*vk.RenderPassBeginInfo, error), resolveImage func(r *Resource) (vk.Image, vk.ImageAspectFlags)) ([]SemaphoreHandoff, error) {
	if g.schedule == nil {
		return nil, &Error{Kind: ErrBakeFailed, Reason: "Execute called before a successful Bake"}
	}

	if composer != nil {
		group := composer.BeginPipelineStage()
		for _, pp := range g.schedule.PhysicalPasses {
			for _, p := range pp.Passes {
				prep, ok := p.Impl.(Preparer)
				if !ok {
					continue
				}
				group.Enqueue(func(threadID int) {
					_ = prep.Prepare(composer)
				})
			}
		}
		composer.GetOutgoingTask()
		group.Wait()
	}

	edgesByConsumer := map[*Pass][]int{}
	edgesByProducer := map[*Pass][]int{}
	for i, e := range g.schedule.Edges {
		edgesByConsumer[e.consumer] = append(edgesByConsumer[e.consumer], i)
		edgesByProducer[e.producer] = append(edgesByProducer[e.producer], i)
	}

	// events holds the VkEvent backing each DependencyEvent edge, keyed
	// by its index into g.schedule.Edges; created the first time the
	// edge's producer pass runs (always before its consumer, since
	// physical passes execute in baked topological order) and destroyed
	// once this frame's recording finishes.
	events := map[int]vk.Event{}
	defer func() {
		for _, ev := range events {
			cmd.DestroyEvent(ev)
		}
	}()

	var handoffs []SemaphoreHandoff

	for _, pp := range g.schedule.PhysicalPasses {
		for _, p := range pp.Passes {
			if !needsRender(p.Impl) {
				continue
			}
			var imageBarriers []vk.ImageMemoryBarrier
			var srcStage, dstStage vk.PipelineStageFlags
			var waitEvents []vk.Event
			var evBarriers []vk.ImageMemoryBarrier
			var evSrcStage, evDstStage vk.PipelineStageFlags
			for _, idx := range edgesByConsumer[p] {
				e := g.schedule.Edges[idx]
				switch e.kind {
				case DependencyBarrier:
					if resolveImage == nil {
						continue
					}
					img, aspect := resolveImage(e.resource)
					imageBarriers = append(imageBarriers, e.imageBarrier(img, aspect))
					srcStage |= e.srcStage
					dstStage |= e.dstStage
				case DependencyEvent:
					if resolveImage == nil {
						continue
					}
					ev, ok := events[idx]
					if !ok {
						// Defensive: Bake only classifies an edge as
						// DependencyEvent for non-adjacent same-queue
						// passes, so the producer's physical pass
						// always ran first and created this entry.
						continue
					}
					img, aspect := resolveImage(e.resource)
					waitEvents = append(waitEvents, ev)
					evBarriers = append(evBarriers, e.imageBarrier(img, aspect))
					evSrcStage |= e.srcStage
					evDstStage |= e.dstStage
				case DependencySemaphore:
					handoffs = append(handoffs, SemaphoreHandoff{
						Resource:  e.resource.Name,
						FromQueue: e.producer.Queues,
						ToQueue:   e.consumer.Queues,
						SrcStage:  e.srcStage,
						DstStage:  e.dstStage,
					})
				}
			}
			if len(imageBarriers) > 0 {
				cmd.PipelineBarrier(srcStage, dstStage, imageBarriers, nil)
			}
			if len(waitEvents) > 0 {
				cmd.WaitEvents(waitEvents, evSrcStage, evDstStage, evBarriers)
				for _, ev := range waitEvents {
					cmd.ResetEvent(ev, evSrcStage)
				}
			}
			if err := runSetup(p.Impl); err != nil {
				return handoffs, err
			}
		}

		attached := len(pp.Color) > 0 || pp.Depth != nil
		if attached {
			info, err := beginPass(pp)
			if err != nil {
				return handoffs, err
			}
			if clears := gatherClearValues(pp); len(clears) > 0 {
				info.ClearValueCount = uint32(len(clears))
				info.PClearValues = clears
			}
			cmd.BeginRenderPass(info, vk.SubpassContentsInline)
		}
		for i, p := range pp.Passes {
			if !needsRender(p.Impl) {
				continue
			}
			if i > 0 {
				cmd.NextSubpass(vk.SubpassContentsInline)
			}
			if err := buildPass(p, cmd); err != nil {
				return handoffs, err
			}
		}
		if attached {
			cmd.EndRenderPass()
		}

		// Signal every DependencyEvent edge this pass produces now that
		// its physical pass has finished recording, so a later,
		// non-adjacent consumer pass's WaitEvents above observes it.
		for _, p := range pp.Passes {
			for _, idx := range edgesByProducer[p] {
				e := g.schedule.Edges[idx]
				if e.kind != DependencyEvent {
					continue
				}
				ev, ok := events[idx]
				if !ok {
					var err error
					ev, err = cmd.CreateEvent()
					if err != nil {
						return handoffs, err
					}
					events[idx] = ev
				}
				cmd.SetEvent(ev, e.srcStage)
			}
		}
	}
	return handoffs, nil
}

// buildPass records one pass's commands, driving LayeredBuilder.BuildLayer
// once per array layer instead of Build when the pass implements it.
func buildPass(p *Pass, cmd CommandRecorder) error {
	if lb, ok := p.Impl.(LayeredBuilder); ok {
		layers := lb.SeparateLayers()
		for layer := uint32(0); layer < layers; layer++ {
			if err := lb.BuildLayer(cmd, layer); err != nil {
				return err
			}
		}
		return nil
	}
	return p.Impl.Build(cmd)
}

// gatherClearValues asks every ColorClearer/DepthClearer among pp's
// constituent passes for a clear value, attachment by attachment, in
// pp.Color order followed by the depth attachment if present. An
// attachment with no clearer gets a zeroed vk.ClearValue (load, not
// clear, is the caller's responsibility to set on the attachment
// description itself if that's the desired behavior instead). When no
// constituent pass supplies any clear value it returns nil, leaving the
// caller's RenderPassBeginInfo clear values in place.
func gatherClearValues(pp *PhysicalPass) []vk.ClearValue {
	if len(pp.Color) == 0 && pp.Depth == nil {
		return nil
	}
	found := false
	values := make([]vk.ClearValue, 0, len(pp.Color)+1)
	for i := range pp.Color {
		var v vk.ClearValue
		for _, p := range pp.Passes {
			if cc, ok := p.Impl.(ColorClearer); ok {
				if cv, ok2 := cc.ClearColor(i); ok2 {
					v = cv
					found = true
					break
				}
			}
		}
		values = append(values, v)
	}
	if pp.Depth != nil {
		var v vk.ClearValue
		for _, p := range pp.Passes {
			if dc, ok := p.Impl.(DepthClearer); ok {
				if dv, ok2 := dc.ClearDepthStencil(); ok2 {
					v = dv
					found = true
					break
				}
			}
		}
		values = append(values, v)
	}
	if !found {
		return nil
	}
	return values
}
