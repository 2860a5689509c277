package vkcore

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// dirtyFlag marks which pieces of a CommandBuffer's bound state have
// changed since the last draw/dispatch, so Flush only re-issues the vk
// bind calls a state change actually touched. Grounded on spec.md
// §4.3's "dirty-mask state cache" and the pattern used throughout
// Luna's CommandBuffer (bound pipeline/sets/vertex buffers tracked as a
// bitmask rather than re-bound unconditionally every draw). The same
// bits double as the capture mask SaveState/RestoreState accept, since
// "what changed since the last flush" and "what a saved snapshot must
// restore" are the same state partition.
type dirtyFlag uint32

const (
	dirtyPipeline dirtyFlag = 1 << iota
	dirtyViewport
	dirtyScissor
	dirtyVertexBuffers
	dirtyIndexBuffer
	dirtyDescriptorSets
	dirtyPushConstants

	dirtyAll = dirtyPipeline | dirtyViewport | dirtyScissor | dirtyVertexBuffers |
		dirtyIndexBuffer | dirtyDescriptorSets | dirtyPushConstants
)

// maxDescriptorSets is the number of descriptor-set slots a
// CommandBuffer tracks bind state for, matching the teacher's
// triangle demo's single-set-per-draw shape extended to the common
// engine convention of {global, pass, material, object} sets.
const maxDescriptorSets = 4

// DescriptorResolver is the minimal surface CommandBuffer needs from a
// descriptor-set allocator to turn bound-resource state into a
// vk.DescriptorSet at flush time. Declared here rather than imported
// from the descriptor package because descriptor already imports
// vkcore (for WrapResult/Kind) -- vkcore importing descriptor back
// would cycle. descriptor.SetAllocator.Allocate already matches this
// signature verbatim, so no adapter is needed at call sites.
type DescriptorResolver interface {
	Allocate(layout vk.DescriptorSetLayout, contentHash uint64) (vk.DescriptorSet, bool, error)
}

// BoundProgram pairs a compiled pipeline with the layout it was built
// against -- the value SetProgram expects. descriptor.Program.Bound
// constructs one once the pipeline cache has resolved a concrete
// vk.Pipeline for the current render-pass state; kept as a plain
// struct here (not *descriptor.Program) for the same import-direction
// reason DescriptorResolver is an interface.
type BoundProgram struct {
	Pipeline vk.Pipeline
	Layout   vk.PipelineLayout
}

// pendingWrite is one binding's worth of descriptor content waiting to
// be written into whatever vk.DescriptorSet the resolver hands back
// for this set's current content hash.
type pendingWrite struct {
	binding uint32
	kind    vk.DescriptorType
	buffer  vk.DescriptorBufferInfo
	image   vk.DescriptorImageInfo
}

// boundSet is one descriptor-set slot's accumulated bind state: the
// layout it was declared against, a running content hash of every
// resource bound into it, and the pending writes needed the first
// time that hash is seen.
type boundSet struct {
	layout vk.DescriptorSetLayout
	hash   uint64
	writes []pendingWrite
}

// fnvOffset/fnvPrime are FNV-1a's standard 64-bit constants, used to
// fold bound-resource identity into each set's content hash.
const (
	fnvOffset = uint64(14695981039346656037)
	fnvPrime  = uint64(1099511628211)
)

// mixHash folds each part into h using FNV-1a's multiply-xor step.
func mixHash(h uint64, parts ...uint64) uint64 {
	for _, p := range parts {
		h ^= p
		h *= fnvPrime
	}
	return h
}

// handleHash derives a hash contribution from a Vulkan handle. vulkan-go's
// non-dispatchable handle types don't expose a stable numeric accessor
// from this package, so identity is taken from the handle's own string
// form (every vk handle type the bindless/descriptor code here touches
// implements a usable %v representation) and folded through FNV-1a --
// collisions only cost a spurious cache-miss reallocation of a
// descriptor set, not a correctness bug, the same tradeoff engines
// accept for pointer-hash pipeline/renderpass caches.
func handleHash(v interface{}) uint64 {
	h := fnvOffset
	s := fmt.Sprintf("%v", v)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

// CommandBufferSavedState is a snapshot of the bind state SaveState
// captures and RestoreState reapplies, scoped by mask to just the
// dirtyFlag bits the caller cares about preserving across a batch
// boundary (spec.md §4.3's save_state/restore_state, used by a
// render-queue dispatcher to scope per-draw-call-list state without
// re-deriving it from scratch for every batch).
type CommandBufferSavedState struct {
	mask dirtyFlag

	pipeline       vk.Pipeline
	pipelineLayout vk.PipelineLayout
	viewport       vk.Viewport
	scissor        vk.Rect2D
	vertexBuffers  [8]vk.Buffer
	vertexOffsets  [8]vk.DeviceSize
	indexBuffer    vk.Buffer
	indexOffset    vk.DeviceSize
	indexType      vk.IndexType
	descriptorSets [maxDescriptorSets]vk.DescriptorSet
}

// CommandBuffer wraps a recorded vk.CommandBuffer with the cached bind
// state needed to elide redundant vkCmd* calls. One CommandBuffer is
// requested per role per frame via Device.RequestCommandBuffer and
// recorded by exactly one goroutine (a taskcomposer worker), matching
// the "thread-local recorder" requirement of spec.md §4.3.
type CommandBuffer struct {
	handle vk.CommandBuffer
	device vk.Device
	role   QueueRole
	dirty  dirtyFlag

	pipeline       vk.Pipeline
	pipelineLayout vk.PipelineLayout
	viewport       vk.Viewport
	scissor        vk.Rect2D
	vertexBuffers  [8]vk.Buffer
	vertexOffsets  [8]vk.DeviceSize
	indexBuffer    vk.Buffer
	indexOffset    vk.DeviceSize
	indexType      vk.IndexType
	descriptorSets [maxDescriptorSets]vk.DescriptorSet

	pushConstantStages vk.ShaderStageFlags
	pushConstantOffset uint32
	pushConstantData   []byte

	sets      [maxDescriptorSets]boundSet
	dirtySets uint32
	resolver  DescriptorResolver

	// uniforms/cookies back AllocateUniformData. Begin leaves them nil
	// and no method in this package sets them.
	uniforms *BufferBlockPool
	cookies  *CookieSource
}

// Begin starts recording with the ONE_TIME_SUBMIT usage flag, matching
// every per-frame command buffer in the teacher's pipeline.go /
// context.go flushInitCmd pattern -- command buffers here are never
// re-submitted without re-recording.
func Begin(handle vk.CommandBuffer, role QueueRole, device vk.Device) (*CommandBuffer, error) {
	ret := vk.BeginCommandBuffer(handle, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := newError(ret); err != nil {
		return nil, err
	}
	return &CommandBuffer{handle: handle, device: device, role: role, indexType: vk.IndexTypeUint16}, nil
}

func (cb *CommandBuffer) Handle() vk.CommandBuffer { return cb.handle }

// AttachDescriptorResolver wires r as the allocator SetUniformBuffer/
// SetTexture/SetStorageBuffer/SetSampler-bound sets resolve against at
// flush time. Nothing in vkcore calls this (descriptor.SetAllocator
// lives in a package that imports vkcore, so vkcore cannot construct
// one); the caller attaches its own per-frame descriptor.SetAllocator.
// cmd/triangle binds no descriptor sets and does not attach one.
func (cb *CommandBuffer) AttachDescriptorResolver(r DescriptorResolver) {
	cb.resolver = r
}

// SetDescriptorLayout declares the VkDescriptorSetLayout set was built
// against, so the first SetUniformBuffer/SetTexture/... call that
// touches it can resolve a real vk.DescriptorSet through the attached
// DescriptorResolver.
func (cb *CommandBuffer) SetDescriptorLayout(set uint32, layout vk.DescriptorSetLayout) {
	cb.sets[set].layout = layout
}

func (cb *CommandBuffer) SetPipeline(pipeline vk.Pipeline, layout vk.PipelineLayout) {
	if cb.pipeline == pipeline {
		return
	}
	cb.pipeline = pipeline
	cb.pipelineLayout = layout
	cb.dirty |= dirtyPipeline
}

// SetProgram binds a program's compiled pipeline+layout in one call,
// the shape spec.md §4.3's set_program names; it is a thin wrapper
// over SetPipeline, since BoundProgram is exactly that pair.
func (cb *CommandBuffer) SetProgram(p BoundProgram) {
	cb.SetPipeline(p.Pipeline, p.Layout)
}

func (cb *CommandBuffer) SetViewport(v vk.Viewport) {
	if cb.viewport == v {
		return
	}
	cb.viewport = v
	cb.dirty |= dirtyViewport
}

func (cb *CommandBuffer) SetScissor(r vk.Rect2D) {
	if cb.scissor == r {
		return
	}
	cb.scissor = r
	cb.dirty |= dirtyScissor
}

func (cb *CommandBuffer) SetVertexBuffer(binding uint32, buf vk.Buffer, offset vk.DeviceSize) {
	if cb.vertexBuffers[binding] == buf && cb.vertexOffsets[binding] == offset {
		return
	}
	cb.vertexBuffers[binding] = buf
	cb.vertexOffsets[binding] = offset
	cb.dirty |= dirtyVertexBuffers
}

func (cb *CommandBuffer) SetIndexBuffer(buf vk.Buffer, offset vk.DeviceSize, kind vk.IndexType) {
	if cb.indexBuffer == buf && cb.indexOffset == offset && cb.indexType == kind {
		return
	}
	cb.indexBuffer, cb.indexOffset, cb.indexType = buf, offset, kind
	cb.dirty |= dirtyIndexBuffer
}

func (cb *CommandBuffer) SetDescriptorSet(slot uint32, set vk.DescriptorSet) {
	if cb.descriptorSets[slot] == set {
		return
	}
	cb.descriptorSets[slot] = set
	cb.dirty |= dirtyDescriptorSets
}

// SetBindless binds an already-resolved descriptor set (typically
// descriptor.BindlessPool.Set()) directly into slot, bypassing the
// per-binding resource cache below -- a bindless pool manages its own
// descriptor writes, so there is nothing for this CommandBuffer to
// hash or resolve.
func (cb *CommandBuffer) SetBindless(set uint32, descriptorSet vk.DescriptorSet) {
	cb.SetDescriptorSet(set, descriptorSet)
}

// bindResource records one binding's worth of descriptor content into
// set, folds it into that set's running content hash and marks the set
// dirty so flush resolves (and, the first time this hash is seen,
// writes) a real vk.DescriptorSet for it.
func (cb *CommandBuffer) bindResource(set uint32, w pendingWrite, mix uint64) {
	s := &cb.sets[set]
	replaced := false
	for i := range s.writes {
		if s.writes[i].binding == w.binding {
			s.writes[i] = w
			replaced = true
			break
		}
	}
	if !replaced {
		s.writes = append(s.writes, w)
	}
	if s.hash == 0 {
		s.hash = fnvOffset
	}
	s.hash = mixHash(s.hash, mix)
	cb.dirty |= dirtyDescriptorSets
	cb.dirtySets |= 1 << set
}

// SetUniformBuffer binds a uniform-buffer range to (set, binding).
func (cb *CommandBuffer) SetUniformBuffer(set, binding uint32, buffer vk.Buffer, offset, size vk.DeviceSize) {
	w := pendingWrite{binding: binding, kind: vk.DescriptorTypeUniformBuffer, buffer: vk.DescriptorBufferInfo{Buffer: buffer, Offset: offset, Range: size}}
	cb.bindResource(set, w, mixHash(handleHash(buffer), uint64(binding), uint64(offset), uint64(size)))
}

// SetStorageBuffer binds a storage-buffer range to (set, binding).
func (cb *CommandBuffer) SetStorageBuffer(set, binding uint32, buffer vk.Buffer, offset, size vk.DeviceSize) {
	w := pendingWrite{binding: binding, kind: vk.DescriptorTypeStorageBuffer, buffer: vk.DescriptorBufferInfo{Buffer: buffer, Offset: offset, Range: size}}
	cb.bindResource(set, w, mixHash(handleHash(buffer), uint64(binding), uint64(offset), uint64(size)))
}

// SetTexture binds a sampled image view + sampler to (set, binding) at
// the given image layout.
func (cb *CommandBuffer) SetTexture(set, binding uint32, view vk.ImageView, sampler vk.Sampler, layout vk.ImageLayout) {
	w := pendingWrite{binding: binding, kind: vk.DescriptorTypeCombinedImageSampler, image: vk.DescriptorImageInfo{ImageView: view, Sampler: sampler, ImageLayout: layout}}
	cb.bindResource(set, w, mixHash(handleHash(view), handleHash(sampler), uint64(binding)))
}

// SetSrgbTexture and SetUnormTexture both bind a combined image
// sampler at shader-read-only layout; the distinction spec.md §3 draws
// between them lives entirely in which sibling ImageView the caller
// passes in (see Image's UnormSrgbAlias pairing in rendergraph), not in
// this method's behavior.
func (cb *CommandBuffer) SetSrgbTexture(set, binding uint32, view vk.ImageView, sampler vk.Sampler) {
	cb.SetTexture(set, binding, view, sampler, vk.ImageLayoutShaderReadOnlyOptimal)
}

func (cb *CommandBuffer) SetUnormTexture(set, binding uint32, view vk.ImageView, sampler vk.Sampler) {
	cb.SetTexture(set, binding, view, sampler, vk.ImageLayoutShaderReadOnlyOptimal)
}

// SetSampler binds a standalone sampler (no image) to (set, binding).
func (cb *CommandBuffer) SetSampler(set, binding uint32, sampler vk.Sampler) {
	w := pendingWrite{binding: binding, kind: vk.DescriptorTypeSampler, image: vk.DescriptorImageInfo{Sampler: sampler}}
	cb.bindResource(set, w, mixHash(handleHash(sampler), uint64(binding)))
}

// PushConstants stages a push-constant write; flush issues it lazily,
// same as every other piece of dirty-tracked state, so repeated calls
// with identical bytes across consecutive draws cost nothing extra.
func (cb *CommandBuffer) PushConstants(stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if cb.pushConstantData != nil && cb.pushConstantStages == stages &&
		cb.pushConstantOffset == offset && string(cb.pushConstantData) == string(data) {
		return
	}
	cb.pushConstantStages = stages
	cb.pushConstantOffset = offset
	cb.pushConstantData = append(cb.pushConstantData[:0], data...)
	cb.dirty |= dirtyPushConstants
}

// AllocateUniformData bump-allocates size bytes from the uniform ring
// held in cb.uniforms and binds the resulting range to (set, binding),
// returning the
// mapped pointer for the caller to write into this frame. Grounded on
// spec.md §4.8's per-frame ring plus Luna's pattern of returning a
// host pointer rather than requiring a separate staging upload for
// host-visible uniform data. No method in this package attaches a ring,
// so on a CommandBuffer from Begin it returns a KindIncompatibleState
// error.
func (cb *CommandBuffer) AllocateUniformData(set, binding uint32, size vk.DeviceSize) (unsafe.Pointer, error) {
	if cb.uniforms == nil {
		return nil, newErrorf(KindIncompatibleState, "command buffer has no uniform ring attached")
	}
	ptr, buf, offset, err := cb.uniforms.Allocate(size, cb.cookies)
	if err != nil {
		return nil, err
	}
	cb.SetUniformBuffer(set, binding, buf.Handle(), offset, size)
	return ptr, nil
}

// AllocateTypedUniformData is AllocateUniformData generalized over a
// concrete struct type T, returning a Go slice of count elements backed
// directly by the ring's mapped memory -- spec.md §4.3's
// allocate_typed_uniform. A free function rather than a method since
// Go methods cannot carry their own type parameters.
func AllocateTypedUniformData[T any](cb *CommandBuffer, set, binding uint32, count int) ([]T, error) {
	var zero T
	size := vk.DeviceSize(unsafe.Sizeof(zero)) * vk.DeviceSize(count)
	ptr, err := cb.AllocateUniformData(set, binding, size)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(ptr), count), nil
}

// SaveState captures the bind state named by mask (zero means "every
// dirty-tracked field") so a later RestoreState can return to exactly
// this point without re-deriving it -- spec.md §4.3's save_state,
// scoped the way a render-queue dispatcher uses it: bracket a batch of
// draws that temporarily override a handful of bindings. Push constants
// are not part of the snapshot; they are neither captured nor restored.
func (cb *CommandBuffer) SaveState(mask dirtyFlag) CommandBufferSavedState {
	if mask == 0 {
		mask = dirtyAll
	}
	s := CommandBufferSavedState{mask: mask}
	if mask&dirtyPipeline != 0 {
		s.pipeline, s.pipelineLayout = cb.pipeline, cb.pipelineLayout
	}
	if mask&dirtyViewport != 0 {
		s.viewport = cb.viewport
	}
	if mask&dirtyScissor != 0 {
		s.scissor = cb.scissor
	}
	if mask&dirtyVertexBuffers != 0 {
		s.vertexBuffers = cb.vertexBuffers
		s.vertexOffsets = cb.vertexOffsets
	}
	if mask&dirtyIndexBuffer != 0 {
		s.indexBuffer, s.indexOffset, s.indexType = cb.indexBuffer, cb.indexOffset, cb.indexType
	}
	if mask&dirtyDescriptorSets != 0 {
		s.descriptorSets = cb.descriptorSets
	}
	return s
}

// RestoreState reapplies a previously captured snapshot, re-running it
// through the normal Set* setters so the dirty mask comes out correct
// for whatever actually changed relative to the CommandBuffer's current
// state (restoring to the same state a Set* call already reflects is a
// no-op, same as any other redundant Set* call).
func (cb *CommandBuffer) RestoreState(s CommandBufferSavedState) {
	if s.mask&dirtyPipeline != 0 {
		cb.SetPipeline(s.pipeline, s.pipelineLayout)
	}
	if s.mask&dirtyViewport != 0 {
		cb.SetViewport(s.viewport)
	}
	if s.mask&dirtyScissor != 0 {
		cb.SetScissor(s.scissor)
	}
	if s.mask&dirtyVertexBuffers != 0 {
		for i, b := range s.vertexBuffers {
			cb.SetVertexBuffer(uint32(i), b, s.vertexOffsets[i])
		}
	}
	if s.mask&dirtyIndexBuffer != 0 {
		cb.SetIndexBuffer(s.indexBuffer, s.indexOffset, s.indexType)
	}
	if s.mask&dirtyDescriptorSets != 0 {
		for i, d := range s.descriptorSets {
			if d != nil {
				cb.SetDescriptorSet(uint32(i), d)
			}
		}
	}
}

// flush issues every vkCmd* call implied by the current dirty mask and
// clears it. Called automatically by Draw/DrawIndexed/Dispatch/
// DrawIndirect/DispatchIndirect.
func (cb *CommandBuffer) flush(bindPoint vk.PipelineBindPoint) {
	if cb.dirty&dirtyPipeline != 0 {
		vk.CmdBindPipeline(cb.handle, bindPoint, cb.pipeline)
	}
	if cb.dirty&dirtyViewport != 0 {
		vk.CmdSetViewport(cb.handle, 0, 1, []vk.Viewport{cb.viewport})
	}
	if cb.dirty&dirtyScissor != 0 {
		vk.CmdSetScissor(cb.handle, 0, 1, []vk.Rect2D{cb.scissor})
	}
	if cb.dirty&dirtyVertexBuffers != 0 {
		vk.CmdBindVertexBuffers(cb.handle, 0, 1, cb.vertexBuffers[:1], cb.vertexOffsets[:1])
	}
	if cb.dirty&dirtyIndexBuffer != 0 && cb.indexBuffer != nil {
		vk.CmdBindIndexBuffer(cb.handle, cb.indexBuffer, cb.indexOffset, cb.indexType)
	}
	if cb.dirty&dirtyDescriptorSets != 0 {
		cb.resolveDescriptorSets()
		sets := make([]vk.DescriptorSet, 0, maxDescriptorSets)
		for _, s := range cb.descriptorSets {
			if s != nil {
				sets = append(sets, s)
			}
		}
		if len(sets) > 0 {
			vk.CmdBindDescriptorSets(cb.handle, bindPoint, cb.pipelineLayout, 0, uint32(len(sets)), sets, 0, nil)
		}
	}
	if cb.dirty&dirtyPushConstants != 0 && len(cb.pushConstantData) > 0 {
		vk.CmdPushConstants(cb.handle, cb.pipelineLayout, cb.pushConstantStages, cb.pushConstantOffset, uint32(len(cb.pushConstantData)), unsafe.Pointer(&cb.pushConstantData[0]))
	}
	cb.dirty = 0
}

// resolveDescriptorSets asks the attached DescriptorResolver for a
// vk.DescriptorSet matching each dirty set's current content hash,
// writing the pending resource bindings into it the first time that
// hash is seen (a cache hit from the resolver means every binding is
// already written from an earlier draw this frame).
func (cb *CommandBuffer) resolveDescriptorSets() {
	if cb.resolver == nil {
		return
	}
	for set := uint32(0); set < maxDescriptorSets; set++ {
		if cb.dirtySets&(1<<set) == 0 {
			continue
		}
		s := &cb.sets[set]
		if s.layout == nil || len(s.writes) == 0 {
			continue
		}
		resolved, reused, err := cb.resolver.Allocate(s.layout, s.hash)
		if err != nil {
			continue
		}
		if !reused {
			writes := make([]vk.WriteDescriptorSet, len(s.writes))
			bufInfos := make([]vk.DescriptorBufferInfo, 0, len(s.writes))
			imgInfos := make([]vk.DescriptorImageInfo, 0, len(s.writes))
			for i, w := range s.writes {
				wd := vk.WriteDescriptorSet{
					SType:           vk.StructureTypeWriteDescriptorSet,
					DstSet:          resolved,
					DstBinding:      w.binding,
					DescriptorCount: 1,
					DescriptorType:  w.kind,
				}
				switch w.kind {
				case vk.DescriptorTypeUniformBuffer, vk.DescriptorTypeStorageBuffer:
					bufInfos = append(bufInfos, w.buffer)
					wd.PBufferInfo = bufInfos[len(bufInfos)-1:]
				default:
					imgInfos = append(imgInfos, w.image)
					wd.PImageInfo = imgInfos[len(imgInfos)-1:]
				}
				writes[i] = wd
			}
			vk.UpdateDescriptorSets(cb.device, uint32(len(writes)), writes, 0, nil)
		}
		cb.descriptorSets[set] = resolved
	}
	cb.dirtySets = 0
}

func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	cb.flush(vk.PipelineBindPointGraphics)
	vk.CmdDraw(cb.handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	cb.flush(vk.PipelineBindPointGraphics)
	vk.CmdDrawIndexed(cb.handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

// DrawIndirect reads its draw parameters from buffer at offset, drawing
// drawCount consecutive vk.DrawIndirectCommand structures spaced stride
// bytes apart -- spec.md §4.3's draw_indirect, used by GPU-driven
// culling passes that write their own draw list.
func (cb *CommandBuffer) DrawIndirect(buffer vk.Buffer, offset vk.DeviceSize, drawCount, stride uint32) {
	cb.flush(vk.PipelineBindPointGraphics)
	vk.CmdDrawIndirect(cb.handle, buffer, offset, drawCount, stride)
}

func (cb *CommandBuffer) Dispatch(x, y, z uint32) {
	cb.flush(vk.PipelineBindPointCompute)
	vk.CmdDispatch(cb.handle, x, y, z)
}

// DispatchIndirect reads its x/y/z group counts from a single
// vk.DispatchIndirectCommand at offset in buffer -- spec.md §4.3's
// dispatch_indirect.
func (cb *CommandBuffer) DispatchIndirect(buffer vk.Buffer, offset vk.DeviceSize) {
	cb.flush(vk.PipelineBindPointCompute)
	vk.CmdDispatchIndirect(cb.handle, buffer, offset)
}

// CopyBuffer records a full-range buffer-to-buffer copy.
func (cb *CommandBuffer) CopyBuffer(src, dst vk.Buffer, size vk.DeviceSize) {
	vk.CmdCopyBuffer(cb.handle, src, dst, 1, []vk.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: size}})
}

// CopyImage records an image-to-image copy over the given regions; both
// images must already be in the layout the region's Copy expects
// (TransferSrcOptimal/TransferDstOptimal), which the render-graph
// barrier synthesizer arranges for graph-driven copies.
func (cb *CommandBuffer) CopyImage(src, dst vk.Image, srcLayout, dstLayout vk.ImageLayout, regions []vk.ImageCopy) {
	vk.CmdCopyImage(cb.handle, src, srcLayout, dst, dstLayout, uint32(len(regions)), regions)
}

// CopyBufferToImage records a buffer-to-image copy, the upload path for
// texture contents staged through a host-visible buffer.
func (cb *CommandBuffer) CopyBufferToImage(src vk.Buffer, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(cb.handle, src, dst, dstLayout, uint32(len(regions)), regions)
}

// BlitImage records a (possibly scaling/format-converting) image blit.
func (cb *CommandBuffer) BlitImage(src, dst vk.Image, srcLayout, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	vk.CmdBlitImage(cb.handle, src, srcLayout, dst, dstLayout, uint32(len(regions)), regions, filter)
}

// ClearImage records a clear-color-image command over the given
// subresource ranges, for images cleared outside of a render pass
// instance (compute-written storage images, mostly).
func (cb *CommandBuffer) ClearImage(image vk.Image, layout vk.ImageLayout, color vk.ClearColorValue, ranges []vk.ImageSubresourceRange) {
	vk.CmdClearColorImage(cb.handle, image, layout, &color, uint32(len(ranges)), ranges)
}

// GenerateMipmaps fills every mip level above 0 by blitting down from
// the previous level, the standard per-mip blit chain (the same
// technique the Vulkan tutorial's generateMipmaps uses, not specific to
// any one example repo): every level (0 through mipLevels-1) must
// already be in TransferDstOptimal, and on return every level is
// ShaderReadOnlyOptimal.
func (cb *CommandBuffer) GenerateMipmaps(image vk.Image, extent vk.Extent3D, mipLevels, layerCount uint32) {
	mipWidth, mipHeight := int32(extent.Width), int32(extent.Height)
	colorAspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)

	for level := uint32(1); level < mipLevels; level++ {
		srcRange := vk.ImageSubresourceRange{AspectMask: colorAspect, BaseMipLevel: level - 1, LevelCount: 1, BaseArrayLayer: 0, LayerCount: layerCount}
		cb.PipelineBarrier(
			vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			[]vk.ImageMemoryBarrier{{
				SType:            vk.StructureTypeImageMemoryBarrier,
				SrcAccessMask:    vk.AccessFlags(vk.AccessTransferWriteBit),
				DstAccessMask:    vk.AccessFlags(vk.AccessTransferReadBit),
				OldLayout:        vk.ImageLayoutTransferDstOptimal,
				NewLayout:        vk.ImageLayoutTransferSrcOptimal,
				Image:            image,
				SubresourceRange: srcRange,
			}}, nil)

		dstWidth, dstHeight := mipWidth, mipHeight
		if dstWidth > 1 {
			dstWidth /= 2
		}
		if dstHeight > 1 {
			dstHeight /= 2
		}
		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{AspectMask: colorAspect, MipLevel: level - 1, BaseArrayLayer: 0, LayerCount: layerCount},
			SrcOffsets:     [2]vk.Offset3D{{}, {X: mipWidth, Y: mipHeight, Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{AspectMask: colorAspect, MipLevel: level, BaseArrayLayer: 0, LayerCount: layerCount},
			DstOffsets:     [2]vk.Offset3D{{}, {X: dstWidth, Y: dstHeight, Z: 1}},
		}
		cb.BlitImage(image, image, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutTransferDstOptimal, []vk.ImageBlit{blit}, vk.FilterLinear)

		cb.PipelineBarrier(
			vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			[]vk.ImageMemoryBarrier{{
				SType:            vk.StructureTypeImageMemoryBarrier,
				SrcAccessMask:    vk.AccessFlags(vk.AccessTransferReadBit),
				DstAccessMask:    vk.AccessFlags(vk.AccessShaderReadBit),
				OldLayout:        vk.ImageLayoutTransferSrcOptimal,
				NewLayout:        vk.ImageLayoutShaderReadOnlyOptimal,
				Image:            image,
				SubresourceRange: srcRange,
			}}, nil)

		mipWidth, mipHeight = dstWidth, dstHeight
	}

	lastRange := vk.ImageSubresourceRange{AspectMask: colorAspect, BaseMipLevel: mipLevels - 1, LevelCount: 1, BaseArrayLayer: 0, LayerCount: layerCount}
	cb.PipelineBarrier(
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		[]vk.ImageMemoryBarrier{{
			SType:            vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:    vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccessMask:    vk.AccessFlags(vk.AccessShaderReadBit),
			OldLayout:        vk.ImageLayoutTransferDstOptimal,
			NewLayout:        vk.ImageLayoutShaderReadOnlyOptimal,
			Image:            image,
			SubresourceRange: lastRange,
		}}, nil)
}

// PipelineBarrier records a full image/buffer/memory barrier. The
// render-graph barrier synthesizer (rendergraph package) is the
// primary caller; this method is a thin passthrough so it stays
// testable without constructing a real CommandBuffer.
func (cb *CommandBuffer) PipelineBarrier(srcStage, dstStage vk.PipelineStageFlags, imageBarriers []vk.ImageMemoryBarrier, bufferBarriers []vk.BufferMemoryBarrier) {
	vk.CmdPipelineBarrier(cb.handle, srcStage, dstStage, 0, 0, nil,
		uint32(len(bufferBarriers)), bufferBarriers,
		uint32(len(imageBarriers)), imageBarriers)
}

// CreateEvent creates a fresh VkEvent against this command buffer's
// device, for the render graph's split-event dependency kind (spec.md
// §4.6 step 7: "set after producer, wait before consumer" when useful
// work lies between the two on the same queue). The render graph
// creates one per producer/consumer edge it needs and destroys it
// again once the frame's recording is done -- events are cheap enough
// driver objects that re-creating one per frame is simpler than the
// graph carrying a persistent event pool across Bake/Reset cycles.
func (cb *CommandBuffer) CreateEvent() (vk.Event, error) {
	var e vk.Event
	ret := vk.CreateEvent(cb.device, &vk.EventCreateInfo{SType: vk.StructureTypeEventCreateInfo}, nil, &e)
	return e, newError(ret)
}

// DestroyEvent releases an event created by CreateEvent.
func (cb *CommandBuffer) DestroyEvent(event vk.Event) {
	vk.DestroyEvent(cb.device, event, nil)
}

// SetEvent signals event once every command before this point in the
// queue has reached stage -- the producer half of a split-event
// dependency.
func (cb *CommandBuffer) SetEvent(event vk.Event, stage vk.PipelineStageFlags) {
	vk.CmdSetEvent(cb.handle, event, stage)
}

// WaitEvents blocks dstStage work until every named event is signaled,
// applying imageBarriers at the same point -- the consumer half of a
// split-event dependency.
func (cb *CommandBuffer) WaitEvents(events []vk.Event, srcStage, dstStage vk.PipelineStageFlags, imageBarriers []vk.ImageMemoryBarrier) {
	vk.CmdWaitEvents(cb.handle, uint32(len(events)), events, srcStage, dstStage,
		0, nil, 0, nil, uint32(len(imageBarriers)), imageBarriers)
}

// ResetEvent returns event to the unsignaled state; the render graph
// records it immediately after the WaitEvents that consumes the event.
func (cb *CommandBuffer) ResetEvent(event vk.Event, stage vk.PipelineStageFlags) {
	vk.CmdResetEvent(cb.handle, event, stage)
}

func (cb *CommandBuffer) BeginRenderPass(info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	vk.CmdBeginRenderPass(cb.handle, info, contents)
}

// NextSubpass advances a multi-subpass render pass instance to its next
// subpass -- issued between constituent passes of a PhysicalPass that
// groupPhysicalPasses merged into one VkRenderPass (§4.6 step 4).
func (cb *CommandBuffer) NextSubpass(contents vk.SubpassContents) {
	vk.CmdNextSubpass(cb.handle, contents)
}

func (cb *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(cb.handle)
}

func (cb *CommandBuffer) End() error {
	return newError(vk.EndCommandBuffer(cb.handle))
}
