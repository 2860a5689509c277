package rendergraph

import vk "github.com/vulkan-go/vulkan"

// DependencyKind is the synchronization primitive the scheduler picks
// for one producer->consumer edge, per spec.md §4.6 step 7: same-queue
// adjacent passes get a plain pipeline barrier, same-queue non-adjacent
// passes get a split event (signaled early, waited on late, so the GPU
// can overlap unrelated work in between), and cross-queue or
// cross-async edges get a full semaphore.
type DependencyKind int

const (
	DependencyBarrier DependencyKind = iota
	DependencyEvent
	DependencySemaphore
)

// classifyDependency picks the synchronization primitive for an edge
// from producer to consumer, adjacent meaning the consumer is the very
// next physical pass to touch the resource on the same queue.
func classifyDependency(dims ResourceDimensions, producerQueues, consumerQueues QueueFlag, adjacent bool) DependencyKind {
	if dims.UsesSemaphore(producerQueues, consumerQueues) {
		return DependencySemaphore
	}
	if adjacent {
		return DependencyBarrier
	}
	return DependencyEvent
}

// accessStageMask returns the pipeline stage and access mask Vulkan
// requires for a given AccessKind, the "per-role access/stage/layout
// table" spec.md §4.6 step 7 names. Grounded on the same stage/access
// pairing Luna's RenderGraph barrier synthesis encodes per attachment
// usage (Vulkan's own synchronization chapter is otherwise the only
// source for these pairings).
func accessStageMask(kind AccessKind) (stage vk.PipelineStageFlags, access vk.AccessFlags) {
	switch kind {
	case AccessColorOutput:
		return vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	case AccessDepthStencilOutput:
		return vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
			vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	case AccessDepthStencilInput:
		return vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
			vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit)
	case AccessTextureInput, AccessHistoryInput:
		return vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			vk.AccessFlags(vk.AccessShaderReadBit)
	case AccessStorageReadWrite:
		return vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
			vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit)
	case AccessBlitSource:
		return vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferReadBit)
	case AccessBlitDest:
		return vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferWriteBit)
	default:
		return vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0
	}
}

// barrierEdge is one synthesized dependency between a producing and
// consuming pass over a single resource, the output of Bake's step 7.
type barrierEdge struct {
	resource   *Resource
	producer   *Pass
	consumer   *Pass
	kind       DependencyKind
	srcStage   vk.PipelineStageFlags
	dstStage   vk.PipelineStageFlags
	srcAccess  vk.AccessFlags
	dstAccess  vk.AccessFlags
	oldLayout  vk.ImageLayout
	newLayout  vk.ImageLayout
}

// imageBarrier builds the vk.ImageMemoryBarrier this edge implies, for
// DependencyBarrier/DependencyEvent edges over a texture resource.
func (e barrierEdge) imageBarrier(image vk.Image, aspect vk.ImageAspectFlags) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       e.srcAccess,
		DstAccessMask:       e.dstAccess,
		OldLayout:           e.oldLayout,
		NewLayout:           e.newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: vk.RemainingMipLevels,
			LayerCount: vk.RemainingArrayLayers,
		},
	}
}
