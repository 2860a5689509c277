package descriptor

import vk "github.com/vulkan-go/vulkan"

// BindlessPool owns one large VARIABLE_DESCRIPTOR_COUNT descriptor set
// that every shader indexes into by integer rather than binding a
// fresh descriptor set per material. Grounded on spec.md §4.4's
// bindless description; the teacher's fixed triangle demo has no
// equivalent, so this is built from spec.md plus the
// UPDATE_AFTER_BIND_BIT / PARTIALLY_BOUND_BIT usage Luna's descriptor
// layer assumes for large texture arrays.
type BindlessPool struct {
	device   vk.Device
	pool     vk.DescriptorPool
	layout   vk.DescriptorSetLayout
	set      vk.DescriptorSet
	capacity uint32

	free []uint32
	next uint32
}

// NewBindlessPool creates a single combined-image-sampler binding at
// index 0 with capacity slots, all flagged UPDATE_AFTER_BIND and
// PARTIALLY_BOUND so unused slots need not hold a valid descriptor.
func NewBindlessPool(device vk.Device, capacity uint32) (*BindlessPool, error) {
	bindingFlags := []vk.DescriptorBindingFlags{
		vk.DescriptorBindingFlags(vk.DescriptorBindingUpdateAfterBindBit |
			vk.DescriptorBindingPartiallyBoundBit |
			vk.DescriptorBindingVariableDescriptorCountBit),
	}
	flagsInfo := vk.DescriptorSetLayoutBindingFlagsCreateInfo{
		SType:         vk.StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo,
		BindingCount:  1,
		PBindingFlags: bindingFlags,
	}

	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(device, &vk.DescriptorSetLayoutCreateInfo{
		SType: vk.StructureTypeDescriptorSetLayoutCreateInfo,
		Flags: vk.DescriptorSetLayoutCreateFlags(vk.DescriptorSetLayoutCreateUpdateAfterBindPoolBit),
		PNext: pNext(&flagsInfo),
		BindingCount: 1,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: capacity,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAllBit),
		}},
	}, nil, &layout)
	if ret != vk.Success {
		return nil, vkcoreNewError(ret)
	}

	var dpool vk.DescriptorPool
	ret = vk.CreateDescriptorPool(device, &vk.DescriptorPoolCreateInfo{
		SType: vk.StructureTypeDescriptorPoolCreateInfo,
		Flags: vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateUpdateAfterBindBit),
		MaxSets: 1,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: capacity,
		}},
	}, nil, &dpool)
	if ret != vk.Success {
		vk.DestroyDescriptorSetLayout(device, layout, nil)
		return nil, vkcoreNewError(ret)
	}

	variableCount := vk.DescriptorSetVariableDescriptorCountAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetVariableDescriptorCountAllocateInfo,
		DescriptorSetCount: 1,
		PDescriptorCounts:  []uint32{capacity},
	}
	sets := make([]vk.DescriptorSet, 1)
	ret = vk.AllocateDescriptorSets(device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     dpool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
		PNext:              pNext(&variableCount),
	}, sets)
	if ret != vk.Success {
		vk.DestroyDescriptorPool(device, dpool, nil)
		vk.DestroyDescriptorSetLayout(device, layout, nil)
		return nil, vkcoreNewError(ret)
	}

	return &BindlessPool{device: device, pool: dpool, layout: layout, set: sets[0], capacity: capacity}, nil
}

func (b *BindlessPool) Layout() vk.DescriptorSetLayout { return b.layout }
func (b *BindlessPool) Set() vk.DescriptorSet          { return b.set }

// Bind writes view+sampler into slot index and returns it. Index
// reuse is the caller's (material-cache) responsibility via Free.
func (b *BindlessPool) Bind(view vk.ImageView, sampler vk.Sampler) uint32 {
	var idx uint32
	if n := len(b.free); n > 0 {
		idx = b.free[n-1]
		b.free = b.free[:n-1]
	} else {
		idx = b.next
		b.next++
	}
	imageInfo := vk.DescriptorImageInfo{
		Sampler:     sampler,
		ImageView:   view,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	vk.UpdateDescriptorSets(b.device, 1, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          b.set,
		DstBinding:      0,
		DstArrayElement: idx,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}}, 0, nil)
	return idx
}

func (b *BindlessPool) Free(index uint32) {
	b.free = append(b.free, index)
}

func (b *BindlessPool) Destroy() {
	vk.DestroyDescriptorPool(b.device, b.pool, nil)
	vk.DestroyDescriptorSetLayout(b.device, b.layout, nil)
}
