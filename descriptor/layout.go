package descriptor

import vk "github.com/vulkan-go/vulkan"

// Binding describes one descriptor-set-layout binding a Program needs,
// generalized from the teacher's NewCoreUniformBuffer's single hardcoded
// binding (buffers.go) into a caller-supplied list.
type Binding struct {
	Index uint32
	Type  vk.DescriptorType
	Count uint32
	Stage vk.ShaderStageFlags
}

// layoutKey hashes a binding set so two requests for the same bindings
// share one VkDescriptorSetLayout instead of creating duplicates.
type layoutKey string

func hashBindings(bindings []Binding) layoutKey {
	buf := make([]byte, 0, len(bindings)*16)
	for _, b := range bindings {
		buf = append(buf,
			byte(b.Index), byte(b.Index>>8),
			byte(b.Type), byte(b.Type>>8),
			byte(b.Count), byte(b.Count>>8), byte(b.Count>>16), byte(b.Count>>24),
			byte(b.Stage), byte(b.Stage>>8), byte(b.Stage>>16), byte(b.Stage>>24),
		)
	}
	return layoutKey(buf)
}

// hashPushConstants extends the same byte-append scheme to push-constant
// ranges, keying on their actual Stage/Offset/Size rather than just the
// range count -- two layouts with the same number of ranges but
// different offsets/sizes/stages must not collide in pipelineLayouts.
func hashPushConstants(pushConstants []vk.PushConstantRange) layoutKey {
	buf := make([]byte, 0, len(pushConstants)*12)
	for _, pc := range pushConstants {
		buf = append(buf,
			byte(pc.StageFlags), byte(pc.StageFlags>>8), byte(pc.StageFlags>>16), byte(pc.StageFlags>>24),
			byte(pc.Offset), byte(pc.Offset>>8), byte(pc.Offset>>16), byte(pc.Offset>>24),
			byte(pc.Size), byte(pc.Size>>8), byte(pc.Size>>16), byte(pc.Size>>24),
		)
	}
	return layoutKey(buf)
}

// LayoutCache caches VkDescriptorSetLayout and VkPipelineLayout objects
// by their binding-set hash. Descriptor set layouts are immutable and
// cheap to share across every Program that declares the same bindings,
// so one cache serves every frame rather than one per frame; the caller
// creates and owns it (Device holds none).
type LayoutCache struct {
	device  vk.Device
	setLayouts map[layoutKey]vk.DescriptorSetLayout
	pipelineLayouts map[layoutKey]vk.PipelineLayout
}

func NewLayoutCache(device vk.Device) *LayoutCache {
	return &LayoutCache{
		device:          device,
		setLayouts:      make(map[layoutKey]vk.DescriptorSetLayout),
		pipelineLayouts: make(map[layoutKey]vk.PipelineLayout),
	}
}

func (c *LayoutCache) SetLayout(bindings []Binding) (vk.DescriptorSetLayout, error) {
	key := hashBindings(bindings)
	if l, ok := c.setLayouts[key]; ok {
		return l, nil
	}
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Index,
			DescriptorType:  b.Type,
			DescriptorCount: b.Count,
			StageFlags:      b.Stage,
		}
	}
	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(c.device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}, nil, &layout)
	if ret != vk.Success {
		return nil, vkcoreNewError(ret)
	}
	c.setLayouts[key] = layout
	return layout, nil
}

// PipelineLayout builds (or reuses) a VkPipelineLayout over a single
// descriptor set layout plus optional push-constant ranges.
func (c *LayoutCache) PipelineLayout(setLayout vk.DescriptorSetLayout, bindings []Binding, pushConstants []vk.PushConstantRange) (vk.PipelineLayout, error) {
	key := hashBindings(bindings) + hashPushConstants(pushConstants)
	if l, ok := c.pipelineLayouts[key]; ok {
		return l, nil
	}
	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(c.device, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{setLayout},
		PushConstantRangeCount: uint32(len(pushConstants)),
		PPushConstantRanges:    pushConstants,
	}, nil, &layout)
	if ret != vk.Success {
		return nil, vkcoreNewError(ret)
	}
	c.pipelineLayouts[key] = layout
	return layout, nil
}

func (c *LayoutCache) Destroy() {
	for _, l := range c.pipelineLayouts {
		vk.DestroyPipelineLayout(c.device, l, nil)
	}
	for _, l := range c.setLayouts {
		vk.DestroyDescriptorSetLayout(c.device, l, nil)
	}
}
