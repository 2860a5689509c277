// Package rpcache caches the render-pass-compatible objects a render
// graph bake produces so that repeated bakes with the same attachment
// shape reuse VkRenderPass/VkFramebuffer objects rather than rebuilding
// them every frame.
package rpcache

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/ashforge/vkcore"
)

// AttachmentDesc is the subset of vk.AttachmentDescription that
// determines render-pass compatibility: format, sample count and the
// load/store ops the graph compiler decided for this attachment.
type AttachmentDesc struct {
	Format      vk.Format
	Samples     vk.SampleCountFlagBits
	LoadOp      vk.AttachmentLoadOp
	StoreOp     vk.AttachmentStoreOp
	InitialLayout vk.ImageLayout
	FinalLayout   vk.ImageLayout
	IsDepth     bool
}

// PassDesc is a hashable description of a physical pass's attachment
// set -- the render-graph compiler's output after subpass merging
// (spec.md §4.6). Two PassDescs that hash equal are compatible per the
// Vulkan spec's render-pass-compatibility rules and may share one
// VkRenderPass.
type PassDesc struct {
	Color []AttachmentDesc
	Depth *AttachmentDesc
}

func (d PassDesc) key() string {
	buf := make([]byte, 0, 32*(len(d.Color)+1))
	for _, a := range d.Color {
		buf = appendAttachment(buf, a)
	}
	if d.Depth != nil {
		buf = appendAttachment(buf, *d.Depth)
	}
	return string(buf)
}

func appendAttachment(buf []byte, a AttachmentDesc) []byte {
	return append(buf,
		byte(a.Format), byte(a.Format>>8), byte(a.Format>>16), byte(a.Format>>24),
		byte(a.Samples), byte(a.LoadOp), byte(a.StoreOp),
		byte(a.InitialLayout), byte(a.FinalLayout),
	)
}

// Cache maps a PassDesc to a compiled VkRenderPass, built once per
// distinct attachment shape for the lifetime of the Device. Grounded
// on the teacher's CoreRenderPass.CreateRenderPass (renderpass.go),
// generalized from one hardcoded color+depth attachment pair to an
// arbitrary attachment list, hashed per spec.md §4.5.
type Cache struct {
	device  vk.Device
	entries map[string]vk.RenderPass
}

func NewCache(device vk.Device) *Cache {
	return &Cache{device: device, entries: make(map[string]vk.RenderPass)}
}

func (c *Cache) Get(desc PassDesc) (vk.RenderPass, error) {
	key := desc.key()
	if rp, ok := c.entries[key]; ok {
		return rp, nil
	}
	rp, err := c.build(desc)
	if err != nil {
		return nil, err
	}
	c.entries[key] = rp
	return rp, nil
}

func (c *Cache) build(desc PassDesc) (vk.RenderPass, error) {
	var descriptions []vk.AttachmentDescription
	var colorRefs []vk.AttachmentReference
	var depthRef *vk.AttachmentReference

	for i, a := range desc.Color {
		descriptions = append(descriptions, vkAttachmentDescription(a))
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
	}
	if desc.Depth != nil {
		descriptions = append(descriptions, vkAttachmentDescription(*desc.Depth))
		ref := vk.AttachmentReference{
			Attachment: uint32(len(descriptions) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		depthRef = &ref
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorRefs)),
		PColorAttachments:       colorRefs,
		PDepthStencilAttachment: depthRef,
	}

	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.MaxUint32,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessMemoryReadBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
		},
	}

	var rp vk.RenderPass
	ret := vk.CreateRenderPass(c.device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descriptions)),
		PAttachments:    descriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}, nil, &rp)
	if ret != vk.Success {
		return nil, vkcore.WrapResult(ret)
	}
	return rp, nil
}

func vkAttachmentDescription(a AttachmentDesc) vk.AttachmentDescription {
	return vk.AttachmentDescription{
		Format:         a.Format,
		Samples:        a.Samples,
		LoadOp:         a.LoadOp,
		StoreOp:        a.StoreOp,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  a.InitialLayout,
		FinalLayout:    a.FinalLayout,
	}
}

func (c *Cache) Destroy() {
	for _, rp := range c.entries {
		vk.DestroyRenderPass(c.device, rp, nil)
	}
	c.entries = nil
}
