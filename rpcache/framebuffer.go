package rpcache

import (
	"fmt"
	"strings"

	vk "github.com/vulkan-go/vulkan"

	"github.com/ashforge/vkcore"
)

// framebufferKey identifies a framebuffer by the render pass it is
// compatible with plus the exact image views bound to it -- unlike
// render passes, framebuffers are cheap but tied to specific image
// views, so the cache key must include them.
type framebufferKey struct {
	renderPass vk.RenderPass
	views      string
	width      uint32
	height     uint32
}

func viewsKey(views []vk.ImageView) string {
	parts := make([]string, len(views))
	for i, v := range views {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, "|")
}

// FramebufferRing caches one framebuffer per distinct (render pass,
// image views, extent) combination, up to ringSize framebuffers in
// total, and destroys the oldest entry once the ring is full, matching
// spec.md §4.5's 8-frame framebuffer
// ring: swapchain image views rotate every frame, so the cache must
// hold one entry per in-flight swapchain image rather than a single
// global slot. Grounded on the teacher's CoreSwapchain.CreateFrameBuffer
// (swapchain.go), generalized from per-swapchain-image arrays built
// once at startup into an on-demand cache keyed by attachment identity.
type FramebufferRing struct {
	device  vk.Device
	ring    int
	order   []framebufferKey
	entries map[framebufferKey]vk.Framebuffer
}

func NewFramebufferRing(device vk.Device, ringSize int) *FramebufferRing {
	if ringSize <= 0 {
		ringSize = 8
	}
	return &FramebufferRing{device: device, ring: ringSize, entries: make(map[framebufferKey]vk.Framebuffer)}
}

func (r *FramebufferRing) Get(renderPass vk.RenderPass, views []vk.ImageView, width, height uint32) (vk.Framebuffer, error) {
	key := framebufferKey{renderPass: renderPass, views: viewsKey(views), width: width, height: height}
	if fb, ok := r.entries[key]; ok {
		return fb, nil
	}

	var fb vk.Framebuffer
	ret := vk.CreateFramebuffer(r.device, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           width,
		Height:          height,
		Layers:          1,
	}, nil, &fb)
	if ret != vk.Success {
		return nil, vkcore.WrapResult(ret)
	}

	if len(r.order) >= r.ring {
		oldest := r.order[0]
		r.order = r.order[1:]
		if old, ok := r.entries[oldest]; ok {
			vk.DestroyFramebuffer(r.device, old, nil)
			delete(r.entries, oldest)
		}
	}
	r.order = append(r.order, key)
	r.entries[key] = fb
	return fb, nil
}

func (r *FramebufferRing) Destroy() {
	for _, fb := range r.entries {
		vk.DestroyFramebuffer(r.device, fb, nil)
	}
	r.entries, r.order = nil, nil
}
