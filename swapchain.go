package vkcore

import vk "github.com/vulkan-go/vulkan"

// Swapchain is intentionally thin: Device never owns a VkSwapchainKHR
// (spec.md §4.2), since a swapchain recreate (window resize, present
// mode change) must not tear down the frames-in-flight state that
// outlives it. Grounded on the teacher's CoreSwapchain
// (swapchain.go), trimmed to the fields a Device-external collaborator
// needs: image handles/views, extent and the raw handle.
type Swapchain struct {
	device    vk.Device
	gpu       vk.PhysicalDevice
	surface   vk.Surface
	handle    vk.Swapchain
	format    vk.SurfaceFormat
	extent    vk.Extent2D
	images    []vk.Image
	views     []vk.ImageView
}

// NewSwapchain creates a swapchain for surface, reusing old (if any) as
// VkSwapchainCreateInfo.OldSwapchain so the driver can hand back
// existing image memory across a resize. Grounded on
// CoreSwapchain's construction block in swapchain.go, generalized to
// accept an explicit desired image count instead of the teacher's
// hardcoded depth parameter threading through NewCoreSwapchain.
func NewSwapchain(device vk.Device, gpu vk.PhysicalDevice, surface vk.Surface, desiredImages uint32, old vk.Swapchain) (*Swapchain, error) {
	var caps vk.SurfaceCapabilities
	if err := newError(vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &caps)); err != nil {
		return nil, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)
	if formatCount == 0 {
		return nil, newErrorf(KindSurfaceLost, "no surface formats available")
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, formats)
	formats[0].Deref()
	format := formats[0]
	if format.Format == vk.FormatUndefined {
		format.Format = vk.FormatB8g8r8a8Srgb
	}

	extent := caps.CurrentExtent
	if extent.Width == vk.MaxUint32 {
		return nil, newErrorf(KindSurfaceLost, "surface reports indeterminate extent")
	}

	count := desiredImages
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	if count < caps.MinImageCount {
		count = caps.MinImageCount
	}

	preTransform := caps.CurrentTransform
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, candidate := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit, vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit, vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(candidate) != 0 {
			compositeAlpha = candidate
			break
		}
	}

	var handle vk.Swapchain
	ret := vk.CreateSwapchain(device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    count,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}, nil, &handle)
	if err := newError(ret); err != nil {
		return nil, err
	}
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(device, old, nil)
	}

	sc := &Swapchain{device: device, gpu: gpu, surface: surface, handle: handle, format: format, extent: extent}
	if err := sc.fetchImages(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Swapchain) fetchImages() error {
	var count uint32
	if err := newError(vk.GetSwapchainImages(sc.device, sc.handle, &count, nil)); err != nil {
		return err
	}
	sc.images = make([]vk.Image, count)
	if err := newError(vk.GetSwapchainImages(sc.device, sc.handle, &count, sc.images)); err != nil {
		return err
	}
	sc.views = make([]vk.ImageView, count)
	for i, img := range sc.images {
		var view vk.ImageView
		ret := vk.CreateImageView(sc.device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   sc.format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleR, G: vk.ComponentSwizzleG,
				B: vk.ComponentSwizzleB, A: vk.ComponentSwizzleA,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &view)
		if err := newError(ret); err != nil {
			return err
		}
		sc.views[i] = view
	}
	return nil
}

func (sc *Swapchain) Extent() vk.Extent2D      { return sc.extent }
func (sc *Swapchain) Format() vk.Format         { return sc.format.Format }
func (sc *Swapchain) ImageCount() int           { return len(sc.images) }
func (sc *Swapchain) View(i uint32) vk.ImageView { return sc.views[i] }
func (sc *Swapchain) Image(i uint32) vk.Image    { return sc.images[i] }
func (sc *Swapchain) Handle() vk.Swapchain       { return sc.handle }

// AcquireNextImage blocks (no timeout) until an image is available and
// signals sem when it is. Returns a *Error with KindSwapchainOutOfDate
// or KindSwapchainSuboptimal on recoverable conditions.
func (sc *Swapchain) AcquireNextImage(sem vk.Semaphore) (uint32, error) {
	var idx uint32
	ret := vk.AcquireNextImage(sc.device, sc.handle, vk.MaxUint64, sem, vk.NullFence, &idx)
	if ret == vk.Success {
		return idx, nil
	}
	return idx, newError(ret)
}

// Present queues the acquired image for presentation on queue, waiting
// on waitSem (the frame's render-complete semaphore).
func (sc *Swapchain) Present(queue vk.Queue, imageIndex uint32, waitSem vk.Semaphore) error {
	ret := vk.QueuePresent(queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{waitSem},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.handle},
		PImageIndices:      []uint32{imageIndex},
	})
	if ret == vk.Success {
		return nil
	}
	return newError(ret)
}

func (sc *Swapchain) Destroy() {
	for _, v := range sc.views {
		vk.DestroyImageView(sc.device, v, nil)
	}
	if sc.handle != vk.NullSwapchain {
		vk.DestroySwapchain(sc.device, sc.handle, nil)
	}
}
