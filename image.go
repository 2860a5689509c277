package vkcore

import vk "github.com/vulkan-go/vulkan"

// ImageInfo describes the image Device.AllocateImage resolves to a concrete
// VkImage + view + bound memory. Grounded on the teacher's image.go
// (CoreImage) and context.go's Texture/Depth helper structs,
// generalized to any format/usage/extent combination per spec.md §3.
type ImageInfo struct {
	Extent      vk.Extent3D
	Format      vk.Format
	Usage       vk.ImageUsageFlagBits
	Samples     vk.SampleCountFlagBits
	MipLevels   uint32
	ArrayLayers uint32
	Aspect      vk.ImageAspectFlags
}

// Image is a pooled GPU image, its default view and cookie.
type Image struct {
	Cookie
	device vk.Device
	handle vk.Image
	memory vk.DeviceMemory
	view   vk.ImageView
	info   ImageInfo
}

func (i *Image) Handle() vk.Image     { return i.handle }
func (i *Image) View() vk.ImageView   { return i.view }
func (i *Image) Info() ImageInfo      { return i.info }

// Destroy releases the image's view and memory. Exported so transient
// allocators outside this package (rpcache.TransientAllocator) can tear
// down images they acquired through NewTransientImage.
func (i *Image) Destroy() { i.destroy() }

func (i *Image) destroy() {
	if i.view != nil {
		vk.DestroyImageView(i.device, i.view, nil)
	}
	if i.memory != nil {
		vk.FreeMemory(i.device, i.memory, nil)
	}
	if i.handle != nil {
		vk.DestroyImage(i.device, i.handle, nil)
	}
}

// NewTransientImage exposes createImage to sibling packages (rpcache's
// TransientAllocator) that need to mint backing images for render-graph
// attachments without duplicating the creation logic.
func NewTransientImage(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, cookies *CookieSource, info ImageInfo) (*Image, error) {
	return createImage(device, memProps, cookies, info)
}

func createImage(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, cookies *CookieSource, info ImageInfo) (*Image, error) {
	if info.MipLevels == 0 {
		info.MipLevels = 1
	}
	if info.ArrayLayers == 0 {
		info.ArrayLayers = 1
	}
	if info.Samples == 0 {
		info.Samples = vk.SampleCount1Bit
	}

	var handle vk.Image
	ret := vk.CreateImage(device, &vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		ImageType:   vk.ImageType2d,
		Format:      info.Format,
		Extent:      info.Extent,
		MipLevels:   info.MipLevels,
		ArrayLayers: info.ArrayLayers,
		Samples:     info.Samples,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(info.Usage),
		SharingMode: vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &handle)
	if err := newError(ret); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, handle, &req)
	req.Deref()

	memType, ok := findMemoryType(memProps, req.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		vk.DestroyImage(device, handle, nil)
		return nil, newErrorf(KindOutOfDeviceMemory, "no memory type for image requirements 0x%x", req.MemoryTypeBits)
	}

	var memory vk.DeviceMemory
	ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memType,
	}, nil, &memory)
	if err := newError(ret); err != nil {
		vk.DestroyImage(device, handle, nil)
		return nil, err
	}
	vk.BindImageMemory(device, handle, memory, 0)

	aspect := info.Aspect
	if aspect == 0 {
		aspect = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	var view vk.ImageView
	ret = vk.CreateImageView(device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   info.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			LevelCount:     info.MipLevels,
			LayerCount:     info.ArrayLayers,
		},
	}, nil, &view)
	if err := newError(ret); err != nil {
		vk.FreeMemory(device, memory, nil)
		vk.DestroyImage(device, handle, nil)
		return nil, err
	}

	return &Image{
		Cookie: NewCookie(cookies),
		device: device,
		handle: handle,
		memory: memory,
		view:   view,
		info:   info,
	}, nil
}
