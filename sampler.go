package vkcore

import vk "github.com/vulkan-go/vulkan"

// SamplerInfo describes a sampler. spec.md §3 names Sampler as its own
// resource kind distinct from Image since samplers are small, reusable
// across many images, and deserve their own cookie/cache key.
type SamplerInfo struct {
	MinFilter  vk.Filter
	MagFilter  vk.Filter
	AddressMode vk.SamplerAddressMode
	MipmapMode vk.SamplerMipmapMode
	MaxAnisotropy float32
}

type Sampler struct {
	Cookie
	device vk.Device
	handle vk.Sampler
}

func (s *Sampler) Handle() vk.Sampler { return s.handle }

func (s *Sampler) destroy() {
	if s.handle != nil {
		vk.DestroySampler(s.device, s.handle, nil)
	}
}

func createSampler(device vk.Device, cookies *CookieSource, info SamplerInfo) (*Sampler, error) {
	anisotropyEnable := vk.Bool32(vk.False)
	if info.MaxAnisotropy > 1.0 {
		anisotropyEnable = vk.Bool32(vk.True)
	}
	var handle vk.Sampler
	ret := vk.CreateSampler(device, &vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               info.MagFilter,
		MinFilter:               info.MinFilter,
		MipmapMode:              info.MipmapMode,
		AddressModeU:            info.AddressMode,
		AddressModeV:            info.AddressMode,
		AddressModeW:            info.AddressMode,
		AnisotropyEnable:        anisotropyEnable,
		MaxAnisotropy:           info.MaxAnisotropy,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		CompareOp:               vk.CompareOpAlways,
	}, nil, &handle)
	if err := newError(ret); err != nil {
		return nil, err
	}
	return &Sampler{Cookie: NewCookie(cookies), device: device, handle: handle}, nil
}
