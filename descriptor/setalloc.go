// Package descriptor implements the descriptor-set allocation and
// pipeline-state caching layer: a ring of descriptor pools with a
// short-lived hash-keyed lookup cache, plus a bindless pool for large,
// update-after-bind texture arrays.
package descriptor

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/ashforge/vkcore"
)

// poolSizes is the fixed mix of descriptor types every allocated pool
// block supports, generalized from the teacher's single hardcoded
// uniform-buffer binding (buffers.go) into the broader set a real
// render graph needs: uniform/storage buffers, sampled images and
// samplers.
func poolSizes(setsPerPool uint32) []vk.DescriptorPoolSize {
	return []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: setsPerPool * 4},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: setsPerPool * 2},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: setsPerPool * 8},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: setsPerPool * 2},
	}
}

// setKey identifies a cached descriptor set by the layout it was
// allocated against plus a caller-supplied content hash (typically a
// hash of the bound resource cookies) -- two draws that bind the exact
// same resources to the exact same layout reuse the same VkDescriptorSet
// instead of allocating a fresh one every frame.
type setKey struct {
	layout vk.DescriptorSetLayout
	hash   uint64
}

// pool is one VkDescriptorPool block plus how many sets it has handed
// out; once full it is retired and a new block takes over, mirroring
// the teacher's CommandBufferManager ring-of-blocks shape.
type pool struct {
	handle    vk.DescriptorPool
	allocated uint32
	capacity  uint32
}

// SetAllocator hands out descriptor sets for one frame-in-flight slot.
// The caller creates and owns it (Device holds none). It keeps a single
// ring, not one per thread, takes no lock and is not safe for
// concurrent use. Grounded on spec.md §4.4 and
// Luna/Include/Luna/Vulkan/DescriptorSet.hpp's DescriptorSetAllocator.
type SetAllocator struct {
	device      vk.Device
	setsPerPool uint32

	pools   []*pool
	current int

	cache map[setKey]vk.DescriptorSet
}

func NewSetAllocator(device vk.Device, setsPerPool uint32) *SetAllocator {
	if setsPerPool == 0 {
		setsPerPool = 16
	}
	return &SetAllocator{
		device:      device,
		setsPerPool: setsPerPool,
		cache:       make(map[setKey]vk.DescriptorSet),
	}
}

// Allocate returns a descriptor set for layout, reusing the cached set
// for (layout, contentHash) if one was already allocated this frame.
func (a *SetAllocator) Allocate(layout vk.DescriptorSetLayout, contentHash uint64) (vk.DescriptorSet, bool, error) {
	key := setKey{layout: layout, hash: contentHash}
	if set, ok := a.cache[key]; ok {
		return set, true, nil
	}

	if a.current >= len(a.pools) || a.pools[a.current].allocated >= a.pools[a.current].capacity {
		p, err := a.growPool()
		if err != nil {
			return nil, false, err
		}
		a.pools = append(a.pools, p)
		a.current = len(a.pools) - 1
	}
	p := a.pools[a.current]

	sets := make([]vk.DescriptorSet, 1)
	ret := vk.AllocateDescriptorSets(a.device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}, sets)
	if ret != vk.Success {
		return nil, false, vkcoreNewError(ret)
	}
	p.allocated++
	a.cache[key] = sets[0]
	return sets[0], false, nil
}

func (a *SetAllocator) growPool() (*pool, error) {
	sizes := poolSizes(a.setsPerPool)
	var handle vk.DescriptorPool
	ret := vk.CreateDescriptorPool(a.device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       a.setsPerPool,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &handle)
	if ret != vk.Success {
		return nil, vkcoreNewError(ret)
	}
	return &pool{handle: handle, capacity: a.setsPerPool}, nil
}

// Reset returns every pool block to empty and clears the set cache.
// Called once per frame, after the frame's fence has signaled: any set
// allocated this slot is known retired on the GPU by then.
func (a *SetAllocator) Reset() {
	for _, p := range a.pools {
		vk.ResetDescriptorPool(a.device, p.handle, 0)
		p.allocated = 0
	}
	a.current = 0
	for k := range a.cache {
		delete(a.cache, k)
	}
}

func (a *SetAllocator) Destroy() {
	for _, p := range a.pools {
		vk.DestroyDescriptorPool(a.device, p.handle, nil)
	}
	a.pools = nil
}

// vkcoreNewError adapts a raw vk.Result into vkcore's typed error so
// this package never duplicates the Kind classification logic.
func vkcoreNewError(ret vk.Result) error {
	return vkcore.WrapResult(ret)
}
