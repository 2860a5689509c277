package descriptor

import (
	"os"
	"sync"
	"sync/atomic"

	vk "github.com/vulkan-go/vulkan"

	"github.com/ashforge/vkcore"
)

// Program is a linked set of shader stage modules plus the layout they
// were built against. Grounded on the teacher's ShaderProgram
// (shader.go), generalized from the hardcoded vertex+fragment pair to
// an arbitrary stage list so compute-only and geometry/tessellation
// programs fit the same type.
type Program struct {
	Stages []vk.PipelineShaderStageCreateInfo
	Layout vk.PipelineLayout
}

// Bound pairs this program's layout with a concrete compiled pipeline,
// producing the value vkcore.CommandBuffer.SetProgram expects.
// descriptor cannot hand back a ready-to-bind vkcore type directly --
// vkcore must not import descriptor, since descriptor already imports
// vkcore (WrapResult/Kind) and that would cycle -- so this adapter lives
// on the descriptor side of the boundary instead.
func (p *Program) Bound(pipeline vk.Pipeline) vkcore.BoundProgram {
	return vkcore.BoundProgram{Pipeline: pipeline, Layout: p.Layout}
}

// LoadShaderModule reads SPIR-V bytecode from path and creates a
// VkShaderModule. Grounded on the teacher's CoreShader.LoadShaderModule,
// with the os.Exit(1) on read failure replaced by a returned error
// since a library must never terminate its host process.
func LoadShaderModule(device vk.Device, path string) (vk.ShaderModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(data)),
		PCode:    sliceUint32(data),
	}, nil, &module)
	if ret != vk.Success {
		return nil, vkcoreNewError(ret)
	}
	return module, nil
}

func sliceUint32(data []byte) []uint32 {
	const word = 4
	out := make([]uint32, len(data)/word)
	for i := range out {
		out[i] = uint32(data[i*word]) | uint32(data[i*word+1])<<8 |
			uint32(data[i*word+2])<<16 | uint32(data[i*word+3])<<24
	}
	return out
}

// pipelineKey hashes the pipeline state a Program compiles against: a
// compatible render pass, subpass index and the *Program (by pointer
// identity, not by its shader module handles). Two draw calls requesting
// the exact same key get the exact same compiled vk.Pipeline.
type pipelineKey struct {
	renderPass vk.RenderPass
	subpass    uint32
	program    *Program
}

// NewPipelineKey builds the cache key a PipelineCache.Get/GetOrCreate
// call needs. The key's type stays unexported -- callers hold it via
// type inference (key := NewPipelineKey(...)) the same way sort.Interface
// implementations are built from unexported struct types in the standard
// library.
func NewPipelineKey(renderPass vk.RenderPass, subpass uint32, program *Program) pipelineKey {
	return pipelineKey{renderPass: renderPass, subpass: subpass, program: program}
}

// PipelineCache caches compiled graphics/compute pipelines behind a
// read-mostly snapshot: readers (taskcomposer workers recording command
// buffers every frame) hit an atomically-swapped read-only map with no
// lock at all; a write under mutex rebuilds that snapshot and publishes
// it. Grounded on spec.md §4.4's "promote the write-side map to a new
// read-only snapshot" cache description and the teacher's
// CorePipeline/PipelineBuilder (pipeline.go), generalized from one
// hardcoded triangle pipeline to a hash-keyed cache of arbitrary
// pipeline state.
type PipelineCache struct {
	device vk.Device

	mu      sync.Mutex
	pending map[pipelineKey]vk.Pipeline

	readOnly atomic.Pointer[map[pipelineKey]vk.Pipeline]
}

func NewPipelineCache(device vk.Device) *PipelineCache {
	c := &PipelineCache{device: device, pending: make(map[pipelineKey]vk.Pipeline)}
	empty := map[pipelineKey]vk.Pipeline{}
	c.readOnly.Store(&empty)
	return c
}

// Get returns a cached pipeline for key without taking any lock. On a
// miss it returns false and builds nothing; use GetOrCreate to build.
func (c *PipelineCache) Get(key pipelineKey) (vk.Pipeline, bool) {
	m := c.readOnly.Load()
	p, ok := (*m)[key]
	return p, ok
}

// GetOrCreate looks up key in the lock-free snapshot first; on a miss
// it takes the write lock, builds the pipeline via build, merges it
// into a fresh snapshot and atomically publishes that snapshot so
// future reads see it without a lock.
func (c *PipelineCache) GetOrCreate(key pipelineKey, build func() (vk.Pipeline, error)) (vk.Pipeline, error) {
	if p, ok := c.Get(key); ok {
		return p, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pending[key]; ok {
		return p, nil
	}
	p, err := build()
	if err != nil {
		return nil, err
	}
	c.pending[key] = p

	snapshot := make(map[pipelineKey]vk.Pipeline, len(c.pending))
	for k, v := range c.pending {
		snapshot[k] = v
	}
	c.readOnly.Store(&snapshot)
	return p, nil
}

func (c *PipelineCache) Destroy() {
	for _, p := range c.pending {
		vk.DestroyPipeline(c.device, p, nil)
	}
	c.pending = nil
}
