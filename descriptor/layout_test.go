package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

// Round-trip (spec.md §8): the same binding set always hashes to the
// same layout key, so LayoutCache.SetLayout returns the identical
// VkDescriptorSetLayout for two equivalent requests within a frame.
func TestHashBindingsIsDeterministic(t *testing.T) {
	a := []Binding{
		{Index: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 1, Stage: vk.ShaderStageFlags(vk.ShaderStageVertexBit)},
		{Index: 1, Type: vk.DescriptorTypeCombinedImageSampler, Count: 1, Stage: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)},
	}
	b := []Binding{
		{Index: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 1, Stage: vk.ShaderStageFlags(vk.ShaderStageVertexBit)},
		{Index: 1, Type: vk.DescriptorTypeCombinedImageSampler, Count: 1, Stage: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)},
	}

	assert.Equal(t, hashBindings(a), hashBindings(b))
}

func TestHashBindingsDiffersOnAnyField(t *testing.T) {
	base := []Binding{{Index: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 1, Stage: vk.ShaderStageFlags(vk.ShaderStageVertexBit)}}

	diffCount := []Binding{{Index: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 2, Stage: vk.ShaderStageFlags(vk.ShaderStageVertexBit)}}
	diffType := []Binding{{Index: 0, Type: vk.DescriptorTypeStorageBuffer, Count: 1, Stage: vk.ShaderStageFlags(vk.ShaderStageVertexBit)}}
	diffStage := []Binding{{Index: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 1, Stage: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)}}

	assert.NotEqual(t, hashBindings(base), hashBindings(diffCount))
	assert.NotEqual(t, hashBindings(base), hashBindings(diffType))
	assert.NotEqual(t, hashBindings(base), hashBindings(diffStage))
}

func TestHashBindingsEmptyIsStable(t *testing.T) {
	assert.Equal(t, hashBindings(nil), hashBindings([]Binding{}))
}
