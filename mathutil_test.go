package vkcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	lin "github.com/xlab/linmath"
)

// VulkanProjectionMat must be a pure, deterministic transform of its
// input: the same projection matrix always fixes up to the same
// Vulkan-clip-space result, and it must not mutate its proj argument.
func TestVulkanProjectionMatIsDeterministic(t *testing.T) {
	var proj lin.Mat4x4
	proj.Fill(1.0)
	projBefore := proj

	var a, b lin.Mat4x4
	VulkanProjectionMat(&a, &proj)
	VulkanProjectionMat(&b, &proj)

	assert.Equal(t, a, b)
	assert.Equal(t, projBefore, proj, "VulkanProjectionMat must not mutate its proj input")
}
