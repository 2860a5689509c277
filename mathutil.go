package vkcore

import lin "github.com/xlab/linmath"

// VulkanProjectionMat converts an OpenGL-style projection matrix to
// Vulkan's clip-space convention: Y is flipped (X=-1,Y=-1 is top-left in
// Vulkan) and the depth range is remapped from [-1,1] to [0,1]. Kept
// verbatim from the teacher's math.go.
func VulkanProjectionMat(m *lin.Mat4x4, proj *lin.Mat4x4) {
	m.Fill(1.0)
	m.ScaleAniso(m, 1.0, -1.0, 1.0)
	m.ScaleAniso(m, 1.0, 1.0, 0.5)
	m.Translate(0.0, 0.0, 1.0)
	m.Mult(m, proj)
}
