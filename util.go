package vkcore

import "unsafe"

// pNextOf returns an unsafe.Pointer suitable for a vk structure's PNext
// field, pointing at the typed extension struct v.
func pNextOf[T any](v *T) unsafe.Pointer { return unsafe.Pointer(v) }

// sliceUint32 reinterprets a SPIR-V byte blob as the uint32 slice
// vk.ShaderModuleCreateInfo.PCode expects. Grounded on the teacher's
// util.go sliceUint32 / shader.go LoadShaderModule.
func sliceUint32(data []byte) []uint32 {
	const wordSize = 4
	out := make([]uint32, len(data)/wordSize)
	for i := range out {
		out[i] = uint32(data[i*wordSize]) |
			uint32(data[i*wordSize+1])<<8 |
			uint32(data[i*wordSize+2])<<16 |
			uint32(data[i*wordSize+3])<<24
	}
	return out
}
