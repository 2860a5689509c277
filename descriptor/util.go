package descriptor

import "unsafe"

// pNext returns an unsafe.Pointer suitable for a vk structure's PNext
// field, pointing at the typed extension struct v.
func pNext[T any](v *T) unsafe.Pointer { return unsafe.Pointer(v) }
