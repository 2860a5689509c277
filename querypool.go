package vkcore

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// QueryPool wraps a VkQueryPool for GPU timestamp/occlusion queries.
// spec.md §3 lists QueryPool alongside the other resource kinds so the
// render-graph scheduler can insert timestamp writes around physical
// passes without every caller managing pool lifetime by hand.
type QueryPool struct {
	Cookie
	device vk.Device
	handle vk.QueryPool
	count  uint32
	kind   vk.QueryType
}

func (q *QueryPool) Handle() vk.QueryPool { return q.handle }
func (q *QueryPool) Count() uint32        { return q.count }

func (q *QueryPool) destroy() {
	if q.handle != nil {
		vk.DestroyQueryPool(q.device, q.handle, nil)
	}
}

func createQueryPool(device vk.Device, cookies *CookieSource, kind vk.QueryType, count uint32) (*QueryPool, error) {
	var handle vk.QueryPool
	ret := vk.CreateQueryPool(device, &vk.QueryPoolCreateInfo{
		SType:      vk.StructureTypeQueryPoolCreateInfo,
		QueryType:  kind,
		QueryCount: count,
	}, nil, &handle)
	if err := newError(ret); err != nil {
		return nil, err
	}
	return &QueryPool{Cookie: NewCookie(cookies), device: device, handle: handle, count: count, kind: kind}, nil
}

// Reset zeroes the query pool's results, required before it can be
// written to again in a later frame.
func (q *QueryPool) Reset(cmd vk.CommandBuffer) {
	vk.CmdResetQueryPool(cmd, q.handle, 0, q.count)
}

// Results reads back count uint64 results starting at first, waiting
// for availability. Intended for use once the owning frame's fence has
// signaled.
func (q *QueryPool) Results(first, count uint32) ([]uint64, error) {
	out := make([]uint64, count)
	ret := vk.GetQueryPoolResults(q.device, q.handle, first, count,
		uint(count)*8, unsafe.Pointer(&out[0]), 8, vk.QueryResultFlags(vk.QueryResult64Bit|vk.QueryResultWaitBit))
	if err := newError(ret); err != nil {
		return nil, err
	}
	return out, nil
}
