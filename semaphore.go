package vkcore

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// semaphoreState tracks what a binary semaphore is waiting to do next,
// mirroring the four-state handshake in
// Luna/Include/Luna/Vulkan/Semaphore.hpp: a semaphore signaled by one
// submission must be consumed by exactly one subsequent wait before it
// can be recycled, and a semaphore borrowed from a foreign queue (the
// swapchain's image-acquire semaphore) is never recycled by the pool
// that issued it.
type semaphoreState int

const (
	semaphoreIdle semaphoreState = iota
	semaphorePendingSignal
	semaphorePendingWait
	semaphoreForeign
)

// Semaphore wraps a VkSemaphore with the signal/consume bookkeeping
// Device needs to decide whether a handle can go back to its pool.
// Grounded on Semaphore.hpp's Semaphore class.
type Semaphore struct {
	handle vk.Semaphore
	state  semaphoreState
	timeline bool
	value  uint64 // current target value, timeline semaphores only
}

func newBinarySemaphore(device vk.Device) (*Semaphore, error) {
	var h vk.Semaphore
	ret := vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &h)
	if err := newError(ret); err != nil {
		return nil, err
	}
	return &Semaphore{handle: h, state: semaphoreIdle}, nil
}

func newTimelineSemaphore(device vk.Device, initial uint64) (*Semaphore, error) {
	typeInfo := vk.SemaphoreTypeCreateInfo{
		SType:         vk.StructureTypeSemaphoreTypeCreateInfo,
		SemaphoreType: vk.SemaphoreTypeTimeline,
		InitialValue:  initial,
	}
	var h vk.Semaphore
	ret := vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
		PNext: unsafe.Pointer(&typeInfo),
	}, nil, &h)
	if err := newError(ret); err != nil {
		return nil, err
	}
	return &Semaphore{handle: h, state: semaphoreIdle, timeline: true, value: initial}, nil
}

func (s *Semaphore) Handle() vk.Semaphore { return s.handle }
func (s *Semaphore) IsTimeline() bool     { return s.timeline }

// SignalPending marks the semaphore as about to be signaled by a
// submission the caller is building; it must be Consumed before reuse.
func (s *Semaphore) SignalPending() {
	s.state = semaphorePendingSignal
}

// Consume transitions a pending-signal semaphore into the wait of the
// next submission. Mirrors Semaphore::Consume: a semaphore can only be
// waited on once per signal.
func (s *Semaphore) Consume() vk.Semaphore {
	h := s.handle
	s.state = semaphorePendingWait
	return h
}

// Release returns the semaphore to idle once its wait has retired
// (fence signaled / timeline value reached).
func (s *Semaphore) Release() {
	s.state = semaphoreIdle
}

// SetForeignQueue marks a semaphore as owned by an external producer --
// the swapchain's KHR acquire semaphore, for instance -- so the
// recycling pool never hands it back out as a fresh signal semaphore.
func (s *Semaphore) SetForeignQueue() {
	s.state = semaphoreForeign
}

func (s *Semaphore) IsForeign() bool { return s.state == semaphoreForeign }

// recyclable reports whether the pool may reuse this semaphore's slot.
func (s *Semaphore) recyclable() bool {
	return s.state == semaphoreIdle
}

// SemaphorePool recycles binary semaphores within a frame, since the
// teacher's FenceManager (managers.go) shows the same "ring of N,
// recycled once the frame's fence signals" shape applied to fences.
type SemaphorePool struct {
	device vk.Device
	free   []*Semaphore
}

func NewSemaphorePool(device vk.Device) *SemaphorePool {
	return &SemaphorePool{device: device}
}

func (p *SemaphorePool) Acquire() (*Semaphore, error) {
	for len(p.free) > 0 {
		n := len(p.free) - 1
		s := p.free[n]
		p.free = p.free[:n]
		if s.recyclable() {
			return s, nil
		}
	}
	return newBinarySemaphore(p.device)
}

func (p *SemaphorePool) Recycle(s *Semaphore) {
	if s.IsForeign() {
		return
	}
	s.Release()
	p.free = append(p.free, s)
}

func (p *SemaphorePool) Destroy() {
	for _, s := range p.free {
		vk.DestroySemaphore(p.device, s.handle, nil)
	}
	p.free = nil
}
