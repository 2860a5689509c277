package vkcore

import "fmt"

// Usage is a loosely-typed configuration tree, kept from the teacher's
// usage.go almost verbatim: a named bag of string/int/bool/float
// properties that can chain to a linked Usage. The teacher used this to
// describe device/display/multi-GPU usage patterns ahead of JSON
// parsing; here it doubles as the tuning surface for Device and
// RenderGraph knobs (frames-in-flight, descriptor pool block sizes,
// worker-pool size) since no config/flag library appears anywhere in
// the retrieved pack.
type Usage struct {
	Name        string
	StringProps map[string]string
	IntProps    map[string]int
	BoolProps   map[string]bool
	FloatProps  map[string]float32
	Linked      *Usage
}

// NewUsage allocates a Usage with its property maps pre-sized.
func NewUsage(name string, defaultSize uint) *Usage {
	return &Usage{
		Name:        name,
		StringProps: make(map[string]string, defaultSize),
		IntProps:    make(map[string]int, defaultSize),
		BoolProps:   make(map[string]bool, defaultSize),
		FloatProps:  make(map[string]float32, defaultSize),
	}
}

// HasNext reports whether this Usage chains to another.
func (u *Usage) HasNext() bool { return u.Linked != nil }

// GetLinked returns the linked Usage, or an error if there is none.
func (u *Usage) GetLinked() (*Usage, error) {
	if u.Linked == nil {
		return nil, fmt.Errorf("usage %q has no linked usage", u.Name)
	}
	return u.Linked, nil
}

// IntOr returns the named int property or a default.
func (u *Usage) IntOr(key string, def int) int {
	if v, ok := u.IntProps[key]; ok {
		return v
	}
	return def
}

// BoolOr returns the named bool property or a default.
func (u *Usage) BoolOr(key string, def bool) bool {
	if v, ok := u.BoolProps[key]; ok {
		return v
	}
	return def
}

// StringOr returns the named string property or a default.
func (u *Usage) StringOr(key string, def string) string {
	if v, ok := u.StringProps[key]; ok {
		return v
	}
	return def
}

// DeviceTuning is the subset of Usage that Device reads at construction:
// frames-in-flight, descriptor pool sizing, worker-pool width. Reading
// it out of a generic Usage keeps the teacher's config shape while
// giving Device typed access to the knobs it actually needs.
type DeviceTuning struct {
	FramesInFlight       int
	DescriptorSetsPerPool int
	TransientRingFrames  int
	WorkerThreads        int
}

// DefaultDeviceTuning returns the tuning values spec.md names as
// "typically" defaults: 2-3 frames in flight, MAX_SETS/MAX_BINDINGS
// sized descriptor pools, 8-frame transient/framebuffer rings.
func DefaultDeviceTuning() DeviceTuning {
	return DeviceTuning{
		FramesInFlight:        2,
		DescriptorSetsPerPool: 16,
		TransientRingFrames:   8,
		WorkerThreads:         0, // 0 => auto; the caller picks the count (taskcomposer clamps values below 1 to 1)
	}
}

// TuningFromUsage reads a DeviceTuning out of a Usage tree, falling back
// to DefaultDeviceTuning for anything unset.
func TuningFromUsage(u *Usage) DeviceTuning {
	t := DefaultDeviceTuning()
	if u == nil {
		return t
	}
	t.FramesInFlight = u.IntOr("FramesInFlight", t.FramesInFlight)
	t.DescriptorSetsPerPool = u.IntOr("DescriptorSetsPerPool", t.DescriptorSetsPerPool)
	t.TransientRingFrames = u.IntOr("TransientRingFrames", t.TransientRingFrames)
	t.WorkerThreads = u.IntOr("WorkerThreads", t.WorkerThreads)
	return t
}
