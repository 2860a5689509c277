package vkcore

import "sync/atomic"

// refCounter abstracts the bi-modal refcount spec.md §3 describes for
// Handle<T>: atomically refcounted by default, with a non-atomic
// "internal sync" mode resources opt into at construction when they are
// known to be touched by exactly one thread (§9: "bi-modal counters are
// an optimization — default to atomic and allow a specialization only
// when profiling demands it").
type refCounter interface {
	inc() int32
	dec() int32
	load() int32
}

type atomicRefCounter struct{ v atomic.Int32 }

func newAtomicRefCounter() *atomicRefCounter {
	c := &atomicRefCounter{}
	c.v.Store(1)
	return c
}
func (c *atomicRefCounter) inc() int32  { return c.v.Add(1) }
func (c *atomicRefCounter) dec() int32  { return c.v.Add(-1) }
func (c *atomicRefCounter) load() int32 { return c.v.Load() }

type plainRefCounter struct{ v int32 }

func newPlainRefCounter() *plainRefCounter { return &plainRefCounter{v: 1} }
func (c *plainRefCounter) inc() int32      { c.v++; return c.v }
func (c *plainRefCounter) dec() int32      { c.v--; return c.v }
func (c *plainRefCounter) load() int32     { return c.v }

// slot is one pool-owned object plus the generation counter that lets a
// stale Handle detect that its slot has been recycled out from under it.
type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Pool is a thread-safe, generation-counted object pool. It is the
// replacement for the teacher's cyclic Device<->resource ownership
// (§9 "Cyclic ownership"): the Device owns Pool[T] instances and a
// Handle never holds a back-pointer to the Device, only to the pool
// that issued it.
type Pool[T any] struct {
	mu       chan struct{} // binary semaphore; see lock()/unlock()
	slots    []*slot[T]
	freeList []int
}

func NewPool[T any]() *Pool[T] {
	p := &Pool[T]{mu: make(chan struct{}, 1)}
	p.mu <- struct{}{}
	return p
}

func (p *Pool[T]) lock()   { <-p.mu }
func (p *Pool[T]) unlock() { p.mu <- struct{}{} }

// Acquire pulls a recycled slot or grows the pool, then returns a fresh
// Handle[T] with refcount 1. internalSync selects the non-atomic
// refcount specialization.
func (p *Pool[T]) Acquire(factory func() T, internalSync bool) Handle[T] {
	p.lock()
	var idx int
	if n := len(p.freeList); n > 0 {
		idx = p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		s := p.slots[idx]
		s.value = factory()
		s.generation++
		s.live = true
	} else {
		p.slots = append(p.slots, &slot[T]{value: factory(), generation: 1, live: true})
		idx = len(p.slots) - 1
	}
	gen := p.slots[idx].generation
	p.unlock()

	var rc refCounter
	if internalSync {
		rc = newPlainRefCounter()
	} else {
		rc = newAtomicRefCounter()
	}
	return Handle[T]{pool: p, index: idx, generation: gen, refs: rc}
}

// release returns a slot to the free list. Precondition (checked): the
// slot's generation must still match and it must be marked live -- this
// is the refcount=0 precondition on pool-return that the handle-safety
// invariant (spec.md §8) requires; a mismatch means the slot was already
// recycled, and release is a silent no-op rather than a double free.
func (p *Pool[T]) release(idx int, generation uint32) {
	p.lock()
	defer p.unlock()
	if idx >= 0 && idx < len(p.slots) {
		s := p.slots[idx]
		if s.live && s.generation == generation {
			s.live = false
			p.freeList = append(p.freeList, idx)
		}
	}
}

// Live reports how many slots are currently checked out. Useful for
// tests asserting the handle-safety invariant.
func (p *Pool[T]) Live() int {
	p.lock()
	defer p.unlock()
	n := 0
	for _, s := range p.slots {
		if s.live {
			n++
		}
	}
	return n
}

// Handle is an intrusive, refcounted owning reference to a pooled
// object (spec.md §3 "Handle<T>"). The zero Handle is invalid; always
// obtain one from Pool.Acquire.
type Handle[T any] struct {
	pool       *Pool[T]
	index      int
	generation uint32
	refs       refCounter
}

// Valid reports whether h was ever issued by a pool.
func (h Handle[T]) Valid() bool { return h.pool != nil }

// Get returns a pointer to the underlying object. The pointer is only
// valid while the caller holds a live reference.
func (h Handle[T]) Get() *T {
	return &h.pool.slots[h.index].value
}

// Retain increments the refcount and returns the same logical handle.
// Every Retain must be balanced by a Release.
func (h Handle[T]) Retain() Handle[T] {
	h.refs.inc()
	return h
}

// RefCount returns the current refcount, for diagnostics and tests.
func (h Handle[T]) RefCount() int32 { return h.refs.load() }

// Release drops one reference. When the last handle drops, the
// underlying object is returned to its pool (spec.md §8 "Handle
// safety").
func (h Handle[T]) Release() {
	if h.refs.dec() == 0 {
		h.pool.release(h.index, h.generation)
	}
}
