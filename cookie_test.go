package vkcore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Cookie monotonicity (spec.md §8): any two objects created on the same
// Device get distinct cookies, and an earlier-created object's cookie
// compares smaller.
func TestCookieMonotonicity(t *testing.T) {
	src := &CookieSource{}
	a := NewCookie(src)
	b := NewCookie(src)

	assert.NotEqual(t, a.Value(), b.Value())
	assert.Less(t, a.Value(), b.Value())
}

func TestCookieSourceConcurrentAllocateNeverRepeats(t *testing.T) {
	src := &CookieSource{}
	const n = 256
	seen := make([]uint64, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			seen[i] = src.Allocate()
		}(i)
	}
	wg.Wait()

	unique := make(map[uint64]struct{}, n)
	for _, v := range seen {
		unique[v] = struct{}{}
	}
	assert.Len(t, unique, n, "every concurrently allocated cookie must be distinct")
}
