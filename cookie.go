package vkcore

import "sync/atomic"

// CookieSource hands out process-unique, monotonically increasing
// 64-bit identifiers for every GPU-visible object a Device creates.
// Cookies are used as cache keys and to break ties between objects that
// would otherwise compare equal (spec.md §3 "Cookie", §8 "Cookie
// monotonicity"). Grounded on Luna/Include/Luna/Vulkan/Cookie.hpp and
// Device.hpp's _nextCookie counter.
type CookieSource struct {
	next atomic.Uint64
}

// Allocate returns the next cookie. Safe for concurrent use: multiple
// worker threads recording command buffers may create resources
// simultaneously, and cookie(a) != cookie(b) must hold regardless of
// which thread created which object.
func (c *CookieSource) Allocate() uint64 {
	return c.next.Add(1)
}

// Cookie is embedded by every pooled resource kind so it carries its own
// process-unique id without needing a back-pointer to the Device beyond
// what the owning pool already provides.
type Cookie struct {
	value uint64
}

// NewCookie draws a fresh cookie from src.
func NewCookie(src *CookieSource) Cookie {
	return Cookie{value: src.Allocate()}
}

// Value returns the raw 64-bit identifier.
func (c Cookie) Value() uint64 { return c.value }
