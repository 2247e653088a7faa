// Package refalloc implements a trivial bump allocator used only as a
// differential-testing oracle: it never reuses memory, so two releases
// of the same payload can never alias by coincidence the way a
// size-class engine's reuse can. Tests compare the production engine's
// behavior against this reference to catch corruption bugs that would
// otherwise hide behind lucky address reuse.
//
// This is not a production alternative to internal/engine — it never
// coalesces or places chunks into size classes, and exists solely for
// _test.go-reachable code paths.
package refalloc

import "unsafe"

// Allocator hands out strictly increasing offsets from a fixed backing
// buffer and never reclaims them.
type Allocator struct {
	buf     []byte
	current int
}

// New builds a bump allocator backed by a buffer of the given size.
func New(size int) *Allocator {
	return &Allocator{buf: make([]byte, size)}
}

// Allocate returns a pointer to n fresh bytes, or nil if the backing
// buffer is exhausted.
func (a *Allocator) Allocate(n int) unsafe.Pointer {
	if n <= 0 {
		return nil
	}

	aligned := (n + 7) &^ 7
	if a.current+aligned > len(a.buf) {
		return nil
	}

	p := unsafe.Pointer(&a.buf[a.current])
	a.current += aligned

	return p
}

// Release is a deliberate no-op: the reference allocator never reuses
// memory, so there is nothing to return.
func (a *Allocator) Release(unsafe.Pointer) {}

// Used reports how many bytes have been handed out so far.
func (a *Allocator) Used() int { return a.current }
