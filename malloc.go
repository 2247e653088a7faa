// Package binalloc implements a general-purpose dynamic memory
// allocator for long-running, single-threaded programs that manage
// their own heap memory outside the Go garbage collector: boundary-tag
// chunks, a segregated free-list registry, split-on-allocate and
// coalesce-on-free, backed by OS-mapped arenas.
//
// The allocator is not safe for concurrent use, never returns memory to
// the operating system, and does not defend against caller corruption
// of a released payload's header — see internal/engine for the full
// design.
package binalloc

import (
	"unsafe"

	"github.com/orizon-lang/binalloc/internal/chunk"
	"github.com/orizon-lang/binalloc/internal/engine"
)

// Allocate reserves n bytes of payload memory and returns a pointer to
// it, or nil if the request could not be satisfied (the underlying OS
// mapping failed). The returned memory is not zeroed.
func Allocate(n uint64) unsafe.Pointer {
	p := engine.Default().Allocate(n)
	if p == 0 {
		return nil
	}

	return unsafe.Pointer(p)
}

// Release returns a pointer previously obtained from Allocate to the
// heap. Releasing nil is a no-op. Releasing any other pointer not
// currently owned by the caller is undefined behavior: the allocator
// trusts its header metadata and does not validate it.
func Release(p unsafe.Pointer) {
	engine.Default().Release(chunk.Addr(uintptr(p)))
}
