// Package engine wires the Chunk Encoding, Free-List Registry, Boundary
// Manager, and OS Arena Source components together into the two
// operations the allocator exposes: Allocate and Release. It owns the
// single, process-wide, never-torn-down heap state; the public API and
// the cmd tools above this package never touch a chunk.View directly.
package engine

import (
	"log"
	"sync"

	"github.com/orizon-lang/binalloc/internal/arena"
	"github.com/orizon-lang/binalloc/internal/boundary"
	"github.com/orizon-lang/binalloc/internal/chunk"
	"github.com/orizon-lang/binalloc/internal/freelist"
)

// Heap is the allocator's full mutable state: a free-list registry and
// the arena source backing it. It is single-threaded: no lock guards
// these fields.
type Heap struct {
	registry *freelist.Registry
	source   *arena.Source
}

// NewHeap builds an empty heap with no regions mapped yet. Production
// code reaches the heap through Default; NewHeap exists so tests can
// construct isolated instances instead of sharing global state.
func NewHeap() *Heap {
	return &Heap{
		registry: freelist.New(),
		source:   arena.New(),
	}
}

// Registry exposes the heap's free-list registry for diagnostics (see
// cmd/allocstat). Production code never needs this: it exists purely to
// let tools inspect bin occupancy without reaching into heap internals
// via reflection.
func (h *Heap) Registry() *freelist.Registry { return h.registry }

var (
	defaultOnce sync.Once
	defaultHeap *Heap
)

// Default returns the process-wide heap, lazily constructing it on the
// first call and never tearing it down for the life of the process.
func Default() *Heap {
	defaultOnce.Do(func() {
		defaultHeap = NewHeap()
	})

	return defaultHeap
}

// Allocate satisfies a request for n payload bytes, returning the
// address of a payload region at least n bytes long, or 0 if the
// underlying OS Arena Source could not be grown.
func (h *Heap) Allocate(n uint64) chunk.Addr {
	need := chunk.Required(n)

	if v, ok := h.findFree(need); ok {
		h.commit(v, need)
		return v.Payload()
	}

	v, err := h.source.Map(need)
	if err != nil {
		log.Printf("engine: arena map failed for %d bytes: %v", need, err)
		return 0
	}

	h.commit(v, need)

	return v.Payload()
}

// findFree looks for an existing free chunk at least need bytes: first
// the exact-fit bin, then the smallest chunk in any larger bin.
func (h *Heap) findFree(need uint64) (chunk.View, bool) {
	i := freelist.BinForAlloc(need)

	if v, ok := h.registry.SearchBin(i, need); ok {
		return v, true
	}

	return h.registry.SearchHigher(i)
}

// commit splits v down to need bytes (returning any remainder to the
// registry) and marks the dispensed chunk in-use on both of its
// boundaries.
func (h *Heap) commit(v chunk.View, need uint64) {
	if rest, ok := boundary.Split(v, need); ok {
		h.registry.Insert(rest)
	}

	boundary.MarkInUse(v)
}

// Release returns a previously allocated payload pointer to the heap,
// coalescing it with any free neighbors before filing it back into the
// registry. A zero pointer is a no-op.
func (h *Heap) Release(p chunk.Addr) {
	if p == 0 {
		return
	}

	v := chunk.FromPayload(p)

	boundary.MarkFree(v)

	// Free neighbors are about to be absorbed into the merged chunk, so
	// they must leave their bins first.
	if v.PrecedingFree() {
		h.registry.Remove(chunk.At(v.PrecedingAddr()))
	}

	if v.FollowingFree() {
		h.registry.Remove(chunk.At(v.FollowingAddr()))
	}

	merged := boundary.Coalesce(v)
	h.registry.Insert(merged)
}
