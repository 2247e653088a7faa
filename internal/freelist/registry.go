package freelist

import (
	"unsafe"

	"github.com/orizon-lang/binalloc/internal/chunk"
)

// bin is a single size class: a sentinel-headed doubly-linked list of
// free chunks in ascending size order. The sentinel is never dispensed
// and carries no chunk header of its own, only the two link words that
// every real free chunk's linkage area also exposes.
type bin struct {
	link  [2 * chunk.WordSize]byte
	bound uint64
}

func (b *bin) node() chunk.Addr { return chunk.Addr(uintptr(unsafe.Pointer(&b.link[0]))) }

func (b *bin) empty() bool {
	n := b.node()
	return chunk.LinkSucc(n) == n
}

// Registry is the engine's Free-List Registry: the full 46-bin table.
type Registry struct {
	bins [NumBins]bin
}

// New builds a freshly initialized registry with every bin's sentinel
// pointing to itself (an empty list).
func New() *Registry {
	r := &Registry{}

	for i := range r.bins {
		r.bins[i].bound = bounds[i]

		n := r.bins[i].node()
		chunk.SetLinkPred(n, n)
		chunk.SetLinkSucc(n, n)
	}

	return r
}

// Insert places a free chunk into the bin matching its own size,
// splicing it in so the bin's list stays in ascending size order. Equal
// sized chunks accumulate after one another (new chunk goes immediately
// before the first strictly-larger element).
func (r *Registry) Insert(v chunk.View) {
	size := v.Size()
	i := binOf(size, 0)
	sentinel := r.bins[i].node()

	cur := chunk.LinkSucc(sentinel)
	for cur != sentinel {
		if chunk.FromPayload(cur).Size() > size {
			break
		}

		cur = chunk.LinkSucc(cur)
	}

	node := v.Payload()
	prev := chunk.LinkPred(cur)

	chunk.SetLinkSucc(prev, node)
	chunk.SetLinkPred(node, prev)
	chunk.SetLinkSucc(node, cur)
	chunk.SetLinkPred(cur, node)
}

// Remove unlinks a free chunk from whichever bin holds it. The sentinel
// guarantees a predecessor always exists, so there is no head-of-list
// special case.
func (r *Registry) Remove(v chunk.View) {
	node := v.Payload()
	pred := chunk.LinkPred(node)
	succ := chunk.LinkSucc(node)

	chunk.SetLinkSucc(pred, succ)
	chunk.SetLinkPred(succ, pred)

	chunk.SetLinkPred(node, 0)
	chunk.SetLinkSucc(node, 0)
}

// SearchBin walks bin i from its sentinel, removing and returning the
// first (smallest, by ascending order) chunk whose size is at least
// need. ok is false if no chunk in the bin is large enough.
func (r *Registry) SearchBin(i int, need uint64) (v chunk.View, ok bool) {
	sentinel := r.bins[i].node()

	for cur := chunk.LinkSucc(sentinel); cur != sentinel; cur = chunk.LinkSucc(cur) {
		candidate := chunk.FromPayload(cur)
		if candidate.Size() >= need {
			r.Remove(candidate)

			return candidate, true
		}
	}

	return chunk.View{}, false
}

// SearchHigher scans bins i+1, i+2, ... and removes and returns the
// smallest chunk in the first non-empty bin found. ok is false if every
// higher bin is empty.
func (r *Registry) SearchHigher(i int) (v chunk.View, ok bool) {
	for j := i + 1; j < NumBins; j++ {
		if r.bins[j].empty() {
			continue
		}

		sentinel := r.bins[j].node()
		node := chunk.LinkSucc(sentinel)
		candidate := chunk.FromPayload(node)
		r.Remove(candidate)

		return candidate, true
	}

	return chunk.View{}, false
}

// BinForAlloc returns the starting bin index for an allocation-side
// lookup of the given chunk size. The scan begins at index 1: the
// smallest legal request can never need the bottom bin.
func BinForAlloc(size uint64) int { return binOf(size, 1) }

// BinForInsert returns the bin index a chunk of the given size is
// placed into. Insertion scans from index 0, so a chunk exactly at the
// bottom bin's bound lands there; allocation-side searches start at bin
// 1 or above, so no allocation ever takes a chunk from bin 0.
func BinForInsert(size uint64) int { return binOf(size, 0) }

// Bound returns the upper size bound U(i) admitted into bin i.
func (r *Registry) Bound(i int) uint64 { return r.bins[i].bound }

// Occupancy returns the number of free chunks currently linked in bin i,
// for diagnostics only (walking the list, O(n) in bin length).
func (r *Registry) Occupancy(i int) int {
	sentinel := r.bins[i].node()

	n := 0
	for cur := chunk.LinkSucc(sentinel); cur != sentinel; cur = chunk.LinkSucc(cur) {
		n++
	}

	return n
}
