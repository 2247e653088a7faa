// Package freelist implements the Free-List Registry: a fixed array of
// 46 bins, each a sentinel-headed doubly-linked list of free chunks kept
// in ascending size order.
package freelist

// NumBins is the number of size-class buckets in the registry.
const NumBins = 46

// bounds holds U(i), the upper size bound admitted into bin i. A chunk
// of size S belongs to the lowest-indexed bin i with S <= U(i).
var bounds = buildBounds()

func buildBounds() [NumBins]uint64 {
	var b [NumBins]uint64

	i := 0
	for v := uint64(40); i <= 11; v += 8 {
		b[i] = v
		i++
	}

	for v := uint64(144); i <= 19; v += 16 {
		b[i] = v
		i++
	}

	for v := uint64(288); i <= 27; v += 32 {
		b[i] = v
		i++
	}

	for v := uint64(576); i <= 35; v += 64 {
		b[i] = v
		i++
	}

	for v := uint64(2048); i <= 44; v <<= 1 {
		b[i] = v
		i++
	}

	b[45] = ^uint64(0)

	return b
}

// binOf returns the smallest bin index i, no lower than start, such that
// size <= bounds[i]. Allocation-side lookups start at 1 (the minimum
// request already carries chunk overhead and can never need bin 0);
// insertion starts at 0, so a chunk of exactly the bin-0 bound (40 bytes)
// is placed there. No allocation-side search ever reads bin 0 (SearchBin
// starts at bin 1 and SearchHigher above it), so such a chunk is never
// handed out directly; it leaves bin 0 only when the release of a
// neighbor coalesces it. The asymmetry is preserved deliberately.
func binOf(size uint64, start int) int {
	for i := start; i < NumBins; i++ {
		if size <= bounds[i] {
			return i
		}
	}

	return NumBins - 1
}
