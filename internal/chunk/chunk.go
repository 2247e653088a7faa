// Package chunk implements the engine's boundary-tag encoding: how a
// contiguous run of heap bytes is interpreted as a sequence of chunks.
// Every other component reaches into raw memory exclusively through this
// package; nothing outside it ever computes a size-word offset by hand.
package chunk

import "unsafe"

// Addr is a raw heap address: memory handed to the engine by the OS
// Arena Source, never tracked by the Go garbage collector. uintptr is
// the correct representation here rather than unsafe.Pointer, since the
// engine stores these addresses inside the memory they describe (the
// free-list linkage words) and across operations the GC has no business
// observing.
type Addr uintptr

const (
	// WordSize is the width of a size word and of a free-chunk link.
	WordSize = 8

	// Overhead is the number of bytes consumed by a chunk's three
	// metadata words (leading, own-size, trailing).
	Overhead = 3 * WordSize

	// payloadOffset is the distance from a chunk's start to its payload.
	payloadOffset = 2 * WordSize

	// MinSize is the smallest legal chunk size: enough for the three
	// metadata words plus 16 bytes of payload/linkage.
	MinSize = Overhead + 2*WordSize

	flagBit  = uint64(1) << 63
	sizeMask = flagBit - 1
)

func word(a Addr) *uint64 { return (*uint64)(unsafe.Pointer(a)) }

func pack(size uint64, inUse bool) uint64 {
	if inUse {
		return size | flagBit
	}

	return size
}

func unpack(w uint64) (size uint64, inUse bool) {
	return w & sizeMask, w&flagBit != 0
}

// RoundUp rounds n up to the next multiple of align (align a power of two).
func RoundUp(n, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}

// Required computes the chunk size R needed to satisfy a payload request
// of n bytes: max(n+Overhead, MinSize), rounded up to a word multiple.
func Required(n uint64) uint64 {
	r := n + Overhead
	if r < MinSize {
		r = MinSize
	}

	return RoundUp(r, WordSize)
}

// View is a cursor onto a chunk living at Addr. It carries no state of
// its own beyond the address: every read goes straight to memory.
type View struct {
	Addr Addr
}

// At wraps a raw address as a chunk view.
func At(a Addr) View { return View{Addr: a} }

// FromPayload recovers the chunk view owning a payload pointer.
func FromPayload(p Addr) View { return View{Addr: p - payloadOffset} }

func (v View) sizeAddr() Addr { return v.Addr + WordSize }

// Size returns this chunk's own size field (offset 8, unflagged).
func (v View) Size() uint64 { return *word(v.sizeAddr()) }

// SetSize writes this chunk's own size field.
func (v View) SetSize(size uint64) { *word(v.sizeAddr()) = size }

func (v View) trailingAddr() Addr { return v.Addr + Addr(v.Size()) - WordSize }

// Payload returns the address of the caller-visible payload region,
// 16 bytes past the chunk's start.
func (v View) Payload() Addr { return v.Addr + payloadOffset }

// predAddr and succAddr are the two engine-owned linkage words living at
// the start of a free chunk's payload area.
func (v View) predAddr() Addr { return v.Payload() }
func (v View) succAddr() Addr { return v.Payload() + WordSize }

// Pred returns the free-list predecessor link stored in this chunk.
func (v View) Pred() Addr { return LinkPred(v.Payload()) }

// SetPred writes the free-list predecessor link.
func (v View) SetPred(a Addr) { SetLinkPred(v.Payload(), a) }

// Succ returns the free-list successor link stored in this chunk.
func (v View) Succ() Addr { return LinkSucc(v.Payload()) }

// SetSucc writes the free-list successor link.
func (v View) SetSucc(a Addr) { SetLinkSucc(v.Payload(), a) }

// LinkPred and LinkSucc read the two engine-owned link words starting at
// node. A node is either a chunk's Payload() address or a bin sentinel's
// backing address — both use the same two-word layout, which is what
// lets the Free-List Registry treat sentinels and real chunks uniformly.
func LinkPred(node Addr) Addr { return Addr(*word(node)) }

// LinkSucc reads the successor word following node.
func LinkSucc(node Addr) Addr { return Addr(*word(node + WordSize)) }

// SetLinkPred writes the predecessor word at node.
func SetLinkPred(node Addr, v Addr) { *word(node) = uint64(v) }

// SetLinkSucc writes the successor word following node.
func SetLinkSucc(node Addr, v Addr) { *word(node+WordSize) = uint64(v) }

// Preceding returns the size and in-use flag cached for the chunk
// immediately before this one in memory (zero size if none exists).
func (v View) Preceding() (size uint64, inUse bool) { return unpack(*word(v.Addr)) }

// SetPreceding overwrites the cached preceding-chunk size word.
func (v View) SetPreceding(size uint64, inUse bool) { *word(v.Addr) = pack(size, inUse) }

// Following returns the size and in-use flag cached for the chunk
// immediately after this one in memory (zero size if none exists).
func (v View) Following() (size uint64, inUse bool) { return unpack(*word(v.trailingAddr())) }

// SetFollowing overwrites the cached following-chunk size word.
func (v View) SetFollowing(size uint64, inUse bool) { *word(v.trailingAddr()) = pack(size, inUse) }

// HasPreceding reports whether a preceding neighbor exists in this region.
func (v View) HasPreceding() bool {
	size, _ := v.Preceding()
	return size != 0
}

// PrecedingFree reports whether the preceding neighbor exists and is free.
func (v View) PrecedingFree() bool {
	size, inUse := v.Preceding()
	return size != 0 && !inUse
}

// PrecedingAddr computes the address of the preceding chunk from the
// cached leading size word. Only valid when HasPreceding is true.
func (v View) PrecedingAddr() Addr {
	size, _ := v.Preceding()
	return v.Addr - Addr(size)
}

// HasFollowing reports whether a following neighbor exists in this region.
func (v View) HasFollowing() bool {
	size, _ := v.Following()
	return size != 0
}

// FollowingFree reports whether the following neighbor exists and is free.
func (v View) FollowingFree() bool {
	size, inUse := v.Following()
	return size != 0 && !inUse
}

// FollowingAddr computes the address of the following chunk from this
// chunk's own size. Only valid when HasFollowing is true.
func (v View) FollowingAddr() Addr {
	return v.Addr + Addr(v.Size())
}

// MarkRegionStart writes the sentinel-zero leading word for the leftmost
// chunk of a fresh region (no preceding chunk).
func (v View) MarkRegionStart() { *word(v.Addr) = 0 }

// MarkRegionEnd writes the sentinel-zero trailing word for the rightmost
// chunk of a fresh region (no following chunk).
func (v View) MarkRegionEnd() { *word(v.trailingAddr()) = 0 }
