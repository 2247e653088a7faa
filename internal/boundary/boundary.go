// Package boundary implements the Boundary Manager: splitting an
// oversized free chunk on allocation and coalescing adjacent free chunks
// on release. It is the only component permitted to change a chunk's
// size field once a region has been carved up by the OS Arena Source.
package boundary

import "github.com/orizon-lang/binalloc/internal/chunk"

// Split breaks a free chunk v of size Sc into a leading part of exactly
// need bytes and, if the residual Sc-need is itself a legal chunk
// (>= chunk.MinSize), a trailing free remainder. ok reports whether a
// remainder chunk was carved off; when ok is false the whole of v is
// handed back unchanged and the caller must not shrink it.
//
// Both neighbor-facing words touched by the split are rewritten: v's own
// trailing word (now describing the remainder, if any, or the original
// following neighbor otherwise) and, when a remainder is carved off, the
// remainder's own leading/trailing words and the original following
// neighbor's leading word.
//
// Split does not touch v's preceding neighbor, since v's own size is
// changing and v was free beforehand: callers must follow a successful
// Split with MarkInUse(v) once v is committed to the caller, so the
// preceding neighbor's cached trailing word is updated to v's new size.
func Split(v chunk.View, need uint64) (rest chunk.View, ok bool) {
	total := v.Size()
	residual := total - need

	if residual < chunk.MinSize {
		return chunk.View{}, false
	}

	hadFollowing := v.HasFollowing()
	followingSize, followingInUse := v.Following()

	v.SetSize(need)
	v.SetFollowing(residual, false)

	rest = chunk.At(v.Addr + chunk.Addr(need))
	rest.SetSize(residual)
	rest.SetPreceding(need, true)

	if hadFollowing {
		rest.SetFollowing(followingSize, followingInUse)
		next := chunk.At(rest.Addr + chunk.Addr(residual))
		next.SetPreceding(residual, false)
	} else {
		rest.MarkRegionEnd()
	}

	return rest, true
}

// Coalesce merges a newly freed chunk v with a free preceding neighbor
// and a free following neighbor, in that order, and returns a view over
// the resulting (possibly larger) free chunk. Per the no-adjacent-free
// invariant neither neighbor can itself be coalescable any further, so
// each direction merges at most once.
func Coalesce(v chunk.View) chunk.View {
	if v.HasPreceding() && v.PrecedingFree() {
		prev := chunk.At(v.PrecedingAddr())
		merged := prev.Size() + v.Size()

		prev.SetSize(merged)

		if v.HasFollowing() {
			fSize, fInUse := v.Following()
			prev.SetFollowing(fSize, fInUse)
		} else {
			prev.MarkRegionEnd()
		}

		v = prev
	}

	if v.HasFollowing() && v.FollowingFree() {
		next := chunk.At(v.FollowingAddr())
		merged := v.Size() + next.Size()

		v.SetSize(merged)

		if next.HasFollowing() {
			fSize, fInUse := next.Following()
			v.SetFollowing(fSize, fInUse)
		} else {
			v.MarkRegionEnd()
		}
	}

	// Whichever branches ran, v's own size is now final: the following
	// neighbor's leading word (its cached view of v) must reflect it.
	// The preceding-merge branch above only updates v's own trailing
	// word, never the follower's leading word, so without this the
	// follower's cached size goes stale whenever the follower itself
	// was in-use (and so wasn't touched by the following-merge branch).
	if v.HasFollowing() {
		chunk.At(v.FollowingAddr()).SetPreceding(v.Size(), false)
	}

	return v
}

// MarkInUse flips v to the in-use state and propagates the updated
// (size, true) pair to both neighbor-facing cached words: the preceding
// neighbor's trailing word and the following neighbor's leading word.
func MarkInUse(v chunk.View) {
	size := v.Size()

	if v.HasPreceding() {
		prev := chunk.At(v.PrecedingAddr())
		prev.SetFollowing(size, true)
	}

	if v.HasFollowing() {
		next := chunk.At(v.FollowingAddr())
		next.SetPreceding(size, true)
	}
}

// MarkFree flips v to the free state and propagates the updated
// (size, false) pair to both neighbor-facing cached words.
func MarkFree(v chunk.View) {
	size := v.Size()

	if v.HasPreceding() {
		prev := chunk.At(v.PrecedingAddr())
		prev.SetFollowing(size, false)
	}

	if v.HasFollowing() {
		next := chunk.At(v.FollowingAddr())
		next.SetPreceding(size, false)
	}
}
