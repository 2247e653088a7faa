package boundary

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/orizon-lang/binalloc/internal/chunk"
)

func newRegion(t *testing.T, size int) ([]byte, chunk.Addr) {
	t.Helper()

	buf := make([]byte, size)

	return buf, chunk.Addr(unsafe.Pointer(&buf[0]))
}

func TestSplitCarvesRemainder(t *testing.T) {
	const total = 128

	buf, base := newRegion(t, total)
	defer runtime.KeepAlive(buf)

	v := chunk.At(base)
	v.SetSize(total)
	v.MarkRegionStart()
	v.MarkRegionEnd()

	rest, ok := Split(v, 48)
	if !ok {
		t.Fatal("expected a split")
	}

	if v.Size() != 48 {
		t.Errorf("v.Size() = %d, want 48", v.Size())
	}

	if rest.Size() != total-48 {
		t.Errorf("rest.Size() = %d, want %d", rest.Size(), total-48)
	}

	if rest.Addr != base+48 {
		t.Errorf("rest.Addr = %v, want %v", rest.Addr, base+48)
	}

	if !v.HasFollowing() || !v.FollowingFree() {
		t.Error("v should see a free following remainder")
	}

	if !rest.HasPreceding() || rest.PrecedingFree() {
		t.Error("rest should see an in-use preceding neighbor (v)")
	}

	if rest.HasFollowing() {
		t.Error("rest should still carry the original region-end sentinel")
	}
}

func TestSplitRefusesUndersizedRemainder(t *testing.T) {
	const total = 48 // need=40 leaves residual=8, below chunk.MinSize

	buf, base := newRegion(t, total)
	defer runtime.KeepAlive(buf)

	v := chunk.At(base)
	v.SetSize(total)
	v.MarkRegionStart()
	v.MarkRegionEnd()

	_, ok := Split(v, 40)
	if ok {
		t.Fatal("expected no split when the remainder is too small")
	}

	if v.Size() != total {
		t.Errorf("v.Size() changed despite refused split: got %d, want %d", v.Size(), total)
	}
}

func TestSplitPreservesFollowingNeighbor(t *testing.T) {
	const leftTotal = 96
	const rightSize = 40

	buf, base := newRegion(t, leftTotal+rightSize)
	defer runtime.KeepAlive(buf)

	v := chunk.At(base)
	v.SetSize(leftTotal)
	v.MarkRegionStart()

	right := chunk.At(base + chunk.Addr(leftTotal))
	right.SetSize(rightSize)
	right.MarkRegionEnd()
	v.SetFollowing(rightSize, true)
	right.SetPreceding(leftTotal, false)

	rest, ok := Split(v, 48)
	if !ok {
		t.Fatal("expected a split")
	}

	if !rest.HasFollowing() {
		t.Fatal("rest should see the original following neighbor")
	}

	if got := rest.FollowingAddr(); got != right.Addr {
		t.Errorf("rest.FollowingAddr() = %v, want %v", got, right.Addr)
	}

	if !right.HasPreceding() || !right.PrecedingFree() {
		t.Error("original right neighbor should now see rest (free) as preceding")
	}

	if got := right.PrecedingAddr(); got != rest.Addr {
		t.Errorf("right.PrecedingAddr() = %v, want %v", got, rest.Addr)
	}
}

func TestCoalesceMergesBothNeighbors(t *testing.T) {
	const a, b, c = 40, 48, 56
	total := a + b + c

	buf, base := newRegion(t, total)
	defer runtime.KeepAlive(buf)

	left := chunk.At(base)
	left.SetSize(a)
	left.MarkRegionStart()
	left.SetFollowing(b, false)

	mid := chunk.At(base + a)
	mid.SetSize(b)
	mid.SetPreceding(a, false)
	mid.SetFollowing(c, false)

	right := chunk.At(base + a + b)
	right.SetSize(c)
	right.SetPreceding(b, false)
	right.MarkRegionEnd()

	merged := Coalesce(mid)

	if merged.Addr != left.Addr {
		t.Fatalf("merged.Addr = %v, want %v (left absorbs both)", merged.Addr, left.Addr)
	}

	if merged.Size() != uint64(total) {
		t.Errorf("merged.Size() = %d, want %d", merged.Size(), total)
	}

	if merged.HasFollowing() {
		t.Error("merged chunk spans the whole region and should have no following neighbor")
	}
}

func TestCoalesceOnlyPreceding(t *testing.T) {
	const a, b = 40, 48

	buf, base := newRegion(t, a+b)
	defer runtime.KeepAlive(buf)

	left := chunk.At(base)
	left.SetSize(a)
	left.MarkRegionStart()
	left.SetFollowing(b, false)

	right := chunk.At(base + a)
	right.SetSize(b)
	right.SetPreceding(a, false)
	right.MarkRegionEnd()

	merged := Coalesce(right)

	if merged.Addr != left.Addr {
		t.Fatalf("merged.Addr = %v, want %v", merged.Addr, left.Addr)
	}

	if merged.Size() != uint64(a+b) {
		t.Errorf("merged.Size() = %d, want %d", merged.Size(), a+b)
	}
}

func TestCoalescePrecedingWithLiveFollowerUpdatesFollowerLeadingWord(t *testing.T) {
	const a, b, c = 40, 48, 56
	total := a + b + c

	buf, base := newRegion(t, total)
	defer runtime.KeepAlive(buf)

	left := chunk.At(base)
	left.SetSize(a)
	left.MarkRegionStart()
	left.SetFollowing(b, false)

	mid := chunk.At(base + a)
	mid.SetSize(b)
	mid.SetPreceding(a, false)
	mid.SetFollowing(c, true)

	next := chunk.At(base + a + b)
	next.SetSize(c)
	next.SetPreceding(b, true)
	next.MarkRegionEnd()

	merged := Coalesce(mid)

	if merged.Addr != left.Addr {
		t.Fatalf("merged.Addr = %v, want %v", merged.Addr, left.Addr)
	}

	if merged.Size() != uint64(a+b) {
		t.Errorf("merged.Size() = %d, want %d", merged.Size(), a+b)
	}

	if !next.HasPreceding() || !next.PrecedingFree() {
		t.Fatal("live follower should now see a free preceding neighbor")
	}

	if got := next.PrecedingAddr(); got != merged.Addr {
		t.Errorf("next.PrecedingAddr() = %v, want %v (the merged chunk's start)", got, merged.Addr)
	}

	if size, _ := next.Preceding(); size != merged.Size() {
		t.Errorf("next's cached preceding size = %d, want %d", size, merged.Size())
	}
}

func TestCoalesceNoFreeNeighbors(t *testing.T) {
	const total = 64

	buf, base := newRegion(t, total)
	defer runtime.KeepAlive(buf)

	v := chunk.At(base)
	v.SetSize(total)
	v.MarkRegionStart()
	v.MarkRegionEnd()

	merged := Coalesce(v)
	if merged.Addr != v.Addr || merged.Size() != total {
		t.Error("coalesce with no free neighbors should be a no-op")
	}
}

func TestMarkInUseAndMarkFreePropagate(t *testing.T) {
	const a, b = 40, 48

	buf, base := newRegion(t, a+b)
	defer runtime.KeepAlive(buf)

	left := chunk.At(base)
	left.SetSize(a)
	left.MarkRegionStart()
	left.SetFollowing(b, false)

	right := chunk.At(base + a)
	right.SetSize(b)
	right.SetPreceding(a, false)
	right.MarkRegionEnd()

	MarkInUse(right)

	if !left.HasFollowing() || left.FollowingFree() {
		t.Error("left should now see an in-use following neighbor")
	}

	MarkFree(right)

	if !left.HasFollowing() || !left.FollowingFree() {
		t.Error("left should now see a free following neighbor")
	}
}
