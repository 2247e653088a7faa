// Package arena implements the OS Arena Source: the engine's only
// conduit to the operating system for fresh heap memory. It wraps
// anonymous, private mmap mappings and never returns memory to the OS.
package arena

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/orizon-lang/binalloc/internal/chunk"
	allocerrors "github.com/orizon-lang/binalloc/internal/errors"
)

// minRegionSize is the smallest region the source will ever map: 32
// pages of the conventional 4 KiB page size, chosen so that a long run
// of small allocations doesn't thrash the kernel with mmap calls.
const minRegionSize = 32 * 4096

// pageSize caches the result of unix.Getpagesize, which is a syscall on
// some platforms and need not be repeated per mapping.
var pageSize = uint64(unix.Getpagesize())

// Source maps fresh regions on demand and remembers each mapping's
// extent so Close can unmap them during tests; production callers let
// the process exit reclaim the mappings rather than unmapping them.
type Source struct {
	regions [][]byte
}

// New builds an empty arena source.
func New() *Source {
	return &Source{}
}

// sizeFor computes how many bytes to request from the OS for a chunk
// that must be at least need bytes: minRegionSize when need fits in it,
// otherwise need rounded up to a whole number of pages plus one spare
// page.
func sizeFor(need uint64) uint64 {
	if need <= minRegionSize {
		return minRegionSize
	}

	pages := (need + pageSize - 1) / pageSize
	return (pages + 1) * pageSize
}

// Map requests a new region able to satisfy an allocation of at least
// need bytes and returns it as a single free chunk spanning the whole
// region, with both of its region-boundary sentinel words already
// written. err is an ArenaExhausted error if the underlying mmap call
// failed.
func (s *Source) Map(need uint64) (v chunk.View, err error) {
	size := sizeFor(need)

	data, mmapErr := unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if mmapErr != nil {
		return chunk.View{}, allocerrors.ArenaExhausted(need, mmapErr)
	}

	s.regions = append(s.regions, data)

	v = chunk.At(chunk.Addr(uintptr(unsafe.Pointer(&data[0]))))
	v.SetSize(size)
	v.MarkRegionStart()
	v.MarkRegionEnd()

	return v, nil
}

// Close unmaps every region this source has ever mapped. It exists for
// tests and short-lived tools; the engine singleton itself never calls
// it, since mapped regions are meant to live for the rest of the
// process and are reclaimed by the OS at exit.
func (s *Source) Close() error {
	for _, region := range s.regions {
		if err := unix.Munmap(region); err != nil {
			return err
		}
	}

	s.regions = nil

	return nil
}
