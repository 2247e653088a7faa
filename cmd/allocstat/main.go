// Command allocstat exercises the allocator with a synthetic workload
// and prints a bin-occupancy histogram, for diagnosing fragmentation in
// the Free-List Registry.
package main

import (
	"flag"
	"fmt"
	"os"
	"unsafe"

	binalloc "github.com/orizon-lang/binalloc"
	"github.com/orizon-lang/binalloc/internal/engine"
	"github.com/orizon-lang/binalloc/internal/freelist"
)

func main() {
	var (
		allocations int
		releaseEven bool
	)

	flag.IntVar(&allocations, "allocations", 10_000, "number of allocations to perform before reporting")
	flag.BoolVar(&releaseEven, "release-even", true, "release every other allocation to populate the free-list bins")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Prints a bin-occupancy histogram of the allocator's Free-List Registry.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	sizes := []uint64{24, 56, 96, 200, 400, 900, 3000, 70000}

	var live []unsafe.Pointer

	for i := 0; i < allocations; i++ {
		p := binalloc.Allocate(sizes[i%len(sizes)])
		if p == nil {
			fmt.Fprintf(os.Stderr, "allocstat: allocation %d failed\n", i)
			os.Exit(1)
		}

		if releaseEven && i%2 == 0 {
			binalloc.Release(p)
		} else {
			live = append(live, p)
		}
	}

	report(engine.Default())

	for _, p := range live {
		binalloc.Release(p)
	}
}

func report(h *engine.Heap) {
	r := h.Registry()

	fmt.Printf("%-6s %-12s %s\n", "bin", "bound", "occupancy")

	for i := 0; i < freelist.NumBins; i++ {
		occ := r.Occupancy(i)
		if occ == 0 {
			continue
		}

		fmt.Printf("%-6d %-12d %d\n", i, r.Bound(i), occ)
	}
}
