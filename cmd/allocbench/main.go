// Command allocbench drives repeated allocate/release cycles against
// the package's public API and reports throughput, mirroring the
// timing style of the allocator microbenchmarks this tool replaces.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"
	"unsafe"

	binalloc "github.com/orizon-lang/binalloc"
	allocerrors "github.com/orizon-lang/binalloc/internal/errors"
)

func main() {
	var (
		iterations int
		sizesFlag  string
		keepLive   int
	)

	flag.IntVar(&iterations, "iterations", 1_000_000, "number of allocate/release cycles to run")
	flag.StringVar(&sizesFlag, "sizes", "32,64,128,256,512", "comma-separated payload sizes to cycle through")
	flag.IntVar(&keepLive, "keep-live", 0, "number of allocations to leave unreleased, to exercise fragmented bins")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Drives the allocator through repeated allocate/release cycles.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	sizes := parseSizes(sizesFlag)
	if len(sizes) == 0 {
		fmt.Fprintln(os.Stderr, "allocbench: no valid sizes given")
		os.Exit(1)
	}

	for _, size := range sizes {
		if size == 0 {
			fmt.Fprintln(os.Stderr, allocerrors.InvalidSize(size, "sizes flag").Error())
			os.Exit(1)
		}
	}

	var kept []unsafe.Pointer

	start := time.Now()

	for i := 0; i < iterations; i++ {
		size := sizes[i%len(sizes)]

		p := binalloc.Allocate(size)
		if p == nil {
			fmt.Fprintf(os.Stderr, "allocbench: allocation failed at iteration %d (size %d)\n", i, size)
			os.Exit(1)
		}

		if len(kept) < keepLive {
			kept = append(kept, p)
		} else {
			binalloc.Release(p)
		}
	}

	elapsed := time.Since(start)

	for _, p := range kept {
		binalloc.Release(p)
	}

	fmt.Printf("iterations:       %d\n", iterations)
	fmt.Printf("sizes:            %v\n", sizes)
	fmt.Printf("elapsed:          %s\n", elapsed)
	fmt.Printf("ns/op:            %.1f\n", float64(elapsed.Nanoseconds())/float64(iterations))
	fmt.Printf("ops/sec:          %.0f\n", float64(iterations)/elapsed.Seconds())
}

func parseSizes(s string) []uint64 {
	var sizes []uint64

	cur := uint64(0)
	have := false

	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			cur = cur*10 + uint64(r-'0')
			have = true
		case r == ',':
			if have {
				sizes = append(sizes, cur)
			}

			cur = 0
			have = false
		}
	}

	if have {
		sizes = append(sizes, cur)
	}

	return sizes
}
