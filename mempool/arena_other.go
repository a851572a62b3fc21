//go:build !linux

// File: mempool/arena_other.go
// Author: momentics <momentics@gmail.com>
//
// Heap-backed arena fallback for platforms without the mmap path.

package mempool

import "unsafe"

// reserveArena carves an aligned window of exactly size bytes out of one
// heap allocation. Go gives no alignment promise beyond the word size for
// byte slices, so the allocation is padded and the base rounded up to
// maxScalarAlign. The release closure keeps the backing slice reachable
// until then.
func reserveArena(size int) ([]byte, func() error, error) {
	raw := make([]byte, size+maxScalarAlign-1)
	base := uintptr(unsafe.Pointer(&raw[0]))
	skip := int(alignUpUintptr(base, maxScalarAlign) - base)
	mem := raw[skip : skip+size : skip+size]
	release := func() error {
		raw = nil
		return nil
	}
	return mem, release, nil
}

func alignUpUintptr(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}
