//go:build linux

// File: mempool/arena_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux arena reservation via anonymous mmap.

package mempool

import "golang.org/x/sys/unix"

// reserveArena maps one anonymous, private, read-write region of exactly
// size bytes. The region lives off the Go heap and is page-aligned, which
// also satisfies the pool's scalar-alignment requirement. A reservation
// failure surfaces as the mmap error; the pool wraps it as OutOfMemory.
func reserveArena(size int) ([]byte, func() error, error) {
	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	return mem, func() error { return unix.Munmap(mem) }, nil
}
