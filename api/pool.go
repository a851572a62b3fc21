// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract fixed-block allocation API implemented by mempool.Pool.

package api

// FixedAllocator is a fixed-block-size pool: a preallocated arena cut into
// equal slots, handed out and reclaimed in O(1). Implementations never touch
// payload bytes between Alloc and the matching Free.
type FixedAllocator interface {
	// Alloc returns one slot as a slice of BlockSize bytes, or
	// ErrPoolExhausted when no slot is free. Contents are not zeroed.
	Alloc() ([]byte, error)

	// Free returns a slot previously obtained from Alloc. A nil or empty
	// slice is a no-op. Fast-mode implementations never error.
	Free(buf []byte) error

	// Reset reclaims every slot at once. Outstanding slices become dangling
	// by caller error.
	Reset() error

	// Close releases the arena. Idempotent.
	Close() error

	// Query surface. Consistent with some serialization of concurrent
	// operations when the pool is thread-safe.
	IsExhausted() bool
	UsedBlocks() int
	FreeBlocks() int
	BlockSize() int
	TotalBlocks() int
	Stats() PoolStats
}

// PoolStats is a point-in-time snapshot of one pool.
type PoolStats struct {
	BlockSize   int    // aligned slot size in bytes
	TotalBlocks int    // fixed capacity
	UsedBlocks  int    // slots currently handed out
	FreeBlocks  int    // slots on the free list
	TotalAllocs uint64 // lifetime successful Alloc count
	TotalFrees  uint64 // lifetime accepted Free count
}
