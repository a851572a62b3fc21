// File: api/errors.go
// Author: momentics <momentics@gmail.com>
//
// Common error types for the hioload-mempool library.

package api

import "fmt"

// Sentinel errors used across the library. Callers match them with errors.Is.
var (
	// ErrInvalidConfiguration means the pool cannot be constructed from the
	// requested geometry (zero or negative block count).
	ErrInvalidConfiguration = fmt.Errorf("mempool: invalid configuration")

	// ErrOutOfMemory means the arena reservation itself failed. No partial
	// pool state exists after this error.
	ErrOutOfMemory = fmt.Errorf("mempool: arena reservation failed")

	// ErrPoolExhausted is the expected, recoverable signal that every slot
	// is currently handed out. Retry after a Free, or fail upward.
	ErrPoolExhausted = fmt.Errorf("mempool: pool exhausted")

	// ErrInvalidPointer is returned by safe-mode Free for an address outside
	// the arena or not on a slot boundary.
	ErrInvalidPointer = fmt.Errorf("mempool: pointer not owned by pool")

	// ErrDoubleFree is returned only when double-free detection is enabled
	// and the slot being freed is already on the free list.
	ErrDoubleFree = fmt.Errorf("mempool: double free")

	// ErrPoolClosed is returned by operations on a pool after Close.
	ErrPoolClosed = fmt.Errorf("mempool: pool is closed")
)
