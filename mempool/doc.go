// Package mempool
// Author: momentics <momentics@gmail.com>
//
// Fixed-block-size memory pool for hioload-mempool.
// One contiguous arena is cut into equal aligned slots and threaded onto an
// intrusive free list, giving O(1) allocate/free with zero external
// fragmentation and a hard capacity ceiling. Designed for hot paths doing
// many same-size allocations: message buffers, object pools, real-time code.
//
// The pool is passive and runs on the caller's goroutine. Construct it with
// WithThreadSafe for concurrent use; the default pool performs no locking.
// See pool.go for the free-list protocol and options.go for configuration.
package mempool
