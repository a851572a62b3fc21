// File: mempool/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Core fixed-block pool: arena layout, intrusive free list, accounting.

package mempool

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/momentics/hioload-mempool/api"
)

const (
	// maxScalarAlign matches max_align_t on 64-bit platforms: any scalar
	// value fits safely in a slot regardless of the requested size.
	maxScalarAlign = 16

	// linkSize is the in-slot free-list link width. Requested block sizes
	// below this are promoted so every free slot can hold its link.
	linkSize = int(unsafe.Sizeof(int(0)))

	// endOfList terminates the free list.
	endOfList = -1
)

// Pool is a fixed-block-size allocator over one contiguous arena.
//
// Free slots carry the offset of the next free slot in their first word,
// so the free list costs no memory beyond the arena itself. Occupied slots
// are caller payload; the pool never reads or writes them.
//
// The zero value is not usable; construct with New.
type Pool struct {
	mu sync.Locker // real mutex in thread-safe mode, no-op otherwise

	arena   []byte
	base    uintptr // address of arena[0]
	release func() error

	blockSize   int // aligned slot size
	totalBlocks int
	arenaSize   int // blockSize * totalBlocks

	freeHead   int // offset of first free slot, endOfList when drained
	freeBlocks int

	totalAllocs uint64
	totalFrees  uint64

	// freeSlots tracks which slot indices are on the free list. Present only
	// with double-free detection; nil keeps the fast path branch-light.
	freeSlots *roaring.Bitmap

	threadSafe bool
	safeChecks bool
	closed     bool

	logger *zap.Logger
}

var _ api.FixedAllocator = (*Pool)(nil)

// New constructs a Pool of numBlocks slots of blockSize bytes each.
//
// blockSize is rounded up to maxScalarAlign, and promoted to the free-list
// link width first if smaller (a zero or negative request gets the minimum
// slot). numBlocks < 1 fails with api.ErrInvalidConfiguration. A failed
// arena reservation fails with api.ErrOutOfMemory and leaves nothing behind.
func New(blockSize, numBlocks int, opts ...Option) (*Pool, error) {
	if numBlocks < 1 {
		return nil, fmt.Errorf("%w: numBlocks=%d, need at least 1", api.ErrInvalidConfiguration, numBlocks)
	}
	if blockSize < linkSize {
		blockSize = linkSize
	}
	aligned := alignUp(blockSize, maxScalarAlign)

	p := &Pool{
		mu:          nopLocker{},
		blockSize:   aligned,
		totalBlocks: numBlocks,
		arenaSize:   aligned * numBlocks,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.threadSafe {
		p.mu = &sync.Mutex{}
	}

	arena, release, err := reserveArena(p.arenaSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes: %v", api.ErrOutOfMemory, p.arenaSize, err)
	}
	p.arena = arena
	p.base = uintptr(unsafe.Pointer(&arena[0]))
	p.release = release

	p.threadFreeList()
	return p, nil
}

// Alloc pops the head of the free list and returns the slot as a slice of
// BlockSize bytes. Contents are whatever the previous occupant left there.
// Returns api.ErrPoolExhausted when every slot is handed out; never blocks
// waiting for a Free.
func (p *Pool) Alloc() ([]byte, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, api.ErrPoolClosed
	}
	off := p.freeHead
	if off == endOfList {
		p.mu.Unlock()
		return nil, api.ErrPoolExhausted
	}
	p.freeHead = *(*int)(unsafe.Pointer(&p.arena[off]))
	p.freeBlocks--
	p.totalAllocs++
	if p.freeSlots != nil {
		p.freeSlots.Remove(uint32(off / p.blockSize))
	}
	// Three-index slice: the caller cannot grow into the neighbouring slot.
	buf := p.arena[off : off+p.blockSize : off+p.blockSize]
	p.mu.Unlock()
	return buf, nil
}

// Free pushes a slot obtained from Alloc back onto the free list. A nil or
// empty slice is a no-op.
//
// In the default fast mode there is no provenance check of any kind: the
// caller's contract is trusted and Free never errors. Safe mode (see
// WithSafeChecks) validates that the address lies inside the arena on a slot
// boundary and returns api.ErrInvalidPointer otherwise. Safe mode alone
// still cannot catch a double free: once a slot is linked back in it looks
// identical to one that was never allocated. That detection needs the
// occupied-set tracking enabled by WithDoubleFreeDetection.
func (p *Pool) Free(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&buf[0]))

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return api.ErrPoolClosed
	}
	if p.safeChecks {
		if addr < p.base || addr >= p.base+uintptr(p.arenaSize) {
			p.mu.Unlock()
			return fmt.Errorf("%w: address outside arena", api.ErrInvalidPointer)
		}
		if (addr-p.base)%uintptr(p.blockSize) != 0 {
			p.mu.Unlock()
			return fmt.Errorf("%w: address not on a slot boundary", api.ErrInvalidPointer)
		}
	}
	off := int(addr - p.base)
	if p.freeSlots != nil {
		if !p.freeSlots.CheckedAdd(uint32(off / p.blockSize)) {
			p.mu.Unlock()
			return fmt.Errorf("%w: slot %d already free", api.ErrDoubleFree, off/p.blockSize)
		}
	}
	*(*int)(unsafe.Pointer(&p.arena[off])) = p.freeHead
	p.freeHead = off
	p.freeBlocks++
	p.totalFrees++
	p.mu.Unlock()
	return nil
}

// Reset rebuilds the free list as if the pool were freshly constructed,
// reclaiming every slot regardless of how many were handed out. Slices
// issued before Reset are dangling by caller error if used afterward; the
// pool has no record of them and cannot guard against it.
func (p *Pool) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPoolClosed
	}
	p.threadFreeList()
	return nil
}

// threadFreeList links every slot in ascending address order and restores
// full capacity. Callers hold the guard.
func (p *Pool) threadFreeList() {
	last := (p.totalBlocks - 1) * p.blockSize
	for off := 0; off < last; off += p.blockSize {
		*(*int)(unsafe.Pointer(&p.arena[off])) = off + p.blockSize
	}
	*(*int)(unsafe.Pointer(&p.arena[last])) = endOfList
	p.freeHead = 0
	p.freeBlocks = p.totalBlocks
	if p.freeSlots != nil {
		p.freeSlots.Clear()
		p.freeSlots.AddRange(0, uint64(p.totalBlocks))
	}
}

// Close releases the arena as a single unit. Slots still handed out at this
// point are a caller-side leak: Close logs a warning and proceeds anyway,
// since the memory must be released on every path. Close is idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	if leaked := p.totalBlocks - p.freeBlocks; leaked > 0 {
		p.logger.Warn("pool closed with blocks still in use",
			zap.Int("leaked_blocks", leaked),
			zap.Int("total_blocks", p.totalBlocks),
			zap.Int("block_size", p.blockSize),
		)
	}
	p.closed = true
	p.arena = nil
	p.freeHead = endOfList
	p.freeBlocks = 0
	if p.release != nil {
		return p.release()
	}
	return nil
}

// IsExhausted reports whether the next Alloc would fail.
func (p *Pool) IsExhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freeBlocks == 0
}

// UsedBlocks returns the number of slots currently handed out.
func (p *Pool) UsedBlocks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalBlocks - p.freeBlocks
}

// FreeBlocks returns the number of slots on the free list.
func (p *Pool) FreeBlocks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freeBlocks
}

// BlockSize returns the aligned slot size in bytes. It may exceed the
// requested size due to alignment.
func (p *Pool) BlockSize() int { return p.blockSize }

// TotalBlocks returns the fixed capacity of the pool.
func (p *Pool) TotalBlocks() int { return p.totalBlocks }

// Stats returns a consistent snapshot of the pool counters.
func (p *Pool) Stats() api.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return api.PoolStats{
		BlockSize:   p.blockSize,
		TotalBlocks: p.totalBlocks,
		UsedBlocks:  p.totalBlocks - p.freeBlocks,
		FreeBlocks:  p.freeBlocks,
		TotalAllocs: p.totalAllocs,
		TotalFrees:  p.totalFrees,
	}
}

// alignUp rounds n up to the next multiple of align (a power of two).
func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// nopLocker replaces the mutex in single-threaded mode, keeping one code
// path for both concurrency policies.
type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}
