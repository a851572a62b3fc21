// File: mempool/pool_test.go
// Author: momentics <momentics@gmail.com>
//
// Functional tests for the fixed-block pool core.

package mempool_test

import (
	"math/rand"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/momentics/hioload-mempool/api"
	"github.com/momentics/hioload-mempool/mempool"
)

func TestNewCounters(t *testing.T) {
	p, err := mempool.New(32, 10)
	require.NoError(t, err)
	defer p.Close()

	require.Equal(t, 10, p.TotalBlocks())
	require.Equal(t, 10, p.FreeBlocks())
	require.Equal(t, 0, p.UsedBlocks())
	require.False(t, p.IsExhausted())

	st := p.Stats()
	require.Equal(t, uint64(0), st.TotalAllocs)
	require.Equal(t, uint64(0), st.TotalFrees)
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := mempool.New(32, 0)
	require.ErrorIs(t, err, api.ErrInvalidConfiguration)

	_, err = mempool.New(32, -4)
	require.ErrorIs(t, err, api.ErrInvalidConfiguration)
}

func TestBlockSizeAlignment(t *testing.T) {
	cases := []struct {
		requested int
		aligned   int
	}{
		{0, 16},  // promoted to link size, then aligned
		{1, 16},
		{8, 16},
		{16, 16},
		{17, 32},
		{32, 32},
		{100, 112},
	}
	for _, c := range cases {
		p, err := mempool.New(c.requested, 2)
		require.NoError(t, err)
		require.Equal(t, c.aligned, p.BlockSize(), "requested %d", c.requested)
		require.NoError(t, p.Close())
	}
}

func TestAllocFreeCounters(t *testing.T) {
	p, err := mempool.New(32, 10)
	require.NoError(t, err)
	defer p.Close()

	buf, err := p.Alloc()
	require.NoError(t, err)
	require.Len(t, buf, p.BlockSize())
	require.Equal(t, 1, p.UsedBlocks())
	require.Equal(t, 9, p.FreeBlocks())

	require.NoError(t, p.Free(buf))
	require.Equal(t, 0, p.UsedBlocks())
	require.Equal(t, 10, p.FreeBlocks())

	st := p.Stats()
	require.Equal(t, uint64(1), st.TotalAllocs)
	require.Equal(t, uint64(1), st.TotalFrees)
}

func TestExhaustion(t *testing.T) {
	p, err := mempool.New(32, 5)
	require.NoError(t, err)
	defer p.Close()

	bufs := make([][]byte, 0, 5)
	for i := 0; i < 5; i++ {
		b, err := p.Alloc()
		require.NoError(t, err)
		bufs = append(bufs, b)
	}
	require.True(t, p.IsExhausted())

	_, err = p.Alloc()
	require.ErrorIs(t, err, api.ErrPoolExhausted)

	require.NoError(t, p.Free(bufs[0]))
	require.False(t, p.IsExhausted())
	b, err := p.Alloc()
	require.NoError(t, err)
	require.NotNil(t, b)
}

// TestAddressInvariants drains the pool and checks that every returned slot
// is distinct, slot-aligned, and inside the arena. The lowest address stands
// in for the arena base: the free list is threaded in ascending order.
func TestAddressInvariants(t *testing.T) {
	const blocks = 64
	p, err := mempool.New(48, blocks)
	require.NoError(t, err)
	defer p.Close()

	addrs := make(map[uintptr]bool, blocks)
	base := ^uintptr(0)
	for i := 0; i < blocks; i++ {
		b, err := p.Alloc()
		require.NoError(t, err)
		a := uintptr(unsafe.Pointer(&b[0]))
		require.False(t, addrs[a], "duplicate slot address")
		addrs[a] = true
		if a < base {
			base = a
		}
	}
	span := uintptr(p.BlockSize() * blocks)
	for a := range addrs {
		require.Less(t, a-base, span, "address outside arena")
		require.Zero(t, (a-base)%uintptr(p.BlockSize()), "address not slot-aligned")
	}
}

// TestUsedPlusFreeInvariant drives a random alloc/free sequence and checks
// the accounting identity after every operation.
func TestUsedPlusFreeInvariant(t *testing.T) {
	const blocks = 32
	p, err := mempool.New(24, blocks)
	require.NoError(t, err)
	defer p.Close()

	rng := rand.New(rand.NewSource(1))
	var held [][]byte
	for i := 0; i < 5000; i++ {
		if len(held) > 0 && (rng.Intn(2) == 0 || p.IsExhausted()) {
			j := rng.Intn(len(held))
			require.NoError(t, p.Free(held[j]))
			held = append(held[:j], held[j+1:]...)
		} else {
			b, err := p.Alloc()
			require.NoError(t, err)
			held = append(held, b)
		}
		require.Equal(t, blocks, p.UsedBlocks()+p.FreeBlocks())
		require.Equal(t, len(held), p.UsedBlocks())
	}
}

// TestFreeListReuse frees one slot and expects the next Alloc to return it.
// LIFO reuse is the discipline of the intrusive list (push and pop at the
// head), not part of the public contract.
func TestFreeListReuse(t *testing.T) {
	p, err := mempool.New(32, 4)
	require.NoError(t, err)
	defer p.Close()

	a, err := p.Alloc()
	require.NoError(t, err)
	b, err := p.Alloc()
	require.NoError(t, err)

	require.NoError(t, p.Free(a))
	c, err := p.Alloc()
	require.NoError(t, err)
	require.Equal(t, unsafe.Pointer(&a[0]), unsafe.Pointer(&c[0]))

	require.NoError(t, p.Free(b))
	require.NoError(t, p.Free(c))
}

// TestPayloadIsolation writes a distinct pattern into every slot and checks
// no slot bleeds into a neighbour.
func TestPayloadIsolation(t *testing.T) {
	const blocks = 16
	p, err := mempool.New(32, blocks)
	require.NoError(t, err)
	defer p.Close()

	bufs := make([][]byte, blocks)
	for i := range bufs {
		b, err := p.Alloc()
		require.NoError(t, err)
		for j := range b {
			b[j] = byte(i)
		}
		bufs[i] = b
	}
	for i, b := range bufs {
		for j := range b {
			require.Equal(t, byte(i), b[j], "slot %d corrupted at byte %d", i, j)
		}
		require.NoError(t, p.Free(b))
	}
}

func TestReset(t *testing.T) {
	p, err := mempool.New(32, 8)
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 6; i++ {
		_, err := p.Alloc()
		require.NoError(t, err)
	}
	require.Equal(t, 6, p.UsedBlocks())

	require.NoError(t, p.Reset())
	require.Equal(t, 0, p.UsedBlocks())
	require.Equal(t, 8, p.FreeBlocks())

	// Full capacity is available again.
	for i := 0; i < 8; i++ {
		_, err := p.Alloc()
		require.NoError(t, err)
	}
	_, err = p.Alloc()
	require.ErrorIs(t, err, api.ErrPoolExhausted)
}

func TestFreeNilIsNoop(t *testing.T) {
	p, err := mempool.New(32, 2)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Free(nil))
	require.NoError(t, p.Free([]byte{}))
	require.Equal(t, 2, p.FreeBlocks())
}

func TestCloseIdempotentAndGuardsOperations(t *testing.T) {
	p, err := mempool.New(32, 2)
	require.NoError(t, err)

	b, err := p.Alloc()
	require.NoError(t, err)
	require.NoError(t, p.Free(b))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.Alloc()
	require.ErrorIs(t, err, api.ErrPoolClosed)
	require.ErrorIs(t, p.Free(b), api.ErrPoolClosed)
	require.ErrorIs(t, p.Reset(), api.ErrPoolClosed)
}

// TestLeakWarningOnClose checks that closing with outstanding slots logs a
// diagnostic instead of failing: destruction must always release the arena.
func TestLeakWarningOnClose(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p, err := mempool.New(32, 4, mempool.WithLogger(zap.New(core)))
	require.NoError(t, err)

	_, err = p.Alloc()
	require.NoError(t, err)
	_, err = p.Alloc()
	require.NoError(t, err)

	require.NoError(t, p.Close())

	entries := logs.FilterMessage("pool closed with blocks still in use").All()
	require.Len(t, entries, 1)
	require.Equal(t, int64(2), entries[0].ContextMap()["leaked_blocks"])
}

func TestCleanCloseLogsNothing(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p, err := mempool.New(32, 4, mempool.WithLogger(zap.New(core)))
	require.NoError(t, err)

	b, err := p.Alloc()
	require.NoError(t, err)
	require.NoError(t, p.Free(b))
	require.NoError(t, p.Close())
	require.Zero(t, logs.Len())
}
