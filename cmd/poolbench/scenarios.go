// File: cmd/poolbench/scenarios.go
// Author: momentics <momentics@gmail.com>
//
// Benchmark scenarios. Each one times the same workload twice: against the
// fixed-block pool and against make + GC, using only the public pool surface.

package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/panjf2000/ants/v2"

	"github.com/momentics/hioload-mempool/mempool"
)

// Result is one scenario's comparative timing.
type Result struct {
	Name string
	Heap time.Duration
	Pool time.Duration
}

// Speedup is heap time over pool time; above 1.0 the pool wins.
func (r Result) Speedup() float64 {
	if r.Pool <= 0 {
		return 0
	}
	return float64(r.Heap) / float64(r.Pool)
}

type scenario func(cfg Config) (Result, error)

var scenarios = map[string]scenario{
	"tight":      runTight,
	"paired":     runPaired,
	"burst":      runBurst,
	"churn":      runChurn,
	"concurrent": runConcurrent,
}

var sink byte

func touch(b []byte) {
	b[0]++
	sink = b[0]
}

func newPool(cfg Config, opts ...mempool.Option) (*mempool.Pool, error) {
	if cfg.ThreadSafe {
		opts = append(opts, mempool.WithThreadSafe())
	}
	return mempool.New(cfg.BlockSize, cfg.NumBlocks, opts...)
}

// runTight is the ultra-tight loop: alloc, touch, free, repeat.
func runTight(cfg Config) (Result, error) {
	start := time.Now()
	for i := 0; i < cfg.Iterations; i++ {
		touch(make([]byte, cfg.BlockSize))
	}
	heap := time.Since(start)

	p, err := newPool(cfg)
	if err != nil {
		return Result{}, err
	}
	defer p.Close()

	start = time.Now()
	for i := 0; i < cfg.Iterations; i++ {
		b, err := p.Alloc()
		if err != nil {
			return Result{}, err
		}
		touch(b)
		p.Free(b)
	}
	return Result{Name: "tight loop", Heap: heap, Pool: time.Since(start)}, nil
}

// runPaired holds two live blocks per iteration, freed in reverse order.
func runPaired(cfg Config) (Result, error) {
	start := time.Now()
	for i := 0; i < cfg.Iterations; i++ {
		b1 := make([]byte, cfg.BlockSize)
		b2 := make([]byte, cfg.BlockSize)
		touch(b1)
		touch(b2)
	}
	heap := time.Since(start)

	p, err := newPool(cfg)
	if err != nil {
		return Result{}, err
	}
	defer p.Close()

	start = time.Now()
	for i := 0; i < cfg.Iterations; i++ {
		b1, err := p.Alloc()
		if err != nil {
			return Result{}, err
		}
		b2, err := p.Alloc()
		if err != nil {
			return Result{}, err
		}
		touch(b1)
		touch(b2)
		p.Free(b2)
		p.Free(b1)
	}
	return Result{Name: "paired alloc/free", Heap: heap, Pool: time.Since(start)}, nil
}

// runBurst fills the whole pool, touches everything, then drains it.
func runBurst(cfg Config) (Result, error) {
	rounds := cfg.Iterations / cfg.NumBlocks
	if rounds < 1 {
		rounds = 1
	}
	heapHeld := make([][]byte, 0, cfg.NumBlocks)

	start := time.Now()
	for r := 0; r < rounds; r++ {
		for len(heapHeld) < cfg.NumBlocks {
			b := make([]byte, cfg.BlockSize)
			touch(b)
			heapHeld = append(heapHeld, b)
		}
		heapHeld = heapHeld[:0]
	}
	heap := time.Since(start)

	p, err := newPool(cfg)
	if err != nil {
		return Result{}, err
	}
	defer p.Close()
	held := make([][]byte, 0, cfg.NumBlocks)

	start = time.Now()
	for r := 0; r < rounds; r++ {
		for len(held) < cfg.NumBlocks {
			b, err := p.Alloc()
			if err != nil {
				return Result{}, err
			}
			touch(b)
			held = append(held, b)
		}
		for _, b := range held {
			p.Free(b)
		}
		held = held[:0]
	}
	return Result{Name: "burst fill/drain", Heap: heap, Pool: time.Since(start)}, nil
}

// runChurn keeps a FIFO of outstanding blocks at a fixed depth: every
// iteration frees the oldest block and allocates a fresh one, the typical
// message-buffer lifetime pattern.
func runChurn(cfg Config) (Result, error) {
	start := time.Now()
	heapQ := queue.New()
	for i := 0; i < cfg.Iterations; i++ {
		if heapQ.Length() >= cfg.ChurnDepth {
			heapQ.Remove()
		}
		b := make([]byte, cfg.BlockSize)
		touch(b)
		heapQ.Add(b)
	}
	heap := time.Since(start)

	p, err := newPool(cfg)
	if err != nil {
		return Result{}, err
	}
	defer p.Close()

	start = time.Now()
	q := queue.New()
	for i := 0; i < cfg.Iterations; i++ {
		if q.Length() >= cfg.ChurnDepth {
			p.Free(q.Remove().([]byte))
		}
		b, err := p.Alloc()
		if err != nil {
			return Result{}, err
		}
		touch(b)
		q.Add(b)
	}
	for q.Length() > 0 {
		p.Free(q.Remove().([]byte))
	}
	return Result{Name: "churn (FIFO depth)", Heap: heap, Pool: time.Since(start)}, nil
}

// runConcurrent dispatches the N-workers-by-K-slots stress through a worker
// pool and asserts the post-join accounting: no slot lost or duplicated.
func runConcurrent(cfg Config) (Result, error) {
	iters := cfg.Iterations / (cfg.Workers * cfg.PerWorker)
	if iters < 1 {
		iters = 1
	}

	heap, err := timeConcurrent(cfg, iters, func(held [][]byte) ([][]byte, error) {
		for len(held) < cfg.PerWorker {
			b := make([]byte, cfg.BlockSize)
			touch(b)
			held = append(held, b)
		}
		return held[:0], nil
	})
	if err != nil {
		return Result{}, err
	}

	p, err := mempool.New(cfg.BlockSize, cfg.Workers*cfg.PerWorker, mempool.WithThreadSafe())
	if err != nil {
		return Result{}, err
	}
	defer p.Close()

	pool, err := timeConcurrent(cfg, iters, func(held [][]byte) ([][]byte, error) {
		for len(held) < cfg.PerWorker {
			b, err := p.Alloc()
			if err != nil {
				return held, err
			}
			touch(b)
			held = append(held, b)
		}
		for _, b := range held {
			if err := p.Free(b); err != nil {
				return held, err
			}
		}
		return held[:0], nil
	})
	if err != nil {
		return Result{}, err
	}

	if used := p.UsedBlocks(); used != 0 {
		return Result{}, fmt.Errorf("poolbench: %d blocks lost after join", used)
	}
	if free := p.FreeBlocks(); free != p.TotalBlocks() {
		return Result{}, fmt.Errorf("poolbench: free count %d != capacity %d after join", free, p.TotalBlocks())
	}
	return Result{Name: "concurrent stress", Heap: heap, Pool: pool}, nil
}

// timeConcurrent runs cfg.Workers tasks on an ants pool, each looping the
// given body iters times, and returns the wall-clock duration.
func timeConcurrent(cfg Config, iters int, body func(held [][]byte) ([][]byte, error)) (time.Duration, error) {
	workers, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return 0, err
	}
	defer workers.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	start := time.Now()
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			held := make([][]byte, 0, cfg.PerWorker)
			for i := 0; i < iters; i++ {
				var err error
				held, err = body(held)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
			}
		}
		if err := workers.Submit(task); err != nil {
			wg.Done()
			return 0, err
		}
	}
	wg.Wait()
	return time.Since(start), firstErr
}
