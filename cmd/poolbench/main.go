// File: cmd/poolbench/main.go
// Package main
// Comparative benchmark harness for hioload-mempool: times the fixed-block
// pool against the general-purpose allocator across several access patterns
// and prints a speedup table. Drives only the public pool surface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional TOML config file")
		blockSize  = flag.Int("blocksize", 0, "override block size in bytes")
		numBlocks  = flag.Int("blocks", 0, "override pool capacity")
		iterations = flag.Int("iters", 0, "override iteration count")
		threadSafe = flag.Bool("threadsafe", false, "bench the mutex-guarded pool in single-threaded scenarios too")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "poolbench: logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("config load failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *blockSize > 0 {
		cfg.BlockSize = *blockSize
	}
	if *numBlocks > 0 {
		cfg.NumBlocks = *numBlocks
	}
	if *iterations > 0 {
		cfg.Iterations = *iterations
	}
	if *threadSafe {
		cfg.ThreadSafe = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger.Info("starting poolbench",
		zap.Int("block_size", cfg.BlockSize),
		zap.Int("num_blocks", cfg.NumBlocks),
		zap.Int("iterations", cfg.Iterations),
		zap.Strings("scenarios", cfg.Scenarios),
	)

	fmt.Printf("%-24s %12s %12s %10s\n", "scenario", "heap (ms)", "pool (ms)", "speedup")
	failed := false
	for _, name := range cfg.Scenarios {
		run, ok := scenarios[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "poolbench: unknown scenario %q\n", name)
			failed = true
			continue
		}
		res, err := run(cfg)
		if err != nil {
			logger.Error("scenario failed", zap.String("scenario", name), zap.Error(err))
			fmt.Fprintf(os.Stderr, "poolbench: %s: %v\n", name, err)
			failed = true
			continue
		}
		fmt.Printf("%-24s %12.2f %12.2f %9.2fx\n",
			res.Name,
			float64(res.Heap.Microseconds())/1000.0,
			float64(res.Pool.Microseconds())/1000.0,
			res.Speedup(),
		)
	}
	if failed {
		os.Exit(1)
	}
}
