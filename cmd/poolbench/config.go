// File: cmd/poolbench/config.go
// Author: momentics <momentics@gmail.com>
//
// TOML-backed configuration for the poolbench harness.

package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config describes one harness run. All fields have working defaults so a
// bare `poolbench` invocation produces a full comparison table.
type Config struct {
	BlockSize  int      `toml:"block_size"`
	NumBlocks  int      `toml:"num_blocks"`
	Iterations int      `toml:"iterations"`
	ChurnDepth int      `toml:"churn_depth"`
	Workers    int      `toml:"workers"`
	PerWorker  int      `toml:"per_worker"`
	ThreadSafe bool     `toml:"thread_safe"`
	Scenarios  []string `toml:"scenarios"`
}

// DefaultConfig favors small blocks and deep iteration counts, the regime
// where a fixed-block pool earns its keep.
func DefaultConfig() Config {
	return Config{
		BlockSize:  32,
		NumBlocks:  1024,
		Iterations: 1_000_000,
		ChurnDepth: 256,
		Workers:    8,
		PerWorker:  64,
		Scenarios:  []string{"tight", "paired", "burst", "churn", "concurrent"},
	}
}

// LoadConfig overlays a TOML file onto the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("poolbench: load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects geometries the scenarios cannot run with.
func (c Config) Validate() error {
	if c.NumBlocks < 1 || c.Iterations < 1 {
		return fmt.Errorf("poolbench: num_blocks and iterations must be positive")
	}
	if c.ChurnDepth > c.NumBlocks {
		return fmt.Errorf("poolbench: churn_depth %d exceeds num_blocks %d", c.ChurnDepth, c.NumBlocks)
	}
	if c.Workers < 1 || c.PerWorker < 1 {
		return fmt.Errorf("poolbench: workers and per_worker must be positive")
	}
	return nil
}
