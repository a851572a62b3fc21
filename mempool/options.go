// File: mempool/options.go
// Package mempool defines functional options for Pool construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package mempool

import (
	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"
)

// Option customizes pool construction.
type Option func(*Pool)

// WithThreadSafe guards every mutating operation with one mutex, serializing
// all pool mutations. Without it the pool performs no locking and must not
// be shared across goroutines without external coordination.
func WithThreadSafe() Option {
	return func(p *Pool) {
		p.threadSafe = true
	}
}

// WithSafeChecks makes Free validate that the slice address lies inside the
// arena on a slot boundary, returning api.ErrInvalidPointer otherwise. This
// costs two compares per Free and does not detect double frees on its own.
func WithSafeChecks() Option {
	return func(p *Pool) {
		p.safeChecks = true
	}
}

// WithDoubleFreeDetection keeps a bitmap of free slot indices alongside the
// intrusive list, so Free of an already-free slot returns api.ErrDoubleFree
// instead of corrupting the list. Implies WithSafeChecks. This is the opt-in
// end of the speed/safety trade-off; the default fast path omits all of it.
func WithDoubleFreeDetection() Option {
	return func(p *Pool) {
		p.safeChecks = true
		p.freeSlots = roaring.New()
	}
}

// WithLogger routes pool diagnostics (currently the leak warning on Close)
// through the given logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}
