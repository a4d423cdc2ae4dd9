package core

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 is a float64 with atomic load/store semantics.
//
// It decouples non-real-time parameter writes from real-time audio reads:
// every access is a single machine-word operation, so the audio thread can
// never observe a torn value. The zero value reads as 0.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// Store atomically sets the value.
func (f *AtomicFloat64) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

// Load atomically returns the current value.
func (f *AtomicFloat64) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}
