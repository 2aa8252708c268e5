package adc

import "sync/atomic"

// Register is the fixed memory location the transfer mechanism copies conversions into.
// Readers poll it; the zero value holds sample 0.
type Register struct {
	v atomic.Uint32
}

// Store overwrites the latest value.
func (r *Register) Store(s Sample) {
	r.v.Store(uint32(s))
}

// Latest returns the most recently stored value without blocking.
func (r *Register) Latest() Sample {
	return Sample(r.v.Load())
}
