// Package trace keeps a rolling time window of samples and its statistics.
package trace

import (
	"sync"
	"time"

	"github.com/itohio/goadc/pkg/config"
	"github.com/itohio/goadc/pkg/sample"
	"github.com/montanaflynn/stats"
)

// Stats summarizes the samples currently in the window. Voltages are in volts.
type Stats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64 // Population standard deviation
	Latest sample.Sample
}

// UpdateFunc receives the window contents and statistics after every sample.
type UpdateFunc func(samples []sample.Sample, stats Stats)

// Trace is a FIFO of samples ordered oldest to newest. Removal is based on timestamp
// (time window), not number of samples.
type Trace struct {
	window time.Duration

	mu       sync.RWMutex
	samples  []sample.Sample
	shutdown bool // Set when the input channel closes, prevents further callbacks

	cbMu      sync.RWMutex
	callbacks []UpdateFunc
}

// New creates a Trace with the window from cfg.
func New(cfg *config.Config) *Trace {
	return NewWindow(cfg.Window())
}

// NewWindow creates a Trace keeping samples newer than window.
func NewWindow(window time.Duration) *Trace {
	return &Trace{
		window:  window,
		samples: make([]sample.Sample, 0),
	}
}

// Process consumes samples from input until it closes.
func (t *Trace) Process(input <-chan sample.Sample) {
	for s := range input {
		t.Add(s)
	}
	t.mu.Lock()
	t.shutdown = true
	t.mu.Unlock()
}

// Add appends s, drops samples that fell out of the window and notifies callbacks.
func (t *Trace) Add(s sample.Sample) {
	t.mu.Lock()
	t.samples = append(t.samples, s)

	cutoff := s.Timestamp.Add(-t.window)
	drop := 0
	for drop < len(t.samples) && !t.samples[drop].Timestamp.After(cutoff) {
		drop++
	}
	if drop > 0 {
		t.samples = append(t.samples[:0], t.samples[drop:]...)
	}

	notify := !t.shutdown
	var snapshot []sample.Sample
	var stats Stats
	if notify {
		snapshot = t.copySamples()
		stats = computeStats(snapshot)
	}
	t.mu.Unlock()

	if notify {
		t.notifyCallbacks(snapshot, stats)
	}
}

// Samples returns a copy of the current samples buffer.
func (t *Trace) Samples() []sample.Sample {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.copySamples()
}

// Stats returns the statistics of the current window.
func (t *Trace) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return computeStats(t.samples)
}

// Window returns the configured window duration.
func (t *Trace) Window() time.Duration {
	return t.window
}

// OnUpdate registers a callback. Callbacks run on the processing goroutine and should
// return quickly.
func (t *Trace) OnUpdate(callback UpdateFunc) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()
	t.callbacks = append(t.callbacks, callback)
}

// ResetShutdown allows callbacks again before a new chain is started.
func (t *Trace) ResetShutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shutdown = false
}

// copySamples must be called with mu held.
func (t *Trace) copySamples() []sample.Sample {
	result := make([]sample.Sample, len(t.samples))
	copy(result, t.samples)
	return result
}

func (t *Trace) notifyCallbacks(samples []sample.Sample, stats Stats) {
	t.cbMu.RLock()
	callbacks := make([]UpdateFunc, len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(samples, stats)
		}
	}
}

func computeStats(samples []sample.Sample) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	volts := make(stats.Float64Data, len(samples))
	for i, s := range samples {
		volts[i] = s.Volts
	}

	// Errors are only returned for empty input
	minV, _ := volts.Min()
	maxV, _ := volts.Max()
	mean, _ := volts.Mean()
	stdDev, _ := volts.StandardDeviation()

	return Stats{
		Count:  len(samples),
		Min:    minV,
		Max:    maxV,
		Mean:   mean,
		StdDev: stdDev,
		Latest: samples[len(samples)-1],
	}
}
