package trace

import (
	"testing"
	"time"

	"github.com/itohio/goadc/pkg/config"
	"github.com/itohio/goadc/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cfg := config.Default()
	tr := New(cfg)

	assert.NotNil(t, tr)
	assert.Equal(t, 60*time.Second, tr.Window())
	assert.Len(t, tr.Samples(), 0)
	assert.Equal(t, Stats{}, tr.Stats())
}

func TestAdd_Basic(t *testing.T) {
	tr := NewWindow(10 * time.Second)
	now := time.Now()
	s := sample.Sample{Timestamp: now, Raw: 2048, Volts: 1.65}

	tr.Add(s)

	samples := tr.Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, s, samples[0])
}

func TestAdd_WindowRemoval(t *testing.T) {
	tr := NewWindow(time.Second)
	now := time.Now()

	tr.Add(sample.Sample{Timestamp: now, Volts: 1.0})
	tr.Add(sample.Sample{Timestamp: now.Add(500 * time.Millisecond), Volts: 2.0})
	assert.Len(t, tr.Samples(), 2)

	// Exactly one window after the first sample: the first one falls out
	tr.Add(sample.Sample{Timestamp: now.Add(time.Second), Volts: 3.0})
	samples := tr.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, 2.0, samples[0].Volts)
	assert.Equal(t, 3.0, samples[1].Volts)

	tr.Add(sample.Sample{Timestamp: now.Add(5 * time.Second), Volts: 4.0})
	samples = tr.Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, 4.0, samples[0].Volts)
}

func TestStats(t *testing.T) {
	tr := NewWindow(time.Minute)
	now := time.Now()
	for i, v := range []float64{1.0, 3.0, 2.0} {
		tr.Add(sample.Sample{Timestamp: now.Add(time.Duration(i) * time.Second), Volts: v})
	}

	stats := tr.Stats()
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 3.0, stats.Max)
	assert.InDelta(t, 2.0, stats.Mean, 1e-9)
	assert.InDelta(t, 0.816497, stats.StdDev, 1e-6)
	assert.Equal(t, 2.0, stats.Latest.Volts)
}

func TestSamples_ReturnsCopy(t *testing.T) {
	tr := NewWindow(time.Minute)
	tr.Add(sample.Sample{Timestamp: time.Now(), Volts: 1.0})

	samples := tr.Samples()
	samples[0].Volts = 99

	assert.Equal(t, 1.0, tr.Samples()[0].Volts)
}

func TestOnUpdate(t *testing.T) {
	tr := NewWindow(time.Minute)
	now := time.Now()

	var calls int
	var lastStats Stats
	var lastLen int
	tr.OnUpdate(func(samples []sample.Sample, stats Stats) {
		calls++
		lastStats = stats
		lastLen = len(samples)
	})

	tr.Add(sample.Sample{Timestamp: now, Volts: 1.0})
	tr.Add(sample.Sample{Timestamp: now.Add(time.Second), Volts: 2.0})

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, lastLen)
	assert.Equal(t, 2, lastStats.Count)
	assert.InDelta(t, 1.5, lastStats.Mean, 1e-9)
}

func TestOnUpdate_CallbackMayReadTrace(t *testing.T) {
	tr := NewWindow(time.Minute)
	done := make(chan Stats, 1)
	tr.OnUpdate(func(samples []sample.Sample, stats Stats) {
		// Must not deadlock
		done <- tr.Stats()
	})

	tr.Add(sample.Sample{Timestamp: time.Now(), Volts: 1.0})

	select {
	case stats := <-done:
		assert.Equal(t, 1, stats.Count)
	case <-time.After(time.Second):
		t.Fatal("callback deadlocked")
	}
}
