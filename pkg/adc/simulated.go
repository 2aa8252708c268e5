package adc

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/chewxy/math32"
)

// Waveform describes the analog signal produced by Simulated. Voltages are in volts.
type Waveform struct {
	Offset    float32       // DC level
	Amplitude float32       // Peak deviation from Offset
	Period    time.Duration // Sine period (0 = flat signal)
	Noise     float32       // Peak noise added on top
	VRef      float32       // Converter reference voltage
}

// DefaultWaveform is a slow 1 V sine around mid-scale of a 3.3 V converter.
func DefaultWaveform() Waveform {
	return Waveform{
		Offset:    1.65,
		Amplitude: 1.0,
		Period:    10 * time.Second,
		Noise:     0.005,
		VRef:      3.3,
	}
}

// Simulated is a Converter that quantizes a synthetic waveform.
type Simulated struct {
	wave  Waveform
	clk   clock.Clock
	start time.Time
}

// NewSimulated creates a waveform source. A nil clock uses the wall clock.
func NewSimulated(wave Waveform, clk clock.Clock) *Simulated {
	if clk == nil {
		clk = clock.New()
	}
	if wave.VRef <= 0 {
		wave.VRef = DefaultWaveform().VRef
	}

	return &Simulated{
		wave:  wave,
		clk:   clk,
		start: clk.Now(),
	}
}

// Convert samples the waveform at the current clock time.
func (s *Simulated) Convert() Sample {
	elapsed := s.clk.Since(s.start)
	return s.quantize(s.voltage(elapsed))
}

// voltage returns the analog level after elapsed.
func (s *Simulated) voltage(elapsed time.Duration) float32 {
	v := s.wave.Offset

	if s.wave.Period > 0 {
		phase := float32(elapsed.Seconds() / s.wave.Period.Seconds())
		v += s.wave.Amplitude * math32.Sin(2*math32.Pi*phase)
	}

	if s.wave.Noise > 0 {
		// Deterministic pseudo-noise, two incommensurate tones
		t := float32(elapsed.Microseconds())
		v += (math32.Sin(t*0.001) + math32.Cos(t*0.0013)) * s.wave.Noise * 0.5
	}

	return v
}

// quantize converts a voltage to a 12-bit sample, clamping to the converter range.
func (s *Simulated) quantize(v float32) Sample {
	code := math32.Round(v / s.wave.VRef * float32(MaxSample))
	if code < 0 {
		return 0
	}
	if code > float32(MaxSample) {
		return MaxSample
	}
	return Sample(code)
}
