package sample

import (
	"github.com/itohio/goadc/pkg/adc"
)

// NewAveragingConverter creates a moving average over the last windowSize samples.
// One averaged sample is emitted per input sample, stamped with the newest timestamp.
func NewAveragingConverter(windowSize int, bufSize int) func(in <-chan Sample) <-chan Sample {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			buffer := make([]Sample, 0, windowSize+1)
			for s := range in {
				buffer = append(buffer, s)
				if len(buffer) > windowSize {
					buffer = buffer[1:] // Remove oldest
				}
				out <- averageSamples(buffer)
			}
		}()

		return out
	}
}

// averageSamples averages a slice of samples, keeping the most recent timestamp.
func averageSamples(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sumRaw uint32
	var sumVolts float64
	for _, s := range samples {
		sumRaw += uint32(s.Raw)
		sumVolts += s.Volts
	}

	n := len(samples)
	return Sample{
		Timestamp: samples[n-1].Timestamp,
		Raw:       adc.Sample((sumRaw + uint32(n)/2) / uint32(n)), // Round to nearest
		Volts:     sumVolts / float64(n),
	}
}
