package sample

import (
	"time"

	"github.com/itohio/goadc/pkg/adc"
	"github.com/itohio/goadc/pkg/config"
	"github.com/itohio/goadc/pkg/device"
	"go.uber.org/zap"
)

// Sample represents a processed reading with its physical value.
type Sample struct {
	Timestamp time.Time
	Raw       adc.Sample // 12-bit ADC reading
	Volts     float64    // Input voltage (V)
}

// Converter is a function type that converts a Reading channel to a Sample channel.
type Converter func(in <-chan device.Reading) <-chan Sample

// NewConverter creates a converter function that transforms device readings to Samples.
func NewConverter(cfg *config.Config, bufSize int, logger *zap.SugaredLogger) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	vref := cfg.ADC.VRef

	return func(in <-chan device.Reading) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for r := range in {
				select {
				case out <- convertReading(r, vref):
				case <-time.After(time.Second):
					logger.Warn("Converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// convertReading converts a Reading to Sample.
func convertReading(r device.Reading, vref float64) Sample {
	return Sample{
		Timestamp: r.Timestamp,
		Raw:       r.Value,
		Volts:     adcToVoltage(r.Value, vref),
	}
}

// adcToVoltage converts a 12-bit ADC reading to voltage.
// Formula: V = code * VRef / 2^Resolution
func adcToVoltage(code adc.Sample, vref float64) float64 {
	return float64(code) * vref / float64(adc.MaxSample+1)
}
