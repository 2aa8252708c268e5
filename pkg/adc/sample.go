// Package adc models a single analog input channel: the 12-bit sample type, the latest-value
// register filled by the conversion hardware, and the sources that keep it fresh.
package adc

const (
	// Resolution is the conversion width in bits.
	Resolution = 12
	// MaxSample is the largest value a conversion can produce (4095).
	MaxSample Sample = 1<<Resolution - 1
)

// Sample is one analog-to-digital conversion result in [0, MaxSample].
type Sample uint16

// Valid reports whether s fits the conversion width.
func (s Sample) Valid() bool {
	return s <= MaxSample
}

// FromLeftAligned converts a 16-bit left-aligned reading (as returned by TinyGo's
// machine.ADC.Get) into a 12-bit sample.
func FromLeftAligned(raw uint16) Sample {
	return Sample(raw >> (16 - Resolution))
}

// Converter performs a single conversion.
type Converter interface {
	Convert() Sample
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func() Sample

// Convert calls f.
func (f ConverterFunc) Convert() Sample {
	return f()
}
