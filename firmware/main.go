//go:build tinygo

//go:generate tinygo flash -target=bluepill

package main

import (
	"context"
	"machine"

	"github.com/benbjohnson/clock"
	"github.com/itohio/goadc/pkg/adc"
	"github.com/itohio/goadc/pkg/reporter"
)

var (
	adcInput machine.ADC
	uart     = machine.DefaultUART
)

// machineConverter performs a single conversion on the configured pin.
type machineConverter struct {
	a *machine.ADC
}

// Convert returns the 12-bit result. machine.ADC.Get scales every resolution to 16 bits.
func (c machineConverter) Convert() adc.Sample {
	return adc.FromLeftAligned(c.a.Get())
}

func main() {
	// Configure ADC pin and set up the ADC with 12-bit resolution
	machine.InitADC()
	PIN_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})

	adcInput = machine.ADC{Pin: PIN_ADC}
	adcInput.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	ctx := context.Background()
	clk := clock.New()

	// Keeps the latest conversion available without waiting for the ADC
	conv := adc.NewContinuous(machineConverter{a: &adcInput}, clk, conversionInterval)
	conv.Start(ctx)

	rep := reporter.New(conv, uart, clk, reporter.Config{
		Interval: sampleInterval,
		Banner:   BANNER,
	})

	// Run only returns on a write error, which the board has no way to report
	_ = rep.Run(ctx)
	for {
		_ = rep.Step(ctx)
	}
}
