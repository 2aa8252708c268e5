//go:build tinygo

package main

import (
	"machine"
	"time"
)

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS     = 1000 // Delay between two reported samples
	CONVERSION_INTERVAL_MS = 1    // Continuous conversion period, latest value is kept

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// ADC pin, channel 6 on the STM32F103
	PIN_ADC = machine.PA6

	// Serial configuration
	// Longest line is "4095\r\n" = 6 bytes once per second, 115200 8N1 is far above that
	UART_BAUD_RATE = 115200

	BANNER = " Chuong trinh test ADC"
)

const (
	sampleInterval     = SAMPLE_INTERVAL_MS * time.Millisecond
	conversionInterval = CONVERSION_INTERVAL_MS * time.Millisecond
)
