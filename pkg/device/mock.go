package device

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/itohio/goadc/pkg/adc"
	"github.com/itohio/goadc/pkg/config"
	"github.com/itohio/goadc/pkg/reporter"
	"go.uber.org/zap"
)

// Mock simulates the reporter MCU for testing and development. It runs the firmware's
// reporter loop against a simulated converter and parses its output through an in-memory
// pipe, exactly as Serial parses the UART.
type Mock struct {
	cfg    *config.MockConfig
	vref   float64
	logger *zap.SugaredLogger

	// Overridable in tests
	clk   clock.Clock
	input reporter.AnalogInput

	readings  chan Reading
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	pipe      *io.PipeWriter
	connected bool
}

// NewMock creates a new mocked device instance. A nil cfg uses the default mock
// configuration and vref <= 0 uses the default reference voltage.
func NewMock(cfg *config.MockConfig, vref float64, logger *zap.SugaredLogger) *Mock {
	def := config.Default()
	if cfg == nil {
		cfg = &def.Mock
	}
	if vref <= 0 {
		vref = def.ADC.VRef
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:      cfg,
		vref:     vref,
		logger:   logger.With("device", "mock"),
		clk:      clock.New(),
		readings: make(chan Reading, DefaultBufferSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Connect starts the simulated firmware.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	input := m.input
	if input == nil {
		sim := adc.NewSimulated(m.waveform(), m.clk)
		conv := adc.NewContinuous(sim, m.clk, m.cfg.ConversionPeriod)
		conv.Start(m.ctx)
		input = conv
	}

	pr, pw := io.Pipe()
	m.pipe = pw

	rep := reporter.New(input, pw, m.clk, reporter.Config{
		Interval: m.cfg.Interval,
		Banner:   reporter.DefaultBanner,
	})

	go func() {
		err := rep.Run(m.ctx)
		pw.CloseWithError(err)
	}()

	go func() {
		defer close(m.done)
		defer close(m.readings)
		defer pr.Close()
		readLines(m.ctx, pr, m.readings, m.clk.Now, m.logger)
	}()

	m.connected = true
	m.logger.Infow("Connected", "interval", rep.Interval())

	return nil
}

// Close stops the simulated firmware and waits until the readings channel is closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}

	m.cancel()
	m.pipe.Close()
	m.connected = false
	m.mu.Unlock()

	<-m.done
	m.logger.Info("Disconnected")

	return nil
}

// Readings returns the channel of simulated readings.
func (m *Mock) Readings() <-chan Reading {
	return m.readings
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// waveform maps the mock configuration onto the simulated converter.
func (m *Mock) waveform() adc.Waveform {
	return adc.Waveform{
		Offset:    float32(m.cfg.Offset),
		Amplitude: float32(m.cfg.Amplitude),
		Period:    m.cfg.Period,
		Noise:     float32(m.cfg.NoiseLevel),
		VRef:      float32(m.vref),
	}
}
