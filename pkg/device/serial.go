package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

const (
	// DefaultBaudRate matches the firmware UART configuration.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the readings channel buffer.
	DefaultBufferSize = 100
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
	IsUSB       bool
}

// Serial represents a connection to the reporter MCU.
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	logger   *zap.SugaredLogger

	conn      serial.Port
	readings  chan Reading
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

// New creates a new Serial device with the specified port, baud rate, and buffer size.
// Zero values select the defaults; a nil logger discards output.
func New(port string, baudRate int, bufSize int, logger *zap.SugaredLogger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		logger:   logger.With("port", port),
		readings: make(chan Reading, bufSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		desc := d.Name
		if d.Product != "" {
			desc = d.Product
		}
		if d.IsUSB {
			desc = fmt.Sprintf("%s (%s:%s)", desc, d.VID, d.PID)
		}
		result = append(result, Port{
			Name:        d.Name,
			Description: desc,
			IsUSB:       d.IsUSB,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{
		BaudRate: d.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true
	d.logger.Infow("Connected", "baud", d.baudRate)

	go func() {
		defer close(d.done)
		defer close(d.readings)
		readLines(d.ctx, port, d.readings, time.Now, d.logger)
	}()

	return nil
}

// Close closes the port and waits until the readings channel is closed.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	d.cancel()

	var err error
	if d.conn != nil {
		if err = d.conn.Close(); err != nil {
			err = fmt.Errorf("failed to close serial port %s: %w", d.port, err)
		}
		d.conn = nil
	}
	d.connected = false
	d.mu.Unlock()

	<-d.done
	d.logger.Info("Disconnected")

	return err
}

// Readings returns the channel of received readings.
func (d *Serial) Readings() <-chan Reading {
	return d.readings
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}
