package main

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/itohio/goadc/pkg/adc"
	"github.com/itohio/goadc/pkg/config"
	"github.com/itohio/goadc/pkg/device"
	"github.com/itohio/goadc/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeDevice replays preloaded readings.
type fakeDevice struct {
	readings   chan device.Reading
	connectErr error
	once       sync.Once
	connected  bool
}

func newFakeDevice(values ...adc.Sample) *fakeDevice {
	d := &fakeDevice{readings: make(chan device.Reading, len(values))}
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, v := range values {
		d.readings <- device.Reading{Timestamp: start.Add(time.Duration(i) * time.Second), Value: v}
	}
	return d
}

func (d *fakeDevice) Connect() error {
	if d.connectErr != nil {
		return d.connectErr
	}
	d.connected = true
	return nil
}

func (d *fakeDevice) Close() error {
	d.once.Do(func() { close(d.readings) })
	d.connected = false
	return nil
}

func (d *fakeDevice) Readings() <-chan device.Reading { return d.readings }
func (d *fakeDevice) IsConnected() bool               { return d.connected }

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func collect(t *testing.T, in <-chan sample.Sample) []sample.Sample {
	t.Helper()
	var got []sample.Sample
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-in:
			if !ok {
				return got
			}
			got = append(got, s)
		case <-timeout:
			t.Fatal("channel not closed within timeout")
			return got
		}
	}
}

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name        string
		port        string
		average     int
		wantPort    string
		wantAverage int
	}{
		{"no overrides", "", -1, "/dev/ttyUSB0", 0},
		{"port", "/dev/ttyACM0", -1, "/dev/ttyACM0", 0},
		{"average", "", 8, "/dev/ttyUSB0", 8},
		{"disable average", "", 0, "/dev/ttyUSB0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			applyOverrides(cfg, tt.port, tt.average)
			assert.Equal(t, tt.wantPort, cfg.Serial.Port)
			assert.Equal(t, tt.wantAverage, cfg.ADC.AverageSamples)
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level     string
		debug     bool
		wantDebug bool
		wantErr   bool
	}{
		{"info", false, false, false},
		{"debug", false, true, false},
		{"warn", true, true, false},
		{"loud", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := newLogger(tt.level, tt.debug)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDebug, logger.Desugar().Core().Enabled(-1))
		})
	}
}

func TestSourceName(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "mock", sourceName(cfg, true))
	assert.Equal(t, "/dev/ttyUSB0", sourceName(cfg, false))
}

func TestOpenDevice(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	cfg := config.Default()

	_, ok := openDevice(cfg, true, logger).(*device.Mock)
	assert.True(t, ok)

	_, ok = openDevice(cfg, false, logger).(*device.Serial)
	assert.True(t, ok)
}

func TestStartPipeline(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()

	t.Run("without averaging", func(t *testing.T) {
		cfg := config.Default()
		dev := newFakeDevice(0, 2048, 4095)

		stream, err := startPipeline(dev, cfg, logger)
		require.NoError(t, err)
		require.NoError(t, dev.Close())

		got := collect(t, stream)
		require.Len(t, got, 3)
		assert.Equal(t, adc.Sample(2048), got[1].Raw)
		assert.InDelta(t, 1.65, got[1].Volts, 1e-9)
	})

	t.Run("with averaging", func(t *testing.T) {
		cfg := config.Default()
		cfg.ADC.AverageSamples = 2
		dev := newFakeDevice(100, 200, 300)

		stream, err := startPipeline(dev, cfg, logger)
		require.NoError(t, err)
		require.NoError(t, dev.Close())

		got := collect(t, stream)
		require.Len(t, got, 3)
		assert.Equal(t, adc.Sample(100), got[0].Raw)
		assert.Equal(t, adc.Sample(150), got[1].Raw)
		assert.Equal(t, adc.Sample(250), got[2].Raw)
	})

	t.Run("connect error", func(t *testing.T) {
		dev := newFakeDevice()
		dev.connectErr = errors.New("port busy")

		_, err := startPipeline(dev, config.Default(), logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port busy")
	})
}

func TestTee(t *testing.T) {
	in := make(chan sample.Sample, 3)
	for i := range 3 {
		in <- sample.Sample{Raw: adc.Sample(i)}
	}
	close(in)

	outs := tee(in, 2)
	require.Len(t, outs, 2)
	for _, out := range outs {
		got := collect(t, out)
		require.Len(t, got, 3)
		assert.Equal(t, adc.Sample(2), got[2].Raw)
	}
}

func TestBuildSinks_TextOnly(t *testing.T) {
	var buf bytes.Buffer
	sinks, err := buildSinks(config.Default(), "mock", &buf)
	require.NoError(t, err)
	assert.Len(t, sinks, 1)
}

func TestBuildSinks_Kafka(t *testing.T) {
	cfg := config.Default()
	cfg.Kafka.Brokers = []string{"localhost:9092"}

	sinks, err := buildSinks(cfg, "mock", &bytes.Buffer{})
	require.NoError(t, err)
	assert.Len(t, sinks, 2)
	closeSinks(sinks, zaptest.NewLogger(t).Sugar())
}

func TestRunMonitor_FakeDevice(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	cfg := config.Default()
	dev := newFakeDevice(0, 2048, 4095)
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runMonitor(ctx, cfg, dev, "fake", out, logger)
	}()

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "\n") == 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runMonitor did not return after cancel")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "    0 0.000V"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], " 2048 1.650V"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], " 4095 3.299V"), lines[2])
	assert.False(t, dev.IsConnected())
}

func TestRunMonitor_MockDevice(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	cfg := config.Default()
	cfg.Mock.Interval = 10 * time.Millisecond
	dev := openDevice(cfg, true, logger)
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runMonitor(ctx, cfg, dev, "mock", out, logger)
	}()

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "\n") >= 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runMonitor did not return after cancel")
	}

	line := regexp.MustCompile(`^\S+ +\d{1,4} \d\.\d{3}V$`)
	for _, l := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		assert.Regexp(t, line, l)
	}
}

func TestRunMonitor_ConnectError(t *testing.T) {
	dev := newFakeDevice()
	dev.connectErr = errors.New("no such port")

	err := runMonitor(context.Background(), config.Default(), dev, "fake", &bytes.Buffer{}, zaptest.NewLogger(t).Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such port")
}
