package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/itohio/goadc/pkg/config"
	"github.com/itohio/goadc/pkg/device"
	"github.com/itohio/goadc/pkg/sample"
	"github.com/itohio/goadc/pkg/sink"
	"github.com/itohio/goadc/pkg/status"
	"github.com/itohio/goadc/pkg/trace"
	"go.uber.org/zap"
)

// Increased from the device default so bursts after a stall do not drop samples
const pipelineBufferSize = 500

// openDevice creates the configured device without connecting it.
func openDevice(cfg *config.Config, useMock bool, logger *zap.SugaredLogger) device.Device {
	if useMock {
		logger.Info("Using mocked device")
		return device.NewMock(&cfg.Mock, cfg.ADC.VRef, logger)
	}
	return device.New(cfg.Serial.Port, cfg.Serial.BaudRate, device.DefaultBufferSize, logger)
}

// sourceName identifies the device in published payloads.
func sourceName(cfg *config.Config, useMock bool) string {
	if useMock {
		return "mock"
	}
	return cfg.Serial.Port
}

// startPipeline connects dev and chains the converters: the base converter always, the
// averaging converter when average_samples > 0. The returned channel closes after dev is
// closed and the chain has drained.
func startPipeline(dev device.Device, cfg *config.Config, logger *zap.SugaredLogger) (<-chan sample.Sample, error) {
	if err := dev.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	stream := sample.NewConverter(cfg, pipelineBufferSize, logger)(dev.Readings())
	if cfg.ADC.AverageSamples > 0 {
		stream = sample.NewAveragingConverter(cfg.ADC.AverageSamples, pipelineBufferSize)(stream)
	}
	return stream, nil
}

// tee copies every sample from in to n outputs. All outputs close when in closes.
func tee(in <-chan sample.Sample, n int) []<-chan sample.Sample {
	outs := make([]chan sample.Sample, n)
	result := make([]<-chan sample.Sample, n)
	for i := range outs {
		outs[i] = make(chan sample.Sample, pipelineBufferSize)
		result[i] = outs[i]
	}

	go func() {
		defer func() {
			for _, out := range outs {
				close(out)
			}
		}()
		for s := range in {
			for _, out := range outs {
				out <- s
			}
		}
	}()

	return result
}

// buildSinks creates the text sink on out plus the MQTT and Kafka sinks when configured.
func buildSinks(cfg *config.Config, source string, out io.Writer) ([]sink.Sink, error) {
	sinks := []sink.Sink{sink.NewText(out)}

	if cfg.MQTT.Broker != "" {
		m, err := sink.NewMQTT(cfg.MQTT, source)
		if err != nil {
			closeSinks(sinks, nil)
			return nil, err
		}
		sinks = append(sinks, m)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, sink.NewKafka(cfg.Kafka, source))
	}

	return sinks, nil
}

func closeSinks(sinks []sink.Sink, logger *zap.SugaredLogger) {
	for _, s := range sinks {
		if err := s.Close(); err != nil && logger != nil {
			logger.Warnw("Failed to close sink", "error", err)
		}
	}
}

// runMonitor streams samples from dev to the trace and the sinks, and serves the status
// API when configured, until ctx is done.
func runMonitor(ctx context.Context, cfg *config.Config, dev device.Device, source string, out io.Writer, logger *zap.SugaredLogger) error {
	sinks, err := buildSinks(cfg, source, out)
	if err != nil {
		return err
	}
	defer closeSinks(sinks, logger)

	stream, err := startPipeline(dev, cfg, logger)
	if err != nil {
		return err
	}
	logger.Infow("Connected", "source", source)

	tr := trace.New(cfg)
	branches := tee(stream, 2)

	// Publishing outlives ctx so the chain can drain after the device is closed
	pubCtx, cancelPub := context.WithCancel(context.Background())
	defer cancelPub()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tr.Process(branches[0])
	}()
	go func() {
		defer wg.Done()
		sink.Forward(pubCtx, branches[1], logger, sinks...)
	}()

	httpErr := make(chan error, 1)
	if cfg.HTTP.Addr != "" {
		go func() {
			httpErr <- status.New(tr, logger).ListenAndServe(ctx, cfg.HTTP.Addr)
		}()
	}

	select {
	case <-ctx.Done():
	case err = <-httpErr:
	}

	if cerr := dev.Close(); cerr != nil {
		logger.Warnw("Failed to close device", "error", cerr)
	}
	wg.Wait()
	logger.Infow("Disconnected", "source", source, "samples", tr.Stats().Count)

	return err
}
