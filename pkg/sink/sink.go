// Package sink forwards processed samples to external consumers.
package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/itohio/goadc/pkg/sample"
	"go.uber.org/zap"
)

// Sink receives samples. Publish may block until the sample is delivered or ctx is done.
type Sink interface {
	Publish(ctx context.Context, s sample.Sample) error
	Close() error
}

// Payload is the JSON document published for every sample.
type Payload struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Raw       uint16    `json:"raw"`
	Volts     float64   `json:"volts"`
}

// Encode marshals s as a Payload.
func Encode(source string, s sample.Sample) ([]byte, error) {
	return json.Marshal(Payload{
		Source:    source,
		Timestamp: s.Timestamp.UTC(),
		Raw:       uint16(s.Raw),
		Volts:     s.Volts,
	})
}

// Forward publishes every sample from in to all sinks. Publish errors are logged and the
// sample is skipped for that sink. Returns when in is closed or ctx is done.
func Forward(ctx context.Context, in <-chan sample.Sample, logger *zap.SugaredLogger, sinks ...Sink) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-in:
			if !ok {
				return
			}
			for _, snk := range sinks {
				if err := snk.Publish(ctx, s); err != nil {
					logger.Warnw("Failed to publish sample", "raw", s.Raw, "error", err)
				}
			}
		}
	}
}
