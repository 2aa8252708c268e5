package sink

import (
	"context"
	"fmt"

	"github.com/itohio/goadc/pkg/config"
	"github.com/itohio/goadc/pkg/sample"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafka.Writer used by the sink.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes samples as JSON messages keyed by source.
type Kafka struct {
	w      messageWriter
	source string
}

// NewKafka creates a writer for the configured brokers and topic. Connections are made
// lazily on the first write.
func NewKafka(cfg config.KafkaConfig, source string) *Kafka {
	return &Kafka{
		w: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
		},
		source: source,
	}
}

// Publish writes s as a single message.
func (k *Kafka) Publish(ctx context.Context, s sample.Sample) error {
	payload, err := Encode(k.source, s)
	if err != nil {
		return fmt.Errorf("failed to encode sample: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(k.source),
		Value: payload,
		Time:  s.Timestamp,
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (k *Kafka) Close() error {
	return k.w.Close()
}
