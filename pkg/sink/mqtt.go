package sink

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/itohio/goadc/pkg/config"
	"github.com/itohio/goadc/pkg/sample"
)

const connectTimeout = 10 * time.Second

// mqttPublisher is the part of mqtt.Client used by the sink.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes samples as JSON to a broker topic.
type MQTT struct {
	client mqttPublisher
	topic  string
	qos    byte
	source string
}

// NewMQTT connects to the configured broker.
func NewMQTT(cfg config.MQTTConfig, source string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	return newMQTT(client, cfg, source), nil
}

func newMQTT(client mqttPublisher, cfg config.MQTTConfig, source string) *MQTT {
	return &MQTT{
		client: client,
		topic:  cfg.Topic,
		qos:    cfg.QoS,
		source: source,
	}
}

// Publish sends s and waits for the broker acknowledgement according to QoS.
func (m *MQTT) Publish(ctx context.Context, s sample.Sample) error {
	payload, err := Encode(m.source, s)
	if err != nil {
		return fmt.Errorf("failed to encode sample: %w", err)
	}

	token := m.client.Publish(m.topic, m.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", m.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
