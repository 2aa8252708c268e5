package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the host application configuration.
type Config struct {
	Serial SerialConfig `yaml:"serial"`
	ADC    ADCConfig    `yaml:"adc"`
	Mock   MockConfig   `yaml:"mock"`
	View   ViewConfig   `yaml:"view"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	HTTP   HTTPConfig   `yaml:"http"`
	Log    LogConfig    `yaml:"log"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ADCConfig describes the converter on the board.
type ADCConfig struct {
	VRef           float64 `yaml:"vref"`            // Reference voltage (V)
	AverageSamples int     `yaml:"average_samples"` // Moving average window (0 = disabled, default)
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	Offset           float64       `yaml:"offset"`            // DC level (V)
	Amplitude        float64       `yaml:"amplitude"`         // Sine amplitude (V)
	NoiseLevel       float64       `yaml:"noise_level"`       // Noise level (V)
	Period           time.Duration `yaml:"period"`            // Sine period
	Interval         time.Duration `yaml:"interval"`          // Report interval
	ConversionPeriod time.Duration `yaml:"conversion_period"` // Continuous conversion period
}

// ViewConfig contains trace and scope parameters.
type ViewConfig struct {
	WindowSeconds float64 `yaml:"window_seconds"`
	MaxPoints     int     `yaml:"max_points"`
}

// MQTTConfig configures the MQTT sink. An empty broker disables it.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

// KafkaConfig configures the Kafka sink. No brokers disables it.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// HTTPConfig configures the status API. An empty address disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0", // "COM3" on Windows
			BaudRate: 115200,
		},
		ADC: ADCConfig{
			VRef:           3.3,
			AverageSamples: 0,
		},
		Mock: MockConfig{
			Offset:           1.65,
			Amplitude:        1.0,
			NoiseLevel:       0.005,
			Period:           10 * time.Second,
			Interval:         time.Second,
			ConversionPeriod: time.Millisecond,
		},
		View: ViewConfig{
			WindowSeconds: 60,
			MaxPoints:     1000,
		},
		MQTT: MQTTConfig{
			Topic:    "adc/readings",
			ClientID: "adcmon",
		},
		Kafka: KafkaConfig{
			Topic: "adc.readings",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.ADC.VRef == 0 {
		c.ADC.VRef = def.ADC.VRef
	}
	if c.ADC.AverageSamples < 0 {
		c.ADC.AverageSamples = 0
	}

	if c.Mock.Interval == 0 {
		c.Mock.Interval = def.Mock.Interval
	}
	if c.Mock.ConversionPeriod == 0 {
		c.Mock.ConversionPeriod = def.Mock.ConversionPeriod
	}

	if c.View.WindowSeconds == 0 {
		c.View.WindowSeconds = def.View.WindowSeconds
	}
	if c.View.MaxPoints == 0 {
		c.View.MaxPoints = def.View.MaxPoints
	}

	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = def.Kafka.Topic
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Window returns the trace window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.View.WindowSeconds * float64(time.Second))
}
