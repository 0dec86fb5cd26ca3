// Package config loads relay-node configuration from defaults, an optional
// YAML or JSON file and RELAY_NODE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes environment overrides. "__" separates nesting levels:
// RELAY_NODE_MQTT__BROKER sets mqtt.broker.
const EnvPrefix = "RELAY_NODE_"

// Config is the full daemon configuration.
type Config struct {
	MQTT      MQTTConfig      `koanf:"mqtt"`
	Link      LinkConfig      `koanf:"link"`
	Relay     RelayConfig     `koanf:"relay"`
	Sensor    SensorConfig    `koanf:"sensor"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Loop      LoopConfig      `koanf:"loop"`
	HTTP      HTTPConfig      `koanf:"http"`
	Restart   RestartConfig   `koanf:"restart"`
	Log       LogConfig       `koanf:"log"`
}

// MQTTConfig configures the broker session.
type MQTTConfig struct {
	Broker         string        `koanf:"broker"`
	ClientID       string        `koanf:"client_id"`
	CommandTopic   string        `koanf:"command_topic"`
	TelemetryTopic string        `koanf:"telemetry_topic"`
	RetryInterval  time.Duration `koanf:"retry_interval"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	PublishTimeout time.Duration `koanf:"publish_timeout"`
	KeepAlive      time.Duration `koanf:"keep_alive"`
	InboundBuffer  int           `koanf:"inbound_buffer"`
}

// LinkConfig configures network link acquisition.
type LinkConfig struct {
	Interface    string        `koanf:"interface"`
	Attempts     int           `koanf:"attempts"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

// RelayConfig maps relay channels to GPIO lines.
type RelayConfig struct {
	Chip     string          `koanf:"chip"`
	Channels []ChannelConfig `koanf:"channels"`
}

// ChannelConfig is one relay channel.
type ChannelConfig struct {
	ID       int  `koanf:"id"`
	Pin      int  `koanf:"pin"`
	Inverted bool `koanf:"inverted"`
}

// SensorConfig locates the climate sensor.
type SensorConfig struct {
	Device string `koanf:"device"`
}

// TelemetryConfig paces telemetry.
type TelemetryConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// LoopConfig paces the main loop between iterations.
type LoopConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// HTTPConfig configures the status server. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// RestartConfig configures the restart-by-exit policy.
type RestartConfig struct {
	ExitCode int `koanf:"exit_code"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults are loaded before the file and environment.
var Defaults = map[string]any{
	"mqtt.broker":          "tcp://broker.hivemq.com:1883",
	"mqtt.client_id":       "ESP32_Client",
	"mqtt.command_topic":   "raspi/esp32/relay",
	"mqtt.telemetry_topic": "esp32/raspi/data",
	"mqtt.retry_interval":  "1s",
	"mqtt.connect_timeout": "10s",
	"mqtt.publish_timeout": "5s",
	"mqtt.keep_alive":      "15s",
	"mqtt.inbound_buffer":  64,
	"link.interface":       "wlan0",
	"link.attempts":        30,
	"link.poll_interval":   "200ms",
	"relay.chip":           "gpiochip0",
	"relay.channels": []map[string]any{
		{"id": 1, "pin": 25, "inverted": false},
		{"id": 2, "pin": 26, "inverted": true},
		{"id": 3, "pin": 33, "inverted": false},
		{"id": 4, "pin": 32, "inverted": false},
	},
	"sensor.device":      "/sys/bus/iio/devices/iio:device0",
	"telemetry.interval": "2s",
	"loop.interval":      "10ms",
	"http.addr":          ":8080",
	"restart.exit_code":  1,
	"log.level":          "info",
	"log.format":         "json",
}

// Load builds the configuration. path may be empty to skip the file.
func Load(path string) (*Config, error) {
	k, err := load(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Effective returns the merged configuration tree, for display.
func Effective(path string) (map[string]any, error) {
	k, err := load(path)
	if err != nil {
		return nil, err
	}
	return k.Raw(), nil
}

func load(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	for key, v := range Defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("default %s: %w", key, err)
		}
	}

	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	return k, nil
}

// Validate checks the configuration for values the node cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if c.MQTT.ClientID == "" {
		errs = append(errs, errors.New("mqtt.client_id is required"))
	}
	if c.MQTT.CommandTopic == "" || c.MQTT.TelemetryTopic == "" {
		errs = append(errs, errors.New("mqtt topics are required"))
	}
	if c.MQTT.InboundBuffer < 1 {
		errs = append(errs, errors.New("mqtt.inbound_buffer must be at least 1"))
	}
	if c.Link.Attempts < 1 {
		errs = append(errs, errors.New("link.attempts must be at least 1"))
	}
	for name, d := range map[string]time.Duration{
		"mqtt.retry_interval":  c.MQTT.RetryInterval,
		"mqtt.connect_timeout": c.MQTT.ConnectTimeout,
		"mqtt.publish_timeout": c.MQTT.PublishTimeout,
		"mqtt.keep_alive":      c.MQTT.KeepAlive,
		"link.poll_interval":   c.Link.PollInterval,
		"telemetry.interval":   c.Telemetry.Interval,
		"loop.interval":        c.Loop.Interval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	errs = append(errs, c.Relay.validate()...)
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func (r RelayConfig) validate() []error {
	var errs []error
	if r.Chip == "" {
		errs = append(errs, errors.New("relay.chip is required"))
	}
	if len(r.Channels) == 0 {
		errs = append(errs, errors.New("relay.channels is empty"))
	}
	ids := make(map[int]bool)
	pins := make(map[int]bool)
	for _, ch := range r.Channels {
		if ch.ID < 1 || ch.ID > 4 {
			errs = append(errs, fmt.Errorf("relay channel id %d out of range 1..4", ch.ID))
		}
		if ids[ch.ID] {
			errs = append(errs, fmt.Errorf("relay channel id %d repeated", ch.ID))
		}
		if pins[ch.Pin] {
			errs = append(errs, fmt.Errorf("relay pin %d used twice", ch.Pin))
		}
		if ch.Pin < 0 {
			errs = append(errs, fmt.Errorf("relay channel %d has negative pin", ch.ID))
		}
		ids[ch.ID] = true
		pins[ch.Pin] = true
	}
	return errs
}
