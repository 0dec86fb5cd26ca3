package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker.hivemq.com:1883", cfg.MQTT.Broker)
	assert.Equal(t, "ESP32_Client", cfg.MQTT.ClientID)
	assert.Equal(t, "raspi/esp32/relay", cfg.MQTT.CommandTopic)
	assert.Equal(t, "esp32/raspi/data", cfg.MQTT.TelemetryTopic)
	assert.Equal(t, time.Second, cfg.MQTT.RetryInterval)
	assert.Equal(t, 30, cfg.Link.Attempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Link.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Telemetry.Interval)
	assert.Equal(t, 10*time.Millisecond, cfg.Loop.Interval)
	assert.Equal(t, "gpiochip0", cfg.Relay.Chip)
	assert.Equal(t, []ChannelConfig{
		{ID: 1, Pin: 25},
		{ID: 2, Pin: 26, Inverted: true},
		{ID: 3, Pin: 33},
		{ID: 4, Pin: 32},
	}, cfg.Relay.Channels)
	assert.Equal(t, 1, cfg.Restart.ExitCode)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := writeFile(t, "node.yaml", `
mqtt:
  broker: tcp://10.0.0.2:1883
  client_id: bench-node
link:
  attempts: 5
  poll_interval: 50ms
relay:
  channels:
    - id: 1
      pin: 17
    - id: 2
      pin: 27
      inverted: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://10.0.0.2:1883", cfg.MQTT.Broker)
	assert.Equal(t, "bench-node", cfg.MQTT.ClientID)
	assert.Equal(t, "raspi/esp32/relay", cfg.MQTT.CommandTopic, "unset keys keep defaults")
	assert.Equal(t, 5, cfg.Link.Attempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Link.PollInterval)
	assert.Equal(t, []ChannelConfig{{ID: 1, Pin: 17}, {ID: 2, Pin: 27, Inverted: true}}, cfg.Relay.Channels)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "node.json", `{"telemetry": {"interval": "5s"}, "http": {"addr": ""}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.Interval)
	assert.Empty(t, cfg.HTTP.Addr)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "node.yml", "mqtt:\n  client_id: from-file\n")
	t.Setenv("RELAY_NODE_MQTT__CLIENT_ID", "from-env")
	t.Setenv("RELAY_NODE_LINK__ATTEMPTS", "7")
	t.Setenv("RELAY_NODE_LOG__LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.MQTT.ClientID)
	assert.Equal(t, 7, cfg.Link.Attempts)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "node.toml", "x = 1"))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"empty broker", func(c *Config) { c.MQTT.Broker = "" }, "mqtt.broker"},
		{"empty client id", func(c *Config) { c.MQTT.ClientID = "" }, "mqtt.client_id"},
		{"empty topic", func(c *Config) { c.MQTT.TelemetryTopic = "" }, "topics"},
		{"zero attempts", func(c *Config) { c.Link.Attempts = 0 }, "link.attempts"},
		{"zero interval", func(c *Config) { c.Telemetry.Interval = 0 }, "telemetry.interval"},
		{"duplicate id", func(c *Config) { c.Relay.Channels[1].ID = 1 }, "repeated"},
		{"duplicate pin", func(c *Config) { c.Relay.Channels[1].Pin = 25 }, "used twice"},
		{"id out of range", func(c *Config) { c.Relay.Channels[3].ID = 5 }, "out of range"},
		{"no channels", func(c *Config) { c.Relay.Channels = nil }, "empty"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := *base
			c.Relay.Channels = append([]ChannelConfig(nil), base.Relay.Channels...)
			tc.mutate(&c)
			assert.ErrorContains(t, c.Validate(), tc.want)
		})
	}
}

func TestEffective(t *testing.T) {
	t.Setenv("RELAY_NODE_HTTP__ADDR", ":9090")
	tree, err := Effective("")
	require.NoError(t, err)

	httpSection, ok := tree["http"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ":9090", httpSection["addr"])
	assert.Contains(t, tree, "relay")
}
