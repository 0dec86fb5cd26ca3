// Package mqtt provides the broker session transport with abstraction for
// testing.
package mqtt

// Default topics shared with the controller that sends relay commands and
// consumes readings.
const (
	// DefaultCommandTopic carries "<channel>:<state>" relay commands.
	DefaultCommandTopic = "raspi/esp32/relay"

	// DefaultTelemetryTopic carries "<temperature>,<humidity>" readings.
	DefaultTelemetryTopic = "esp32/raspi/data"

	// DefaultClientID is presented once at connect time.
	DefaultClientID = "ESP32_Client"

	// DefaultBroker is the public broker the reference controller uses.
	DefaultBroker = "tcp://broker.hivemq.com:1883"
)

// Handler receives inbound messages. It is only ever called from Pump.
type Handler func(topic string, payload []byte)

// Transport is a broker session. All methods except the internal delivery
// path are called from a single goroutine.
type Transport interface {
	// Connect opens a session with the given client identifier.
	Connect(clientID string) bool

	// Subscribe subscribes to topic at QoS 0. Subscribing twice is harmless.
	Subscribe(topic string) bool

	// Publish sends payload at QoS 0, not retained. Failures are not retried.
	Publish(topic string, payload []byte) bool

	// IsConnected reports whether the session is currently open.
	IsConnected() bool

	// SetHandler sets the receiver for inbound messages.
	SetHandler(h Handler)

	// Pump delivers queued inbound messages to the handler without blocking.
	Pump()

	// Close disconnects from the broker.
	Close()
}
