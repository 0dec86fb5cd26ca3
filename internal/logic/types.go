// Package logic contains pure relay-node logic: command parsing, connectivity
// states and telemetry pacing/formatting.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

// ConnectivityState is the state of the link + broker session stack.
type ConnectivityState int

const (
	// LinkDown means the network link has not been acquired since boot.
	LinkDown ConnectivityState = iota
	// LinkUpSessionDown means the link is up but there is no broker session.
	LinkUpSessionDown
	// Ready means the broker session is connected and subscribed.
	Ready
)

// String returns the state name used in logs, status JSON and metrics.
func (s ConnectivityState) String() string {
	switch s {
	case LinkDown:
		return "LINK_DOWN"
	case LinkUpSessionDown:
		return "LINK_UP_SESSION_DOWN"
	case Ready:
		return "READY"
	}
	return "UNKNOWN"
}
