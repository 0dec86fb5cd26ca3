// Package gpio provides digital output writing with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Level is the electrical level of an output line.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

// String returns "HIGH" or "LOW".
func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Writer drives digital output lines.
type Writer interface {
	// Write sets the electrical level of the given line offset.
	Write(pin int, level Level) error

	// Close releases GPIO resources.
	Close() error
}

// DefaultChip is the GPIO character device holding the relay lines.
const DefaultChip = "gpiochip0"
