//go:build !linux

package gpio

import "errors"

// ChipWriter is not available on non-Linux platforms.
type ChipWriter struct{}

// NewChipWriter returns an error on non-Linux platforms.
func NewChipWriter(chipName string, initial map[int]Level) (*ChipWriter, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Write is not implemented on non-Linux platforms.
func (w *ChipWriter) Write(pin int, level Level) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (w *ChipWriter) Close() error {
	return nil
}
