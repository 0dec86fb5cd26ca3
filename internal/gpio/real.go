//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// outputLine is the part of *gpiocdev.Line a ChipWriter uses.
type outputLine interface {
	SetValue(value int) error
	Close() error
}

// ChipWriter drives output lines on a Linux GPIO character device.
type ChipWriter struct {
	chip  *gpiocdev.Chip
	lines map[int]outputLine
}

// NewChipWriter requests each pin in initial as an output, driven to its
// initial level from the moment it is requested.
func NewChipWriter(chipName string, initial map[int]Level) (*ChipWriter, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	w := &ChipWriter{chip: chip, lines: make(map[int]outputLine, len(initial))}
	for pin, level := range initial {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(int(level)))
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("request output pin %d: %w", pin, err)
		}
		w.lines[pin] = line
	}
	return w, nil
}

// Write sets the level of a previously requested pin.
func (w *ChipWriter) Write(pin int, level Level) error {
	line, ok := w.lines[pin]
	if !ok {
		return fmt.Errorf("pin %d not requested", pin)
	}
	if err := line.SetValue(int(level)); err != nil {
		return fmt.Errorf("write pin %d: %w", pin, err)
	}
	return nil
}

// Close releases all lines and the chip. Lines are released as outputs at
// their last written level, so an active-low relay left off stays off.
func (w *ChipWriter) Close() error {
	var errs []error

	for pin, line := range w.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	w.lines = nil
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		w.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
