package gpio

// FakeWriter is a test double that records every write.
type FakeWriter struct {
	// Writes contains every successful write in call order.
	Writes []PinWrite

	// Levels holds the last level written to each pin.
	Levels map[int]Level

	// WriteError, if set, will be returned by Write().
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// PinWrite is one recorded call to Write.
type PinWrite struct {
	Pin   int
	Level Level
}

// NewFakeWriter creates a FakeWriter with every pin in initial preset.
// Presets are not recorded as writes.
func NewFakeWriter(initial map[int]Level) *FakeWriter {
	levels := make(map[int]Level, len(initial))
	for pin, level := range initial {
		levels[pin] = level
	}
	return &FakeWriter{Levels: levels}
}

// Write records the level for pin.
func (f *FakeWriter) Write(pin int, level Level) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	if f.Levels == nil {
		f.Levels = make(map[int]Level)
	}
	f.Writes = append(f.Writes, PinWrite{Pin: pin, Level: level})
	f.Levels[pin] = level
	return nil
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes but keeps current levels.
func (f *FakeWriter) Reset() {
	f.Writes = nil
	f.Closed = false
	f.WriteError = nil
}
