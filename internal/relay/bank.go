// Package relay maps logical relay channels onto GPIO output lines and
// dispatches parsed commands to them.
package relay

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sweeney/relay-node/internal/gpio"
)

// ErrUnknownChannel is returned for channel ids not in the bank's table.
var ErrUnknownChannel = errors.New("unknown channel")

// Channel describes one relay output.
type Channel struct {
	ID  int
	Pin int
	// Inverted channels are driven LOW for on and HIGH for off.
	Inverted bool
}

// Level returns the electrical level that puts the channel in the logical
// state on.
func (c Channel) Level(on bool) gpio.Level {
	if on != c.Inverted {
		return gpio.High
	}
	return gpio.Low
}

// DefaultChannels is the reference wiring: four relays, channel 2 active-low.
var DefaultChannels = []Channel{
	{ID: 1, Pin: 25},
	{ID: 2, Pin: 26, Inverted: true},
	{ID: 3, Pin: 33},
	{ID: 4, Pin: 32},
}

// StateRecorder is notified after each successful channel write.
type StateRecorder interface {
	RecordRelay(channel int, on bool)
}

// Bank owns the immutable channel table and drives it through a gpio.Writer.
type Bank struct {
	channels map[int]Channel
	writer   gpio.Writer
	recorder StateRecorder
}

// NewBank validates the channel table and returns a Bank writing through w.
// Channel ids and pins must be unique.
func NewBank(channels []Channel, w gpio.Writer) (*Bank, error) {
	table := make(map[int]Channel, len(channels))
	pins := make(map[int]int, len(channels))
	for _, ch := range channels {
		if _, dup := table[ch.ID]; dup {
			return nil, fmt.Errorf("duplicate channel id %d", ch.ID)
		}
		if other, dup := pins[ch.Pin]; dup {
			return nil, fmt.Errorf("channels %d and %d share pin %d", other, ch.ID, ch.Pin)
		}
		table[ch.ID] = ch
		pins[ch.Pin] = ch.ID
	}
	return &Bank{channels: table, writer: w}, nil
}

// SetRecorder registers a recorder for successful writes. Optional.
func (b *Bank) SetRecorder(r StateRecorder) {
	b.recorder = r
}

// SetChannel drives channel id to the logical state on.
// Unknown ids return ErrUnknownChannel without touching any line.
func (b *Bank) SetChannel(id int, on bool) error {
	ch, ok := b.channels[id]
	if !ok {
		return fmt.Errorf("channel %d: %w", id, ErrUnknownChannel)
	}
	if err := b.writer.Write(ch.Pin, ch.Level(on)); err != nil {
		return fmt.Errorf("channel %d: %w", id, err)
	}
	if b.recorder != nil {
		b.recorder.RecordRelay(id, on)
	}
	return nil
}

// AllOff drives every channel to logical off, in channel id order.
// All channels are attempted; the first error is returned.
func (b *Bank) AllOff() error {
	var first error
	for _, ch := range b.Channels() {
		if err := b.SetChannel(ch.ID, false); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Channels returns the channel table sorted by id.
func (b *Bank) Channels() []Channel {
	out := make([]Channel, 0, len(b.channels))
	for _, ch := range b.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OffLevels returns the electrical level of each pin in the off state.
// Used to request output lines without glitching inverted relays on.
func OffLevels(channels []Channel) map[int]gpio.Level {
	levels := make(map[int]gpio.Level, len(channels))
	for _, ch := range channels {
		levels[ch.Pin] = ch.Level(false)
	}
	return levels
}
