package logic

import (
	"math"
	"strconv"
	"time"
)

// Reading is one temperature/humidity sample.
type Reading struct {
	Temperature float64 // degrees Celsius
	Humidity    float64 // percent relative humidity
}

// Valid reports whether both values are real numbers.
func (r Reading) Valid() bool {
	return !math.IsNaN(r.Temperature) && !math.IsNaN(r.Humidity)
}

// FormatReading renders a reading as "<temperature>,<humidity>" with one
// fractional digit each, e.g. "23.5,61.2".
func FormatReading(r Reading) string {
	return strconv.FormatFloat(roundTenth(r.Temperature), 'f', 1, 64) + "," +
		strconv.FormatFloat(roundTenth(r.Humidity), 'f', 1, 64)
}

// roundTenth rounds half away from zero at one decimal place.
// FormatFloat alone rounds the binary value, so 0.25 style ties would drift.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// PublishTimer decides when the next telemetry emission is due.
// The period drifts: it is measured from the last firing, not aligned to a
// fixed schedule.
type PublishTimer struct {
	interval time.Duration
	last     time.Time
}

// NewPublishTimer creates a timer whose first firing is one interval after start.
func NewPublishTimer(interval time.Duration, start time.Time) *PublishTimer {
	return &PublishTimer{interval: interval, last: start}
}

// Due reports whether interval has elapsed since the last firing. When it
// returns true the timer is advanced to now.
func (p *PublishTimer) Due(now time.Time) bool {
	if now.Sub(p.last) < p.interval {
		return false
	}
	p.last = now
	return true
}

// Last returns the time of the last firing (or the start time).
func (p *PublishTimer) Last() time.Time {
	return p.last
}
