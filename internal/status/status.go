// Package status provides a thread-safe status tracker for the relay-node
// daemon. The main loop writes through the recorder methods; HTTP handlers
// read snapshots.
package status

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/relay-node/internal/link"
	"github.com/sweeney/relay-node/internal/logic"
	"github.com/sweeney/relay-node/internal/relay"
	"github.com/sweeney/relay-node/internal/telemetry"
)

// Config contains daemon configuration for display.
type Config struct {
	Broker              string
	ClientID            string
	CommandTopic        string
	TelemetryTopic      string
	TelemetryIntervalMs int64
	HTTPAddr            string
	Channels            []relay.Channel
}

// Counts tracks command and telemetry outcomes since startup.
type Counts struct {
	CommandsApplied   int
	CommandsMalformed int
	CommandsUnknown   int
	CommandsFailed    int
	Published         int
	SensorInvalid     int
	PublishFailed     int
	SessionAttempts   int
	SessionFailures   int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	BootID        string
	StartTime     time.Time
	Now           time.Time
	Connectivity  logic.ConnectivityState
	Link          link.Info
	Relays        map[int]bool // last commanded logical state, by channel id
	LastReading   *logic.Reading
	LastReadingAt time.Time
	Counts        Counts
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether the broker session is usable.
func (s Snapshot) Ready() bool {
	return s.Connectivity == logic.Ready
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu      sync.RWMutex
	snap    Snapshot
	metrics *Metrics
	now     func() time.Time
}

// NewTracker creates a Tracker with a fresh boot id. metrics may be nil.
func NewTracker(startTime time.Time, cfg Config, metrics *Metrics) *Tracker {
	return &Tracker{
		snap: Snapshot{
			BootID:    uuid.NewString(),
			StartTime: startTime,
			Relays:    make(map[int]bool),
			Config:    cfg,
		},
		metrics: metrics,
		now:     time.Now,
	}
}

// BootID identifies this process run. It changes on every restart.
func (t *Tracker) BootID() string {
	return t.snap.BootID
}

// SetClock replaces the clock used for reading timestamps and snapshots.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// RecordConnectivity implements connectivity.Observer.
func (t *Tracker) RecordConnectivity(state logic.ConnectivityState) {
	t.mu.Lock()
	t.snap.Connectivity = state
	t.mu.Unlock()
	t.metrics.setConnectivity(state)
}

// RecordSessionAttempt implements connectivity.Observer.
func (t *Tracker) RecordSessionAttempt(ok bool) {
	t.mu.Lock()
	t.snap.Counts.SessionAttempts++
	if !ok {
		t.snap.Counts.SessionFailures++
	}
	t.mu.Unlock()
	t.metrics.sessionAttempt(ok)
}

// RecordLink implements connectivity.Observer.
func (t *Tracker) RecordLink(info link.Info) {
	t.mu.Lock()
	t.snap.Link = info
	t.mu.Unlock()
}

// RecordRelay implements relay.StateRecorder.
func (t *Tracker) RecordRelay(channel int, on bool) {
	t.mu.Lock()
	t.snap.Relays[channel] = on
	t.mu.Unlock()
	t.metrics.setRelay(channel, on)
}

// RecordCommand implements relay.OutcomeRecorder.
func (t *Tracker) RecordCommand(o relay.Outcome) {
	t.mu.Lock()
	switch o {
	case relay.OutcomeApplied:
		t.snap.Counts.CommandsApplied++
	case relay.OutcomeMalformed:
		t.snap.Counts.CommandsMalformed++
	case relay.OutcomeUnknownChannel:
		t.snap.Counts.CommandsUnknown++
	case relay.OutcomeWriteFailed:
		t.snap.Counts.CommandsFailed++
	}
	t.mu.Unlock()
	t.metrics.command(o)
}

// RecordTelemetry implements telemetry.Recorder.
func (t *Tracker) RecordTelemetry(result telemetry.Result, reading logic.Reading) {
	t.mu.Lock()
	switch result {
	case telemetry.ResultPublished:
		t.snap.Counts.Published++
	case telemetry.ResultSensorInvalid:
		t.snap.Counts.SensorInvalid++
	case telemetry.ResultPublishFailed:
		t.snap.Counts.PublishFailed++
	}
	if reading.Valid() {
		r := reading
		t.snap.LastReading = &r
		t.snap.LastReadingAt = t.now()
	}
	t.mu.Unlock()
	t.metrics.telemetry(result, reading)
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Relays = make(map[int]bool, len(t.snap.Relays))
	for id, on := range t.snap.Relays {
		s.Relays[id] = on
	}
	if t.snap.LastReading != nil {
		r := *t.snap.LastReading
		s.LastReading = &r
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
