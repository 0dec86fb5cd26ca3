// Package telemetry publishes climate readings onto the broker session at a
// fixed, drifting interval.
package telemetry

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/relay-node/internal/logic"
	"github.com/sweeney/relay-node/internal/mqtt"
	"github.com/sweeney/relay-node/internal/sensor"
)

// DefaultInterval is the minimum time between emissions.
const DefaultInterval = 2000 * time.Millisecond

// Result classifies one firing of the publisher.
type Result string

const (
	ResultPublished     Result = "published"
	ResultSensorInvalid Result = "sensor_invalid"
	ResultPublishFailed Result = "publish_failed"
)

// Recorder is notified of every firing. Implementations must not block.
type Recorder interface {
	RecordTelemetry(result Result, reading logic.Reading)
}

// Publisher emits at most one reading per interval. Telemetry is best-effort:
// invalid readings and failed publishes are dropped, never retried early.
type Publisher struct {
	sensor    sensor.Reader
	transport mqtt.Transport
	topic     string
	timer     *logic.PublishTimer
	recorder  Recorder
	log       zerolog.Logger
}

// NewPublisher creates a Publisher whose first emission is due one interval
// after start.
func NewPublisher(s sensor.Reader, t mqtt.Transport, topic string, interval time.Duration, start time.Time, log zerolog.Logger) *Publisher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if topic == "" {
		topic = mqtt.DefaultTelemetryTopic
	}
	return &Publisher{
		sensor:    s,
		transport: t,
		topic:     topic,
		timer:     logic.NewPublishTimer(interval, start),
		log:       log,
	}
}

// SetRecorder registers a recorder. Optional.
func (p *Publisher) SetRecorder(r Recorder) {
	p.recorder = r
}

// Tick publishes a reading if the interval has elapsed since the last firing.
// The timer advances on every firing, including skipped and failed ones.
// Returns false if nothing was due.
func (p *Publisher) Tick(now time.Time) bool {
	if !p.timer.Due(now) {
		return false
	}

	reading := logic.Reading{
		Temperature: p.sensor.ReadTemperature(),
		Humidity:    p.sensor.ReadHumidity(),
	}
	p.record(p.emit(reading), reading)
	return true
}

func (p *Publisher) emit(reading logic.Reading) Result {
	if !reading.Valid() {
		p.log.Debug().Msg("sensor read failed, skipping publish")
		return ResultSensorInvalid
	}

	payload := logic.FormatReading(reading)
	if !p.transport.Publish(p.topic, []byte(payload)) {
		p.log.Warn().Str("payload", payload).Msg("telemetry publish failed")
		return ResultPublishFailed
	}
	p.log.Info().Str("payload", payload).Msg("published")
	return ResultPublished
}

func (p *Publisher) record(result Result, reading logic.Reading) {
	if p.recorder != nil {
		p.recorder.RecordTelemetry(result, reading)
	}
}
