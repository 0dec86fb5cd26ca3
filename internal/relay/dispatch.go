package relay

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/sweeney/relay-node/internal/logic"
)

// Outcome classifies what happened to one inbound command line.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeMalformed      Outcome = "malformed"
	OutcomeUnknownChannel Outcome = "unknown_channel"
	OutcomeWriteFailed    Outcome = "write_failed"
)

// OutcomeRecorder is notified of every dispatched command line.
type OutcomeRecorder interface {
	RecordCommand(outcome Outcome)
}

// Setter is the part of Bank the dispatcher needs.
type Setter interface {
	SetChannel(id int, on bool) error
}

// Dispatcher parses inbound command payloads and applies them.
// There is no reverse channel: every failure is logged and dropped.
type Dispatcher struct {
	bank     Setter
	recorder OutcomeRecorder
	log      zerolog.Logger
}

// NewDispatcher creates a Dispatcher applying commands to bank.
// recorder may be nil.
func NewDispatcher(bank Setter, recorder OutcomeRecorder, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{bank: bank, recorder: recorder, log: log}
}

// HandleMessage has the signature of an mqtt.Handler.
func (d *Dispatcher) HandleMessage(topic string, payload []byte) {
	d.record(d.Dispatch(string(payload)))
}

// Dispatch parses and applies one command line.
func (d *Dispatcher) Dispatch(line string) Outcome {
	d.log.Info().Str("cmd", line).Msg("command received")

	cmd, ok := logic.ParseCommand(line)
	if !ok {
		d.log.Debug().Str("cmd", line).Msg("ignoring command without separator")
		return OutcomeMalformed
	}

	if err := d.bank.SetChannel(cmd.Channel, cmd.On); err != nil {
		if errors.Is(err, ErrUnknownChannel) {
			d.log.Debug().Int("channel", cmd.Channel).Msg("ignoring command for unknown channel")
			return OutcomeUnknownChannel
		}
		d.log.Error().Err(err).Int("channel", cmd.Channel).Msg("relay write failed")
		return OutcomeWriteFailed
	}

	d.log.Info().Int("channel", cmd.Channel).Bool("on", cmd.On).Msg("relay switched")
	return OutcomeApplied
}

func (d *Dispatcher) record(o Outcome) {
	if d.recorder != nil {
		d.recorder.RecordCommand(o)
	}
}
