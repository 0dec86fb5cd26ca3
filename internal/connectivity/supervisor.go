// Package connectivity keeps the network link and broker session up.
//
// The supervisor is a blocking state machine driven from the main loop:
//
//	LinkDown ──link acquired──▶ LinkUpSessionDown ──connect+subscribe──▶ Ready
//	                                   ▲                                   │
//	                                   └─────────session lost──────────────┘
//
// LinkDown is only left once per process. If the link cannot be acquired
// within the attempt bound the Restarter is invoked and the process starts
// over from boot.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/relay-node/internal/link"
	"github.com/sweeney/relay-node/internal/logic"
	"github.com/sweeney/relay-node/internal/mqtt"
)

// ErrLinkExhausted is returned after the link attempt bound was reached and
// the Restarter was invoked.
var ErrLinkExhausted = errors.New("link acquisition exhausted")

// Defaults for Config.
const (
	DefaultLinkAttempts         = 30
	DefaultLinkPollInterval     = 200 * time.Millisecond
	DefaultSessionRetryInterval = 1000 * time.Millisecond
)

// Config holds the supervisor's fixed policy.
type Config struct {
	// LinkAttempts bounds link polls before a restart.
	LinkAttempts int
	// LinkPollInterval is the wait between link polls.
	LinkPollInterval time.Duration
	// SessionRetryInterval is the wait between broker session attempts.
	SessionRetryInterval time.Duration
	// ClientID identifies the node to the broker.
	ClientID string
	// CommandTopic is (re)subscribed whenever Ready is entered.
	CommandTopic string
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.LinkAttempts <= 0 {
		c.LinkAttempts = DefaultLinkAttempts
	}
	if c.LinkPollInterval <= 0 {
		c.LinkPollInterval = DefaultLinkPollInterval
	}
	if c.SessionRetryInterval <= 0 {
		c.SessionRetryInterval = DefaultSessionRetryInterval
	}
	if c.ClientID == "" {
		c.ClientID = mqtt.DefaultClientID
	}
	if c.CommandTopic == "" {
		c.CommandTopic = mqtt.DefaultCommandTopic
	}
}

// Observer is told about state changes. Implementations must not block.
type Observer interface {
	RecordConnectivity(state logic.ConnectivityState)
	RecordSessionAttempt(ok bool)
	RecordLink(info link.Info)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Supervisor owns the process-wide ConnectivityState.
type Supervisor struct {
	cfg       Config
	link      link.Link
	transport mqtt.Transport
	restarter Restarter
	sleep     Sleeper
	observer  Observer
	log       zerolog.Logger

	state logic.ConnectivityState
}

// New creates a Supervisor in LinkDown.
func New(cfg Config, l link.Link, t mqtt.Transport, r Restarter, log zerolog.Logger) *Supervisor {
	cfg.SetDefaults()
	return &Supervisor{
		cfg:       cfg,
		link:      l,
		transport: t,
		restarter: r,
		sleep:     Sleep,
		log:       log,
		state:     logic.LinkDown,
	}
}

// SetSleeper replaces the wait function. Tests use it to run without delays.
func (s *Supervisor) SetSleeper(fn Sleeper) {
	s.sleep = fn
}

// SetObserver registers an observer. Optional.
func (s *Supervisor) SetObserver(o Observer) {
	s.observer = o
	o.RecordConnectivity(s.state)
}

// State returns the current connectivity state.
func (s *Supervisor) State() logic.ConnectivityState {
	return s.state
}

// EnsureReady blocks until the session is Ready.
//
// From LinkDown it first acquires the link. From Ready it only checks that
// the session is still connected. Otherwise it retries connect+subscribe
// every SessionRetryInterval until both succeed. The only errors are
// ErrLinkExhausted and ctx's error on shutdown.
func (s *Supervisor) EnsureReady(ctx context.Context) error {
	if s.state == logic.LinkDown {
		if err := s.AcquireLink(ctx); err != nil {
			return err
		}
	}

	if s.state == logic.Ready {
		if s.transport.IsConnected() {
			return nil
		}
		s.log.Warn().Msg("broker session lost")
		s.setState(logic.LinkUpSessionDown)
	}

	return s.acquireSession(ctx)
}

// AcquireLink starts association and polls the link up to LinkAttempts
// times. On exhaustion the Restarter is invoked once and ErrLinkExhausted is
// returned; no session attempt is made.
func (s *Supervisor) AcquireLink(ctx context.Context) error {
	if s.state != logic.LinkDown {
		return nil
	}

	s.link.Begin()
	tries := 0
	for !s.link.IsUp() {
		if tries >= s.cfg.LinkAttempts {
			s.log.Error().Int("attempts", tries).Msg("network link failed, restarting")
			s.restarter.Restart(fmt.Sprintf("network link not up after %d attempts", tries))
			return ErrLinkExhausted
		}
		if err := s.sleep(ctx, s.cfg.LinkPollInterval); err != nil {
			return err
		}
		tries++
	}

	info := s.link.Info()
	s.log.Info().Str("interface", info.Interface).Str("ip", info.IP).Msg("network link up")
	if s.observer != nil {
		s.observer.RecordLink(info)
	}
	s.setState(logic.LinkUpSessionDown)
	return nil
}

func (s *Supervisor) acquireSession(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		ok := s.transport.Connect(s.cfg.ClientID) && s.transport.Subscribe(s.cfg.CommandTopic)
		if s.observer != nil {
			s.observer.RecordSessionAttempt(ok)
		}
		if ok {
			s.log.Info().Str("topic", s.cfg.CommandTopic).Int("attempt", attempt).Msg("broker connected and subscribed")
			s.setState(logic.Ready)
			return nil
		}

		s.log.Debug().Int("attempt", attempt).Dur("retry_in", s.cfg.SessionRetryInterval).Msg("broker session attempt failed")
		if err := s.sleep(ctx, s.cfg.SessionRetryInterval); err != nil {
			return err
		}
	}
}

func (s *Supervisor) setState(state logic.ConnectivityState) {
	if s.state == state {
		return
	}
	s.log.Debug().Stringer("from", s.state).Stringer("to", state).Msg("connectivity state")
	s.state = state
	if s.observer != nil {
		s.observer.RecordConnectivity(state)
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
