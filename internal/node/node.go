// Package node sequences the relay node's components. It has no state of its
// own beyond the clock.
package node

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/relay-node/internal/mqtt"
)

// Supervisor keeps the broker session Ready.
type Supervisor interface {
	AcquireLink(ctx context.Context) error
	EnsureReady(ctx context.Context) error
}

// Outputs is the relay bank as seen at startup.
type Outputs interface {
	AllOff() error
}

// Ticker is the telemetry publisher.
type Ticker interface {
	Tick(now time.Time) bool
}

// Node owns the supervisor, transport and publisher and calls them in a
// fixed order on a single goroutine.
type Node struct {
	outputs    Outputs
	supervisor Supervisor
	transport  mqtt.Transport
	handler    mqtt.Handler
	publisher  Ticker
	now        func() time.Time
	log        zerolog.Logger
}

// Deps are the components a Node sequences.
type Deps struct {
	Outputs    Outputs
	Supervisor Supervisor
	Transport  mqtt.Transport
	// Handler receives inbound command messages during Pump.
	Handler   mqtt.Handler
	Publisher Ticker
	// Now defaults to time.Now.
	Now func() time.Time
}

// New creates a Node.
func New(d Deps, log zerolog.Logger) *Node {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Node{
		outputs:    d.Outputs,
		supervisor: d.Supervisor,
		transport:  d.Transport,
		handler:    d.Handler,
		publisher:  d.Publisher,
		now:        now,
		log:        log,
	}
}

// Start runs the boot sequence: outputs off, inbound handler installed, link
// acquired. A failed output write is logged; boot continues.
func (n *Node) Start(ctx context.Context) error {
	if err := n.outputs.AllOff(); err != nil {
		n.log.Error().Err(err).Msg("failed to switch outputs off at startup")
	}
	n.transport.SetHandler(n.handler)
	if err := n.supervisor.AcquireLink(ctx); err != nil {
		return fmt.Errorf("acquire link: %w", err)
	}
	return nil
}

// Iterate runs one loop iteration: ensure Ready (may block), pump the
// transport, tick the publisher. Steps 2 and 3 never run unless step 1
// succeeded.
func (n *Node) Iterate(ctx context.Context) error {
	if err := n.supervisor.EnsureReady(ctx); err != nil {
		return err
	}
	n.transport.Pump()
	n.publisher.Tick(n.now())
	return nil
}

// Run calls Iterate once per pace tick until ctx is done or Iterate fails.
// Returns nil on a clean shutdown.
func (n *Node) Run(ctx context.Context, pace <-chan time.Time) error {
	for {
		if err := n.Iterate(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-pace:
		}
	}
}
