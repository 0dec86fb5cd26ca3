package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// Options configures a PahoTransport.
type Options struct {
	Broker         string
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	KeepAlive      time.Duration
	// InboundBuffer bounds messages held between pumps.
	InboundBuffer int
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.Broker == "" {
		o.Broker = DefaultBroker
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 5 * time.Second
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = 15 * time.Second
	}
	if o.InboundBuffer <= 0 {
		o.InboundBuffer = 64
	}
}

// PahoTransport is a Transport on an actual MQTT broker.
//
// paho's automatic reconnect is disabled: re-establishing the session is the
// connectivity supervisor's job. Messages arrive on paho's goroutines and are
// queued until Pump hands them to the handler on the caller's goroutine.
type PahoTransport struct {
	opts Options
	log  zerolog.Logger

	client   paho.Client
	clientID string
	handler  Handler

	mu    sync.Mutex
	inbox *ringBuffer

	newClient func(*paho.ClientOptions) paho.Client
}

// NewPahoTransport creates a transport for opts.Broker. No connection is
// attempted until Connect.
func NewPahoTransport(opts Options, log zerolog.Logger) *PahoTransport {
	opts.SetDefaults()
	return &PahoTransport{
		opts:      opts,
		log:       log,
		inbox:     newRingBuffer(opts.InboundBuffer),
		newClient: paho.NewClient,
	}
}

// Connect opens a clean session. A previous client is discarded.
func (p *PahoTransport) Connect(clientID string) bool {
	if p.client != nil {
		p.client.Disconnect(0)
	}

	o := paho.NewClientOptions().
		AddBroker(p.opts.Broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(p.opts.ConnectTimeout).
		SetKeepAlive(p.opts.KeepAlive).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn().Err(err).Msg("broker connection lost")
		})

	p.client = p.newClient(o)
	p.clientID = clientID

	token := p.client.Connect()
	if !token.WaitTimeout(p.opts.ConnectTimeout) {
		p.log.Warn().Str("broker", p.opts.Broker).Msg("connect timeout")
		return false
	}
	if err := token.Error(); err != nil {
		p.log.Warn().Err(err).Str("broker", p.opts.Broker).Msg("connect failed")
		return false
	}
	return true
}

// Subscribe subscribes to topic at QoS 0.
func (p *PahoTransport) Subscribe(topic string) bool {
	if p.client == nil {
		return false
	}
	token := p.client.Subscribe(topic, 0, p.enqueue)
	if !token.WaitTimeout(p.opts.PublishTimeout) {
		p.log.Warn().Str("topic", topic).Msg("subscribe timeout")
		return false
	}
	if err := token.Error(); err != nil {
		p.log.Warn().Err(err).Str("topic", topic).Msg("subscribe failed")
		return false
	}
	return true
}

// Publish sends payload at QoS 0 (at-most-once), not retained.
func (p *PahoTransport) Publish(topic string, payload []byte) bool {
	if !p.IsConnected() {
		return false
	}
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(p.opts.PublishTimeout) {
		p.log.Warn().Str("topic", topic).Msg("publish timeout")
		return false
	}
	if err := token.Error(); err != nil {
		p.log.Warn().Err(err).Str("topic", topic).Msg("publish failed")
		return false
	}
	return true
}

// IsConnected reports whether the network connection to the broker is open.
func (p *PahoTransport) IsConnected() bool {
	return p.client != nil && p.client.IsConnectionOpen()
}

// SetHandler sets the receiver for inbound messages.
func (p *PahoTransport) SetHandler(h Handler) {
	p.handler = h
}

// Pump delivers every queued message to the handler in arrival order.
func (p *PahoTransport) Pump() {
	p.mu.Lock()
	msgs := p.inbox.drainAll()
	p.mu.Unlock()

	if p.handler == nil {
		return
	}
	for _, m := range msgs {
		p.handler(m.topic, m.payload)
	}
}

// Close disconnects from the broker.
func (p *PahoTransport) Close() {
	if p.client != nil {
		p.client.Disconnect(250)
	}
}

// enqueue runs on paho's goroutine.
func (p *PahoTransport) enqueue(_ paho.Client, m paho.Message) {
	p.mu.Lock()
	first := p.inbox.push(inboundMsg{topic: m.Topic(), payload: m.Payload()})
	p.mu.Unlock()
	if first {
		p.log.Warn().Int("capacity", p.inbox.capacity).Msg("inbound buffer full, dropping oldest")
	}
}
