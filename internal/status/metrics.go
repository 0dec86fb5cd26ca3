package status

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/relay-node/internal/logic"
	"github.com/sweeney/relay-node/internal/relay"
	"github.com/sweeney/relay-node/internal/telemetry"
)

// Metrics exports node state to Prometheus. A nil *Metrics is a no-op.
type Metrics struct {
	connectivity    prometheus.Gauge
	sessionAttempts *prometheus.CounterVec
	commands        *prometheus.CounterVec
	publishes       *prometheus.CounterVec
	relays          *prometheus.GaugeVec
	temperature     prometheus.Gauge
	humidity        prometheus.Gauge
}

// NewMetrics registers the node's collectors on reg. If reg is nil, the
// default registerer is used. Collectors already registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		connectivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_node_connectivity_state",
			Help: "Connectivity state: 0 link down, 1 link up session down, 2 ready",
		}),
		sessionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_node_session_attempts_total",
			Help: "Broker connect+subscribe attempts",
		}, []string{"ok"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_node_commands_total",
			Help: "Inbound relay commands by outcome",
		}, []string{"result"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_node_publishes_total",
			Help: "Telemetry firings by result",
		}, []string{"result"}),
		relays: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "relay_node_relay_on",
			Help: "Last commanded logical relay state (1 on, 0 off)",
		}, []string{"channel"}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_node_temperature_celsius",
			Help: "Last valid temperature reading",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_node_humidity_percent",
			Help: "Last valid relative humidity reading",
		}),
	}

	var err error
	if m.connectivity, err = register(reg, m.connectivity); err != nil {
		return nil, err
	}
	if m.sessionAttempts, err = register(reg, m.sessionAttempts); err != nil {
		return nil, err
	}
	if m.commands, err = register(reg, m.commands); err != nil {
		return nil, err
	}
	if m.publishes, err = register(reg, m.publishes); err != nil {
		return nil, err
	}
	if m.relays, err = register(reg, m.relays); err != nil {
		return nil, err
	}
	if m.temperature, err = register(reg, m.temperature); err != nil {
		return nil, err
	}
	if m.humidity, err = register(reg, m.humidity); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) setConnectivity(s logic.ConnectivityState) {
	if m == nil {
		return
	}
	m.connectivity.Set(float64(s))
}

func (m *Metrics) sessionAttempt(ok bool) {
	if m == nil {
		return
	}
	m.sessionAttempts.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (m *Metrics) command(o relay.Outcome) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) setRelay(channel int, on bool) {
	if m == nil {
		return
	}
	v := 0.0
	if on {
		v = 1
	}
	m.relays.WithLabelValues(strconv.Itoa(channel)).Set(v)
}

func (m *Metrics) telemetry(r telemetry.Result, reading logic.Reading) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(string(r)).Inc()
	if reading.Valid() {
		m.temperature.Set(reading.Temperature)
		m.humidity.Set(reading.Humidity)
	}
}
