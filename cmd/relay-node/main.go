// Command relay-node switches relay outputs on MQTT commands and publishes
// periodic temperature and humidity readings.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sweeney/relay-node/internal/config"
	"github.com/sweeney/relay-node/internal/connectivity"
	"github.com/sweeney/relay-node/internal/gpio"
	"github.com/sweeney/relay-node/internal/link"
	"github.com/sweeney/relay-node/internal/logging"
	"github.com/sweeney/relay-node/internal/mqtt"
	"github.com/sweeney/relay-node/internal/node"
	"github.com/sweeney/relay-node/internal/relay"
	"github.com/sweeney/relay-node/internal/sensor"
	"github.com/sweeney/relay-node/internal/status"
	"github.com/sweeney/relay-node/internal/telemetry"
	"github.com/sweeney/relay-node/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func runRoot(cmd *cobra.Command, cfgPath string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	return run(ctx, cfg, log)
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	channels := relayChannels(cfg.Relay.Channels)

	hw, err := openHardware(cfg, channels, log)
	if err != nil {
		return err
	}

	restarter := connectivity.NewExitRestarter(cfg.Restart.ExitCode, logging.Component(log, "restart"))
	d, err := assemble(cfg, channels, hw, restarter, time.Now, log)
	if err != nil {
		hw.writer.Close()
		return err
	}
	restarter.BeforeExit = d.safeState

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, d.tracker, d.registry)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http status server listening")
	}

	ticker := time.NewTicker(cfg.Loop.Interval)
	defer ticker.Stop()
	return d.run(ctx, ticker.C)
}

// hardware holds the device-facing collaborators.
type hardware struct {
	writer    gpio.Writer
	sensor    sensor.Reader
	link      link.Link
	transport mqtt.Transport
}

func openHardware(cfg *config.Config, channels []relay.Channel, log zerolog.Logger) (hardware, error) {
	// Lines are requested at their off level so nothing pulses on at boot.
	w, err := gpio.NewChipWriter(cfg.Relay.Chip, relay.OffLevels(channels))
	if err != nil {
		return hardware{}, fmt.Errorf("init gpio: %w", err)
	}
	return hardware{
		writer: w,
		sensor: sensor.NewIIOReader(cfg.Sensor.Device, logging.Component(log, "sensor")),
		link:   link.NewInterface(cfg.Link.Interface, logging.Component(log, "link")),
		transport: mqtt.NewPahoTransport(mqtt.Options{
			Broker:         cfg.MQTT.Broker,
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
			PublishTimeout: cfg.MQTT.PublishTimeout,
			KeepAlive:      cfg.MQTT.KeepAlive,
			InboundBuffer:  cfg.MQTT.InboundBuffer,
		}, logging.Component(log, "mqtt")),
	}, nil
}

// daemon is the assembled node plus what it needs for status and shutdown.
type daemon struct {
	node       *node.Node
	supervisor *connectivity.Supervisor
	bank       *relay.Bank
	hw         hardware
	tracker    *status.Tracker
	registry   *prometheus.Registry
	log        zerolog.Logger
}

func assemble(cfg *config.Config, channels []relay.Channel, hw hardware, restarter connectivity.Restarter, now func() time.Time, log zerolog.Logger) (*daemon, error) {
	start := now()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := status.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	tracker := status.NewTracker(start, statusConfig(cfg, channels), metrics)
	tracker.SetClock(now)

	bank, err := relay.NewBank(channels, hw.writer)
	if err != nil {
		return nil, fmt.Errorf("init relays: %w", err)
	}
	bank.SetRecorder(tracker)
	dispatcher := relay.NewDispatcher(bank, tracker, logging.Component(log, "relay"))

	sup := connectivity.New(connectivity.Config{
		LinkAttempts:         cfg.Link.Attempts,
		LinkPollInterval:     cfg.Link.PollInterval,
		SessionRetryInterval: cfg.MQTT.RetryInterval,
		ClientID:             cfg.MQTT.ClientID,
		CommandTopic:         cfg.MQTT.CommandTopic,
	}, hw.link, hw.transport, restarter, logging.Component(log, "connectivity"))
	sup.SetObserver(tracker)

	pub := telemetry.NewPublisher(hw.sensor, hw.transport, cfg.MQTT.TelemetryTopic, cfg.Telemetry.Interval, start, logging.Component(log, "telemetry"))
	pub.SetRecorder(tracker)

	n := node.New(node.Deps{
		Outputs:    bank,
		Supervisor: sup,
		Transport:  hw.transport,
		Handler:    dispatcher.HandleMessage,
		Publisher:  pub,
		Now:        now,
	}, logging.Component(log, "node"))

	return &daemon{
		node:       n,
		supervisor: sup,
		bank:       bank,
		hw:         hw,
		tracker:    tracker,
		registry:   registry,
		log:        log,
	}, nil
}

// run boots the node and loops until ctx is cancelled. Outputs are always
// left off on return.
func (d *daemon) run(ctx context.Context, pace <-chan time.Time) error {
	defer d.safeState()

	d.log.Info().Str("boot_id", d.tracker.BootID()).Msg("starting")
	if err := d.node.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	d.log.Info().Msg("started")

	err := d.node.Run(ctx, pace)
	d.log.Info().Msg("shutting down")
	return err
}

// safeState drives every output off, drops the broker session and releases
// the GPIO lines.
func (d *daemon) safeState() {
	if err := d.bank.AllOff(); err != nil {
		d.log.Error().Err(err).Msg("failed to switch outputs off")
	}
	d.hw.transport.Close()
	if err := d.hw.writer.Close(); err != nil {
		d.log.Error().Err(err).Msg("failed to release gpio")
	}
}

func relayChannels(cfg []config.ChannelConfig) []relay.Channel {
	out := make([]relay.Channel, 0, len(cfg))
	for _, c := range cfg {
		out = append(out, relay.Channel{ID: c.ID, Pin: c.Pin, Inverted: c.Inverted})
	}
	return out
}

func statusConfig(cfg *config.Config, channels []relay.Channel) status.Config {
	return status.Config{
		Broker:              cfg.MQTT.Broker,
		ClientID:            cfg.MQTT.ClientID,
		CommandTopic:        cfg.MQTT.CommandTopic,
		TelemetryTopic:      cfg.MQTT.TelemetryTopic,
		TelemetryIntervalMs: cfg.Telemetry.Interval.Milliseconds(),
		HTTPAddr:            cfg.HTTP.Addr,
		Channels:            channels,
	}
}
