package status

import (
	"encoding/json"
	"sort"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	BootID        string       `json:"boot_id"`
	Connectivity  string       `json:"connectivity"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Link          LinkJSON     `json:"link"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Relays        []RelayJSON  `json:"relays"`
	Reading       *ReadingJSON `json:"reading,omitempty"`
	Counts        CountsJSON   `json:"counts"`
	Config        ConfigJSON   `json:"config"`
}

// LinkJSON reports the network link.
type LinkJSON struct {
	Interface string `json:"interface"`
	IP        string `json:"ip,omitempty"`
	Up        bool   `json:"up"`
}

// MQTTStatus reports the broker session.
type MQTTStatus struct {
	Broker         string `json:"broker"`
	ClientID       string `json:"client_id"`
	CommandTopic   string `json:"command_topic"`
	TelemetryTopic string `json:"telemetry_topic"`
}

// RelayJSON is one channel. State is "ON", "OFF" or "UNKNOWN" before the
// first write.
type RelayJSON struct {
	Channel  int    `json:"channel"`
	Pin      int    `json:"pin"`
	Inverted bool   `json:"inverted"`
	State    string `json:"state"`
}

// ReadingJSON is the last valid sensor reading.
type ReadingJSON struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

// CountsJSON is the JSON representation of outcome counters.
type CountsJSON struct {
	CommandsApplied   int `json:"commands_applied"`
	CommandsMalformed int `json:"commands_malformed"`
	CommandsUnknown   int `json:"commands_unknown_channel"`
	CommandsFailed    int `json:"commands_write_failed"`
	Published         int `json:"published"`
	SensorInvalid     int `json:"sensor_invalid"`
	PublishFailed     int `json:"publish_failed"`
	SessionAttempts   int `json:"session_attempts"`
	SessionFailures   int `json:"session_failures"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TelemetryIntervalMs int64  `json:"telemetry_interval_ms"`
	HTTPAddr            string `json:"http_addr"`
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		BootID:        snap.BootID,
		Connectivity:  snap.Connectivity.String(),
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Link: LinkJSON{
			Interface: snap.Link.Interface,
			IP:        snap.Link.IP,
			Up:        snap.Link.Up,
		},
		MQTT: MQTTStatus{
			Broker:         snap.Config.Broker,
			ClientID:       snap.Config.ClientID,
			CommandTopic:   snap.Config.CommandTopic,
			TelemetryTopic: snap.Config.TelemetryTopic,
		},
		Relays: buildRelays(snap),
		Counts: CountsJSON(snap.Counts),
		Config: ConfigJSON{
			TelemetryIntervalMs: snap.Config.TelemetryIntervalMs,
			HTTPAddr:            snap.Config.HTTPAddr,
		},
	}

	if snap.LastReading != nil {
		inner.Reading = &ReadingJSON{
			Temperature: snap.LastReading.Temperature,
			Humidity:    snap.LastReading.Humidity,
			Timestamp:   snap.LastReadingAt.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// buildRelays lists configured channels in id order. Channels that only
// appear in Relays (no config) are still reported.
func buildRelays(snap Snapshot) []RelayJSON {
	seen := make(map[int]bool, len(snap.Config.Channels))
	out := make([]RelayJSON, 0, len(snap.Config.Channels))
	for _, ch := range snap.Config.Channels {
		seen[ch.ID] = true
		out = append(out, RelayJSON{
			Channel:  ch.ID,
			Pin:      ch.Pin,
			Inverted: ch.Inverted,
			State:    relayState(snap.Relays, ch.ID),
		})
	}
	for id := range snap.Relays {
		if !seen[id] {
			out = append(out, RelayJSON{Channel: id, State: relayState(snap.Relays, id)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

func relayState(relays map[int]bool, id int) string {
	on, ok := relays[id]
	switch {
	case !ok:
		return "UNKNOWN"
	case on:
		return "ON"
	default:
		return "OFF"
	}
}
