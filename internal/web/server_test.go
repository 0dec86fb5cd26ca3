package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/relay-node/internal/logic"
	"github.com/sweeney/relay-node/internal/relay"
	"github.com/sweeney/relay-node/internal/status"
	"github.com/sweeney/relay-node/internal/telemetry"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Broker:              "tcp://192.168.1.200:1883",
		ClientID:            "ESP32_Client",
		CommandTopic:        "raspi/esp32/relay",
		TelemetryTopic:      "esp32/raspi/data",
		TelemetryIntervalMs: 2000,
		HTTPAddr:            ":8080",
		Channels:            relay.DefaultChannels,
	}
	reg := prometheus.NewRegistry()
	m, err := status.NewMetrics(reg)
	require.NoError(t, err)
	tr := status.NewTracker(start, cfg, m)
	srv := New(":0", tr, reg)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.RecordConnectivity(logic.Ready)
	tr.RecordRelay(1, true)
	tr.RecordCommand(relay.OutcomeApplied)

	resp, body := get(t, ts.URL+"/index.json")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal([]byte(body), &sj))
	assert.Equal(t, "READY", sj.Status.Connectivity)
	assert.True(t, sj.Status.Ready)
	assert.Equal(t, "tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	assert.Equal(t, "ON", sj.Status.Relays[0].State)
	assert.Equal(t, 1, sj.Status.Counts.CommandsApplied)
	assert.Equal(t, tr.BootID(), sj.Status.BootID)
}

func TestRootServesJSON(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := get(t, ts.URL+"/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "{"))
}

func TestUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts.URL+"/nope")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts, tr := newTestServer(t)

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "LINK_DOWN\n", body)

	tr.RecordConnectivity(logic.Ready)
	resp, body = get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "READY\n", body)

	tr.RecordConnectivity(logic.LinkUpSessionDown)
	resp, _ = get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.RecordRelay(2, true)
	tr.RecordTelemetry(telemetry.ResultPublished, logic.Reading{Temperature: 23.5, Humidity: 61.2})

	resp, body := get(t, ts.URL+"/metrics")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `relay_node_relay_on{channel="2"} 1`)
	assert.Contains(t, body, "relay_node_temperature_celsius 23.5")
	assert.Contains(t, body, `relay_node_publishes_total{result="published"} 1`)
}
