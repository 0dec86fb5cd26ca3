package connectivity

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/relay-node/internal/link"
	"github.com/sweeney/relay-node/internal/logic"
	"github.com/sweeney/relay-node/internal/mqtt"
)

type fakeRestarter struct {
	reasons []string
}

func (f *fakeRestarter) Restart(reason string) { f.reasons = append(f.reasons, reason) }

type fakeObserver struct {
	states   []logic.ConnectivityState
	attempts []bool
	links    []link.Info
}

func (f *fakeObserver) RecordConnectivity(s logic.ConnectivityState) { f.states = append(f.states, s) }
func (f *fakeObserver) RecordSessionAttempt(ok bool)                 { f.attempts = append(f.attempts, ok) }
func (f *fakeObserver) RecordLink(info link.Info)                    { f.links = append(f.links, info) }

// sleepRecorder records requested waits instead of sleeping.
type sleepRecorder struct {
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

type harness struct {
	sup       *Supervisor
	link      *link.FakeLink
	transport *mqtt.FakeTransport
	restarter *fakeRestarter
	sleeps    *sleepRecorder
	observer  *fakeObserver
}

func newHarness(t *testing.T, upAfter int) *harness {
	t.Helper()
	h := &harness{
		link:      link.NewFakeLink(upAfter),
		transport: mqtt.NewFakeTransport(),
		restarter: &fakeRestarter{},
		sleeps:    &sleepRecorder{},
		observer:  &fakeObserver{},
	}
	h.sup = New(Config{}, h.link, h.transport, h.restarter, zerolog.Nop())
	h.sup.SetSleeper(h.sleeps.sleep)
	h.sup.SetObserver(h.observer)
	return h
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()

	assert.Equal(t, 30, c.LinkAttempts)
	assert.Equal(t, 200*time.Millisecond, c.LinkPollInterval)
	assert.Equal(t, time.Second, c.SessionRetryInterval)
	assert.Equal(t, "ESP32_Client", c.ClientID)
	assert.Equal(t, "raspi/esp32/relay", c.CommandTopic)
}

func TestNewStartsLinkDown(t *testing.T) {
	h := newHarness(t, 0)
	assert.Equal(t, logic.LinkDown, h.sup.State())
	assert.Equal(t, []logic.ConnectivityState{logic.LinkDown}, h.observer.states)
}

func TestEnsureReadyHappyPath(t *testing.T) {
	h := newHarness(t, 0)

	require.NoError(t, h.sup.EnsureReady(context.Background()))

	assert.Equal(t, logic.Ready, h.sup.State())
	assert.Equal(t, 1, h.link.BeginCalls)
	assert.Equal(t, []string{"ESP32_Client"}, h.transport.ClientIDs)
	assert.Equal(t, []string{"raspi/esp32/relay"}, h.transport.Subscriptions)
	assert.Empty(t, h.sleeps.waits)
	assert.Equal(t, []logic.ConnectivityState{logic.LinkDown, logic.LinkUpSessionDown, logic.Ready}, h.observer.states)
	require.Len(t, h.observer.links, 1)
	assert.Equal(t, "192.168.1.50", h.observer.links[0].IP)
}

func TestLinkComesUpAfterPolls(t *testing.T) {
	h := newHarness(t, 5)

	require.NoError(t, h.sup.EnsureReady(context.Background()))

	assert.Equal(t, logic.Ready, h.sup.State())
	assert.Len(t, h.sleeps.waits, 5)
	for _, w := range h.sleeps.waits {
		assert.Equal(t, 200*time.Millisecond, w)
	}
	assert.Empty(t, h.restarter.reasons)
}

func TestLinkUpOnLastAttempt(t *testing.T) {
	h := newHarness(t, 30)

	require.NoError(t, h.sup.EnsureReady(context.Background()))

	assert.Len(t, h.sleeps.waits, 30)
	assert.Empty(t, h.restarter.reasons)
}

func TestLinkExhaustedRestartsOnce(t *testing.T) {
	h := newHarness(t, -1)

	err := h.sup.EnsureReady(context.Background())

	assert.ErrorIs(t, err, ErrLinkExhausted)
	assert.Len(t, h.restarter.reasons, 1, "restart invoked exactly once")
	assert.Len(t, h.sleeps.waits, 30)
	assert.Empty(t, h.transport.ClientIDs, "no session attempt before restart")
	assert.Empty(t, h.transport.Subscriptions)
	assert.Equal(t, logic.LinkDown, h.sup.State())
}

func TestSessionConnectFailsTwiceThenSucceeds(t *testing.T) {
	h := newHarness(t, 0)
	h.transport.ConnectResults = []bool{false, false, true}

	require.NoError(t, h.sup.EnsureReady(context.Background()))

	assert.Equal(t, logic.Ready, h.sup.State())
	assert.Len(t, h.transport.ClientIDs, 3, "Ready only after the third attempt")
	assert.Equal(t, []string{"raspi/esp32/relay"}, h.transport.Subscriptions, "subscribe exactly once")
	assert.Equal(t, []time.Duration{time.Second, time.Second}, h.sleeps.waits)
	assert.Equal(t, []bool{false, false, true}, h.observer.attempts)
}

func TestSubscribeFailureIsRetriedLikeConnectFailure(t *testing.T) {
	h := newHarness(t, 0)
	h.transport.SubscribeResults = []bool{false, true}

	require.NoError(t, h.sup.EnsureReady(context.Background()))

	assert.Len(t, h.transport.ClientIDs, 2)
	assert.Len(t, h.transport.Subscriptions, 2)
	assert.Equal(t, []time.Duration{time.Second}, h.sleeps.waits)
}

func TestEnsureReadyWhenReadyIsCheap(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.sup.EnsureReady(context.Background()))

	for i := 0; i < 5; i++ {
		require.NoError(t, h.sup.EnsureReady(context.Background()))
	}

	assert.Len(t, h.transport.ClientIDs, 1)
	assert.Len(t, h.transport.Subscriptions, 1)
	assert.Equal(t, 1, h.link.BeginCalls)
}

func TestSessionLossReconnectsAndResubscribes(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.sup.EnsureReady(context.Background()))

	h.transport.Connected = false
	h.transport.ConnectResults = []bool{false, true}

	require.NoError(t, h.sup.EnsureReady(context.Background()))

	assert.Equal(t, logic.Ready, h.sup.State())
	assert.Len(t, h.transport.ClientIDs, 3)
	assert.Len(t, h.transport.Subscriptions, 2, "resubscribed on re-entering Ready")
	assert.Equal(t, 1, h.link.BeginCalls, "link is not reacquired after session loss")
	assert.Equal(t, []logic.ConnectivityState{
		logic.LinkDown, logic.LinkUpSessionDown, logic.Ready,
		logic.LinkUpSessionDown, logic.Ready,
	}, h.observer.states)
}

func TestEnsureReadyCancelledDuringSessionRetry(t *testing.T) {
	h := newHarness(t, 0)
	h.transport.ConnectResults = []bool{false}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.sup.EnsureReady(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, logic.LinkUpSessionDown, h.sup.State())
}

func TestEnsureReadyCancelledDuringLinkWait(t *testing.T) {
	h := newHarness(t, -1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.sup.EnsureReady(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.restarter.reasons, "shutdown is not a restart")
}

func TestCustomIntervals(t *testing.T) {
	h := newHarness(t, -1)
	h.sup = New(Config{LinkAttempts: 3, LinkPollInterval: time.Millisecond}, h.link, h.transport, h.restarter, zerolog.Nop())
	h.sup.SetSleeper(h.sleeps.sleep)

	assert.ErrorIs(t, h.sup.EnsureReady(context.Background()), ErrLinkExhausted)
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}, h.sleeps.waits)
	assert.Len(t, h.restarter.reasons, 1)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
