package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netviz/internal/domain"
	"netviz/internal/hub"
	"netviz/internal/protocol"
	"netviz/internal/service"
)

func startForwarder(t *testing.T, broadcastChanges bool) (chan service.Event, *hub.Client, *hub.Client) {
	t.Helper()
	log := quietLogger()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.New(log)
	go h.Run(ctx)

	events := make(chan service.Event, 8)
	go ForwardEvents(ctx, events, h, broadcastChanges, log)

	origin := hub.NewClient("origin", 8)
	peer := hub.NewClient("peer", 8)
	require.True(t, h.Register(origin))
	require.True(t, h.Register(peer))
	return events, origin, peer
}

func nextFrame(t *testing.T, c *hub.Client) string {
	t.Helper()
	select {
	case frame := <-c.Send():
		env, err := protocol.DecodeEnvelope(frame)
		require.NoError(t, err)
		return env.Type
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return ""
	}
}

func assertNoFrame(t *testing.T, c *hub.Client) {
	t.Helper()
	select {
	case frame := <-c.Send():
		t.Fatalf("unexpected frame: %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestForwardChangeSkipsOrigin(t *testing.T) {
	events, origin, peer := startForwarder(t, true)

	events <- service.Event{
		Type:     service.EventTopologyChanged,
		Origin:   "origin",
		Messages: []protocol.Message{&protocol.DeviceMove{ID: 1, X: 2, Y: 3}},
	}

	assert.Equal(t, protocol.TypeDeviceMove, nextFrame(t, peer))
	assertNoFrame(t, origin)
}

func TestForwardReloadReachesEveryone(t *testing.T) {
	events, origin, peer := startForwarder(t, false)

	events <- service.Event{
		Type:    service.EventTopologyReloaded,
		Devices: []domain.Device{domain.NewDevice(1, "r1", domain.DeviceTypeRouter, 0, 0)},
	}

	assert.Equal(t, protocol.TypeSnapshot, nextFrame(t, peer))
	assert.Equal(t, protocol.TypeSnapshot, nextFrame(t, origin))
}

func TestForwardChangesDisabled(t *testing.T) {
	events, _, peer := startForwarder(t, false)

	events <- service.Event{
		Type:     service.EventTopologyChanged,
		Origin:   "origin",
		Messages: []protocol.Message{&protocol.DeviceMove{ID: 1, X: 2, Y: 3}},
	}

	assertNoFrame(t, peer)
}
