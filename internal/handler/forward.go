package handler

import (
	"context"

	"github.com/sirupsen/logrus"

	"netviz/internal/hub"
	"netviz/internal/protocol"
	"netviz/internal/service"
)

// ForwardEvents relays service events to the hub until ctx is done.
// Accepted changes go to every session except the one that made them, and
// only when broadcastChanges is set. Reloads go to everyone as a Snapshot.
func ForwardEvents(ctx context.Context, events <-chan service.Event, h *hub.Hub, broadcastChanges bool, log logrus.FieldLogger) {
	for {
		select {
		case <-ctx.Done():
			return

		case event := <-events:
			switch event.Type {
			case service.EventTopologyChanged:
				if !broadcastChanges || len(event.Messages) == 0 {
					continue
				}
				frame, err := encodeChange(event.Messages)
				if err != nil {
					log.WithError(err).Error("Failed to encode change")
					continue
				}
				h.Broadcast(frame, event.Origin)

			case service.EventTopologyReloaded:
				frame, err := protocol.EncodeSnapshot(event.Devices)
				if err != nil {
					log.WithError(err).Error("Failed to encode snapshot")
					continue
				}
				h.Broadcast(frame, "")
			}
		}
	}
}

// encodeChange re-encodes applied mutations as one frame
func encodeChange(messages []protocol.Message) ([]byte, error) {
	if len(messages) == 1 {
		return protocol.EncodeMessage(messages[0])
	}
	return protocol.EncodeMessage(&protocol.MultipleMessage{Messages: messages})
}
