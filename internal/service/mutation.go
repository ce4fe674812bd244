package service

import (
	"fmt"

	"netviz/internal/domain"
	"netviz/internal/protocol"
)

// BatchError reports the entry of a MultipleMessage that failed. Entries
// before it stay applied.
type BatchError struct {
	// Index is the position of the failing entry within its batch
	Index int
	// Applied counts the leaf mutations applied before the failure
	Applied int
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch entry %d: %v (%d applied)", e.Index, e.Err, e.Applied)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// ApplyMessage applies msg to work and returns the leaf mutations that took
// effect, in order. A batch stops at its first failing entry and returns the
// prefix it applied together with a *BatchError.
func ApplyMessage(work *domain.Topology, msg protocol.Message) ([]protocol.Message, error) {
	switch m := msg.(type) {
	case *protocol.DeviceCreate:
		device := m.Device()
		if err := device.Validate(); err != nil {
			return nil, err
		}
		work.UpsertDevice(device)
		return []protocol.Message{m}, nil

	case *protocol.DeviceMove:
		if err := work.PatchDevicePosition(m.ID, m.X, m.Y); err != nil {
			return nil, err
		}
		return []protocol.Message{m}, nil

	case *protocol.MultipleMessage:
		var applied []protocol.Message
		for i, nested := range m.Messages {
			got, err := ApplyMessage(work, nested)
			applied = append(applied, got...)
			if err != nil {
				return applied, &BatchError{Index: i, Applied: len(applied), Err: err}
			}
		}
		return applied, nil

	case *protocol.Undecodable:
		return nil, m.Err

	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMessageType, msg.MessageType())
	}
}
