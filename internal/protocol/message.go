package protocol

import (
	"netviz/internal/domain"
)

// Message type tags
const (
	TypeDeviceCreate    = "DeviceCreate"
	TypeDeviceMove      = "DeviceMove"
	TypeMultipleMessage = "MultipleMessage"
	TypeSnapshot        = "Snapshot"
	TypeError           = "Error"
	TypeAck             = "Ack"
)

// Message is one decoded client message
type Message interface {
	// MessageType returns the wire tag
	MessageType() string
	// Body returns the value encoded as the second envelope element
	Body() any
}

// DeviceCreate creates or fully replaces a device
type DeviceCreate struct {
	ID         int
	Name       string
	X          float64
	Y          float64
	DeviceType string
	HostID     int
}

func (m *DeviceCreate) MessageType() string { return TypeDeviceCreate }

func (m *DeviceCreate) Body() any {
	return deviceCreateWire{
		ID:     m.ID,
		Name:   m.Name,
		X:      m.X,
		Y:      m.Y,
		Type:   m.DeviceType,
		HostID: m.HostID,
	}
}

// Device converts the message to the stored record, renaming type to device_type
func (m *DeviceCreate) Device() domain.Device {
	return domain.Device{
		ID:         m.ID,
		Name:       m.Name,
		X:          m.X,
		Y:          m.Y,
		DeviceType: domain.DeviceType(m.DeviceType),
		HostID:     m.HostID,
	}
}

// DeviceMove repositions an existing device
type DeviceMove struct {
	ID int
	X  float64
	Y  float64
}

func (m *DeviceMove) MessageType() string { return TypeDeviceMove }

func (m *DeviceMove) Body() any {
	return deviceMoveWire{ID: m.ID, X: m.X, Y: m.Y}
}

// MultipleMessage applies its nested messages in order
type MultipleMessage struct {
	Messages []Message
}

func (m *MultipleMessage) MessageType() string { return TypeMultipleMessage }

func (m *MultipleMessage) Body() any {
	pairs := make([][2]any, 0, len(m.Messages))
	for _, nested := range m.Messages {
		pairs = append(pairs, [2]any{nested.MessageType(), nested.Body()})
	}
	return multipleMessageWire{Messages: pairs}
}

// Undecodable stands in for a nested batch entry that failed to decode.
// Applying it returns Err.
type Undecodable struct {
	Index int
	Tag   string
	Err   error
}

func (m *Undecodable) MessageType() string { return m.Tag }

func (m *Undecodable) Body() any { return nil }

// Count returns the number of leaf mutations a message carries
func Count(m Message) int {
	batch, ok := m.(*MultipleMessage)
	if !ok {
		return 1
	}
	n := 0
	for _, nested := range batch.Messages {
		n += Count(nested)
	}
	return n
}

// Wire bodies

type deviceCreateWire struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Type   string  `json:"type"`
	HostID int     `json:"host_id"`
}

type deviceMoveWire struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type multipleMessageWire struct {
	Messages [][2]any `json:"messages"`
}

// SnapshotBody is the body of the Snapshot frame
type SnapshotBody struct {
	Devices []domain.Device `json:"devices"`
}

// ErrorBody is the body of the Error frame
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Applied *int   `json:"applied,omitempty"`
}

// AckBody is the body of the Ack frame
type AckBody struct {
	Applied int `json:"applied"`
}
