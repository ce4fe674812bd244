package domain

import (
	"fmt"
	"math"
)

// DeviceType classifies a device on the canvas. The set is open: clients may
// send any tag, the constants below are the ones the bundled UI knows about.
type DeviceType string

const (
	DeviceTypeRouter      DeviceType = "router"
	DeviceTypeSwitch      DeviceType = "switch"
	DeviceTypeHost        DeviceType = "host"
	DeviceTypeFirewall    DeviceType = "firewall"
	DeviceTypeAccessPoint DeviceType = "access_point"
)

// Device represents a node placed on the topology canvas
type Device struct {
	ID         int        `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	X          float64    `json:"x" yaml:"x"`
	Y          float64    `json:"y" yaml:"y"`
	DeviceType DeviceType `json:"device_type" yaml:"device_type"`
	HostID     int        `json:"host_id" yaml:"host_id"` // advisory, never resolved
}

// NewDevice creates a device at the given canvas position
func NewDevice(id int, name string, deviceType DeviceType, x, y float64) Device {
	return Device{
		ID:         id,
		Name:       name,
		X:          x,
		Y:          y,
		DeviceType: deviceType,
	}
}

// Validate checks the invariants every stored device must hold
func (d Device) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: device %d has an empty name", ErrValidation, d.ID)
	}
	if !finite(d.X) || !finite(d.Y) {
		return fmt.Errorf("%w: device %d has a non-finite position", ErrValidation, d.ID)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
