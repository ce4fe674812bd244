package domain

import (
	"fmt"
	"sort"
)

// DefaultTopologyID is the identifier of the single diagram a server hosts
// unless configured otherwise.
const DefaultTopologyID = 0

// Topology is the full diagram: every device keyed by its ID
type Topology struct {
	ID      int            `json:"id" yaml:"id"`
	Devices map[int]Device `json:"devices" yaml:"devices"`
}

// NewTopology creates an empty topology
func NewTopology(id int) *Topology {
	return &Topology{
		ID:      id,
		Devices: make(map[int]Device),
	}
}

// Device returns the device stored under id
func (t *Topology) Device(id int) (Device, bool) {
	d, ok := t.Devices[id]
	return d, ok
}

// UpsertDevice inserts the device or fully replaces the one with the same ID
func (t *Topology) UpsertDevice(d Device) {
	if t.Devices == nil {
		t.Devices = make(map[int]Device)
	}
	t.Devices[d.ID] = d
}

// PatchDevicePosition moves an existing device, leaving every other field untouched
func (t *Topology) PatchDevicePosition(id int, x, y float64) error {
	d, ok := t.Devices[id]
	if !ok {
		return fmt.Errorf("%w: device %d in topology %d", ErrNotFound, id, t.ID)
	}
	d.X = x
	d.Y = y
	t.Devices[id] = d
	return nil
}

// DeviceList returns all devices ordered by ID.
// The order carries no meaning but is stable between calls.
func (t *Topology) DeviceList() []Device {
	devices := make([]Device, 0, len(t.Devices))
	for _, d := range t.Devices {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ID < devices[j].ID
	})
	return devices
}

// Len returns the number of devices
func (t *Topology) Len() int {
	return len(t.Devices)
}

// Clone returns a deep copy. Device holds only value fields, so copying the
// map is enough.
func (t *Topology) Clone() *Topology {
	c := NewTopology(t.ID)
	for id, d := range t.Devices {
		c.Devices[id] = d
	}
	return c
}

// Equal reports whether two topologies hold the same devices
func (t *Topology) Equal(other *Topology) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.ID != other.ID || len(t.Devices) != len(other.Devices) {
		return false
	}
	for id, d := range t.Devices {
		if od, ok := other.Devices[id]; !ok || od != d {
			return false
		}
	}
	return true
}

// Validate checks that a topology read from storage has the expected shape
func (t *Topology) Validate() error {
	for key, d := range t.Devices {
		if key != d.ID {
			return fmt.Errorf("device stored under key %d carries id %d", key, d.ID)
		}
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}
