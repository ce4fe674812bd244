// Package loader imports host inventories as topology devices.
//
// An inventory lists hosts by key. Each host becomes a device; its VMs become
// host devices whose host_id points at the parent. Hosts without an explicit
// position are laid out on a grid in key order.
//
//	hosts:
//	  gw:
//	    role: router
//	    position: {x: 0, y: 0}
//	  nas:
//	    role: storage
//	    vms:
//	      - name: media
package loader

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"netviz/internal/domain"
	"netviz/internal/protocol"
)

const (
	gridColumns = 6
	gridSpacing = 160.0
)

// InventoryYAML represents the YAML file structure
type InventoryYAML struct {
	Version string               `yaml:"version"`
	Hosts   map[string]*HostYAML `yaml:"hosts"`
}

// HostYAML represents a host in YAML format
type HostYAML struct {
	ID          int           `yaml:"id,omitempty"`
	Name        string        `yaml:"name,omitempty"`
	IP          string        `yaml:"ip,omitempty"`
	Role        string        `yaml:"role,omitempty"`
	Platform    string        `yaml:"platform,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Position    *PositionYAML `yaml:"position,omitempty"`
	VMs         []VMYAML      `yaml:"vms,omitempty"`
}

// PositionYAML is a canvas coordinate
type PositionYAML struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// VMYAML represents a virtual machine
type VMYAML struct {
	Name string `yaml:"name"`
	IP   string `yaml:"ip,omitempty"`
	Role string `yaml:"role,omitempty"`
}

// LoadInventory loads devices from an inventory file
func LoadInventory(path string) ([]domain.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseInventory(data)
}

// ParseInventory parses devices from inventory YAML bytes
func ParseInventory(data []byte) ([]domain.Device, error) {
	var inv InventoryYAML
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return convertInventory(&inv)
}

func convertInventory(inv *InventoryYAML) ([]domain.Device, error) {
	keys := make([]string, 0, len(inv.Hosts))
	nextID := 1
	used := make(map[int]string)
	for key, h := range inv.Hosts {
		if h == nil {
			return nil, fmt.Errorf("%w: host %q has no fields", domain.ErrValidation, key)
		}
		keys = append(keys, key)
		if h.ID != 0 {
			if other, dup := used[h.ID]; dup {
				return nil, fmt.Errorf("%w: hosts %q and %q share id %d", domain.ErrValidation, other, key, h.ID)
			}
			used[h.ID] = key
			if h.ID >= nextID {
				nextID = h.ID + 1
			}
		}
	}
	sort.Strings(keys)

	// Hosts without ids are numbered after the highest explicit one
	allocate := func() int {
		id := nextID
		nextID++
		return id
	}

	var devices []domain.Device
	slot := 0
	place := func(pos *PositionYAML) (float64, float64) {
		if pos != nil {
			return pos.X, pos.Y
		}
		x := float64(slot%gridColumns) * gridSpacing
		y := float64(slot/gridColumns) * gridSpacing
		slot++
		return x, y
	}

	for _, key := range keys {
		h := inv.Hosts[key]

		id := h.ID
		if id == 0 {
			id = allocate()
		}
		name := h.Name
		if name == "" {
			name = key
		}
		x, y := place(h.Position)

		device := domain.NewDevice(id, name, inferDeviceType(h.Role), x, y)
		devices = append(devices, device)

		for _, vm := range h.VMs {
			if vm.Name == "" {
				return nil, fmt.Errorf("%w: host %q has a VM without a name", domain.ErrValidation, key)
			}
			vx, vy := place(nil)
			child := domain.NewDevice(allocate(), vm.Name, domain.DeviceTypeHost, vx, vy)
			child.HostID = id
			devices = append(devices, child)
		}
	}

	for _, d := range devices {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}

	return devices, nil
}

// inferDeviceType maps a free-form role to a device type
func inferDeviceType(role string) domain.DeviceType {
	r := strings.ToLower(role)
	switch {
	case strings.Contains(r, "router"), strings.Contains(r, "gateway"):
		return domain.DeviceTypeRouter
	case strings.Contains(r, "firewall"):
		return domain.DeviceTypeFirewall
	case strings.Contains(r, "switch"):
		return domain.DeviceTypeSwitch
	case strings.Contains(r, "access point"), strings.Contains(r, "access_point"), strings.Contains(r, "wifi"):
		return domain.DeviceTypeAccessPoint
	default:
		return domain.DeviceTypeHost
	}
}

// SeedBatch wraps devices as one batch of DeviceCreate messages
func SeedBatch(devices []domain.Device) *protocol.MultipleMessage {
	batch := &protocol.MultipleMessage{Messages: make([]protocol.Message, 0, len(devices))}
	for _, d := range devices {
		batch.Messages = append(batch.Messages, &protocol.DeviceCreate{
			ID:         d.ID,
			Name:       d.Name,
			X:          d.X,
			Y:          d.Y,
			DeviceType: string(d.DeviceType),
			HostID:     d.HostID,
		})
	}
	return batch
}
