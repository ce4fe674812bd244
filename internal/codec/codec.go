package codec

import (
	"fmt"
	"io"

	"netviz/internal/domain"
)

// Supported document formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Decoder reads a persisted topology document
type Decoder interface {
	Decode(r io.Reader) (*domain.Topology, error)
	Format() string
}

// Encoder writes a persisted topology document
type Encoder interface {
	Encode(topo *domain.Topology, w io.Writer) error
	Format() string
}

// Codec reads and writes one document format
type Codec interface {
	Decoder
	Encoder
}

// ForFormat returns the codec for a format name
func ForFormat(format string) (Codec, error) {
	switch format {
	case FormatJSON, "":
		return NewJSONCodec(), nil
	case FormatYAML, "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
}

// document is the persisted layout: {id, devices: {deviceId: Device}}.
// Pointers let decoding tell a missing section from an empty one.
type document struct {
	ID      *int                   `json:"id" yaml:"id"`
	Devices *map[int]domain.Device `json:"devices" yaml:"devices"`
}

func toDocument(topo *domain.Topology) document {
	id := topo.ID
	devices := topo.Devices
	if devices == nil {
		devices = make(map[int]domain.Device)
	}
	return document{ID: &id, Devices: &devices}
}

func fromDocument(doc document) (*domain.Topology, error) {
	if doc.ID == nil {
		return nil, fmt.Errorf("%w: document has no id", domain.ErrCorruptData)
	}
	if doc.Devices == nil {
		return nil, fmt.Errorf("%w: document has no devices section", domain.ErrCorruptData)
	}

	topo := domain.NewTopology(*doc.ID)
	for id, d := range *doc.Devices {
		topo.Devices[id] = d
	}
	if err := topo.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptData, err)
	}
	return topo, nil
}
