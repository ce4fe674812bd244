package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"netviz/internal/domain"
)

// JSONCodec handles the JSON document format
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return FormatJSON
}

// Decode reads a topology from JSON
func (c *JSONCodec) Decode(r io.Reader) (*domain.Topology, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON: %v", domain.ErrCorruptData, err)
	}

	return fromDocument(doc)
}

// Encode writes a topology as JSON
func (c *JSONCodec) Encode(topo *domain.Topology, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(toDocument(topo)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
