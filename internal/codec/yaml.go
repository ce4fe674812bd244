package codec

import (
	"errors"
	"fmt"
	"io"

	"netviz/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles the YAML document format
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return FormatYAML
}

// Decode reads a topology from YAML
func (c *YAMLCodec) Decode(r io.Reader) (*domain.Topology, error) {
	var doc document
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty YAML document", domain.ErrCorruptData)
		}
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", domain.ErrCorruptData, err)
	}

	return fromDocument(doc)
}

// Encode writes a topology as YAML
func (c *YAMLCodec) Encode(topo *domain.Topology, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(toDocument(topo)); err != nil {
		encoder.Close()
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to flush YAML: %w", err)
	}
	return nil
}
