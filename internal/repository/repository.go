package repository

import (
	"context"

	"netviz/internal/domain"
)

// Repository persists whole topologies
type Repository interface {
	// Load returns the stored topology, or nil when none has been saved yet.
	// Stored data that cannot be read back as a topology yields domain.ErrCorruptData.
	Load(ctx context.Context, topologyID int) (*domain.Topology, error)

	// Save overwrites the stored topology with the full state of topo.
	// A crash during Save leaves either the old or the new state readable.
	Save(ctx context.Context, topo *domain.Topology) error

	// Close releases resources
	Close() error
}
