package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"netviz/internal/codec"
	"netviz/internal/domain"
)

// Repository implements repository.Repository on a single document file
type Repository struct {
	path  string
	codec codec.Codec
}

// New creates a file repository, creating the parent directory if needed
func New(path string, c codec.Codec) (*Repository, error) {
	if path == "" {
		return nil, fmt.Errorf("file repository: empty path")
	}
	if c == nil {
		c = codec.NewJSONCodec()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Repository{path: path, codec: c}, nil
}

// Path returns the document location
func (r *Repository) Path() string {
	return r.path
}

// Load reads the topology document
func (r *Repository) Load(ctx context.Context, topologyID int) (*domain.Topology, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}

	topo, err := r.codec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}
	if topo.ID != topologyID {
		return nil, fmt.Errorf("%w: %s holds topology %d, expected %d",
			domain.ErrCorruptData, r.path, topo.ID, topologyID)
	}

	return topo, nil
}

// Save writes the document to a temp file in the same directory, syncs it and
// renames it over the previous one
func (r *Repository) Save(ctx context.Context, topo *domain.Topology) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := r.codec.Encode(topo, &buf); err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", r.path, err)
	}
	committed = true

	// Persist the rename itself
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}

	return nil
}

// Close is a no-op; the file is only open during Load and Save
func (r *Repository) Close() error {
	return nil
}
