package service

import (
	"fmt"
	"sync"

	"netviz/internal/domain"
)

// Store holds the live topologies. Its write lock is the single mutation
// lock: every change is staged on a clone and swapped in while it is held.
type Store struct {
	mu         sync.RWMutex
	topologies map[int]*domain.Topology
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		topologies: make(map[int]*domain.Topology),
	}
}

// Put installs a copy of topo, replacing any topology with the same ID
func (s *Store) Put(topo *domain.Topology) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topologies[topo.ID] = topo.Clone()
}

// Get returns a deep copy of the topology
func (s *Store) Get(id int) (*domain.Topology, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topo, ok := s.topologies[id]
	if !ok {
		return nil, notFound(id)
	}
	return topo.Clone(), nil
}

// Snapshot returns the topology's devices sorted by ID
func (s *Store) Snapshot(id int) ([]domain.Device, error) {
	var devices []domain.Device
	err := s.View(id, func(topo *domain.Topology) error {
		devices = topo.DeviceList()
		return nil
	})
	return devices, err
}

// View runs fn on the live topology under the read lock. fn must not modify
// the topology or retain it after returning.
func (s *Store) View(id int, fn func(*domain.Topology) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topo, ok := s.topologies[id]
	if !ok {
		return notFound(id)
	}
	return fn(topo)
}

// Update runs fn on a staged clone under the write lock. The clone replaces
// the live topology only if fn returns nil.
func (s *Store) Update(id int, fn func(work *domain.Topology) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	topo, ok := s.topologies[id]
	if !ok {
		return notFound(id)
	}

	work := topo.Clone()
	if err := fn(work); err != nil {
		return err
	}
	s.topologies[id] = work
	return nil
}

func notFound(id int) error {
	return fmt.Errorf("%w: topology %d", domain.ErrNotFound, id)
}
