package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"netviz/internal/domain"
	"netviz/internal/metrics"
	"netviz/internal/protocol"
	"netviz/internal/repository"
)

// errUnchanged aborts a Store.Update without swapping in the staged clone
var errUnchanged = errors.New("topology unchanged")

// Result describes an accepted mutation
type Result struct {
	// Applied counts the leaf mutations that took effect
	Applied int
	// Messages are those mutations, in application order
	Messages []protocol.Message
}

// TopologyService applies client mutations to the live topology and keeps
// the repository in step with it
type TopologyService struct {
	store      *Store
	repo       repository.Repository
	eventBus   *EventBus
	topologyID int
	log        logrus.FieldLogger
	metrics    *metrics.Metrics
}

// NewTopologyService creates a new topology service
func NewTopologyService(store *Store, repo repository.Repository, eventBus *EventBus, topologyID int, log logrus.FieldLogger) *TopologyService {
	return &TopologyService{
		store:      store,
		repo:       repo,
		eventBus:   eventBus,
		topologyID: topologyID,
		log:        log.WithField("topology", topologyID),
	}
}

// WithMetrics records persistence and mutation metrics on m
func (s *TopologyService) WithMetrics(m *metrics.Metrics) *TopologyService {
	s.metrics = m
	return s
}

// TopologyID returns the topology this service manages
func (s *TopologyService) TopologyID() int {
	return s.topologyID
}

// Load reads the topology from the repository into the store. A repository
// with nothing stored yields an empty topology; corrupt data is returned as
// an error and nothing is installed.
func (s *TopologyService) Load(ctx context.Context) error {
	topo, err := s.repo.Load(ctx, s.topologyID)
	if err != nil {
		return fmt.Errorf("failed to load topology %d: %w", s.topologyID, err)
	}
	if topo == nil {
		s.log.Info("No stored topology, starting empty")
		topo = domain.NewTopology(s.topologyID)
	} else {
		s.log.WithField("devices", topo.Len()).Info("Loaded topology")
	}

	s.store.Put(topo)
	return nil
}

// Snapshot returns the current devices sorted by ID
func (s *TopologyService) Snapshot() ([]domain.Device, error) {
	return s.store.Snapshot(s.topologyID)
}

// View runs fn with the current device list while holding the store's read
// lock, so no mutation can be accepted until fn returns
func (s *TopologyService) View(fn func(devices []domain.Device) error) error {
	return s.store.View(s.topologyID, func(topo *domain.Topology) error {
		return fn(topo.DeviceList())
	})
}

// Apply stages msg on a copy of the topology, saves the copy and swaps it in.
//
// When a batch fails part way, the prefix that applied is still saved and
// swapped in; the returned Result counts it and the error is a *BatchError.
// When the save fails the live topology is untouched and the error wraps
// domain.ErrPersistence. Accepted changes are published on the event bus
// before the lock is released, so subscribers see them in commit order.
func (s *TopologyService) Apply(ctx context.Context, origin string, msg protocol.Message) (Result, error) {
	var (
		result   Result
		applyErr error
	)

	err := s.store.Update(s.topologyID, func(work *domain.Topology) error {
		applied, err := ApplyMessage(work, msg)
		applyErr = err
		if len(applied) == 0 {
			if err != nil {
				return err
			}
			return errUnchanged
		}

		start := time.Now()
		if err := s.repo.Save(ctx, work); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		s.metrics.ObservePersist(time.Since(start))

		result = Result{Applied: len(applied), Messages: applied}
		s.eventBus.Publish(Event{
			Type:       EventTopologyChanged,
			TopologyID: s.topologyID,
			Origin:     origin,
			Messages:   applied,
		})
		return nil
	})

	if errors.Is(err, errUnchanged) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}

	s.metrics.MutationsApplied(result.Applied)
	return result, applyErr
}

// Reload re-reads the repository and replaces the live topology when the
// stored content differs from it. It reports whether anything changed.
// Missing or identical content is ignored; unreadable content is returned as
// an error and the live topology is kept.
func (s *TopologyService) Reload(ctx context.Context) (bool, error) {
	err := s.store.Update(s.topologyID, func(work *domain.Topology) error {
		loaded, err := s.repo.Load(ctx, s.topologyID)
		if err != nil {
			return err
		}
		if loaded == nil || loaded.Equal(work) {
			return errUnchanged
		}

		*work = *loaded
		s.eventBus.Publish(Event{
			Type:       EventTopologyReloaded,
			TopologyID: s.topologyID,
			Devices:    loaded.DeviceList(),
		})
		return nil
	})

	switch {
	case errors.Is(err, errUnchanged):
		s.metrics.Reload("unchanged")
		return false, nil
	case err != nil:
		s.metrics.Reload("error")
		return false, err
	}

	s.metrics.Reload("applied")
	return true, nil
}
