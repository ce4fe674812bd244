package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"netviz/internal/domain"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// assertNoError fails the test if err is not nil
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertEqual fails the test if expected != actual
func assertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

func sampleTopology() *domain.Topology {
	topo := domain.NewTopology(0)
	topo.UpsertDevice(domain.Device{ID: 1, Name: "r1", X: 10, Y: 20, DeviceType: domain.DeviceTypeRouter, HostID: 5})
	topo.UpsertDevice(domain.Device{ID: 2, Name: "h2", X: -4.25, Y: 8, DeviceType: domain.DeviceTypeHost, HostID: 5})
	return topo
}

// ============================================================================
// Load / Save
// ============================================================================

func TestLoadEmptyDatabase(t *testing.T) {
	repo := newTestRepo(t)

	topo, err := repo.Load(context.Background(), 0)
	assertNoError(t, err)
	if topo != nil {
		t.Fatalf("expected nil topology, got %+v", topo)
	}
}

func TestSaveAndLoad(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assertNoError(t, repo.Save(ctx, sampleTopology()))

	loaded, err := repo.Load(ctx, 0)
	assertNoError(t, err)
	assertEqual(t, sampleTopology().Devices, loaded.Devices)
}

func TestSaveEmptyTopologyIsLoadable(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assertNoError(t, repo.Save(ctx, domain.NewTopology(0)))

	loaded, err := repo.Load(ctx, 0)
	assertNoError(t, err)
	if loaded == nil {
		t.Fatal("expected saved empty topology to load as non-nil")
	}
	assertEqual(t, 0, loaded.Len())
}

func TestSaveReplacesDevices(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	assertNoError(t, repo.Save(ctx, sampleTopology()))

	next := domain.NewTopology(0)
	next.UpsertDevice(domain.NewDevice(3, "fw", domain.DeviceTypeFirewall, 1, 1))
	assertNoError(t, repo.Save(ctx, next))

	loaded, err := repo.Load(ctx, 0)
	assertNoError(t, err)
	assertEqual(t, next.Devices, loaded.Devices)
}

func TestTopologiesAreIsolated(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	other := domain.NewTopology(7)
	other.UpsertDevice(domain.NewDevice(1, "elsewhere", domain.DeviceTypeHost, 0, 0))
	assertNoError(t, repo.Save(ctx, other))
	assertNoError(t, repo.Save(ctx, sampleTopology()))

	loaded, err := repo.Load(ctx, 7)
	assertNoError(t, err)
	assertEqual(t, 1, loaded.Len())
	assertEqual(t, "elsewhere", loaded.Devices[1].Name)
}

func TestLoadCorruptRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	assertNoError(t, repo.Save(ctx, sampleTopology()))

	if _, err := repo.db.Exec(`UPDATE devices SET name = '' WHERE id = 1`); err != nil {
		t.Fatalf("failed to corrupt row: %v", err)
	}

	_, err := repo.Load(ctx, 0)
	if err == nil {
		t.Fatal("expected error for device with empty name")
	}
	if domain.ErrorKind(err) != domain.KindCorruptData {
		t.Fatalf("expected corrupt data error, got %v", err)
	}
}

func TestFileDatabasePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netviz.db")
	ctx := context.Background()

	repo, err := New(path)
	assertNoError(t, err)
	assertNoError(t, repo.Save(ctx, sampleTopology()))
	assertNoError(t, repo.Close())

	reopened, err := New(path)
	assertNoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, 0)
	assertNoError(t, err)
	assertEqual(t, sampleTopology().Devices, loaded.Devices)
}
