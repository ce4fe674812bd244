package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"netviz/internal/codec"
	"netviz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T, c codec.Codec) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "data", "topology.json"), c)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTopology() *domain.Topology {
	topo := domain.NewTopology(0)
	topo.UpsertDevice(domain.Device{ID: 1, Name: "r1", X: 10, Y: 20, DeviceType: domain.DeviceTypeRouter, HostID: 5})
	topo.UpsertDevice(domain.Device{ID: 2, Name: "sw", X: 3, Y: 4, DeviceType: domain.DeviceTypeSwitch, HostID: 5})
	return topo
}

func TestLoadMissingFile(t *testing.T) {
	repo := newTestRepo(t, nil)

	topo, err := repo.Load(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, topo)
}

func TestSaveAndLoad(t *testing.T) {
	for _, c := range []codec.Codec{codec.NewJSONCodec(), codec.NewYAMLCodec()} {
		t.Run(c.Format(), func(t *testing.T) {
			repo := newTestRepo(t, c)
			ctx := context.Background()

			require.NoError(t, repo.Save(ctx, sampleTopology()))

			loaded, err := repo.Load(ctx, 0)
			require.NoError(t, err)
			assert.True(t, sampleTopology().Equal(loaded))
		})
	}
}

func TestSaveOfLoadIsNoOp(t *testing.T) {
	repo := newTestRepo(t, nil)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, sampleTopology()))

	before, err := os.ReadFile(repo.Path())
	require.NoError(t, err)

	loaded, err := repo.Load(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, loaded))

	after, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestSaveOverwritesFullState(t *testing.T) {
	repo := newTestRepo(t, nil)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, sampleTopology()))

	smaller := domain.NewTopology(0)
	smaller.UpsertDevice(domain.NewDevice(9, "only", domain.DeviceTypeHost, 0, 0))
	require.NoError(t, repo.Save(ctx, smaller))

	loaded, err := repo.Load(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
	_, ok := loaded.Device(9)
	assert.True(t, ok)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	repo := newTestRepo(t, nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, sampleTopology()))
	}

	entries, err := os.ReadDir(filepath.Dir(repo.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "topology.json", entries[0].Name())
}

func TestLoadCorruptFile(t *testing.T) {
	repo := newTestRepo(t, nil)
	require.NoError(t, os.WriteFile(repo.Path(), []byte(`{"id": 0, "devices": {"1": {"id": 1,`), 0644))

	_, err := repo.Load(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrCorruptData)
	assert.True(t, strings.Contains(err.Error(), repo.Path()))
}

func TestLoadTopologyIDMismatch(t *testing.T) {
	repo := newTestRepo(t, nil)
	other := domain.NewTopology(3)
	require.NoError(t, repo.Save(context.Background(), other))

	_, err := repo.Load(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrCorruptData)
}

func TestSaveCancelledContext(t *testing.T) {
	repo := newTestRepo(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Save(ctx, sampleTopology())
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(repo.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New("", nil)
	assert.Error(t, err)
}
