package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrieltinoco/LAB-DAMD-microservicos-para-lista-de-compras/internal/config"
)

func TestWatcherResetsOnSnapshotDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	ctx := context.Background()

	s := NewStore(NewSnapshot(path), config.NewNopLogger())
	_, err := s.Register(ctx, "user-service", "http://localhost:3001")
	require.NoError(t, err)
	require.FileExists(t, path)

	w, err := NewWatcher(path, s, config.NewNopLogger())
	require.NoError(t, err)
	w.Start(ctx)
	defer w.Close()

	require.NoError(t, os.Remove(path))

	assert.Eventually(t, func() bool {
		return len(s.ListServices(ctx)) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	ctx := context.Background()

	s := NewStore(NewSnapshot(path), config.NewNopLogger())
	_, err := s.Register(ctx, "user-service", "http://localhost:3001")
	require.NoError(t, err)

	w, err := NewWatcher(path, s, config.NewNopLogger())
	require.NoError(t, err)
	w.Start(ctx)
	defer w.Close()

	other := filepath.Join(dir, "unrelated.json")
	require.NoError(t, os.WriteFile(other, []byte("{}"), 0o644))
	require.NoError(t, os.Remove(other))

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, s.ListServices(ctx), 1)
}
