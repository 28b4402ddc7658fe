package domain

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazie/pylint-pycharm/internal/adapter"
	m "github.com/kazie/pylint-pycharm/internal/model"
)

func makeAgedDir(t *testing.T, path string, age time.Duration) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Join(path, "pkg"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(path, "pkg", "mod.py"), []byte("x"), 0o600))

	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, old, old))
}

func TestSweeper_Sweep(t *testing.T) {
	base := t.TempDir()
	locker := adapter.NewFlockSlotLocker()

	makeAgedDir(t, filepath.Join(base, "csi-001"), time.Hour)
	makeAgedDir(t, filepath.Join(base, "csi-002"), 0)
	makeAgedDir(t, filepath.Join(base, "csi-003"), time.Hour)
	makeAgedDir(t, filepath.Join(base, "unrelated"), time.Hour)
	require.NoError(t, os.WriteFile(filepath.Join(base, "csi-004.lock"), nil, 0o600))

	// csi-003 belongs to a live holder.
	live, acquired, err := locker.TryLock(context.Background(), m.Path(filepath.Join(base, "csi-003.lock")))
	require.NoError(t, err)
	require.True(t, acquired)
	defer func() { _ = live.Unlock() }()

	removed, err := NewSweeper(adapter.NewLocalSourceFSAdapter(), locker).Sweep(context.Background(), m.Path(base), 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, []m.Path{m.Path(filepath.Join(base, "csi-001"))}, removed)

	for name, wantPresent := range map[string]bool{
		"csi-001":      false,
		"csi-001.lock": false,
		"csi-002":      true,
		"csi-003":      true,
		"csi-003.lock": true,
		"csi-004.lock": false,
		"unrelated":    true,
	} {
		_, err := os.Stat(filepath.Join(base, name))
		assert.Equal(t, wantPresent, err == nil, name)
	}
}

func TestSweeper_Sweep_MissingBase(t *testing.T) {
	removed, err := NewSweeper(adapter.NewLocalSourceFSAdapter(), adapter.NewFlockSlotLocker()).
		Sweep(context.Background(), m.Path(filepath.Join(t.TempDir(), "absent")), 0)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestSweeper_DoesNotTouchLiveMaterialization(t *testing.T) {
	f := newMemFixture()

	file, err := f.mt.Materialize(context.Background(), testProject, memoryDoc("/proj", "mod.py", "x"))
	require.NoError(t, err)
	defer file.Release(context.Background())

	removed, err := NewSweeper(f.adapter, f.locker).Sweep(context.Background(), "/tmp", 0)
	require.NoError(t, err)

	assert.Empty(t, removed)
	assert.True(t, f.exists(file.RealPath()))
}
