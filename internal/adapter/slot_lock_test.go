package adapter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/kazie/pylint-pycharm/internal/model"
)

func TestFlockSlotLocker_TryLock(t *testing.T) {
	locker := NewFlockSlotLocker()
	ctx := context.Background()
	path := m.Path(filepath.Join(t.TempDir(), "csi-000.lock"))

	lock, acquired, err := locker.TryLock(ctx, path)
	require.NoError(t, err)
	require.True(t, acquired)

	_, again, err := locker.TryLock(ctx, path)
	require.NoError(t, err)
	assert.False(t, again, "lock must not be granted twice")

	require.NoError(t, lock.Unlock())

	lock, acquired, err = locker.TryLock(ctx, path)
	require.NoError(t, err)
	assert.True(t, acquired)
	require.NoError(t, lock.Unlock())
}

func TestFlockSlotLocker_TryLock_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, acquired, err := NewFlockSlotLocker().TryLock(ctx, m.Path(filepath.Join(t.TempDir(), "x.lock")))
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, acquired)
}
