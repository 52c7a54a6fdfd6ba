package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockRegistrySerializes(t *testing.T) {
	registry := NewLockRegistry(50 * time.Millisecond)
	ctx := context.Background()

	release, err := registry.Acquire(ctx, 1)
	require.NoError(t, err)

	// Второй захват того же турнира упирается в таймаут.
	_, err = registry.Acquire(ctx, 1)
	require.ErrorIs(t, err, ErrLockTimeout)

	// Другой турнир не блокируется.
	otherRelease, err := registry.Acquire(ctx, 2)
	require.NoError(t, err)
	otherRelease()

	release()
	release2, err := registry.Acquire(ctx, 1)
	require.NoError(t, err)
	release2()
}

func TestLockRegistryForget(t *testing.T) {
	registry := NewLockRegistry(50 * time.Millisecond)
	ctx := context.Background()

	release, err := registry.Acquire(ctx, 1)
	require.NoError(t, err)

	// После Forget создаётся свежий семафор: захват проходит, даже если
	// старый не был отпущен.
	registry.Forget(1)
	fresh, err := registry.Acquire(ctx, 1)
	require.NoError(t, err)
	fresh()
	release()
}

func TestLockRegistryContextCancelled(t *testing.T) {
	registry := NewLockRegistry(time.Second)

	release, err := registry.Acquire(context.Background(), 1)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = registry.Acquire(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
