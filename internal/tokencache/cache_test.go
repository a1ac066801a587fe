package tokencache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	_, err := m.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrMiss))

	require.NoError(t, m.Set(ctx, "k", "ya29.token", time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", got)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrMiss))
	assert.Equal(t, 0, m.Len())
}

func TestMemoryIgnoresNonPositiveTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", "v", 0))
	require.NoError(t, m.Set(ctx, "k", "v", -time.Second))
	assert.Equal(t, 0, m.Len())
}

func TestMemoryClose(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", "v", time.Hour))
	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Len())
}

func TestMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Set(ctx, "shared", "v", time.Hour)
			_, _ = m.Get(ctx, "shared")
		}()
	}
	wg.Wait()

	got, err := m.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewValkeyRequiresAddress(t *testing.T) {
	_, err := NewValkey(ValkeyConfig{})
	assert.Error(t, err)
}
