package maps

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderSingleInFlightLoad(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})

	l := NewLoader(func(ctx context.Context) (string, error) {
		loads.Add(1)
		<-release
		return "script-v1", nil
	})

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := l.Acquire(context.Background())
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load(), "exactly one load for concurrent acquires")
	for _, v := range results {
		assert.Equal(t, "script-v1", v)
	}
	assert.Equal(t, StateReady, l.State())
	assert.Equal(t, n, l.RefCount())
}

func TestLoaderFailedLoadIsRetried(t *testing.T) {
	var loads atomic.Int32
	l := NewLoader(func(ctx context.Context) (string, error) {
		if loads.Add(1) == 1 {
			return "", fmt.Errorf("cdn unreachable")
		}
		return "script-v2", nil
	})

	_, err := l.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, l.State())

	v, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "script-v2", v)
	assert.Equal(t, StateReady, l.State())
	assert.Equal(t, int32(2), loads.Load())
}

func TestLoaderResetRequiresZeroRefs(t *testing.T) {
	l := NewLoader(func(ctx context.Context) (string, error) { return "s", nil })

	_, err := l.Acquire(context.Background())
	require.NoError(t, err)

	assert.False(t, l.Reset(), "reset must fail while a reference is held")
	l.Release()
	assert.True(t, l.Reset())
	assert.Equal(t, StateUnloaded, l.State())
}

func TestLoaderAcquireHonorsContextWhileWaiting(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	l := NewLoader(func(ctx context.Context) (string, error) {
		close(started)
		<-release
		return "s", nil
	})

	go l.Acquire(context.Background())
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
}
