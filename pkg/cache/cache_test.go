package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type overview struct {
	Days  int   `json:"days"`
	Count int64 `json:"count"`
}

func TestMemoryExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(context.Background(), "k", overview{Days: 7, Count: 3}, time.Minute))
	var got overview
	ok, err := m.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, overview{Days: 7, Count: 3}, got)

	now = now.Add(2 * time.Minute)
	ok, err = m.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemorySweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	require.NoError(t, m.Set(context.Background(), "a", 1, time.Second))
	require.NoError(t, m.Set(context.Background(), "b", 2, time.Hour))

	now = now.Add(time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestLoadCachesResult(t *testing.T) {
	l := NewLoader(NewMemory(), time.Minute, zaptest.NewLogger(t))
	var calls atomic.Int32
	load := func(context.Context) (overview, error) {
		calls.Add(1)
		return overview{Days: 30, Count: 99}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Load(context.Background(), l, "overview:30", load)
		require.NoError(t, err)
		assert.Equal(t, int64(99), got.Count)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoadCollapsesConcurrentMisses(t *testing.T) {
	l := NewLoader(NewMemory(), time.Minute, zaptest.NewLogger(t))
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int64, error) {
		calls.Add(1)
		<-release
		return 5, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Load(context.Background(), l, "k", load)
			assert.NoError(t, err)
			assert.Equal(t, int64(5), v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoadDoesNotCacheErrors(t *testing.T) {
	l := NewLoader(NewMemory(), time.Minute, zaptest.NewLogger(t))
	calls := 0
	load := func(context.Context) (int64, error) {
		calls++
		return 0, errors.New("store down")
	}
	_, err := Load(context.Background(), l, "k", load)
	require.Error(t, err)
	_, err = Load(context.Background(), l, "k", load)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestLoadWithoutCache(t *testing.T) {
	got, err := Load(context.Background(), nil, "k", func(context.Context) (string, error) { return "x", nil })
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestLoadSurvivesFirstCallerCancel(t *testing.T) {
	l := NewLoader(NewMemory(), time.Minute, zaptest.NewLogger(t))
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(ctx context.Context) (int64, error) {
		calls.Add(1)
		close(started)
		select {
		case <-release:
			return 42, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := Load(firstCtx, l, "overview:7", load)
		firstErr <- err
	}()
	<-started

	second := make(chan int64, 1)
	go func() {
		v, err := Load(context.Background(), l, "overview:7", load)
		assert.NoError(t, err)
		second <- v
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	select {
	case v := <-second:
		assert.Equal(t, int64(42), v)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not receive the shared result")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoadTimeoutBoundsSharedLoad(t *testing.T) {
	l := NewLoader(NewMemory(), time.Minute, zaptest.NewLogger(t))
	l.LoadTimeout = 20 * time.Millisecond
	_, err := Load(context.Background(), l, "k", func(ctx context.Context) (int64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
