package serializer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BotXPertUPC/botflow/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoSaver_SavesOnInterval(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	save := func(ctx context.Context) (*serializer.SaveResult, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return &serializer.SaveResult{Created: 1}, nil
	}

	a := serializer.NewAutoSaver(save, serializer.WithInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)

	assert.False(t, a.LastSaved().IsZero())
	assert.NoError(t, a.Err())
}

func TestAutoSaver_RecordsFailure(t *testing.T) {
	boom := errors.New("backend down")
	save := func(ctx context.Context) (*serializer.SaveResult, error) {
		return nil, boom
	}

	a := serializer.NewAutoSaver(save, serializer.WithInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)

	require.Eventually(t, func() bool { return a.Err() != nil },
		time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, a.Err(), boom)
	assert.True(t, a.LastSaved().IsZero(), "a failed save must not count as saved")
}

func TestAutoSaver_OverlappingTicksAreDropped(t *testing.T) {
	started := make(chan struct{}, 16)
	release := make(chan struct{})
	save := func(ctx context.Context) (*serializer.SaveResult, error) {
		started <- struct{}{}
		<-release
		return &serializer.SaveResult{}, nil
	}

	a := serializer.NewAutoSaver(save, serializer.WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)

	<-started
	// Let several intervals pass while the first save is still running.
	time.Sleep(40 * time.Millisecond)
	select {
	case <-started:
		t.Fatal("a second save started while the first was in flight")
	default:
	}
	close(release)
}

func TestAutoSaver_StopsOnCancel(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	save := func(ctx context.Context) (*serializer.SaveResult, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return &serializer.SaveResult{}, nil
	}

	a := serializer.NewAutoSaver(save, serializer.WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls > 0
	}, time.Second, time.Millisecond)
	cancel()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	after := calls
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, after, calls, "saves must stop after cancellation")
	mu.Unlock()
}
