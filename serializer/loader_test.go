package serializer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BotXPertUPC/botflow"
	"github.com/BotXPertUPC/botflow/memory"
	"github.com/BotXPertUPC/botflow/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateStore blocks ListFlowNodes until released, to hold a load in flight.
type gateStore struct {
	botflow.Store
	release chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (g *gateStore) ListFlowNodes(ctx context.Context, flowID int) ([]botflow.PersistedNode, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Store.ListFlowNodes(ctx, flowID)
}

func TestLoader_SingleFlight(t *testing.T) {
	gate := &gateStore{
		Store:   memory.New(),
		release: make(chan struct{}),
		entered: make(chan struct{}),
	}
	loader := serializer.NewLoader(serializer.New(gate, 1))

	done := make(chan error, 1)
	go func() {
		_, err := loader.Load(context.Background())
		done <- err
	}()

	<-gate.entered
	assert.True(t, loader.Loading())

	// A second load while one is in flight is rejected, not queued.
	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, serializer.ErrLoadInFlight)

	close(gate.release)
	require.NoError(t, <-done)

	require.Eventually(t, func() bool { return !loader.Loading() },
		time.Second, 5*time.Millisecond)

	// With the first load settled, a new one goes through.
	f, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.Nodes, 1)
}
