package serializer

import (
	"context"
	"errors"
	"sync"

	"github.com/BotXPertUPC/botflow"
)

// ErrLoadInFlight is returned when a load is requested while another one is
// still running.
var ErrLoadInFlight = errors.New("serializer: a load is already in flight")

// Loader wraps a Serializer so at most one load runs at a time. A second
// request while one is in flight is rejected rather than queued; the editor
// is conceptually read-only for new loads until the first one settles.
type Loader struct {
	s *Serializer

	mu      sync.Mutex
	loading bool
}

// NewLoader creates a single-flight loader over a serializer.
func NewLoader(s *Serializer) *Loader {
	return &Loader{s: s}
}

// Load runs Serializer.Load unless one is already in flight.
func (l *Loader) Load(ctx context.Context) (*botflow.Flow, error) {
	l.mu.Lock()
	if l.loading {
		l.mu.Unlock()
		return nil, ErrLoadInFlight
	}
	l.loading = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.loading = false
		l.mu.Unlock()
	}()
	return l.s.Load(ctx)
}

// Loading reports whether a load is currently in flight.
func (l *Loader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}
