package serializer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultAutoSaveInterval is how often an AutoSaver runs when not configured
// otherwise.
const DefaultAutoSaveInterval = time.Minute

// SaveFunc captures the snapshot-and-save action the host wires up, usually
// closing over a session's Nodes/Edges accessors and Serializer.Save.
type SaveFunc func(ctx context.Context) (*SaveResult, error)

// AutoSaver periodically runs a save in the background. Runs never overlap:
// a tick that fires while the previous save is still going is dropped, and
// the next tick tries again. Save is last-snapshot-wins, so a dropped tick
// loses nothing that the following one won't capture.
type AutoSaver struct {
	save     SaveFunc
	interval time.Duration
	logger   *slog.Logger

	stateMu   sync.Mutex
	running   bool
	lastSaved time.Time
	lastErr   error
}

// AutoSaverOption configures an AutoSaver.
type AutoSaverOption func(*AutoSaver)

// WithInterval overrides the save interval.
func WithInterval(d time.Duration) AutoSaverOption {
	return func(a *AutoSaver) { a.interval = d }
}

// WithAutoSaveLogger sets the auto-saver's structured logger.
func WithAutoSaveLogger(l *slog.Logger) AutoSaverOption {
	return func(a *AutoSaver) { a.logger = l }
}

// NewAutoSaver builds an auto-saver around a save function.
func NewAutoSaver(save SaveFunc, opts ...AutoSaverOption) *AutoSaver {
	a := &AutoSaver{
		save:     save,
		interval: DefaultAutoSaveInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start launches the background loop. It returns immediately; the loop
// stops when ctx is cancelled.
func (a *AutoSaver) Start(ctx context.Context) {
	go a.run(ctx)
}

func (a *AutoSaver) run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *AutoSaver) tick(ctx context.Context) {
	a.stateMu.Lock()
	if a.running {
		a.stateMu.Unlock()
		return
	}
	a.running = true
	a.stateMu.Unlock()

	result, err := a.save(ctx)

	a.stateMu.Lock()
	a.running = false
	a.lastErr = err
	if err == nil {
		a.lastSaved = time.Now()
	}
	a.stateMu.Unlock()

	if err != nil {
		a.logger.Warn("autosave failed", "err", err)
		return
	}
	if len(result.Skipped) > 0 {
		a.logger.Warn("autosave finished with skipped relations", "skipped", len(result.Skipped))
	}
}

// LastSaved returns when the last successful save finished (zero if never).
func (a *AutoSaver) LastSaved() time.Time {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.lastSaved
}

// Err returns the most recent save error, or nil.
func (a *AutoSaver) Err() error {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.lastErr
}
