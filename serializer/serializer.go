// Package serializer translates between the in-memory flow graph and the
// backend's linked-list-with-branches representation: nodes chained through
// next_node, question branching expressed as list-option rows.
package serializer

import (
	"log/slog"

	"github.com/BotXPertUPC/botflow"
)

// Serializer walks a flow and drives a botflow.Store with it (save), or
// rebuilds the flow from the store's records (load). One serializer is bound
// to one botflow id.
type Serializer struct {
	store  botflow.Store
	flowID int
	logger *slog.Logger
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithLogger sets the serializer's structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Serializer) { s.logger = l }
}

// New creates a serializer for one botflow backed by the given store.
func New(store botflow.Store, flowID int, opts ...Option) *Serializer {
	s := &Serializer{
		store:  store,
		flowID: flowID,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("botflow", flowID)
	return s
}
