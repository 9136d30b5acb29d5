// Package memory implements botflow.Store in memory, for tests and examples.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/BotXPertUPC/botflow"
)

// Store is an in-memory botflow.Store. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	flows      map[int]botflow.Botflow
	nodes      map[int]botflow.PersistedNode
	options    map[int]botflow.ListOption
	nextFlow   int
	nextOption int
}

// New creates an empty in-memory store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.flows = make(map[int]botflow.Botflow)
	s.nodes = make(map[int]botflow.PersistedNode)
	s.options = make(map[int]botflow.ListOption)
	s.nextFlow = 1
	s.nextOption = 1
}

// CreateSchema is a no-op for the in-memory store.
func (s *Store) CreateSchema(ctx context.Context) error {
	return nil
}

// DropSchema discards everything.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

// CreateFlow stores a botflow record and assigns its id.
func (s *Store) CreateFlow(ctx context.Context, f *botflow.Botflow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = s.nextFlow
	s.nextFlow++
	s.flows[f.ID] = *f
	return f.ID, nil
}

// GetFlow fetches a botflow record by id.
func (s *Store) GetFlow(ctx context.Context, id int) (*botflow.Botflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flows[id]
	if !ok {
		return nil, botflow.ErrFlowNotFound
	}
	return &f, nil
}

// UpdateFlow replaces a botflow record.
func (s *Store) UpdateFlow(ctx context.Context, f *botflow.Botflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[f.ID]; !ok {
		return botflow.ErrFlowNotFound
	}
	s.flows[f.ID] = *f
	return nil
}

// DeleteFlow removes a botflow record and everything attached to it.
func (s *Store) DeleteFlow(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, id)
	for nid, n := range s.nodes {
		if n.BotFlow != id {
			continue
		}
		for oid, o := range s.options {
			if o.Node == nid {
				delete(s.options, oid)
			}
		}
		delete(s.nodes, nid)
	}
	return nil
}

// ListFlows returns all botflow records ordered by id.
func (s *Store) ListFlows(ctx context.Context) ([]botflow.Botflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flows := make([]botflow.Botflow, 0, len(s.flows))
	for _, f := range s.flows {
		flows = append(flows, f)
	}
	sort.Slice(flows, func(i, j int) bool { return flows[i].ID < flows[j].ID })
	return flows, nil
}

// ListFlowNodes returns a flow's nodes ordered by id.
func (s *Store) ListFlowNodes(ctx context.Context, flowID int) ([]botflow.PersistedNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := []botflow.PersistedNode{}
	for _, n := range s.nodes {
		if n.BotFlow == flowID {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes, nil
}

// CreateNode stores a node under its caller-supplied id.
// Returns botflow.ErrConflict if the id is taken.
func (s *Store) CreateNode(ctx context.Context, n *botflow.PersistedNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[n.ID]; ok {
		return botflow.ErrConflict
	}
	s.nodes[n.ID] = *n
	return nil
}

// UpdateNode replaces a node record.
func (s *Store) UpdateNode(ctx context.Context, n *botflow.PersistedNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[n.ID]; !ok {
		return botflow.ErrPersistedNodeNotFound
	}
	s.nodes[n.ID] = *n
	return nil
}

// DeleteNode removes a node and its options. No error if absent.
func (s *Store) DeleteNode(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
	for oid, o := range s.options {
		if o.Node == id {
			delete(s.options, oid)
		}
	}
	return nil
}

// ListOptions returns every list option ordered by id.
func (s *Store) ListOptions(ctx context.Context) ([]botflow.ListOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	options := []botflow.ListOption{}
	for _, o := range s.options {
		options = append(options, o)
	}
	sort.Slice(options, func(i, j int) bool { return options[i].ID < options[j].ID })
	return options, nil
}

// CreateOption stores a list option and assigns its id.
func (s *Store) CreateOption(ctx context.Context, o *botflow.ListOption) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.nextOption
	s.nextOption++
	s.options[o.ID] = *o
	return o.ID, nil
}

// DeleteOption removes a list option. No error if absent.
func (s *Store) DeleteOption(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.options, id)
	return nil
}
