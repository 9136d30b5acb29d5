// Package editor implements the structural editing engine for chatbot flow
// graphs: topology mutations with precondition checks, single-node selection
// with viewport recentering, a two-phase option-connect gesture, and the
// node inspector binding.
package editor

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/BotXPertUPC/botflow"
	"github.com/google/uuid"
)

// ToastDuration is how long a rejection notification should stay visible
// before auto-dismissing. Display is the host's concern; the constant lives
// here so every surface dismisses at the same pace.
const ToastDuration = 2500 * time.Millisecond

// Recenter constants. A recenter targets the node position offset by half
// the rendered node size, so the same input position always yields the same
// requested center.
const (
	nodeCenterOffsetX = 125
	nodeCenterOffsetY = 50
	recenterZoom      = 1.0
	recenterDuration  = 1500 * time.Millisecond
)

// CenterRequest asks the canvas to animate to a center point.
type CenterRequest struct {
	X        float64
	Y        float64
	Zoom     float64
	Duration time.Duration
}

// Notifier receives user-facing rejection messages (transient toasts).
type Notifier interface {
	Toast(msg string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(msg string)

func (f NotifierFunc) Toast(msg string) { f(msg) }

// Viewport receives recenter requests from the session.
type Viewport interface {
	SetCenter(req CenterRequest)
}

// ViewportFunc adapts a function to the Viewport interface.
type ViewportFunc func(req CenterRequest)

func (f ViewportFunc) SetCenter(req CenterRequest) { f(req) }

// pendingConnect is the AwaitingKind state of the option-connect gesture.
// A nil pointer is the Idle state.
type pendingConnect struct {
	from        string
	optionIndex int
}

// Session owns one flow for the duration of one editing session. All
// mutations go through it: operations validate their preconditions against
// the current flow, build the mutated flow on a clone, and swap it in
// wholesale, so a rejected or failed operation never partially applies.
type Session struct {
	mu       sync.Mutex
	id       uuid.UUID
	flow     *botflow.Flow
	selected string
	pending  *pendingConnect

	notifier Notifier
	viewport Viewport
	logger   *slog.Logger
	jitter   func() float64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithNotifier routes rejection toasts to n.
func WithNotifier(n Notifier) SessionOption {
	return func(s *Session) { s.notifier = n }
}

// WithViewport routes recenter requests to v.
func WithViewport(v Viewport) SessionOption {
	return func(s *Session) { s.viewport = v }
}

// WithLogger sets the session's structured logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithJitter replaces the placement jitter source. The function must return
// a value in [0, 100); tests inject a constant to make placement exact.
func WithJitter(fn func() float64) SessionOption {
	return func(s *Session) { s.jitter = fn }
}

// NewSession creates a session holding the default single-start flow and
// auto-selects the root.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:     uuid.New(),
		flow:   botflow.New(),
		logger: slog.Default(),
		jitter: func() float64 { return rand.Float64() * 100 },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id.String())
	s.ensureSelection()
	return s
}

// ID identifies this editing session in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// Flow returns a snapshot of the whole flow, for validation and saving.
func (s *Session) Flow() *botflow.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.Clone()
}

// Nodes returns a snapshot of the current node list.
func (s *Session) Nodes() []botflow.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.Clone().Nodes
}

// Edges returns a snapshot of the current edge list.
func (s *Session) Edges() []botflow.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.Clone().Edges
}

// NodeSnapshot returns a copy of one node.
func (s *Session) NodeSnapshot(id string) (botflow.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.flow.NodeByID(id)
	if n == nil {
		return botflow.Node{}, false
	}
	c := *n
	if q := n.Question(); q != nil {
		cq := botflow.QuestionPayload{
			Text:        q.Text,
			Options:     append([]string(nil), q.Options...),
			Connections: make(map[int]string, len(q.Connections)),
		}
		for k, v := range q.Connections {
			cq.Connections[k] = v
		}
		c.Payload = cq
	}
	return c, true
}

// SetNodes bulk-replaces the node list, used by the load path. Selection is
// dropped if the selected node disappeared and then corrected back to the
// root, matching the reactive auto-select rule.
func (s *Session) SetNodes(nodes []botflow.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flow.Clone()
	f.Nodes = append([]botflow.Node(nil), nodes...)
	s.flow = f
	if s.selected != "" && s.flow.NodeByID(s.selected) == nil {
		s.selected = ""
	}
	s.ensureSelection()
}

// SetEdges bulk-replaces the edge list, used by the load path.
func (s *Session) SetEdges(edges []botflow.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flow.Clone()
	f.Edges = append([]botflow.Edge(nil), edges...)
	s.flow = f
}

// Restore replaces the whole flow, counter included. Used after a load so
// future ids never collide with loaded ones.
func (s *Session) Restore(f *botflow.Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow = f.Clone()
	s.pending = nil
	s.selected = ""
	s.ensureSelection()
}

// SelectedNode returns the currently selected node id, or "".
func (s *Session) SelectedNode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// SelectNode sets the selection and updates every node's Selected flag in
// the same mutation, so a single node is ever highlighted. Passing "" clears
// the selection (the reactive rule immediately re-selects the root).
func (s *Session) SelectNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectLocked(id)
	s.ensureSelection()
}

// PendingConnect reports the AwaitingKind state of the option-connect
// gesture, if any.
func (s *Session) PendingConnect() (fromID string, optionIndex int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return "", 0, false
	}
	return s.pending.from, s.pending.optionIndex, true
}

func (s *Session) selectLocked(id string) {
	s.selected = id
	for i := range s.flow.Nodes {
		s.flow.Nodes[i].Selected = s.flow.Nodes[i].ID == id
	}
}

// ensureSelection keeps the invariant that a non-empty flow always has a
// selection: with nothing selected, the root is picked. It runs after every
// mutation rather than once at init so it also recovers from bulk resets.
func (s *Session) ensureSelection() {
	if s.selected != "" {
		return
	}
	if s.flow.NodeByID(botflow.RootID) != nil {
		s.selectLocked(botflow.RootID)
	}
}

func (s *Session) notify(msg string) {
	if s.notifier != nil {
		s.notifier.Toast(msg)
	}
}

func (s *Session) recenter(pos botflow.Position) {
	if s.viewport == nil {
		return
	}
	s.viewport.SetCenter(CenterRequest{
		X:        pos.X + nodeCenterOffsetX,
		Y:        pos.Y + nodeCenterOffsetY,
		Zoom:     recenterZoom,
		Duration: recenterDuration,
	})
}
