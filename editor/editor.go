package editor

import (
	"errors"

	"github.com/BotXPertUPC/botflow"
)

// Structural rejections. Each precondition failure maps to its own sentinel
// so hosts can branch on the reason; the session additionally surfaces a
// toast for the user-visible ones.
var (
	ErrNodeNotFound        = errors.New("editor: node not found")
	ErrRootImmutable       = errors.New("editor: the root node cannot be deleted")
	ErrHasOutgoing         = errors.New("editor: node already has an outgoing connection")
	ErrFinalIsTerminal     = errors.New("editor: final nodes must be terminal")
	ErrQuestionNeedsOption = errors.New("editor: question children attach through an option connect")
	ErrFinalChildExists    = errors.New("editor: node already has a final child")
	ErrSourceDetached      = errors.New("editor: cannot attach a final node to a disconnected node")
	ErrNotAQuestion        = errors.New("editor: only question nodes have options")
	ErrOptionOutOfRange    = errors.New("editor: option index out of range")
	ErrOptionTaken         = errors.New("editor: option is already connected")
	ErrPayloadMismatch     = errors.New("editor: payload does not match node kind")
)

// Child placement constants. A new child sits diagonally off its source;
// generic children get a vertical jitter so repeated adds don't stack, and
// option children fan out by option index.
const (
	childOffsetX      = 300
	childOffsetY      = 100
	optionFanSpacing  = 120
	optionFanBaseline = 40
)

// AddNode creates a node of the given kind as the child of sourceID and
// wires exactly one new edge to it. If an option-connect is pending, the
// edge instead leaves the pending question's option and the gesture is
// consumed. On success the new node is recentered on and selected.
func (s *Session) AddNode(kind botflow.NodeKind, sourceID string) (botflow.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.flow.NodeByID(sourceID)
	if src == nil {
		s.notify("The selected node no longer exists.")
		return botflow.Node{}, ErrNodeNotFound
	}
	if src.Kind == botflow.KindFinal {
		s.notify("Final nodes must be terminal.")
		return botflow.Node{}, ErrFinalIsTerminal
	}

	// A question's children may only be attached through an explicit
	// option connect; a generic add on a question is dropped silently.
	p := s.pending
	if src.Kind == botflow.KindQuestion && (p == nil || p.from != sourceID) {
		return botflow.Node{}, ErrQuestionNeedsOption
	}

	edgeSource := sourceID
	if p != nil {
		edgeSource = p.from
	}
	if kind == botflow.KindFinal {
		if err := s.checkFinalAttach(edgeSource); err != nil {
			return botflow.Node{}, err
		}
	}

	f := s.flow.Clone()
	id := f.AllocateID()
	node := botflow.Node{
		ID:   id,
		Kind: kind,
		Position: botflow.Position{
			X: src.Position.X + childOffsetX,
			Y: src.Position.Y + childOffsetY + s.jitter(),
		},
		Payload: botflow.DefaultPayload(kind),
	}
	f.Nodes = append(f.Nodes, node)

	edge := botflow.Edge{
		ID:     botflow.EdgeID(edgeSource, id),
		Source: edgeSource,
		Target: id,
	}
	if p != nil {
		edge.SourceHandle = botflow.OptionHandle(p.optionIndex)
		if q := f.NodeByID(p.from); q != nil {
			if qp, ok := q.Payload.(botflow.QuestionPayload); ok {
				qp.Connections[p.optionIndex] = id
				q.Payload = qp
			}
		}
	}
	f.Edges = append(f.Edges, edge)

	s.flow = f
	s.pending = nil
	s.recenter(node.Position)
	s.selectLocked(id)
	s.logger.Debug("node added", "id", id, "kind", kind, "source", edgeSource)
	return node, nil
}

// BeginOptionConnect marks one of a question's options as awaiting a target
// kind (Idle -> AwaitingKind). The next AddNode or ConnectOption commits it.
func (s *Session) BeginOptionConnect(fromID string, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.flow.NodeByID(fromID)
	if from == nil {
		return ErrNodeNotFound
	}
	q := from.Question()
	if q == nil {
		return ErrNotAQuestion
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return ErrOptionOutOfRange
	}
	if _, taken := q.Connections[optionIndex]; taken {
		s.notify("That option is already connected.")
		return ErrOptionTaken
	}
	s.pending = &pendingConnect{from: fromID, optionIndex: optionIndex}
	return nil
}

// CancelOptionConnect returns the gesture to Idle without committing.
func (s *Session) CancelOptionConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// ConnectOption creates a node of the given kind pre-addressed to one of a
// question's options: the committing half of the option-connect gesture,
// callable directly without a prior BeginOptionConnect. Option children fan
// out vertically by option index.
func (s *Session) ConnectOption(fromID string, optionIndex int, kind botflow.NodeKind) (botflow.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.flow.NodeByID(fromID)
	if from == nil {
		s.notify("The selected node no longer exists.")
		return botflow.Node{}, ErrNodeNotFound
	}
	if from.Kind == botflow.KindFinal {
		// Unreachable if invariants held upstream, kept as a guard.
		s.notify("Final nodes must be terminal.")
		return botflow.Node{}, ErrFinalIsTerminal
	}
	q := from.Question()
	if q == nil {
		return botflow.Node{}, ErrNotAQuestion
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return botflow.Node{}, ErrOptionOutOfRange
	}
	if _, taken := q.Connections[optionIndex]; taken {
		s.notify("That option is already connected.")
		return botflow.Node{}, ErrOptionTaken
	}
	if kind == botflow.KindFinal {
		if err := s.checkFinalAttach(fromID); err != nil {
			return botflow.Node{}, err
		}
	}

	f := s.flow.Clone()
	id := f.AllocateID()
	node := botflow.Node{
		ID:   id,
		Kind: kind,
		Position: botflow.Position{
			X: from.Position.X + childOffsetX,
			Y: from.Position.Y + float64(optionIndex)*optionFanSpacing + optionFanBaseline,
		},
		Payload: botflow.DefaultPayload(kind),
	}
	f.Nodes = append(f.Nodes, node)
	f.Edges = append(f.Edges, botflow.Edge{
		ID:           botflow.EdgeID(fromID, id),
		Source:       fromID,
		Target:       id,
		SourceHandle: botflow.OptionHandle(optionIndex),
	})
	if n := f.NodeByID(fromID); n != nil {
		qp := n.Payload.(botflow.QuestionPayload)
		qp.Connections[optionIndex] = id
		n.Payload = qp
	}

	s.flow = f
	s.pending = nil
	s.recenter(node.Position)
	s.selectLocked(id)
	s.logger.Debug("option connected", "question", fromID, "option", optionIndex, "target", id)
	return node, nil
}

// Connect wires an edge between two existing nodes (the drag-and-drop direct
// connect). The single-successor rule is enforced uniformly: any source that
// already has an outgoing edge is rejected, and a final node can never be a
// source.
func (s *Session) Connect(sourceID, targetID, sourceHandle string) (botflow.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.flow.NodeByID(sourceID)
	if src == nil || s.flow.NodeByID(targetID) == nil {
		return botflow.Edge{}, ErrNodeNotFound
	}
	if src.Kind == botflow.KindFinal {
		s.notify("Final nodes must be terminal.")
		return botflow.Edge{}, ErrFinalIsTerminal
	}
	if s.flow.HasOutgoingEdge(sourceID) {
		return botflow.Edge{}, ErrHasOutgoing
	}

	f := s.flow.Clone()
	edge := botflow.Edge{
		ID:           botflow.EdgeID(sourceID, targetID),
		Source:       sourceID,
		Target:       targetID,
		SourceHandle: sourceHandle,
	}
	f.Edges = append(f.Edges, edge)
	s.flow = f
	return edge, nil
}

// DeleteNode removes a leaf node, its touching edges, and any question
// connection pointing at it, then hands focus back to the former parent.
// Deleting an id that is already absent is a no-op success.
func (s *Session) DeleteNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

func (s *Session) deleteLocked(id string) error {
	if s.flow.NodeByID(id) == nil {
		return nil
	}
	if id == botflow.RootID {
		s.notify("You can't delete this node.")
		return ErrRootImmutable
	}
	// Checking the outgoing edge before removal is what keeps a subtree from
	// being orphaned: a node is only deletable once it is a leaf.
	if s.flow.HasOutgoingEdge(id) {
		s.notify("Remove the downstream connections first.")
		return ErrHasOutgoing
	}

	parent, hasParent := s.flow.FindParent(id)

	f := s.flow.Clone()
	nodes := f.Nodes[:0]
	for _, n := range f.Nodes {
		if n.ID == id {
			continue
		}
		if qp, ok := n.Payload.(botflow.QuestionPayload); ok {
			for idx, target := range qp.Connections {
				if target == id {
					delete(qp.Connections, idx)
				}
			}
			n.Payload = qp
		}
		nodes = append(nodes, n)
	}
	f.Nodes = nodes

	edges := f.Edges[:0]
	for _, e := range f.Edges {
		if e.Source == id || e.Target == id {
			continue
		}
		edges = append(edges, e)
	}
	f.Edges = edges

	s.flow = f
	if hasParent {
		if p := s.flow.NodeByID(parent); p != nil {
			s.recenter(p.Position)
		}
		s.selectLocked(parent)
	} else {
		s.selected = ""
	}
	s.ensureSelection()
	s.logger.Debug("node deleted", "id", id, "parent", parent)
	return nil
}

// HandleDeleteKey binds the Delete/Backspace shortcut to DeleteNode on the
// current selection. The editableFocused guard is a correctness requirement,
// not styling: without it, pressing Backspace inside a text field would
// destroy graph state.
func (s *Session) HandleDeleteKey(key string, editableFocused bool) error {
	if editableFocused {
		return nil
	}
	if key != "Delete" && key != "Backspace" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return nil
	}
	return s.deleteLocked(s.selected)
}

// UpdatePayload replaces a node's payload. Only content changes travel this
// path; topology is untouched. The payload's concrete type must match the
// node's kind.
func (s *Session) UpdatePayload(id string, p botflow.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.flow.NodeByID(id)
	if n == nil {
		return ErrNodeNotFound
	}
	if !payloadMatches(n.Kind, p) {
		return ErrPayloadMismatch
	}
	f := s.flow.Clone()
	f.NodeByID(id).Payload = p
	s.flow = f
	return nil
}

// checkFinalAttach enforces the two extra preconditions for creating a
// final child of sourceID: at most one final per immediate parent, and the
// parent must be reachable (the root, or have an incoming edge).
func (s *Session) checkFinalAttach(sourceID string) error {
	for _, e := range s.flow.Edges {
		if e.Source != sourceID {
			continue
		}
		if t := s.flow.NodeByID(e.Target); t != nil && t.Kind == botflow.KindFinal {
			s.notify("This node already has a final child.")
			return ErrFinalChildExists
		}
	}
	if sourceID != botflow.RootID {
		if _, ok := s.flow.FindParent(sourceID); !ok {
			s.notify("Connect this node to the flow before ending it.")
			return ErrSourceDetached
		}
	}
	return nil
}

func payloadMatches(kind botflow.NodeKind, p botflow.Payload) bool {
	switch p.(type) {
	case botflow.StartPayload:
		return kind == botflow.KindStart
	case botflow.MessagePayload:
		return kind == botflow.KindMessage
	case botflow.AnswerPayload:
		return kind == botflow.KindAnswer
	case botflow.QuestionPayload:
		return kind == botflow.KindQuestion
	case botflow.ImagePayload:
		return kind == botflow.KindImage
	case botflow.FinalPayload:
		return kind == botflow.KindFinal
	default:
		return false
	}
}
