package botflow

import (
	"fmt"
	"math"
)

// NodeKind is the semantic type of a flow node.
type NodeKind string

const (
	KindStart    NodeKind = "start"
	KindMessage  NodeKind = "message"
	KindQuestion NodeKind = "question"
	KindAnswer   NodeKind = "answer"
	KindImage    NodeKind = "image"
	KindFinal    NodeKind = "final"
)

// RootID is the fixed id of the single start node every flow begins with.
const RootID = "1"

// Position is a node's canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Key returns the position-based join key used to match an in-memory node
// against its freshly created persisted counterpart. Coordinates are rounded
// to the nearest integer because the two sides may disagree on float noise.
func (p Position) Key() string {
	return fmt.Sprintf("%d-%d", int(math.Round(p.X)), int(math.Round(p.Y)))
}

// Payload is the kind-specific content of a node. Exactly one concrete
// payload type exists per NodeKind.
type Payload interface {
	isPayload()
}

// StartPayload is the content of the root start node.
type StartPayload struct {
	Label string `json:"label"`
}

// MessagePayload is the content of a message node.
type MessagePayload struct {
	Text string `json:"text"`
}

// AnswerPayload is the content of a free-text answer node.
type AnswerPayload struct {
	Text string `json:"text"`
}

// QuestionPayload is the content of a question-with-options node.
// Connections maps an option index to the child node reached by picking that
// option; the map is sparse and holds at most one target per index.
type QuestionPayload struct {
	Text        string         `json:"text"`
	Options     []string       `json:"options"`
	Connections map[int]string `json:"connections"`
}

// ImagePayload is the content of an image node.
type ImagePayload struct {
	ImageURL string `json:"imageUrl"`
	AltText  string `json:"altText"`
}

// FinalPayload is the content of a terminal node.
type FinalPayload struct {
	Label string `json:"label"`
}

func (StartPayload) isPayload()    {}
func (MessagePayload) isPayload()  {}
func (AnswerPayload) isPayload()   {}
func (QuestionPayload) isPayload() {}
func (ImagePayload) isPayload()    {}
func (FinalPayload) isPayload()    {}

// Node is a vertex in a flow graph.
// Selected mirrors the session's single selection onto the node itself so a
// rendering substrate can highlight it without a side channel.
type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Position Position `json:"position"`
	Selected bool     `json:"selected,omitempty"`
	Payload  Payload  `json:"payload"`
}

// Question returns a copy of the node's question payload, or nil for other
// kinds. Mutations must go through the node's Payload field.
func (n *Node) Question() *QuestionPayload {
	if q, ok := n.Payload.(QuestionPayload); ok {
		return &q
	}
	return nil
}

// Edge is a directed connection between two nodes.
// SourceHandle is set only when the source is a question node, identifying
// which option the edge represents ("option-<index>").
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// OptionHandle builds the source-handle id for a question option.
func OptionHandle(index int) string {
	return fmt.Sprintf("option-%d", index)
}

// EdgeID builds the deterministic edge id for a source/target pair.
func EdgeID(source, target string) string {
	return fmt.Sprintf("e%s-%s", source, target)
}

// Flow is the directed graph of conversation nodes and edges for one chatbot.
// NextID is the counter behind new node ids; it only ever grows so ids are
// never reused, even after deletion.
type Flow struct {
	Nodes  []Node `json:"nodes"`
	Edges  []Edge `json:"edges"`
	NextID int    `json:"next_id"`
}

// New creates the default flow: a single start node at the root position and
// an id counter pointing past it.
func New() *Flow {
	return &Flow{
		Nodes: []Node{{
			ID:       RootID,
			Kind:     KindStart,
			Position: Position{X: 100, Y: 100},
			Payload:  StartPayload{Label: "Inici"},
		}},
		Edges:  []Edge{},
		NextID: 2,
	}
}

// Clone returns a deep copy of the flow. Editing operations work on a clone
// and the session swaps it in wholesale, so no operation partially applies.
func (f *Flow) Clone() *Flow {
	c := &Flow{
		Nodes:  make([]Node, len(f.Nodes)),
		Edges:  make([]Edge, len(f.Edges)),
		NextID: f.NextID,
	}
	copy(c.Edges, f.Edges)
	for i, n := range f.Nodes {
		if q, ok := n.Payload.(QuestionPayload); ok {
			cq := QuestionPayload{
				Text:        q.Text,
				Options:     append([]string(nil), q.Options...),
				Connections: make(map[int]string, len(q.Connections)),
			}
			for k, v := range q.Connections {
				cq.Connections[k] = v
			}
			n.Payload = cq
		}
		c.Nodes[i] = n
	}
	return c
}

// NodeByID returns a pointer into the flow's node slice, or nil.
func (f *Flow) NodeByID(id string) *Node {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i]
		}
	}
	return nil
}

// HasOutgoingEdge reports whether any edge leaves the given node.
func (f *Flow) HasOutgoingEdge(id string) bool {
	for _, e := range f.Edges {
		if e.Source == id {
			return true
		}
	}
	return false
}

// FindParent returns the source of the (at most one) edge targeting the
// given node. A question-branch target still has exactly one parent edge.
func (f *Flow) FindParent(id string) (string, bool) {
	for _, e := range f.Edges {
		if e.Target == id {
			return e.Source, true
		}
	}
	return "", false
}

// OutDegree counts the edges leaving a node.
func (f *Flow) OutDegree(id string) int {
	n := 0
	for _, e := range f.Edges {
		if e.Source == id {
			n++
		}
	}
	return n
}

// AllocateID hands out the next numeric node id and bumps the counter.
func (f *Flow) AllocateID() string {
	id := fmt.Sprintf("%d", f.NextID)
	f.NextID++
	return id
}

// DefaultPayload builds the default-initialized payload for a kind.
// Questions start with two placeholder options and no connections.
func DefaultPayload(kind NodeKind) Payload {
	switch kind {
	case KindStart:
		return StartPayload{Label: "Inici"}
	case KindQuestion:
		return QuestionPayload{
			Options:     []string{"Opció 1", "Opció 2"},
			Connections: map[int]string{},
		}
	case KindImage:
		return ImagePayload{}
	case KindAnswer:
		return AnswerPayload{}
	case KindFinal:
		return FinalPayload{Label: "Fi del flux"}
	default:
		return MessagePayload{}
	}
}
