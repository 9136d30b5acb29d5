package botflow

import (
	"context"
	"errors"
)

var (
	ErrFlowNotFound          = errors.New("botflow: flow not found")
	ErrPersistedNodeNotFound = errors.New("botflow: persisted node not found")
	ErrOptionNotFound        = errors.New("botflow: list option not found")
	ErrConflict              = errors.New("botflow: id already exists")
)

// PersistedType is the backend-side node type.
type PersistedType string

const (
	TypeStart  PersistedType = "START"
	TypeText   PersistedType = "TEXT"
	TypeList   PersistedType = "LIST"
	TypeEnd    PersistedType = "END"
	TypeAnswer PersistedType = "ANSWER"
)

// PersistedTypeFor maps a graph-side kind to its persisted type.
// Images persist as TEXT carrying a JSON payload in the text field.
func PersistedTypeFor(kind NodeKind) PersistedType {
	switch kind {
	case KindStart:
		return TypeStart
	case KindQuestion:
		return TypeList
	case KindFinal:
		return TypeEnd
	case KindAnswer:
		return TypeAnswer
	default:
		return TypeText
	}
}

// Botflow is one chatbot's metadata record.
type Botflow struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PhoneNumber string `json:"phone_number"`
}

// PersistedNode is the backend's relational representation of a flow node.
// NextNode chains single-successor nodes; it must stay null on LIST nodes,
// whose branching lives in ListOption rows instead.
type PersistedNode struct {
	ID         int           `json:"id"`
	BotFlow    int           `json:"bot_flow"`
	Type       PersistedType `json:"type"`
	Text       string        `json:"text,omitempty"`
	PositionX  float64       `json:"position_x"`
	PositionY  float64       `json:"position_y"`
	ListHeader string        `json:"list_header,omitempty"`
	NextNode   *int          `json:"next_node"`
}

// Key returns the persisted node's position-based join key.
func (n *PersistedNode) Key() string {
	return Position{X: n.PositionX, Y: n.PositionY}.Key()
}

// ListOption is one selectable branch of a persisted LIST node.
type ListOption struct {
	ID         int    `json:"id"`
	Node       int    `json:"node"`
	Label      string `json:"label"`
	TargetNode *int   `json:"target_node"`
}

// Store is the persistence gateway contract consumed by the flow serializer.
// Deletes are idempotent: removing an absent record is not an error.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Botflows
	CreateFlow(ctx context.Context, f *Botflow) (int, error)
	GetFlow(ctx context.Context, id int) (*Botflow, error)
	UpdateFlow(ctx context.Context, f *Botflow) error
	DeleteFlow(ctx context.Context, id int) error
	ListFlows(ctx context.Context) ([]Botflow, error)

	// Nodes
	ListFlowNodes(ctx context.Context, flowID int) ([]PersistedNode, error)
	CreateNode(ctx context.Context, n *PersistedNode) error
	UpdateNode(ctx context.Context, n *PersistedNode) error
	DeleteNode(ctx context.Context, id int) error

	// List options
	ListOptions(ctx context.Context) ([]ListOption, error)
	CreateOption(ctx context.Context, o *ListOption) (int, error)
	DeleteOption(ctx context.Context, id int) error
}
