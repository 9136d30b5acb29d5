package botflow_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/BotXPertUPC/botflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds start -> message -> ... -> final with n intermediate messages.
func chain(n int) *botflow.Flow {
	f := botflow.New()
	prev := botflow.RootID
	for i := 0; i < n; i++ {
		id := f.AllocateID()
		f.Nodes = append(f.Nodes, botflow.Node{ID: id, Kind: botflow.KindMessage, Payload: botflow.MessagePayload{}})
		f.Edges = append(f.Edges, botflow.Edge{ID: botflow.EdgeID(prev, id), Source: prev, Target: id})
		prev = id
	}
	id := f.AllocateID()
	f.Nodes = append(f.Nodes, botflow.Node{ID: id, Kind: botflow.KindFinal, Payload: botflow.FinalPayload{}})
	f.Edges = append(f.Edges, botflow.Edge{ID: botflow.EdgeID(prev, id), Source: prev, Target: id})
	return f
}

func TestValidate_WellFormedFlow(t *testing.T) {
	r := botflow.Validate(chain(2))
	assert.True(t, r.Valid())
	assert.Empty(t, r.Errors)
	assert.Empty(t, r.Warnings)
}

func TestValidate_DanglingNonFinal(t *testing.T) {
	f := botflow.New() // lone start node, no outgoing edge
	r := botflow.Validate(f)

	assert.False(t, r.Valid())
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "no outgoing connection")
}

func TestValidate_TooManyFinals_Warns(t *testing.T) {
	f := chain(1)
	// Park extra finals beyond the threshold, all hanging off the root.
	for i := 0; i < botflow.MaxFinalNodes+1; i++ {
		id := f.AllocateID()
		f.Nodes = append(f.Nodes, botflow.Node{ID: id, Kind: botflow.KindFinal, Payload: botflow.FinalPayload{}})
		f.Edges = append(f.Edges, botflow.Edge{ID: botflow.EdgeID(botflow.RootID, id), Source: botflow.RootID, Target: id})
	}

	r := botflow.Validate(f)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], fmt.Sprintf("%d final nodes", botflow.MaxFinalNodes+2))
}

func TestValidate_FinalWithOutgoing(t *testing.T) {
	f := chain(0)
	finalID := f.Nodes[1].ID
	id := f.AllocateID()
	f.Nodes = append(f.Nodes, botflow.Node{ID: id, Kind: botflow.KindFinal, Payload: botflow.FinalPayload{}})
	f.Edges = append(f.Edges, botflow.Edge{ID: botflow.EdgeID(finalID, id), Source: finalID, Target: id})

	r := botflow.Validate(f)
	assert.False(t, r.Valid())

	var sawChain, sawOutgoing bool
	for _, e := range r.Errors {
		if strings.Contains(e, "connected to final node") {
			sawChain = true
		}
		if strings.Contains(e, "outgoing connections") {
			sawOutgoing = true
		}
	}
	assert.True(t, sawChain, "final-to-final chain not reported: %v", r.Errors)
	assert.True(t, sawOutgoing, "final outgoing edge not reported: %v", r.Errors)
}
