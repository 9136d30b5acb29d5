package memory_test

import (
	"context"
	"testing"

	"github.com/BotXPertUPC/botflow"
	"github.com/BotXPertUPC/botflow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_FlowCRUD(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	id, err := s.CreateFlow(ctx, &botflow.Botflow{Name: "bot", PhoneNumber: "+34 600 000 000"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	f, err := s.GetFlow(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "bot", f.Name)

	f.Description = "updated"
	require.NoError(t, s.UpdateFlow(ctx, f))
	f, err = s.GetFlow(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "updated", f.Description)

	_, err = s.GetFlow(ctx, 99)
	assert.ErrorIs(t, err, botflow.ErrFlowNotFound)
	assert.ErrorIs(t, s.UpdateFlow(ctx, &botflow.Botflow{ID: 99}), botflow.ErrFlowNotFound)

	flows, err := s.ListFlows(ctx)
	require.NoError(t, err)
	assert.Len(t, flows, 1)

	require.NoError(t, s.DeleteFlow(ctx, id))
	_, err = s.GetFlow(ctx, id)
	assert.ErrorIs(t, err, botflow.ErrFlowNotFound)
}

func TestStore_NodeCRUD(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	flowID, err := s.CreateFlow(ctx, &botflow.Botflow{Name: "bot"})
	require.NoError(t, err)

	n := &botflow.PersistedNode{ID: 1, BotFlow: flowID, Type: botflow.TypeStart, Text: "Inici"}
	require.NoError(t, s.CreateNode(ctx, n))

	// Node ids are caller-supplied; reusing one is a conflict.
	assert.ErrorIs(t, s.CreateNode(ctx, n), botflow.ErrConflict)

	n.Text = "Hola"
	require.NoError(t, s.UpdateNode(ctx, n))
	nodes, err := s.ListFlowNodes(ctx, flowID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Hola", nodes[0].Text)

	assert.ErrorIs(t, s.UpdateNode(ctx, &botflow.PersistedNode{ID: 9}), botflow.ErrPersistedNodeNotFound)

	require.NoError(t, s.DeleteNode(ctx, 1))
	require.NoError(t, s.DeleteNode(ctx, 1), "deletes are idempotent")
	nodes, err = s.ListFlowNodes(ctx, flowID)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestStore_OptionsFollowTheirNode(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	flowID, err := s.CreateFlow(ctx, &botflow.Botflow{Name: "bot"})
	require.NoError(t, err)
	require.NoError(t, s.CreateNode(ctx, &botflow.PersistedNode{ID: 1, BotFlow: flowID, Type: botflow.TypeList}))

	target := 2
	optID, err := s.CreateOption(ctx, &botflow.ListOption{Node: 1, Label: "Horaris", TargetNode: &target})
	require.NoError(t, err)
	assert.Equal(t, 1, optID)

	options, err := s.ListOptions(ctx)
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "Horaris", options[0].Label)

	// Deleting the node takes its options with it.
	require.NoError(t, s.DeleteNode(ctx, 1))
	options, err = s.ListOptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, options)

	require.NoError(t, s.DeleteOption(ctx, 42), "deletes are idempotent")
}

func TestStore_DropSchemaResets(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_, err := s.CreateFlow(ctx, &botflow.Botflow{Name: "bot"})
	require.NoError(t, err)
	require.NoError(t, s.CreateNode(ctx, &botflow.PersistedNode{ID: 1, BotFlow: 1}))

	require.NoError(t, s.DropSchema(ctx))

	flows, err := s.ListFlows(ctx)
	require.NoError(t, err)
	assert.Empty(t, flows)

	// Serial ids restart after a reset.
	id, err := s.CreateFlow(ctx, &botflow.Botflow{Name: "again"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}
