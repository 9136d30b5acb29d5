package serializer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/BotXPertUPC/botflow"
	"github.com/BotXPertUPC/botflow/editor"
	"github.com/BotXPertUPC/botflow/memory"
	"github.com/BotXPertUPC/botflow/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlowStore(t *testing.T) (botflow.Store, int) {
	t.Helper()
	store := memory.New()
	id, err := store.CreateFlow(context.Background(), &botflow.Botflow{Name: "test-bot"})
	require.NoError(t, err)
	return store, id
}

// buildSession assembles start -> message -> question with two connected
// branches, one of them ending in a final node.
func buildSession(t *testing.T) *editor.Session {
	t.Helper()
	s := editor.NewSession(editor.WithJitter(func() float64 { return 0 }))

	msg, err := s.AddNode(botflow.KindMessage, botflow.RootID)
	require.NoError(t, err)
	require.NoError(t, s.UpdatePayload(msg.ID, botflow.MessagePayload{Text: "Benvingut!"}))

	q, err := s.AddNode(botflow.KindQuestion, msg.ID)
	require.NoError(t, err)
	require.NoError(t, s.UpdatePayload(q.ID, botflow.QuestionPayload{
		Text:        "Què necessites?",
		Options:     []string{"Horaris", "Preus"},
		Connections: map[int]string{},
	}))

	hours, err := s.ConnectOption(q.ID, 0, botflow.KindMessage)
	require.NoError(t, err)
	require.NoError(t, s.UpdatePayload(hours.ID, botflow.MessagePayload{Text: "De 9 a 18."}))
	_, err = s.ConnectOption(q.ID, 1, botflow.KindAnswer)
	require.NoError(t, err)

	_, err = s.AddNode(botflow.KindFinal, hours.ID)
	require.NoError(t, err)
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, flowID := newFlowStore(t)
	session := buildSession(t)
	ser := serializer.New(store, flowID)

	result, err := ser.Save(ctx, session.Nodes(), session.Edges())
	require.NoError(t, err)
	assert.Equal(t, 6, result.Created)
	assert.Empty(t, result.Skipped)

	loaded, err := ser.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 6)
	require.Len(t, loaded.Edges, len(session.Edges()))
	assert.Equal(t, 7, loaded.NextID)

	kinds := map[botflow.NodeKind]int{}
	var question *botflow.Node
	for i, n := range loaded.Nodes {
		kinds[n.Kind]++
		if n.Kind == botflow.KindQuestion {
			question = &loaded.Nodes[i]
		}
	}
	assert.Equal(t, 1, kinds[botflow.KindStart])
	assert.Equal(t, 2, kinds[botflow.KindMessage])
	assert.Equal(t, 1, kinds[botflow.KindQuestion])
	assert.Equal(t, 1, kinds[botflow.KindAnswer])
	assert.Equal(t, 1, kinds[botflow.KindFinal])

	require.NotNil(t, question)
	qp := question.Payload.(botflow.QuestionPayload)
	assert.Equal(t, "Què necessites?", qp.Text)
	assert.Equal(t, []string{"Horaris", "Preus"}, qp.Options)
	require.Len(t, qp.Connections, 2)

	// Both branch edges carry their option handle.
	handles := map[string]bool{}
	for _, e := range loaded.Edges {
		if e.Source == question.ID {
			handles[e.SourceHandle] = true
		}
	}
	assert.True(t, handles["option-0"])
	assert.True(t, handles["option-1"])
}

func TestSaveLoad_ImageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, flowID := newFlowStore(t)
	s := editor.NewSession(editor.WithJitter(func() float64 { return 0 }))
	img, err := s.AddNode(botflow.KindImage, botflow.RootID)
	require.NoError(t, err)
	require.NoError(t, s.UpdatePayload(img.ID, botflow.ImagePayload{
		ImageURL: "https://example.com/a.png",
		AltText:  "un gat",
	}))

	ser := serializer.New(store, flowID)
	_, err = ser.Save(ctx, s.Nodes(), s.Edges())
	require.NoError(t, err)

	// The image travels as a TEXT row carrying a JSON envelope.
	rows, err := store.ListFlowNodes(ctx, flowID)
	require.NoError(t, err)
	var imgRow *botflow.PersistedNode
	for i, r := range rows {
		if r.Type == botflow.TypeText && r.Text != "" {
			imgRow = &rows[i]
		}
	}
	require.NotNil(t, imgRow)
	assert.JSONEq(t, `{"url":"https://example.com/a.png","alt":"un gat","type":"image"}`, imgRow.Text)

	loaded, err := ser.Load(ctx)
	require.NoError(t, err)
	var found bool
	for _, n := range loaded.Nodes {
		if n.Kind == botflow.KindImage {
			found = true
			assert.Equal(t, botflow.ImagePayload{
				ImageURL: "https://example.com/a.png",
				AltText:  "un gat",
			}, n.Payload)
		}
	}
	assert.True(t, found, "image node did not survive the round trip")
}

func TestSave_SequentialIDsAndLabels(t *testing.T) {
	ctx := context.Background()
	store, flowID := newFlowStore(t)
	session := buildSession(t)
	ser := serializer.New(store, flowID)

	_, err := ser.Save(ctx, session.Nodes(), session.Edges())
	require.NoError(t, err)

	rows, err := store.ListFlowNodes(ctx, flowID)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	for i, r := range rows {
		assert.Equal(t, i+1, r.ID, "persisted ids must enumerate the node list")
		assert.Equal(t, flowID, r.BotFlow)
	}

	// Start and question carry their text in the right columns.
	assert.Equal(t, botflow.TypeStart, rows[0].Type)
	assert.Equal(t, "Inici", rows[0].Text)
	var q *botflow.PersistedNode
	for i, r := range rows {
		if r.Type == botflow.TypeList {
			q = &rows[i]
		}
	}
	require.NotNil(t, q)
	assert.Equal(t, "Què necessites?", q.ListHeader)
	assert.Empty(t, q.Text)
	assert.Nil(t, q.NextNode, "question branching must not use next_node")
}

func TestSave_SecondSaveReplacesFirst(t *testing.T) {
	ctx := context.Background()
	store, flowID := newFlowStore(t)
	session := buildSession(t)
	ser := serializer.New(store, flowID)

	_, err := ser.Save(ctx, session.Nodes(), session.Edges())
	require.NoError(t, err)

	// Shrink the graph and save again: stale rows and options must be gone.
	small := editor.NewSession(editor.WithJitter(func() float64 { return 0 }))
	_, err = small.AddNode(botflow.KindFinal, botflow.RootID)
	require.NoError(t, err)

	result, err := ser.Save(ctx, small.Nodes(), small.Edges())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)

	rows, err := store.ListFlowNodes(ctx, flowID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	options, err := store.ListOptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, options)
}

func TestSave_SkipsUnresolvableRelations(t *testing.T) {
	ctx := context.Background()
	store, flowID := newFlowStore(t)
	s := editor.NewSession(editor.WithJitter(func() float64 { return 0 }))
	msg, err := s.AddNode(botflow.KindMessage, botflow.RootID)
	require.NoError(t, err)

	// An edge to a node missing from the snapshot cannot be joined.
	edges := append(s.Edges(), botflow.Edge{ID: "e-ghost", Source: msg.ID, Target: "ghost"})

	ser := serializer.New(store, flowID)
	result, err := ser.Save(ctx, s.Nodes(), edges)
	require.NoError(t, err, "a skipped relation must not fail the save")
	assert.Equal(t, 2, result.Created)
	require.Len(t, result.Skipped, 1)
	assert.Contains(t, result.Skipped[0], "not in the graph")
}

// conflictStore keeps deletes from working, so records parked on low ids
// stay put and force the create-then-update fallback.
type conflictStore struct {
	botflow.Store
}

func (c *conflictStore) DeleteNode(ctx context.Context, id int) error {
	return errors.New("delete disabled")
}

func TestSave_ConflictFallsBackToUpdate(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	flowID, err := mem.CreateFlow(ctx, &botflow.Botflow{Name: "test-bot"})
	require.NoError(t, err)

	// Park a foreign record on id 1.
	require.NoError(t, mem.CreateNode(ctx, &botflow.PersistedNode{
		ID: 1, BotFlow: 999, Type: botflow.TypeText, Text: "parked",
	}))

	s := editor.NewSession(editor.WithJitter(func() float64 { return 0 }))
	ser := serializer.New(&conflictStore{Store: mem}, flowID)
	result, err := ser.Save(ctx, s.Nodes(), s.Edges())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	rows, err := mem.ListFlowNodes(ctx, flowID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].ID)
	assert.Equal(t, botflow.TypeStart, rows[0].Type)
	assert.Equal(t, "Inici", rows[0].Text)
}

func TestLoad_EmptyFlowIsDefault(t *testing.T) {
	store, flowID := newFlowStore(t)
	ser := serializer.New(store, flowID)

	f, err := ser.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, f.Nodes, 1)
	assert.Equal(t, botflow.RootID, f.Nodes[0].ID)
	assert.Equal(t, botflow.KindStart, f.Nodes[0].Kind)
	assert.Equal(t, 2, f.NextID)
}

// failingStore errors on every read.
type failingStore struct {
	botflow.Store
}

func (f *failingStore) ListFlowNodes(ctx context.Context, flowID int) ([]botflow.PersistedNode, error) {
	return nil, errors.New("backend down")
}

func TestLoad_FetchErrorReturnsNoFlow(t *testing.T) {
	ser := serializer.New(&failingStore{Store: memory.New()}, 1)

	f, err := ser.Load(context.Background())
	require.Error(t, err)
	assert.Nil(t, f, "a failed load must not hand back a partial flow")
}
