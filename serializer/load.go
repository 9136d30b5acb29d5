package serializer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/BotXPertUPC/botflow"
)

// Load fetches the botflow's persisted nodes and rebuilds the in-memory
// graph: persisted ids become node ids, next_node chains become plain edges,
// and list options become question options plus one handle-tagged edge per
// connected option. The id counter is recomputed past the highest loaded id
// so later adds never collide.
//
// A flow with zero persisted nodes is treated as new, not empty: the default
// single-start graph is returned rather than a blank canvas. On any fetch
// error the caller's current graph must be left untouched; Load signals that
// by returning an error and no flow.
func (s *Serializer) Load(ctx context.Context) (*botflow.Flow, error) {
	persisted, err := s.store.ListFlowNodes(ctx, s.flowID)
	if err != nil {
		return nil, fmt.Errorf("serializer: load nodes: %w", err)
	}
	if len(persisted) == 0 {
		return botflow.New(), nil
	}

	optionsByNode, err := s.flowOptions(ctx, persisted)
	if err != nil {
		return nil, err
	}

	f := &botflow.Flow{Nodes: make([]botflow.Node, 0, len(persisted))}
	maxID := 0
	for _, p := range persisted {
		if p.ID > maxID {
			maxID = p.ID
		}
		id := strconv.Itoa(p.ID)
		node := botflow.Node{
			ID:       id,
			Position: botflow.Position{X: p.PositionX, Y: p.PositionY},
		}

		switch p.Type {
		case botflow.TypeStart:
			node.Kind = botflow.KindStart
			node.Payload = botflow.StartPayload{Label: p.Text}
		case botflow.TypeEnd:
			node.Kind = botflow.KindFinal
			node.Payload = botflow.FinalPayload{Label: p.Text}
		case botflow.TypeAnswer:
			node.Kind = botflow.KindAnswer
			node.Payload = botflow.AnswerPayload{Text: p.Text}
		case botflow.TypeList:
			node.Kind = botflow.KindQuestion
			node.Payload = s.questionPayload(p, optionsByNode[p.ID], f)
		default:
			// TEXT by default, promoted to an image node when the text
			// field parses as the image JSON envelope.
			if img, ok := parseImageText(p.Text); ok {
				node.Kind = botflow.KindImage
				node.Payload = botflow.ImagePayload{ImageURL: img.URL, AltText: img.Alt}
			} else {
				node.Kind = botflow.KindMessage
				node.Payload = botflow.MessagePayload{Text: p.Text}
			}
		}

		f.Nodes = append(f.Nodes, node)

		if node.Kind != botflow.KindQuestion && p.NextNode != nil {
			target := strconv.Itoa(*p.NextNode)
			f.Edges = append(f.Edges, botflow.Edge{
				ID:     botflow.EdgeID(id, target),
				Source: id,
				Target: target,
			})
		}
	}

	f.NextID = maxID + 1
	return f, nil
}

// flowOptions fetches all list options and keeps the ones owned by this
// flow's nodes, grouped per owner and ordered by their own sequence.
func (s *Serializer) flowOptions(ctx context.Context, persisted []botflow.PersistedNode) (map[int][]botflow.ListOption, error) {
	hasList := false
	ids := make(map[int]bool, len(persisted))
	for _, p := range persisted {
		ids[p.ID] = true
		if p.Type == botflow.TypeList {
			hasList = true
		}
	}
	if !hasList {
		return nil, nil
	}

	all, err := s.store.ListOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("serializer: load options: %w", err)
	}
	grouped := make(map[int][]botflow.ListOption)
	for _, o := range all {
		if ids[o.Node] {
			grouped[o.Node] = append(grouped[o.Node], o)
		}
	}
	for node := range grouped {
		opts := grouped[node]
		sort.Slice(opts, func(i, j int) bool { return opts[i].ID < opts[j].ID })
	}
	return grouped, nil
}

// questionPayload rebuilds a question node's payload from its list options
// and synthesizes one handle-tagged edge per connected option.
func (s *Serializer) questionPayload(p botflow.PersistedNode, options []botflow.ListOption, f *botflow.Flow) botflow.QuestionPayload {
	q := botflow.QuestionPayload{
		Text:        p.ListHeader,
		Options:     make([]string, 0, len(options)),
		Connections: map[int]string{},
	}
	source := strconv.Itoa(p.ID)
	for i, o := range options {
		q.Options = append(q.Options, o.Label)
		if o.TargetNode == nil {
			continue
		}
		target := strconv.Itoa(*o.TargetNode)
		q.Connections[i] = target
		f.Edges = append(f.Edges, botflow.Edge{
			ID:           botflow.EdgeID(source, target),
			Source:       source,
			Target:       target,
			SourceHandle: botflow.OptionHandle(i),
		})
	}
	return q
}

func parseImageText(text string) (imageText, bool) {
	var img imageText
	if err := json.Unmarshal([]byte(text), &img); err != nil {
		return imageText{}, false
	}
	return img, img.Type == "image"
}
