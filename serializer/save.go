package serializer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/BotXPertUPC/botflow"
)

// imageText is the JSON payload an image node carries in the persisted text
// field, since the backend has no image type of its own.
type imageText struct {
	URL  string `json:"url"`
	Alt  string `json:"alt"`
	Type string `json:"type"`
}

// SaveResult reports what a save actually wrote. Skipped lists the
// relations and options that could not be resolved (a position-join miss or
// a per-record write failure); the save as a whole still counts as
// successful, but callers get to surface the gaps instead of losing them in
// a log.
type SaveResult struct {
	Created int
	Skipped []string
}

// Save replaces the botflow's persisted state with the given node and edge
// snapshots. Existing records are discarded wholesale and recreated — the
// persisted and in-memory id spaces are unrelated, so recreate-from-scratch
// is strictly simpler than reconciling them incrementally.
//
// Ordering within a save is fixed: destructive steps precede creation, and
// node creation precedes relation and option creation, because relations
// need the freshly assigned persisted ids. Individual relation failures are
// isolated; only a failure to read back the created nodes aborts the save.
func (s *Serializer) Save(ctx context.Context, nodes []botflow.Node, edges []botflow.Edge) (*SaveResult, error) {
	s.preClean(ctx)

	// Persisted ids are a plain enumeration of the node list in insertion
	// order. They carry no relationship to in-memory ids across saves;
	// relations below are joined back by position instead.
	records := make([]botflow.PersistedNode, len(nodes))
	for i, n := range nodes {
		records[i] = s.toPersisted(n, i+1)
	}

	// Defensively clear the id range we are about to occupy. A previous
	// save for another flow may have parked records on the same low ids.
	for i := 1; i <= len(records); i++ {
		if err := s.store.DeleteNode(ctx, i); err != nil {
			s.logger.Warn("pre-delete failed", "id", i, "err", err)
		}
	}

	result := &SaveResult{}
	for i := range records {
		if err := s.createNode(ctx, &records[i]); err != nil {
			s.logger.Warn("node create failed", "id", records[i].ID, "err", err)
			result.Skipped = append(result.Skipped,
				fmt.Sprintf("node %d could not be created: %v", records[i].ID, err))
			continue
		}
		result.Created++
	}

	// Read back what the backend actually holds and join by rounded
	// position; this is the only id correspondence available across the
	// recreate boundary.
	persisted, err := s.store.ListFlowNodes(ctx, s.flowID)
	if err != nil {
		return nil, fmt.Errorf("serializer: read back nodes: %w", err)
	}
	byPosition := make(map[string]botflow.PersistedNode, len(persisted))
	for _, p := range persisted {
		byPosition[p.Key()] = p
	}
	byID := make(map[string]botflow.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	s.saveRelations(ctx, edges, byPosition, byID, result)
	s.saveOptions(ctx, nodes, byPosition, byID, result)
	return result, nil
}

// preClean removes the botflow's existing persisted state: next_node
// references are broken first so node deletion can't trip over them, then
// the flow's list options go, then the nodes. Every error here is swallowed;
// pre-cleaning is best effort and the create pass overwrites anyway.
func (s *Serializer) preClean(ctx context.Context) {
	existing, err := s.store.ListFlowNodes(ctx, s.flowID)
	if err != nil {
		s.logger.Warn("pre-clean: list nodes failed", "err", err)
		return
	}
	ids := make(map[int]bool, len(existing))
	for _, n := range existing {
		ids[n.ID] = true
	}

	for _, n := range existing {
		if n.NextNode == nil {
			continue
		}
		n.NextNode = nil
		if err := s.store.UpdateNode(ctx, &n); err != nil {
			s.logger.Warn("pre-clean: break relation failed", "id", n.ID, "err", err)
		}
	}

	options, err := s.store.ListOptions(ctx)
	if err != nil {
		s.logger.Warn("pre-clean: list options failed", "err", err)
	} else {
		for _, o := range options {
			if !ids[o.Node] {
				continue
			}
			if err := s.store.DeleteOption(ctx, o.ID); err != nil {
				s.logger.Warn("pre-clean: delete option failed", "id", o.ID, "err", err)
			}
		}
	}

	for _, n := range existing {
		if err := s.store.DeleteNode(ctx, n.ID); err != nil {
			s.logger.Warn("pre-clean: delete node failed", "id", n.ID, "err", err)
		}
	}
}

// toPersisted translates one graph node into its backend record, without
// relations. Question text moves to list_header; image payloads are JSON-
// encoded into text.
func (s *Serializer) toPersisted(n botflow.Node, id int) botflow.PersistedNode {
	rec := botflow.PersistedNode{
		ID:        id,
		BotFlow:   s.flowID,
		Type:      botflow.PersistedTypeFor(n.Kind),
		PositionX: n.Position.X,
		PositionY: n.Position.Y,
	}
	switch p := n.Payload.(type) {
	case botflow.StartPayload:
		rec.Text = p.Label
	case botflow.MessagePayload:
		rec.Text = p.Text
	case botflow.AnswerPayload:
		rec.Text = p.Text
	case botflow.FinalPayload:
		rec.Text = p.Label
	case botflow.QuestionPayload:
		rec.ListHeader = p.Text
	case botflow.ImagePayload:
		raw, _ := json.Marshal(imageText{URL: p.ImageURL, Alt: p.AltText, Type: "image"})
		rec.Text = string(raw)
	}
	return rec
}

// createNode creates a record under its caller-chosen id, falling back to an
// update when the backend reports the id as taken.
func (s *Serializer) createNode(ctx context.Context, rec *botflow.PersistedNode) error {
	err := s.store.CreateNode(ctx, rec)
	if err == nil {
		return nil
	}
	if errors.Is(err, botflow.ErrConflict) {
		return s.store.UpdateNode(ctx, rec)
	}
	return err
}

// saveRelations patches next_node on every non-question source, joining both
// endpoints by position. A miss skips that single relation and records it.
func (s *Serializer) saveRelations(ctx context.Context, edges []botflow.Edge,
	byPosition map[string]botflow.PersistedNode, byID map[string]botflow.Node, result *SaveResult) {

	for _, e := range edges {
		src, ok := byID[e.Source]
		if !ok {
			continue
		}
		// Question branching is expressed through list options, never
		// through next_node.
		if src.Kind == botflow.KindQuestion {
			continue
		}
		tgt, ok := byID[e.Target]
		if !ok {
			s.skip(result, fmt.Sprintf("edge %s -> %s: target is not in the graph", e.Source, e.Target))
			continue
		}

		psrc, ok := byPosition[src.Position.Key()]
		if !ok {
			s.skip(result, fmt.Sprintf("edge %s -> %s: no persisted node at source position %s", e.Source, e.Target, src.Position.Key()))
			continue
		}
		ptgt, ok := byPosition[tgt.Position.Key()]
		if !ok {
			s.skip(result, fmt.Sprintf("edge %s -> %s: no persisted node at target position %s", e.Source, e.Target, tgt.Position.Key()))
			continue
		}

		next := ptgt.ID
		psrc.NextNode = &next
		if err := s.store.UpdateNode(ctx, &psrc); err != nil {
			s.skip(result, fmt.Sprintf("edge %s -> %s: relation update failed: %v", e.Source, e.Target, err))
		}
	}
}

// saveOptions creates one list-option row per populated question connection,
// in option-index order.
func (s *Serializer) saveOptions(ctx context.Context, nodes []botflow.Node,
	byPosition map[string]botflow.PersistedNode, byID map[string]botflow.Node, result *SaveResult) {

	for _, n := range nodes {
		q := n.Question()
		if q == nil {
			continue
		}
		pq, ok := byPosition[n.Position.Key()]
		if !ok {
			s.skip(result, fmt.Sprintf("question %s: no persisted node at position %s", n.ID, n.Position.Key()))
			continue
		}

		indices := make([]int, 0, len(q.Connections))
		for idx := range q.Connections {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		for _, idx := range indices {
			if idx < 0 || idx >= len(q.Options) {
				s.skip(result, fmt.Sprintf("question %s option %d: no such option", n.ID, idx))
				continue
			}
			tgt, ok := byID[q.Connections[idx]]
			if !ok {
				s.skip(result, fmt.Sprintf("question %s option %d: target %s is not in the graph", n.ID, idx, q.Connections[idx]))
				continue
			}
			ptgt, ok := byPosition[tgt.Position.Key()]
			if !ok {
				s.skip(result, fmt.Sprintf("question %s option %d: no persisted node at target position %s", n.ID, idx, tgt.Position.Key()))
				continue
			}
			target := ptgt.ID
			_, err := s.store.CreateOption(ctx, &botflow.ListOption{
				Node:       pq.ID,
				Label:      q.Options[idx],
				TargetNode: &target,
			})
			if err != nil {
				s.skip(result, fmt.Sprintf("question %s option %d: create failed: %v", n.ID, idx, err))
			}
		}
	}
}

func (s *Serializer) skip(result *SaveResult, msg string) {
	s.logger.Warn("save: relation skipped", "reason", msg)
	result.Skipped = append(result.Skipped, msg)
}
