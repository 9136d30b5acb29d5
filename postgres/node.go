package postgres

import (
	"context"
	"fmt"

	"github.com/BotXPertUPC/botflow"
)

// ListFlowNodes returns all persisted nodes of a flow, ordered by id.
// Returns an empty slice (not nil) if none exist.
func (s *PGStore) ListFlowNodes(ctx context.Context, flowID int) ([]botflow.PersistedNode, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, bot_flow, type, text, position_x, position_y, list_header, next_node
		 FROM botflow_nodes WHERE bot_flow = $1 ORDER BY id`, flowID)
	if err != nil {
		return nil, fmt.Errorf("botflow: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []botflow.PersistedNode{}
	for rows.Next() {
		var n botflow.PersistedNode
		if err := rows.Scan(&n.ID, &n.BotFlow, &n.Type, &n.Text,
			&n.PositionX, &n.PositionY, &n.ListHeader, &n.NextNode); err != nil {
			return nil, fmt.Errorf("botflow: scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("botflow: rows nodes: %w", err)
	}

	return nodes, nil
}

// CreateNode inserts a node under its caller-supplied id.
// Returns ErrConflict if the id is already taken.
func (s *PGStore) CreateNode(ctx context.Context, n *botflow.PersistedNode) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO botflow_nodes (id, bot_flow, type, text, position_x, position_y, list_header, next_node)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.BotFlow, n.Type, n.Text, n.PositionX, n.PositionY, n.ListHeader, n.NextNode,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return botflow.ErrConflict
		}
		return fmt.Errorf("botflow: insert node: %w", err)
	}
	return nil
}

// UpdateNode updates an existing node.
// Returns ErrPersistedNodeNotFound if it doesn't exist.
func (s *PGStore) UpdateNode(ctx context.Context, n *botflow.PersistedNode) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE botflow_nodes
		 SET bot_flow = $1, type = $2, text = $3, position_x = $4, position_y = $5, list_header = $6, next_node = $7
		 WHERE id = $8`,
		n.BotFlow, n.Type, n.Text, n.PositionX, n.PositionY, n.ListHeader, n.NextNode, n.ID,
	)
	if err != nil {
		return fmt.Errorf("botflow: update node: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return botflow.ErrPersistedNodeNotFound
	}
	return nil
}

// DeleteNode deletes a node by its id.
// Its list options are cascade-deleted; next_node references pointing at it
// are nulled by the DB. No error if the node doesn't exist.
func (s *PGStore) DeleteNode(ctx context.Context, id int) error {
	_, err := s.db.Exec(ctx, `DELETE FROM botflow_nodes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("botflow: delete node: %w", err)
	}
	return nil
}
