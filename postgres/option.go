package postgres

import (
	"context"
	"fmt"

	"github.com/BotXPertUPC/botflow"
)

// ListOptions returns every list option ordered by id.
// Returns an empty slice (not nil) if none exist.
func (s *PGStore) ListOptions(ctx context.Context) ([]botflow.ListOption, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, node, label, target_node FROM botflow_list_options ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("botflow: list options: %w", err)
	}
	defer rows.Close()

	options := []botflow.ListOption{}
	for rows.Next() {
		var o botflow.ListOption
		if err := rows.Scan(&o.ID, &o.Node, &o.Label, &o.TargetNode); err != nil {
			return nil, fmt.Errorf("botflow: scan option: %w", err)
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("botflow: rows options: %w", err)
	}

	return options, nil
}

// CreateOption inserts a list option and returns its generated id.
func (s *PGStore) CreateOption(ctx context.Context, o *botflow.ListOption) (int, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO botflow_list_options (node, label, target_node) VALUES ($1, $2, $3) RETURNING id`,
		o.Node, o.Label, o.TargetNode,
	).Scan(&o.ID)
	if err != nil {
		return 0, fmt.Errorf("botflow: insert option: %w", err)
	}
	return o.ID, nil
}

// DeleteOption deletes a list option by its id.
// No error if the option doesn't exist.
func (s *PGStore) DeleteOption(ctx context.Context, id int) error {
	_, err := s.db.Exec(ctx, `DELETE FROM botflow_list_options WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("botflow: delete option: %w", err)
	}
	return nil
}
