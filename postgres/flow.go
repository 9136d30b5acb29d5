package postgres

import (
	"context"
	"fmt"

	"github.com/BotXPertUPC/botflow"
)

// CreateFlow inserts a botflow record and returns its generated id.
func (s *PGStore) CreateFlow(ctx context.Context, f *botflow.Botflow) (int, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO botflows (name, description, phone_number) VALUES ($1, $2, $3) RETURNING id`,
		f.Name, f.Description, f.PhoneNumber,
	).Scan(&f.ID)
	if err != nil {
		return 0, fmt.Errorf("botflow: insert flow: %w", err)
	}
	return f.ID, nil
}

// GetFlow fetches a botflow record by id.
// Returns ErrFlowNotFound if it doesn't exist.
func (s *PGStore) GetFlow(ctx context.Context, id int) (*botflow.Botflow, error) {
	var f botflow.Botflow
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description, phone_number FROM botflows WHERE id = $1`, id,
	).Scan(&f.ID, &f.Name, &f.Description, &f.PhoneNumber)

	if err != nil {
		if isNoRows(err) {
			return nil, botflow.ErrFlowNotFound
		}
		return nil, fmt.Errorf("botflow: get flow: %w", err)
	}

	return &f, nil
}

// UpdateFlow updates an existing botflow record.
// Returns ErrFlowNotFound if it doesn't exist.
func (s *PGStore) UpdateFlow(ctx context.Context, f *botflow.Botflow) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE botflows SET name = $1, description = $2, phone_number = $3 WHERE id = $4`,
		f.Name, f.Description, f.PhoneNumber, f.ID,
	)
	if err != nil {
		return fmt.Errorf("botflow: update flow: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return botflow.ErrFlowNotFound
	}
	return nil
}

// DeleteFlow deletes a botflow record by id.
// Its nodes and list options are cascade-deleted by the DB.
// No error if the flow doesn't exist.
func (s *PGStore) DeleteFlow(ctx context.Context, id int) error {
	_, err := s.db.Exec(ctx, `DELETE FROM botflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("botflow: delete flow: %w", err)
	}
	return nil
}

// ListFlows returns all botflow records ordered by id.
// Returns an empty slice (not nil) if none exist.
func (s *PGStore) ListFlows(ctx context.Context) ([]botflow.Botflow, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, phone_number FROM botflows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("botflow: list flows: %w", err)
	}
	defer rows.Close()

	flows := []botflow.Botflow{}
	for rows.Next() {
		var f botflow.Botflow
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.PhoneNumber); err != nil {
			return nil, fmt.Errorf("botflow: scan flow: %w", err)
		}
		flows = append(flows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("botflow: rows flows: %w", err)
	}

	return flows, nil
}
