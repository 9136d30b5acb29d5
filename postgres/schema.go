package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS botflows (
    id           SERIAL PRIMARY KEY,
    name         TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    phone_number TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS botflow_nodes (
    id          INTEGER PRIMARY KEY,
    bot_flow    INTEGER NOT NULL REFERENCES botflows(id) ON DELETE CASCADE,
    type        TEXT NOT NULL,
    text        TEXT NOT NULL DEFAULT '',
    position_x  DOUBLE PRECISION NOT NULL DEFAULT 0,
    position_y  DOUBLE PRECISION NOT NULL DEFAULT 0,
    list_header TEXT NOT NULL DEFAULT '',
    next_node   INTEGER REFERENCES botflow_nodes(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS botflow_list_options (
    id          SERIAL PRIMARY KEY,
    node        INTEGER NOT NULL REFERENCES botflow_nodes(id) ON DELETE CASCADE,
    label       TEXT NOT NULL DEFAULT '',
    target_node INTEGER REFERENCES botflow_nodes(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_botflow_nodes_flow   ON botflow_nodes(bot_flow);
CREATE INDEX IF NOT EXISTS idx_botflow_options_node ON botflow_list_options(node);
`

// CreateSchema creates the botflow tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the botflow tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS botflow_list_options, botflow_nodes, botflows CASCADE;`)
	return err
}
