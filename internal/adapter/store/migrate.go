package store

import "database/sql"

// migrate creates the schema if it doesn't exist.
func migrate(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

		CREATE TABLE IF NOT EXISTS feedback (
			message_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			rating     TEXT NOT NULL CHECK (rating IN ('up', 'down')),
			comment    TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS restaurants (
			slug           TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			localized_name TEXT NOT NULL DEFAULT '',
			address        TEXT NOT NULL DEFAULT '',
			location       TEXT NOT NULL DEFAULT '',
			description    TEXT NOT NULL DEFAULT '',
			cuisine        TEXT NOT NULL DEFAULT '',
			price_range    TEXT NOT NULL DEFAULT '',
			rating         TEXT NOT NULL DEFAULT ''
		);
	`
	_, err := db.Exec(schema)
	return err
}
