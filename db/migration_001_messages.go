package db

import (
	"database/sql"
)

func init() {
	RegisterMigration(Migration{
		Version:     1,
		Description: "Add messages table for chat transcripts",
		Up:          migration001_messages,
	})
}

func migration001_messages(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (thread_id, seq)
		);
		CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, seq);
	`)
	return err
}
