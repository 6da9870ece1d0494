package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one stored chat message
type Message struct {
	ID        int64  `json:"id"`
	ThreadID  string `json:"threadId"`
	Seq       int    `json:"seq"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

// AppendMessage stores a message at the end of the thread
func (d *DB) AppendMessage(ctx context.Context, threadID, role, content string) (Message, error) {
	if role != RoleUser && role != RoleAssistant {
		return Message{}, fmt.Errorf("invalid message role %q", role)
	}

	msg := Message{
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UnixMilli(),
	}

	err := d.Transaction(ctx, func(tx *sql.Tx) error {
		const nextSeq = `SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE thread_id = ?`
		d.logQuery("get", nextSeq, threadID)
		if err := tx.QueryRowContext(ctx, nextSeq, threadID).Scan(&msg.Seq); err != nil {
			return err
		}

		const insert = `
			INSERT INTO messages (thread_id, seq, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)
		`
		d.logQuery("run", insert, threadID, msg.Seq, role, len(content), msg.CreatedAt)
		res, err := tx.ExecContext(ctx, insert, threadID, msg.Seq, role, content, msg.CreatedAt)
		if err != nil {
			return err
		}
		msg.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}

	return msg, nil
}

// ListMessages returns a thread's messages in order
func (d *DB) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	const query = `
		SELECT id, thread_id, seq, role, content, created_at
		FROM messages
		WHERE thread_id = ?
		ORDER BY seq ASC
	`
	d.logQuery("select", query, threadID)

	rows, err := d.conn.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Seq, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// CountReplies returns how many assistant messages a thread holds
func (d *DB) CountReplies(ctx context.Context, threadID string) (int, error) {
	const query = `SELECT COUNT(*) FROM messages WHERE thread_id = ? AND role = 'assistant'`
	d.logQuery("count", query, threadID)

	var count int
	err := d.conn.QueryRowContext(ctx, query, threadID).Scan(&count)
	return count, err
}

// DeleteThread removes every message of a thread
func (d *DB) DeleteThread(ctx context.Context, threadID string) (int64, error) {
	const query = `DELETE FROM messages WHERE thread_id = ?`
	d.logQuery("run", query, threadID)

	res, err := d.conn.ExecContext(ctx, query, threadID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
