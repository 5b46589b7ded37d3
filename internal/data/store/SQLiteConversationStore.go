package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/DocChat/internal/domain/chatModel"
	_ "modernc.org/sqlite"
)

const chatHistorySchema = `
CREATE TABLE IF NOT EXISTS chat_history (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	category  TEXT    NOT NULL,
	sender    TEXT    NOT NULL,
	message   TEXT    NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_history_category ON chat_history (category, timestamp);`

// SQLiteConversationStore keeps turns in the chat_history table. Timestamps are unix nanoseconds.
type SQLiteConversationStore struct {
	db *sql.DB
}

func OpenSQLiteConversationStore(path string) (*SQLiteConversationStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(chatHistorySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create chat_history: %w", err)
	}
	return &SQLiteConversationStore{db: db}, nil
}

func (s *SQLiteConversationStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteConversationStore) AppendTurn(ctx context.Context, category string, turn chatModel.Turn) error {
	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (category, sender, message, timestamp) VALUES (?, ?, ?, ?)`,
		category, string(turn.Role), turn.Content, ts.UnixNano())
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *SQLiteConversationStore) LastTurns(ctx context.Context, category string, n int) ([]chatModel.Turn, error) {
	if n <= 0 {
		return []chatModel.Turn{}, nil
	}
	return s.query(ctx,
		`SELECT sender, message, timestamp FROM chat_history WHERE category = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		category, n)
}

func (s *SQLiteConversationStore) AllTurns(ctx context.Context, category string) ([]chatModel.Turn, error) {
	return s.query(ctx,
		`SELECT sender, message, timestamp FROM chat_history WHERE category = ? ORDER BY timestamp ASC, id ASC`,
		category)
}

func (s *SQLiteConversationStore) DeleteCategory(ctx context.Context, category string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE category = ?`, category); err != nil {
		return fmt.Errorf("delete history of %s: %w", category, err)
	}
	return nil
}

func (s *SQLiteConversationStore) query(ctx context.Context, q string, args ...any) ([]chatModel.Turn, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	turns := []chatModel.Turn{}
	for rows.Next() {
		var sender, message string
		var ts int64
		if err := rows.Scan(&sender, &message, &ts); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, chatModel.Turn{
			Role:      chatModel.RoleFromSender(sender),
			Content:   message,
			Timestamp: time.Unix(0, ts).UTC(),
		})
	}
	return turns, rows.Err()
}
