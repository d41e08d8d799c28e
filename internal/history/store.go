// Package history implements the SQLite-backed conversation store.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// MaxContextHistory is the number of recent turns returned per user.
const MaxContextHistory = 8

// Turn is one stored conversation message.
type Turn struct {
	Role    string
	Content string
}

// Store persists per-user conversation turns. Writes for a single user are
// serialized so saved turns never interleave out of order; different users may
// write concurrently.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) the conversation database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS context_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_context_history_user_id ON context_history(user_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveMessage appends one turn to a user's history.
func (s *Store) SaveMessage(ctx context.Context, userID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO context_history (user_id, role, content) VALUES (?, ?, ?)",
		userID, role, content,
	)
	return err
}

// GetContext returns the user's most recent turns, oldest first.
func (s *Store) GetContext(ctx context.Context, userID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM (
			SELECT id, role, content FROM context_history
			WHERE user_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`,
		userID, MaxContextHistory,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
