package predictor

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists learned words in a sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the learned-word database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// sqlite allows one writer at a time.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS learned_words (
		word TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to init learned_words: %w", err)
	}
	return nil
}

// Add records one more use of word.
func (s *SQLiteStore) Add(word string) error {
	query := `
	INSERT INTO learned_words (word, count, updated_at) VALUES (?, 1, ?)
	ON CONFLICT(word) DO UPDATE SET count = count + 1, updated_at = excluded.updated_at`

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(context.Background(), query, word, now); err != nil {
		return fmt.Errorf("failed to store word: %w", err)
	}
	return nil
}

// Load returns every learned word with its count.
func (s *SQLiteStore) Load() (map[string]int, error) {
	rows, err := s.db.QueryContext(context.Background(), `SELECT word, count FROM learned_words`)
	if err != nil {
		return nil, fmt.Errorf("failed to query learned words: %w", err)
	}
	defer func() { _ = rows.Close() }()

	words := make(map[string]int)
	for rows.Next() {
		var (
			w string
			n int
		)
		if err := rows.Scan(&w, &n); err != nil {
			return nil, err
		}
		words[w] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
