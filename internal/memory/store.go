package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"storyforge/internal/logging"
)

// Store is the process-wide memory store. Every mutation is an
// independent upsert against SQLite; concurrent goal executions touch
// disjoint keys in the common case and last-write-wins is accepted when
// they race on the same thread id.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// Open initializes the SQLite database at path, creating the schema if
// needed. Path ":memory:" gives an ephemeral store for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("memory: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("memory: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("memory: set busy_timeout: %w", err)
	}
	// WAL + synchronous=NORMAL: crash-safe with much cheaper writes.
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			return nil, fmt.Errorf("memory: set journal_mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
			return nil, fmt.Errorf("memory: set synchronous: %w", err)
		}
	}

	s := &Store{db: db, log: logging.Named("memory")}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Debug("memory store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			category   TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (category, key)
		)`,
		`CREATE TABLE IF NOT EXISTS feedback_stats (
			task_type TEXT PRIMARY KEY,
			positive  INTEGER NOT NULL DEFAULT 0,
			negative  INTEGER NOT NULL DEFAULT 0,
			neutral   INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS feedback_recent (
			task_type    TEXT NOT NULL,
			detail_key   TEXT NOT NULL,
			detail_value TEXT NOT NULL,
			outcome      TEXT NOT NULL,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_recent
			ON feedback_recent(task_type, detail_key, created_at)`,
		`CREATE TABLE IF NOT EXISTS threads (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL,
			introduced_at    INTEGER NOT NULL,
			resolved_at      INTEGER NOT NULL DEFAULT 0,
			related_entities TEXT NOT NULL DEFAULT '',
			importance       TEXT NOT NULL,
			notes            TEXT NOT NULL DEFAULT '',
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS memories (
			id            TEXT PRIMARY KEY,
			type          TEXT NOT NULL,
			content       TEXT NOT NULL,
			importance    REAL NOT NULL,
			access_count  INTEGER NOT NULL DEFAULT 0,
			created_at    INTEGER NOT NULL,
			last_accessed INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("memory: create schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
