package main

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SessionStore maps a caller-chosen conversation key to the session id the
// chat backend sees. Once created, a key always resolves to the same id.
type SessionStore interface {
	SessionID(ctx context.Context, key string) (string, error)
}

var newSessionID = func() string {
	return "session-" + uuid.NewString()
}

var errEmptySessionKey = errors.New("empty session key")

type MemorySessionStore struct {
	mu  sync.Mutex
	ids map[string]string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{ids: map[string]string{}}
}

func (s *MemorySessionStore) SessionID(_ context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errEmptySessionKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.ids[key]; ok {
		return id, nil
	}
	id := newSessionID()
	s.ids[key] = id
	return id, nil
}

// SQLiteSessionStore keeps the same mapping in a sqlite table. With the
// default ":memory:" DSN nothing outlives the process.
type SQLiteSessionStore struct {
	db *sql.DB
}

var sqlOpen = sql.Open

func NewSQLiteSessionStore(dsn string) (*SQLiteSessionStore, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = ":memory:"
	}
	db, err := sqlOpen("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// every pooled connection to :memory: would be a separate database
	db.SetMaxOpenConns(1)
	if err := initSessionSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteSessionStore{db: db}, nil
}

func initSessionSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS chat_sessions (
		session_key TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	return err
}

func (s *SQLiteSessionStore) SessionID(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errEmptySessionKey
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chat_sessions (session_key, session_id, created_at) VALUES (?, ?, ?)`,
		key, newSessionID(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT session_id FROM chat_sessions WHERE session_key = ?`, key).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}
