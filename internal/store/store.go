// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/escaperoom/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for players, stages, sessions, attempts and the
// leaderboard.
type Store struct {
	db  *sql.DB
	now func() time.Time
	ids func() string
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, unavailable("open database", err)
	}
	store := New(db)
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, unavailable("migrate database", err)
	}
	return store, nil
}

// New wraps an already opened database without migrating it.
func New(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: time.Now,
		ids: func() string { return uuid.NewString() },
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping database", err)
	}
	return nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stages (
			id INTEGER PRIMARY KEY,
			ord INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			type TEXT NOT NULL,
			challenge TEXT NOT NULL,
			solution TEXT NOT NULL,
			hint TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT,
			completed INTEGER NOT NULL DEFAULT 0,
			total_time INTEGER,
			timer_duration INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			stage_id INTEGER NOT NULL,
			user_code TEXT NOT NULL,
			successful INTEGER NOT NULL,
			hints_used INTEGER NOT NULL,
			attempted_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS leaderboard (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			completion_time INTEGER NOT NULL,
			completed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stages_ord ON stages(ord);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, start_time);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_session ON attempts(session_id, attempted_at);`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_time ON leaderboard(completion_time, completed_at, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_user ON leaderboard(user_id, completion_time);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// unavailable tags a database failure so callers can degrade gracefully.
func unavailable(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, model.ErrUnavailable, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		// Best-effort rows close.
		_ = cerr
	}
}

func rollback(tx *sql.Tx) {
	if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
		// Best-effort rollback.
		_ = rerr
	}
}

type scanner interface {
	Scan(dest ...any) error
}
