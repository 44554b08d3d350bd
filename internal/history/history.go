// Package history keeps a local log of every notification attempt.
package history

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Entry is one notification attempt.
type Entry struct {
	ID         string
	TrackingID int
	Board      string
	ThreadID   string
	PostNo     int64
	Title      string
	Body       string
	Delivered  bool
	Error      string
	CreatedAt  time.Time
}

// Store is a SQLite-backed notification log.
type Store struct {
	db *sql.DB
}

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(rand.Reader, 0)
)

func newID(ts time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(ts), ulidEntropy).String()
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps PRAGMAs and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			tracking_id INTEGER NOT NULL,
			board TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			post_no INTEGER NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			delivered INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create notifications table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_notifications_thread ON notifications(board, thread_id)`); err != nil {
		return fmt.Errorf("create notifications index: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends an entry. ID and CreatedAt are filled in when empty.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	if e.ID == "" {
		e.ID = newID(e.CreatedAt)
	}

	delivered := 0
	if e.Delivered {
		delivered = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, tracking_id, board, thread_id, post_no, title, body, delivered, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.TrackingID, e.Board, e.ThreadID, e.PostNo, e.Title, e.Body, delivered, e.Error, e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Entry{}, fmt.Errorf("insert notification: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tracking_id, board, thread_id, post_no, title, body, delivered, error, created_at
		FROM notifications
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			delivered int
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.TrackingID, &e.Board, &e.ThreadID, &e.PostNo, &e.Title, &e.Body, &delivered, &e.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		e.Delivered = delivered == 1
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}
