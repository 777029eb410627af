// Package history keeps a sqlite ledger of every publish outcome.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/entrhq/headline/pkg/publish"
)

// DefaultLimit is the page size used when a caller does not ask for one.
const DefaultLimit = 20

// ErrClosed is returned by operations on a closed ledger.
var ErrClosed = errors.New("history: ledger closed")

// Entry is one recorded run.
type Entry struct {
	ID         int64                `json:"id"`
	RunID      string               `json:"run_id"`
	Kind       publish.Kind         `json:"kind"`
	Title      string               `json:"title"`
	Succeeded  bool                 `json:"success"`
	Message    string               `json:"message"`
	ArticleID  string               `json:"article_id,omitempty"`
	URL        string               `json:"url,omitempty"`
	Screenshot string               `json:"screenshot,omitempty"`
	Steps      []publish.StepReport `json:"steps"`
	StartedAt  time.Time            `json:"started_at"`
	DurationMS int64                `json:"duration_ms"`
}

// Query filters List.
type Query struct {
	Kind   publish.Kind
	Failed bool
	Limit  int
}

// Ledger persists outcomes in a sqlite database.
type Ledger struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS publish_runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	kind        TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	succeeded   INTEGER NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	article_id  TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT '',
	screenshot  TEXT NOT NULL DEFAULT '',
	steps       TEXT NOT NULL DEFAULT '[]',
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS publish_runs_started ON publish_runs(started_at);`

// Open opens (or creates) the ledger at path. ":memory:" is accepted.
func Open(ctx context.Context, path string) (*Ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("history: path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
			db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}
	return &Ledger{path: path, db: db}, nil
}

// Path returns the database location.
func (l *Ledger) Path() string { return l.path }

func (l *Ledger) conn() (*sql.DB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, ErrClosed
	}
	return l.db, nil
}

// Record appends an outcome and returns its row id.
func (l *Ledger) Record(ctx context.Context, o *publish.Outcome) (int64, error) {
	if o == nil {
		return 0, fmt.Errorf("history: nil outcome")
	}
	db, err := l.conn()
	if err != nil {
		return 0, err
	}

	steps := o.Steps
	if steps == nil {
		steps = []publish.StepReport{}
	}
	raw, err := json.Marshal(steps)
	if err != nil {
		return 0, fmt.Errorf("history: encode steps: %w", err)
	}

	res, err := db.ExecContext(ctx, `
INSERT INTO publish_runs (run_id, kind, title, succeeded, message, article_id, url, screenshot, steps, started_at, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, string(o.Kind), o.Title, o.Succeeded, o.Message, o.ArticleID, o.URL, o.Screenshot,
		string(raw), o.Started.UnixMilli(), o.Duration.Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("history: insert: %w", err)
	}
	return res.LastInsertId()
}

// List returns the most recent entries first.
func (l *Ledger) List(ctx context.Context, q Query) ([]Entry, error) {
	db, err := l.conn()
	if err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	var (
		where []string
		args  []any
	)
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if q.Failed {
		where = append(where, "succeeded = 0")
	}
	stmt := `SELECT id, run_id, kind, title, succeeded, message, article_id, url, screenshot, steps, started_at, duration_ms FROM publish_runs`
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, q.Limit)

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			kind    string
			steps   string
			started int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &kind, &e.Title, &e.Succeeded, &e.Message, &e.ArticleID,
			&e.URL, &e.Screenshot, &steps, &started, &e.DurationMS); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Kind = publish.Kind(kind)
		e.StartedAt = time.UnixMilli(started)
		if err := json.Unmarshal([]byte(steps), &e.Steps); err != nil {
			e.Steps = nil
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the total and successful number of recorded runs.
func (l *Ledger) Count(ctx context.Context) (total, succeeded int64, err error) {
	db, err := l.conn()
	if err != nil {
		return 0, 0, err
	}
	row := db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(succeeded), 0) FROM publish_runs`)
	if err := row.Scan(&total, &succeeded); err != nil {
		return 0, 0, fmt.Errorf("history: count: %w", err)
	}
	return total, succeeded, nil
}

// Close releases the database. It is safe to call more than once.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}
