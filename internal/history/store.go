// Package history keeps a SQLite log of finished playback sessions.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Config controls where history is stored and how much is kept.
type Config struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	Path       string `yaml:"path" mapstructure:"path"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries"`
}

// DefaultConfig keeps the last 500 sessions. Path is filled in by the
// config loader.
func DefaultConfig() Config {
	return Config{Enabled: true, MaxEntries: 500}
}

// Entry is one finished session.
type Entry struct {
	ID       string
	Started  time.Time
	Finished time.Time
	Engine   string
	Outcome  string
	Chunks   int
	Played   int
	Attempts int
	Error    string
	Preview  string
}

// Duration is the wall time the session took.
func (e Entry) Duration() time.Duration {
	if e.Finished.Before(e.Started) {
		return 0
	}
	return e.Finished.Sub(e.Started)
}

// Store wraps the sessions table.
type Store struct {
	db         *sql.DB
	maxEntries int
	logger     *log.Logger
	clock      func() time.Time
}

// Open creates the database file if needed and prunes it to the
// configured size.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("history: path is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("history")

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, maxEntries: cfg.MaxEntries, logger: logger, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	if _, err := s.Prune(ctx, cfg.MaxEntries); err != nil {
		logger.Warn("prune on open failed", "err", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    engine TEXT,
    outcome TEXT NOT NULL,
    chunks INTEGER NOT NULL,
    played INTEGER NOT NULL,
    attempts INTEGER NOT NULL,
    error TEXT,
    preview TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Record stores e. An entry without an ID gets a fresh one, and a zero
// Finished time is stamped with the current time.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Finished.IsZero() {
		e.Finished = s.clock()
	}
	if e.Started.IsZero() {
		e.Started = e.Finished
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, started_at, finished_at, engine, outcome, chunks, played, attempts, error, preview)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET finished_at=excluded.finished_at, outcome=excluded.outcome,
		   played=excluded.played, attempts=excluded.attempts, error=excluded.error`,
		e.ID, e.Started.UnixNano(), e.Finished.UnixNano(), e.Engine, e.Outcome,
		e.Chunks, e.Played, e.Attempts, e.Error, e.Preview)
	if err != nil {
		return e, fmt.Errorf("record session: %w", err)
	}
	s.logger.Debug("session recorded", "id", e.ID, "outcome", e.Outcome)
	return e, nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, engine, outcome, chunks, played, attempts, error, preview
		 FROM sessions ORDER BY started_at DESC, id LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			started, finished int64
			engine, errText   sql.NullString
			preview           sql.NullString
		)
		if err := rows.Scan(&e.ID, &started, &finished, &engine, &e.Outcome,
			&e.Chunks, &e.Played, &e.Attempts, &errText, &preview); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		e.Started = time.Unix(0, started)
		e.Finished = time.Unix(0, finished)
		e.Engine, e.Error, e.Preview = engine.String, errText.String, preview.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes all but the newest maxEntries sessions and returns how
// many rows were removed. A maxEntries of zero or less keeps everything.
func (s *Store) Prune(ctx context.Context, maxEntries int) (int64, error) {
	if maxEntries <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id NOT IN (
		   SELECT id FROM sessions ORDER BY started_at DESC, id LIMIT ?
		 )`, maxEntries)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Debug("pruned history", "removed", n)
	}
	return n, nil
}

// MaxEntries is the retention limit the store was opened with.
func (s *Store) MaxEntries() int { return s.maxEntries }

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
