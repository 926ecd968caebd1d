// Package sqlite stores autosaved and submitted checklists in a SQLite
// database. Store implements checklist.Autosaver and checklist.Submitter.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ezachrisen/checklist"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS autosaves (
	session_id TEXT PRIMARY KEY,
	version_id INTEGER NOT NULL,
	payload    BLOB NOT NULL,
	props      BLOB NOT NULL,
	saved_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS submissions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id   INTEGER NOT NULL,
	name         TEXT NOT NULL,
	payload      BLOB NOT NULL,
	submitted_at INTEGER NOT NULL
);`

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "checklist.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; sessions save from their own goroutines.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Autosave replaces the session's saved checklist and render props.
func (s *Store) Autosave(ctx context.Context, sessionID string, c *checklist.Checklist, rp *checklist.RenderProps) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode checklist: %w", err)
	}
	props, err := json.Marshal(rp)
	if err != nil {
		return fmt.Errorf("encode render props: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO autosaves(session_id, version_id, payload, props, saved_at) VALUES(?,?,?,?,?)
		ON CONFLICT(session_id) DO UPDATE SET version_id=excluded.version_id, payload=excluded.payload, props=excluded.props, saved_at=excluded.saved_at`,
		sessionID, c.VersionID, payload, props, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert autosave %s: %w", sessionID, err)
	}
	return nil
}

// Saved is an autosaved checklist. The checklist carries the answers and
// visibility flags at the time of the save and can be handed straight to
// checklist.NewEngine to resume.
type Saved struct {
	SessionID string
	Checklist *checklist.Checklist
	Props     *checklist.RenderProps
	SavedAt   time.Time
}

func (s *Store) LoadAutosave(ctx context.Context, sessionID string) (*Saved, error) {
	var (
		payload, props []byte
		savedAt        int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT payload, props, saved_at FROM autosaves WHERE session_id = ?`, sessionID).
		Scan(&payload, &props, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("autosave %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select autosave %s: %w", sessionID, err)
	}

	saved := &Saved{SessionID: sessionID, SavedAt: time.UnixMilli(savedAt)}
	if err := json.Unmarshal(payload, &saved.Checklist); err != nil {
		return nil, fmt.Errorf("decode checklist: %w", err)
	}
	if err := json.Unmarshal(props, &saved.Props); err != nil {
		return nil, fmt.Errorf("decode render props: %w", err)
	}
	return saved, nil
}

func (s *Store) DeleteAutosave(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM autosaves WHERE session_id = ?`, sessionID)
	return err
}

// Submit stores a finalized checklist and returns its new ID.
func (s *Store) Submit(ctx context.Context, c *checklist.Checklist) (int64, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("encode checklist: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO submissions(version_id, name, payload, submitted_at) VALUES(?,?,?,?)`,
		c.VersionID, c.Name, payload, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	return res.LastInsertId()
}

// Submission returns the submitted checklist with the id.
func (s *Store) Submission(ctx context.Context, id int64) (*checklist.Checklist, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM submissions WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("submission %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select submission %d: %w", id, err)
	}
	var c checklist.Checklist
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("decode checklist: %w", err)
	}
	c.ID = id
	return &c, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Path returns the database path.
func (s *Store) Path() string { return s.path }
