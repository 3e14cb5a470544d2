package overlaystudio

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding saved canvas sessions.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the session list read while a save is writing; writers wait
	// on the busy timeout instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS canvas_sessions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    background_url TEXT NOT NULL,
    overlay_json TEXT NOT NULL,
    metadata TEXT NOT NULL,
    thumbnail TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    deleted_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_canvas_sessions_updated ON canvas_sessions(updated_at);
`)
	return err
}

// SaveSession upserts cs. A new id is assigned when cs.ID is empty; saving
// over a deleted session revives it. The stored row is returned with its
// timestamps.
func (s *Store) SaveSession(cs CanvasSession) (CanvasSession, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO canvas_sessions
		(id, name, background_url, overlay_json, metadata, thumbnail, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			background_url = excluded.background_url,
			overlay_json = excluded.overlay_json,
			metadata = excluded.metadata,
			thumbnail = excluded.thumbnail,
			updated_at = excluded.updated_at,
			deleted_at = NULL`,
		cs.ID, cs.Name, cs.BackgroundURL, cs.OverlayJSON, cs.Metadata, cs.Thumbnail, now, now)
	if err != nil {
		return CanvasSession{}, err
	}
	return s.GetSession(cs.ID)
}

// GetSession returns a live session by id, or ErrNotFound.
func (s *Store) GetSession(id string) (CanvasSession, error) {
	var cs CanvasSession
	err := s.db.QueryRow(`SELECT id, name, background_url, overlay_json, metadata, thumbnail, created_at, updated_at
		FROM canvas_sessions WHERE id = ? AND deleted_at IS NULL`, id).
		Scan(&cs.ID, &cs.Name, &cs.BackgroundURL, &cs.OverlayJSON, &cs.Metadata, &cs.Thumbnail, &cs.CreatedAt, &cs.UpdatedAt)
	if err != nil {
		return CanvasSession{}, err
	}
	return cs, nil
}

// ListSessions returns live sessions, most recently updated first, without
// their overlay state.
func (s *Store) ListSessions(limit int) ([]CanvasSession, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT id, name, background_url, thumbnail, created_at, updated_at
		FROM canvas_sessions WHERE deleted_at IS NULL ORDER BY updated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CanvasSession
	for rows.Next() {
		var cs CanvasSession
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.BackgroundURL, &cs.Thumbnail, &cs.CreatedAt, &cs.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// DeleteSession soft-deletes a session. Deleting an unknown or already
// deleted session returns ErrNotFound.
func (s *Store) DeleteSession(id string) error {
	res, err := s.db.Exec(`UPDATE canvas_sessions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
