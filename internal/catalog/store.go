package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/MJE43/pd-arena/internal/strategy"
)

// ErrNotFound is returned when no entry has the requested path.
var ErrNotFound = errors.New("catalog: entry not found")

// Entry is a verified strategy artifact.
type Entry struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Path        string        `json:"path"`
	Kind        strategy.Kind `json:"kind"`
	SHA256      string        `json:"sha256"`
	InitialMove string        `json:"initialMove"`
	VerifiedAt  time.Time     `json:"verifiedAt"`
}

// Store provides SQLite persistence for verified strategies. Match results
// are never stored here.
type Store struct {
	db *sql.DB
}

// New opens the catalog database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: enable WAL: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate creates the catalog tables.
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS strategies (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			path TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			initial_move TEXT NOT NULL,
			verified_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_strategies_kind ON strategies(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_strategies_name ON strategies(name)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("catalog: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Register inserts e, or replaces the entry with the same path. Entries that
// share a name but not a path (tft.js and tft.lua) are kept apart. The entry's
// ID is kept across re-registrations.
func (s *Store) Register(e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.VerifiedAt.IsZero() {
		e.VerifiedAt = time.Now().UTC()
	}
	err := s.db.QueryRow(
		`INSERT INTO strategies (id, name, path, kind, sha256, initial_move, verified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			sha256 = excluded.sha256,
			initial_move = excluded.initial_move,
			verified_at = excluded.verified_at
		 RETURNING id`,
		e.ID, e.Name, e.Path, string(e.Kind), e.SHA256, e.InitialMove, e.VerifiedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("catalog: register %s: %w", e.Path, err)
	}
	return nil
}

// Get returns the entry registered for path.
func (s *Store) Get(path string) (*Entry, error) {
	row := s.db.QueryRow(
		`SELECT id, name, path, kind, sha256, initial_move, verified_at
		 FROM strategies WHERE path = ?`, path)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get %s: %w", path, err)
	}
	return e, nil
}

// List returns every entry ordered by name, then path.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT id, name, path, kind, sha256, initial_move, verified_at
		 FROM strategies ORDER BY name, path`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: list scan: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Remove deletes the entry registered for path.
func (s *Store) Remove(path string) error {
	res, err := s.db.Exec(`DELETE FROM strategies WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("catalog: remove %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: remove %s: %w", path, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var kind string
	if err := row.Scan(&e.ID, &e.Name, &e.Path, &kind, &e.SHA256, &e.InitialMove, &e.VerifiedAt); err != nil {
		return nil, err
	}
	e.Kind = strategy.Kind(kind)
	return &e, nil
}
