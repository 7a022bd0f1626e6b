package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS links (
    arcana     TEXT PRIMARY KEY,
    body       BLOB NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entities (
    kind       TEXT NOT NULL,
    name       TEXT NOT NULL,
    body       BLOB NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (kind, name)
);
CREATE TABLE IF NOT EXISTS reference_lists (
    name TEXT PRIMARY KEY,
    body TEXT NOT NULL
);`

// SQLiteStore keeps links, entities and reference lists in one SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store: sqlite path is required")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the pragmas below in effect for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func (s *SQLiteStore) ReadLink(ctx context.Context, arcana string) ([]byte, error) {
	if err := validName("arcana", arcana); err != nil {
		return nil, err
	}
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM links WHERE arcana = ?`, arcana).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && len(body) == 0) {
		return nil, fmt.Errorf("link %s: %w", arcana, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("select link %s: %w", arcana, err)
	}
	return body, nil
}

func (s *SQLiteStore) WriteLink(ctx context.Context, arcana string, data []byte) error {
	if err := validName("arcana", arcana); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO links (arcana, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(arcana) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		arcana, data, now())
	if err != nil {
		return fmt.Errorf("upsert link %s: %w", arcana, err)
	}
	return nil
}

func (s *SQLiteStore) ListLinks(ctx context.Context) ([]string, error) {
	return s.names(ctx, `SELECT arcana FROM links ORDER BY arcana`)
}

func (s *SQLiteStore) ReadEntity(ctx context.Context, kind, name string) ([]byte, error) {
	if err := validEntity(kind, name); err != nil {
		return nil, err
	}
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM entities WHERE kind = ? AND name = ?`, kind, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", kind, name, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s %s: %w", kind, name, err)
	}
	return body, nil
}

func (s *SQLiteStore) WriteEntity(ctx context.Context, kind, name string, data []byte) error {
	if err := validEntity(kind, name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (kind, name, body, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind, name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		kind, name, data, now())
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", kind, name, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteEntity(ctx context.Context, kind, name string) error {
	if err := validEntity(kind, name); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE kind = ? AND name = ?`, kind, name)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s %s: %w", kind, name, ErrNotExist)
	}
	return nil
}

func (s *SQLiteStore) ListEntities(ctx context.Context, kind string) ([]string, error) {
	if err := validName("kind", kind); err != nil {
		return nil, err
	}
	return s.names(ctx, `SELECT name FROM entities WHERE kind = ? ORDER BY name`, kind)
}

func (s *SQLiteStore) ReferenceList(ctx context.Context, name string) ([]string, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM reference_lists WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reference list %s: %w", name, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("select reference list %s: %w", name, err)
	}
	var values []string
	if err := json.Unmarshal([]byte(body), &values); err != nil {
		return nil, fmt.Errorf("parse reference list %s: %w", name, err)
	}
	return values, nil
}

func (s *SQLiteStore) WriteReferenceList(ctx context.Context, name string, values []string) error {
	if err := validName("reference list", name); err != nil {
		return err
	}
	if values == nil {
		values = []string{}
	}
	body, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode reference list %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reference_lists (name, body) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body`,
		name, string(body))
	if err != nil {
		return fmt.Errorf("upsert reference list %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) names(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
