package contentstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite keeps the repository in a local database file. Every write is
// recorded in a commits table so it behaves like a tiny single-branch
// repository. It backs local development and the CLI when no GitHub
// repository is configured.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SQLite{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS files (
    path TEXT PRIMARY KEY,
    content BLOB NOT NULL,
    version TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS commits (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL,
    message TEXT NOT NULL,
    version TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
`)
	return err
}

func (s *SQLite) Read(ctx context.Context, p string) (File, error) {
	p = cleanPath(p)
	var f File
	err := s.db.QueryRowContext(ctx, `SELECT path, content, version FROM files WHERE path = ?`, p).
		Scan(&f.Path, &f.Content, &f.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, fmt.Errorf("read %s: %w", p, ErrNotFound)
	}
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", p, err)
	}
	return f, nil
}

func (s *SQLite) List(ctx context.Context, dir string) ([]Entry, error) {
	dir = cleanPath(dir)
	prefix := dir + "/"
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM files WHERE instr(path, ?) = 1 ORDER BY path`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	var entries []Entry
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		name := strings.SplitN(strings.TrimPrefix(p, prefix), "/", 2)[0]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		entries = append(entries, Entry{Name: name, Path: path.Join(dir, name)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("list %s: %w", dir, ErrNotFound)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (s *SQLite) Create(ctx context.Context, p string, content []byte, message string) error {
	p = cleanPath(p)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM files WHERE path = ?`, p).Scan(&exists)
		if err == nil {
			return fmt.Errorf("create %s: %w", p, ErrConflict)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("create %s: %w", p, err)
		}
		version, err := recordCommit(ctx, tx, p, content, message)
		if err != nil {
			return fmt.Errorf("create %s: %w", p, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO files (path, content, version, updated_at) VALUES (?, ?, ?, ?)`,
			p, content, version, nowString()); err != nil {
			return fmt.Errorf("create %s: %w", p, err)
		}
		return nil
	})
}

func (s *SQLite) Update(ctx context.Context, p string, content []byte, message, version string) error {
	p = cleanPath(p)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT version FROM files WHERE path = ?`, p).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update %s: %w", p, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("update %s: %w", p, err)
		}
		if current != version {
			return fmt.Errorf("update %s: stale version %q: %w", p, version, ErrConflict)
		}
		next, err := recordCommit(ctx, tx, p, content, message)
		if err != nil {
			return fmt.Errorf("update %s: %w", p, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE files SET content = ?, version = ?, updated_at = ? WHERE path = ?`,
			content, next, nowString(), p); err != nil {
			return fmt.Errorf("update %s: %w", p, err)
		}
		return nil
	})
}

// Commits returns the write log in application order.
func (s *SQLite) Commits(ctx context.Context) ([]Commit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, message, version FROM commits ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Commit
	for rows.Next() {
		var c Commit
		if err := rows.Scan(&c.Path, &c.Message, &c.Version); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func recordCommit(ctx context.Context, tx *sql.Tx, p string, content []byte, message string) (string, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO commits (path, message, created_at) VALUES (?, ?, ?)`, p, message, nowString())
	if err != nil {
		return "", err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	version := blobVersion(content, int(seq))
	if _, err := tx.ExecContext(ctx, `UPDATE commits SET version = ? WHERE id = ?`, version, seq); err != nil {
		return "", err
	}
	return version, nil
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
