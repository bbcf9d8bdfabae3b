// Package configstore persists per-user storage provider configurations.
//
// One row per (user, provider choice) lifecycle: created empty when the user
// picks a provider, credentials populated and validated later, superseded
// (not mutated) when the user switches providers. At most one active row per
// user, enforced by a partial unique index.
package configstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Config configures the backing SQLite database.
type Config struct {
	// Path is a local filesystem path to the database, or ":memory:".
	Path string
}

// ErrNoActiveConfig indicates the user has no active storage configuration.
var ErrNoActiveConfig = errors.New("no active storage config")

// Store is a SQLite-backed config store.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the config database, applies WAL and
// busy-timeout pragmas for local files, and migrates the schema in place.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping config store: %w", err)
	}

	if err := configurePragmas(ctx, db, dsn); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func buildDSN(cfg Config) (string, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return "", errors.New("config store path is required")
	}
	if path == ":memory:" {
		return path, nil
	}
	if err := ensureStoreDir(path); err != nil {
		return "", err
	}
	return "file:" + filepath.Clean(path), nil
}

func ensureStoreDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config store dir: %w", err)
	}
	return nil
}

func configurePragmas(ctx context.Context, db *sql.DB, dsn string) error {
	if dsn == ":memory:" {
		// A pool of connections would each get their own empty :memory: DB.
		db.SetMaxOpenConns(1)
		return nil
	}
	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_storage_configs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			encrypted_credentials BLOB,
			is_validated INTEGER NOT NULL DEFAULT 0,
			last_validated_at TIMESTAMP,
			validation_error TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_configs_user
			ON user_storage_configs(user_id);`,
		// At most one active config per user.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_configs_active_per_user
			ON user_storage_configs(user_id) WHERE is_active = 1;`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate config store: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
