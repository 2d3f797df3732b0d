package alarms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	// Register the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/oshokin/alarm-clock/internal/config"
)

// Backend is a minimal durable key-value store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// ErrKeyNotFound is returned by a Backend when nothing is stored under the key.
var ErrKeyNotFound = errors.New("key not found")

// FileBackend keeps every key in its own JSON file inside a directory.
type FileBackend struct {
	// fs is the filesystem the files live on.
	fs afero.Fs
	// dir is the directory holding one file per key.
	dir string
}

// NewFileBackend creates the directory if needed and returns a backend rooted at it.
func NewFileBackend(fs afero.Fs, dir string) (*FileBackend, error) {
	dir = filepath.Clean(dir)

	if err := fs.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return &FileBackend{
		fs:  fs,
		dir: dir,
	}, nil
}

// Get reads the file of the key.
func (b *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	contents, err := afero.ReadFile(b.fs, b.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrKeyNotFound
		}

		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	return contents, nil
}

// Put replaces the file of the key. A temporary file is written first and
// renamed over the target, so readers never observe a partial write.
func (b *FileBackend) Put(_ context.Context, key string, value []byte) error {
	target := b.path(key)

	tmp, err := afero.TempFile(b.fs, b.dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err = tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = b.fs.Remove(tmpName)

		return fmt.Errorf("write %s: %w", key, err)
	}

	if err = tmp.Close(); err != nil {
		_ = b.fs.Remove(tmpName)

		return fmt.Errorf("close %s: %w", key, err)
	}

	if err = b.fs.Chmod(tmpName, config.DefaultFilePermissions); err != nil {
		_ = b.fs.Remove(tmpName)

		return fmt.Errorf("chmod %s: %w", key, err)
	}

	if err = b.fs.Rename(tmpName, target); err != nil {
		_ = b.fs.Remove(tmpName)

		return fmt.Errorf("replace %s: %w", key, err)
	}

	return nil
}

// Close is a no-op for files.
func (b *FileBackend) Close() error {
	return nil
}

// path maps a key to a file name, keeping it inside the directory.
func (b *FileBackend) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)

	return filepath.Join(b.dir, safe+".json")
}

// SQLiteBackend keeps every key in a row of an SQLite table.
type SQLiteBackend struct {
	// db is the open database handle.
	db *sql.DB
}

// sqliteSchema creates the key-value table.
const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`

// NewSQLiteBackend opens (or creates) the database at path and ensures the schema.
func NewSQLiteBackend(ctx context.Context, path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps writes serialized inside the process.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}

	for _, p := range pragmas {
		if _, err = db.ExecContext(ctx, p); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Get selects the value of the key.
func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}

		return nil, fmt.Errorf("select %s: %w", key, err)
	}

	return value, nil
}

// Put upserts the value of the key in a single statement.
func (b *SQLiteBackend) Put(ctx context.Context, key string, value []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}

	return nil
}

// Close releases the database handle.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
