package sqlite

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"todo-sync/internal/errors"
	"todo-sync/internal/repository/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// Repository is the device's durable string key/value storage
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// SetMany writes every pair in one transaction; either all keys change or none do.
	SetMany(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// SQLiteRepository implements the Repository interface
type SQLiteRepository struct {
	db           *sql.DB
	now          func() time.Time
	queryTimeout time.Duration
}

// New creates a new SQLite repository instance with no per-query deadline
func New(dbPath string) (*SQLiteRepository, error) {
	return NewWithTimeout(dbPath, 0)
}

// NewWithTimeout creates a repository whose operations each run under
// queryTimeout. Zero or less leaves the caller's context untouched.
func NewWithTimeout(dbPath string, queryTimeout time.Duration) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.NewStorageError("open database", err)
	}

	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.NewStorageError("configure database", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		db.Close()
		return nil, errors.NewStorageError("run migrations", err)
	}

	return &SQLiteRepository{db: db, now: time.Now, queryTimeout: queryTimeout}, nil
}

func (r *SQLiteRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Get returns the value stored under key
func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT key, value, updated_at FROM kv_store WHERE key = ?`
	entry, err := QuerySingle(ctx, r.db, query, ScanEntry, "key", key, key)
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

// Set stores value under key, replacing any previous value
func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	return r.SetMany(ctx, map[string]string{key: value})
}

// SetMany stores all pairs atomically
func (r *SQLiteRepository) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return HandleDatabaseError("begin transaction", err)
	}

	query := `
	INSERT INTO kv_store (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	updatedAt := FormatTimeForDB(r.now())

	// Deterministic write order keeps lock acquisition stable.
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := Execute(ctx, tx, "set "+key, query, key, values[key], updatedAt); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return HandleDatabaseError("commit transaction", err)
	}
	return nil
}

// Remove deletes the given keys; missing keys are ignored
func (r *SQLiteRepository) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]interface{}, len(keys))
	for i, key := range keys {
		args[i] = key
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM kv_store WHERE key IN (` + placeholders + `)`
	return Execute(ctx, r.db, "remove keys", query, args...)
}

// Keys lists stored keys starting with prefix, in order. instr compares
// characters, so multi-byte prefixes match the same way ASCII ones do.
func (r *SQLiteRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
	SELECT key, value, updated_at
	FROM kv_store
	WHERE ? = '' OR instr(key, ?) = 1
	ORDER BY key ASC`

	entries, err := QueryMultiple(ctx, r.db, query, ScanEntries, "keys", prefix, prefix)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(entries))
	for i, entry := range entries {
		keys[i] = entry.Key
	}
	return keys, nil
}
