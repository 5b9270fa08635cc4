package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteStore implements the Store interface on a single kv table
type SQLiteStore struct {
	db *sql.DB
}

// querier abstracts *sql.DB and *sql.Tx so the same statements serve both
// direct and transactional paths.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// openDatabase opens dbPath with the session pragmas the kv workload
// wants: WAL so readers never block on the writer, and a busy timeout
// so a competing process waits instead of erroring.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	// Single connection: SQLite allows one writer at a time anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies
// pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	return getWithQuerier(ctx, s.db, key)
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	return putWithQuerier(ctx, s.db, key, value)
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	return deleteWithQuerier(ctx, s.db, key)
}

func (s *SQLiteStore) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	return scanWithQuerier(ctx, s.db, prefix)
}

// Update runs fn in a transaction; fn's writes commit together or not at all
func (s *SQLiteStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteTx adapts *sql.Tx to the Tx interface
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Get(ctx context.Context, key string) ([]byte, error) {
	return getWithQuerier(ctx, t.tx, key)
}

func (t *sqliteTx) Put(ctx context.Context, key string, value []byte) error {
	return putWithQuerier(ctx, t.tx, key, value)
}

func (t *sqliteTx) Delete(ctx context.Context, key string) error {
	return deleteWithQuerier(ctx, t.tx, key)
}

func getWithQuerier(ctx context.Context, q querier, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func putWithQuerier(ctx context.Context, q querier, key string, value []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func deleteWithQuerier(ctx context.Context, q querier, key string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func scanWithQuerier(ctx context.Context, q querier, prefix string) (map[string][]byte, error) {
	var rows *sql.Rows
	var err error
	if prefix == "" {
		rows, err = q.QueryContext(ctx, "SELECT key, value FROM kv ORDER BY key")
	} else {
		// Keys are ASCII, so a half-open byte range covers the prefix
		rows, err = q.QueryContext(ctx,
			"SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key",
			prefix, prefixEnd(prefix))
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}
	return result, nil
}

// prefixEnd returns the smallest key greater than every key with the prefix
func prefixEnd(prefix string) string {
	end := []byte(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return string(end[:i+1])
		}
	}
	// Prefix is all 0xff bytes; no upper bound exists
	return string(append(end, 0xff))
}
