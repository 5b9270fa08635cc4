package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverName, filepath.Join(t.TempDir(), "schema.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApplyMigrations_FreshDatabase(t *testing.T) {
	ctx := context.Background()
	db := openRawDB(t)

	require.NoError(t, ApplyMigrations(ctx, db))

	v, err := schemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v.String())

	// The kv table must accept writes once migrated.
	_, err = db.ExecContext(ctx, "INSERT INTO kv (key, value) VALUES ('meta:x', x'01')")
	assert.NoError(t, err)
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := openRawDB(t)

	require.NoError(t, ApplyMigrations(ctx, db))
	require.NoError(t, ApplyMigrations(ctx, db))

	var applied int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&applied))
	assert.Equal(t, len(migrations), applied)
}

func TestRollbackMigration(t *testing.T) {
	ctx := context.Background()
	db := openRawDB(t)

	require.NoError(t, ApplyMigrations(ctx, db))
	require.NoError(t, RollbackMigration(ctx, db))

	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kv").Scan(&count)
	assert.Error(t, err, "kv table is gone after rollback")

	// Nothing left to roll back.
	assert.Error(t, RollbackMigration(ctx, db))
}
