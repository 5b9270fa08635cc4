package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// SchemaVersion is the newest schema this build understands.
const SchemaVersion = "1.0.0"

// A migration moves the schema one version forward. Down restores the
// previous state so a bad upgrade can be backed out.
type migration struct {
	version *semver.Version
	up      string
	down    string
}

var migrations = []migration{
	{version: semver.MustParse("1.0.0"), up: schemaV1Up, down: schemaV1Down},
}

const schemaV1Up = `
-- Schema bookkeeping.
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- All pipeline state lives in one key-value table. Key prefixes
-- (chunk:, embedding:, sync:, doc:, meta:) partition the namespaces.
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_kv_updated ON kv(updated_at);
`

const schemaV1Down = `
DROP TABLE IF EXISTS kv;
DROP TABLE IF EXISTS schema_version;
`

// ApplyMigrations brings db up to SchemaVersion, running every step
// newer than the recorded version. A fresh database runs them all.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if !current.LessThan(m.version) {
			continue
		}
		if _, err := db.ExecContext(ctx, m.up); err != nil {
			return fmt.Errorf("apply schema %s: %w", m.version, err)
		}
		if _, err := db.ExecContext(ctx,
			"INSERT INTO schema_version (version) VALUES (?)", m.version.String()); err != nil {
			return fmt.Errorf("record schema %s: %w", m.version, err)
		}
		current = m.version
	}
	return nil
}

// RollbackMigration undoes the most recently applied step.
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	var latest string
	err := db.QueryRowContext(ctx,
		"SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.New("schema has no applied migrations")
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for _, m := range migrations {
		if m.version.String() != latest {
			continue
		}
		if _, err := db.ExecContext(ctx, m.down); err != nil {
			return fmt.Errorf("roll back schema %s: %w", latest, err)
		}
		if _, err := db.ExecContext(ctx,
			"DELETE FROM schema_version WHERE version = ?", latest); err != nil {
			return fmt.Errorf("unrecord schema %s: %w", latest, err)
		}
		return nil
	}
	return fmt.Errorf("schema version %s has no registered migration", latest)
}

// schemaVersion reads the latest recorded version, or 0.0.0 when the
// bookkeeping table does not exist yet.
func schemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("probe schema_version table: %w", err)
	}

	var latest string
	err = db.QueryRowContext(ctx,
		"SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && latest == "") {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	v, err := semver.NewVersion(latest)
	if err != nil {
		return nil, fmt.Errorf("stored schema version %q: %w", latest, err)
	}
	return v, nil
}
