// Package sqlite implements the storage driver on SQLite. It targets
// development and single-user deployments: vectors are stored as BLOBs and
// similarity is computed in the application layer, so there is no extension
// dependency. Production deployments should use the postgres driver.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/skillswap/internal/profile"
	"github.com/hrygo/skillswap/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database named by the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// WAL journal mode avoids most locking issues; busy_timeout covers the
	// rest. With the `modernc.org/sqlite` driver each pragma must be passed
	// as `_pragma=` in the DSN.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// A single connection is optimal for SQLite with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() any {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS user (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	skills_offered TEXT NOT NULL DEFAULT '[]',
	skills_needed TEXT NOT NULL DEFAULT '[]',
	is_active INTEGER NOT NULL DEFAULT 1,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS skill_match (
	id TEXT PRIMARY KEY,
	seeker_id TEXT NOT NULL,
	helper_id TEXT NOT NULL,
	skill_offered TEXT NOT NULL,
	skill_needed TEXT NOT NULL,
	match_score REAL NOT NULL,
	confidence REAL NOT NULL,
	explanation TEXT NOT NULL DEFAULT '',
	is_reciprocal INTEGER NOT NULL DEFAULT 0,
	metadata TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'pending',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_skill_match_seeker ON skill_match (seeker_id);
CREATE INDEX IF NOT EXISTS idx_skill_match_helper ON skill_match (helper_id);

CREATE TABLE IF NOT EXISTS embedding_cache (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	item_type TEXT NOT NULL,
	ref_id TEXT NOT NULL,
	model TEXT NOT NULL,
	text_hash TEXT NOT NULL,
	dimension INTEGER NOT NULL,
	embedding BLOB NOT NULL,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL,
	UNIQUE (owner_id, item_type, ref_id)
);
`

// Migrate applies the schema. Idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply sqlite schema")
	}
	return nil
}
