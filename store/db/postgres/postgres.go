// Package postgres implements the storage driver on PostgreSQL with the
// pgvector extension for embedding storage. This is the production driver.
package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/skillswap/internal/profile"
	"github.com/hrygo/skillswap/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the PostgreSQL database named by the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	pgDB.SetMaxOpenConns(25)
	pgDB.SetMaxIdleConns(5)
	pgDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pgDB.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{db: pgDB, profile: profile}, nil
}

func (d *DB) GetDB() any {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS "user" (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	skills_offered JSONB NOT NULL DEFAULT '[]',
	skills_needed JSONB NOT NULL DEFAULT '[]',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
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
	is_reciprocal BOOLEAN NOT NULL DEFAULT FALSE,
	metadata JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'pending',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_skill_match_seeker ON skill_match (seeker_id);
CREATE INDEX IF NOT EXISTS idx_skill_match_helper ON skill_match (helper_id);

CREATE TABLE IF NOT EXISTS embedding_cache (
	id BIGSERIAL PRIMARY KEY,
	owner_id TEXT NOT NULL,
	item_type TEXT NOT NULL,
	ref_id TEXT NOT NULL,
	model TEXT NOT NULL,
	text_hash TEXT NOT NULL,
	dimension INTEGER NOT NULL,
	embedding vector NOT NULL,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL,
	UNIQUE (owner_id, item_type, ref_id)
);
`

// Migrate applies the schema. Idempotent. Requires the pgvector extension to
// be installable by the connecting role.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply postgres schema")
	}
	return nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}
