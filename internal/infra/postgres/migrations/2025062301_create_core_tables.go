package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const createCoreTablesSQL = `
CREATE TABLE IF NOT EXISTS skill_banks (
	id   TEXT PRIMARY KEY,
	data JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS candidate_profiles (
	id   TEXT PRIMARY KEY,
	data JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS internships (
	id   TEXT PRIMARY KEY,
	open BOOLEAN NOT NULL DEFAULT TRUE,
	data JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS recruiter_ratings (
	id           BIGSERIAL PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	skill_id     TEXT NOT NULL,
	rating       DOUBLE PRECISION NOT NULL,
	rated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS recruiter_ratings_pair_idx
	ON recruiter_ratings (candidate_id, skill_id);
`

const dropCoreTablesSQL = `
DROP TABLE IF EXISTS recruiter_ratings;
DROP TABLE IF EXISTS internships;
DROP TABLE IF EXISTS candidate_profiles;
DROP TABLE IF EXISTS skill_banks;
`

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createCoreTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, dropCoreTablesSQL)
			return err
		},
	)
}
