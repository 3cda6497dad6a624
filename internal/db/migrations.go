package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
)

// Migration is one named, idempotent schema change.
type Migration struct {
	Name       string
	Statements []string
}

// Migrations is the ordered registry applied by Migrate.
var Migrations = []Migration{
	{
		Name: "001_companies",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS companies (
				id         UUID PRIMARY KEY,
				ticker     TEXT NOT NULL,
				name       TEXT NOT NULL,
				sector     TEXT,
				metadata   JSONB,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS companies_ticker_key ON companies (ticker)`,
		},
	},
	{
		Name: "002_press_releases",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS press_releases (
				id                          UUID PRIMARY KEY,
				ticker                      TEXT NOT NULL,
				title                       TEXT,
				source_url                  TEXT NOT NULL,
				press_release_timestamp     TIMESTAMPTZ,
				press_release_timestamp_raw TEXT NOT NULL DEFAULT '',
				crawl_timestamp             TIMESTAMPTZ NOT NULL,
				unprocessed                 BOOLEAN NOT NULL DEFAULT TRUE,
				raw_result                  JSONB,
				metadata                    JSONB,
				created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS press_releases_ticker_ts_idx
				ON press_releases (ticker, press_release_timestamp DESC)`,
			`CREATE INDEX IF NOT EXISTS press_releases_source_url_idx ON press_releases (source_url)`,
			`CREATE INDEX IF NOT EXISTS press_releases_unprocessed_idx ON press_releases (unprocessed)`,
		},
	},
}

// Migrate applies every registered migration that has not run yet.
// It returns the names of the migrations applied by this call.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	_, err := db.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var applied []string
	for _, m := range Migrations {
		var done bool
		err := db.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, m.Name,
		).Scan(&done)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", m.Name, err)
		}
		if done {
			continue
		}

		err = db.inTx(ctx, func(tx pgx.Tx) error {
			for _, stmt := range m.Statements {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("migration %s failed: %w", m.Name, err)
				}
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.Name)
			return err
		})
		if err != nil {
			return applied, err
		}
		log.Printf("[migrate] applied %s", m.Name)
		applied = append(applied, m.Name)
	}
	return applied, nil
}
