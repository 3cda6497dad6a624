package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/prflow/internal/types"
)

// ExportCompanies returns every company row.
func (db *DB) ExportCompanies(ctx context.Context) ([]types.Company, error) {
	return db.ListCompanies(ctx)
}

// ExportPressReleases returns every press release with its crawl payload,
// ordered by ticker then chronologically.
func (db *DB) ExportPressReleases(ctx context.Context) ([]types.PressRelease, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+releaseSummaryColumns+`, raw_result
		 FROM press_releases
		 ORDER BY ticker, press_release_timestamp ASC NULLS LAST, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to export press releases: %w", err)
	}
	defer rows.Close()

	releases := []types.PressRelease{}
	for rows.Next() {
		var s releaseScan
		if err := rows.Scan(append(s.summaryDest(), &s.raw)...); err != nil {
			return nil, fmt.Errorf("failed to scan press release: %w", err)
		}
		pr, err := s.release()
		if err != nil {
			return nil, err
		}
		releases = append(releases, *pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to export press releases: %w", err)
	}
	return releases, nil
}

// ReplaceAll swaps the whole data set for the given rows in one transaction.
// On any failure the previous data is left untouched.
func (db *DB) ReplaceAll(ctx context.Context, companies []types.Company, releases []types.PressRelease) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM press_releases`); err != nil {
			return fmt.Errorf("failed to clear press releases: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM companies`); err != nil {
			return fmt.Errorf("failed to clear companies: %w", err)
		}

		batch := &pgx.Batch{}
		now := time.Now().UTC()
		for _, c := range companies {
			created, updated := c.CreatedAt, c.UpdatedAt
			if created.IsZero() {
				created = now
			}
			if updated.IsZero() {
				updated = created
			}
			batch.Queue(
				`INSERT INTO companies (id, ticker, name, sector, metadata, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				c.ID, types.NormalizeTicker(c.Ticker), c.Name, c.Sector, c.Metadata, created, updated,
			)
		}
		for i := range releases {
			pr := releases[i]
			pr.Ticker = types.NormalizeTicker(pr.Ticker)
			args, err := releaseArgs(&pr)
			if err != nil {
				return err
			}
			batch.Queue(insertReleaseSQL, args...)
		}
		if batch.Len() == 0 {
			return nil
		}

		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to restore row %d: %w", i, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to restore rows: %w", err)
		}
		return nil
	})
}

// Counts returns the number of companies and press releases stored.
func (db *DB) Counts(ctx context.Context) (companies, releases int, err error) {
	err = db.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM companies), (SELECT COUNT(*) FROM press_releases)`,
	).Scan(&companies, &releases)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return companies, releases, nil
}
