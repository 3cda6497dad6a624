package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jonathan/prflow/internal/types"
)

const releaseSummaryColumns = `id, ticker, COALESCE(title, ''), source_url, press_release_timestamp,
	press_release_timestamp_raw, crawl_timestamp, unprocessed, metadata`

// tsColumns splits a timestamp into its nullable instant and raw text columns.
func tsColumns(ts types.Timestamp) (*time.Time, string) {
	if ts.Valid() {
		t := ts.Time()
		return &t, ts.String()
	}
	return nil, ts.String()
}

// tsFromColumns rebuilds a timestamp from its stored columns.
func tsFromColumns(t *time.Time, raw string) types.Timestamp {
	if t != nil {
		return types.NewTimestamp(*t)
	}
	return types.TimestampFromString(raw)
}

type releaseScan struct {
	pr    types.PressRelease
	ts    *time.Time
	tsRaw string
	raw   []byte
}

func (s *releaseScan) summaryDest() []any {
	return []any{&s.pr.ID, &s.pr.Ticker, &s.pr.Title, &s.pr.SourceURL, &s.ts,
		&s.tsRaw, &s.pr.CrawlTimestamp, &s.pr.Unprocessed, &s.pr.Metadata}
}

func (s *releaseScan) release() (*types.PressRelease, error) {
	s.pr.PressReleaseTimestamp = tsFromColumns(s.ts, s.tsRaw)
	if len(s.raw) > 0 {
		var cr types.CrawlResult
		if err := json.Unmarshal(s.raw, &cr); err != nil {
			return nil, fmt.Errorf("failed to decode raw_result for %s: %w", s.pr.ID, err)
		}
		s.pr.RawResult = &cr
	}
	return &s.pr, nil
}

// InsertPressRelease stores a new press release. A zero ID is replaced with a
// fresh one; the stored ID is returned.
func (db *DB) InsertPressRelease(ctx context.Context, pr *types.PressRelease) (uuid.UUID, error) {
	if pr.ID == uuid.Nil {
		pr.ID = uuid.New()
	}
	pr.Ticker = types.NormalizeTicker(pr.Ticker)
	if err := insertRelease(ctx, db.pool, pr); err != nil {
		return uuid.Nil, err
	}
	return pr.ID, nil
}

// queryExecer is satisfied by both the pool and a transaction.
type queryExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertRelease(ctx context.Context, q queryExecer, pr *types.PressRelease) error {
	args, err := releaseArgs(pr)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, insertReleaseSQL, args...); err != nil {
		return fmt.Errorf("failed to insert press release %s: %w", pr.SourceURL, err)
	}
	return nil
}

const insertReleaseSQL = `INSERT INTO press_releases (id, ticker, title, source_url, press_release_timestamp,
	press_release_timestamp_raw, crawl_timestamp, unprocessed, raw_result, metadata)
 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)`

func releaseArgs(pr *types.PressRelease) ([]any, error) {
	var raw []byte
	if pr.RawResult != nil {
		b, err := json.Marshal(pr.RawResult)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal raw_result: %w", err)
		}
		raw = b
	}
	ts, tsRaw := tsColumns(pr.PressReleaseTimestamp)
	crawled := pr.CrawlTimestamp
	if crawled.IsZero() {
		crawled = time.Now().UTC()
	}
	return []any{pr.ID, pr.Ticker, pr.Title, pr.SourceURL, ts, tsRaw, crawled, pr.Unprocessed, raw, pr.Metadata}, nil
}

// ListPressReleasesByTicker returns a company's releases newest first, without
// their crawl payload. Releases with an unparseable timestamp come first, then
// by press timestamp descending and id descending.
func (db *DB) ListPressReleasesByTicker(ctx context.Context, ticker string) ([]types.PressRelease, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+releaseSummaryColumns+`
		 FROM press_releases WHERE ticker = $1
		 ORDER BY press_release_timestamp DESC NULLS FIRST, id DESC`,
		types.NormalizeTicker(ticker),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list press releases: %w", err)
	}
	defer rows.Close()

	releases := []types.PressRelease{}
	for rows.Next() {
		var s releaseScan
		if err := rows.Scan(s.summaryDest()...); err != nil {
			return nil, fmt.Errorf("failed to scan press release: %w", err)
		}
		pr, err := s.release()
		if err != nil {
			return nil, err
		}
		releases = append(releases, *pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list press releases: %w", err)
	}
	return releases, nil
}

// GetPressRelease retrieves a press release with its crawl payload
func (db *DB) GetPressRelease(ctx context.Context, id uuid.UUID) (*types.PressRelease, error) {
	var s releaseScan
	err := db.pool.QueryRow(ctx,
		`SELECT `+releaseSummaryColumns+`, raw_result FROM press_releases WHERE id = $1`,
		id,
	).Scan(append(s.summaryDest(), &s.raw)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get press release: %w", err)
	}
	return s.release()
}

// MarkProcessed clears the unprocessed flag. The flag never goes back to true,
// so calling this on an already processed release is a no-op.
func (db *DB) MarkProcessed(ctx context.Context, id uuid.UUID) (*types.PressRelease, error) {
	var s releaseScan
	err := db.pool.QueryRow(ctx,
		`UPDATE press_releases SET unprocessed = FALSE WHERE id = $1
		 RETURNING `+releaseSummaryColumns,
		id,
	).Scan(s.summaryDest()...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("press release %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to mark press release processed: %w", err)
	}
	return s.release()
}
