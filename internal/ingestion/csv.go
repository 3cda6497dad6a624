package ingestion

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/prflow/internal/crawling"
	"github.com/jonathan/prflow/internal/types"
)

// ErrMissingDate is the row error for a release without a usable date.
const ErrMissingDate = "press_release date is required; CSV must have 'date' column with valid ISO or YYYY-MM-DD format"

// CSVError reports a file-level problem with an upload, such as a missing
// required column. No rows are processed when it is returned.
type CSVError struct {
	Message string
	Cause   error
}

func (e *CSVError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CSVError) Unwrap() error {
	return e.Cause
}

// table is a parsed CSV with headers indexed case-insensitively.
type table struct {
	columns map[string]int
	rows    [][]string
}

func readTable(r io.Reader) (*table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &CSVError{Message: "failed to read CSV", Cause: err}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &table{columns: map[string]int{}}, nil
	}
	if err != nil {
		return nil, &CSVError{Message: "failed to parse CSV header", Cause: err}
	}
	t := &table{columns: make(map[string]int, len(header))}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := t.columns[key]; !dup {
			t.columns[key] = i
		}
	}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &CSVError{Message: "failed to parse CSV", Cause: err}
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

// column returns the index of the first alias present, or -1.
func (t *table) column(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := t.columns[a]; ok {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// AddCompaniesCSV upserts every company in the file. Columns: ticker|symbol,
// name|company, optional sector. Rows missing a ticker or name are skipped.
func (s *Service) AddCompaniesCSV(ctx context.Context, r io.Reader) ([]types.Company, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	tk, nm, sc := t.column("ticker", "symbol"), t.column("name", "company"), t.column("sector")
	if tk < 0 || nm < 0 {
		return nil, &CSVError{Message: "CSV needs ticker and name columns"}
	}

	added := []types.Company{}
	for _, row := range t.rows {
		ticker, name := cell(row, tk), cell(row, nm)
		if ticker == "" || name == "" {
			continue
		}
		sector := cell(row, sc)
		c, err := s.store.UpsertCompany(ctx, ticker, name, emptyToNil(&sector))
		if err != nil {
			return added, err
		}
		added = append(added, *c)
	}
	if s.verbose {
		log.Printf("[ingest] added %d companies from CSV", len(added))
	}
	return added, nil
}

// RowResult is the outcome of one press release CSV row.
type RowResult struct {
	OK      bool                    `json:"ok"`
	URL     string                  `json:"url"`
	Ticker  string                  `json:"ticker,omitempty"`
	ID      *uuid.UUID              `json:"id,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Pending *crawling.PendingStatus `json:"pending,omitempty"`
}

type releaseRow struct {
	url, ticker, title, date string
}

// AddPressReleasesCSV crawls and stores every release in the file. Columns:
// url|link, title, date|press_ts, optional ticker|symbol. Rows with an empty
// url or title are skipped. Each remaining row gets exactly one result, in
// file order; a failing row never stops the others.
func (s *Service) AddPressReleasesCSV(ctx context.Context, r io.Reader) ([]RowResult, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	urlCol := t.column("url", "link")
	if urlCol < 0 {
		return nil, &CSVError{Message: "CSV must have 'url' or 'link' column"}
	}
	titleCol := t.column("title")
	if titleCol < 0 {
		return nil, &CSVError{Message: "CSV must have 'title' column"}
	}
	dateCol := t.column("date", "press_ts")
	if dateCol < 0 {
		return nil, &CSVError{Message: "CSV must have 'date' (or 'press_ts') column; press_release date is required and will not default to crawl date"}
	}
	tickerCol := t.column("ticker", "symbol")

	var rows []releaseRow
	for _, rec := range t.rows {
		row := releaseRow{
			url:    cell(rec, urlCol),
			ticker: cell(rec, tickerCol),
			title:  cell(rec, titleCol),
			date:   cell(rec, dateCol),
		}
		if row.url == "" || row.title == "" {
			continue
		}
		rows = append(rows, row)
	}

	results := make([]RowResult, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, row := range rows {
		g.Go(func() error {
			results[i] = s.ingestRow(gctx, row)
			if s.verbose {
				status := "ok"
				if !results[i].OK {
					status = "FAILED: " + results[i].Error
				}
				log.Printf("[ingest] [%d/%d] %s %s", i+1, len(rows), row.url, status)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (s *Service) ingestRow(ctx context.Context, row releaseRow) RowResult {
	res := RowResult{URL: row.url, Ticker: row.ticker}

	if row.ticker == "" {
		// Without a ticker the page is crawled for its pending status only.
		_, pending, err := s.crawl(ctx, crawling.NewLink(row.url, "bulk"))
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.OK, res.Pending = true, pending
		return res
	}

	ts, err := types.ParseTimestamp(row.date)
	if err != nil {
		res.Error = ErrMissingDate
		return res
	}
	saved, err := s.crawlAndSave(ctx, crawling.NewLink(row.url, "bulk"), row.ticker, row.title, types.NewTimestamp(ts))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.OK, res.ID, res.Pending = true, &saved.ID, saved.Pending
	return res
}
