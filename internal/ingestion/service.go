// Package ingestion adds companies and crawled press releases to the record
// store, one at a time or from CSV uploads.
package ingestion

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jonathan/prflow/internal/crawling"
	"github.com/jonathan/prflow/internal/schemas"
	"github.com/jonathan/prflow/internal/types"
)

// DefaultConcurrency bounds how many CSV rows are crawled at once.
const DefaultConcurrency = 4

// Store is the subset of the record store ingestion writes to.
type Store interface {
	UpsertCompany(ctx context.Context, ticker, name string, sector *string) (*types.Company, error)
	InsertPressRelease(ctx context.Context, pr *types.PressRelease) (uuid.UUID, error)
}

// Crawler fetches a press release page.
type Crawler interface {
	Crawl(ctx context.Context, link crawling.Link) (*types.CrawlResult, *crawling.PendingStatus, error)
}

// Service ingests companies and press releases.
type Service struct {
	store       Store
	crawler     Crawler
	concurrency int
	verbose     bool
}

// Options configures a Service.
type Options struct {
	Concurrency int
	Verbose     bool
}

// NewService creates a Service writing to store and crawling with crawler.
func NewService(store Store, crawler Crawler, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Service{
		store:       store,
		crawler:     crawler,
		concurrency: opts.Concurrency,
		verbose:     opts.Verbose,
	}
}

// AddCompany validates and upserts one company.
func (s *Service) AddCompany(ctx context.Context, req types.CreateCompanyRequest) (*types.Company, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.UpsertCompany(ctx, req.Ticker, req.Name, emptyToNil(req.Sector))
}

// Saved is the outcome of ingesting one press release.
type Saved struct {
	ID      uuid.UUID
	URL     string
	Release *types.PressRelease
	Pending *crawling.PendingStatus
}

// AddPressRelease crawls req.URL and stores the result as an unprocessed release.
func (s *Service) AddPressRelease(ctx context.Context, req types.CreatePressReleaseRequest) (*Saved, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ts, err := types.ParseTimestamp(req.PressTS)
	if err != nil {
		return nil, err
	}
	return s.crawlAndSave(ctx, crawling.NewLink(req.URL, "api"), req.Ticker, req.Title, types.NewTimestamp(ts))
}

func (s *Service) crawl(ctx context.Context, link crawling.Link) (*types.CrawlResult, *crawling.PendingStatus, error) {
	result, pending, err := s.crawler.Crawl(ctx, link)
	if err != nil {
		return nil, nil, err
	}
	if err := schemas.ValidateValue(schemas.CrawlResult, result); err != nil {
		return nil, nil, fmt.Errorf("crawl result for %s rejected: %w", link.URL, err)
	}
	if pending.HasIssues {
		log.Printf("[ingest] %s: empty_content=%t no_links=%t", link.URL, pending.EmptyContent, pending.NoLinks)
	}
	return result, pending, nil
}

func (s *Service) crawlAndSave(ctx context.Context, link crawling.Link, ticker, title string, ts types.Timestamp) (*Saved, error) {
	result, pending, err := s.crawl(ctx, link)
	if err != nil {
		return nil, err
	}
	result.MarkdownContent = CleanText(result.MarkdownContent)
	result.MainContent = CleanText(result.MainContent)
	pr := &types.PressRelease{
		Ticker:                ticker,
		Title:                 title,
		SourceURL:             result.SourceURL,
		PressReleaseTimestamp: ts,
		CrawlTimestamp:        result.Timestamp,
		Unprocessed:           true,
		RawResult:             result,
		Metadata:              NewMetadata(result).Map(),
	}
	id, err := s.store.InsertPressRelease(ctx, pr)
	if err != nil {
		return nil, err
	}
	if s.verbose {
		log.Printf("[ingest] saved %s as %s (%s)", link.URL, id, pr.Ticker)
	}
	return &Saved{ID: id, URL: link.URL, Release: pr, Pending: pending}, nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
