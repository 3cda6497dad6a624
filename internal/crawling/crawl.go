package crawling

import (
	"context"
	"log"
	"time"

	"github.com/jonathan/prflow/internal/fetch"
	"github.com/jonathan/prflow/internal/types"
)

// Crawler fetches press release pages over HTTP, falling back to a rendered
// page when the static HTML carries too little text.
type Crawler struct {
	FetchOptions *fetch.Options
	// Render re-renders thin pages. Nil disables the fallback.
	Render  fetch.Renderer
	Verbose bool
	now     func() time.Time
}

// New returns a crawler. When useBrowser is set, thin pages are rendered in
// headless Chrome with the given timeout.
func New(timeout time.Duration, useBrowser, verbose bool) *Crawler {
	opts := fetch.DefaultOptions()
	if timeout > 0 {
		opts.Timeout = timeout
	}
	c := &Crawler{FetchOptions: opts, Verbose: verbose}
	if useBrowser {
		c.Render = fetch.BrowserRenderer(opts.Timeout, verbose)
	}
	return c
}

// CrawlURL crawls a single URL with no alternative candidates.
func (c *Crawler) CrawlURL(ctx context.Context, url string) (*types.CrawlResult, *PendingStatus, error) {
	return c.Crawl(ctx, NewLink(url, "direct"))
}

// Crawl fetches link.URL and returns its content, links and pending status.
func (c *Crawler) Crawl(ctx context.Context, link Link) (*types.CrawlResult, *PendingStatus, error) {
	if c.Verbose {
		log.Printf("[crawl] fetching %s", link.URL)
	}

	page, err := fetch.URL(ctx, link.URL, c.FetchOptions)
	if err != nil {
		return nil, nil, &CrawlError{URL: link.URL, Message: "fetch failed", Cause: err}
	}

	sourceURL := page.FinalURL
	if sourceURL == "" {
		sourceURL = link.URL
	}
	html := page.HTML

	platform := fetch.DetectPlatform(sourceURL)
	selectors := fetch.PlatformContentSelectors(platform)
	noise := fetch.PlatformNoiseSelectors(platform)

	main, err := fetch.ExtractMainText(html, selectors, noise...)
	if err != nil {
		return nil, nil, &CrawlError{URL: link.URL, Message: "failed to extract text", Cause: err}
	}

	if c.Render != nil && fetch.ShouldUseBrowser(main) {
		if c.Verbose {
			log.Printf("[crawl] %s: only %d chars of text, rendering in browser", link.URL, len(main))
		}
		rendered, rerr := c.Render(ctx, sourceURL)
		switch {
		case rerr != nil:
			log.Printf("[crawl] browser fallback failed for %s: %v", link.URL, rerr)
		default:
			if text, terr := fetch.ExtractMainText(rendered, selectors, noise...); terr == nil && len(text) > len(main) {
				html, main = rendered, text
			}
		}
	}

	markdown, err := fetch.ToMarkdown(html)
	if err != nil {
		return nil, nil, &CrawlError{URL: link.URL, Message: "failed to convert to markdown", Cause: err}
	}

	links, err := ExtractLinks(html, sourceURL)
	if err != nil {
		return nil, nil, &CrawlError{URL: link.URL, Message: "failed to extract links", Cause: err}
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	result := &types.CrawlResult{
		SourceURL:       sourceURL,
		Timestamp:       now().UTC(),
		MarkdownContent: markdown,
		MainContent:     main,
		AllLinks:        links,
		PDFLinksByURL:   PDFLinksByURL(links),
		PDFLinksByText:  PDFLinksByText(links),
	}

	if c.Verbose {
		log.Printf("[crawl] %s (%s): %d chars, %d links, %d pdf links",
			sourceURL, platform, len(main), len(links), len(result.PDFLinksByURL))
	}
	return result, GetPendingStatus(link, result), nil
}
