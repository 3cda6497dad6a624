package crawling

import (
	"strings"

	"github.com/jonathan/prflow/internal/types"
)

// Link is a press release URL chosen for crawling, with the other candidates
// that were considered for the same release.
type Link struct {
	URL             string   `json:"url"`
	SelectionMethod string   `json:"selection_method"`
	Candidates      []string `json:"all_candidates"`
}

// NewLink returns a link whose only candidate is url.
func NewLink(url, method string) Link {
	return Link{URL: url, SelectionMethod: method, Candidates: []string{url}}
}

// PendingStatus reports what is left to do after a crawl.
type PendingStatus struct {
	EmptyContent            bool            `json:"empty_content"`
	NoLinks                 bool            `json:"no_links"`
	PDFsToDownload          []types.WebLink `json:"pdfs_to_download"`
	CandidateURLsNotCrawled []string        `json:"candidate_urls_not_crawled"`
	HasIssues               bool            `json:"has_issues"`
}

// GetPendingStatus inspects a crawl result. Only missing content or missing
// links count as issues; PDFs and uncrawled candidates are follow-up work.
func GetPendingStatus(link Link, result *types.CrawlResult) *PendingStatus {
	status := &PendingStatus{
		PDFsToDownload:          []types.WebLink{},
		CandidateURLsNotCrawled: []string{},
	}

	if result.MarkdownContent == "" && result.MainContent == "" {
		status.EmptyContent = true
		status.HasIssues = true
	}
	if len(result.AllLinks) == 0 {
		status.NoLinks = true
		status.HasIssues = true
	}

	seen := make(map[string]bool)
	for _, group := range [][]types.WebLink{result.PDFLinksByURL, result.PDFLinksByText} {
		for _, l := range group {
			if seen[l.URL] {
				continue
			}
			seen[l.URL] = true
			status.PDFsToDownload = append(status.PDFsToDownload, l)
		}
	}

	crawled := strings.TrimRight(result.SourceURL, "/")
	for _, c := range link.Candidates {
		if strings.TrimRight(c, "/") != crawled {
			status.CandidateURLsNotCrawled = append(status.CandidateURLsNotCrawled, c)
		}
	}
	return status
}
