package ingestion

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/jonathan/prflow/internal/types"
)

// Metadata summarizes a crawled page. It is stored in the release's
// metadata column so duplicate content can be spotted across URLs.
type Metadata struct {
	ContentHash string `json:"content_hash"` // SHA256 hex digest of the release content
	WordCount   int    `json:"word_count"`
	LinkCount   int    `json:"link_count"`
	PDFCount    int    `json:"pdf_count"`
}

// NewMetadata describes result after cleaning.
func NewMetadata(result *types.CrawlResult) *Metadata {
	content := result.MarkdownContent
	if content == "" {
		content = result.MainContent
	}
	pdfs := make(map[string]bool)
	for _, l := range result.PDFLinksByURL {
		pdfs[l.URL] = true
	}
	for _, l := range result.PDFLinksByText {
		pdfs[l.URL] = true
	}
	return &Metadata{
		ContentHash: computeHash(content),
		WordCount:   wordCount(content),
		LinkCount:   len(result.AllLinks),
		PDFCount:    len(pdfs),
	}
}

// computeHash computes SHA256 hash of content and returns hex string
func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// Map returns the metadata in the shape stored on a press release.
func (m *Metadata) Map() map[string]any {
	return map[string]any{
		"content_hash": m.ContentHash,
		"word_count":   m.WordCount,
		"link_count":   m.LinkCount,
		"pdf_count":    m.PDFCount,
	}
}
