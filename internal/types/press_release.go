// Package types provides type definitions for the companies, press releases and
// crawl payloads shared across prflow.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timestampLayouts are tried in order by ParseTimestamp. Layouts without a zone
// are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO 8601 instant such as "2024-03-01T09:30:00Z",
// "2024-03-01T09:30:00+02:00" or a bare date "2024-03-01".
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q (want ISO 8601 or YYYY-MM-DD)", s)
}

// Timestamp is a press release instant as carried on the wire.
// A value that failed to parse keeps its raw text and reports Valid() == false.
type Timestamp struct {
	t   time.Time
	raw string
	ok  bool
}

// NewTimestamp wraps a parsed instant.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t, ok: true}
}

// TimestampFromString parses s, keeping the raw text when it is not a valid instant.
func TimestampFromString(s string) Timestamp {
	t, err := ParseTimestamp(s)
	if err != nil {
		return Timestamp{raw: s}
	}
	return Timestamp{t: t, raw: s, ok: true}
}

// Time returns the parsed instant, or the zero time when invalid.
func (ts Timestamp) Time() time.Time { return ts.t }

// Valid reports whether the timestamp parsed into an instant.
func (ts Timestamp) Valid() bool { return ts.ok }

// Before reports whether ts is a valid instant strictly before other.
// Invalid timestamps order after every valid one.
func (ts Timestamp) Before(other Timestamp) bool {
	switch {
	case !ts.ok:
		return false
	case !other.ok:
		return true
	default:
		return ts.t.Before(other.t)
	}
}

func (ts Timestamp) String() string {
	if ts.ok {
		return ts.t.Format(time.RFC3339Nano)
	}
	return ts.raw
}

// MarshalJSON encodes valid instants as RFC 3339 and invalid ones as their raw text.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

// UnmarshalJSON never fails on an unparseable string; the value is kept as invalid.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("press release timestamp must be a string: %w", err)
	}
	*ts = TimestampFromString(s)
	return nil
}

// WebLink is a hyperlink found on a crawled page.
type WebLink struct {
	URL      string `json:"url"`
	Text     string `json:"text"`
	Title    string `json:"title"`
	LinkType string `json:"link_type"` // "internal" or "external"
}

// CrawlResult is the content fetched for a press release URL.
type CrawlResult struct {
	SourceURL       string    `json:"source_url"`
	Timestamp       time.Time `json:"timestamp"`
	MarkdownContent string    `json:"markdown_content"`
	MainContent     string    `json:"main_content"`
	AllLinks        []WebLink `json:"all_links"`
	PDFLinksByURL   []WebLink `json:"pdf_links_by_url"`
	PDFLinksByText  []WebLink `json:"pdf_links_by_text"`
}

// PressRelease is a stored press release. Releases belong to a company only
// through the Ticker value.
type PressRelease struct {
	ID                    uuid.UUID      `json:"id"`
	Ticker                string         `json:"ticker"`
	Title                 string         `json:"title,omitempty"`
	SourceURL             string         `json:"source_url"`
	PressReleaseTimestamp Timestamp      `json:"press_release_timestamp"`
	CrawlTimestamp        time.Time      `json:"crawl_timestamp"`
	Unprocessed           bool           `json:"unprocessed"`
	RawResult             *CrawlResult   `json:"raw_result,omitempty"`
	Metadata              map[string]any `json:"metadata,omitempty"`
}

// DisplayTitle returns the title, falling back to the source URL.
func (p *PressRelease) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	if p.SourceURL != "" {
		return p.SourceURL
	}
	return "Untitled"
}

// Content returns the crawled text to show for the release.
func (p *PressRelease) Content() string {
	if p.RawResult == nil {
		return ""
	}
	if p.RawResult.MarkdownContent != "" {
		return p.RawResult.MarkdownContent
	}
	return p.RawResult.MainContent
}
