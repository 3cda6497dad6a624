package crawling

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/prflow/internal/types"
)

// Link types reported on types.WebLink.
const (
	LinkInternal = "internal"
	LinkExternal = "external"
)

var pdfKeywords = []string{"pdf", "download"}

// ExtractLinks returns every distinct hyperlink on the page, resolved against
// baseURL and tagged internal or external by host.
func ExtractLinks(htmlContent string, baseURL string) ([]types.WebLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &LinkExtractionError{
			Message: "failed to parse base URL",
			Cause:   err,
		}
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, &LinkExtractionError{
			Message: fmt.Sprintf("invalid base URL: %s (must have scheme and host)", baseURL),
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, &LinkExtractionError{
			Message: "failed to parse HTML",
			Cause:   err,
		}
	}

	seen := make(map[string]bool)
	links := make([]types.WebLink, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(linkURL)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return // mailto:, javascript:, tel:
		}
		abs.Fragment = ""
		u := abs.String()
		if seen[u] {
			return
		}
		seen[u] = true

		linkType := LinkExternal
		if sameSite(abs.Hostname(), base.Hostname()) {
			linkType = LinkInternal
		}
		links = append(links, types.WebLink{
			URL:      u,
			Text:     strings.Join(strings.Fields(s.Text()), " "),
			Title:    strings.TrimSpace(s.AttrOr("title", "")),
			LinkType: linkType,
		})
	})

	return links, nil
}

// sameSite treats "www." as insignificant when comparing hosts.
func sameSite(a, b string) bool {
	return strings.TrimPrefix(strings.ToLower(a), "www.") == strings.TrimPrefix(strings.ToLower(b), "www.")
}

// PDFLinksByURL returns links whose path ends in .pdf.
func PDFLinksByURL(links []types.WebLink) []types.WebLink {
	out := []types.WebLink{}
	for _, l := range links {
		path := l.URL
		if u, err := url.Parse(l.URL); err == nil {
			path = u.Path
		}
		if strings.HasSuffix(strings.ToLower(path), ".pdf") {
			out = append(out, l)
		}
	}
	return out
}

// PDFLinksByText returns links whose text or title mentions a PDF or download.
func PDFLinksByText(links []types.WebLink) []types.WebLink {
	out := []types.WebLink{}
	for _, l := range links {
		text, title := strings.ToLower(l.Text), strings.ToLower(l.Title)
		for _, kw := range pdfKeywords {
			if strings.Contains(text, kw) || strings.Contains(title, kw) {
				out = append(out, l)
				break
			}
		}
	}
	return out
}
