package crawling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/prflow/internal/types"
)

func TestExtractLinks_InternalAndExternal(t *testing.T) {
	html := `
		<html>
			<body>
				<nav>
					<a href="/investors">Investors</a>
					<a href="https://www.acme.example.com/news">News</a>
				</nav>
				<main>
					<a href="/files/q1-2024.pdf" title="Q1 report">Quarterly report</a>
					<a href="https://sec.example.gov/filing">SEC filing</a>
					<a href="/investors#top">Back to top</a>
					<a href="#section">Anchor</a>
					<a href="mailto:ir@acme.example.com">Email IR</a>
				</main>
			</body>
		</html>
	`

	links, err := ExtractLinks(html, "https://acme.example.com/news/q1")
	require.NoError(t, err)
	require.Len(t, links, 4)

	assert.Equal(t, types.WebLink{
		URL:      "https://acme.example.com/investors",
		Text:     "Investors",
		LinkType: LinkInternal,
	}, links[0])
	assert.Equal(t, LinkInternal, links[1].LinkType, "www prefix is the same site")
	assert.Equal(t, "https://acme.example.com/files/q1-2024.pdf", links[2].URL)
	assert.Equal(t, "Q1 report", links[2].Title)
	assert.Equal(t, LinkExternal, links[3].LinkType)
}

func TestExtractLinks_InvalidBaseURL(t *testing.T) {
	_, err := ExtractLinks("<html></html>", "not-a-url")
	require.Error(t, err)

	var linkErr *LinkExtractionError
	assert.ErrorAs(t, err, &linkErr)
}

func TestExtractLinks_NoLinks(t *testing.T) {
	links, err := ExtractLinks("<html><body><p>No links</p></body></html>", "https://acme.example.com")
	require.NoError(t, err)
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

func TestPDFLinks(t *testing.T) {
	links := []types.WebLink{
		{URL: "https://acme.example.com/q1.PDF"},
		{URL: "https://acme.example.com/q1.pdf?download=1"},
		{URL: "https://acme.example.com/get?id=7", Text: "Download the presentation"},
		{URL: "https://acme.example.com/deck", Title: "Slides (PDF)"},
		{URL: "https://acme.example.com/about", Text: "About us"},
	}

	byURL := PDFLinksByURL(links)
	require.Len(t, byURL, 2)
	assert.Equal(t, links[0].URL, byURL[0].URL)
	assert.Equal(t, links[1].URL, byURL[1].URL)

	byText := PDFLinksByText(links)
	require.Len(t, byText, 2)
	assert.Equal(t, links[2].URL, byText[0].URL)
	assert.Equal(t, links[3].URL, byText[1].URL)
}
