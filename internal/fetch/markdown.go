package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ToMarkdown renders the page body as lightweight Markdown: headings,
// paragraphs, list items, links and table rows. Page chrome is dropped.
func ToMarkdown(rawHTML string) (string, error) {
	doc, err := ParseHTML(rawHTML)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	writeBlocks(&b, body)
	return collapseBlankLines(b.String()), nil
}

func writeBlocks(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		switch node.Type {
		case html.TextNode:
			if text := strings.Join(strings.Fields(node.Data), " "); text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
			return
		case html.ElementNode:
		default:
			return
		}

		switch goquery.NodeName(s) {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(goquery.NodeName(s)[1] - '0')
			block(b, strings.Repeat("#", level)+" "+inline(s))
		case "p":
			block(b, inline(s))
		case "li":
			b.WriteString("- " + inline(s) + "\n")
		case "ul", "ol":
			writeBlocks(b, s)
			b.WriteString("\n")
		case "tr":
			var cells []string
			s.Find("th, td").Each(func(_ int, c *goquery.Selection) {
				cells = append(cells, inline(c))
			})
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		case "br":
			b.WriteString("\n")
		case "a", "strong", "b", "em", "i", "span":
			if text := inline(s); text != "" {
				b.WriteString(text + "\n")
			}
		default:
			writeBlocks(b, s)
		}
	})
}

// inline renders the text of s, keeping links as [text](href).
func inline(s *goquery.Selection) string {
	var parts []string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		node := c.Get(0)
		switch {
		case node.Type == html.TextNode:
			parts = append(parts, node.Data)
		case goquery.NodeName(c) == "a":
			text := strings.Join(strings.Fields(c.Text()), " ")
			if href, ok := c.Attr("href"); ok && text != "" && !strings.HasPrefix(href, "#") {
				parts = append(parts, "["+text+"]("+href+")")
			} else {
				parts = append(parts, text)
			}
		case goquery.NodeName(c) == "strong" || goquery.NodeName(c) == "b":
			if text := strings.TrimSpace(c.Text()); text != "" {
				parts = append(parts, "**"+text+"**")
			}
		case node.Type == html.ElementNode:
			parts = append(parts, inline(c))
		}
	})
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func block(b *strings.Builder, text string) {
	if text == "" {
		return
	}
	b.WriteString("\n" + text + "\n\n")
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
