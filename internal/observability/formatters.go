// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/prflow/internal/crawling"
	"github.com/jonathan/prflow/internal/eligibility"
	"github.com/jonathan/prflow/internal/ingestion"
	"github.com/jonathan/prflow/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCompanies outputs one line per company.
func (p *Printer) PrintCompanies(companies []types.Company) {
	if len(companies) == 0 {
		p.printBox("COMPANIES", "No companies yet.")
		return
	}

	var sb strings.Builder
	for _, c := range companies {
		sector := "-"
		if c.Sector != nil {
			sector = *c.Sector
		}
		sb.WriteString(fmt.Sprintf("%-8s %-40s %s\n", c.Ticker, truncate(c.Name, 40), sector))
	}
	p.printBox(fmt.Sprintf("COMPANIES (%d)", len(companies)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReleases outputs a ticker's releases in list order, marking the
// unprocessed ones and the next release that can run on its own.
func (p *Printer) PrintReleases(ticker string, releases []types.PressRelease) {
	title := fmt.Sprintf("PRESS RELEASES: %s", ticker)
	if len(releases) == 0 {
		p.printBox(title, "No press releases.")
		return
	}

	next := eligibility.Next(releases)
	var sb strings.Builder
	count := min(len(releases), maxItemsToShow)
	for i := 0; i < count; i++ {
		pr := &releases[i]
		mark := "✓"
		if pr.Unprocessed {
			mark = "•"
		}
		if next != nil && pr.ID == next.ID {
			mark = "▶"
		}
		sb.WriteString(fmt.Sprintf("%s %-25s %s\n", mark, truncate(pr.PressReleaseTimestamp.String(), 25), pr.DisplayTitle()))
		sb.WriteString(fmt.Sprintf("  %s\n", pr.ID))
	}
	if len(releases) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(releases)-maxItemsToShow))
	}
	sb.WriteString("\n✓ processed  • unprocessed  ▶ next to run")
	p.printBox(title, sb.String())
}

// PrintGates outputs the run actions open for a release.
func (p *Printer) PrintGates(gates eligibility.Gates) {
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Release:              %s (%s)\n", gates.ReleaseID, gates.Ticker))
	sb.WriteString(fmt.Sprintf("Run all till today:   %s\n", yesNo(gates.RunAllTillToday)))
	sb.WriteString(fmt.Sprintf("Run only this:        %s\n", yesNo(gates.RunOnlyThis)))
	sb.WriteString(fmt.Sprintf("Earlier processed:    %s", yesNo(gates.AllEarlierProcessed)))
	if len(gates.BlockedBy) > 0 {
		sb.WriteString("\n\nBlocked by:")
		count := min(len(gates.BlockedBy), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("\n  • %s", gates.BlockedBy[i]))
		}
		if len(gates.BlockedBy) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more", len(gates.BlockedBy)-maxItemsToShow))
		}
	}
	p.printBox("RUN GATES", sb.String())
}

// PrintPending outputs the follow-up work a crawl left behind.
func (p *Printer) PrintPending(url string, pending *crawling.PendingStatus) {
	if pending == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("URL: %s\n", url))
	if pending.HasIssues {
		if pending.EmptyContent {
			sb.WriteString("⚠ no content extracted\n")
		}
		if pending.NoLinks {
			sb.WriteString("⚠ no links found\n")
		}
	}
	if len(pending.PDFsToDownload) > 0 {
		sb.WriteString(fmt.Sprintf("PDFs to download: %d\n", len(pending.PDFsToDownload)))
		count := min(len(pending.PDFsToDownload), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", pending.PDFsToDownload[i].URL))
		}
	}
	if len(pending.CandidateURLsNotCrawled) > 0 {
		sb.WriteString(fmt.Sprintf("Other candidates not crawled: %d\n", len(pending.CandidateURLsNotCrawled)))
	}
	p.printBox("CRAWL", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBulkResults outputs the outcome of a CSV upload.
func (p *Printer) PrintBulkResults(results []ingestion.RowResult) {
	sum := ingestion.Summarize(results)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Saved: %d   Failed: %d\n", sum.Saved, sum.Failed))
	for _, r := range results {
		if r.OK {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n✗ %s\n  %s", r.URL, r.Error))
	}
	p.printBox("BULK UPLOAD", sb.String())
}

// PrintCheckpoints outputs the available checkpoint names.
func (p *Printer) PrintCheckpoints(names []string) {
	if len(names) == 0 {
		p.printBox("CHECKPOINTS", "No checkpoints yet.")
		return
	}
	p.printBox("CHECKPOINTS", strings.Join(names, "\n"))
}
