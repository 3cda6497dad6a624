package ingestion

import (
	"fmt"
	"strings"
)

// Summary counts the outcomes of a bulk upload.
type Summary struct {
	Saved   int    `json:"saved"`
	Failed  int    `json:"failed"`
	Message string `json:"message"`
}

// Summarize reports every failed row with its reason, e.g.
// "2 saved, 1 failed. https://x/2: crawl failed". When nothing failed the
// message is "Saved N press release(s)".
func Summarize(results []RowResult) Summary {
	var sum Summary
	var failures []string
	for _, r := range results {
		if r.OK {
			sum.Saved++
			continue
		}
		sum.Failed++
		url, reason := r.URL, r.Error
		if url == "" {
			url = "?"
		}
		if reason == "" {
			reason = "unknown"
		}
		failures = append(failures, url+": "+reason)
	}

	if sum.Failed == 0 {
		noun := "press releases"
		if sum.Saved == 1 {
			noun = "press release"
		}
		sum.Message = fmt.Sprintf("Saved %d %s", sum.Saved, noun)
		return sum
	}
	sum.Message = fmt.Sprintf("%d saved, %d failed. %s", sum.Saved, sum.Failed, strings.Join(failures, "; "))
	return sum
}
