// Package eligibility decides whether a press release may be submitted for
// processing, given the other releases of the same company.
//
// A release may run on its own only when every release published strictly
// before it has already been processed. Releases are ordered by their press
// timestamp; a timestamp that failed to parse counts as later than every
// valid one, so it never blocks a valid release and is never itself eligible.
// Every function here is pure and total: nothing panics or errors on odd input.
package eligibility

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"github.com/jonathan/prflow/internal/types"
)

// Gates is the evaluated state of both run actions for one selection.
type Gates struct {
	ReleaseID           uuid.UUID   `json:"id"`
	Ticker              string      `json:"ticker"`
	RunAllTillToday     bool        `json:"can_run_all_till_today"`
	RunOnlyThis         bool        `json:"can_run_only_this"`
	AllEarlierProcessed bool        `json:"all_earlier_processed"`
	BlockedBy           []uuid.UUID `json:"blocked_by"`
}

// Compare orders a before b by press timestamp, then by id. Invalid timestamps
// sort after valid ones and among themselves by id.
func Compare(a, b *types.PressRelease) int {
	at, bt := a.PressReleaseTimestamp, b.PressReleaseTimestamp
	switch {
	case at.Before(bt):
		return -1
	case bt.Before(at):
		return 1
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// Sort orders releases chronologically in place.
func Sort(releases []types.PressRelease) {
	sort.SliceStable(releases, func(i, j int) bool {
		return Compare(&releases[i], &releases[j]) < 0
	})
}

// Earlier returns the releases whose timestamp is strictly before selected's,
// in chronological order. Releases sharing selected's instant are excluded.
func Earlier(releases []types.PressRelease, selected *types.PressRelease) []types.PressRelease {
	if selected == nil {
		return nil
	}
	var out []types.PressRelease
	for i := range releases {
		r := &releases[i]
		if r.ID == selected.ID {
			continue
		}
		if r.PressReleaseTimestamp.Before(selected.PressReleaseTimestamp) {
			out = append(out, *r)
		}
	}
	Sort(out)
	return out
}

// AllEarlierProcessed reports whether every release strictly earlier than
// selected is processed. It is vacuously true when nothing is earlier, and
// false when nothing is selected.
func AllEarlierProcessed(releases []types.PressRelease, selected *types.PressRelease) bool {
	if selected == nil {
		return false
	}
	for _, r := range Earlier(releases, selected) {
		if r.Unprocessed {
			return false
		}
	}
	return true
}

// CanRunAllTillToday reports whether "run all till today" is available.
// It depends only on there being a selection.
func CanRunAllTillToday(selected *types.PressRelease) bool {
	return selected != nil
}

// CanRunOnlyThis reports whether the selected release may run on its own.
func CanRunOnlyThis(releases []types.PressRelease, selected *types.PressRelease) bool {
	if selected == nil || !selected.Unprocessed || !selected.PressReleaseTimestamp.Valid() {
		return false
	}
	return AllEarlierProcessed(releases, selected)
}

// Evaluate computes both gates and the releases holding back "run only this".
func Evaluate(releases []types.PressRelease, selected *types.PressRelease) Gates {
	if selected == nil {
		return Gates{BlockedBy: []uuid.UUID{}}
	}
	blocked := []uuid.UUID{}
	for _, r := range Earlier(releases, selected) {
		if r.Unprocessed {
			blocked = append(blocked, r.ID)
		}
	}
	return Gates{
		ReleaseID:           selected.ID,
		Ticker:              selected.Ticker,
		RunAllTillToday:     CanRunAllTillToday(selected),
		RunOnlyThis:         CanRunOnlyThis(releases, selected),
		AllEarlierProcessed: len(blocked) == 0,
		BlockedBy:           blocked,
	}
}

// Find returns the release with the given id, or nil.
func Find(releases []types.PressRelease, id uuid.UUID) *types.PressRelease {
	for i := range releases {
		if releases[i].ID == id {
			return &releases[i]
		}
	}
	return nil
}

// Next returns the first release in chronological order for which
// CanRunOnlyThis holds, or nil when none does.
func Next(releases []types.PressRelease) *types.PressRelease {
	var next *types.PressRelease
	for i := range releases {
		r := &releases[i]
		if !r.Unprocessed {
			continue
		}
		if next == nil || Compare(r, next) < 0 {
			next = r
		}
	}
	if next == nil || !next.PressReleaseTimestamp.Valid() {
		return nil
	}
	return next
}
