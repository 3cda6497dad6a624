// Package console holds the selection state behind the operator console:
// the chosen company, its releases, the chosen release and its detail.
//
// Every selection bumps a sequence token and fetches are applied only while
// their token is current, so a slow response for an earlier selection never
// overwrites a newer one.
package console

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/prflow/internal/client"
	"github.com/jonathan/prflow/internal/eligibility"
	"github.com/jonathan/prflow/internal/types"
)

var (
	// ErrGateClosed is returned when the requested run mode is not allowed
	// for the selected release.
	ErrGateClosed = errors.New("run not allowed for the selected press release")
	// ErrBusy is returned for run actions while a fetch is in flight.
	ErrBusy = errors.New("console is busy loading")
	// ErrNoSelection is returned when an action needs a selected release.
	ErrNoSelection = errors.New("no press release selected")
)

// API is the part of the HTTP API the console uses. *client.Client implements it.
type API interface {
	ListCompanies(ctx context.Context) ([]types.Company, error)
	ListPressReleases(ctx context.Context, ticker string) ([]types.PressRelease, error)
	GetPressRelease(ctx context.Context, id uuid.UUID) (*types.PressRelease, error)
	SubmitRun(ctx context.Context, id uuid.UUID, mode types.RunMode) (*client.RunAccepted, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) (*client.Processed, error)
}

// Session is one operator's view. It is safe for concurrent use.
type Session struct {
	api API

	mu        sync.Mutex
	companies []types.Company
	ticker    string
	releases  []types.PressRelease
	selected  uuid.UUID
	detail    *types.PressRelease
	listSeq   uint64
	detailSeq uint64
	inflight  int
}

// NewSession creates an empty session backed by api.
func NewSession(api API) *Session {
	return &Session{api: api}
}

func (s *Session) begin() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

// end must be called with s.mu held.
func (s *Session) end() {
	s.inflight--
}

// LoadCompanies fetches the company list.
func (s *Session) LoadCompanies(ctx context.Context) error {
	s.begin()
	companies, err := s.api.ListCompanies(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.end()
	if err != nil {
		return err
	}
	s.companies = companies
	return nil
}

// SelectCompany switches to ticker and loads its releases. Switching to a
// different company clears the selected release and its detail.
func (s *Session) SelectCompany(ctx context.Context, ticker string) error {
	ticker = types.NormalizeTicker(ticker)

	s.mu.Lock()
	if ticker != s.ticker {
		s.ticker = ticker
		s.releases = nil
		s.selected = uuid.Nil
		s.detail = nil
		s.detailSeq++
	}
	s.mu.Unlock()

	return s.loadReleases(ctx)
}

// Refresh reloads the current company's releases and the selected detail.
func (s *Session) Refresh(ctx context.Context) error {
	if err := s.loadReleases(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	id := s.selected
	s.mu.Unlock()
	if id == uuid.Nil {
		return nil
	}
	return s.SelectRelease(ctx, id)
}

func (s *Session) loadReleases(ctx context.Context) error {
	s.mu.Lock()
	ticker := s.ticker
	s.listSeq++
	seq := s.listSeq
	s.inflight++
	s.mu.Unlock()

	if ticker == "" {
		s.mu.Lock()
		s.end()
		s.mu.Unlock()
		return nil
	}

	releases, err := s.api.ListPressReleases(ctx, ticker)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.end()
	if seq != s.listSeq {
		return nil
	}
	if err != nil {
		return err
	}
	s.releases = releases
	return nil
}

// SelectRelease selects id and loads its detail.
func (s *Session) SelectRelease(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	if id != s.selected {
		s.detail = nil
	}
	s.selected = id
	s.detailSeq++
	seq := s.detailSeq
	s.inflight++
	s.mu.Unlock()

	detail, err := s.api.GetPressRelease(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.end()
	if seq != s.detailSeq {
		return nil
	}
	if err != nil {
		return err
	}
	s.detail = detail
	return nil
}

// ClearSelection deselects the release.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = uuid.Nil
	s.detail = nil
	s.detailSeq++
}

// Busy reports whether any fetch is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Companies returns the loaded company list.
func (s *Session) Companies() []types.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Company(nil), s.companies...)
}

// Ticker returns the selected company's ticker, or "".
func (s *Session) Ticker() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker
}

// Releases returns the selected company's releases as listed by the server.
func (s *Session) Releases() []types.PressRelease {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.PressRelease(nil), s.releases...)
}

// SelectedID returns the selected release id, or uuid.Nil.
func (s *Session) SelectedID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Detail returns the loaded detail of the selected release, or nil.
func (s *Session) Detail() *types.PressRelease {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detail
}

// Gates evaluates the run gates on the current state.
func (s *Session) Gates() eligibility.Gates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gatesLocked()
}

// gatesLocked evaluates against the release list, with the selected entry
// replaced by its detail when that was fetched more recently.
func (s *Session) gatesLocked() eligibility.Gates {
	if s.selected == uuid.Nil {
		return eligibility.Evaluate(s.releases, nil)
	}
	releases := s.releases
	if s.detail != nil && s.detail.ID == s.selected && s.detail.Ticker == s.ticker {
		releases = make([]types.PressRelease, len(s.releases), len(s.releases)+1)
		copy(releases, s.releases)
		if sel := eligibility.Find(releases, s.selected); sel != nil {
			*sel = *s.detail
		} else {
			releases = append(releases, *s.detail)
		}
	}
	return eligibility.Evaluate(releases, eligibility.Find(releases, s.selected))
}

// RunAllTillToday submits the selected release together with every earlier
// unprocessed release.
func (s *Session) RunAllTillToday(ctx context.Context) (*client.RunAccepted, error) {
	return s.run(ctx, types.RunAllTillToday)
}

// RunOnlyThis submits the selected release alone.
func (s *Session) RunOnlyThis(ctx context.Context) (*client.RunAccepted, error) {
	return s.run(ctx, types.RunOnlyThis)
}

func (s *Session) run(ctx context.Context, mode types.RunMode) (*client.RunAccepted, error) {
	s.mu.Lock()
	if s.inflight > 0 {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	id := s.selected
	gates := s.gatesLocked()
	s.mu.Unlock()

	if id == uuid.Nil {
		return nil, ErrNoSelection
	}
	open := gates.RunAllTillToday
	if mode == types.RunOnlyThis {
		open = gates.RunOnlyThis
	}
	if !open {
		return nil, ErrGateClosed
	}
	return s.api.SubmitRun(ctx, id, mode)
}

// MarkProcessed marks the selected release processed and reloads the list.
func (s *Session) MarkProcessed(ctx context.Context) error {
	s.mu.Lock()
	if s.inflight > 0 {
		s.mu.Unlock()
		return ErrBusy
	}
	id := s.selected
	s.mu.Unlock()

	if id == uuid.Nil {
		return ErrNoSelection
	}
	if _, err := s.api.MarkProcessed(ctx, id); err != nil {
		return err
	}
	return s.Refresh(ctx)
}
