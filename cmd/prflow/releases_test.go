package main

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/prflow/internal/client"
	"github.com/jonathan/prflow/internal/console"
	"github.com/jonathan/prflow/internal/types"
)

// fakeAPI serves a fixed set of releases and records actions.
type fakeAPI struct {
	mu        sync.Mutex
	companies []types.Company
	releases  []types.PressRelease
	runs      []types.RunMode
	processed []uuid.UUID
}

func (f *fakeAPI) ListCompanies(context.Context) ([]types.Company, error) {
	return f.companies, nil
}

func (f *fakeAPI) ListPressReleases(_ context.Context, ticker string) ([]types.PressRelease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.PressRelease
	for _, pr := range f.releases {
		if pr.Ticker == ticker {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (f *fakeAPI) GetPressRelease(_ context.Context, id uuid.UUID) (*types.PressRelease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pr := range f.releases {
		if pr.ID == id {
			return &pr, nil
		}
	}
	return nil, &client.APIError{StatusCode: 404, Detail: "press release not found: " + id.String()}
}

func (f *fakeAPI) SubmitRun(_ context.Context, _ uuid.UUID, mode types.RunMode) (*client.RunAccepted, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, mode)
	return &client.RunAccepted{OK: true, RunID: uuid.New(), Mode: mode}, nil
}

func (f *fakeAPI) MarkProcessed(_ context.Context, id uuid.UUID) (*client.Processed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.releases {
		if f.releases[i].ID == id {
			f.releases[i].Unprocessed = false
		}
	}
	f.processed = append(f.processed, id)
	return &client.Processed{OK: true, ID: id}, nil
}

// newFakeAPI returns ACME releases t1 < t2, both unprocessed, newest first.
func newFakeAPI() (*fakeAPI, types.PressRelease, types.PressRelease) {
	t1 := types.PressRelease{ID: uuid.New(), Ticker: "ACME", Title: "Q4 results", PressReleaseTimestamp: types.TimestampFromString("2024-01-15"), Unprocessed: true}
	t2 := types.PressRelease{ID: uuid.New(), Ticker: "ACME", Title: "Q1 results", PressReleaseTimestamp: types.TimestampFromString("2024-04-15"), Unprocessed: true}
	return &fakeAPI{
		companies: []types.Company{{ID: uuid.New(), Ticker: "ACME", Name: "Acme Corp"}},
		releases:  []types.PressRelease{t2, t1},
	}, t1, t2
}

func TestBrowse_ListsCompanies(t *testing.T) {
	api, _, _ := newFakeAPI()
	var out bytes.Buffer

	require.NoError(t, browse(context.Background(), &out, api, browseOptions{}))

	assert.Contains(t, out.String(), "Acme Corp")
}

func TestBrowse_ListsReleases(t *testing.T) {
	api, t1, t2 := newFakeAPI()
	var out bytes.Buffer

	require.NoError(t, browse(context.Background(), &out, api, browseOptions{Ticker: "acme"}))

	output := out.String()
	assert.Contains(t, output, "PRESS RELEASES: ACME")
	assert.Contains(t, output, t1.ID.String())
	assert.Contains(t, output, t2.ID.String())
}

func TestBrowse_ShowsGates(t *testing.T) {
	api, t1, t2 := newFakeAPI()
	var out bytes.Buffer

	require.NoError(t, browse(context.Background(), &out, api, browseOptions{Ticker: "ACME", ReleaseID: t2.ID}))

	output := out.String()
	assert.Contains(t, output, "Run only this:        no")
	assert.Contains(t, output, t1.ID.String(), "blocked by the earlier release")
	assert.Empty(t, api.runs)
}

func TestBrowse_RunOnlyThisBlocked(t *testing.T) {
	api, _, t2 := newFakeAPI()
	var out bytes.Buffer

	err := browse(context.Background(), &out, api, browseOptions{Ticker: "ACME", ReleaseID: t2.ID, Mode: types.RunOnlyThis})

	require.Error(t, err)
	assert.True(t, errors.Is(err, console.ErrGateClosed))
	assert.Empty(t, api.runs)
}

func TestBrowse_RunAllTillToday(t *testing.T) {
	api, _, t2 := newFakeAPI()
	var out bytes.Buffer

	require.NoError(t, browse(context.Background(), &out, api, browseOptions{Ticker: "ACME", ReleaseID: t2.ID, Mode: types.RunAllTillToday}))

	assert.Equal(t, []types.RunMode{types.RunAllTillToday}, api.runs)
	assert.Contains(t, out.String(), "Submitted run")
}

func TestBrowse_InvalidMode(t *testing.T) {
	api, t1, _ := newFakeAPI()
	var out bytes.Buffer

	err := browse(context.Background(), &out, api, browseOptions{Ticker: "ACME", ReleaseID: t1.ID, Mode: "everything"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --run")
}

func TestBrowse_MarkProcessedOpensNextGate(t *testing.T) {
	api, t1, t2 := newFakeAPI()
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, browse(ctx, &out, api, browseOptions{Ticker: "ACME", ReleaseID: t1.ID, Processed: true}))
	assert.Equal(t, []uuid.UUID{t1.ID}, api.processed)
	assert.Contains(t, out.String(), "Marked "+t1.ID.String()+" processed")

	out.Reset()
	require.NoError(t, browse(ctx, &out, api, browseOptions{Ticker: "ACME", ReleaseID: t2.ID, Mode: types.RunOnlyThis}))
	assert.Equal(t, []types.RunMode{types.RunOnlyThis}, api.runs)
}

func TestBrowse_ActionsNeedSelection(t *testing.T) {
	api, t1, _ := newFakeAPI()
	var out bytes.Buffer

	err := browse(context.Background(), &out, api, browseOptions{ReleaseID: t1.ID})
	assert.EqualError(t, err, "--ticker is required to select a press release")

	err = browse(context.Background(), &out, api, browseOptions{Ticker: "ACME", Processed: true})
	assert.EqualError(t, err, "--id is required to act on a press release")
}

func TestBrowse_UnknownRelease(t *testing.T) {
	api, _, _ := newFakeAPI()
	var out bytes.Buffer

	err := browse(context.Background(), &out, api, browseOptions{Ticker: "ACME", ReleaseID: uuid.New()})

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.StatusCode)
}
