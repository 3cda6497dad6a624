package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/prflow/internal/agent"
	"github.com/jonathan/prflow/internal/db"
	"github.com/jonathan/prflow/internal/eligibility"
	"github.com/jonathan/prflow/internal/ingestion"
	"github.com/jonathan/prflow/internal/server/ratelimit"
	"github.com/jonathan/prflow/internal/types"
)

// mockStore keeps companies and releases in memory
type mockStore struct {
	mu        sync.Mutex
	companies []types.Company
	releases  map[uuid.UUID]types.PressRelease
	err       error
}

func newMockStore() *mockStore {
	return &mockStore{releases: make(map[uuid.UUID]types.PressRelease)}
}

func (m *mockStore) ListCompanies(_ context.Context) ([]types.Company, error) {
	return m.companies, m.err
}

func (m *mockStore) ListPressReleasesByTicker(_ context.Context, ticker string) ([]types.PressRelease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []types.PressRelease
	for _, pr := range m.releases {
		if pr.Ticker == ticker {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return eligibility.Compare(&out[i], &out[j]) > 0 })
	return out, nil
}

func (m *mockStore) GetPressRelease(_ context.Context, id uuid.UUID) (*types.PressRelease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	pr, ok := m.releases[id]
	if !ok {
		return nil, nil
	}
	return &pr, nil
}

func (m *mockStore) MarkProcessed(_ context.Context, id uuid.UUID) (*types.PressRelease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.releases[id]
	if !ok {
		return nil, fmt.Errorf("press release %s: %w", id, db.ErrNotFound)
	}
	pr.Unprocessed = false
	m.releases[id] = pr
	return &pr, nil
}

func (m *mockStore) add(ticker, date string, unprocessed bool) types.PressRelease {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr := types.PressRelease{
		ID:                    uuid.New(),
		Ticker:                ticker,
		Title:                 ticker + " " + date,
		SourceURL:             "https://example.com/" + date,
		PressReleaseTimestamp: types.TimestampFromString(date),
		CrawlTimestamp:        time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		Unprocessed:           unprocessed,
		RawResult:             &types.CrawlResult{SourceURL: "https://example.com/" + date, MainContent: "body"},
	}
	m.releases[pr.ID] = pr
	return pr
}

// mockIngester validates like the real service but never crawls
type mockIngester struct {
	companiesCSV []types.Company
	releasesCSV  []ingestion.RowResult
	csvErr       error
	lastCSV      string
}

func (m *mockIngester) AddCompany(_ context.Context, req types.CreateCompanyRequest) (*types.Company, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &types.Company{ID: uuid.New(), Ticker: types.NormalizeTicker(req.Ticker), Name: req.Name, Sector: req.Sector}, nil
}

func (m *mockIngester) AddCompaniesCSV(_ context.Context, r io.Reader) ([]types.Company, error) {
	data, _ := io.ReadAll(r)
	m.lastCSV = string(data)
	return m.companiesCSV, m.csvErr
}

func (m *mockIngester) AddPressRelease(_ context.Context, req types.CreatePressReleaseRequest) (*ingestion.Saved, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &ingestion.Saved{ID: uuid.New(), URL: req.URL}, nil
}

func (m *mockIngester) AddPressReleasesCSV(_ context.Context, r io.Reader) ([]ingestion.RowResult, error) {
	data, _ := io.ReadAll(r)
	m.lastCSV = string(data)
	return m.releasesCSV, m.csvErr
}

type testServer struct {
	*Server
	store    *mockStore
	ingest   *mockIngester
	pipeline *agent.LogPipeline
}

func newTestServer() *testServer {
	store := newMockStore()
	ingest := &mockIngester{}
	pipeline := agent.NewLogPipeline()
	return &testServer{
		Server:   newServer(store, ingest, pipeline, nil),
		store:    store,
		ingest:   ingest,
		pipeline: pipeline,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return s.do(t, method, path, body, "application/json")
}

func (s *testServer) upload(t *testing.T, path, csvData string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "upload.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvData))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return s.do(t, http.MethodPost, path, &buf, mw.FormDataContentType())
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// firstDetailMsg reads detail[0].msg from a 422 response.
func firstDetailMsg(t *testing.T, resp map[string]any) string {
	t.Helper()
	list, ok := resp["detail"].([]any)
	require.True(t, ok, "detail should be a list: %v", resp["detail"])
	require.NotEmpty(t, list)
	return list[0].(map[string]any)["msg"].(string)
}

// TestHealthEndpoint tests the /health endpoint
func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer()

	w := s.do(t, http.MethodOptions, "/companies", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer()
	w := s.do(t, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimitExceeded(t *testing.T) {
	s := newTestServer()
	s.rateLimiter = ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Hour,
	})
	defer s.rateLimiter.Stop()

	first := s.do(t, http.MethodGet, "/companies", nil, "")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := s.do(t, http.MethodGet, "/companies", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, decodeBody(t, second)["detail"], "Rate limit exceeded")

	health := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestWriteError_StoreFailure(t *testing.T) {
	s := newTestServer()
	s.store.err = fmt.Errorf("failed to list companies: connection refused")

	w := s.do(t, http.MethodGet, "/companies", nil, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to list companies: connection refused", decodeBody(t, w)["detail"])
}

func TestHandleSubmitRun_InvalidID(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/press-releases/not-a-uuid/run", strings.NewReader(`{"mode":"only_this"}`))
	req.SetPathValue("id", "not-a-uuid")
	w := httptest.NewRecorder()

	s.handleSubmitRun(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid press release ID", decodeBody(t, w)["detail"])
}
