package server

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/prflow/internal/ingestion"
	"github.com/jonathan/prflow/internal/types"
)

func TestHandleListCompanies(t *testing.T) {
	s := newTestServer()
	s.store.companies = []types.Company{
		{ID: uuid.New(), Ticker: "ACME", Name: "Acme Corp"},
		{ID: uuid.New(), Ticker: "BETA", Name: "Beta Inc"},
	}

	w := s.do(t, http.MethodGet, "/companies", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	companies := decodeBody(t, w)["companies"].([]any)
	require.Len(t, companies, 2)
	assert.Equal(t, "ACME", companies[0].(map[string]any)["ticker"])
}

func TestHandleListCompanies_Empty(t *testing.T) {
	s := newTestServer()

	w := s.do(t, http.MethodGet, "/companies", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"companies":[]}`, w.Body.String())
}

func TestHandleCreateCompany(t *testing.T) {
	s := newTestServer()

	w := s.doJSON(t, http.MethodPost, "/companies", map[string]any{
		"ticker": "acme",
		"name":   "Acme Corp",
		"sector": nil,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "ACME", resp["ticker"])
	company := resp["company"].(map[string]any)
	assert.Equal(t, "Acme Corp", company["name"])
	assert.Nil(t, company["sector"])
}

func TestHandleCreateCompany_MissingName(t *testing.T) {
	s := newTestServer()

	w := s.doJSON(t, http.MethodPost, "/companies", map[string]any{"ticker": "ACME"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "field required", firstDetailMsg(t, resp))
	loc := resp["detail"].([]any)[0].(map[string]any)["loc"].([]any)
	assert.Equal(t, []any{"body", "name"}, loc)
}

func TestHandleCreateCompany_InvalidJSON(t *testing.T) {
	s := newTestServer()

	w := s.do(t, http.MethodPost, "/companies", strings.NewReader("{"), "application/json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["detail"], "Invalid request body")
}

func TestHandleBulkCompanies(t *testing.T) {
	s := newTestServer()
	s.ingest.companiesCSV = []types.Company{{ID: uuid.New(), Ticker: "ACME", Name: "Acme Corp"}}

	w := s.upload(t, "/companies/bulk", "ticker,name\nACME,Acme Corp\n")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ticker,name\nACME,Acme Corp\n", s.ingest.lastCSV)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["ok"])
	assert.Len(t, resp["added"], 1)
}

func TestHandleBulkCompanies_MissingColumns(t *testing.T) {
	s := newTestServer()
	s.ingest.csvErr = &ingestion.CSVError{Message: "CSV needs ticker and name columns"}

	w := s.upload(t, "/companies/bulk", "ticker\nACME\n")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CSV needs ticker and name columns", decodeBody(t, w)["detail"])
}

func TestHandleBulkCompanies_NoFile(t *testing.T) {
	s := newTestServer()

	w := s.doJSON(t, http.MethodPost, "/companies/bulk", map[string]string{"file": "x"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "field required", firstDetailMsg(t, decodeBody(t, w)))
}
