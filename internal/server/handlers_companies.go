package server

import (
	"net/http"

	"github.com/jonathan/prflow/internal/types"
)

// handleListCompanies lists every company ordered by ticker
func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if companies == nil {
		companies = []types.Company{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"companies": companies})
}

// handleCreateCompany adds a company or updates the one with the same ticker
func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCompanyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	company, err := s.ingest.AddCompany(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"ok":      true,
		"ticker":  company.Ticker,
		"company": company,
	})
}

// handleBulkCompanies upserts every company in an uploaded CSV
func (s *Server) handleBulkCompanies(w http.ResponseWriter, r *http.Request) {
	file, ok := s.uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	added, err := s.ingest.AddCompaniesCSV(r.Context(), file)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"ok": true, "added": added})
}
