package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/prflow/internal/ingestion"
	"github.com/jonathan/prflow/internal/types"
)

// parseReleaseID reads the {id} path value.
func parseReleaseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ErrBadRequest{Message: "Invalid press release ID"}
	}
	return id, nil
}

// handleListPressReleases lists a ticker's releases, newest first, without
// their crawl payloads
func (s *Server) handleListPressReleases(w http.ResponseWriter, r *http.Request) {
	ticker := types.NormalizeTicker(r.URL.Query().Get("ticker"))
	if ticker == "" {
		s.errorResponse(w, http.StatusBadRequest, "ticker is required")
		return
	}

	releases, err := s.store.ListPressReleasesByTicker(r.Context(), ticker)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if releases == nil {
		releases = []types.PressRelease{}
	}
	for i := range releases {
		releases[i].RawResult = nil
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"press_releases": releases})
}

// handleGetPressRelease returns one release including raw_result
func (s *Server) handleGetPressRelease(w http.ResponseWriter, r *http.Request) {
	id, err := parseReleaseID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	release, err := s.store.GetPressRelease(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if release == nil {
		s.writeError(w, &ErrReleaseNotFound{ID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, release)
}

// handleCreatePressRelease crawls the URL and stores an unprocessed release
func (s *Server) handleCreatePressRelease(w http.ResponseWriter, r *http.Request) {
	var req types.CreatePressReleaseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	saved, err := s.ingest.AddPressRelease(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"ok":  true,
		"id":  saved.ID,
		"url": saved.URL,
	})
}

// handleBulkPressReleases crawls and stores every release in an uploaded CSV.
// Row failures are reported per row; only file-level problems fail the request.
func (s *Server) handleBulkPressReleases(w http.ResponseWriter, r *http.Request) {
	file, ok := s.uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	results, err := s.ingest.AddPressReleasesCSV(r.Context(), file)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if results == nil {
		results = []ingestion.RowResult{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"ok":      true,
		"results": results,
		"summary": ingestion.Summarize(results),
	})
}

// handleMarkProcessed clears the unprocessed flag
func (s *Server) handleMarkProcessed(w http.ResponseWriter, r *http.Request) {
	id, err := parseReleaseID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	release, err := s.store.MarkProcessed(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"ok":          true,
		"id":          release.ID,
		"unprocessed": release.Unprocessed,
	})
}
