package server

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/prflow/internal/agent"
	"github.com/jonathan/prflow/internal/eligibility"
	"github.com/jonathan/prflow/internal/types"
)

// gatesFor loads the release and its ticker's history and evaluates both gates.
func (s *Server) gatesFor(ctx context.Context, id uuid.UUID) (*types.PressRelease, eligibility.Gates, error) {
	release, err := s.store.GetPressRelease(ctx, id)
	if err != nil {
		return nil, eligibility.Gates{}, err
	}
	if release == nil {
		return nil, eligibility.Gates{}, &ErrReleaseNotFound{ID: id}
	}

	releases, err := s.store.ListPressReleasesByTicker(ctx, release.Ticker)
	if err != nil {
		return nil, eligibility.Gates{}, err
	}
	selected := eligibility.Find(releases, id)
	if selected == nil {
		// The list is read separately from the release; include it if a
		// concurrent write moved it out of view.
		releases = append(releases, *release)
		selected = &releases[len(releases)-1]
	}
	return release, eligibility.Evaluate(releases, selected), nil
}

// handleEligibility reports which run actions are open for a release
func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	id, err := parseReleaseID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	_, gates, err := s.gatesFor(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, gates)
}

// handleSubmitRun hands the release to the pipeline when its gate is open
func (s *Server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	id, err := parseReleaseID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req types.RunRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	release, gates, err := s.gatesFor(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	open := gates.RunAllTillToday
	if req.Mode == types.RunOnlyThis {
		open = gates.RunOnlyThis
	}
	if !open {
		s.writeError(w, &ErrGateClosed{ID: id, Mode: req.Mode, BlockedBy: gates.BlockedBy})
		return
	}

	run := agent.NewRun(req.Mode, release)
	if err := s.pipeline.Submit(r.Context(), run); err != nil {
		s.writeError(w, err)
		return
	}
	log.Printf("[run] submitted %s", run)

	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"ok":     true,
		"run_id": run.ID,
		"mode":   run.Mode,
	})
}
