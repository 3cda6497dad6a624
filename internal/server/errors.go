package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/prflow/internal/agent"
	"github.com/jonathan/prflow/internal/crawling"
	"github.com/jonathan/prflow/internal/db"
	"github.com/jonathan/prflow/internal/ingestion"
	"github.com/jonathan/prflow/internal/types"
)

// ErrBadRequest indicates a malformed request outside body validation
type ErrBadRequest struct {
	Message string
}

func (e *ErrBadRequest) Error() string {
	return e.Message
}

// ErrReleaseNotFound indicates the press release does not exist
type ErrReleaseNotFound struct {
	ID uuid.UUID
}

func (e *ErrReleaseNotFound) Error() string {
	return fmt.Sprintf("press release not found: %s", e.ID)
}

// ErrGateClosed indicates the selected release cannot run in the requested mode
type ErrGateClosed struct {
	ID        uuid.UUID
	Mode      types.RunMode
	BlockedBy []uuid.UUID
}

func (e *ErrGateClosed) Error() string {
	if len(e.BlockedBy) > 0 {
		return fmt.Sprintf("cannot run %s for %s: %d earlier press release(s) are unprocessed", e.Mode, e.ID, len(e.BlockedBy))
	}
	return fmt.Sprintf("cannot run %s for %s", e.Mode, e.ID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		badRequest *ErrBadRequest
		notFound   *ErrReleaseNotFound
		gate       *ErrGateClosed
		csvErr     *ingestion.CSVError
		crawlErr   *crawling.CrawlError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case len(types.FieldErrors(err)) > 0:
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFound), errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &gate), errors.Is(err, agent.ErrRejected):
		return http.StatusConflict
	case errors.As(err, &badRequest), errors.As(err, &csvErr):
		return http.StatusBadRequest
	case errors.As(err, &crawlErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
