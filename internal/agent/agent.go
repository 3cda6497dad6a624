// Package agent hands press releases to the processing pipeline.
//
// Processing itself happens elsewhere; this package only defines the
// submission contract and a pipeline that records submissions in the log.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/prflow/internal/types"
)

// ErrRejected is returned by pipelines that refuse a submission.
var ErrRejected = errors.New("run rejected by pipeline")

// Run is one submission of a release to the pipeline.
type Run struct {
	ID          uuid.UUID     `json:"run_id"`
	Mode        types.RunMode `json:"mode"`
	Ticker      string        `json:"ticker"`
	ReleaseID   uuid.UUID     `json:"release_id"`
	SubmittedAt time.Time     `json:"submitted_at"`
}

// NewRun creates a run for release in the given mode.
func NewRun(mode types.RunMode, release *types.PressRelease) Run {
	return Run{
		ID:          uuid.New(),
		Mode:        mode,
		Ticker:      release.Ticker,
		ReleaseID:   release.ID,
		SubmittedAt: time.Now().UTC(),
	}
}

func (r Run) String() string {
	return fmt.Sprintf("%s %s %s/%s", r.ID, r.Mode, r.Ticker, r.ReleaseID)
}

// Pipeline accepts runs for asynchronous processing.
type Pipeline interface {
	Submit(ctx context.Context, run Run) error
}

// LogPipeline accepts every run and logs it. It keeps the accepted runs in
// memory so callers can inspect recent submissions.
type LogPipeline struct {
	mu   sync.Mutex
	runs []Run
}

// NewLogPipeline creates an empty LogPipeline.
func NewLogPipeline() *LogPipeline {
	return &LogPipeline{}
}

// Submit records run.
func (p *LogPipeline) Submit(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run.Mode != types.RunAllTillToday && run.Mode != types.RunOnlyThis {
		return fmt.Errorf("%w: unknown mode %q", ErrRejected, run.Mode)
	}
	p.mu.Lock()
	p.runs = append(p.runs, run)
	p.mu.Unlock()
	log.Printf("[agent] accepted run %s", run)
	return nil
}

// Runs returns a copy of the accepted runs in submission order.
func (p *LogPipeline) Runs() []Run {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Run, len(p.runs))
	copy(out, p.runs)
	return out
}
