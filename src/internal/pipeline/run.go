package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunContext is the state of one scan, shared by its workers.
type RunContext struct {
	ID  string
	Log *zap.Logger

	discovered       atomic.Int64
	skippedProcessed atomic.Int64
	skipped          atomic.Int64
	recorded         atomic.Int64
	organized        atomic.Int64
	failed           atomic.Int64

	snapshotOnce sync.Once
}

// NewRunContext assigns a fresh run ID and tags log with it.
func NewRunContext(log *zap.Logger) *RunContext {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &RunContext{ID: id, Log: log.With(zap.String("run_id", id))}
}

// Summary reports what a run did.
type Summary struct {
	RunID string `json:"run_id"`
	// Discovered counts files handed to the run, including already processed ones.
	Discovered       int64 `json:"discovered"`
	SkippedProcessed int64 `json:"skipped_processed"`
	// Skipped counts files that reached a terminal skip state.
	Skipped   int64 `json:"skipped"`
	Recorded  int64 `json:"recorded"`
	Organized int64 `json:"organized"`
	Failed    int64 `json:"failed"`
	Cancelled bool  `json:"cancelled"`
}

func (rc *RunContext) summary() Summary {
	return Summary{
		RunID:            rc.ID,
		Discovered:       rc.discovered.Load(),
		SkippedProcessed: rc.skippedProcessed.Load(),
		Skipped:          rc.skipped.Load(),
		Recorded:         rc.recorded.Load(),
		Organized:        rc.organized.Load(),
		Failed:           rc.failed.Load(),
	}
}
