// Package scheduler triggers pipeline runs on demand and on a daily
// cron schedule.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/history"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/logging"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/pipeline"
)

// ErrRunInProgress is returned when a trigger arrives while another run is
// still executing.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Pipeline executes one end-to-end run.
type Pipeline interface {
	Run(ctx context.Context) *pipeline.Result
}

// Runner allows at most one pipeline run at a time and records every
// finished run.
type Runner struct {
	pipeline Pipeline
	store    history.Store
	timeout  time.Duration
	busy     atomic.Bool
}

// NewRunner creates a runner. store may be nil; timeout <= 0 disables the
// per-run deadline.
func NewRunner(p Pipeline, store history.Store, timeout time.Duration) *Runner {
	return &Runner{pipeline: p, store: store, timeout: timeout}
}

// Busy reports whether a run is executing.
func (r *Runner) Busy() bool {
	return r.busy.Load()
}

// Run executes the pipeline once. The returned error is only ever
// ErrRunInProgress; pipeline failures are reported in the Result.
func (r *Runner) Run(ctx context.Context, trigger history.Trigger) (*pipeline.Result, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.busy.Store(false)

	logger := logging.FromContext(ctx).With().Str("trigger", string(trigger)).Logger()
	ctx = logger.WithContext(ctx)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	result := r.pipeline.Run(ctx)

	if r.store != nil {
		// Recording must outlive a cancelled request context.
		if err := r.store.Record(context.WithoutCancel(ctx), history.FromResult(trigger, result)); err != nil {
			logger.Warn().Err(err).Str("run_id", result.RunID).Msg("Failed to record run")
		}
	}
	return result, nil
}

// Recent returns recorded runs, newest first.
func (r *Runner) Recent(ctx context.Context, limit int) ([]history.Run, error) {
	if r.store == nil {
		return nil, nil
	}
	return r.store.Recent(ctx, limit)
}
