package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/history"
)

// Status describes the automation state.
type Status struct {
	Running  bool        `json:"running"`
	Schedule []string    `json:"schedule"`
	NextRuns []time.Time `json:"nextRuns"`
}

// Automation fires scheduled runs at fixed daily times in the process's
// local timezone. Jobs are handed to a worker pool so the cron goroutine
// never blocks on a run.
type Automation struct {
	runner *Runner
	specs  []string
	pool   *ants.Pool
	loc    *time.Location

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	cron *cron.Cron
}

// NewAutomation validates the cron specs and creates the worker pool.
func NewAutomation(runner *Runner, specs []string, workers int) (*Automation, error) {
	if len(specs) == 0 {
		return nil, errors.New("no schedule configured")
	}
	for _, spec := range specs {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
		}
	}
	if workers <= 0 {
		workers = 1
	}

	pool, err := ants.NewPool(workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p interface{}) {
			log.Error().Interface("panic", p).Msg("Panic in scheduled run")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Automation{
		runner: runner,
		specs:  append([]string(nil), specs...),
		pool:   pool,
		loc:    time.Local,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start registers the schedule. It reports alreadyRunning=true and changes
// nothing when the schedule is active.
func (a *Automation) Start() (alreadyRunning bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron != nil {
		return true, nil
	}
	if a.ctx.Err() != nil {
		return false, errors.New("automation is closed")
	}

	c := cron.New(cron.WithLocation(a.loc))
	for _, spec := range a.specs {
		if _, err := c.AddFunc(spec, a.submit); err != nil {
			return false, fmt.Errorf("scheduling %q: %w", spec, err)
		}
	}
	c.Start()
	a.cron = c

	log.Info().Strs("schedule", a.specs).Msg("Automation started")
	return false, nil
}

// Stop removes the schedule. Runs already executing are not interrupted.
// It reports whether the schedule was active.
func (a *Automation) Stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron == nil {
		return false
	}
	<-a.cron.Stop().Done()
	a.cron = nil
	log.Info().Msg("Automation stopped")
	return true
}

// Status returns the current schedule and, while running, the next fire
// times in ascending order.
func (a *Automation) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := Status{Running: a.cron != nil, Schedule: append([]string(nil), a.specs...), NextRuns: []time.Time{}}
	if a.cron == nil {
		return st
	}
	for _, e := range a.cron.Entries() {
		if !e.Next.IsZero() {
			st.NextRuns = append(st.NextRuns, e.Next)
		}
	}
	sort.Slice(st.NextRuns, func(i, j int) bool { return st.NextRuns[i].Before(st.NextRuns[j]) })
	return st
}

// Close stops the schedule, cancels in-flight scheduled runs and releases
// the pool.
func (a *Automation) Close() {
	a.Stop()
	a.cancel()
	a.pool.Release()
}

func (a *Automation) submit() {
	if err := a.pool.Submit(a.runScheduled); err != nil {
		log.Warn().Err(err).Msg("Skipping scheduled run")
	}
}

func (a *Automation) runScheduled() {
	result, err := a.runner.Run(a.ctx, history.TriggerScheduled)
	if err != nil {
		log.Warn().Err(err).Msg("Skipping scheduled run")
		return
	}
	event := log.Info()
	if !result.Success {
		event = log.Error().Str("stage", result.Stage).Str("error", result.Error)
	}
	event.Str("run_id", result.RunID).Bool("success", result.Success).
		Str("audio", result.AudioPath).Dur("duration", result.Duration()).Msg("Scheduled run finished")
}
