// Package history keeps a record of finished pipeline runs.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/pipeline"
)

// Trigger identifies what started a run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
	TriggerCLI       Trigger = "cli"
)

// Run is one recorded pipeline run.
type Run struct {
	ID         string           `json:"id"`
	Trigger    Trigger          `json:"trigger"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	Result     *pipeline.Result `json:"result"`
}

// FromResult builds a Run record for a finished result.
func FromResult(trigger Trigger, r *pipeline.Result) Run {
	return Run{
		ID:         r.RunID,
		Trigger:    trigger,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Result:     r,
	}
}

// Store persists runs. Recent returns newest first.
type Store interface {
	Record(ctx context.Context, run Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
}

// DefaultCapacity is used when Memory is created with a non-positive size.
const DefaultCapacity = 50

// Memory is a fixed-size in-process ring buffer of runs.
type Memory struct {
	mu    sync.Mutex
	runs  []Run
	next  int
	count int
}

// NewMemory creates a ring buffer holding at most capacity runs.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{runs: make([]Run, capacity)}
}

func (m *Memory) Record(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[m.next] = run
	m.next = (m.next + 1) % len(m.runs)
	if m.count < len(m.runs) {
		m.count++
	}
	return nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > m.count {
		limit = m.count
	}
	out := make([]Run, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.runs)) % len(m.runs)
		out = append(out, m.runs[idx])
	}
	return out, nil
}
