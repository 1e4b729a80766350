// Package operations orchestrates one pipeline run as an ordered chain
// of steps. Steps communicate only through persisted tables; the runner
// owns no cross-step state beyond the table store it hands each step.
package operations

import (
	"context"
	"time"
)

// Step identifiers, in mandatory execution order.
const (
	StepIDFetch     = "fetch"
	StepIDImpute    = "impute"
	StepIDUnify     = "unify"
	StepIDFilter    = "filter"
	StepIDZones     = "zones"
	StepIDLeakage   = "leakage"
	StepIDAggregate = "aggregate"
	StepIDExport    = "export"
)

// StepStatus is the lifecycle state of one step within a run.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// Step is one unit of pipeline work. Execute must be idempotent: each
// step fully replaces its output tables, so re-running a step after a
// failure is always safe.
type Step interface {
	ID() string
	Name() string
	Execute(ctx context.Context) error
}

// StepState records the outcome of one step execution.
type StepState struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    StepStatus    `json:"status"`
	StartTime time.Time     `json:"start_time,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// RunSummary is the result of one full pipeline run.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Success   bool          `json:"success"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Steps     []StepState   `json:"steps"`
	FailedID  string        `json:"failed_step,omitempty"`
}

// stepFunc adapts a plain function to the Step interface.
type stepFunc struct {
	id   string
	name string
	fn   func(ctx context.Context) error
}

// NewStep wraps a function as a Step.
func NewStep(id, name string, fn func(ctx context.Context) error) Step {
	return &stepFunc{id: id, name: name, fn: fn}
}

func (s *stepFunc) ID() string   { return s.id }
func (s *stepFunc) Name() string { return s.name }

func (s *stepFunc) Execute(ctx context.Context) error { return s.fn(ctx) }
