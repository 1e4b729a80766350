package operations

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"taxipulse/internal/infrastructure"
)

// Runner executes the step chain sequentially. There is no partial
// success: the first structural failure stops the run, and remaining
// steps are marked skipped so the summary shows exactly where the run
// stopped.
type Runner struct {
	steps   []Step
	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// NewRunner creates a runner over an ordered step chain. metrics may be
// nil.
func NewRunner(steps []Step, metrics *infrastructure.Metrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{steps: steps, metrics: metrics, logger: logger}
}

// Run executes the chain once under a fresh run ID and returns the
// summary. The returned error is the first step failure, if any.
func (r *Runner) Run(ctx context.Context) (RunSummary, error) {
	runID := uuid.New().String()
	ctx = infrastructure.WithRunID(ctx, runID)
	start := time.Now()

	summary := RunSummary{
		RunID:     runID,
		StartTime: start,
		Steps:     make([]StepState, 0, len(r.steps)),
	}

	r.logger.InfoContext(ctx, "pipeline run starting",
		slog.Int("steps", len(r.steps)))

	var runErr error
	for _, step := range r.steps {
		if runErr != nil {
			summary.Steps = append(summary.Steps, StepState{
				ID:     step.ID(),
				Name:   step.Name(),
				Status: StepStatusSkipped,
			})
			continue
		}

		state := r.executeStep(ctx, step)
		summary.Steps = append(summary.Steps, state)

		if state.Status == StepStatusFailed {
			summary.FailedID = step.ID()
			runErr = &StepError{StepID: step.ID(), Message: state.Error}
		}
	}

	summary.Duration = time.Since(start)
	summary.Success = runErr == nil

	status := "success"
	if runErr != nil {
		status = "failure"
	}
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues(status).Inc()
	}

	r.logger.InfoContext(ctx, "pipeline run finished",
		slog.Bool("success", summary.Success),
		slog.Duration("duration", summary.Duration),
		slog.String("failed_step", summary.FailedID))

	return summary, runErr
}

func (r *Runner) executeStep(ctx context.Context, step Step) StepState {
	state := StepState{
		ID:        step.ID(),
		Name:      step.Name(),
		Status:    StepStatusActive,
		StartTime: time.Now(),
	}

	r.logger.InfoContext(ctx, "step starting",
		slog.String("step", step.ID()))

	err := step.Execute(ctx)
	state.Duration = time.Since(state.StartTime)

	if r.metrics != nil {
		r.metrics.StageDuration.WithLabelValues(step.ID()).Observe(state.Duration.Seconds())
	}

	if err != nil {
		state.Status = StepStatusFailed
		state.Error = err.Error()
		r.logger.ErrorContext(ctx, "step failed",
			slog.String("step", step.ID()),
			slog.Duration("duration", state.Duration),
			slog.String("error", err.Error()))
		return state
	}

	state.Status = StepStatusCompleted
	r.logger.InfoContext(ctx, "step completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", state.Duration))

	return state
}

// StepError identifies which step failed a run.
type StepError struct {
	StepID  string
	Message string
}

func (e *StepError) Error() string {
	return "step " + e.StepID + " failed: " + e.Message
}
