package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"gcbmprep/internal/infrastructure"
)

// Runner executes registered steps sequentially. The first failure stops
// the run and marks every later step as skipped.
type Runner struct {
	registry *Registry
	config   *Config
	tracing  *infrastructure.Tracing
	metrics  *infrastructure.Metrics
	logger   *slog.Logger
}

// NewRunner creates a runner. tracing and metrics may be nil.
func NewRunner(registry *Registry, config *Config, tracing *infrastructure.Tracing, metrics *infrastructure.Metrics, logger *slog.Logger) *Runner {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry: registry,
		config:   config,
		tracing:  tracing,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "runner")),
	}
}

// Run executes every step in registration order and returns the final
// state together with the first error.
func (r *Runner) Run(ctx context.Context) (*OperationState, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	steps := r.registry.List()

	state := NewOperationState(infrastructure.GetTraceID(ctx))
	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}
	state.Start()

	ctx, span := r.tracing.StartSpan(ctx, "pipeline.run",
		attribute.Int("pipeline.steps", len(steps)))

	r.logger.InfoContext(ctx, "sequential_execution_start",
		slog.String("operation_id", state.ID),
		slog.Int("step_count", len(steps)))

	err := r.runSteps(ctx, state, steps)
	infrastructure.EndSpan(span, err)

	switch {
	case err == nil:
		state.Complete()
		r.logger.InfoContext(ctx, "all_steps_completed",
			slog.String("operation_id", state.ID),
			slog.Duration("duration", state.Duration()))
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel()
	default:
		state.Fail(err)
	}
	return state, err
}

func (r *Runner) runSteps(ctx context.Context, state *OperationState, steps []Step) error {
	for i, step := range steps {
		if ctx.Err() != nil {
			r.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			r.skipRemaining(state, steps[i:], "operation cancelled")
			return NewCancellationError(step.ID())
		}

		r.logger.InfoContext(ctx, "executing_step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := r.executeStep(ctx, state, step); err != nil {
			r.logger.ErrorContext(ctx, "step_failed",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("error_type", string(GetErrorType(err))),
				slog.String("error", err.Error()))
			r.skipRemaining(state, steps[i+1:], fmt.Sprintf("previous step %s not completed", step.ID()))
			return err
		}
	}
	return nil
}

// executeStep validates, runs and records one step.
func (r *Runner) executeStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		stepState = NewStepState(step.ID(), step.Name())
		state.SetStage(step.ID(), stepState)
	}

	if skipper, ok := step.(Skipper); ok {
		if reason, skip := skipper.SkipReason(state); skip {
			stepState.Skip(reason)
			r.logger.InfoContext(ctx, "step_skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("reason", reason))
			return nil
		}
	}

	if err := step.Validate(state); err != nil {
		verr := NewValidationError(step.ID(), err.Error())
		verr.Cause = err
		stepState.Fail(verr)
		return verr
	}

	stepCtx := ctx
	timeout := r.config.GetStepTimeout(step.ID())
	if timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stepCtx, span := r.tracing.StartSpan(stepCtx, "step."+step.ID(),
		attribute.String("step.id", step.ID()),
		attribute.String("step.name", step.Name()))

	stepState.Start()
	err := step.Execute(infrastructure.WithLogger(stepCtx, infrastructure.WithStep(r.logger, step.ID())), state)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			err = NewCancellationError(step.ID())
		case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
			err = NewTimeoutError(step.ID(), timeout.String())
		default:
			var opErr *OperationError
			if !errors.As(err, &opErr) {
				err = NewExecutionError(step.ID(), err)
			}
		}
		stepState.Fail(err)
	} else {
		stepState.Complete()
		r.logger.InfoContext(ctx, "step_completed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", stepState.Duration()))
	}

	infrastructure.EndSpan(span, err)
	r.metrics.ObserveStep(step.ID(), stepState.Duration(), err)
	return err
}

func (r *Runner) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStage(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
		}
	}
}
