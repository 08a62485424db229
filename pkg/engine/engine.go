// Package engine implements the workflow interpreter. It walks a state
// graph one transition at a time, mutating the execution context, until a
// terminal state or an unrecoverable error. Task states are the only I/O
// points; everything else is a pure payload transformation or a timed
// suspension.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/invoker"
	"github.com/voxflow/voxflow/pkg/persistence"
	"github.com/voxflow/voxflow/pkg/states"
	"github.com/voxflow/voxflow/pkg/tracing"
)

// Options bound a run. Graphs are allowed to contain cycles (the polling
// loop revisits its wait state arbitrarily often), so the engine enforces
// both a transition budget and a wall-clock budget.
type Options struct {
	// MaxTransitions caps state transitions per run.
	MaxTransitions int

	// MaxRunDuration caps a run's wall-clock time.
	MaxRunDuration time.Duration

	// RetryMaxAttempts is the total number of tries for a task whose
	// invocation fails transiently. 1 disables retries.
	RetryMaxAttempts int

	// RetryInitialInterval seeds the exponential backoff between tries.
	RetryInitialInterval time.Duration
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MaxTransitions:       1000,
		MaxRunDuration:       time.Hour,
		RetryMaxAttempts:     3,
		RetryInitialInterval: time.Second,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()

	if o.MaxTransitions <= 0 {
		o.MaxTransitions = defaults.MaxTransitions
	}

	if o.MaxRunDuration <= 0 {
		o.MaxRunDuration = defaults.MaxRunDuration
	}

	if o.RetryMaxAttempts <= 0 {
		o.RetryMaxAttempts = defaults.RetryMaxAttempts
	}

	if o.RetryInitialInterval <= 0 {
		o.RetryInitialInterval = defaults.RetryInitialInterval
	}

	return o
}

// Engine interprets state graphs.
type Engine struct {
	invoker     *invoker.Invoker
	opts        Options
	clock       clockwork.Clock
	checkpoints persistence.CheckpointRepository
	tracer      trace.Tracer
	logger      *slog.Logger
}

// New creates an engine around a task invoker.
func New(inv *invoker.Invoker, logger *slog.Logger, opts Options) *Engine {
	return &Engine{
		invoker: inv,
		opts:    opts.withDefaults(),
		clock:   clockwork.NewRealClock(),
		logger:  logger.With("module", "engine"),
	}
}

// WithClock substitutes the clock; tests use a fake one.
func (e *Engine) WithClock(clock clockwork.Clock) *Engine {
	e.clock = clock

	return e
}

// WithCheckpoints enables checkpointing: the execution context is saved
// before every wait suspension and the checkpoint removed once the run
// reaches a terminal outcome.
func (e *Engine) WithCheckpoints(repo persistence.CheckpointRepository) *Engine {
	e.checkpoints = repo

	return e
}

// WithTracer enables the span-per-transition trace sink.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	e.tracer = tracer

	return e
}

// Run advances the execution until a terminal state, an unrecoverable
// error, a budget violation, or context cancellation.
//
// On success and failure the returned context carries the outcome; on
// failure the error is the structured *execution.Error also attached to the
// context, and payload written by earlier states is preserved. Cancellation
// returns the context error with the execution still RUNNING, so a
// checkpointed run can resume elsewhere.
func (e *Engine) Run(ctx context.Context, graph *states.Graph, execCtx *execution.Context) (*execution.Context, error) {
	if err := graph.Validate(); err != nil {
		return execCtx, e.fail(execCtx, execution.NewError(execution.KindGraphDefinition, execCtx.CurrentState, err))
	}

	if execCtx.Done() {
		return execCtx, nil
	}

	if execCtx.CurrentState == "" {
		execCtx.CurrentState = graph.StartAt
	}

	logger := e.logger.With("execution_id", execCtx.ID, "pipeline", execCtx.Pipeline)
	deadline := e.clock.Now().Add(e.opts.MaxRunDuration)

	logger.Info("starting execution", "entry_state", execCtx.CurrentState)

	for {
		if err := ctx.Err(); err != nil {
			logger.Warn("execution interrupted", "state", execCtx.CurrentState, "error", err)

			return execCtx, err
		}

		if execCtx.Transitions >= e.opts.MaxTransitions {
			return execCtx, e.fail(execCtx, execution.NewError(execution.KindTimeout, execCtx.CurrentState,
				fmt.Errorf("exceeded maximum of %d transitions", e.opts.MaxTransitions)))
		}

		if e.clock.Now().After(deadline) {
			return execCtx, e.fail(execCtx, execution.NewError(execution.KindTimeout, execCtx.CurrentState,
				fmt.Errorf("exceeded run budget of %s", e.opts.MaxRunDuration)))
		}

		state, ok := graph.States[execCtx.CurrentState]
		if !ok {
			return execCtx, e.fail(execCtx, execution.NewError(execution.KindGraphDefinition, execCtx.CurrentState,
				fmt.Errorf("state %q does not exist", execCtx.CurrentState)))
		}

		execCtx.Transitions++

		done, err := e.step(ctx, logger, state, execCtx)
		if err != nil {
			if ctx.Err() != nil && execution.KindOf(err) != execution.KindTimeout {
				// Cancellation surfaced from inside a wait or a call. The
				// run stays RUNNING so its checkpoint remains resumable.
				return execCtx, ctx.Err()
			}

			return execCtx, e.fail(execCtx, execution.NewError(execution.KindOf(err), state.Name(), err))
		}

		if done {
			execCtx.Succeed()
			e.dropCheckpoint(ctx, logger, execCtx)
			logger.Info("execution succeeded", "transitions", execCtx.Transitions)

			return execCtx, nil
		}
	}
}

// Resume loads a checkpointed execution and continues it.
func (e *Engine) Resume(ctx context.Context, graph *states.Graph, executionID string) (*execution.Context, error) {
	if e.checkpoints == nil {
		return nil, fmt.Errorf("engine has no checkpoint repository")
	}

	execCtx, err := e.checkpoints.Load(ctx, executionID)
	if err != nil {
		return nil, err
	}

	e.logger.Info("resuming execution",
		"execution_id", execCtx.ID,
		"state", execCtx.CurrentState,
		"transitions", execCtx.Transitions)

	return e.Run(ctx, graph, execCtx)
}

// step performs one transition. It returns done=true when a terminal state
// completed the run.
func (e *Engine) step(ctx context.Context, logger *slog.Logger, state states.State, execCtx *execution.Context) (bool, error) {
	ctx, span := e.startSpan(ctx, state, execCtx)
	defer span.End()

	logger.Info("state transition",
		"state", state.Name(),
		"state_type", string(state.Type()),
		"transitions", execCtx.Transitions)
	logger.Debug("payload before transition",
		"state", state.Name(),
		"payload", execCtx.Payload.Snapshot())

	var (
		next string
		done bool
		err  error
	)

	switch typed := state.(type) {
	case states.Task:
		next, err = e.runTask(ctx, logger, typed, execCtx)
	case states.Wait:
		next, err = e.runWait(ctx, logger, typed, execCtx)
	case states.Choice:
		next, err = e.runChoice(logger, typed, execCtx)
	case states.Pass:
		next, err = e.runPass(typed, execCtx)
	case states.Fail:
		err = execution.Permanent(fmt.Errorf("%s", failReason(typed)))
	case states.Terminal:
		done = true
	default:
		err = execution.Definitional(fmt.Errorf("state %q has unsupported type %T", state.Name(), state))
	}

	if err != nil {
		tracing.SetError(span, err)

		return false, err
	}

	if !done {
		execCtx.CurrentState = next
	}

	return done, nil
}

func (e *Engine) runTask(ctx context.Context, logger *slog.Logger, task states.Task, execCtx *execution.Context) (string, error) {
	result, err := e.invokeWithRetry(ctx, logger, task, execCtx)
	if err != nil {
		return "", err
	}

	if err := execCtx.Payload.Set(task.OutputPath, result); err != nil {
		return "", execution.Definitional(err)
	}

	logger.Debug("task result written",
		"state", task.StateName,
		"operation", task.Operation,
		"output_path", task.OutputPath)

	return task.Next, nil
}

// invokeWithRetry applies the engine's retry policy: transient failures are
// retried with exponential backoff up to the configured attempt count;
// permanent and definitional failures abort immediately.
func (e *Engine) invokeWithRetry(ctx context.Context, logger *slog.Logger, task states.Task, execCtx *execution.Context) (any, error) {
	var result any

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = e.opts.RetryInitialInterval

	policy := backoff.WithContext(
		backoff.WithMaxRetries(expo, uint64(e.opts.RetryMaxAttempts-1)),
		ctx,
	)

	attempt := 0

	call := func() error {
		attempt++

		value, err := e.invoker.Invoke(ctx, task.Operation, task.Input, execCtx)
		if err != nil {
			if execution.KindOf(err) != execution.KindTransient {
				return backoff.Permanent(err)
			}

			logger.Warn("task invocation failed, will retry",
				"state", task.StateName,
				"operation", task.Operation,
				"attempt", attempt,
				"error", err)

			return err
		}

		result = value

		return nil
	}

	if err := backoff.Retry(call, policy); err != nil {
		return nil, err
	}

	return result, nil
}

func (e *Engine) runWait(ctx context.Context, logger *slog.Logger, wait states.Wait, execCtx *execution.Context) (string, error) {
	// The serialized context is the whole suspended state: persist it before
	// sleeping so another worker can pick the run up after a crash.
	e.saveCheckpoint(ctx, logger, execCtx)

	logger.Debug("suspending execution", "state", wait.StateName, "duration", wait.Duration)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-e.clock.After(wait.Duration):
	}

	return wait.Next, nil
}

func (e *Engine) runChoice(logger *slog.Logger, choice states.Choice, execCtx *execution.Context) (string, error) {
	for i, rule := range choice.Rules {
		matched, err := rule.When.Evaluate(execCtx.Payload)
		if err != nil {
			return "", err
		}

		if matched {
			logger.Debug("choice rule matched",
				"state", choice.StateName,
				"rule", i,
				"predicate", rule.When.String(),
				"next", rule.Next)

			return rule.Next, nil
		}
	}

	logger.Debug("choice fell through to default",
		"state", choice.StateName,
		"next", choice.Default)

	return choice.Default, nil
}

func (e *Engine) runPass(pass states.Pass, execCtx *execution.Context) (string, error) {
	if pass.CopyFrom != "" {
		value, err := execCtx.Payload.Get(pass.CopyFrom)
		if err != nil {
			return "", execution.Definitional(err)
		}

		if err := execCtx.Payload.Set(pass.CopyTo, value); err != nil {
			return "", execution.Definitional(err)
		}
	}

	return pass.Next, nil
}

func (e *Engine) fail(execCtx *execution.Context, execErr *execution.Error) error {
	execCtx.Fail(execErr)

	e.logger.Error("execution failed",
		"execution_id", execCtx.ID,
		"state", execErr.State,
		"kind", string(execErr.Kind),
		"error", execErr.Message)

	return execErr
}

func (e *Engine) saveCheckpoint(ctx context.Context, logger *slog.Logger, execCtx *execution.Context) {
	if e.checkpoints == nil {
		return
	}

	if err := e.checkpoints.Save(ctx, execCtx); err != nil {
		// A failed checkpoint degrades resumability, not the run itself.
		logger.Warn("failed to save checkpoint", "error", err)
	}
}

func (e *Engine) dropCheckpoint(ctx context.Context, logger *slog.Logger, execCtx *execution.Context) {
	if e.checkpoints == nil {
		return
	}

	if err := e.checkpoints.Delete(ctx, execCtx.ID); err != nil {
		logger.Warn("failed to delete checkpoint", "error", err)
	}
}

func (e *Engine) startSpan(ctx context.Context, state states.State, execCtx *execution.Context) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := e.tracer.Start(ctx, "transition."+state.Name(), trace.WithAttributes(
		attribute.String(tracing.ExecutionIDKey, execCtx.ID),
		attribute.String(tracing.PipelineKey, execCtx.Pipeline),
		attribute.String(tracing.StateNameKey, state.Name()),
		attribute.String(tracing.StateTypeKey, string(state.Type())),
		attribute.Int(tracing.TransitionsKey, execCtx.Transitions),
		attribute.String(tracing.PayloadKey, execCtx.Payload.Snapshot()),
	))

	return ctx, span
}

func failReason(fail states.Fail) string {
	if fail.Reason != "" {
		return fail.Reason
	}

	return fmt.Sprintf("reached fail state %q", fail.StateName)
}
