package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dwsmith1983/autosetup/internal/lifecycle"
	"github.com/dwsmith1983/autosetup/internal/metrics"
	"github.com/dwsmith1983/autosetup/pkg/types"
)

// DefaultPacing is the pause between consecutive actions of a sequence.
const DefaultPacing = 300 * time.Millisecond

// Observer is notified as a sequence progresses. Calls are made on the
// runner's goroutine, one action at a time.
type Observer interface {
	ActionStarted(index, total int, name string)
	ActionFinished(index, total int, res types.ExecutionResult)
}

type nopObserver struct{}

func (nopObserver) ActionStarted(int, int, string)                 {}
func (nopObserver) ActionFinished(int, int, types.ExecutionResult) {}

// Runner executes sequences strictly in order, one action at a time.
type Runner struct {
	executor *Executor
	observer Observer
	logger   *slog.Logger
	tracer   trace.Tracer
	pacing   time.Duration
	sleep    func(ctx context.Context, d time.Duration)
	now      func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPacing sets the pause between actions. Zero disables pacing.
func WithPacing(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d >= 0 {
			r.pacing = d
		}
	}
}

// WithObserver sets the observer notified before and after each action.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRunnerTracer sets the tracer used for sequence spans.
func WithRunnerTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithSleep replaces the pacing wait (useful for testing).
func WithSleep(fn func(ctx context.Context, d time.Duration)) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// NewRunner creates a Runner that executes actions through exec.
func NewRunner(exec *Executor, opts ...RunnerOption) *Runner {
	if exec == nil {
		exec = NewExecutor()
	}
	r := &Runner{
		executor: exec,
		observer: nopObserver{},
		logger:   slog.New(slog.DiscardHandler),
		tracer:   otel.Tracer(tracerName),
		pacing:   DefaultPacing,
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RunAction executes a single action outside any sequence.
func (r *Runner) RunAction(ctx context.Context, a Action) types.ExecutionResult {
	r.observer.ActionStarted(1, 1, a.Name)
	res := r.executor.Run(ctx, a)
	r.observer.ActionFinished(1, 1, res)
	return res
}

// Run executes every action of seq in order and returns the summary. A
// failing action never stops the sequence. Cancellation is checked between
// actions only; once cancelled, the remaining actions are recorded as skipped.
func (r *Runner) Run(ctx context.Context, seq *Sequence) types.SequenceSummary {
	runID := ulid.Make().String()
	rec := NewRecorder()
	state := r.transition(runID, types.RunNotStarted, types.RunRunning)
	started := r.now()

	ctx, span := r.tracer.Start(ctx, "sequence "+seq.Name(),
		trace.WithAttributes(
			attribute.String("autosetup.sequence", seq.Name()),
			attribute.String("autosetup.run_id", runID),
			attribute.Int("autosetup.actions", seq.Len()),
		))
	defer span.End()

	metrics.SequencesRun.Add(1)
	r.logger.Info("sequence started", "sequence", seq.Name(), "runId", runID, "actions", seq.Len())

	actions := seq.actions
	total := len(actions)
	cancelled := false
	for i, a := range actions {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
			r.logger.Warn("sequence cancelled", "sequence", seq.Name(), "runId", runID,
				"remaining", total-i, "error", ctx.Err())
		}
		if cancelled {
			res := types.ExecutionResult{
				ActionName: a.Name,
				Outcome:    types.OutcomeSkipped,
				PathUsed:   types.PathNone,
				Detail:     ErrCancelled.Error(),
				StartedAt:  r.now(),
			}
			rec.Record(res)
			r.observer.ActionFinished(i+1, total, res)
			continue
		}

		r.observer.ActionStarted(i+1, total, a.Name)
		res := r.executor.Run(ctx, a)
		rec.Record(res)
		r.observer.ActionFinished(i+1, total, res)

		if i < total-1 && r.pacing > 0 {
			r.sleep(ctx, r.pacing)
		}
	}

	final := types.RunCompleted
	if cancelled {
		final = types.RunCancelled
		metrics.SequencesCancelled.Add(1)
	}
	state = r.transition(runID, state, final)

	summary := rec.Summary()
	summary.RunID = runID
	summary.Sequence = seq.Name()
	summary.State = state
	summary.StartedAt = started
	summary.FinishedAt = r.now()

	span.SetAttributes(
		attribute.String("autosetup.state", string(state)),
		attribute.Int("autosetup.succeeded", summary.Succeeded),
		attribute.Int("autosetup.failed", summary.Failed),
	)
	r.logger.Info("sequence finished",
		"sequence", seq.Name(), "runId", runID, "state", state,
		"total", summary.Total, "succeeded", summary.Succeeded, "failed", summary.Failed,
		"skipped", summary.Skipped, "duration", summary.Duration())
	return summary
}

func (r *Runner) transition(runID string, from, to types.RunState) types.RunState {
	next, err := lifecycle.Transition(from, to)
	if err != nil {
		r.logger.Error("invalid run state transition", "runId", runID, "error", err)
	}
	return next
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
