package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dwsmith1983/autosetup/internal/metrics"
	"github.com/dwsmith1983/autosetup/pkg/types"
)

const tracerName = "github.com/dwsmith1983/autosetup/internal/engine"

// Executor runs an action's primary path and, when that fails with a
// fallback-eligible error, its fallback path.
type Executor struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	breakers *breakers
	breakCfg *BreakerConfig
	now      func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the executor logger.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracer sets the tracer used for action and attempt spans.
func WithTracer(t trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithCircuitBreaker enables circuit breakers on primary paths, one per
// action and mechanism.
func WithCircuitBreaker(cfg BreakerConfig) ExecutorOption {
	return func(e *Executor) { e.breakCfg = &cfg }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.breakCfg != nil {
		e.breakers = newBreakers(*e.breakCfg, e.logger)
	}
	return e
}

// BreakerState returns the circuit state of an action's primary mechanism
// ("closed" when breakers are disabled or the primary has not run).
func (e *Executor) BreakerState(action, mechanism string) string {
	if e.breakers == nil {
		return "closed"
	}
	return e.breakers.state(breakerKey(action, mechanism))
}

func breakerKey(action, mechanism string) string {
	return action + "/" + mechanism
}

// Run executes the action and always returns a result; errors and panics
// inside the action's operations never escape.
func (e *Executor) Run(ctx context.Context, a Action) (res types.ExecutionResult) {
	res = types.ExecutionResult{
		ActionName: a.Name,
		PathUsed:   types.PathNone,
		StartedAt:  e.now(),
	}

	ctx, span := e.tracer.Start(ctx, "action "+a.Name,
		trace.WithAttributes(attribute.String("autosetup.action", a.Name)))
	defer func() {
		res.Duration = e.now().Sub(res.StartedAt)
		span.SetAttributes(
			attribute.String("autosetup.outcome", string(res.Outcome)),
			attribute.String("autosetup.path", string(res.PathUsed)),
		)
		if !res.Succeeded() {
			span.SetStatus(codes.Error, res.Detail)
		}
		span.End()
		countOutcome(res)
		e.logResult(res)
	}()

	if err := a.Validate(); err != nil {
		res.Outcome = types.OutcomeFailed
		res.Category = types.FailureConfiguration
		res.Detail = err.Error()
		return res
	}
	timeout := a.timeout()

	if a.Requires != nil {
		att, err := e.attempt(ctx, a.Name, types.PathPrerequisite, a.Requires, timeout)
		res.Attempts = append(res.Attempts, att)
		if err != nil && ctx.Err() != nil {
			return cancelled(res, "prerequisite interrupted")
		}
		if err != nil {
			res.Outcome = types.OutcomeSkipped
			res.Category = types.FailurePrerequisite
			res.Detail = prerequisiteDetail(err)
			return res
		}
	}

	primary, pErr := e.attempt(ctx, a.Name, types.PathPrimary, a.Primary, timeout)
	res.Attempts = append(res.Attempts, primary)
	if pErr == nil {
		res.Outcome = types.OutcomeSuccess
		res.PathUsed = types.PathPrimary
		res.Detail = primary.Detail
		return res
	}

	if ctx.Err() != nil {
		return cancelled(res, fmt.Sprintf("primary (%s) interrupted", primary.Mechanism))
	}

	res.Category = primary.Category
	if primary.Category == types.FailurePrerequisite {
		res.Outcome = types.OutcomeSkipped
		res.Detail = pErr.Error()
		return res
	}
	if a.Fallback == nil || !primary.Category.FallbackEligible() {
		res.Outcome = failedOutcome(primary.Category)
		res.Detail = fmt.Sprintf("primary (%s): %s", primary.Mechanism, primary.Error)
		return res
	}

	fallback, fErr := e.attempt(ctx, a.Name, types.PathFallback, a.Fallback, timeout)
	res.Attempts = append(res.Attempts, fallback)
	if fErr != nil && ctx.Err() != nil {
		return cancelled(res, fmt.Sprintf("fallback (%s) interrupted after primary (%s) failed: %s",
			fallback.Mechanism, primary.Mechanism, primary.Error))
	}
	if fErr == nil {
		metrics.FallbacksUsed.Add(1)
		res.Outcome = types.OutcomeSuccess
		res.PathUsed = types.PathFallback
		res.Category = ""
		res.Detail = joinDetail(fallback.Detail,
			fmt.Sprintf("primary (%s) failed: %s", primary.Mechanism, primary.Error))
		return res
	}

	res.Category = fallback.Category
	res.Outcome = types.OutcomeFailed
	if primary.Category == types.FailureTimeout && fallback.Category == types.FailureTimeout {
		res.Outcome = types.OutcomeTimedOut
	}
	res.Detail = fmt.Sprintf("primary (%s): %s; fallback (%s): %s",
		primary.Mechanism, primary.Error, fallback.Mechanism, fallback.Error)
	return res
}

func (e *Executor) attempt(ctx context.Context, action string, path types.PathUsed, op Operation, timeout time.Duration) (types.Attempt, error) {
	mech := op.Mechanism()
	ctx, span := e.tracer.Start(ctx, "attempt "+string(path),
		trace.WithAttributes(
			attribute.String("autosetup.action", action),
			attribute.String("autosetup.path", string(path)),
			attribute.String("autosetup.mechanism", mech),
		))
	defer span.End()

	start := e.now()
	var (
		detail string
		err    error
	)
	if e.breakers != nil && path == types.PathPrimary {
		detail, err = e.breakers.execute(breakerKey(action, mech), func() (string, error) {
			return invoke(ctx, op, timeout)
		})
	} else {
		detail, err = invoke(ctx, op, timeout)
	}

	att := types.Attempt{
		Path:      path,
		Mechanism: mech,
		Detail:    detail,
		Duration:  e.now().Sub(start),
	}
	if err != nil {
		att.Error = err.Error()
		att.Category = ClassifyFailure(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, att.Error)
		e.logger.Warn("action path failed",
			"action", action, "path", path, "mechanism", mech,
			"category", att.Category, "error", err)
	}
	return att, err
}

// invoke runs op under its own timeout. A panic is converted to ErrPanic and
// an expired deadline to ErrTimeout, even if op ignores its context.
func invoke(ctx context.Context, op Operation, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		detail string
		err    error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				metrics.PanicsRecovered.Add(1)
				done <- reply{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		d, err := op.Invoke(ctx)
		done <- reply{detail: d, err: err}
	}()

	select {
	case r := <-done:
		return r.detail, r.err
	case <-ctx.Done():
		select {
		case r := <-done:
			return r.detail, r.err
		default:
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return "", ctx.Err()
	}
}

func (e *Executor) logResult(res types.ExecutionResult) {
	attrs := []any{
		"action", res.ActionName,
		"outcome", res.Outcome,
		"path", res.PathUsed,
		"duration", res.Duration,
	}
	if res.Succeeded() {
		e.logger.Info("action finished", attrs...)
		return
	}
	e.logger.Warn("action finished", append(attrs, "category", res.Category, "detail", res.Detail)...)
}

func countOutcome(res types.ExecutionResult) {
	metrics.ActionsTotal.Add(1)
	switch res.Outcome {
	case types.OutcomeSuccess:
		metrics.ActionsSucceeded.Add(1)
	case types.OutcomeSkipped:
		metrics.ActionsSkipped.Add(1)
	case types.OutcomeTimedOut:
		metrics.ActionsTimedOut.Add(1)
	default:
		metrics.ActionsFailed.Add(1)
	}
}

// cancelled reports an action interrupted by cancellation of the run.
func cancelled(res types.ExecutionResult, detail string) types.ExecutionResult {
	res.Outcome = types.OutcomeSkipped
	res.PathUsed = types.PathNone
	res.Category = ""
	res.Detail = joinDetail(ErrCancelled.Error(), detail)
	return res
}

func failedOutcome(c types.FailureCategory) types.Outcome {
	if c == types.FailureTimeout {
		return types.OutcomeTimedOut
	}
	return types.OutcomeFailed
}

func prerequisiteDetail(err error) string {
	if errors.Is(err, ErrPrerequisite) {
		return err.Error()
	}
	return fmt.Sprintf("%s: %s", ErrPrerequisite, err)
}

func joinDetail(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "; "
		}
		out += p
	}
	return out
}
