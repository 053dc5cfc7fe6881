package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/autosetup/pkg/types"
)

type recordingObserver struct {
	started  []string
	finished []types.ExecutionResult
}

func (o *recordingObserver) ActionStarted(_, _ int, name string) {
	o.started = append(o.started, name)
}

func (o *recordingObserver) ActionFinished(_, _ int, res types.ExecutionResult) {
	o.finished = append(o.finished, res)
}

// cancellingObserver cancels the run once the named action has finished.
type cancellingObserver struct {
	recordingObserver
	after  string
	cancel context.CancelFunc
}

func (o *cancellingObserver) ActionFinished(index, total int, res types.ExecutionResult) {
	o.recordingObserver.ActionFinished(index, total, res)
	if res.ActionName == o.after {
		o.cancel()
	}
}

func noSleep(context.Context, time.Duration) {}

func newTestRunner(opts ...RunnerOption) *Runner {
	return NewRunner(NewExecutor(), append([]RunnerOption{WithSleep(noSleep)}, opts...)...)
}

func mustSequence(t *testing.T, actions ...Action) *Sequence {
	t.Helper()
	seq, err := NewSequence("test", actions...)
	require.NoError(t, err)
	return seq
}

func TestRunner_MixedScenario(t *testing.T) {
	seq := mustSequence(t,
		Action{Name: "A", Primary: ok("a", "")},
		Action{Name: "B", Primary: fail("b", errors.New("no"))},
		Action{Name: "C", Primary: fail("c1", errors.New("no")), Fallback: ok("c2", "")},
	)

	summary := newTestRunner().Run(context.Background(), seq)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Fallbacks)
	assert.Equal(t, types.RunCompleted, summary.State)

	b, found := summary.Result("B")
	require.True(t, found)
	assert.Equal(t, types.OutcomeFailed, b.Outcome)

	c, found := summary.Result("C")
	require.True(t, found)
	assert.Equal(t, types.OutcomeSuccess, c.Outcome)
	assert.Equal(t, types.PathFallback, c.PathUsed)
}

func TestRunner_CountsAlwaysBalance(t *testing.T) {
	for n := 0; n <= 12; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			var actions []Action
			wantOK := 0
			for i := 0; i < n; i++ {
				var op Operation
				if (i*7+n)%3 == 0 {
					op = fail("m", errors.New("fail"))
				} else {
					op = ok("m", "")
					wantOK++
				}
				actions = append(actions, Action{Name: fmt.Sprintf("action-%d", i), Primary: op})
			}

			summary := newTestRunner().Run(context.Background(), mustSequence(t, actions...))

			assert.Equal(t, n, summary.Total)
			assert.Equal(t, n, summary.Succeeded+summary.Failed)
			assert.Equal(t, wantOK, summary.Succeeded)
		})
	}
}

func TestRunner_FaultIsolation(t *testing.T) {
	const n = 5
	var actions []Action
	for i := 0; i < n; i++ {
		var op Operation = ok("m", "")
		if i == 2 {
			op = &fakeOp{mech: "m", panicWith: "kaboom"}
		}
		actions = append(actions, Action{Name: fmt.Sprintf("step-%d", i), Primary: op})
	}
	obs := &recordingObserver{}

	summary := newTestRunner(WithObserver(obs)).Run(context.Background(), mustSequence(t, actions...))

	assert.Equal(t, n, summary.Total)
	assert.Len(t, summary.Results, n)
	assert.Equal(t, types.OutcomeFailed, summary.Results[2].Outcome)
	assert.Equal(t, types.OutcomeSuccess, summary.Results[4].Outcome)
	assert.Len(t, obs.finished, n)
}

func TestRunner_PreservesOrder(t *testing.T) {
	obs := &recordingObserver{}
	seq := mustSequence(t,
		Action{Name: "support", Primary: ok("m", "")},
		Action{Name: "power", Primary: fail("m", errors.New("x"))},
		Action{Name: "printer", Primary: ok("m", "")},
	)

	summary := newTestRunner(WithObserver(obs)).Run(context.Background(), seq)

	assert.Equal(t, []string{"support", "power", "printer"}, obs.started)
	var names []string
	for _, r := range summary.Results {
		names = append(names, r.ActionName)
	}
	assert.Equal(t, []string{"support", "power", "printer"}, names)
}

func TestRunner_PacingBetweenActions(t *testing.T) {
	var waits []time.Duration
	sleep := func(_ context.Context, d time.Duration) { waits = append(waits, d) }
	seq := mustSequence(t,
		Action{Name: "a", Primary: ok("m", "")},
		Action{Name: "b", Primary: ok("m", "")},
		Action{Name: "c", Primary: ok("m", "")},
	)

	NewRunner(NewExecutor(), WithSleep(sleep), WithPacing(250*time.Millisecond)).Run(context.Background(), seq)

	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, waits)
}

func TestRunner_ZeroPacingDoesNotWait(t *testing.T) {
	called := false
	sleep := func(context.Context, time.Duration) { called = true }
	seq := mustSequence(t,
		Action{Name: "a", Primary: ok("m", "")},
		Action{Name: "b", Primary: ok("m", "")},
	)

	NewRunner(NewExecutor(), WithSleep(sleep), WithPacing(0)).Run(context.Background(), seq)

	assert.False(t, called)
}

func TestRunner_CancellationBetweenActions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	third := ok("m", "")
	seq := mustSequence(t,
		Action{Name: "one", Primary: ok("m", "")},
		Action{Name: "two", Primary: ok("m", "")},
		Action{Name: "three", Primary: third},
		Action{Name: "four", Primary: ok("m", "")},
	)
	obs := &cancellingObserver{after: "two", cancel: cancel}

	summary := newTestRunner(WithObserver(obs)).Run(ctx, seq)

	assert.Equal(t, types.RunCancelled, summary.State)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 2, summary.Skipped)
	assert.Zero(t, third.calls.Load())
	assert.Equal(t, "sequence cancelled", summary.Results[3].Detail)
	assert.Equal(t, []string{"one", "two"}, obs.started)
	assert.Len(t, obs.finished, 4)
}

func TestRunner_CancellationDuringAction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fallback := ok("powershell", "")
	third := ok("m", "")
	seq := mustSequence(t,
		Action{Name: "one", Primary: ok("m", "")},
		Action{
			Name: "two",
			Primary: Op("wmic", func(ctx context.Context) (string, error) {
				cancel()
				<-ctx.Done()
				return "", ctx.Err()
			}),
			Fallback: fallback,
		},
		Action{Name: "three", Primary: third},
	)

	summary := newTestRunner().Run(ctx, seq)

	assert.Equal(t, types.RunCancelled, summary.State)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, types.OutcomeSkipped, summary.Results[1].Outcome)
	assert.Contains(t, summary.Results[1].Detail, "sequence cancelled")
	assert.Zero(t, fallback.calls.Load())
	assert.Zero(t, third.calls.Load())
}

func TestRunner_RunIDsAreUnique(t *testing.T) {
	seq := mustSequence(t, Action{Name: "a", Primary: ok("m", "")})
	r := newTestRunner()

	first := r.Run(context.Background(), seq)
	second := r.Run(context.Background(), seq)

	assert.NotEmpty(t, first.RunID)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, "test", first.Sequence)
	assert.False(t, first.FinishedAt.Before(first.StartedAt))
}

func TestRunner_RunAction(t *testing.T) {
	obs := &recordingObserver{}

	res := newTestRunner(WithObserver(obs)).RunAction(context.Background(),
		Action{Name: "connectivity", Primary: fail("ping", errors.New("unreachable")), Fallback: ok("tcp", "dialed")})

	assert.Equal(t, types.PathFallback, res.PathUsed)
	assert.Equal(t, []string{"connectivity"}, obs.started)
	require.Len(t, obs.finished, 1)
	assert.Equal(t, res, obs.finished[0])
}

func TestNewSequence_Validation(t *testing.T) {
	tests := []struct {
		name    string
		seqName string
		actions []Action
		wantErr string
	}{
		{"empty sequence name", "", nil, "sequence name is required"},
		{"missing action name", "s", []Action{{Primary: ok("m", "")}}, "name is required"},
		{"missing primary", "s", []Action{{Name: "a"}}, "no primary operation"},
		{"negative timeout", "s", []Action{{Name: "a", Primary: ok("m", ""), Timeout: -time.Second}}, "negative timeout"},
		{"duplicate names", "s", []Action{{Name: "a", Primary: ok("m", "")}, {Name: "a", Primary: ok("m", "")}}, "duplicate action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSequence(tt.seqName, tt.actions...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidAction)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, types.FailureConfiguration, ClassifyFailure(err))
		})
	}
}

func TestSequence_ActionsIsACopy(t *testing.T) {
	seq := mustSequence(t, Action{Name: "a", Primary: ok("m", "")})

	got := seq.Actions()
	got[0].Name = "mutated"

	assert.Equal(t, "a", seq.Actions()[0].Name)
	assert.Equal(t, 1, seq.Len())
	assert.Equal(t, "test", seq.Name())
}
