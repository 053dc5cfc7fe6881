package types

import "time"

// Attempt records a single invocation of one action path.
type Attempt struct {
	Path      PathUsed        `json:"path" yaml:"path"`
	Mechanism string          `json:"mechanism" yaml:"mechanism"`
	Detail    string          `json:"detail,omitempty" yaml:"detail,omitempty"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
	Category  FailureCategory `json:"category,omitempty" yaml:"category,omitempty"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`
}

// Failed reports whether the attempt ended with an error.
func (a Attempt) Failed() bool { return a.Error != "" }

// ExecutionResult is produced once per action invocation.
type ExecutionResult struct {
	ActionName string          `json:"actionName" yaml:"actionName"`
	Outcome    Outcome         `json:"outcome" yaml:"outcome"`
	Detail     string          `json:"detail,omitempty" yaml:"detail,omitempty"`
	PathUsed   PathUsed        `json:"pathUsed" yaml:"pathUsed"`
	Category   FailureCategory `json:"category,omitempty" yaml:"category,omitempty"`
	Attempts   []Attempt       `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	StartedAt  time.Time       `json:"startedAt" yaml:"startedAt"`
	Duration   time.Duration   `json:"duration" yaml:"duration"`
}

// Succeeded reports whether the action reached its effect on either path.
func (r ExecutionResult) Succeeded() bool { return r.Outcome == OutcomeSuccess }

// SequenceSummary aggregates the results of one sequence run. Every
// non-success outcome counts toward Failed; Skipped and TimedOut report how
// many of those failures were skips and timeouts, so Succeeded+Failed == Total.
type SequenceSummary struct {
	RunID      string            `json:"runId" yaml:"runId"`
	Sequence   string            `json:"sequence" yaml:"sequence"`
	State      RunState          `json:"state" yaml:"state"`
	Total      int               `json:"total" yaml:"total"`
	Succeeded  int               `json:"succeeded" yaml:"succeeded"`
	Failed     int               `json:"failed" yaml:"failed"`
	Skipped    int               `json:"skipped" yaml:"skipped"`
	TimedOut   int               `json:"timedOut" yaml:"timedOut"`
	Fallbacks  int               `json:"fallbacks" yaml:"fallbacks"`
	Results    []ExecutionResult `json:"results" yaml:"results"`
	StartedAt  time.Time         `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt" yaml:"finishedAt"`
}

// OK reports whether every action in the run succeeded.
func (s SequenceSummary) OK() bool { return s.Failed == 0 }

// Duration returns the wall-clock time of the run.
func (s SequenceSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Result returns the recorded result for the named action.
func (s SequenceSummary) Result(name string) (ExecutionResult, bool) {
	for _, r := range s.Results {
		if r.ActionName == name {
			return r, true
		}
	}
	return ExecutionResult{}, false
}
