package engine

import (
	"github.com/dwsmith1983/autosetup/pkg/types"
)

// Recorder accumulates execution results in execution order.
type Recorder struct {
	results []types.ExecutionResult
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends a result.
func (r *Recorder) Record(res types.ExecutionResult) {
	r.results = append(r.results, res)
}

// Len returns the number of recorded results.
func (r *Recorder) Len() int { return len(r.results) }

// Summary computes counts by outcome. Run metadata (ID, state, times) is
// filled in by the runner.
func (r *Recorder) Summary() types.SequenceSummary {
	s := types.SequenceSummary{
		Total:   len(r.results),
		Results: make([]types.ExecutionResult, len(r.results)),
	}
	copy(s.Results, r.results)

	for _, res := range r.results {
		if res.Succeeded() {
			s.Succeeded++
			if res.PathUsed == types.PathFallback {
				s.Fallbacks++
			}
			continue
		}
		s.Failed++
		switch res.Outcome {
		case types.OutcomeSkipped:
			s.Skipped++
		case types.OutcomeTimedOut:
			s.TimedOut++
		}
	}
	return s
}
