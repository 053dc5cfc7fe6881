// Package metrics exposes runtime counters via expvar.
package metrics

import "expvar"

var (
	ActionsTotal       = expvar.NewInt("actions_total")
	ActionsSucceeded   = expvar.NewInt("actions_succeeded")
	ActionsFailed      = expvar.NewInt("actions_failed")
	ActionsSkipped     = expvar.NewInt("actions_skipped")
	ActionsTimedOut    = expvar.NewInt("actions_timed_out")
	FallbacksUsed      = expvar.NewInt("fallbacks_used")
	PanicsRecovered    = expvar.NewInt("panics_recovered")
	BreakerTrips       = expvar.NewInt("breaker_trips")
	SequencesRun       = expvar.NewInt("sequences_run")
	SequencesCancelled = expvar.NewInt("sequences_cancelled")
)

// Snapshot returns the current value of every autosetup counter keyed by name.
func Snapshot() map[string]int64 {
	out := make(map[string]int64)
	for name, v := range map[string]*expvar.Int{
		"actions_total":       ActionsTotal,
		"actions_succeeded":   ActionsSucceeded,
		"actions_failed":      ActionsFailed,
		"actions_skipped":     ActionsSkipped,
		"actions_timed_out":   ActionsTimedOut,
		"fallbacks_used":      FallbacksUsed,
		"panics_recovered":    PanicsRecovered,
		"breaker_trips":       BreakerTrips,
		"sequences_run":       SequencesRun,
		"sequences_cancelled": SequencesCancelled,
	} {
		out[name] = v.Value()
	}
	return out
}
