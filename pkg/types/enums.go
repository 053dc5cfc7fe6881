// Package types defines the public result types shared by the autosetup orchestration engine.
package types

// Outcome is the final verdict of one action invocation.
type Outcome string

// Outcome values enumerate the possible action verdicts.
const (
	OutcomeSuccess  Outcome = "SUCCESS"
	OutcomeFailed   Outcome = "FAILED"
	OutcomeTimedOut Outcome = "TIMED_OUT"
	OutcomeSkipped  Outcome = "SKIPPED"
)

// PathUsed records which execution path produced a successful outcome.
type PathUsed string

// PathUsed values name the primary and fallback paths of an action.
const (
	PathPrimary  PathUsed = "PRIMARY"
	PathFallback PathUsed = "FALLBACK"
	PathNone     PathUsed = "NONE"

	// PathPrerequisite labels the attempt that checks an action's prerequisite.
	PathPrerequisite PathUsed = "PREREQUISITE"
)

// FailureCategory classifies why an action path failed.
type FailureCategory string

const (
	FailureTransient     FailureCategory = "TRANSIENT"
	FailurePermanent     FailureCategory = "PERMANENT"
	FailureTimeout       FailureCategory = "TIMEOUT"
	FailurePrerequisite  FailureCategory = "PREREQUISITE"
	FailureCrash         FailureCategory = "CRASH"
	FailureConfiguration FailureCategory = "CONFIGURATION"
)

// FallbackEligible reports whether a failure of this category allows the
// fallback path to be attempted.
func (c FailureCategory) FallbackEligible() bool {
	switch c {
	case FailureTransient, FailureTimeout, FailureCrash:
		return true
	default:
		return false
	}
}

// RunState represents the lifecycle state of a sequence run.
type RunState string

// RunState values represent the lifecycle states of a sequence run.
const (
	RunNotStarted RunState = "NOT_STARTED"
	RunRunning    RunState = "RUNNING"
	RunCompleted  RunState = "COMPLETED"
	RunCancelled  RunState = "CANCELLED"
)
