// Package types provides the data model shared by the automation engine components.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// ErrorKind is the automation failure taxonomy
type ErrorKind string

const (
	ErrElementNotFound      ErrorKind = "ElementNotFound"
	ErrTimeout              ErrorKind = "Timeout"
	ErrUnexpectedNavigation ErrorKind = "UnexpectedNavigation"
	ErrStructuralChange     ErrorKind = "StructuralChange"
	ErrUnrecognizedStep     ErrorKind = "UnrecognizedStep"
	ErrMissingAnswer        ErrorKind = "MissingAnswer"
	ErrStepStuck            ErrorKind = "StepStuck"
	ErrTooManySteps         ErrorKind = "TooManySteps"
	ErrChallengeDetected    ErrorKind = "ChallengeDetected"
	ErrSessionRestoreFailed ErrorKind = "SessionRestoreFailed"
)

// Result is the terminal state of one listing
type Result string

const (
	ResultSubmitted Result = "submitted"
	ResultSkipped   Result = "skipped"
	ResultFailed    Result = "failed"
	ResultBlocked   Result = "blocked"
	ResultAbandoned Result = "abandoned"
)

// ApplicationOutcome is the authoritative record for one processed listing
type ApplicationOutcome struct {
	Listing         JobListingRef `json:"listing"`
	Result          Result        `json:"result"`
	Reason          string        `json:"reason,omitempty"`
	ErrorKind       ErrorKind     `json:"error_kind,omitempty"`
	AbandonedAtStep int           `json:"abandoned_at_step,omitempty"`
	StepHistory     []StepKind    `json:"step_history,omitempty"`
	Title           string        `json:"title,omitempty"`
	Company         string        `json:"company,omitempty"`
	CompletedAt     time.Time     `json:"completed_at"`
}

// Submitted builds a success outcome
func Submitted(ref JobListingRef, history []StepKind) ApplicationOutcome {
	return ApplicationOutcome{Listing: ref, Result: ResultSubmitted, StepHistory: history, CompletedAt: time.Now()}
}

// Skipped builds an outcome for a listing that was deliberately not applied to
func Skipped(ref JobListingRef, reason string) ApplicationOutcome {
	return ApplicationOutcome{Listing: ref, Result: ResultSkipped, Reason: reason, CompletedAt: time.Now()}
}

// Failed builds a failure outcome with its taxonomy kind
func Failed(ref JobListingRef, kind ErrorKind, reason string, history []StepKind) ApplicationOutcome {
	return ApplicationOutcome{Listing: ref, Result: ResultFailed, ErrorKind: kind, Reason: reason, StepHistory: history, CompletedAt: time.Now()}
}

// Blocked builds an outcome for a form that needs an answer nobody supplied
func Blocked(ref JobListingRef, reason string, history []StepKind) ApplicationOutcome {
	return ApplicationOutcome{Listing: ref, Result: ResultBlocked, ErrorKind: ErrMissingAnswer, Reason: reason, StepHistory: history, CompletedAt: time.Now()}
}

// Abandoned builds an outcome for a listing interrupted by shutdown
func Abandoned(ref JobListingRef, step int, history []StepKind) ApplicationOutcome {
	return ApplicationOutcome{Listing: ref, Result: ResultAbandoned, AbandonedAtStep: step, Reason: "shutdown requested", StepHistory: history, CompletedAt: time.Now()}
}

// Report is the ordered outcome list surfaced to the CLI
type Report struct {
	RunID      uuid.UUID            `json:"run_id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Outcomes   []ApplicationOutcome `json:"outcomes"`
}

// Counts tallies outcomes by result
func (r *Report) Counts() map[Result]int {
	counts := make(map[Result]int)
	for _, o := range r.Outcomes {
		counts[o.Result]++
	}
	return counts
}
