package engine

import "tokendrip/internal/model"

// Decision is the operator or policy verdict after a transfer failure.
type Decision string

const (
	// DecisionRetry reprocesses the same record immediately.
	DecisionRetry Decision = "retry"
	// DecisionSkip leaves the record failed and moves on.
	DecisionSkip Decision = "skip"
	// DecisionPause checkpoints at the failed record and stops the run so it
	// can be resumed later, retrying that record first.
	DecisionPause Decision = "pause"
	// DecisionAbort checkpoints past the failed record and ends the run.
	DecisionAbort Decision = "abort"
)

// FailurePolicy is consulted once per transfer failure. Interactive
// implementations may block indefinitely awaiting the operator; the engine
// places no timeout on the consultation.
type FailurePolicy interface {
	OnTransferFailure(record *model.DistributionRecord, index int, transferErr error, attempts int) Decision
}

// MaxAttemptsPolicy is the automated default: retry until the record has been
// attempted MaxAttempts times, then skip.
type MaxAttemptsPolicy struct {
	MaxAttempts int
}

func (p MaxAttemptsPolicy) OnTransferFailure(_ *model.DistributionRecord, _ int, _ error, attempts int) Decision {
	limit := p.MaxAttempts
	if limit <= 0 {
		limit = 3
	}
	if attempts < limit {
		return DecisionRetry
	}
	return DecisionSkip
}
