// Package workflow holds the document-request fulfillment rules: quota
// arithmetic, status derivation and progress aggregation. Everything here is
// a pure function over model values; persistence and transport live outside.
package workflow

import "fmt"

// QuotaExceededError reports a submission batch that does not fit the
// request's remaining capacity. Allowed is how many uploads the request can
// still take right now (replacement slots included).
type QuotaExceededError struct {
	RequestID string
	Allowed   int
	Requested int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("request %s: quota exceeded: requested %d, allowed %d", e.RequestID, e.Requested, e.Allowed)
}

// InvalidStateTransitionError reports an operation that is illegal in the
// entity's current state.
type InvalidStateTransitionError struct {
	Entity      string
	ID          string
	From        string
	AttemptedTo string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s %s: invalid transition %s -> %s", e.Entity, e.ID, e.From, e.AttemptedTo)
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found", e.Entity, e.ID)
}

// AlreadyFinalizedError reports a finalize call on a VALIDATED dossier.
type AlreadyFinalizedError struct {
	DossierID string
}

func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("dossier %s: already finalized", e.DossierID)
}
