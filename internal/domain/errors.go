package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the structural and concurrency taxonomy. Callers match
// with errors.Is; typed errors below unwrap to these so both forms work.
var (
	ErrCycle                  = errors.New("move would create a cycle")
	ErrHasActiveLedgerEntries = errors.New("subtree has active ledger entries")
	ErrConcurrencyConflict    = errors.New("concurrent write conflict, retry the operation")

	ErrEnvelopeExceeded   = errors.New("envelope approved amount exceeded")
	ErrAllotmentExceeded  = errors.New("allotment amount exceeded")
	ErrObligationExceeded = errors.New("obligation amount exceeded")

	ErrAllocationMismatch = errors.New("allocations do not sum to the target amount")
)

// ValidationError reports caller-correctable input problems.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ErrInvalidAmount builds the validation error for non-positive amounts.
func ErrInvalidAmount(amount Money) error {
	return &ValidationError{Field: "amount", Reason: fmt.Sprintf("amount %s must be greater than zero", amount)}
}

// ExceedLevel names the cascade boundary a breach occurred at.
type ExceedLevel string

const (
	ExceedEnvelope   ExceedLevel = "envelope"
	ExceedAllotment  ExceedLevel = "allotment"
	ExceedObligation ExceedLevel = "obligation"
)

// ExceededError is returned when a requested commitment would break a
// non-exceedance invariant. Available carries the computed remaining balance
// so the caller can retry with a smaller amount.
type ExceededError struct {
	Level     ExceedLevel
	EntityID  string
	Limit     Money
	Committed Money
	Requested Money
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s %s: requested %s but only %s of %s remains (committed %s)",
		e.Level, e.EntityID, e.Requested, e.Available(), e.Limit, e.Committed)
}

// Available is the remaining capacity at the breached boundary.
func (e *ExceededError) Available() Money {
	return Remaining(e.Limit, e.Committed)
}

func (e *ExceededError) Unwrap() error {
	switch e.Level {
	case ExceedEnvelope:
		return ErrEnvelopeExceeded
	case ExceedAllotment:
		return ErrAllotmentExceeded
	default:
		return ErrObligationExceeded
	}
}

// AllocationMismatchError reports a manual distribution whose sum differs
// from the parent's target amount.
type AllocationMismatchError struct {
	Target Money
	Actual Money
}

func (e *AllocationMismatchError) Error() string {
	return fmt.Sprintf("allocations sum to %s, target is %s (difference %s)",
		e.Actual, e.Target, e.Actual-e.Target)
}

func (e *AllocationMismatchError) Unwrap() error {
	return ErrAllocationMismatch
}
