package core

import (
	"errors"
	"fmt"
)

// Sentinels for the failure classes surfaced to callers. Every structured error
// below matches exactly one of them with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrApprovalRequired       = errors.New("approval required")
	ErrConsistencyViolation   = errors.New("consistency violation")
	ErrTransactionFailure     = errors.New("transaction failure")
)

// NotFoundError identifies a missing order, amendment, order item, shipment or version.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports a malformed request detected before any write.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Detail
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// StateTransitionError reports an amendment action that is not allowed from its current status.
type StateTransitionError struct {
	AmendmentID int
	Current     AmendmentStatus
	Attempted   string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("amendment %d cannot %s: status is %s", e.AmendmentID, e.Attempted, e.Current)
}

func (e *StateTransitionError) Is(target error) bool { return target == ErrInvalidStateTransition }

// ApprovalRequiredError is returned when applying an amendment the approval
// policy flagged before a manager has approved it.
type ApprovalRequiredError struct {
	AmendmentID int
	Status      AmendmentStatus
}

func (e *ApprovalRequiredError) Error() string {
	return fmt.Sprintf("amendment %d requires approval before it can be applied (status is %s)", e.AmendmentID, e.Status)
}

func (e *ApprovalRequiredError) Is(target error) bool { return target == ErrApprovalRequired }

// ConsistencyError reports a write that would break a quantity invariant.
type ConsistencyError struct {
	Entity string
	ID     int
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Entity, e.ID, e.Detail)
}

func (e *ConsistencyError) Is(target error) bool { return target == ErrConsistencyViolation }

// TransactionError wraps a storage failure after the transaction was rolled back.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: transaction rolled back: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

func (e *TransactionError) Is(target error) bool { return target == ErrTransactionFailure }

// isDomainError reports whether err already carries one of the classified failures.
func isDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrApprovalRequired) ||
		errors.Is(err, ErrConsistencyViolation) ||
		errors.Is(err, ErrTransactionFailure)
}

// classify wraps unclassified errors from a transactional operation.
func classify(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return &TransactionError{Op: op, Err: err}
}
