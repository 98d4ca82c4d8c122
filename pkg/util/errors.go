// Package util provides utility functions and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the change pipeline. Every failure surfaced by the
// core unwraps to exactly one of these.
var (
	ErrInvalidChangeRequest = errors.New("invalid change request")
	ErrUnreachableDevice    = errors.New("device unreachable")
	ErrInterfaceNotFound    = errors.New("interface not found")
	ErrStorageUnavailable   = errors.New("history storage unavailable")
	ErrApplyIncomplete      = errors.New("apply incomplete")
	ErrVerificationMismatch = errors.New("apply did not take effect")
	ErrRollbackMismatch     = errors.New("rollback target interface mismatch")
	ErrNotFound             = errors.New("resource not found")
	ErrActiveTraffic        = errors.New("active traffic observed")
	ErrCancelled            = errors.New("transaction cancelled")
	ErrPreconditionFailed   = errors.New("precondition not met")
	ErrValidationFailed     = errors.New("validation failed")
	ErrPermissionDenied     = errors.New("permission denied")
)

// PreconditionError represents a failed precondition check with context.
// Err, when set, is the specific sentinel behind the failure.
type PreconditionError struct {
	Operation    string
	Resource     string
	Precondition string
	Details      string
	Err          error
}

func (e *PreconditionError) Error() string {
	msg := fmt.Sprintf("precondition failed for %s on %s: %s", e.Operation, e.Resource, e.Precondition)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *PreconditionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPreconditionFailed}
	}
	return []error{ErrPreconditionFailed, e.Err}
}

// NewPreconditionError creates a new precondition error
func NewPreconditionError(operation, resource, precondition, details string) *PreconditionError {
	return &PreconditionError{
		Operation:    operation,
		Resource:     resource,
		Precondition: precondition,
		Details:      details,
	}
}

// Because sets the underlying sentinel.
func (e *PreconditionError) Because(err error) *PreconditionError {
	e.Err = err
	return e
}

// ValidationError represents one or more validation failures of a change
// request. It unwraps to both ErrValidationFailed and ErrInvalidChangeRequest.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidationFailed, ErrInvalidChangeRequest}
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddError adds an error message unconditionally
func (v *ValidationBuilder) AddError(message string) *ValidationBuilder {
	v.errors = append(v.errors, message)
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// TransactionError carries the state a change transaction failed in along
// with the human-readable reason shown to the operator. Err is one of the
// pipeline sentinels (possibly wrapped).
type TransactionError struct {
	TxnID  string
	State  string
	Reason string
	Err    error
}

func (e *TransactionError) Error() string {
	msg := fmt.Sprintf("transaction %s failed in state %s: %s", e.TxnID, e.State, e.Reason)
	if e.Err != nil && !strings.Contains(e.Reason, e.Err.Error()) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// NewTransactionError creates a transaction error
func NewTransactionError(txnID, state, reason string, err error) *TransactionError {
	return &TransactionError{
		TxnID:  txnID,
		State:  state,
		Reason: reason,
		Err:    err,
	}
}

// MismatchError reports a rollback target whose interface differs from the
// interface being rolled back.
type MismatchError struct {
	EntryID  string
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("history entry %s belongs to %s, not %s", e.EntryID, e.Actual, e.Expected)
}

func (e *MismatchError) Unwrap() error {
	return ErrRollbackMismatch
}

// NewMismatchError creates a rollback mismatch error
func NewMismatchError(entryID, expected, actual string) *MismatchError {
	return &MismatchError{
		EntryID:  entryID,
		Expected: expected,
		Actual:   actual,
	}
}

// Reason returns the operator-facing reason string for a pipeline error:
// the sentinel's message for known failures, the error text otherwise.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var te *TransactionError
	if errors.As(err, &te) && te.Reason != "" {
		return te.Reason
	}
	for _, s := range []error{
		ErrRollbackMismatch, ErrUnreachableDevice, ErrInterfaceNotFound,
		ErrStorageUnavailable, ErrApplyIncomplete, ErrVerificationMismatch,
		ErrActiveTraffic, ErrCancelled,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}
