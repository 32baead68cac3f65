package app

import (
	"context"
	"errors"
	"fmt"

	"spill_report_service/internal/domain/report"
)

// Error kinds surfaced by the application services.
var (
	ErrStoreUnavailable    = fmt.Errorf("report store unavailable")
	ErrStoreTimeout        = fmt.Errorf("report store timed out")
	ErrAllocationConflict  = fmt.Errorf("sequential number allocation conflict")
	ErrUpdateTargetMissing = fmt.Errorf("report to update does not exist")
	ErrInvalidInput        = fmt.Errorf("invalid input")
	ErrNotAuthorized       = fmt.Errorf("user is not authorized for this action")
)

// OpError ties a failure to the service operation that produced it.
// errors.Is matches both Kind and the wrapped cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable is true for conflicts a caller can resolve by trying again.
func (e *OpError) Retryable() bool {
	return errors.Is(e.Kind, ErrAllocationConflict)
}

// IsRetryable reports whether err carries a retryable kind.
func IsRetryable(err error) bool {
	var opErr *OpError
	return errors.As(err, &opErr) && opErr.Retryable()
}

func newOpError(op string, kind, err error) *OpError {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// classifyStoreError maps a backend error to one of the store kinds.
func classifyStoreError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return newOpError(op, ErrStoreTimeout, err)
	case errors.Is(err, report.ErrDuplicateSequenceNumber):
		return newOpError(op, ErrAllocationConflict, err)
	default:
		return newOpError(op, ErrStoreUnavailable, err)
	}
}
