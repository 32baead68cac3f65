// internal/domain/report/repository.go
package report

import (
	"context"
	"fmt"
	"time"
)

var (
	ErrReportNotFound          = fmt.Errorf("report not found")
	ErrDuplicateSequenceNumber = fmt.Errorf("sequential number already in use")
)

// ListOptions bounds a List call. A zero Limit returns the whole collection.
type ListOptions struct {
	Limit  int
	Offset int
}

// Repository persists reports. Implementations must keep envSequentialNumber
// unique and return ErrDuplicateSequenceNumber when an insert would break that.
type Repository interface {
	// Insert stores r and returns it with ID set.
	Insert(ctx context.Context, r Report) (Report, error)
	// Get returns ErrReportNotFound when no report has that id.
	Get(ctx context.Context, id string) (Report, error)
	// Update merges patch into the stored report and sets UpdatedAt.
	// Returns ErrReportNotFound when no report has that id.
	Update(ctx context.Context, id string, patch Patch, updatedAt time.Time) (Report, error)
	// List returns reports by CreatedAt descending.
	List(ctx context.Context, opts ListOptions) ([]Report, error)
	// Latest returns the most recently created report, or ErrReportNotFound.
	Latest(ctx context.Context) (Report, error)
	// FindBySequenceNumber returns ErrReportNotFound when nothing matches.
	FindBySequenceNumber(ctx context.Context, number string) (Report, error)
}

// SequenceCounter hands out strictly increasing integers per scope.
type SequenceCounter interface {
	// Next atomically increments the scope's counter and returns the new value.
	// The first call on an unseen scope returns 1.
	Next(ctx context.Context, scope string) (int64, error)
	// Raise lifts the scope's counter to at least floor. It never lowers it.
	Raise(ctx context.Context, scope string, floor int64) error
}

// NumberedInserter is a SequenceCounter kept in the same store as the reports.
// It takes the scope's next value, numbers r with it and inserts r in one
// transaction, so a failed insert leaves the counter untouched.
type NumberedInserter interface {
	InsertNumbered(ctx context.Context, scope string, number func(seq int64) string, r Report) (Report, error)
}

// Reserver is a SequenceCounter that holds the scope's next value while fn
// runs and gives it back when fn fails.
type Reserver interface {
	Reserve(ctx context.Context, scope string, fn func(ctx context.Context, seq int64) error) error
}
