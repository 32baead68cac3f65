package database

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"spill_report_service/internal/domain/report"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: reportsSequenceConstraint}

	assert.True(t, isUniqueViolation(dup, reportsSequenceConstraint))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", dup), ""))
	assert.False(t, isUniqueViolation(dup, "reports_pkey"))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, isUniqueViolation(errors.New("duplicate key"), ""))
}

func TestListQuery(t *testing.T) {
	q, args := listQuery(report.ListOptions{})
	assert.True(t, strings.HasSuffix(q, "ORDER BY created_at DESC, id DESC"))
	assert.Empty(t, args)

	q, args = listQuery(report.ListOptions{Limit: 10, Offset: 20})
	assert.True(t, strings.HasSuffix(q, "LIMIT $1 OFFSET $2"))
	assert.Equal(t, []any{10, 20}, args)

	q, args = listQuery(report.ListOptions{Offset: 5})
	assert.True(t, strings.HasSuffix(q, "OFFSET $1"))
	assert.Equal(t, []any{5}, args)
}

type fakeRow struct{ values []any }

func (f fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = f.values[i].(string)
		case *[]byte:
			*p = f.values[i].([]byte)
		case *time.Time:
			*p = f.values[i].(time.Time)
		default:
			return fmt.Errorf("unexpected dest %T", d)
		}
	}
	return nil
}

func TestEncodeAndScanReport(t *testing.T) {
	at := time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)
	in := report.Report{
		ID:                  "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		EnvSequentialNumber: "ENV-2024-010",
		Status:              report.StatusAwaitingMinistry,
		Details: report.Details{
			Location: "Station de pompage",
			RBQ:      &report.AgencyNotification{Contacted: true, Email: "rbq@example.ca"},
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
	details, photos, docs, err := encodeReport(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(photos))
	assert.JSONEq(t, `[]`, string(docs))

	out, err := scanReport(fakeRow{values: []any{
		in.ID, in.EnvSequentialNumber, string(in.Status), details, photos, docs, at, at,
	}})
	require.NoError(t, err)
	assert.Equal(t, in.Details, out.Details)
	assert.Equal(t, in.Status, out.Status)
	assert.Empty(t, out.PhotoURLs)
}

func TestSchemaDeclaresSequenceIndex(t *testing.T) {
	assert.Contains(t, schemaSQL, reportsSequenceConstraint)
	assert.Contains(t, schemaSQL, "report_sequence_counters")
}
