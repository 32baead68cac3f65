package database

import (
	"context"
	"database/sql"
	"fmt"

	"spill_report_service/internal/domain/report"
)

// PostgresSequenceCounter keeps one row per scope and increments it with a
// single upsert, so concurrent callers serialise on the row lock.
type PostgresSequenceCounter struct {
	db *sql.DB
}

func NewPostgresSequenceCounter(db *sql.DB) *PostgresSequenceCounter {
	return &PostgresSequenceCounter{db: db}
}

const nextSeqQuery = `INSERT INTO report_sequence_counters (scope, seq)
               VALUES ($1, 1)
               ON CONFLICT (scope) DO UPDATE SET seq = report_sequence_counters.seq + 1
               RETURNING seq`

func nextSeq(ctx context.Context, q queryRower, scope string) (int64, error) {
	var seq int64
	if err := q.QueryRowContext(ctx, nextSeqQuery, scope).Scan(&seq); err != nil {
		return 0, fmt.Errorf("error incrementing sequence counter %q: %w", scope, err)
	}
	return seq, nil
}

func (c *PostgresSequenceCounter) Next(ctx context.Context, scope string) (int64, error) {
	return nextSeq(ctx, c.db, scope)
}

// InsertNumbered increments the scope and inserts the report in one
// transaction. The counter row stays locked until commit, so concurrent
// creations queue behind it and a rollback returns the value.
func (c *PostgresSequenceCounter) InsertNumbered(ctx context.Context, scope string, number func(int64) string, rep report.Report) (report.Report, error) {
	txn, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return report.Report{}, fmt.Errorf("error starting transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	seq, err := nextSeq(ctx, txn, scope)
	if err != nil {
		return report.Report{}, err
	}
	rep.EnvSequentialNumber = number(seq)
	created, err := insertReport(ctx, txn, rep)
	if err != nil {
		return report.Report{}, err
	}
	if err := txn.Commit(); err != nil {
		return report.Report{}, fmt.Errorf("error committing report %s: %w", rep.EnvSequentialNumber, err)
	}
	return created, nil
}

func (c *PostgresSequenceCounter) Raise(ctx context.Context, scope string, floor int64) error {
	query := `INSERT INTO report_sequence_counters (scope, seq)
               VALUES ($1, $2)
               ON CONFLICT (scope) DO UPDATE SET seq = GREATEST(report_sequence_counters.seq, EXCLUDED.seq)`
	if _, err := c.db.ExecContext(ctx, query, scope, floor); err != nil {
		return fmt.Errorf("error raising sequence counter %q: %w", scope, err)
	}
	return nil
}
