package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spill_report_service/internal/domain/report"

	"github.com/google/uuid"
)

const reportsSequenceConstraint = "reports_env_sequential_number_key"

const reportColumns = `id, env_sequential_number, status, details, photo_urls, documents, created_at, updated_at`

type PostgresReportRepository struct {
	db *sql.DB
}

func NewPostgresReportRepository(db *sql.DB) *PostgresReportRepository {
	return &PostgresReportRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (report.Report, error) {
	var (
		r                         report.Report
		status                    string
		details, photos, documents []byte
	)
	if err := row.Scan(&r.ID, &r.EnvSequentialNumber, &status, &details, &photos, &documents, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return report.Report{}, err
	}
	r.Status = report.Status(status)
	if err := json.Unmarshal(details, &r.Details); err != nil {
		return report.Report{}, fmt.Errorf("error decoding details of report %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(photos, &r.PhotoURLs); err != nil {
		return report.Report{}, fmt.Errorf("error decoding photo urls of report %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(documents, &r.Documents); err != nil {
		return report.Report{}, fmt.Errorf("error decoding documents of report %s: %w", r.ID, err)
	}
	return r, nil
}

// encodeReport returns the JSONB payloads of r: details, photo urls, documents.
func encodeReport(r report.Report) ([]byte, []byte, []byte, error) {
	details, err := json.Marshal(r.Details)
	if err != nil {
		return nil, nil, nil, err
	}
	photos := r.PhotoURLs
	if photos == nil {
		photos = []string{}
	}
	photoJSON, err := json.Marshal(photos)
	if err != nil {
		return nil, nil, nil, err
	}
	docs := r.Documents
	if docs == nil {
		docs = []report.Document{}
	}
	docJSON, err := json.Marshal(docs)
	if err != nil {
		return nil, nil, nil, err
	}
	return details, photoJSON, docJSON, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertReport writes rep through q, which is either the pool or a transaction.
func insertReport(ctx context.Context, q queryRower, rep report.Report) (report.Report, error) {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	details, photos, docs, err := encodeReport(rep)
	if err != nil {
		return report.Report{}, fmt.Errorf("error encoding report: %w", err)
	}

	query := `INSERT INTO reports (` + reportColumns + `)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING id`
	err = q.QueryRowContext(ctx, query,
		rep.ID, rep.EnvSequentialNumber, string(rep.Status), details, photos, docs, rep.CreatedAt, rep.UpdatedAt,
	).Scan(&rep.ID)
	if err != nil {
		if isUniqueViolation(err, reportsSequenceConstraint) {
			return report.Report{}, report.ErrDuplicateSequenceNumber
		}
		return report.Report{}, fmt.Errorf("error creating report: %w", err)
	}
	return rep, nil
}

func (r *PostgresReportRepository) Insert(ctx context.Context, rep report.Report) (report.Report, error) {
	return insertReport(ctx, r.db, rep)
}

func (r *PostgresReportRepository) Get(ctx context.Context, id string) (report.Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		// not a UUID, so it cannot match a row
		return report.Report{}, report.ErrReportNotFound
	}
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	rep, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return report.Report{}, report.ErrReportNotFound
		}
		return report.Report{}, fmt.Errorf("error getting report by ID: %w", err)
	}
	return rep, nil
}

func (r *PostgresReportRepository) FindBySequenceNumber(ctx context.Context, number string) (report.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE env_sequential_number = $1`
	rep, err := scanReport(r.db.QueryRowContext(ctx, query, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return report.Report{}, report.ErrReportNotFound
		}
		return report.Report{}, fmt.Errorf("error getting report by sequential number: %w", err)
	}
	return rep, nil
}

// Update locks the row, merges the patch in Go and writes the mutable columns
// back. The sequential number and created_at are never written.
func (r *PostgresReportRepository) Update(ctx context.Context, id string, patch report.Patch, updatedAt time.Time) (report.Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return report.Report{}, report.ErrReportNotFound
	}
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return report.Report{}, fmt.Errorf("failed to begin transaction for report update: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1 FOR UPDATE`
	rep, err := scanReport(txn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return report.Report{}, report.ErrReportNotFound
		}
		return report.Report{}, fmt.Errorf("error loading report for update: %w", err)
	}

	if err := patch.ApplyTo(&rep); err != nil {
		return report.Report{}, err
	}
	rep.UpdatedAt = updatedAt

	details, photos, docs, err := encodeReport(rep)
	if err != nil {
		return report.Report{}, fmt.Errorf("error encoding report: %w", err)
	}
	_, err = txn.ExecContext(ctx,
		`UPDATE reports
               SET status = $1, details = $2, photo_urls = $3, documents = $4, updated_at = $5
               WHERE id = $6`,
		string(rep.Status), details, photos, docs, rep.UpdatedAt, id)
	if err != nil {
		return report.Report{}, fmt.Errorf("error updating report: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return report.Report{}, fmt.Errorf("failed to commit report update: %w", err)
	}
	return rep, nil
}

// listQuery builds the ordered select with an optional window.
func listQuery(opts report.ListOptions) (string, []any) {
	query := `SELECT ` + reportColumns + ` FROM reports ORDER BY created_at DESC, id DESC`
	var args []any
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func (r *PostgresReportRepository) List(ctx context.Context, opts report.ListOptions) ([]report.Report, error) {
	query, args := listQuery(opts)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing reports: %w", err)
	}
	defer rows.Close()

	reports := make([]report.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning report: %w", err)
		}
		reports = append(reports, rep)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}

func (r *PostgresReportRepository) Latest(ctx context.Context) (report.Report, error) {
	list, err := r.List(ctx, report.ListOptions{Limit: 1})
	if err != nil {
		return report.Report{}, err
	}
	if len(list) == 0 {
		return report.Report{}, report.ErrReportNotFound
	}
	return list[0], nil
}
