package database

import (
	"context"
	"database/sql"
	"fmt"

	"spill_report_service/internal/domain/intervenant"

	"github.com/google/uuid"
)

type PostgresIntervenantRepository struct {
	db *sql.DB
}

func NewPostgresIntervenantRepository(db *sql.DB) *PostgresIntervenantRepository {
	return &PostgresIntervenantRepository{db: db}
}

func (r *PostgresIntervenantRepository) Create(ctx context.Context, in intervenant.Intervenant) (intervenant.Intervenant, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	query := `INSERT INTO intervenants (id, name, role, contact, organization, email, phone_e164, created_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		in.ID, in.Name, in.Role, in.Contact, in.Organization, in.Email, in.PhoneE164, in.CreatedAt,
	).Scan(&in.CreatedAt)
	if err != nil {
		return intervenant.Intervenant{}, fmt.Errorf("error creating intervenant: %w", err)
	}
	return in, nil
}

func (r *PostgresIntervenantRepository) List(ctx context.Context) ([]intervenant.Intervenant, error) {
	query := `SELECT id, name, role, contact, organization, email, phone_e164, created_at
               FROM intervenants ORDER BY organization, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing intervenants: %w", err)
	}
	defer rows.Close()

	out := make([]intervenant.Intervenant, 0)
	for rows.Next() {
		var it intervenant.Intervenant
		if err := rows.Scan(&it.ID, &it.Name, &it.Role, &it.Contact, &it.Organization, &it.Email, &it.PhoneE164, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning intervenant: %w", err)
		}
		out = append(out, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating intervenants: %w", err)
	}
	return out, nil
}

func (r *PostgresIntervenantRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM intervenants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting intervenants: %w", err)
	}
	return n, nil
}
