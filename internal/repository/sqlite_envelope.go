package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/domain"
)

const envelopeColumns = `id, title, fiscal_year, approved_amount, tenant, created_by, created_at, updated_at`

// SQLiteEnvelopeRepo implements EnvelopeRepo using a SQLite database.
type SQLiteEnvelopeRepo struct {
	db db.DBTX
}

// NewSQLiteEnvelopeRepo creates a new SQLiteEnvelopeRepo.
func NewSQLiteEnvelopeRepo(conn db.DBTX) *SQLiteEnvelopeRepo {
	return &SQLiteEnvelopeRepo{db: conn}
}

func (r *SQLiteEnvelopeRepo) Create(ctx context.Context, e *domain.BudgetEnvelope) error {
	query := `INSERT INTO budget_envelopes (` + envelopeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.Title,
		e.FiscalYear,
		int64(e.ApprovedAmount),
		e.Tenant,
		e.CreatedBy,
		e.CreatedAt.Format(time.RFC3339),
		e.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting budget envelope: %w", err)
	}
	return nil
}

func (r *SQLiteEnvelopeRepo) GetByID(ctx context.Context, id string) (*domain.BudgetEnvelope, error) {
	query := `SELECT ` + envelopeColumns + ` FROM budget_envelopes WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	e, err := scanEnvelope(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("budget envelope: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning budget envelope: %w", err)
	}
	return e, nil
}

func (r *SQLiteEnvelopeRepo) List(ctx context.Context) ([]*domain.BudgetEnvelope, error) {
	query := `SELECT ` + envelopeColumns + ` FROM budget_envelopes ORDER BY fiscal_year, created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing budget envelopes: %w", err)
	}
	defer rows.Close()

	var envelopes []*domain.BudgetEnvelope
	for rows.Next() {
		e, err := scanEnvelope(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning budget envelope row: %w", err)
		}
		envelopes = append(envelopes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating budget envelopes: %w", err)
	}
	return envelopes, nil
}

func scanEnvelope(scan func(dest ...any) error) (*domain.BudgetEnvelope, error) {
	var e domain.BudgetEnvelope
	var approved int64
	var createdAtStr, updatedAtStr string
	if err := scan(&e.ID, &e.Title, &e.FiscalYear, &approved, &e.Tenant, &e.CreatedBy, &createdAtStr, &updatedAtStr); err != nil {
		return nil, err
	}
	e.ApprovedAmount = domain.Money(approved)

	var parseErr error
	e.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	e.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}
	return &e, nil
}
