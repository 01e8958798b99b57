package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/domain"
)

const disbursementColumns = `id, obligation_id, amount, payment_method, status, created_by, created_at, updated_at`

// SQLiteDisbursementRepo implements DisbursementRepo using a SQLite database.
type SQLiteDisbursementRepo struct {
	db db.DBTX
}

// NewSQLiteDisbursementRepo creates a new SQLiteDisbursementRepo.
func NewSQLiteDisbursementRepo(conn db.DBTX) *SQLiteDisbursementRepo {
	return &SQLiteDisbursementRepo{db: conn}
}

func (r *SQLiteDisbursementRepo) Create(ctx context.Context, d *domain.Disbursement) error {
	query := `INSERT INTO disbursements (` + disbursementColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.ObligationID,
		int64(d.Amount),
		string(d.PaymentMethod),
		string(d.Status),
		d.CreatedBy,
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting disbursement: %w", err)
	}
	return nil
}

func (r *SQLiteDisbursementRepo) GetByID(ctx context.Context, id string) (*domain.Disbursement, error) {
	query := `SELECT ` + disbursementColumns + ` FROM disbursements WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	d, err := scanDisbursement(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("disbursement: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning disbursement: %w", err)
	}
	return d, nil
}

func (r *SQLiteDisbursementRepo) ListByObligation(ctx context.Context, obligationID string) ([]*domain.Disbursement, error) {
	query := `SELECT ` + disbursementColumns + ` FROM disbursements WHERE obligation_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, obligationID)
	if err != nil {
		return nil, fmt.Errorf("listing disbursements: %w", err)
	}
	defer rows.Close()

	var disbursements []*domain.Disbursement
	for rows.Next() {
		d, err := scanDisbursement(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning disbursement row: %w", err)
		}
		disbursements = append(disbursements, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating disbursements: %w", err)
	}
	return disbursements, nil
}

// SumActiveByObligation totals disbursements that still count against the
// obligation. Failed and reversed payments return capacity.
func (r *SQLiteDisbursementRepo) SumActiveByObligation(ctx context.Context, obligationID string) (domain.Money, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM disbursements
		WHERE obligation_id = ? AND status IN ('pending','paid')`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, obligationID).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing disbursements: %w", err)
	}
	return domain.Money(total), nil
}

func (r *SQLiteDisbursementRepo) ExistsActiveByObligation(ctx context.Context, obligationID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM disbursements
		WHERE obligation_id = ? AND status IN ('pending','paid'))`
	var exists int
	if err := r.db.QueryRowContext(ctx, query, obligationID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking active disbursements: %w", err)
	}
	return exists == 1, nil
}

func (r *SQLiteDisbursementRepo) UpdateStatus(ctx context.Context, id string, status domain.DisbursementStatus, updatedAt time.Time) error {
	query := `UPDATE disbursements SET status = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, string(status), updatedAt.Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating disbursement status: %w", err)
	}
	return nil
}

func scanDisbursement(scan func(dest ...any) error) (*domain.Disbursement, error) {
	var d domain.Disbursement
	var amount int64
	var methodStr, statusStr, createdAtStr, updatedAtStr string
	if err := scan(&d.ID, &d.ObligationID, &amount, &methodStr, &statusStr, &d.CreatedBy, &createdAtStr, &updatedAtStr); err != nil {
		return nil, err
	}
	d.Amount = domain.Money(amount)
	d.PaymentMethod = domain.PaymentMethod(methodStr)
	d.Status = domain.DisbursementStatus(statusStr)

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}
	return &d, nil
}
