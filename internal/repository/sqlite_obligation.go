package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/domain"
)

const obligationColumns = `id, allotment_id, work_item_id, amount, payee, status, created_by, created_at, updated_at`

// SQLiteObligationRepo implements ObligationRepo using a SQLite database.
type SQLiteObligationRepo struct {
	db db.DBTX
}

// NewSQLiteObligationRepo creates a new SQLiteObligationRepo.
func NewSQLiteObligationRepo(conn db.DBTX) *SQLiteObligationRepo {
	return &SQLiteObligationRepo{db: conn}
}

func (r *SQLiteObligationRepo) Create(ctx context.Context, o *domain.Obligation) error {
	query := `INSERT INTO obligations (` + obligationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		o.ID,
		o.AllotmentID,
		o.WorkItemID,
		int64(o.Amount),
		o.Payee,
		string(o.Status),
		o.CreatedBy,
		o.CreatedAt.Format(time.RFC3339),
		o.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting obligation: %w", err)
	}
	return nil
}

func (r *SQLiteObligationRepo) GetByID(ctx context.Context, id string) (*domain.Obligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	o, err := scanObligation(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("obligation: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning obligation: %w", err)
	}
	return o, nil
}

func (r *SQLiteObligationRepo) ListByAllotment(ctx context.Context, allotmentID string) ([]*domain.Obligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE allotment_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, allotmentID)
	if err != nil {
		return nil, fmt.Errorf("listing obligations by allotment: %w", err)
	}
	defer rows.Close()
	return scanObligations(rows)
}

func (r *SQLiteObligationRepo) ListByWorkItem(ctx context.Context, workItemID string) ([]*domain.Obligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM obligations WHERE work_item_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, workItemID)
	if err != nil {
		return nil, fmt.Errorf("listing obligations by work item: %w", err)
	}
	defer rows.Close()
	return scanObligations(rows)
}

// SumActiveByAllotment totals non-cancelled obligations against the
// allotment. Cancelled obligations return capacity, so they are excluded.
func (r *SQLiteObligationRepo) SumActiveByAllotment(ctx context.Context, allotmentID string) (domain.Money, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM obligations
		WHERE allotment_id = ? AND status != 'cancelled'`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, allotmentID).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing obligations by allotment: %w", err)
	}
	return domain.Money(total), nil
}

// SumActiveBySubtree totals non-cancelled obligations over every work item in
// the subtree rooted at path, root included. Single query via the path index.
func (r *SQLiteObligationRepo) SumActiveBySubtree(ctx context.Context, path string) (domain.Money, error) {
	query := `SELECT COALESCE(SUM(o.amount), 0) FROM obligations o
		JOIN work_items w ON o.work_item_id = w.id
		WHERE (w.path = ? OR w.path LIKE ? ESCAPE '\') AND o.status != 'cancelled'`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, path, likePrefix(path)).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing obligations by subtree: %w", err)
	}
	return domain.Money(total), nil
}

func (r *SQLiteObligationRepo) UpdateStatus(ctx context.Context, id string, status domain.ObligationStatus, updatedAt time.Time) error {
	query := `UPDATE obligations SET status = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, string(status), updatedAt.Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating obligation status: %w", err)
	}
	return nil
}

func scanObligations(rows *sql.Rows) ([]*domain.Obligation, error) {
	var obligations []*domain.Obligation
	for rows.Next() {
		o, err := scanObligation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning obligation row: %w", err)
		}
		obligations = append(obligations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating obligations: %w", err)
	}
	return obligations, nil
}

func scanObligation(scan func(dest ...any) error) (*domain.Obligation, error) {
	var o domain.Obligation
	var amount int64
	var statusStr, createdAtStr, updatedAtStr string
	if err := scan(&o.ID, &o.AllotmentID, &o.WorkItemID, &amount, &o.Payee, &statusStr, &o.CreatedBy, &createdAtStr, &updatedAtStr); err != nil {
		return nil, err
	}
	o.Amount = domain.Money(amount)
	o.Status = domain.ObligationStatus(statusStr)

	var parseErr error
	o.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	o.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}
	return &o, nil
}
