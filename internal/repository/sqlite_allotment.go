package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/domain"
)

const allotmentColumns = `id, envelope_id, period, amount, status, created_by, created_at, updated_at`

// SQLiteAllotmentRepo implements AllotmentRepo using a SQLite database.
type SQLiteAllotmentRepo struct {
	db db.DBTX
}

// NewSQLiteAllotmentRepo creates a new SQLiteAllotmentRepo.
func NewSQLiteAllotmentRepo(conn db.DBTX) *SQLiteAllotmentRepo {
	return &SQLiteAllotmentRepo{db: conn}
}

func (r *SQLiteAllotmentRepo) Create(ctx context.Context, a *domain.Allotment) error {
	query := `INSERT INTO allotments (` + allotmentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.EnvelopeID,
		a.Period,
		int64(a.Amount),
		string(a.Status),
		a.CreatedBy,
		a.CreatedAt.Format(time.RFC3339),
		a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting allotment: %w", err)
	}
	return nil
}

func (r *SQLiteAllotmentRepo) GetByID(ctx context.Context, id string) (*domain.Allotment, error) {
	query := `SELECT ` + allotmentColumns + ` FROM allotments WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	a, err := scanAllotment(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("allotment: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning allotment: %w", err)
	}
	return a, nil
}

func (r *SQLiteAllotmentRepo) ListByEnvelope(ctx context.Context, envelopeID string) ([]*domain.Allotment, error) {
	query := `SELECT ` + allotmentColumns + ` FROM allotments WHERE envelope_id = ? ORDER BY period, created_at`
	rows, err := r.db.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("listing allotments: %w", err)
	}
	defer rows.Close()

	var allotments []*domain.Allotment
	for rows.Next() {
		a, err := scanAllotment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning allotment row: %w", err)
		}
		allotments = append(allotments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating allotments: %w", err)
	}
	return allotments, nil
}

// SumByEnvelope totals every allotment released against the envelope,
// regardless of status. Closing an allotment does not return its funds.
func (r *SQLiteAllotmentRepo) SumByEnvelope(ctx context.Context, envelopeID string) (domain.Money, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM allotments WHERE envelope_id = ?`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, envelopeID).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing allotments: %w", err)
	}
	return domain.Money(total), nil
}

func (r *SQLiteAllotmentRepo) ExistsForPeriod(ctx context.Context, envelopeID, period string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM allotments WHERE envelope_id = ? AND period = ?)`
	var exists int
	if err := r.db.QueryRowContext(ctx, query, envelopeID, period).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking allotment period: %w", err)
	}
	return exists == 1, nil
}

func (r *SQLiteAllotmentRepo) UpdateStatus(ctx context.Context, id string, status domain.AllotmentStatus, updatedAt time.Time) error {
	query := `UPDATE allotments SET status = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, string(status), updatedAt.Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating allotment status: %w", err)
	}
	return nil
}

func scanAllotment(scan func(dest ...any) error) (*domain.Allotment, error) {
	var a domain.Allotment
	var amount int64
	var statusStr, createdAtStr, updatedAtStr string
	if err := scan(&a.ID, &a.EnvelopeID, &a.Period, &amount, &statusStr, &a.CreatedBy, &createdAtStr, &updatedAtStr); err != nil {
		return nil, err
	}
	a.Amount = domain.Money(amount)
	a.Status = domain.AllotmentStatus(statusStr)

	var parseErr error
	a.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	a.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}
	return &a, nil
}
