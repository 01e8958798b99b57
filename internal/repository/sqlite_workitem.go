package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/domain"
)

// workItemColumns is the canonical SELECT column list for work_items.
const workItemColumns = `id, work_type, title, description, status, priority,
		parent_id, path, depth, sort_key, progress, auto_progress,
		allocated_budget, consumed_budget, start_date, due_date,
		envelope_id, created_by, tenant, active, created_at, updated_at`

// SQLiteWorkItemRepo implements WorkItemRepo using a SQLite database. The
// tree is encoded as a materialized path per row ("rootID/.../selfID"), so
// every subtree query below is a single range scan on the wi_path_idx index
// and every ancestor query is a single IN lookup over the parsed path.
type SQLiteWorkItemRepo struct {
	db db.DBTX
}

// NewSQLiteWorkItemRepo creates a new SQLiteWorkItemRepo.
func NewSQLiteWorkItemRepo(conn db.DBTX) *SQLiteWorkItemRepo {
	return &SQLiteWorkItemRepo{db: conn}
}

func (r *SQLiteWorkItemRepo) Create(ctx context.Context, w *domain.WorkItem) error {
	query := `INSERT INTO work_items (` + workItemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		w.ID,
		string(w.WorkType),
		w.Title,
		w.Description,
		string(w.Status),
		string(w.Priority),
		w.ParentID, // *string: nil becomes SQL NULL
		w.Path,
		w.Depth,
		w.SortKey,
		w.Progress,
		boolToInt(w.AutoCalculateProgress),
		nullableMoneyToValue(w.AllocatedBudget),
		int64(w.ConsumedBudget),
		nullableTimeToString(w.StartDate, dateLayout),
		nullableTimeToString(w.DueDate, dateLayout),
		w.EnvelopeID,
		w.CreatedBy,
		w.Tenant,
		boolToInt(w.Active),
		w.CreatedAt.Format(time.RFC3339),
		w.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting work item: %w", err)
	}
	return nil
}

func (r *SQLiteWorkItemRepo) GetByID(ctx context.Context, id string) (*domain.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanItem(row)
}

func (r *SQLiteWorkItemRepo) Update(ctx context.Context, w *domain.WorkItem) error {
	query := `UPDATE work_items SET work_type = ?, title = ?, description = ?, status = ?,
		priority = ?, parent_id = ?, path = ?, depth = ?, sort_key = ?, progress = ?,
		auto_progress = ?, allocated_budget = ?, consumed_budget = ?, start_date = ?,
		due_date = ?, envelope_id = ?, created_by = ?, tenant = ?, active = ?, updated_at = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		string(w.WorkType),
		w.Title,
		w.Description,
		string(w.Status),
		string(w.Priority),
		w.ParentID,
		w.Path,
		w.Depth,
		w.SortKey,
		w.Progress,
		boolToInt(w.AutoCalculateProgress),
		nullableMoneyToValue(w.AllocatedBudget),
		int64(w.ConsumedBudget),
		nullableTimeToString(w.StartDate, dateLayout),
		nullableTimeToString(w.DueDate, dateLayout),
		w.EnvelopeID,
		w.CreatedBy,
		w.Tenant,
		boolToInt(w.Active),
		w.UpdatedAt.Format(time.RFC3339),
		w.ID,
	)
	if err != nil {
		return fmt.Errorf("updating work item: %w", err)
	}
	return nil
}

func (r *SQLiteWorkItemRepo) ListChildren(ctx context.Context, parentID string) ([]*domain.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items
		WHERE parent_id = ? AND active = 1 ORDER BY sort_key, created_at`
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing child work items: %w", err)
	}
	defer rows.Close()
	return r.scanItems(rows)
}

func (r *SQLiteWorkItemRepo) ListRoots(ctx context.Context) ([]*domain.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items
		WHERE parent_id IS NULL AND active = 1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing root work items: %w", err)
	}
	defer rows.Close()
	return r.scanItems(rows)
}

// Ancestors returns the chain from the root down to and including the item
// itself. The path column already names every ancestor ID, so this is one
// lookup plus one IN query regardless of depth.
func (r *SQLiteWorkItemRepo) Ancestors(ctx context.Context, id string) ([]*domain.WorkItem, error) {
	item, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := item.PathIDs()
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT ` + workItemColumns + ` FROM work_items
		WHERE id IN (` + placeholders + `) ORDER BY depth`

	args := make([]any, len(ids))
	for i, v := range ids {
		args[i] = v
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing ancestors: %w", err)
	}
	defer rows.Close()
	return r.scanItems(rows)
}

func (r *SQLiteWorkItemRepo) Descendants(ctx context.Context, path string) ([]*domain.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items
		WHERE path LIKE ? ESCAPE '\' AND active = 1 ORDER BY depth, sort_key, created_at`
	rows, err := r.db.QueryContext(ctx, query, likePrefix(path))
	if err != nil {
		return nil, fmt.Errorf("listing descendants: %w", err)
	}
	defer rows.Close()
	return r.scanItems(rows)
}

// Aggregate computes op over field for the subtree rooted at path, including
// the root itself. One query, any subtree size.
func (r *SQLiteWorkItemRepo) Aggregate(ctx context.Context, path string, field AggregateField, op AggregateOp) (float64, error) {
	col, ok := map[AggregateField]string{
		FieldProgress:        "progress",
		FieldAllocatedBudget: "allocated_budget",
		FieldConsumedBudget:  "consumed_budget",
	}[field]
	if !ok {
		return 0, fmt.Errorf("aggregate: unknown field %q", field)
	}

	var expr string
	switch op {
	case AggSum:
		expr = fmt.Sprintf("COALESCE(SUM(%s), 0)", col)
	case AggAvg:
		expr = fmt.Sprintf("COALESCE(AVG(%s), 0)", col)
	case AggCount:
		expr = fmt.Sprintf("COUNT(%s)", col)
	default:
		return 0, fmt.Errorf("aggregate: unknown op %q", op)
	}

	query := `SELECT ` + expr + ` FROM work_items
		WHERE (path = ? OR path LIKE ? ESCAPE '\') AND active = 1`
	var out float64
	if err := r.db.QueryRowContext(ctx, query, path, likePrefix(path)).Scan(&out); err != nil {
		return 0, fmt.Errorf("aggregating %s over subtree: %w", col, err)
	}
	return out, nil
}

func (r *SQLiteWorkItemRepo) MaxChildSortKey(ctx context.Context, parentID *string) (int, error) {
	var query string
	var args []any
	if parentID == nil {
		query = `SELECT COALESCE(MAX(sort_key), 0) FROM work_items WHERE parent_id IS NULL`
	} else {
		query = `SELECT COALESCE(MAX(sort_key), 0) FROM work_items WHERE parent_id = ?`
		args = append(args, *parentID)
	}
	var max int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&max); err != nil {
		return 0, fmt.Errorf("reading max sibling sort key: %w", err)
	}
	return max, nil
}

// MoveSubtree rewrites the path prefix and depth of every node in the moved
// subtree with a single UPDATE. Only the moved rows are touched.
func (r *SQLiteWorkItemRepo) MoveSubtree(ctx context.Context, oldPath, newPath string, depthDelta int, updatedAt time.Time) error {
	query := `UPDATE work_items
		SET path = ? || substr(path, ?),
		    depth = depth + ?,
		    updated_at = ?
		WHERE path = ? OR path LIKE ? ESCAPE '\'`
	_, err := r.db.ExecContext(ctx, query,
		newPath,
		len(oldPath)+1,
		depthDelta,
		updatedAt.Format(time.RFC3339),
		oldPath,
		likePrefix(oldPath),
	)
	if err != nil {
		return fmt.Errorf("rewriting subtree paths: %w", err)
	}
	return nil
}

func (r *SQLiteWorkItemRepo) DeactivateSubtree(ctx context.Context, path string, updatedAt time.Time) error {
	query := `UPDATE work_items SET active = 0, updated_at = ?
		WHERE path = ? OR path LIKE ? ESCAPE '\'`
	_, err := r.db.ExecContext(ctx, query, updatedAt.Format(time.RFC3339), path, likePrefix(path))
	if err != nil {
		return fmt.Errorf("deactivating subtree: %w", err)
	}
	return nil
}

// HasActiveObligations reports whether any node in the subtree is funded by a
// non-cancelled obligation.
func (r *SQLiteWorkItemRepo) HasActiveObligations(ctx context.Context, path string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM obligations o
		JOIN work_items w ON o.work_item_id = w.id
		WHERE (w.path = ? OR w.path LIKE ? ESCAPE '\') AND o.status != 'cancelled'
	)`
	var exists int
	if err := r.db.QueryRowContext(ctx, query, path, likePrefix(path)).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking subtree obligations: %w", err)
	}
	return exists == 1, nil
}

func (r *SQLiteWorkItemRepo) UpdateRollup(ctx context.Context, id string, progress int, consumed domain.Money, updatedAt time.Time) error {
	query := `UPDATE work_items SET progress = ?, consumed_budget = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, progress, int64(consumed), updatedAt.Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating rollup fields: %w", err)
	}
	return nil
}

func (r *SQLiteWorkItemRepo) UpdateAllocatedBudget(ctx context.Context, id string, amount *domain.Money, updatedAt time.Time) error {
	query := `UPDATE work_items SET allocated_budget = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, nullableMoneyToValue(amount), updatedAt.Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating allocated budget: %w", err)
	}
	return nil
}

func (r *SQLiteWorkItemRepo) RootByEnvelope(ctx context.Context, envelopeID string) (*domain.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items
		WHERE envelope_id = ? AND parent_id IS NULL AND active = 1`
	row := r.db.QueryRowContext(ctx, query, envelopeID)
	return r.scanItem(row)
}

// likePrefix builds the LIKE pattern matching strict descendants of path,
// escaping LIKE metacharacters that may occur in IDs.
func likePrefix(path string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(path)
	return escaped + "/%"
}

func (r *SQLiteWorkItemRepo) scanItem(row *sql.Row) (*domain.WorkItem, error) {
	var w domain.WorkItem
	var typeStr, statusStr, priorityStr, createdAtStr, updatedAtStr string
	var parentID sql.NullString
	var startDateStr, dueDateStr sql.NullString
	var allocated sql.NullInt64
	var consumed int64
	var autoInt, activeInt int

	err := row.Scan(
		&w.ID, &typeStr, &w.Title, &w.Description, &statusStr, &priorityStr,
		&parentID, &w.Path, &w.Depth, &w.SortKey, &w.Progress, &autoInt,
		&allocated, &consumed, &startDateStr, &dueDateStr,
		&w.EnvelopeID, &w.CreatedBy, &w.Tenant, &activeInt, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("work item: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning work item: %w", err)
	}
	return r.populateItem(&w, typeStr, statusStr, priorityStr, createdAtStr, updatedAtStr,
		parentID, startDateStr, dueDateStr, allocated, consumed, autoInt, activeInt)
}

func (r *SQLiteWorkItemRepo) scanItems(rows *sql.Rows) ([]*domain.WorkItem, error) {
	var items []*domain.WorkItem
	for rows.Next() {
		var w domain.WorkItem
		var typeStr, statusStr, priorityStr, createdAtStr, updatedAtStr string
		var parentID sql.NullString
		var startDateStr, dueDateStr sql.NullString
		var allocated sql.NullInt64
		var consumed int64
		var autoInt, activeInt int

		err := rows.Scan(
			&w.ID, &typeStr, &w.Title, &w.Description, &statusStr, &priorityStr,
			&parentID, &w.Path, &w.Depth, &w.SortKey, &w.Progress, &autoInt,
			&allocated, &consumed, &startDateStr, &dueDateStr,
			&w.EnvelopeID, &w.CreatedBy, &w.Tenant, &activeInt, &createdAtStr, &updatedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning work item row: %w", err)
		}
		item, err := r.populateItem(&w, typeStr, statusStr, priorityStr, createdAtStr, updatedAtStr,
			parentID, startDateStr, dueDateStr, allocated, consumed, autoInt, activeInt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating work items: %w", err)
	}
	return items, nil
}

func (r *SQLiteWorkItemRepo) populateItem(
	w *domain.WorkItem,
	typeStr, statusStr, priorityStr, createdAtStr, updatedAtStr string,
	parentID sql.NullString,
	startDateStr, dueDateStr sql.NullString,
	allocated sql.NullInt64,
	consumed int64,
	autoInt, activeInt int,
) (*domain.WorkItem, error) {
	w.WorkType = domain.WorkType(typeStr)
	w.Status = domain.WorkItemStatus(statusStr)
	w.Priority = domain.Priority(priorityStr)
	w.AutoCalculateProgress = intToBool(autoInt)
	w.Active = intToBool(activeInt)
	w.ConsumedBudget = domain.Money(consumed)
	w.AllocatedBudget = parseNullableMoney(allocated)

	if parentID.Valid {
		w.ParentID = &parentID.String
	}
	w.StartDate = parseNullableTime(startDateStr, dateLayout)
	w.DueDate = parseNullableTime(dueDateStr, dateLayout)

	var parseErr error
	w.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	w.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAtStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}
	return w, nil
}
