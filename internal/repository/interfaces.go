package repository

import (
	"context"
	"time"

	"github.com/obcms/workledger/internal/domain"
)

// AggregateOp selects the reduction applied by WorkItemRepo.Aggregate.
type AggregateOp string

const (
	AggSum   AggregateOp = "sum"
	AggAvg   AggregateOp = "avg"
	AggCount AggregateOp = "count"
)

// AggregateField names a numeric work-item column that may be aggregated
// over a subtree.
type AggregateField string

const (
	FieldProgress        AggregateField = "progress"
	FieldAllocatedBudget AggregateField = "allocated_budget"
	FieldConsumedBudget  AggregateField = "consumed_budget"
)

type WorkItemRepo interface {
	Create(ctx context.Context, w *domain.WorkItem) error
	GetByID(ctx context.Context, id string) (*domain.WorkItem, error)
	Update(ctx context.Context, w *domain.WorkItem) error

	// Tree queries. All of these are bounded-cost range scans on the
	// materialized path, independent of subtree size.
	ListChildren(ctx context.Context, parentID string) ([]*domain.WorkItem, error)
	ListRoots(ctx context.Context) ([]*domain.WorkItem, error)
	Ancestors(ctx context.Context, id string) ([]*domain.WorkItem, error)
	Descendants(ctx context.Context, path string) ([]*domain.WorkItem, error)
	Aggregate(ctx context.Context, path string, field AggregateField, op AggregateOp) (float64, error)

	// Tree mutation support.
	MaxChildSortKey(ctx context.Context, parentID *string) (int, error)
	MoveSubtree(ctx context.Context, oldPath, newPath string, depthDelta int, updatedAt time.Time) error
	DeactivateSubtree(ctx context.Context, path string, updatedAt time.Time) error
	HasActiveObligations(ctx context.Context, path string) (bool, error)

	// Rollup writes.
	UpdateRollup(ctx context.Context, id string, progress int, consumed domain.Money, updatedAt time.Time) error
	UpdateAllocatedBudget(ctx context.Context, id string, amount *domain.Money, updatedAt time.Time) error

	RootByEnvelope(ctx context.Context, envelopeID string) (*domain.WorkItem, error)
}

type EnvelopeRepo interface {
	Create(ctx context.Context, e *domain.BudgetEnvelope) error
	GetByID(ctx context.Context, id string) (*domain.BudgetEnvelope, error)
	List(ctx context.Context) ([]*domain.BudgetEnvelope, error)
}

type AllotmentRepo interface {
	Create(ctx context.Context, a *domain.Allotment) error
	GetByID(ctx context.Context, id string) (*domain.Allotment, error)
	ListByEnvelope(ctx context.Context, envelopeID string) ([]*domain.Allotment, error)
	SumByEnvelope(ctx context.Context, envelopeID string) (domain.Money, error)
	ExistsForPeriod(ctx context.Context, envelopeID, period string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.AllotmentStatus, updatedAt time.Time) error
}

type ObligationRepo interface {
	Create(ctx context.Context, o *domain.Obligation) error
	GetByID(ctx context.Context, id string) (*domain.Obligation, error)
	ListByAllotment(ctx context.Context, allotmentID string) ([]*domain.Obligation, error)
	ListByWorkItem(ctx context.Context, workItemID string) ([]*domain.Obligation, error)
	SumActiveByAllotment(ctx context.Context, allotmentID string) (domain.Money, error)
	SumActiveBySubtree(ctx context.Context, path string) (domain.Money, error)
	UpdateStatus(ctx context.Context, id string, status domain.ObligationStatus, updatedAt time.Time) error
}

type DisbursementRepo interface {
	Create(ctx context.Context, d *domain.Disbursement) error
	GetByID(ctx context.Context, id string) (*domain.Disbursement, error)
	ListByObligation(ctx context.Context, obligationID string) ([]*domain.Disbursement, error)
	SumActiveByObligation(ctx context.Context, obligationID string) (domain.Money, error)
	ExistsActiveByObligation(ctx context.Context, obligationID string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.DisbursementStatus, updatedAt time.Time) error
}
