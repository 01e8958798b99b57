package service

import (
	"context"

	"github.com/obcms/workledger/internal/domain"
)

// TreeService manages the work-breakdown forest. All mutations run inside a
// unit of work; structural invariants (allowed child types, acyclicity, soft
// delete protection) are enforced here.
type TreeService interface {
	Attach(ctx context.Context, w *domain.WorkItem, parentID *string, actor string) error
	GetByID(ctx context.Context, id string) (*domain.WorkItem, error)
	Update(ctx context.Context, w *domain.WorkItem) error
	Move(ctx context.Context, nodeID string, newParentID *string, actor string) error
	Detach(ctx context.Context, nodeID string, actor string) error

	Children(ctx context.Context, parentID string) ([]*domain.WorkItem, error)
	Roots(ctx context.Context) ([]*domain.WorkItem, error)
	Ancestors(ctx context.Context, id string) ([]*domain.WorkItem, error)
	Descendants(ctx context.Context, id string) ([]*domain.WorkItem, error)
}

// LedgerService owns the Allotment → Obligation → Disbursement chain and its
// non-exceedance invariants. Every mutation re-validates capacity against
// committed state inside one write transaction; breaches return
// domain.ExceededError with the computed available balance and leave no
// partial effects.
type LedgerService interface {
	CreateEnvelope(ctx context.Context, title string, fiscalYear int, approved domain.Money, actor, tenant string) (*domain.BudgetEnvelope, error)
	GetEnvelope(ctx context.Context, id string) (*domain.BudgetEnvelope, error)
	ListEnvelopes(ctx context.Context) ([]*domain.BudgetEnvelope, error)

	ReleaseAllotment(ctx context.Context, envelopeID, period string, amount domain.Money, actor string) (*domain.Allotment, error)
	RecordObligation(ctx context.Context, allotmentID, workItemID string, amount domain.Money, payee, actor string) (*domain.Obligation, error)
	RecordDisbursement(ctx context.Context, obligationID string, amount domain.Money, method domain.PaymentMethod, actor string) (*domain.Disbursement, error)
	CancelObligation(ctx context.Context, id, actor string) error
	ReverseDisbursement(ctx context.Context, id, actor string) error
	CloseAllotment(ctx context.Context, id, actor string) error

	AllotmentBalance(ctx context.Context, id string) (domain.Money, error)
	ObligationBalance(ctx context.Context, id string) (domain.Money, error)
	EnvelopeBalance(ctx context.Context, id string) (domain.Money, error)
	UtilizationRate(ctx context.Context, allotmentID string) (float64, error)
}

// ChildShare is one child's slice of a distributed budget.
type ChildShare struct {
	WorkItemID string
	Title      string
	Amount     domain.Money
}

// DistributionResult reports what a distribution wrote.
type DistributionResult struct {
	Strategy domain.DistributionStrategy
	Total    domain.Money
	Shares   []ChildShare
}

// DistributionService splits a parent's allocated budget across its direct
// children. Amounts are exact to the centavo; the applied shares always sum
// to the parent's allocation.
type DistributionService interface {
	Distribute(ctx context.Context, parentID string, strategy domain.DistributionStrategy, weights []float64, manual map[string]domain.Money, actor string) (*DistributionResult, error)
	CurrentDistribution(ctx context.Context, parentID string) ([]ChildShare, error)
	ClearDistribution(ctx context.Context, parentID string, actor string) (int, error)
	ValidateRollup(ctx context.Context, parentID string) error
}

// RollupService recomputes derived progress and consumed budget for a node
// and its ancestor chain. Recompute is idempotent.
type RollupService interface {
	Recompute(ctx context.Context, nodeID string) error
}

// BudgetTreeNode is the recursive budget projection of a subtree.
type BudgetTreeNode struct {
	ID              string
	Title           string
	WorkType        domain.WorkType
	Status          domain.WorkItemStatus
	Progress        int
	AllocatedBudget *domain.Money
	ConsumedBudget  domain.Money
	Variance        domain.Money
	VariancePct     float64
	Children        []*BudgetTreeNode
}

// TrackingService is the external boundary: it turns an approved budget
// envelope into a tracked execution structure and exposes the budget/progress
// projections over it.
type TrackingService interface {
	EnableTracking(ctx context.Context, envelopeID string, template domain.StructureTemplate, actor, tenant string) (*domain.WorkItem, error)
	BudgetTree(ctx context.Context, rootID string) (*BudgetTreeNode, error)
	DistributeBudget(ctx context.Context, rootID string, strategy domain.DistributionStrategy, weights []float64, manual map[string]domain.Money, actor string) (*DistributionResult, error)
	SyncProgress(ctx context.Context, rootID string) (int, error)
}
