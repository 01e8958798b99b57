package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/obcms/workledger/internal/allocation"
	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/domain"
)

type distributionService struct {
	reads txRepos
	uow   db.UnitOfWork
	obs   UseCaseObserver
}

func NewDistributionService(database *sql.DB, uow db.UnitOfWork, observers ...UseCaseObserver) DistributionService {
	return &distributionService{
		reads: newTxRepos(database),
		uow:   uow,
		obs:   useCaseObserverOrNoop(observers),
	}
}

// Distribute splits the parent's allocated budget across its direct children
// according to strategy and persists each child's share. Children are ordered
// by sort key; weights align with that order. Manual shares are keyed by
// child ID and must cover every child exactly.
func (s *distributionService) Distribute(ctx context.Context, parentID string, strategy domain.DistributionStrategy, weights []float64, manual map[string]domain.Money, actor string) (*DistributionResult, error) {
	start := time.Now()
	var result *DistributionResult
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)
		var err error
		result, err = distributeWithin(ctx, r, parentID, strategy, weights, manual)
		return err
	})
	observe(ctx, s.obs, "distribution_apply", start, err, map[string]any{
		"parent_id": parentID, "strategy": string(strategy),
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func distributeWithin(ctx context.Context, r txRepos, parentID string, strategy domain.DistributionStrategy, weights []float64, manual map[string]domain.Money) (*DistributionResult, error) {
	parent, err := r.workItems.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.AllocatedBudget == nil {
		return nil, &domain.ValidationError{Field: "allocated_budget", Reason: "parent has no allocated budget to distribute"}
	}
	total := *parent.AllocatedBudget

	children, err := r.workItems.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, &domain.ValidationError{Field: "children", Reason: "work item has no children to distribute across"}
	}

	var shares []domain.Money
	switch strategy {
	case domain.DistributeEqual:
		shares, err = allocation.Equal(total, len(children))
	case domain.DistributeWeighted:
		if len(weights) != len(children) {
			return nil, &domain.ValidationError{
				Field:  "weights",
				Reason: fmt.Sprintf("got %d weights for %d children", len(weights), len(children)),
			}
		}
		shares, err = allocation.Weighted(total, weights)
	case domain.DistributeManual:
		shares = make([]domain.Money, len(children))
		for i, c := range children {
			amount, ok := manual[c.ID]
			if !ok {
				return nil, &domain.ValidationError{
					Field:  "allocations",
					Reason: fmt.Sprintf("missing allocation for child %s", c.ID),
				}
			}
			shares[i] = amount
		}
		if len(manual) != len(children) {
			return nil, &domain.ValidationError{
				Field:  "allocations",
				Reason: fmt.Sprintf("got %d allocations for %d children", len(manual), len(children)),
			}
		}
		err = allocation.Manual(total, shares)
	default:
		return nil, &domain.ValidationError{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", strategy)}
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result := &DistributionResult{Strategy: strategy, Total: total, Shares: make([]ChildShare, len(children))}
	for i, c := range children {
		share := shares[i]
		if err := r.workItems.UpdateAllocatedBudget(ctx, c.ID, &share, now); err != nil {
			return nil, err
		}
		result.Shares[i] = ChildShare{WorkItemID: c.ID, Title: c.Title, Amount: share}
	}
	return result, nil
}

func (s *distributionService) CurrentDistribution(ctx context.Context, parentID string) ([]ChildShare, error) {
	children, err := s.reads.workItems.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	shares := make([]ChildShare, len(children))
	for i, c := range children {
		var amount domain.Money
		if c.AllocatedBudget != nil {
			amount = *c.AllocatedBudget
		}
		shares[i] = ChildShare{WorkItemID: c.ID, Title: c.Title, Amount: amount}
	}
	return shares, nil
}

// ClearDistribution removes the allocated budget from every direct child and
// reports how many were cleared.
func (s *distributionService) ClearDistribution(ctx context.Context, parentID string, actor string) (int, error) {
	start := time.Now()
	var cleared int
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)
		children, err := r.workItems.ListChildren(ctx, parentID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, c := range children {
			if c.AllocatedBudget == nil {
				continue
			}
			if err := r.workItems.UpdateAllocatedBudget(ctx, c.ID, nil, now); err != nil {
				return err
			}
			cleared++
		}
		return nil
	})
	observe(ctx, s.obs, "distribution_clear", start, err, map[string]any{"parent_id": parentID})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}

// ValidateRollup checks that the children's allocations sum exactly to the
// parent's. Children without an allocation count as zero; a parent without
// children or without a budget always validates.
func (s *distributionService) ValidateRollup(ctx context.Context, parentID string) error {
	parent, err := s.reads.workItems.GetByID(ctx, parentID)
	if err != nil {
		return err
	}
	if parent.AllocatedBudget == nil {
		return nil
	}
	children, err := s.reads.workItems.ListChildren(ctx, parentID)
	if err != nil {
		return err
	}
	if len(children) == 0 {
		return nil
	}
	var sum domain.Money
	for _, c := range children {
		if c.AllocatedBudget != nil {
			sum += *c.AllocatedBudget
		}
	}
	if sum != *parent.AllocatedBudget {
		return &domain.AllocationMismatchError{Target: *parent.AllocatedBudget, Actual: sum}
	}
	return nil
}
