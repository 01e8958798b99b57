package service

import (
	"context"
	"math"
	"time"

	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/domain"
)

type rollupService struct {
	uow db.UnitOfWork
	obs UseCaseObserver
}

func NewRollupService(uow db.UnitOfWork, observers ...UseCaseObserver) RollupService {
	return &rollupService{uow: uow, obs: useCaseObserverOrNoop(observers)}
}

func (s *rollupService) Recompute(ctx context.Context, nodeID string) error {
	start := time.Now()
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return recomputeWithin(ctx, newTxRepos(tx), nodeID)
	})
	observe(ctx, s.obs, "rollup_recompute", start, err, map[string]any{"node_id": nodeID})
	return err
}

// recomputeWithin recomputes derived progress and consumed budget for nodeID
// and every ancestor, leaf-ward first so each parent reads fresh child values.
// It is also called by ledger and tree mutations inside their own
// transactions, keeping the write and its rollup atomic.
func recomputeWithin(ctx context.Context, r txRepos, nodeID string) error {
	chain, err := r.workItems.Ancestors(ctx, nodeID)
	if err != nil {
		return err
	}

	for i := len(chain) - 1; i >= 0; i-- {
		node := chain[i]

		consumed, err := r.obligations.SumActiveBySubtree(ctx, node.Path)
		if err != nil {
			return err
		}

		progress := node.Progress
		if node.AutoCalculateProgress {
			children, err := r.workItems.ListChildren(ctx, node.ID)
			if err != nil {
				return err
			}
			if len(children) > 0 {
				progress = rollupProgress(children)
			}
		}

		if progress != node.Progress || consumed != node.ConsumedBudget {
			if err := r.workItems.UpdateRollup(ctx, node.ID, progress, consumed, time.Now().UTC()); err != nil {
				return err
			}
		}
	}
	return nil
}

// rollupProgress is the weighted mean of the children's progress. Allocated
// budgets weight the mean when every child carries one and they are not all
// zero; otherwise children weigh equally.
func rollupProgress(children []*domain.WorkItem) int {
	weighted := true
	var totalBudget domain.Money
	for _, c := range children {
		if c.AllocatedBudget == nil {
			weighted = false
			break
		}
		totalBudget += *c.AllocatedBudget
	}

	var mean float64
	if weighted && totalBudget > 0 {
		for _, c := range children {
			mean += float64(c.Progress) * float64(*c.AllocatedBudget) / float64(totalBudget)
		}
	} else {
		for _, c := range children {
			mean += float64(c.Progress)
		}
		mean /= float64(len(children))
	}

	p := int(math.Round(mean))
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return p
}
