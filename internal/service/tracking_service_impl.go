package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/domain"
	"github.com/obcms/workledger/internal/repository"
)

// templateChildren maps each structure template to the default activities
// created under a new execution root.
var templateChildren = map[domain.StructureTemplate][]string{
	domain.TemplateActivity:  {"Planning", "Implementation", "Monitoring & Evaluation"},
	domain.TemplateMilestone: {"Kickoff", "Midterm Review", "Completion"},
	domain.TemplateBudget:    {"Personnel Services", "Maintenance & Operating Expenses", "Capital Outlay"},
}

type trackingService struct {
	reads txRepos
	uow   db.UnitOfWork
	obs   UseCaseObserver
}

func NewTrackingService(database *sql.DB, uow db.UnitOfWork, observers ...UseCaseObserver) TrackingService {
	return &trackingService{
		reads: newTxRepos(database),
		uow:   uow,
		obs:   useCaseObserverOrNoop(observers),
	}
}

// EnableTracking creates the execution root for an envelope, titled
// "<envelope title> - Execution Plan", with template-driven default children.
// The root carries the envelope's approved amount as its allocated budget.
// A second root for the same envelope is rejected.
func (s *trackingService) EnableTracking(ctx context.Context, envelopeID string, template domain.StructureTemplate, actor, tenant string) (*domain.WorkItem, error) {
	start := time.Now()
	var root *domain.WorkItem
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)

		if template == "" {
			template = domain.TemplateActivity
		}
		if !domain.ValidStructureTemplates[string(template)] {
			return &domain.ValidationError{
				Field:  "structure_template",
				Reason: fmt.Sprintf("unknown structure template %q", template),
			}
		}
		env, err := r.envelopes.GetByID(ctx, envelopeID)
		if err != nil {
			return err
		}
		if _, err := r.workItems.RootByEnvelope(ctx, envelopeID); err == nil {
			return &domain.ValidationError{
				Field:  "envelope_id",
				Reason: "tracking is already enabled for this envelope",
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if tenant == "" {
			tenant = env.Tenant
		}
		approved := env.ApprovedAmount
		root = &domain.WorkItem{
			WorkType:              domain.WorkProject,
			Title:                 env.Title + " - Execution Plan",
			Description:           fmt.Sprintf("Execution tracking for %s", env.Title),
			AutoCalculateProgress: true,
			AllocatedBudget:       &approved,
			EnvelopeID:            envelopeID,
			Tenant:                tenant,
		}
		if err := attachWithin(ctx, r, root, nil, actor); err != nil {
			return err
		}

		for _, title := range templateChildren[template] {
			child := &domain.WorkItem{
				WorkType:              domain.WorkActivity,
				Title:                 title,
				AutoCalculateProgress: true,
				Tenant:                tenant,
			}
			if err := attachWithin(ctx, r, child, &root.ID, actor); err != nil {
				return err
			}
		}
		return nil
	})
	observe(ctx, s.obs, "tracking_enable", start, err, map[string]any{
		"envelope_id": envelopeID, "template": string(template),
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

// BudgetTree projects the subtree rooted at rootID into the recursive budget
// breakdown: allocated vs consumed with variance per node.
func (s *trackingService) BudgetTree(ctx context.Context, rootID string) (*BudgetTreeNode, error) {
	root, err := s.reads.workItems.GetByID(ctx, rootID)
	if err != nil {
		return nil, err
	}
	descendants, err := s.reads.workItems.Descendants(ctx, root.Path)
	if err != nil {
		return nil, err
	}

	byParent := make(map[string][]*domain.WorkItem)
	for _, d := range descendants {
		if d.ParentID != nil {
			byParent[*d.ParentID] = append(byParent[*d.ParentID], d)
		}
	}

	var build func(item *domain.WorkItem) *BudgetTreeNode
	build = func(item *domain.WorkItem) *BudgetTreeNode {
		var allocated domain.Money
		if item.AllocatedBudget != nil {
			allocated = *item.AllocatedBudget
		}
		node := &BudgetTreeNode{
			ID:              item.ID,
			Title:           item.Title,
			WorkType:        item.WorkType,
			Status:          item.Status,
			Progress:        item.Progress,
			AllocatedBudget: item.AllocatedBudget,
			ConsumedBudget:  item.ConsumedBudget,
			Variance:        item.ConsumedBudget - allocated,
			VariancePct:     variancePct(allocated, item.ConsumedBudget),
		}
		for _, child := range byParent[item.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}
	return build(root), nil
}

// variancePct is (actual - allocated) / allocated as a percentage, zero when
// nothing was allocated.
func variancePct(allocated, actual domain.Money) float64 {
	if allocated == 0 {
		return 0
	}
	return float64(actual-allocated) / float64(allocated) * 100
}

func (s *trackingService) DistributeBudget(ctx context.Context, rootID string, strategy domain.DistributionStrategy, weights []float64, manual map[string]domain.Money, actor string) (*DistributionResult, error) {
	start := time.Now()
	var result *DistributionResult
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)
		var err error
		result, err = distributeWithin(ctx, r, rootID, strategy, weights, manual)
		return err
	})
	observe(ctx, s.obs, "tracking_distribute_budget", start, err, map[string]any{
		"root_id": rootID, "strategy": string(strategy),
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SyncProgress forces a rollup of the whole subtree and returns the root's
// recomputed progress.
func (s *trackingService) SyncProgress(ctx context.Context, rootID string) (int, error) {
	start := time.Now()
	var progress int
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)

		root, err := r.workItems.GetByID(ctx, rootID)
		if err != nil {
			return err
		}
		descendants, err := r.workItems.Descendants(ctx, root.Path)
		if err != nil {
			return err
		}

		// Recompute from the deepest leaves so every parent reads fresh
		// child values; recomputeWithin on each leaf covers its chain.
		leaves := deepestFirstLeaves(root, descendants)
		for _, leaf := range leaves {
			if err := recomputeWithin(ctx, r, leaf); err != nil {
				return err
			}
		}

		updated, err := r.workItems.GetByID(ctx, rootID)
		if err != nil {
			return err
		}
		progress = updated.Progress
		return nil
	})
	observe(ctx, s.obs, "tracking_sync_progress", start, err, map[string]any{"root_id": rootID})
	if err != nil {
		return 0, err
	}
	return progress, nil
}

// deepestFirstLeaves returns the IDs of subtree leaves, deepest first. The
// root itself is the only leaf when it has no descendants.
func deepestFirstLeaves(root *domain.WorkItem, descendants []*domain.WorkItem) []string {
	hasChild := make(map[string]bool)
	for _, d := range descendants {
		if d.ParentID != nil {
			hasChild[*d.ParentID] = true
		}
	}

	type leaf struct {
		id    string
		depth int
	}
	var leaves []leaf
	if !hasChild[root.ID] {
		leaves = append(leaves, leaf{root.ID, root.Depth})
	}
	for _, d := range descendants {
		if !hasChild[d.ID] {
			leaves = append(leaves, leaf{d.ID, d.Depth})
		}
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].depth > leaves[j].depth })
	ids := make([]string, len(leaves))
	for i, l := range leaves {
		ids[i] = l.id
	}
	return ids
}
