package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/domain"
)

type treeService struct {
	reads txRepos
	uow   db.UnitOfWork
	obs   UseCaseObserver
}

func NewTreeService(database *sql.DB, uow db.UnitOfWork, observers ...UseCaseObserver) TreeService {
	return &treeService{
		reads: newTxRepos(database),
		uow:   uow,
		obs:   useCaseObserverOrNoop(observers),
	}
}

func (s *treeService) Attach(ctx context.Context, w *domain.WorkItem, parentID *string, actor string) error {
	start := time.Now()
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return attachWithin(ctx, newTxRepos(tx), w, parentID, actor)
	})
	observe(ctx, s.obs, "tree_attach", start, err, map[string]any{
		"work_item_id": w.ID, "work_type": string(w.WorkType),
	})
	return err
}

// attachWithin inserts a work item under parentID (nil for a new root),
// assigning defaults, path, depth and the next sibling sort key. Shared with
// the tracking boundary so template structures land in one transaction.
func attachWithin(ctx context.Context, r txRepos, w *domain.WorkItem, parentID *string, actor string) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now
	w.Active = true
	if w.Status == "" {
		w.Status = domain.WorkItemNotStarted
	}
	if w.Priority == "" {
		w.Priority = domain.PriorityMedium
	}
	if w.CreatedBy == "" {
		w.CreatedBy = actor
	}

	if parentID == nil {
		w.ParentID = nil
		w.Path = w.ID
		w.Depth = 0
	} else {
		parent, err := r.workItems.GetByID(ctx, *parentID)
		if err != nil {
			return fmt.Errorf("resolving parent: %w", err)
		}
		if !parent.Active {
			return &domain.ValidationError{Field: "parent_id", Reason: "parent is deactivated"}
		}
		if !parent.CanHaveChild(w.WorkType) {
			return &domain.ValidationError{
				Field:  "work_type",
				Reason: fmt.Sprintf("%s cannot contain %s", parent.WorkType, w.WorkType),
			}
		}
		pid := parent.ID
		w.ParentID = &pid
		w.Path = parent.Path + "/" + w.ID
		w.Depth = parent.Depth + 1
		if w.Tenant == "" {
			w.Tenant = parent.Tenant
		}
	}

	if err := w.Validate(); err != nil {
		return err
	}

	if w.SortKey == 0 {
		max, err := r.workItems.MaxChildSortKey(ctx, w.ParentID)
		if err != nil {
			return err
		}
		w.SortKey = max + 1
	}
	return r.workItems.Create(ctx, w)
}

func (s *treeService) GetByID(ctx context.Context, id string) (*domain.WorkItem, error) {
	return s.reads.workItems.GetByID(ctx, id)
}

func (s *treeService) Update(ctx context.Context, w *domain.WorkItem) error {
	if err := w.Validate(); err != nil {
		return err
	}
	w.UpdatedAt = time.Now().UTC()
	return s.reads.workItems.Update(ctx, w)
}

// Move reparents nodeID under newParentID (nil for root). The subtree's
// paths are rewritten with one prefix-replace update; rollups of the old and
// new ancestor chains run in the same transaction.
func (s *treeService) Move(ctx context.Context, nodeID string, newParentID *string, actor string) error {
	start := time.Now()
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)

		node, err := r.workItems.GetByID(ctx, nodeID)
		if err != nil {
			return err
		}
		oldParentID := node.ParentID
		oldPath := node.Path

		var newPath string
		var newDepth int
		if newParentID == nil {
			newPath = node.ID
			newDepth = 0
		} else {
			if *newParentID == nodeID {
				return fmt.Errorf("cannot move %s under itself: %w", nodeID, domain.ErrCycle)
			}
			parent, err := r.workItems.GetByID(ctx, *newParentID)
			if err != nil {
				return fmt.Errorf("resolving new parent: %w", err)
			}
			if parent.IsDescendantOf(node.Path) {
				return fmt.Errorf("cannot move %s under its descendant %s: %w", nodeID, parent.ID, domain.ErrCycle)
			}
			if !parent.Active {
				return &domain.ValidationError{Field: "parent_id", Reason: "parent is deactivated"}
			}
			if !parent.CanHaveChild(node.WorkType) {
				return &domain.ValidationError{
					Field:  "work_type",
					Reason: fmt.Sprintf("%s cannot contain %s", parent.WorkType, node.WorkType),
				}
			}
			newPath = parent.Path + "/" + node.ID
			newDepth = parent.Depth + 1
		}

		if newPath == oldPath {
			return nil
		}

		now := time.Now().UTC()
		if err := r.workItems.MoveSubtree(ctx, oldPath, newPath, newDepth-node.Depth, now); err != nil {
			return err
		}

		max, err := r.workItems.MaxChildSortKey(ctx, newParentID)
		if err != nil {
			return err
		}
		node.ParentID = newParentID
		node.Path = newPath
		node.Depth = newDepth
		node.SortKey = max + 1
		node.UpdatedAt = now
		if err := r.workItems.Update(ctx, node); err != nil {
			return err
		}

		if oldParentID != nil {
			if err := recomputeWithin(ctx, r, *oldParentID); err != nil {
				return err
			}
		}
		return recomputeWithin(ctx, r, node.ID)
	})
	observe(ctx, s.obs, "tree_move", start, err, map[string]any{"node_id": nodeID})
	return err
}

// Detach soft-deletes the subtree rooted at nodeID. It refuses when any node
// in the subtree is funded by a non-cancelled obligation.
func (s *treeService) Detach(ctx context.Context, nodeID string, actor string) error {
	start := time.Now()
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)

		node, err := r.workItems.GetByID(ctx, nodeID)
		if err != nil {
			return err
		}
		funded, err := r.workItems.HasActiveObligations(ctx, node.Path)
		if err != nil {
			return err
		}
		if funded {
			return fmt.Errorf("work item %s: %w", nodeID, domain.ErrHasActiveLedgerEntries)
		}
		if err := r.workItems.DeactivateSubtree(ctx, node.Path, time.Now().UTC()); err != nil {
			return err
		}
		if node.ParentID != nil {
			return recomputeWithin(ctx, r, *node.ParentID)
		}
		return nil
	})
	observe(ctx, s.obs, "tree_detach", start, err, map[string]any{"node_id": nodeID})
	return err
}

func (s *treeService) Children(ctx context.Context, parentID string) ([]*domain.WorkItem, error) {
	return s.reads.workItems.ListChildren(ctx, parentID)
}

func (s *treeService) Roots(ctx context.Context) ([]*domain.WorkItem, error) {
	return s.reads.workItems.ListRoots(ctx)
}

func (s *treeService) Ancestors(ctx context.Context, id string) ([]*domain.WorkItem, error) {
	return s.reads.workItems.Ancestors(ctx, id)
}

func (s *treeService) Descendants(ctx context.Context, id string) ([]*domain.WorkItem, error) {
	node, err := s.reads.workItems.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.reads.workItems.Descendants(ctx, node.Path)
}
