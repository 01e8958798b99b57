package domain

import (
	"fmt"
	"strings"
	"time"
)

// WorkItem is a node in the hierarchical work-breakdown tree. The tree is a
// forest: ParentID is nil for roots. Path is the materialized ancestry,
// "rootID/.../selfID", maintained by the tree store so that ancestor and
// subtree queries are single range scans rather than recursive walks.
type WorkItem struct {
	ID          string
	WorkType    WorkType
	Title       string
	Description string
	Status      WorkItemStatus
	Priority    Priority

	ParentID *string
	Path     string
	Depth    int
	SortKey  int // sibling ordering, insertion sequence unless set explicitly

	Progress              int // 0-100
	AutoCalculateProgress bool

	AllocatedBudget *Money
	ConsumedBudget  Money // derived: sum of non-cancelled obligations in subtree

	StartDate *time.Time
	DueDate   *time.Time

	// Root linkage to an external budget envelope; empty below the root.
	EnvelopeID string

	CreatedBy string
	Tenant    string
	Active    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanHaveChild reports whether a child of the given type may be attached
// under this item.
func (w *WorkItem) CanHaveChild(child WorkType) bool {
	for _, t := range AllowedChildTypes[w.WorkType] {
		if t == child {
			return true
		}
	}
	return false
}

// Validate checks intrinsic field constraints.
func (w *WorkItem) Validate() error {
	if w.Title == "" {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if _, ok := AllowedChildTypes[w.WorkType]; !ok {
		return &ValidationError{Field: "work_type", Reason: fmt.Sprintf("unknown work type %q", w.WorkType)}
	}
	if w.Progress < 0 || w.Progress > 100 {
		return &ValidationError{Field: "progress", Reason: fmt.Sprintf("progress %d outside [0,100]", w.Progress)}
	}
	if w.StartDate != nil && w.DueDate != nil && w.StartDate.After(*w.DueDate) {
		return &ValidationError{Field: "due_date", Reason: "due date must not precede start date"}
	}
	return nil
}

// PathIDs splits the materialized path into its component node IDs,
// root first. The last element is the item's own ID.
func (w *WorkItem) PathIDs() []string {
	if w.Path == "" {
		return nil
	}
	return strings.Split(w.Path, "/")
}

// IsDescendantOf reports whether w sits strictly below the node with the
// given path.
func (w *WorkItem) IsDescendantOf(ancestorPath string) bool {
	return strings.HasPrefix(w.Path, ancestorPath+"/")
}
