package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obcms/workledger/internal/domain"
)

func TestAttach_AssignsDefaultsAndPath(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	root := &domain.WorkItem{WorkType: domain.WorkProject, Title: "Root"}
	require.NoError(t, env.tree.Attach(ctx, root, nil, "alice"))

	assert.NotEmpty(t, root.ID)
	assert.Equal(t, root.ID, root.Path)
	assert.Equal(t, 0, root.Depth)
	assert.Equal(t, domain.WorkItemNotStarted, root.Status)
	assert.Equal(t, domain.PriorityMedium, root.Priority)
	assert.Equal(t, "alice", root.CreatedBy)

	child := &domain.WorkItem{WorkType: domain.WorkActivity, Title: "Child"}
	require.NoError(t, env.tree.Attach(ctx, child, &root.ID, "alice"))
	assert.Equal(t, root.ID+"/"+child.ID, child.Path)
	assert.Equal(t, 1, child.Depth)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)
	assert.Equal(t, 1, child.SortKey)

	second := &domain.WorkItem{WorkType: domain.WorkActivity, Title: "Second"}
	require.NoError(t, env.tree.Attach(ctx, second, &root.ID, "alice"))
	assert.Equal(t, 2, second.SortKey, "siblings get sequential sort keys")
}

func TestAttach_EnforcesChildTypeMatrix(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	root := &domain.WorkItem{WorkType: domain.WorkProject, Title: "Root"}
	require.NoError(t, env.tree.Attach(ctx, root, nil, "tester"))

	task := &domain.WorkItem{WorkType: domain.WorkTask, Title: "Task"}
	require.NoError(t, env.tree.Attach(ctx, task, &root.ID, "tester"))

	// a task may only contain subtasks
	badChild := &domain.WorkItem{WorkType: domain.WorkActivity, Title: "Nope"}
	err := env.tree.Attach(ctx, badChild, &task.ID, "tester")
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "work_type", vErr.Field)

	subtask := &domain.WorkItem{WorkType: domain.WorkSubtask, Title: "Sub"}
	require.NoError(t, env.tree.Attach(ctx, subtask, &task.ID, "tester"))

	// subtasks are leaves
	leafChild := &domain.WorkItem{WorkType: domain.WorkSubtask, Title: "Deeper"}
	err = env.tree.Attach(ctx, leafChild, &subtask.ID, "tester")
	require.ErrorAs(t, err, &vErr)
}

func TestMove_RewritesSubtreePaths(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	root := &domain.WorkItem{WorkType: domain.WorkProject, Title: "Root"}
	require.NoError(t, env.tree.Attach(ctx, root, nil, "tester"))
	actA := &domain.WorkItem{WorkType: domain.WorkActivity, Title: "A"}
	require.NoError(t, env.tree.Attach(ctx, actA, &root.ID, "tester"))
	actB := &domain.WorkItem{WorkType: domain.WorkActivity, Title: "B"}
	require.NoError(t, env.tree.Attach(ctx, actB, &root.ID, "tester"))
	task := &domain.WorkItem{WorkType: domain.WorkTask, Title: "T"}
	require.NoError(t, env.tree.Attach(ctx, task, &actA.ID, "tester"))

	require.NoError(t, env.tree.Move(ctx, task.ID, &actB.ID, "tester"))

	moved, err := env.tree.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, actB.Path+"/"+task.ID, moved.Path)
	assert.Equal(t, 2, moved.Depth)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, actB.ID, *moved.ParentID)

	aChildren, err := env.tree.Children(ctx, actA.ID)
	require.NoError(t, err)
	assert.Empty(t, aChildren)
}

func TestMove_RejectsCycles(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	root := &domain.WorkItem{WorkType: domain.WorkProject, Title: "Root"}
	require.NoError(t, env.tree.Attach(ctx, root, nil, "tester"))
	sub := &domain.WorkItem{WorkType: domain.WorkSubProject, Title: "Sub"}
	require.NoError(t, env.tree.Attach(ctx, sub, &root.ID, "tester"))
	deeper := &domain.WorkItem{WorkType: domain.WorkSubProject, Title: "Deeper"}
	require.NoError(t, env.tree.Attach(ctx, deeper, &sub.ID, "tester"))

	err := env.tree.Move(ctx, sub.ID, &sub.ID, "tester")
	assert.True(t, errors.Is(err, domain.ErrCycle), "self move")

	err = env.tree.Move(ctx, sub.ID, &deeper.ID, "tester")
	assert.True(t, errors.Is(err, domain.ErrCycle), "move under own descendant")

	// tree unchanged after the rejected moves
	got, err := env.tree.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID+"/"+sub.ID, got.Path)
}

func TestMove_ToRootPromotesSubtree(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	root := &domain.WorkItem{WorkType: domain.WorkProject, Title: "Root"}
	require.NoError(t, env.tree.Attach(ctx, root, nil, "tester"))
	sub := &domain.WorkItem{WorkType: domain.WorkSubProject, Title: "Sub"}
	require.NoError(t, env.tree.Attach(ctx, sub, &root.ID, "tester"))
	task := &domain.WorkItem{WorkType: domain.WorkTask, Title: "T"}
	require.NoError(t, env.tree.Attach(ctx, task, &sub.ID, "tester"))

	require.NoError(t, env.tree.Move(ctx, sub.ID, nil, "tester"))

	promoted, err := env.tree.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Nil(t, promoted.ParentID)
	assert.Equal(t, sub.ID, promoted.Path)
	assert.Equal(t, 0, promoted.Depth)

	child, err := env.tree.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID+"/"+task.ID, child.Path)
	assert.Equal(t, 1, child.Depth)

	roots, err := env.tree.Roots(ctx)
	require.NoError(t, err)
	assert.Len(t, roots, 2)
}

func TestDetach_SoftDeletesSubtree(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	root := &domain.WorkItem{WorkType: domain.WorkProject, Title: "Root"}
	require.NoError(t, env.tree.Attach(ctx, root, nil, "tester"))
	act := &domain.WorkItem{WorkType: domain.WorkActivity, Title: "A"}
	require.NoError(t, env.tree.Attach(ctx, act, &root.ID, "tester"))
	task := &domain.WorkItem{WorkType: domain.WorkTask, Title: "T"}
	require.NoError(t, env.tree.Attach(ctx, task, &act.ID, "tester"))

	require.NoError(t, env.tree.Detach(ctx, act.ID, "tester"))

	gone, err := env.tree.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, gone.Active)

	children, err := env.tree.Children(ctx, root.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestDetach_BlockedByActiveObligations(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	_, allotment, root, activity, task := fundedFixture(t, env, domain.Pesos(45_000_000), domain.Pesos(10_000_000))

	oblig, err := env.ledger.RecordObligation(ctx, allotment.ID, task.ID, domain.Pesos(1_000_000), "Supplier", "tester")
	require.NoError(t, err)

	// every level above the funded task refuses to detach
	for _, id := range []string{root.ID, activity.ID, task.ID} {
		err := env.tree.Detach(ctx, id, "tester")
		assert.True(t, errors.Is(err, domain.ErrHasActiveLedgerEntries), "detach %s", id)
	}

	// after cancellation the subtree can go
	require.NoError(t, env.ledger.CancelObligation(ctx, oblig.ID, "tester"))
	require.NoError(t, env.tree.Detach(ctx, root.ID, "tester"))
}

func TestAttach_RejectsDeactivatedParent(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	root := &domain.WorkItem{WorkType: domain.WorkProject, Title: "Root"}
	require.NoError(t, env.tree.Attach(ctx, root, nil, "tester"))
	require.NoError(t, env.tree.Detach(ctx, root.ID, "tester"))

	child := &domain.WorkItem{WorkType: domain.WorkActivity, Title: "C"}
	err := env.tree.Attach(ctx, child, &root.ID, "tester")
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "parent_id", vErr.Field)
}
