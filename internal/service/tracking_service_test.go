package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obcms/workledger/internal/domain"
)

func TestEnableTracking_CreatesExecutionPlan(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	envelope, err := env.ledger.CreateEnvelope(ctx, "Coastal Resource Program", 2025, domain.Pesos(45_000_000), "tester", "test")
	require.NoError(t, err)

	root, err := env.tracking.EnableTracking(ctx, envelope.ID, domain.TemplateActivity, "tester", "test")
	require.NoError(t, err)

	assert.Equal(t, "Coastal Resource Program - Execution Plan", root.Title)
	assert.Equal(t, domain.WorkProject, root.WorkType)
	assert.Equal(t, envelope.ID, root.EnvelopeID)
	require.NotNil(t, root.AllocatedBudget)
	assert.Equal(t, domain.Pesos(45_000_000), *root.AllocatedBudget)

	children, err := env.tree.Children(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, "Planning", children[0].Title)
	assert.Equal(t, "Implementation", children[1].Title)
	assert.Equal(t, "Monitoring & Evaluation", children[2].Title)
	for _, c := range children {
		assert.Equal(t, domain.WorkActivity, c.WorkType)
	}
}

func TestEnableTracking_SecondRootRejected(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	envelope, err := env.ledger.CreateEnvelope(ctx, "Program", 2025, domain.Pesos(1_000_000), "tester", "test")
	require.NoError(t, err)

	_, err = env.tracking.EnableTracking(ctx, envelope.ID, domain.TemplateBudget, "tester", "test")
	require.NoError(t, err)

	_, err = env.tracking.EnableTracking(ctx, envelope.ID, domain.TemplateBudget, "tester", "test")
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "envelope_id", vErr.Field)
}

func TestEnableTracking_UnknownTemplateRejected(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	envelope, err := env.ledger.CreateEnvelope(ctx, "Program", 2025, domain.Pesos(1_000_000), "tester", "test")
	require.NoError(t, err)

	_, err = env.tracking.EnableTracking(ctx, envelope.ID, "gantt", "tester", "test")
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "structure_template", vErr.Field)
}

func TestBudgetTree_VarianceFigures(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	envelope, err := env.ledger.CreateEnvelope(ctx, "Program", 2025, domain.Pesos(9_000_000), "tester", "test")
	require.NoError(t, err)
	root, err := env.tracking.EnableTracking(ctx, envelope.ID, domain.TemplateActivity, "tester", "test")
	require.NoError(t, err)

	_, err = env.tracking.DistributeBudget(ctx, root.ID, domain.DistributeEqual, nil, nil, "tester")
	require.NoError(t, err)

	children, err := env.tree.Children(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, children, 3)

	// fund one child: 9M envelope, Q1 allotment 3M, obligation 1M
	allotment, err := env.ledger.ReleaseAllotment(ctx, envelope.ID, "Q1", domain.Pesos(3_000_000), "tester")
	require.NoError(t, err)
	_, err = env.ledger.RecordObligation(ctx, allotment.ID, children[0].ID, domain.Pesos(1_000_000), "Supplier", "tester")
	require.NoError(t, err)

	tree, err := env.tracking.BudgetTree(ctx, root.ID)
	require.NoError(t, err)

	require.NotNil(t, tree.AllocatedBudget)
	assert.Equal(t, domain.Pesos(9_000_000), *tree.AllocatedBudget)
	assert.Equal(t, domain.Pesos(1_000_000), tree.ConsumedBudget)
	assert.Equal(t, domain.Pesos(-8_000_000), tree.Variance, "underspend is negative variance")
	assert.InDelta(t, -88.888, tree.VariancePct, 0.01)

	require.Len(t, tree.Children, 3)
	funded := tree.Children[0]
	assert.Equal(t, domain.Pesos(3_000_000), *funded.AllocatedBudget)
	assert.Equal(t, domain.Pesos(1_000_000), funded.ConsumedBudget)
	assert.Equal(t, domain.Pesos(-2_000_000), funded.Variance)

	unfunded := tree.Children[1]
	assert.Equal(t, domain.Money(0), unfunded.ConsumedBudget)
	assert.Equal(t, domain.Pesos(-3_000_000), unfunded.Variance)
}

func TestSyncProgress_RecomputesWholeSubtree(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	envelope, err := env.ledger.CreateEnvelope(ctx, "Program", 2025, domain.Pesos(1_000_000), "tester", "test")
	require.NoError(t, err)
	root, err := env.tracking.EnableTracking(ctx, envelope.ID, domain.TemplateMilestone, "tester", "test")
	require.NoError(t, err)

	children, err := env.tree.Children(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, children, 3)

	setChildProgress(t, env, children[0].ID, 100)
	setChildProgress(t, env, children[1].ID, 50)
	setChildProgress(t, env, children[2].ID, 0)

	progress, err := env.tracking.SyncProgress(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, progress)

	got, err := env.tree.GetByID(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Progress)
}
