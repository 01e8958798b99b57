package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obcms/workledger/internal/domain"
)

// distributionFixture builds a parent with an allocated budget and n children.
func distributionFixture(t *testing.T, env *testEnv, total domain.Money, n int) (parent *domain.WorkItem, children []*domain.WorkItem) {
	t.Helper()
	ctx := context.Background()

	parent = &domain.WorkItem{WorkType: domain.WorkProject, Title: "Parent", AllocatedBudget: &total, AutoCalculateProgress: true}
	require.NoError(t, env.tree.Attach(ctx, parent, nil, "tester"))

	titles := []string{"First", "Second", "Third", "Fourth", "Fifth"}
	for i := 0; i < n; i++ {
		c := &domain.WorkItem{WorkType: domain.WorkActivity, Title: titles[i], AutoCalculateProgress: true}
		require.NoError(t, env.tree.Attach(ctx, c, &parent.ID, "tester"))
		children = append(children, c)
	}
	return parent, children
}

func TestDistributeEqual_RemainderToFirstChild(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	parent, children := distributionFixture(t, env, domain.Pesos(1_000_000), 3)

	result, err := env.distribution.Distribute(ctx, parent.ID, domain.DistributeEqual, nil, nil, "tester")
	require.NoError(t, err)
	require.Len(t, result.Shares, 3)

	// 100,000,000 centavos over 3: the odd centavo goes to the first child
	assert.Equal(t, domain.Money(33_333_334), result.Shares[0].Amount)
	assert.Equal(t, domain.Money(33_333_333), result.Shares[1].Amount)
	assert.Equal(t, domain.Money(33_333_333), result.Shares[2].Amount)

	// persisted on the children
	for i, c := range children {
		got, err := env.tree.GetByID(ctx, c.ID)
		require.NoError(t, err)
		require.NotNil(t, got.AllocatedBudget)
		assert.Equal(t, result.Shares[i].Amount, *got.AllocatedBudget)
	}

	// applied distribution validates exactly
	require.NoError(t, env.distribution.ValidateRollup(ctx, parent.ID))
}

func TestDistributeWeighted(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	parent, _ := distributionFixture(t, env, domain.Pesos(1_000_000), 3)

	result, err := env.distribution.Distribute(ctx, parent.ID, domain.DistributeWeighted,
		[]float64{0.5, 0.3, 0.2}, nil, "tester")
	require.NoError(t, err)

	assert.Equal(t, domain.Pesos(500_000), result.Shares[0].Amount)
	assert.Equal(t, domain.Pesos(300_000), result.Shares[1].Amount)
	assert.Equal(t, domain.Pesos(200_000), result.Shares[2].Amount)

	// weight count must match child count
	_, err = env.distribution.Distribute(ctx, parent.ID, domain.DistributeWeighted,
		[]float64{0.5, 0.5}, nil, "tester")
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestDistributeWeighted_ToleranceEdgeNeverPersistsNegative(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	parent, children := distributionFixture(t, env, domain.Pesos(1_000_000), 3)

	// these weights sum just inside the tolerance above 1.0
	result, err := env.distribution.Distribute(ctx, parent.ID, domain.DistributeWeighted,
		[]float64{0.50005, 0.50005, 0.0}, nil, "tester")
	require.NoError(t, err)

	var sum domain.Money
	for _, s := range result.Shares {
		require.GreaterOrEqual(t, s.Amount, domain.Money(0))
		sum += s.Amount
	}
	assert.Equal(t, domain.Pesos(1_000_000), sum)

	for _, c := range children {
		got, err := env.tree.GetByID(ctx, c.ID)
		require.NoError(t, err)
		require.NotNil(t, got.AllocatedBudget)
		assert.GreaterOrEqual(t, *got.AllocatedBudget, domain.Money(0))
	}
	require.NoError(t, env.distribution.ValidateRollup(ctx, parent.ID))
}

func TestDistributeManual_ExactSumRequired(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	parent, children := distributionFixture(t, env, domain.Pesos(1_000_000), 2)

	// one centavo short
	_, err := env.distribution.Distribute(ctx, parent.ID, domain.DistributeManual, nil,
		map[string]domain.Money{
			children[0].ID: domain.Pesos(600_000),
			children[1].ID: domain.Pesos(400_000) - 1,
		}, "tester")
	require.True(t, errors.Is(err, domain.ErrAllocationMismatch))

	// the failed distribution wrote nothing
	shares, err := env.distribution.CurrentDistribution(ctx, parent.ID)
	require.NoError(t, err)
	for _, s := range shares {
		assert.Equal(t, domain.Money(0), s.Amount)
	}

	_, err = env.distribution.Distribute(ctx, parent.ID, domain.DistributeManual, nil,
		map[string]domain.Money{
			children[0].ID: domain.Pesos(600_000),
			children[1].ID: domain.Pesos(400_000),
		}, "tester")
	require.NoError(t, err)
	require.NoError(t, env.distribution.ValidateRollup(ctx, parent.ID))
}

func TestDistributeManual_EveryChildCovered(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	parent, children := distributionFixture(t, env, domain.Pesos(100), 2)

	_, err := env.distribution.Distribute(ctx, parent.ID, domain.DistributeManual, nil,
		map[string]domain.Money{children[0].ID: domain.Pesos(100)}, "tester")
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "allocations", vErr.Field)
}

func TestDistribute_RequiresBudgetAndChildren(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	noBudget := &domain.WorkItem{WorkType: domain.WorkProject, Title: "No Budget"}
	require.NoError(t, env.tree.Attach(ctx, noBudget, nil, "tester"))
	_, err := env.distribution.Distribute(ctx, noBudget.ID, domain.DistributeEqual, nil, nil, "tester")
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "allocated_budget", vErr.Field)

	parent, _ := distributionFixture(t, env, domain.Pesos(100), 0)
	_, err = env.distribution.Distribute(ctx, parent.ID, domain.DistributeEqual, nil, nil, "tester")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "children", vErr.Field)
}

func TestClearDistribution(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	parent, children := distributionFixture(t, env, domain.Pesos(900), 3)

	_, err := env.distribution.Distribute(ctx, parent.ID, domain.DistributeEqual, nil, nil, "tester")
	require.NoError(t, err)

	cleared, err := env.distribution.ClearDistribution(ctx, parent.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, 3, cleared)

	for _, c := range children {
		got, err := env.tree.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Nil(t, got.AllocatedBudget)
	}

	// clearing again clears nothing
	cleared, err = env.distribution.ClearDistribution(ctx, parent.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, 0, cleared)
}

func TestValidateRollup_DetectsDrift(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	parent, children := distributionFixture(t, env, domain.Pesos(1_000), 2)

	_, err := env.distribution.Distribute(ctx, parent.ID, domain.DistributeEqual, nil, nil, "tester")
	require.NoError(t, err)
	require.NoError(t, env.distribution.ValidateRollup(ctx, parent.ID))

	// nudge one child out of line
	drifted := domain.Pesos(400)
	require.NoError(t, env.reads.workItems.UpdateAllocatedBudget(ctx, children[0].ID, &drifted, parent.UpdatedAt))

	err = env.distribution.ValidateRollup(ctx, parent.ID)
	require.True(t, errors.Is(err, domain.ErrAllocationMismatch))

	var mErr *domain.AllocationMismatchError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, domain.Pesos(1_000), mErr.Target)
	assert.Equal(t, domain.Pesos(900), mErr.Actual)
}
