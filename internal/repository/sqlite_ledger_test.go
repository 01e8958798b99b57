package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obcms/workledger/internal/domain"
	"github.com/obcms/workledger/internal/testutil"
)

func TestEnvelopeCreateGetList(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteEnvelopeRepo(database)
	ctx := context.Background()

	env := testutil.NewTestEnvelope("FY2025 GAA",
		testutil.WithFiscalYear(2025),
		testutil.WithApprovedAmount(domain.Pesos(45_000_000)),
	)
	require.NoError(t, repo.Create(ctx, env))

	got, err := repo.GetByID(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, "FY2025 GAA", got.Title)
	assert.Equal(t, 2025, got.FiscalYear)
	assert.Equal(t, domain.Pesos(45_000_000), got.ApprovedAmount)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAllotmentSumAndPeriodUniqueness(t *testing.T) {
	database := testutil.NewTestDB(t)
	envRepo := NewSQLiteEnvelopeRepo(database)
	repo := NewSQLiteAllotmentRepo(database)
	ctx := context.Background()

	env := testutil.NewTestEnvelope("FY2025 GAA")
	require.NoError(t, envRepo.Create(ctx, env))

	q1 := testutil.NewTestAllotment(env.ID, domain.Pesos(20_000_000), testutil.WithPeriod("Q1"))
	q2 := testutil.NewTestAllotment(env.ID, domain.Pesos(20_000_000), testutil.WithPeriod("Q2"))
	require.NoError(t, repo.Create(ctx, q1))
	require.NoError(t, repo.Create(ctx, q2))

	sum, err := repo.SumByEnvelope(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Pesos(40_000_000), sum)

	exists, err := repo.ExistsForPeriod(ctx, env.ID, "Q1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsForPeriod(ctx, env.ID, "Q3")
	require.NoError(t, err)
	assert.False(t, exists)

	// the schema enforces the (envelope, period) uniqueness too
	dup := testutil.NewTestAllotment(env.ID, domain.Pesos(1), testutil.WithPeriod("Q1"))
	assert.Error(t, repo.Create(ctx, dup))

	listed, err := repo.ListByEnvelope(ctx, env.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "Q1", listed[0].Period)

	require.NoError(t, repo.UpdateStatus(ctx, q1.ID, domain.AllotmentClosed, time.Now().UTC()))
	got, err := repo.GetByID(ctx, q1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AllotmentClosed, got.Status)
}

func TestObligationSums(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	wiRepo := NewSQLiteWorkItemRepo(database)
	envRepo := NewSQLiteEnvelopeRepo(database)
	allotRepo := NewSQLiteAllotmentRepo(database)
	repo := NewSQLiteObligationRepo(database)

	env := testutil.NewTestEnvelope("FY2025 GAA")
	require.NoError(t, envRepo.Create(ctx, env))
	allot := testutil.NewTestAllotment(env.ID, domain.Pesos(10_000_000))
	require.NoError(t, allotRepo.Create(ctx, allot))

	root := testutil.NewTestWorkItem("Root")
	require.NoError(t, wiRepo.Create(ctx, root))
	child := testutil.NewTestWorkItem("Child",
		testutil.WithWorkType(domain.WorkTask), testutil.UnderParent(root))
	require.NoError(t, wiRepo.Create(ctx, child))

	o1 := testutil.NewTestObligation(allot.ID, root.ID, domain.Pesos(3_000_000))
	o2 := testutil.NewTestObligation(allot.ID, child.ID, domain.Pesos(2_000_000))
	o3 := testutil.NewTestObligation(allot.ID, child.ID, domain.Pesos(1_000_000),
		testutil.WithObligationStatus(domain.ObligationCancelled))
	require.NoError(t, repo.Create(ctx, o1))
	require.NoError(t, repo.Create(ctx, o2))
	require.NoError(t, repo.Create(ctx, o3))

	sum, err := repo.SumActiveByAllotment(ctx, allot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Pesos(5_000_000), sum, "cancelled obligations excluded")

	subtreeSum, err := repo.SumActiveBySubtree(ctx, root.Path)
	require.NoError(t, err)
	assert.Equal(t, domain.Pesos(5_000_000), subtreeSum)

	childSum, err := repo.SumActiveBySubtree(ctx, child.Path)
	require.NoError(t, err)
	assert.Equal(t, domain.Pesos(2_000_000), childSum)

	byItem, err := repo.ListByWorkItem(ctx, child.ID)
	require.NoError(t, err)
	assert.Len(t, byItem, 2)

	byAllot, err := repo.ListByAllotment(ctx, allot.ID)
	require.NoError(t, err)
	assert.Len(t, byAllot, 3)
}

func TestDisbursementSums(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	wiRepo := NewSQLiteWorkItemRepo(database)
	envRepo := NewSQLiteEnvelopeRepo(database)
	allotRepo := NewSQLiteAllotmentRepo(database)
	obligRepo := NewSQLiteObligationRepo(database)
	repo := NewSQLiteDisbursementRepo(database)

	env := testutil.NewTestEnvelope("FY2025 GAA")
	require.NoError(t, envRepo.Create(ctx, env))
	allot := testutil.NewTestAllotment(env.ID, domain.Pesos(10_000_000))
	require.NoError(t, allotRepo.Create(ctx, allot))
	item := testutil.NewTestWorkItem("Item")
	require.NoError(t, wiRepo.Create(ctx, item))
	oblig := testutil.NewTestObligation(allot.ID, item.ID, domain.Pesos(1_000_000))
	require.NoError(t, obligRepo.Create(ctx, oblig))

	paid := testutil.NewTestDisbursement(oblig.ID, domain.Pesos(400_000))
	pending := testutil.NewTestDisbursement(oblig.ID, domain.Pesos(100_000),
		testutil.WithDisbursementStatus(domain.DisbursementPending))
	reversed := testutil.NewTestDisbursement(oblig.ID, domain.Pesos(300_000),
		testutil.WithDisbursementStatus(domain.DisbursementReversed))
	failed := testutil.NewTestDisbursement(oblig.ID, domain.Pesos(200_000),
		testutil.WithDisbursementStatus(domain.DisbursementFailed))
	for _, d := range []*domain.Disbursement{paid, pending, reversed, failed} {
		require.NoError(t, repo.Create(ctx, d))
	}

	sum, err := repo.SumActiveByObligation(ctx, oblig.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Pesos(500_000), sum, "only pending and paid count")

	active, err := repo.ExistsActiveByObligation(ctx, oblig.ID)
	require.NoError(t, err)
	assert.True(t, active)

	listed, err := repo.ListByObligation(ctx, oblig.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 4)

	require.NoError(t, repo.UpdateStatus(ctx, paid.ID, domain.DisbursementReversed, time.Now().UTC()))
	require.NoError(t, repo.UpdateStatus(ctx, pending.ID, domain.DisbursementFailed, time.Now().UTC()))

	active, err = repo.ExistsActiveByObligation(ctx, oblig.ID)
	require.NoError(t, err)
	assert.False(t, active)
}
