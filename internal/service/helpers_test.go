package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/domain"
	"github.com/obcms/workledger/internal/testutil"
)

type testEnv struct {
	db    *sql.DB
	uow   db.UnitOfWork
	reads txRepos

	tree         TreeService
	ledger       LedgerService
	distribution DistributionService
	rollup       RollupService
	tracking     TrackingService
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()
	database := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(database)
	return &testEnv{
		db:           database,
		uow:          uow,
		reads:        newTxRepos(database),
		tree:         NewTreeService(database, uow),
		ledger:       NewLedgerService(database, uow),
		distribution: NewDistributionService(database, uow),
		rollup:       NewRollupService(uow),
		tracking:     NewTrackingService(database, uow),
	}
}

// fundedFixture creates an envelope with one allotment and a small tree:
// root -> activity -> task.
func fundedFixture(t *testing.T, env *testEnv, approved, allotted domain.Money) (envelope *domain.BudgetEnvelope, allotment *domain.Allotment, root, activity, task *domain.WorkItem) {
	t.Helper()
	ctx := context.Background()

	envelope, err := env.ledger.CreateEnvelope(ctx, "FY2025 GAA", 2025, approved, "tester", "test")
	require.NoError(t, err)
	allotment, err = env.ledger.ReleaseAllotment(ctx, envelope.ID, "Q1", allotted, "tester")
	require.NoError(t, err)

	root = &domain.WorkItem{WorkType: domain.WorkProject, Title: "Root", AutoCalculateProgress: true, EnvelopeID: envelope.ID, Tenant: "test"}
	require.NoError(t, env.tree.Attach(ctx, root, nil, "tester"))
	activity = &domain.WorkItem{WorkType: domain.WorkActivity, Title: "Activity", AutoCalculateProgress: true}
	require.NoError(t, env.tree.Attach(ctx, activity, &root.ID, "tester"))
	task = &domain.WorkItem{WorkType: domain.WorkTask, Title: "Task", AutoCalculateProgress: true}
	require.NoError(t, env.tree.Attach(ctx, task, &activity.ID, "tester"))

	return envelope, allotment, root, activity, task
}
