package service

import (
	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/repository"
)

// txRepos bundles repositories bound to one connection or transaction.
// Services build a fresh set inside every WithinTx callback so all reads and
// writes of a use case share the transaction's view.
type txRepos struct {
	workItems     repository.WorkItemRepo
	envelopes     repository.EnvelopeRepo
	allotments    repository.AllotmentRepo
	obligations   repository.ObligationRepo
	disbursements repository.DisbursementRepo
}

func newTxRepos(conn db.DBTX) txRepos {
	return txRepos{
		workItems:     repository.NewSQLiteWorkItemRepo(conn),
		envelopes:     repository.NewSQLiteEnvelopeRepo(conn),
		allotments:    repository.NewSQLiteAllotmentRepo(conn),
		obligations:   repository.NewSQLiteObligationRepo(conn),
		disbursements: repository.NewSQLiteDisbursementRepo(conn),
	}
}
