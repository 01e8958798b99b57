package repository

// Compile-time interface checks for the SQLite implementations.
var (
	_ WorkItemRepo     = (*SQLiteWorkItemRepo)(nil)
	_ EnvelopeRepo     = (*SQLiteEnvelopeRepo)(nil)
	_ AllotmentRepo    = (*SQLiteAllotmentRepo)(nil)
	_ ObligationRepo   = (*SQLiteObligationRepo)(nil)
	_ DisbursementRepo = (*SQLiteDisbursementRepo)(nil)
)
