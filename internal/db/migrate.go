package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are idempotent; ALTER TABLE
// duplicates from re-runs are tolerated.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS budget_envelopes (
		id              TEXT PRIMARY KEY,
		title           TEXT NOT NULL,
		fiscal_year     INTEGER NOT NULL DEFAULT 0,
		approved_amount INTEGER NOT NULL CHECK(approved_amount >= 0),
		tenant          TEXT NOT NULL DEFAULT '',
		created_by      TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,

	// path is the materialized ancestry "rootID/.../selfID". Subtree and
	// ancestor queries are range scans on it; no recursive walks.
	`CREATE TABLE IF NOT EXISTS work_items (
		id               TEXT PRIMARY KEY,
		work_type        TEXT NOT NULL
		                 CHECK(work_type IN ('project','sub_project','activity','sub_activity','task','subtask')),
		title            TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL DEFAULT 'not_started'
		                 CHECK(status IN ('not_started','in_progress','at_risk','blocked','completed','cancelled')),
		priority         TEXT NOT NULL DEFAULT 'medium'
		                 CHECK(priority IN ('low','medium','high','urgent','critical')),
		parent_id        TEXT REFERENCES work_items(id),
		path             TEXT NOT NULL,
		depth            INTEGER NOT NULL DEFAULT 0,
		sort_key         INTEGER NOT NULL DEFAULT 0,
		progress         INTEGER NOT NULL DEFAULT 0 CHECK(progress BETWEEN 0 AND 100),
		auto_progress    INTEGER NOT NULL DEFAULT 1,
		allocated_budget INTEGER,
		consumed_budget  INTEGER NOT NULL DEFAULT 0,
		start_date       TEXT,
		due_date         TEXT,
		envelope_id      TEXT NOT NULL DEFAULT '',
		created_by       TEXT NOT NULL DEFAULT '',
		tenant           TEXT NOT NULL DEFAULT '',
		active           INTEGER NOT NULL DEFAULT 1,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS wi_path_idx ON work_items(path)`,
	`CREATE INDEX IF NOT EXISTS wi_parent_idx ON work_items(parent_id)`,
	`CREATE INDEX IF NOT EXISTS wi_envelope_idx ON work_items(envelope_id) WHERE envelope_id != ''`,
	`CREATE INDEX IF NOT EXISTS wi_type_status_idx ON work_items(work_type, status)`,

	`CREATE TABLE IF NOT EXISTS allotments (
		id          TEXT PRIMARY KEY,
		envelope_id TEXT NOT NULL REFERENCES budget_envelopes(id),
		period      TEXT NOT NULL,
		amount      INTEGER NOT NULL CHECK(amount > 0),
		status      TEXT NOT NULL DEFAULT 'released'
		            CHECK(status IN ('released','fully_obligated','closed')),
		created_by  TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		UNIQUE(envelope_id, period)
	)`,

	`CREATE INDEX IF NOT EXISTS allot_envelope_idx ON allotments(envelope_id)`,

	`CREATE TABLE IF NOT EXISTS obligations (
		id           TEXT PRIMARY KEY,
		allotment_id TEXT NOT NULL REFERENCES allotments(id),
		work_item_id TEXT NOT NULL REFERENCES work_items(id),
		amount       INTEGER NOT NULL CHECK(amount > 0),
		payee        TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'obligated'
		             CHECK(status IN ('obligated','partially_disbursed','fully_disbursed','cancelled')),
		created_by   TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS oblig_allotment_idx ON obligations(allotment_id)`,
	`CREATE INDEX IF NOT EXISTS oblig_work_item_idx ON obligations(work_item_id)`,

	`CREATE TABLE IF NOT EXISTS disbursements (
		id             TEXT PRIMARY KEY,
		obligation_id  TEXT NOT NULL REFERENCES obligations(id),
		amount         INTEGER NOT NULL CHECK(amount > 0),
		payment_method TEXT NOT NULL DEFAULT 'other'
		               CHECK(payment_method IN ('check','bank_transfer','cash','other')),
		status         TEXT NOT NULL DEFAULT 'paid'
		               CHECK(status IN ('pending','paid','failed','reversed')),
		created_by     TEXT NOT NULL DEFAULT '',
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS disb_obligation_idx ON disbursements(obligation_id)`,
}
