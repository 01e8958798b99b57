package domain

import "time"

// BudgetEnvelope is the approved budget ceiling that allotments are released
// against. Approval workflow lives outside this core; the envelope is
// persisted here only so the non-exceedance invariant has a reference amount.
type BudgetEnvelope struct {
	ID             string
	Title          string
	FiscalYear     int
	ApprovedAmount Money
	Tenant         string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Allotment is a periodic release of funds against an envelope.
type Allotment struct {
	ID         string
	EnvelopeID string
	Period     string // e.g. "Q1"
	Amount     Money
	Status     AllotmentStatus
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Obligation commits allotted funds to a work item and payee.
type Obligation struct {
	ID          string
	AllotmentID string
	WorkItemID  string
	Amount      Money
	Payee       string
	Status      ObligationStatus
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Disbursement is an actual payment against an obligation.
type Disbursement struct {
	ID            string
	ObligationID  string
	Amount        Money
	PaymentMethod PaymentMethod
	Status        DisbursementStatus
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeriveAllotmentStatus computes an allotment's status from the cumulative
// non-cancelled obligations against it. Closed is sticky: once closed an
// allotment stays closed.
func DeriveAllotmentStatus(current AllotmentStatus, amount, obligated Money) AllotmentStatus {
	if current == AllotmentClosed {
		return AllotmentClosed
	}
	if obligated >= amount {
		return AllotmentFullyObligated
	}
	return AllotmentReleased
}

// DeriveObligationStatus computes an obligation's status from the cumulative
// non-reversed disbursements against it. Cancelled is terminal.
func DeriveObligationStatus(current ObligationStatus, amount, disbursed Money) ObligationStatus {
	if current == ObligationCancelled {
		return ObligationCancelled
	}
	switch {
	case disbursed <= 0:
		return ObligationObligated
	case disbursed < amount:
		return ObligationPartiallyDisbursed
	default:
		return ObligationFullyDisbursed
	}
}

// Remaining returns the uncommitted capacity given a declared amount and the
// committed sum below it. Never negative.
func Remaining(amount, committed Money) Money {
	if committed >= amount {
		return 0
	}
	return amount - committed
}

// UtilizationPct returns committed/amount as a percentage in [0,100].
func UtilizationPct(amount, committed Money) float64 {
	if amount <= 0 {
		return 0
	}
	pct := float64(committed) / float64(amount) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
