package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/obcms/workledger/internal/domain"
)

// BudgetEnvelope options
type EnvelopeOption func(*domain.BudgetEnvelope)

func WithApprovedAmount(m domain.Money) EnvelopeOption {
	return func(e *domain.BudgetEnvelope) {
		e.ApprovedAmount = m
	}
}

func WithFiscalYear(y int) EnvelopeOption {
	return func(e *domain.BudgetEnvelope) {
		e.FiscalYear = y
	}
}

func NewTestEnvelope(title string, opts ...EnvelopeOption) *domain.BudgetEnvelope {
	now := time.Now().UTC()
	e := &domain.BudgetEnvelope{
		ID:             uuid.New().String(),
		Title:          title,
		FiscalYear:     2025,
		ApprovedAmount: domain.Money(10_000_000_00),
		Tenant:         "test",
		CreatedBy:      "tester",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WorkItem options
type WorkItemOption func(*domain.WorkItem)

func WithWorkType(t domain.WorkType) WorkItemOption {
	return func(w *domain.WorkItem) {
		w.WorkType = t
	}
}

// UnderParent wires the fixture beneath parent: parent link, path, depth.
func UnderParent(parent *domain.WorkItem) WorkItemOption {
	return func(w *domain.WorkItem) {
		id := parent.ID
		w.ParentID = &id
		w.Path = parent.Path + "/" + w.ID
		w.Depth = parent.Depth + 1
	}
}

func WithProgress(p int) WorkItemOption {
	return func(w *domain.WorkItem) {
		w.Progress = p
	}
}

func WithAllocatedBudget(m domain.Money) WorkItemOption {
	return func(w *domain.WorkItem) {
		w.AllocatedBudget = &m
	}
}

func WithEnvelopeID(id string) WorkItemOption {
	return func(w *domain.WorkItem) {
		w.EnvelopeID = id
	}
}

func WithWorkItemStatus(s domain.WorkItemStatus) WorkItemOption {
	return func(w *domain.WorkItem) {
		w.Status = s
	}
}

func WithSortKey(k int) WorkItemOption {
	return func(w *domain.WorkItem) {
		w.SortKey = k
	}
}

func WithManualProgress() WorkItemOption {
	return func(w *domain.WorkItem) {
		w.AutoCalculateProgress = false
	}
}

func NewTestWorkItem(title string, opts ...WorkItemOption) *domain.WorkItem {
	now := time.Now().UTC()
	id := uuid.New().String()
	w := &domain.WorkItem{
		ID:                    id,
		WorkType:              domain.WorkProject,
		Title:                 title,
		Status:                domain.WorkItemNotStarted,
		Priority:              domain.PriorityMedium,
		Path:                  id,
		Depth:                 0,
		AutoCalculateProgress: true,
		Tenant:                "test",
		CreatedBy:             "tester",
		Active:                true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Allotment options
type AllotmentOption func(*domain.Allotment)

func WithPeriod(p string) AllotmentOption {
	return func(a *domain.Allotment) {
		a.Period = p
	}
}

func WithAllotmentStatus(s domain.AllotmentStatus) AllotmentOption {
	return func(a *domain.Allotment) {
		a.Status = s
	}
}

func NewTestAllotment(envelopeID string, amount domain.Money, opts ...AllotmentOption) *domain.Allotment {
	now := time.Now().UTC()
	a := &domain.Allotment{
		ID:         uuid.New().String(),
		EnvelopeID: envelopeID,
		Period:     "Q1",
		Amount:     amount,
		Status:     domain.AllotmentReleased,
		CreatedBy:  "tester",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Obligation options
type ObligationOption func(*domain.Obligation)

func WithObligationStatus(s domain.ObligationStatus) ObligationOption {
	return func(o *domain.Obligation) {
		o.Status = s
	}
}

func WithPayee(p string) ObligationOption {
	return func(o *domain.Obligation) {
		o.Payee = p
	}
}

func NewTestObligation(allotmentID, workItemID string, amount domain.Money, opts ...ObligationOption) *domain.Obligation {
	now := time.Now().UTC()
	o := &domain.Obligation{
		ID:          uuid.New().String(),
		AllotmentID: allotmentID,
		WorkItemID:  workItemID,
		Amount:      amount,
		Payee:       "Test Supplier",
		Status:      domain.ObligationObligated,
		CreatedBy:   "tester",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Disbursement options
type DisbursementOption func(*domain.Disbursement)

func WithDisbursementStatus(s domain.DisbursementStatus) DisbursementOption {
	return func(d *domain.Disbursement) {
		d.Status = s
	}
}

func WithPaymentMethod(m domain.PaymentMethod) DisbursementOption {
	return func(d *domain.Disbursement) {
		d.PaymentMethod = m
	}
}

func NewTestDisbursement(obligationID string, amount domain.Money, opts ...DisbursementOption) *domain.Disbursement {
	now := time.Now().UTC()
	d := &domain.Disbursement{
		ID:            uuid.New().String(),
		ObligationID:  obligationID,
		Amount:        amount,
		PaymentMethod: domain.PaymentBankTransfer,
		Status:        domain.DisbursementPaid,
		CreatedBy:     "tester",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}
