package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/obcms/workledger/internal/db"
	"github.com/obcms/workledger/internal/domain"
)

type ledgerService struct {
	reads txRepos
	uow   db.UnitOfWork
	obs   UseCaseObserver
}

func NewLedgerService(database *sql.DB, uow db.UnitOfWork, observers ...UseCaseObserver) LedgerService {
	return &ledgerService{
		reads: newTxRepos(database),
		uow:   uow,
		obs:   useCaseObserverOrNoop(observers),
	}
}

func (s *ledgerService) CreateEnvelope(ctx context.Context, title string, fiscalYear int, approved domain.Money, actor, tenant string) (*domain.BudgetEnvelope, error) {
	if title == "" {
		return nil, &domain.ValidationError{Field: "title", Reason: "title is required"}
	}
	if approved < 0 {
		return nil, domain.ErrInvalidAmount(approved)
	}
	now := time.Now().UTC()
	e := &domain.BudgetEnvelope{
		ID:             uuid.New().String(),
		Title:          title,
		FiscalYear:     fiscalYear,
		ApprovedAmount: approved,
		Tenant:         tenant,
		CreatedBy:      actor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.reads.envelopes.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *ledgerService) GetEnvelope(ctx context.Context, id string) (*domain.BudgetEnvelope, error) {
	return s.reads.envelopes.GetByID(ctx, id)
}

func (s *ledgerService) ListEnvelopes(ctx context.Context) ([]*domain.BudgetEnvelope, error) {
	return s.reads.envelopes.List(ctx)
}

// ReleaseAllotment releases amount against the envelope for the given period.
// The capacity check runs inside the write transaction, so concurrent
// releases serialize and at most one can claim the last remaining balance.
func (s *ledgerService) ReleaseAllotment(ctx context.Context, envelopeID, period string, amount domain.Money, actor string) (*domain.Allotment, error) {
	start := time.Now()
	var allotment *domain.Allotment
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)

		if amount <= 0 {
			return domain.ErrInvalidAmount(amount)
		}
		if period == "" {
			return &domain.ValidationError{Field: "period", Reason: "period is required"}
		}
		env, err := r.envelopes.GetByID(ctx, envelopeID)
		if err != nil {
			return err
		}
		taken, err := r.allotments.ExistsForPeriod(ctx, envelopeID, period)
		if err != nil {
			return err
		}
		if taken {
			return &domain.ValidationError{
				Field:  "period",
				Reason: fmt.Sprintf("an allotment for period %s already exists", period),
			}
		}
		released, err := r.allotments.SumByEnvelope(ctx, envelopeID)
		if err != nil {
			return err
		}
		if released+amount > env.ApprovedAmount {
			return &domain.ExceededError{
				Level:     domain.ExceedEnvelope,
				EntityID:  env.ID,
				Limit:     env.ApprovedAmount,
				Committed: released,
				Requested: amount,
			}
		}

		now := time.Now().UTC()
		allotment = &domain.Allotment{
			ID:         uuid.New().String(),
			EnvelopeID: envelopeID,
			Period:     period,
			Amount:     amount,
			Status:     domain.AllotmentReleased,
			CreatedBy:  actor,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return r.allotments.Create(ctx, allotment)
	})
	observe(ctx, s.obs, "ledger_release_allotment", start, err, map[string]any{
		"envelope_id": envelopeID, "period": period, "amount": int64(amount),
	})
	if err != nil {
		return nil, err
	}
	return allotment, nil
}

// RecordObligation commits amount from the allotment to a work item. On
// success the allotment status is re-derived and the funded item's ancestor
// rollup recomputes in the same transaction.
func (s *ledgerService) RecordObligation(ctx context.Context, allotmentID, workItemID string, amount domain.Money, payee, actor string) (*domain.Obligation, error) {
	start := time.Now()
	var obligation *domain.Obligation
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)

		if amount <= 0 {
			return domain.ErrInvalidAmount(amount)
		}
		allot, err := r.allotments.GetByID(ctx, allotmentID)
		if err != nil {
			return err
		}
		if allot.Status == domain.AllotmentClosed {
			return &domain.ValidationError{Field: "allotment_id", Reason: "allotment is closed"}
		}
		item, err := r.workItems.GetByID(ctx, workItemID)
		if err != nil {
			return fmt.Errorf("resolving work item: %w", err)
		}
		if !item.Active {
			return &domain.ValidationError{Field: "work_item_id", Reason: "work item is deactivated"}
		}
		committed, err := r.obligations.SumActiveByAllotment(ctx, allotmentID)
		if err != nil {
			return err
		}
		if committed+amount > allot.Amount {
			return &domain.ExceededError{
				Level:     domain.ExceedAllotment,
				EntityID:  allot.ID,
				Limit:     allot.Amount,
				Committed: committed,
				Requested: amount,
			}
		}

		now := time.Now().UTC()
		obligation = &domain.Obligation{
			ID:          uuid.New().String(),
			AllotmentID: allotmentID,
			WorkItemID:  workItemID,
			Amount:      amount,
			Payee:       payee,
			Status:      domain.ObligationObligated,
			CreatedBy:   actor,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := r.obligations.Create(ctx, obligation); err != nil {
			return err
		}

		if next := domain.DeriveAllotmentStatus(allot.Status, allot.Amount, committed+amount); next != allot.Status {
			if err := r.allotments.UpdateStatus(ctx, allotmentID, next, now); err != nil {
				return err
			}
		}
		return recomputeWithin(ctx, r, workItemID)
	})
	observe(ctx, s.obs, "ledger_record_obligation", start, err, map[string]any{
		"allotment_id": allotmentID, "work_item_id": workItemID, "amount": int64(amount),
	})
	if err != nil {
		return nil, err
	}
	return obligation, nil
}

// RecordDisbursement pays amount against the obligation. Pending and paid
// disbursements count toward the obligation's cap; failed and reversed do not.
func (s *ledgerService) RecordDisbursement(ctx context.Context, obligationID string, amount domain.Money, method domain.PaymentMethod, actor string) (*domain.Disbursement, error) {
	start := time.Now()
	var disbursement *domain.Disbursement
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)

		if amount <= 0 {
			return domain.ErrInvalidAmount(amount)
		}
		if method == "" {
			method = domain.PaymentOther
		}
		if !domain.ValidPaymentMethods[string(method)] {
			return &domain.ValidationError{
				Field:  "payment_method",
				Reason: fmt.Sprintf("unknown payment method %q", method),
			}
		}
		o, err := r.obligations.GetByID(ctx, obligationID)
		if err != nil {
			return err
		}
		if o.Status == domain.ObligationCancelled {
			return &domain.ValidationError{Field: "obligation_id", Reason: "obligation is cancelled"}
		}
		disbursed, err := r.disbursements.SumActiveByObligation(ctx, obligationID)
		if err != nil {
			return err
		}
		if disbursed+amount > o.Amount {
			return &domain.ExceededError{
				Level:     domain.ExceedObligation,
				EntityID:  o.ID,
				Limit:     o.Amount,
				Committed: disbursed,
				Requested: amount,
			}
		}

		now := time.Now().UTC()
		disbursement = &domain.Disbursement{
			ID:            uuid.New().String(),
			ObligationID:  obligationID,
			Amount:        amount,
			PaymentMethod: method,
			Status:        domain.DisbursementPaid,
			CreatedBy:     actor,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := r.disbursements.Create(ctx, disbursement); err != nil {
			return err
		}

		if next := domain.DeriveObligationStatus(o.Status, o.Amount, disbursed+amount); next != o.Status {
			if err := r.obligations.UpdateStatus(ctx, obligationID, next, now); err != nil {
				return err
			}
		}
		return nil
	})
	observe(ctx, s.obs, "ledger_record_disbursement", start, err, map[string]any{
		"obligation_id": obligationID, "amount": int64(amount),
	})
	if err != nil {
		return nil, err
	}
	return disbursement, nil
}

// CancelObligation returns the obligation's capacity to its allotment.
// Obligations with pending or paid disbursements cannot be cancelled.
func (s *ledgerService) CancelObligation(ctx context.Context, id, actor string) error {
	start := time.Now()
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)

		o, err := r.obligations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.Status == domain.ObligationCancelled {
			return nil
		}
		active, err := r.disbursements.ExistsActiveByObligation(ctx, id)
		if err != nil {
			return err
		}
		if active {
			return &domain.ValidationError{
				Field:  "obligation_id",
				Reason: "cannot cancel an obligation with pending or paid disbursements",
			}
		}

		now := time.Now().UTC()
		if err := r.obligations.UpdateStatus(ctx, id, domain.ObligationCancelled, now); err != nil {
			return err
		}

		allot, err := r.allotments.GetByID(ctx, o.AllotmentID)
		if err != nil {
			return err
		}
		committed, err := r.obligations.SumActiveByAllotment(ctx, o.AllotmentID)
		if err != nil {
			return err
		}
		if next := domain.DeriveAllotmentStatus(allot.Status, allot.Amount, committed); next != allot.Status {
			if err := r.allotments.UpdateStatus(ctx, allot.ID, next, now); err != nil {
				return err
			}
		}
		return recomputeWithin(ctx, r, o.WorkItemID)
	})
	observe(ctx, s.obs, "ledger_cancel_obligation", start, err, map[string]any{"obligation_id": id})
	return err
}

// ReverseDisbursement marks a disbursement reversed and returns its amount to
// the obligation's capacity.
func (s *ledgerService) ReverseDisbursement(ctx context.Context, id, actor string) error {
	start := time.Now()
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)

		d, err := r.disbursements.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if d.Status == domain.DisbursementReversed {
			return nil
		}

		now := time.Now().UTC()
		if err := r.disbursements.UpdateStatus(ctx, id, domain.DisbursementReversed, now); err != nil {
			return err
		}

		o, err := r.obligations.GetByID(ctx, d.ObligationID)
		if err != nil {
			return err
		}
		disbursed, err := r.disbursements.SumActiveByObligation(ctx, d.ObligationID)
		if err != nil {
			return err
		}
		if next := domain.DeriveObligationStatus(o.Status, o.Amount, disbursed); next != o.Status {
			if err := r.obligations.UpdateStatus(ctx, o.ID, next, now); err != nil {
				return err
			}
		}
		return nil
	})
	observe(ctx, s.obs, "ledger_reverse_disbursement", start, err, map[string]any{"disbursement_id": id})
	return err
}

// CloseAllotment ends the allotment's period. Closed is terminal; closing
// does not return released funds to the envelope.
func (s *ledgerService) CloseAllotment(ctx context.Context, id, actor string) error {
	start := time.Now()
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := newTxRepos(tx)
		if _, err := r.allotments.GetByID(ctx, id); err != nil {
			return err
		}
		return r.allotments.UpdateStatus(ctx, id, domain.AllotmentClosed, time.Now().UTC())
	})
	observe(ctx, s.obs, "ledger_close_allotment", start, err, map[string]any{"allotment_id": id})
	return err
}

func (s *ledgerService) AllotmentBalance(ctx context.Context, id string) (domain.Money, error) {
	allot, err := s.reads.allotments.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	committed, err := s.reads.obligations.SumActiveByAllotment(ctx, id)
	if err != nil {
		return 0, err
	}
	return domain.Remaining(allot.Amount, committed), nil
}

func (s *ledgerService) ObligationBalance(ctx context.Context, id string) (domain.Money, error) {
	o, err := s.reads.obligations.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	disbursed, err := s.reads.disbursements.SumActiveByObligation(ctx, id)
	if err != nil {
		return 0, err
	}
	return domain.Remaining(o.Amount, disbursed), nil
}

func (s *ledgerService) EnvelopeBalance(ctx context.Context, id string) (domain.Money, error) {
	env, err := s.reads.envelopes.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	released, err := s.reads.allotments.SumByEnvelope(ctx, id)
	if err != nil {
		return 0, err
	}
	return domain.Remaining(env.ApprovedAmount, released), nil
}

func (s *ledgerService) UtilizationRate(ctx context.Context, allotmentID string) (float64, error) {
	allot, err := s.reads.allotments.GetByID(ctx, allotmentID)
	if err != nil {
		return 0, err
	}
	committed, err := s.reads.obligations.SumActiveByAllotment(ctx, allotmentID)
	if err != nil {
		return 0, err
	}
	return domain.UtilizationPct(allot.Amount, committed), nil
}
