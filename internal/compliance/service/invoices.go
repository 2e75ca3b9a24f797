package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"bciers/internal/compliance/calculator"
	"bciers/internal/compliance/models"
	"bciers/internal/integrations/elicensing"
	"bciers/internal/integrations/provider"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/audit"
	"bciers/pkg/requestcontext"
)

const (
	// penaltyPaymentDays is how long an operator has to pay a finalized penalty.
	penaltyPaymentDays = 30
	refreshConcurrency = 4
)

// IssueInvoice bills an obligation through eLicensing. Obligations that
// already have an invoice are returned unchanged.
func (s *Service) IssueInvoice(ctx context.Context, obligationID id.ObligationID) (o *models.Obligation, err error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "compliance.IssueInvoice",
		trace.WithAttributes(attribute.String("obligation_id", obligationID.String())))
	defer func() { endSpan(span, err) }()

	o, err = s.store.FindObligation(ctx, obligationID)
	if err != nil {
		return nil, translate(err, "obligation")
	}
	if o.HasInvoice() {
		return o, nil
	}
	v, err := s.store.FindVersion(ctx, o.ComplianceReportVersionID)
	if err != nil {
		return nil, translate(err, "compliance report version")
	}
	client, err := s.billingClient(ctx, v.OperatorID)
	if err != nil {
		return nil, err
	}
	inv, err := s.bill(ctx, client, o.ID.String(), "Compliance obligation "+o.ObligationID, o.FeeAmount, o.FeeDate, o.Deadline)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.store.FindObligationForUpdate(txCtx, obligationID)
		if err != nil {
			return translate(err, "obligation")
		}
		o = locked
		if o.HasInvoice() {
			return nil
		}
		if err := s.store.CreateInvoice(txCtx, inv); err != nil {
			return translate(err, "invoice")
		}
		o.AttachInvoice(inv.ID)
		if err := s.store.UpdateObligation(txCtx, o); err != nil {
			return translate(err, "obligation")
		}
		v.Track(o)
		if err := s.store.UpdateVersionStatus(txCtx, v); err != nil {
			return translate(err, "compliance report version")
		}
		return s.emit(txCtx, audit.ActionInvoiceIssued, o.ID.String(), map[string]string{
			"kind":           "obligation",
			"obligation_id":  o.ObligationID,
			"invoice_number": inv.InvoiceNumber,
			"amount":         o.FeeAmount.StringFixed(calculator.MoneyScale),
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncInvoiceIssued("obligation")
	s.logger.InfoContext(ctx, "obligation invoice issued",
		"obligation_id", o.ObligationID,
		"invoice_number", inv.InvoiceNumber,
	)
	return o, nil
}

// billingClient returns the operator's eLicensing client, registering the
// operator on first use.
func (s *Service) billingClient(ctx context.Context, operatorID id.OperatorID) (*models.ClientOperator, error) {
	c, err := s.store.FindClient(ctx, operatorID)
	if err == nil {
		return c, nil
	}
	if !notFound(err) {
		return nil, translate(err, "eLicensing client")
	}
	op, err := s.operators.GetOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	guid := uuid.New()
	resp, err := s.billing.CreateClient(ctx, elicensing.ClientRequest{
		ClientGUID:  guid.String(),
		CompanyName: op.LegalName,
		BCCompanyID: op.BCCorporateRegistryNumber,
		Address:     op.Address.StreetAddress,
		City:        op.Address.Municipality,
		Province:    op.Address.Province,
		PostalCode:  op.Address.PostalCode,
	})
	if err != nil {
		return nil, provider.ToDomain(err, "eLicensing client")
	}
	c = &models.ClientOperator{OperatorID: operatorID, ClientObjectID: resp.ClientObjectID, ClientGUID: guid}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.store.SaveClient(txCtx, c)
	})
	if err != nil {
		if existing, findErr := s.store.FindClient(ctx, operatorID); findErr == nil {
			return existing, nil
		}
		return nil, translate(err, "eLicensing client")
	}
	return c, nil
}

// bill creates one fee and an invoice for it. The fee GUID makes a retried
// call land on the same fee.
func (s *Service) bill(ctx context.Context, client *models.ClientOperator, feeGUID, description string, amount decimal.Decimal, feeDate, due time.Time) (*models.Invoice, error) {
	fees, err := s.billing.CreateFees(ctx, client.ClientObjectID, []elicensing.Fee{{
		FeeGUID:     feeGUID,
		FeeDate:     elicensing.NewDate(feeDate),
		Description: description,
		BaseAmount:  amount,
	}})
	if err != nil {
		return nil, provider.ToDomain(err, "eLicensing fee")
	}
	if len(fees) != 1 {
		return nil, dErrors.Newf(dErrors.CodeInternal, "eLicensing returned %d fees for one request", len(fees))
	}
	number, err := s.billing.CreateInvoice(ctx, client.ClientObjectID, elicensing.InvoiceRequest{
		PaymentDueDate: elicensing.NewDate(due),
		FeeObjectIDs:   []string{fees[0].FeeObjectID},
	})
	if err != nil {
		return nil, provider.ToDomain(err, "eLicensing invoice")
	}
	return &models.Invoice{
		ID:                 id.NewInvoiceID(),
		InvoiceNumber:      number,
		ClientObjectID:     client.ClientObjectID,
		FeeObjectID:        fees[0].FeeObjectID,
		DueDate:            elicensing.NewDate(due).Time,
		OutstandingBalance: amount,
		FeeBalance:         amount,
		LastRefreshed:      requestcontext.Now(ctx),
	}, nil
}

// RefreshObligation pulls the invoice from eLicensing, records payments and
// adjustments, settles the obligation and recalculates its penalty.
func (s *Service) RefreshObligation(ctx context.Context, obligationID id.ObligationID) (d *VersionDetail, err error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "compliance.RefreshObligation",
		trace.WithAttributes(attribute.String("obligation_id", obligationID.String())))
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveRefresh(time.Now())

	o, err := s.store.FindObligation(ctx, obligationID)
	if err != nil {
		return nil, translate(err, "obligation")
	}
	if !o.HasInvoice() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "obligation has not been invoiced yet")
	}
	inv, err := s.store.FindInvoice(ctx, *o.InvoiceID)
	if err != nil {
		return nil, translate(err, "invoice")
	}
	remote, err := s.billing.QueryInvoice(ctx, inv.ClientObjectID, inv.InvoiceNumber)
	if err != nil {
		return nil, provider.ToDomain(err, "eLicensing invoice")
	}

	now := requestcontext.Now(ctx)
	var penalty *models.Penalty
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.store.FindObligationForUpdate(txCtx, obligationID)
		if err != nil {
			return translate(err, "obligation")
		}
		o = locked
		if err := s.syncInvoice(txCtx, inv, remote, now); err != nil {
			return err
		}
		o.Settle(inv.OutstandingBalance)

		penalty, err = s.accrue(txCtx, o, now)
		if err != nil {
			return err
		}
		if err := s.store.UpdateObligation(txCtx, o); err != nil {
			return translate(err, "obligation")
		}
		v, err := s.store.FindVersion(txCtx, o.ComplianceReportVersionID)
		if err != nil {
			return translate(err, "compliance report version")
		}
		v.Track(o)
		return translate(s.store.UpdateVersionStatus(txCtx, v), "compliance report version")
	})
	if err != nil {
		return nil, err
	}

	if penalty != nil && penalty.AccrualFinal != nil && penalty.Amount.IsPositive() {
		if penalty.InvoiceID == nil {
			if err := s.issuePenaltyInvoice(ctx, o, penalty); err != nil {
				return nil, err
			}
		} else if penalty.Status != calculator.PenaltyPaid {
			if err := s.refreshPenaltyInvoice(ctx, o, penalty); err != nil {
				return nil, err
			}
		}
	}

	v, err := s.store.FindVersion(ctx, o.ComplianceReportVersionID)
	if err != nil {
		return nil, translate(err, "compliance report version")
	}
	return s.detail(ctx, v)
}

// syncInvoice copies the billing system's view of an invoice into the store.
func (s *Service) syncInvoice(ctx context.Context, inv *models.Invoice, remote *elicensing.Invoice, now time.Time) error {
	if !remote.DueDate.IsZero() {
		inv.DueDate = remote.DueDate.Time
	}
	inv.OutstandingBalance = remote.OutstandingBalance
	inv.FeeBalance = remote.FeeBalance
	inv.InterestBalance = remote.InterestBalance
	inv.LastRefreshed = now
	if err := s.store.UpdateInvoice(ctx, inv); err != nil {
		return translate(err, "invoice")
	}

	payments := make([]models.Payment, 0)
	for _, p := range remote.Payments() {
		payments = append(payments, models.Payment{
			ID:              uuid.New(),
			InvoiceID:       inv.ID,
			PaymentObjectID: p.PaymentObjectID,
			ReceivedDate:    p.ReceivedDate.Time,
			Amount:          p.Amount,
			Method:          p.Method,
			ReceiptNumber:   p.ReceiptNumber,
		})
	}
	if err := s.store.UpsertPayments(ctx, payments); err != nil {
		return translate(err, "payments")
	}
	adjustments := make([]models.Adjustment, 0)
	for _, a := range remote.Adjustments() {
		adjustments = append(adjustments, models.Adjustment{
			ID:                 uuid.New(),
			InvoiceID:          inv.ID,
			AdjustmentObjectID: a.AdjustmentObjectID,
			Date:               a.AdjustmentDate.Time,
			Amount:             a.Amount,
			Reason:             a.Reason,
			Type:               a.Type,
		})
	}
	return translate(s.store.UpsertAdjustments(ctx, adjustments), "adjustments")
}

// accrue recalculates the obligation's penalty from every recorded payment
// and adjustment. It returns nil while no penalty exists.
func (s *Service) accrue(ctx context.Context, o *models.Obligation, now time.Time) (*models.Penalty, error) {
	payments, err := s.store.ListPayments(ctx, *o.InvoiceID)
	if err != nil {
		return nil, translate(err, "payments")
	}
	adjustments, err := s.store.ListAdjustments(ctx, *o.InvoiceID)
	if err != nil {
		return nil, translate(err, "adjustments")
	}
	calc := calculator.AccruePenalty(s.rules, calculator.PenaltyInput{
		Principal: o.FeeAmount,
		DueDate:   o.Deadline,
		Movements: models.Movements(payments, adjustments),
		AsOf:      now,
	})

	p, err := s.store.FindPenalty(ctx, o.ID)
	switch {
	case notFound(err):
		if calc.Status == calculator.PenaltyNone {
			return nil, nil
		}
		p = &models.Penalty{ID: uuid.New(), ObligationID: o.ID}
	case err != nil:
		return nil, translate(err, "penalty")
	}
	wasFinal := p.AccrualFinal != nil
	p.Apply(calc, now)
	if err := s.store.SavePenalty(ctx, p); err != nil {
		return nil, translate(err, "penalty")
	}
	o.PenaltyStatus = p.Status
	if !wasFinal && p.AccrualFinal != nil && p.Amount.IsPositive() {
		s.metrics.IncPenaltyFinalized()
		if err := s.emit(ctx, audit.ActionPenaltyFinalized, o.ID.String(), map[string]string{
			"obligation_id":  o.ObligationID,
			"penalty_amount": p.Amount.StringFixed(calculator.MoneyScale),
			"accrual_final":  p.AccrualFinal.Format("2006-01-02"),
		}); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// issuePenaltyInvoice bills a finalized penalty.
func (s *Service) issuePenaltyInvoice(ctx context.Context, o *models.Obligation, p *models.Penalty) error {
	v, err := s.store.FindVersion(ctx, o.ComplianceReportVersionID)
	if err != nil {
		return translate(err, "compliance report version")
	}
	client, err := s.billingClient(ctx, v.OperatorID)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	inv, err := s.bill(ctx, client, p.ID.String(), "Late payment penalty "+o.ObligationID, p.Amount, now, now.AddDate(0, 0, penaltyPaymentDays))
	if err != nil {
		return err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.store.FindPenalty(txCtx, o.ID)
		if err != nil {
			return translate(err, "penalty")
		}
		if locked.InvoiceID != nil {
			return nil
		}
		if err := s.store.CreateInvoice(txCtx, inv); err != nil {
			return translate(err, "invoice")
		}
		locked.InvoiceID = &inv.ID
		locked.UpdatedAt = now
		if err := s.store.SavePenalty(txCtx, locked); err != nil {
			return translate(err, "penalty")
		}
		*p = *locked
		return s.emit(txCtx, audit.ActionInvoiceIssued, o.ID.String(), map[string]string{
			"kind":           "penalty",
			"obligation_id":  o.ObligationID,
			"invoice_number": inv.InvoiceNumber,
			"amount":         p.Amount.StringFixed(calculator.MoneyScale),
		})
	})
	if err != nil {
		return err
	}
	s.metrics.IncInvoiceIssued("penalty")
	return nil
}

// refreshPenaltyInvoice marks a finalized penalty paid once its invoice has
// no balance left.
func (s *Service) refreshPenaltyInvoice(ctx context.Context, o *models.Obligation, p *models.Penalty) error {
	inv, err := s.store.FindInvoice(ctx, *p.InvoiceID)
	if err != nil {
		return translate(err, "invoice")
	}
	remote, err := s.billing.QueryInvoice(ctx, inv.ClientObjectID, inv.InvoiceNumber)
	if err != nil {
		return provider.ToDomain(err, "eLicensing invoice")
	}
	now := requestcontext.Now(ctx)
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.syncInvoice(txCtx, inv, remote, now); err != nil {
			return err
		}
		if inv.OutstandingBalance.IsPositive() {
			return nil
		}
		p.Status = calculator.PenaltyPaid
		p.UpdatedAt = now
		if err := s.store.SavePenalty(txCtx, p); err != nil {
			return translate(err, "penalty")
		}
		locked, err := s.store.FindObligationForUpdate(txCtx, o.ID)
		if err != nil {
			return translate(err, "obligation")
		}
		locked.PenaltyStatus = calculator.PenaltyPaid
		*o = *locked
		return translate(s.store.UpdateObligation(txCtx, locked), "obligation")
	})
}

// RefreshOpenObligations invoices obligations still waiting for an invoice
// and refreshes every other obligation with money or a penalty outstanding.
func (s *Service) RefreshOpenObligations(ctx context.Context) error {
	ids, err := s.store.ListOpenObligations(ctx)
	if err != nil {
		return translate(err, "obligations")
	}
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(refreshConcurrency)
	for _, obligationID := range ids {
		obligationID := obligationID
		g.Go(func() error {
			if err := s.refreshOne(ctx, obligationID); err != nil {
				s.logger.WarnContext(ctx, "obligation refresh failed",
					"obligation_id", obligationID.String(),
					"error", err,
				)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if len(errs) > 0 {
		return dErrors.Wrap(errors.Join(errs...), dErrors.CodeUnavailable,
			fmt.Sprintf("%d of %d obligations failed to refresh", len(errs), len(ids)))
	}
	return nil
}

func (s *Service) refreshOne(ctx context.Context, obligationID id.ObligationID) error {
	o, err := s.store.FindObligation(ctx, obligationID)
	if err != nil {
		return translate(err, "obligation")
	}
	if !o.HasInvoice() {
		_, err := s.IssueInvoice(ctx, obligationID)
		return err
	}
	_, err = s.RefreshObligation(ctx, obligationID)
	return err
}

// GetObligation returns the compliance version an obligation belongs to with
// its invoice, penalty and unit applications.
func (s *Service) GetObligation(ctx context.Context, obligationID id.ObligationID) (*VersionDetail, error) {
	o, err := s.store.FindObligation(ctx, obligationID)
	if err != nil {
		return nil, translate(err, "obligation")
	}
	v, _, err := s.visible(ctx, o.ComplianceReportVersionID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, v)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
