package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bciers/internal/compliance/calculator"
	"bciers/internal/compliance/models"
	"bciers/internal/integrations/bccr"
	"bciers/internal/integrations/elicensing"
	"bciers/internal/integrations/provider"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/audit"
	"bciers/pkg/requestcontext"
)

const unitAdjustmentReason = "Compliance Units Applied"

// UnitCapacity is how many more units an obligation accepts.
type UnitCapacity struct {
	UnitValue      decimal.Decimal `json:"unit_value"`
	AppliedValue   decimal.Decimal `json:"applied_value"`
	Outstanding    decimal.Decimal `json:"outstanding_balance"`
	MaxUnits       int64           `json:"max_units"`
	MaxEquivalence decimal.Decimal `json:"max_equivalent_value"`
}

type unitScope struct {
	version    *models.ComplianceReportVersion
	obligation *models.Obligation
	invoice    *models.Invoice
	applied    []models.UnitApplication
	boroID     string
}

func (s *Service) loadUnitScope(ctx context.Context, obligationID id.ObligationID) (*unitScope, error) {
	o, err := s.store.FindObligation(ctx, obligationID)
	if err != nil {
		return nil, translate(err, "obligation")
	}
	v, op, err := s.visible(ctx, o.ComplianceReportVersionID)
	if err != nil {
		return nil, err
	}
	if !o.HasInvoice() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "compliance units can only be applied to an invoiced obligation")
	}
	inv, err := s.store.FindInvoice(ctx, *o.InvoiceID)
	if err != nil {
		return nil, translate(err, "invoice")
	}
	apps, err := s.store.ListUnitApplications(ctx, o.ID)
	if err != nil {
		return nil, translate(err, "compliance unit applications")
	}
	sc := &unitScope{version: v, obligation: o, invoice: inv, applied: apps}
	if op.BOROID != nil {
		sc.boroID = *op.BOROID
	}
	return sc, nil
}

func (s *Service) capacity(sc *unitScope) UnitCapacity {
	applied := models.AppliedValue(sc.applied)
	maxUnits := calculator.UnitCapacity(s.rules, sc.obligation.FeeAmount, applied, sc.invoice.OutstandingBalance, sc.obligation.FeeRate)
	return UnitCapacity{
		UnitValue:      sc.obligation.FeeRate,
		AppliedValue:   applied,
		Outstanding:    sc.invoice.OutstandingBalance,
		MaxUnits:       maxUnits,
		MaxEquivalence: sc.obligation.FeeRate.Mul(decimal.NewFromInt(maxUnits)).Round(calculator.MoneyScale),
	}
}

// GetUnitCapacity reports how many compliance units may still be applied to
// an obligation.
func (s *Service) GetUnitCapacity(ctx context.Context, obligationID id.ObligationID) (*UnitCapacity, error) {
	sc, err := s.loadUnitScope(ctx, obligationID)
	if err != nil {
		return nil, err
	}
	c := s.capacity(sc)
	return &c, nil
}

// ApplyComplianceUnits surrenders units from a holding account against an
// obligation. Each unit is worth the charge rate of the reporting year and
// the units may cover at most the configured share of the fee.
func (s *Service) ApplyComplianceUnits(ctx context.Context, obligationID id.ObligationID, holdingAccountID string, units int64) (*models.UnitApplication, error) {
	c, err := requireIndustry(ctx)
	if err != nil {
		return nil, err
	}
	if units <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one unit must be applied")
	}
	if !bccr.ValidAccountID(holdingAccountID) {
		return nil, dErrors.New(dErrors.CodeValidation, "BCCR holding account IDs are 15 digits")
	}
	sc, err := s.loadUnitScope(ctx, obligationID)
	if err != nil {
		return nil, err
	}
	if sc.obligation.Status == models.ObligationFullyMet {
		return nil, dErrors.New(dErrors.CodeInvalidState, "obligation is already met")
	}
	if sc.boroID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidState, "the operation has no BORO ID")
	}
	if capacity := s.capacity(sc); units > capacity.MaxUnits {
		return nil, unitsExceeded(capacity)
	}

	now := requestcontext.Now(ctx)
	value := sc.obligation.FeeRate.Mul(decimal.NewFromInt(units)).Round(calculator.MoneyScale)
	by := c.guid
	app := &models.UnitApplication{
		ID:               id.NewUnitApplicationID(),
		ObligationID:     sc.obligation.ID,
		HoldingAccountID: holdingAccountID,
		Units:            units,
		UnitValue:        sc.obligation.FeeRate,
		EquivalentValue:  value,
		AppliedBy:        &by,
		CreatedAt:        now,
	}
	if err := s.reserveUnits(ctx, app); err != nil {
		return nil, err
	}

	transferID, err := s.transferUnits(ctx, sc, holdingAccountID, units)
	if err != nil {
		s.releaseUnits(ctx, app)
		return nil, err
	}
	app.BCCRTransactionID = transferID

	adjustmentID, err := s.billing.CreateAdjustment(ctx, sc.invoice.ClientObjectID, elicensing.AdjustmentRequest{
		FeeObjectID: sc.invoice.FeeObjectID,
		Amount:      value.Neg(),
		Date:        elicensing.NewDate(now),
		Reason:      unitAdjustmentReason,
		Type:        "Adjustment",
	})
	if err != nil {
		// The units have moved, so the reservation stays and records the transfer.
		if uerr := s.store.UpdateUnitApplication(ctx, app); uerr != nil {
			s.logger.ErrorContext(ctx, "failed to record transfer on unit reservation", "error", uerr)
		}
		s.logger.ErrorContext(ctx, "units transferred but invoice adjustment failed",
			"obligation_id", sc.obligation.ObligationID,
			"bccr_transaction_id", transferID,
			"error", err,
		)
		return nil, provider.ToDomain(err, "eLicensing adjustment")
	}
	app.AdjustmentObjectID = adjustmentID

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		o, err := s.store.FindObligationForUpdate(txCtx, obligationID)
		if err != nil {
			return translate(err, "obligation")
		}
		if err := s.store.UpdateUnitApplication(txCtx, app); err != nil {
			return translate(err, "compliance unit application")
		}
		inv, err := s.store.FindInvoice(txCtx, sc.invoice.ID)
		if err != nil {
			return translate(err, "invoice")
		}
		inv.OutstandingBalance = decimal.Max(decimal.Zero, inv.OutstandingBalance.Sub(value))
		if err := s.store.UpdateInvoice(txCtx, inv); err != nil {
			return translate(err, "invoice")
		}
		if err := s.store.UpsertAdjustments(txCtx, []models.Adjustment{{
			ID:                 uuid.New(),
			InvoiceID:          inv.ID,
			AdjustmentObjectID: adjustmentID,
			Date:               now,
			Amount:             value.Neg(),
			Reason:             unitAdjustmentReason,
			Type:               "Adjustment",
		}}); err != nil {
			return translate(err, "adjustments")
		}
		o.Settle(inv.OutstandingBalance)
		if err := s.store.UpdateObligation(txCtx, o); err != nil {
			return translate(err, "obligation")
		}
		sc.version.Track(o)
		if err := s.store.UpdateVersionStatus(txCtx, sc.version); err != nil {
			return translate(err, "compliance report version")
		}
		return s.emit(txCtx, audit.ActionComplianceUnitsApplied, o.ID.String(), map[string]string{
			"obligation_id":       o.ObligationID,
			"units":               strconv.FormatInt(units, 10),
			"equivalent_value":    value.StringFixed(calculator.MoneyScale),
			"bccr_transaction_id": transferID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AddUnitsApplied(units)
	s.logger.InfoContext(ctx, "compliance units applied",
		"obligation_id", sc.obligation.ObligationID,
		"units", units,
	)
	return app, nil
}

// reserveUnits records app before any registry call. Capacity is recomputed
// under the obligation lock, so concurrent applications cannot together
// exceed it.
func (s *Service) reserveUnits(ctx context.Context, app *models.UnitApplication) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		o, err := s.store.FindObligationForUpdate(txCtx, app.ObligationID)
		if err != nil {
			return translate(err, "obligation")
		}
		if o.Status == models.ObligationFullyMet {
			return dErrors.New(dErrors.CodeInvalidState, "obligation is already met")
		}
		if !o.HasInvoice() {
			return dErrors.New(dErrors.CodeInvalidState, "compliance units can only be applied to an invoiced obligation")
		}
		inv, err := s.store.FindInvoice(txCtx, *o.InvoiceID)
		if err != nil {
			return translate(err, "invoice")
		}
		apps, err := s.store.ListUnitApplications(txCtx, o.ID)
		if err != nil {
			return translate(err, "compliance unit applications")
		}
		capacity := s.capacity(&unitScope{obligation: o, invoice: inv, applied: apps})
		if app.Units > capacity.MaxUnits {
			return unitsExceeded(capacity)
		}
		return translate(s.store.CreateUnitApplication(txCtx, app), "compliance unit application")
	})
}

func (s *Service) releaseUnits(ctx context.Context, app *models.UnitApplication) {
	if err := s.store.DeleteUnitApplication(ctx, app.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to release unit reservation",
			"application_id", app.ID.String(),
			"error", err,
		)
	}
}

func (s *Service) transferUnits(ctx context.Context, sc *unitScope, holdingAccountID string, units int64) (string, error) {
	if _, err := s.registry.GetAccount(ctx, holdingAccountID); err != nil {
		return "", registryError(err, "BCCR holding account")
	}
	complianceAccount, err := s.registry.CreateComplianceAccount(ctx, bccr.ComplianceAccountRequest{
		HoldingAccountID: holdingAccountID,
		BOROID:           sc.boroID,
		ComplianceYear:   sc.version.ReportingYear,
	})
	if err != nil {
		return "", provider.ToDomain(err, "BCCR compliance account")
	}
	transferID, err := s.registry.TransferUnits(ctx, bccr.Transfer{
		FromAccountID:  holdingAccountID,
		ToAccountID:    complianceAccount,
		Quantity:       units,
		ComplianceYear: sc.version.ReportingYear,
	})
	if err != nil {
		return "", provider.ToDomain(err, "BCCR transfer")
	}
	return transferID, nil
}

func unitsExceeded(c UnitCapacity) error {
	return dErrors.Newf(dErrors.CodeValidation, "at most %d units can be applied to this obligation", c.MaxUnits)
}

// registryError maps a missing account to a validation failure: the ID came
// from the user.
func registryError(err error, what string) error {
	if provider.CategoryOf(err) == provider.ErrorNotFound {
		return dErrors.Newf(dErrors.CodeValidation, "%s not found", what)
	}
	return provider.ToDomain(err, what)
}
