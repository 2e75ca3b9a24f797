// Package models holds compliance report versions, obligations, invoices,
// penalties and earned credits with their state transitions.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bciers/internal/compliance/calculator"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
)

type VersionStatus string

const (
	StatusObligationPendingInvoice VersionStatus = "OBLIGATION_PENDING_INVOICE_CREATION"
	StatusObligationNotMet         VersionStatus = "OBLIGATION_NOT_MET"
	StatusObligationFullyMet       VersionStatus = "OBLIGATION_FULLY_MET"
	StatusEarnedCredits            VersionStatus = "EARNED_CREDITS"
	StatusNoObligation             VersionStatus = "NO_OBLIGATION_OR_EARNED_CREDITS"
)

// ComplianceReportVersion is the persisted compliance outcome of one
// submitted report version.
type ComplianceReportVersion struct {
	ID                    id.ComplianceReportVersionID  `json:"id"`
	ReportVersionID       id.ReportVersionID            `json:"report_version_id"`
	ReportID              id.ReportID                   `json:"report_id"`
	OperationID           id.OperationID                `json:"operation_id"`
	OperatorID            id.OperatorID                 `json:"operator_id"`
	ReportingYear         int                           `json:"reporting_year"`
	VersionNumber         int                           `json:"version_number"`
	PreviousID            *id.ComplianceReportVersionID `json:"previous_id,omitempty"`
	EmissionsAttributable decimal.Decimal               `json:"emissions_attributable_for_compliance"`
	EmissionLimit         decimal.Decimal               `json:"emission_limit"`
	ExcessEmissions       decimal.Decimal               `json:"excess_emissions"`
	CreditedEmissions     decimal.Decimal               `json:"credited_emissions"`
	ExcessEmissionsDelta  decimal.Decimal               `json:"excess_emissions_delta"`
	BilledExcess          decimal.Decimal               `json:"billed_excess"`
	CreditsIssued         int64                         `json:"credits_issued"`
	Status                VersionStatus                 `json:"status"`
	CreatedAt             time.Time                     `json:"created_at"`
}

func (v *ComplianceReportVersion) IsSupplementary() bool {
	return v.PreviousID != nil
}

type ObligationStatus string

const (
	ObligationPendingInvoice ObligationStatus = "OBLIGATION_PENDING_INVOICE_CREATION"
	ObligationNotMet         ObligationStatus = "OBLIGATION_NOT_MET"
	ObligationFullyMet       ObligationStatus = "OBLIGATION_FULLY_MET"
)

// Obligation is the fee owed for excess emissions.
type Obligation struct {
	ID                        id.ObligationID              `json:"id"`
	ComplianceReportVersionID id.ComplianceReportVersionID `json:"compliance_report_version_id"`
	ObligationID              string                       `json:"obligation_id"`
	FeeAmount                 decimal.Decimal              `json:"fee_amount_dollars"`
	FeeRate                   decimal.Decimal              `json:"fee_rate_dollars"`
	FeeDate                   time.Time                    `json:"fee_date"`
	Deadline                  time.Time                    `json:"obligation_deadline"`
	Status                    ObligationStatus             `json:"status"`
	PenaltyStatus             calculator.PenaltyStatus     `json:"penalty_status"`
	InvoiceID                 *id.InvoiceID                `json:"elicensing_invoice_id,omitempty"`
	CreatedAt                 time.Time                    `json:"created_at"`
}

func NewObligation(crv *ComplianceReportVersion, obligationID string, fee, rate decimal.Decimal, now time.Time) (*Obligation, error) {
	if !fee.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "obligation fee must be positive")
	}
	return &Obligation{
		ID:                        id.NewObligationID(),
		ComplianceReportVersionID: crv.ID,
		ObligationID:              obligationID,
		FeeAmount:                 fee,
		FeeRate:                   rate,
		FeeDate:                   now,
		Deadline:                  calculator.DueDate(crv.ReportingYear),
		Status:                    ObligationPendingInvoice,
		PenaltyStatus:             calculator.PenaltyNone,
		CreatedAt:                 now,
	}, nil
}

func (o *Obligation) HasInvoice() bool {
	return o.InvoiceID != nil
}

// AttachInvoice links the eLicensing invoice once it has been created.
func (o *Obligation) AttachInvoice(invoiceID id.InvoiceID) {
	o.InvoiceID = &invoiceID
	if o.Status == ObligationPendingInvoice {
		o.Status = ObligationNotMet
	}
}

// Settle sets the obligation status from the invoice's outstanding balance.
func (o *Obligation) Settle(outstanding decimal.Decimal) {
	if !o.HasInvoice() {
		return
	}
	if outstanding.IsPositive() {
		o.Status = ObligationNotMet
	} else {
		o.Status = ObligationFullyMet
	}
}

// ClientOperator links an operator to its eLicensing client record.
type ClientOperator struct {
	OperatorID     id.OperatorID `json:"operator_id"`
	ClientObjectID string        `json:"client_object_id"`
	ClientGUID     uuid.UUID     `json:"client_guid"`
}

// Invoice is the local copy of an eLicensing invoice.
type Invoice struct {
	ID                 id.InvoiceID    `json:"id"`
	InvoiceNumber      string          `json:"invoice_number"`
	ClientObjectID     string          `json:"client_object_id"`
	FeeObjectID        string          `json:"fee_object_id"`
	DueDate            time.Time       `json:"due_date"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	FeeBalance         decimal.Decimal `json:"invoice_fee_balance"`
	InterestBalance    decimal.Decimal `json:"invoice_interest_balance"`
	IsVoid             bool            `json:"is_void"`
	LastRefreshed      time.Time       `json:"last_refreshed"`
}

type Payment struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceID       id.InvoiceID    `json:"invoice_id"`
	PaymentObjectID string          `json:"payment_object_id"`
	ReceivedDate    time.Time       `json:"received_date"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method"`
	ReceiptNumber   string          `json:"receipt_number"`
}

type Adjustment struct {
	ID                 uuid.UUID       `json:"id"`
	InvoiceID          id.InvoiceID    `json:"invoice_id"`
	AdjustmentObjectID string          `json:"adjustment_object_id"`
	Date               time.Time       `json:"adjustment_date"`
	Amount             decimal.Decimal `json:"amount"`
	Reason             string          `json:"reason"`
	Type               string          `json:"type"`
}

// Movements converts payments and adjustments into principal changes.
func Movements(payments []Payment, adjustments []Adjustment) []calculator.Movement {
	out := make([]calculator.Movement, 0, len(payments)+len(adjustments))
	for _, p := range payments {
		out = append(out, calculator.Movement{Date: p.ReceivedDate, Amount: p.Amount.Neg()})
	}
	for _, a := range adjustments {
		out = append(out, calculator.Movement{Date: a.Date, Amount: a.Amount})
	}
	return out
}

// Penalty is the late-payment penalty of one obligation.
type Penalty struct {
	ID           uuid.UUID                `json:"id"`
	ObligationID id.ObligationID          `json:"obligation_id"`
	AccrualStart time.Time                `json:"accrual_start_date"`
	AccrualFinal *time.Time               `json:"accrual_final_date,omitempty"`
	Amount       decimal.Decimal          `json:"penalty_amount"`
	Status       calculator.PenaltyStatus `json:"status"`
	InvoiceID    *id.InvoiceID            `json:"elicensing_invoice_id,omitempty"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// Apply copies a fresh accrual onto the penalty. A finalized penalty keeps
// its amount.
func (p *Penalty) Apply(calc calculator.Penalty, now time.Time) {
	if p.AccrualFinal != nil {
		return
	}
	p.AccrualStart = calc.AccrualStart
	p.AccrualFinal = calc.AccrualFinal
	p.Amount = calc.Amount
	p.Status = calc.Status
	p.UpdatedAt = now
}

// UnitApplication records compliance units surrendered against an obligation.
type UnitApplication struct {
	ID                 id.UnitApplicationID `json:"id"`
	ObligationID       id.ObligationID      `json:"obligation_id"`
	HoldingAccountID   string               `json:"bccr_holding_account_id"`
	Units              int64                `json:"units"`
	UnitValue          decimal.Decimal      `json:"unit_value"`
	EquivalentValue    decimal.Decimal      `json:"equivalent_value"`
	BCCRTransactionID  string               `json:"bccr_transaction_id"`
	AdjustmentObjectID string               `json:"adjustment_object_id"`
	AppliedBy          *id.UserGUID         `json:"applied_by,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
}

// AppliedValue sums the dollar value of applications.
func AppliedValue(apps []UnitApplication) decimal.Decimal {
	total := decimal.Zero
	for _, a := range apps {
		total = total.Add(a.EquivalentValue)
	}
	return total
}
