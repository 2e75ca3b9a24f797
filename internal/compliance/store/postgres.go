// Package store persists compliance records and their eLicensing mirrors.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bciers/internal/compliance/calculator"
	"bciers/internal/compliance/models"
	"bciers/internal/platform/database"
	id "bciers/pkg/domain"
	"bciers/pkg/platform/sentinel"
	"bciers/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) q(ctx context.Context) tx.Querier {
	return tx.Q(ctx, s.db)
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	return err
}

func writeErr(op string, err error) error {
	if database.IsUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	return fmt.Errorf("%s: %w", op, database.Translate(err))
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullInvoice(v *id.InvoiceID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: v.UUID, Valid: true}
}

func nullUser(v *id.UserGUID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: v.UUID, Valid: true}
}

func invoiceFrom(n uuid.NullUUID) *id.InvoiceID {
	if !n.Valid {
		return nil
	}
	v := id.InvoiceID{UUID: n.UUID}
	return &v
}

func userFrom(n uuid.NullUUID) *id.UserGUID {
	if !n.Valid {
		return nil
	}
	v := id.UserGUIDFrom(n.UUID)
	return &v
}

// Compliance report versions

const versionColumns = `id, report_version_id, report_id, operation_id, operator_id, reporting_year, version_number,
	previous_id, emissions_attributable, emission_limit, excess_emissions, credited_emissions,
	excess_emissions_delta, billed_excess, credits_issued, status, created_at`

func (s *PostgresStore) CreateVersion(ctx context.Context, v *models.ComplianceReportVersion) error {
	var prev uuid.NullUUID
	if v.PreviousID != nil {
		prev = uuid.NullUUID{UUID: v.PreviousID.UUID, Valid: true}
	}
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.compliance_report_version (`+versionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, v.ID, v.ReportVersionID, v.ReportID, v.OperationID, v.OperatorID, v.ReportingYear, v.VersionNumber,
		prev, v.EmissionsAttributable, v.EmissionLimit, v.ExcessEmissions, v.CreditedEmissions,
		v.ExcessEmissionsDelta, v.BilledExcess, v.CreditsIssued, string(v.Status), v.CreatedAt)
	if err != nil {
		return writeErr("insert compliance report version", err)
	}
	return nil
}

func (s *PostgresStore) findVersion(ctx context.Context, where string, arg any) (*models.ComplianceReportVersion, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+versionColumns+` FROM erc.compliance_report_version WHERE `+where, arg)
	v, err := scanVersion(row)
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

func (s *PostgresStore) FindVersion(ctx context.Context, versionID id.ComplianceReportVersionID) (*models.ComplianceReportVersion, error) {
	return s.findVersion(ctx, `id = $1`, versionID)
}

func (s *PostgresStore) FindVersionByReportVersion(ctx context.Context, reportVersionID id.ReportVersionID) (*models.ComplianceReportVersion, error) {
	return s.findVersion(ctx, `report_version_id = $1`, reportVersionID)
}

// LatestVersion returns the newest compliance version of a report.
func (s *PostgresStore) LatestVersion(ctx context.Context, reportID id.ReportID) (*models.ComplianceReportVersion, error) {
	return s.findVersion(ctx, `report_id = $1 ORDER BY version_number DESC LIMIT 1`, reportID)
}

func (s *PostgresStore) ListVersions(ctx context.Context, operationID id.OperationID) ([]*models.ComplianceReportVersion, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+versionColumns+` FROM erc.compliance_report_version
		WHERE operation_id = $1 ORDER BY reporting_year, version_number
	`, operationID)
	if err != nil {
		return nil, fmt.Errorf("list compliance report versions: %w", err)
	}
	defer rows.Close()
	var out []*models.ComplianceReportVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan compliance report version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateVersionStatus(ctx context.Context, v *models.ComplianceReportVersion) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE erc.compliance_report_version SET status = $2 WHERE id = $1`, v.ID, string(v.Status))
	if err != nil {
		return writeErr("update compliance report version", err)
	}
	return affected(res)
}

func scanVersion(row scanner) (*models.ComplianceReportVersion, error) {
	var (
		v      models.ComplianceReportVersion
		prev   uuid.NullUUID
		status string
	)
	err := row.Scan(&v.ID, &v.ReportVersionID, &v.ReportID, &v.OperationID, &v.OperatorID, &v.ReportingYear, &v.VersionNumber,
		&prev, &v.EmissionsAttributable, &v.EmissionLimit, &v.ExcessEmissions, &v.CreditedEmissions,
		&v.ExcessEmissionsDelta, &v.BilledExcess, &v.CreditsIssued, &status, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if prev.Valid {
		p := id.ComplianceReportVersionID{UUID: prev.UUID}
		v.PreviousID = &p
	}
	v.Status = models.VersionStatus(status)
	return &v, nil
}

// Obligations

const obligationColumns = `id, compliance_report_version_id, obligation_id, fee_amount_dollars, fee_rate_dollars,
	fee_date, obligation_deadline, status, penalty_status, elicensing_invoice_id, created_at`

func (s *PostgresStore) CreateObligation(ctx context.Context, o *models.Obligation) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.compliance_obligation (`+obligationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, o.ID, o.ComplianceReportVersionID, o.ObligationID, o.FeeAmount, o.FeeRate,
		o.FeeDate, o.Deadline, string(o.Status), string(o.PenaltyStatus), nullInvoice(o.InvoiceID), o.CreatedAt)
	if err != nil {
		return writeErr("insert obligation", err)
	}
	return nil
}

func (s *PostgresStore) findObligation(ctx context.Context, query string, arg any) (*models.Obligation, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+obligationColumns+` FROM erc.compliance_obligation WHERE `+query, arg)
	o, err := scanObligation(row)
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (s *PostgresStore) FindObligation(ctx context.Context, obligationID id.ObligationID) (*models.Obligation, error) {
	return s.findObligation(ctx, `id = $1`, obligationID)
}

// FindObligationForUpdate locks the obligation so refreshes, invoicing and
// unit applications serialize.
func (s *PostgresStore) FindObligationForUpdate(ctx context.Context, obligationID id.ObligationID) (*models.Obligation, error) {
	return s.findObligation(ctx, `id = $1 FOR UPDATE`, obligationID)
}

func (s *PostgresStore) FindObligationByVersion(ctx context.Context, versionID id.ComplianceReportVersionID) (*models.Obligation, error) {
	return s.findObligation(ctx, `compliance_report_version_id = $1`, versionID)
}

func (s *PostgresStore) UpdateObligation(ctx context.Context, o *models.Obligation) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE erc.compliance_obligation
		SET status = $2, penalty_status = $3, elicensing_invoice_id = $4
		WHERE id = $1
	`, o.ID, string(o.Status), string(o.PenaltyStatus), nullInvoice(o.InvoiceID))
	if err != nil {
		return writeErr("update obligation", err)
	}
	return affected(res)
}

// ListOpenObligations returns obligations whose balance or penalty may
// still change.
func (s *PostgresStore) ListOpenObligations(ctx context.Context) ([]id.ObligationID, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id FROM erc.compliance_obligation
		WHERE status <> $1 OR penalty_status IN ($2, $3)
		ORDER BY created_at
	`, string(models.ObligationFullyMet), string(calculator.PenaltyAccruing), string(calculator.PenaltyNotPaid))
	if err != nil {
		return nil, fmt.Errorf("list open obligations: %w", err)
	}
	defer rows.Close()
	var out []id.ObligationID
	for rows.Next() {
		var oid id.ObligationID
		if err := rows.Scan(&oid); err != nil {
			return nil, fmt.Errorf("scan obligation id: %w", err)
		}
		out = append(out, oid)
	}
	return out, rows.Err()
}

func scanObligation(row scanner) (*models.Obligation, error) {
	var (
		o                     models.Obligation
		status, penaltyStatus string
		invoice               uuid.NullUUID
	)
	err := row.Scan(&o.ID, &o.ComplianceReportVersionID, &o.ObligationID, &o.FeeAmount, &o.FeeRate,
		&o.FeeDate, &o.Deadline, &status, &penaltyStatus, &invoice, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = models.ObligationStatus(status)
	o.PenaltyStatus = calculator.PenaltyStatus(penaltyStatus)
	o.InvoiceID = invoiceFrom(invoice)
	return &o, nil
}

// eLicensing clients and invoices

func (s *PostgresStore) FindClient(ctx context.Context, operatorID id.OperatorID) (*models.ClientOperator, error) {
	var c models.ClientOperator
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT operator_id, client_object_id, client_guid FROM erc.elicensing_client_operator WHERE operator_id = $1
	`, operatorID).Scan(&c.OperatorID, &c.ClientObjectID, &c.ClientGUID)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *PostgresStore) SaveClient(ctx context.Context, c *models.ClientOperator) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.elicensing_client_operator (operator_id, client_object_id, client_guid)
		VALUES ($1, $2, $3)
	`, c.OperatorID, c.ClientObjectID, c.ClientGUID)
	if err != nil {
		return writeErr("insert elicensing client", err)
	}
	return nil
}

const invoiceColumns = `id, invoice_number, client_object_id, fee_object_id, due_date, outstanding_balance,
	invoice_fee_balance, invoice_interest_balance, is_void, last_refreshed`

func (s *PostgresStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.elicensing_invoice (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, inv.ID, inv.InvoiceNumber, inv.ClientObjectID, inv.FeeObjectID, inv.DueDate, inv.OutstandingBalance,
		inv.FeeBalance, inv.InterestBalance, inv.IsVoid, inv.LastRefreshed)
	if err != nil {
		return writeErr("insert invoice", err)
	}
	return nil
}

func (s *PostgresStore) FindInvoice(ctx context.Context, invoiceID id.InvoiceID) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.q(ctx).QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM erc.elicensing_invoice WHERE id = $1`, invoiceID).
		Scan(&inv.ID, &inv.InvoiceNumber, &inv.ClientObjectID, &inv.FeeObjectID, &inv.DueDate, &inv.OutstandingBalance,
			&inv.FeeBalance, &inv.InterestBalance, &inv.IsVoid, &inv.LastRefreshed)
	if err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

func (s *PostgresStore) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE erc.elicensing_invoice
		SET due_date = $2, outstanding_balance = $3, invoice_fee_balance = $4,
		    invoice_interest_balance = $5, is_void = $6, last_refreshed = $7
		WHERE id = $1
	`, inv.ID, inv.DueDate, inv.OutstandingBalance, inv.FeeBalance, inv.InterestBalance, inv.IsVoid, inv.LastRefreshed)
	if err != nil {
		return writeErr("update invoice", err)
	}
	return affected(res)
}

// UpsertPayments inserts payments by their eLicensing object ID, updating
// amounts and dates that changed upstream.
func (s *PostgresStore) UpsertPayments(ctx context.Context, payments []models.Payment) error {
	q := s.q(ctx)
	for _, p := range payments {
		_, err := q.ExecContext(ctx, `
			INSERT INTO erc.elicensing_payment (id, invoice_id, payment_object_id, received_date, amount, method, receipt_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (payment_object_id) DO UPDATE
			SET received_date = EXCLUDED.received_date, amount = EXCLUDED.amount,
			    method = EXCLUDED.method, receipt_number = EXCLUDED.receipt_number
		`, p.ID, p.InvoiceID, p.PaymentObjectID, p.ReceivedDate, p.Amount, p.Method, p.ReceiptNumber)
		if err != nil {
			return writeErr("upsert payment", err)
		}
	}
	return nil
}

func (s *PostgresStore) UpsertAdjustments(ctx context.Context, adjustments []models.Adjustment) error {
	q := s.q(ctx)
	for _, a := range adjustments {
		_, err := q.ExecContext(ctx, `
			INSERT INTO erc.elicensing_adjustment (id, invoice_id, adjustment_object_id, adjustment_date, amount, reason, type)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (adjustment_object_id) DO UPDATE
			SET adjustment_date = EXCLUDED.adjustment_date, amount = EXCLUDED.amount,
			    reason = EXCLUDED.reason, type = EXCLUDED.type
		`, a.ID, a.InvoiceID, a.AdjustmentObjectID, a.Date, a.Amount, a.Reason, a.Type)
		if err != nil {
			return writeErr("upsert adjustment", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListPayments(ctx context.Context, invoiceID id.InvoiceID) ([]models.Payment, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, invoice_id, payment_object_id, received_date, amount, method, receipt_number
		FROM erc.elicensing_payment WHERE invoice_id = $1 ORDER BY received_date, payment_object_id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	var out []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.PaymentObjectID, &p.ReceivedDate, &p.Amount, &p.Method, &p.ReceiptNumber); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListAdjustments(ctx context.Context, invoiceID id.InvoiceID) ([]models.Adjustment, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, invoice_id, adjustment_object_id, adjustment_date, amount, reason, type
		FROM erc.elicensing_adjustment WHERE invoice_id = $1 ORDER BY adjustment_date, adjustment_object_id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()
	var out []models.Adjustment
	for rows.Next() {
		var a models.Adjustment
		if err := rows.Scan(&a.ID, &a.InvoiceID, &a.AdjustmentObjectID, &a.Date, &a.Amount, &a.Reason, &a.Type); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Penalties

func (s *PostgresStore) FindPenalty(ctx context.Context, obligationID id.ObligationID) (*models.Penalty, error) {
	var (
		p       models.Penalty
		final   sql.NullTime
		status  string
		invoice uuid.NullUUID
	)
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, obligation_id, accrual_start_date, accrual_final_date, penalty_amount, status, elicensing_invoice_id, updated_at
		FROM erc.compliance_penalty WHERE obligation_id = $1
	`, obligationID).Scan(&p.ID, &p.ObligationID, &p.AccrualStart, &final, &p.Amount, &status, &invoice, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if final.Valid {
		p.AccrualFinal = &final.Time
	}
	p.Status = calculator.PenaltyStatus(status)
	p.InvoiceID = invoiceFrom(invoice)
	return &p, nil
}

// SavePenalty upserts the single penalty row of an obligation.
func (s *PostgresStore) SavePenalty(ctx context.Context, p *models.Penalty) error {
	var final sql.NullTime
	if p.AccrualFinal != nil {
		final = sql.NullTime{Time: *p.AccrualFinal, Valid: true}
	}
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.compliance_penalty (id, obligation_id, accrual_start_date, accrual_final_date, penalty_amount, status, elicensing_invoice_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (obligation_id) DO UPDATE
		SET accrual_start_date = EXCLUDED.accrual_start_date, accrual_final_date = EXCLUDED.accrual_final_date,
		    penalty_amount = EXCLUDED.penalty_amount, status = EXCLUDED.status,
		    elicensing_invoice_id = EXCLUDED.elicensing_invoice_id, updated_at = EXCLUDED.updated_at
	`, p.ID, p.ObligationID, p.AccrualStart, final, p.Amount, string(p.Status), nullInvoice(p.InvoiceID), p.UpdatedAt)
	if err != nil {
		return writeErr("save penalty", err)
	}
	return nil
}

// Earned credits

const creditColumns = `id, compliance_report_version_id, earned_credits_amount, issuance_status, bccr_trading_name,
	bccr_holding_account_id, bccr_project_id, analyst_suggestion, analyst_comment, director_decision,
	director_comment, requested_by, requested_at, issued_at, issued_by`

func (s *PostgresStore) CreateEarnedCredit(ctx context.Context, c *models.EarnedCredit) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.compliance_earned_credit (`+creditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, creditArgs(c)...)
	if err != nil {
		return writeErr("insert earned credit", err)
	}
	return nil
}

func creditArgs(c *models.EarnedCredit) []any {
	return []any{
		c.ID, c.ComplianceReportVersionID, c.Amount, string(c.IssuanceStatus), c.TradingName,
		nullString(c.HoldingAccountID), c.ProjectID, string(c.AnalystSuggestion), c.AnalystComment, string(c.DirectorDecision),
		c.DirectorComment, nullUser(c.RequestedBy), nullTime(c.RequestedAt), nullTime(c.IssuedAt), nullUser(c.IssuedBy),
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *PostgresStore) findCredit(ctx context.Context, where string, arg any) (*models.EarnedCredit, error) {
	var (
		c                            models.EarnedCredit
		status, suggestion, decision string
		account                      sql.NullString
		requestedBy, issuedBy        uuid.NullUUID
		requestedAt, issuedAt        sql.NullTime
	)
	err := s.q(ctx).QueryRowContext(ctx, `SELECT `+creditColumns+` FROM erc.compliance_earned_credit WHERE `+where, arg).
		Scan(&c.ID, &c.ComplianceReportVersionID, &c.Amount, &status, &c.TradingName,
			&account, &c.ProjectID, &suggestion, &c.AnalystComment, &decision,
			&c.DirectorComment, &requestedBy, &requestedAt, &issuedAt, &issuedBy)
	if err != nil {
		return nil, notFound(err)
	}
	c.IssuanceStatus = models.IssuanceStatus(status)
	c.AnalystSuggestion = models.AnalystSuggestion(suggestion)
	c.DirectorDecision = models.DirectorDecision(decision)
	if account.Valid {
		a := strings.TrimSpace(account.String)
		c.HoldingAccountID = &a
	}
	c.RequestedBy = userFrom(requestedBy)
	c.IssuedBy = userFrom(issuedBy)
	if requestedAt.Valid {
		c.RequestedAt = &requestedAt.Time
	}
	if issuedAt.Valid {
		c.IssuedAt = &issuedAt.Time
	}
	return &c, nil
}

func (s *PostgresStore) FindEarnedCredit(ctx context.Context, creditID id.EarnedCreditID) (*models.EarnedCredit, error) {
	return s.findCredit(ctx, `id = $1`, creditID)
}

func (s *PostgresStore) FindEarnedCreditForUpdate(ctx context.Context, creditID id.EarnedCreditID) (*models.EarnedCredit, error) {
	return s.findCredit(ctx, `id = $1 FOR UPDATE`, creditID)
}

func (s *PostgresStore) FindEarnedCreditByVersion(ctx context.Context, versionID id.ComplianceReportVersionID) (*models.EarnedCredit, error) {
	return s.findCredit(ctx, `compliance_report_version_id = $1`, versionID)
}

func (s *PostgresStore) UpdateEarnedCredit(ctx context.Context, c *models.EarnedCredit) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE erc.compliance_earned_credit
		SET earned_credits_amount = $3, issuance_status = $4, bccr_trading_name = $5,
		    bccr_holding_account_id = $6, bccr_project_id = $7, analyst_suggestion = $8, analyst_comment = $9,
		    director_decision = $10, director_comment = $11, requested_by = $12, requested_at = $13,
		    issued_at = $14, issued_by = $15
		WHERE id = $1 AND compliance_report_version_id = $2
	`, creditArgs(c)...)
	if err != nil {
		return writeErr("update earned credit", err)
	}
	return affected(res)
}

// Compliance unit applications

func (s *PostgresStore) CreateUnitApplication(ctx context.Context, a *models.UnitApplication) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.compliance_unit_application
		    (id, obligation_id, bccr_holding_account_id, units, unit_value, equivalent_value,
		     bccr_transaction_id, adjustment_object_id, applied_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID, a.ObligationID, a.HoldingAccountID, a.Units, a.UnitValue, a.EquivalentValue,
		a.BCCRTransactionID, a.AdjustmentObjectID, nullUser(a.AppliedBy), a.CreatedAt)
	if err != nil {
		return writeErr("insert compliance unit application", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUnitApplication(ctx context.Context, a *models.UnitApplication) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE erc.compliance_unit_application
		SET bccr_transaction_id = $2, adjustment_object_id = $3
		WHERE id = $1
	`, a.ID, a.BCCRTransactionID, a.AdjustmentObjectID)
	if err != nil {
		return writeErr("update compliance unit application", err)
	}
	return affected(res)
}

func (s *PostgresStore) DeleteUnitApplication(ctx context.Context, appID id.UnitApplicationID) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM erc.compliance_unit_application WHERE id = $1`, appID)
	if err != nil {
		return writeErr("delete compliance unit application", err)
	}
	return affected(res)
}

func (s *PostgresStore) ListUnitApplications(ctx context.Context, obligationID id.ObligationID) ([]models.UnitApplication, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, obligation_id, bccr_holding_account_id, units, unit_value, equivalent_value,
		       bccr_transaction_id, adjustment_object_id, applied_by, created_at
		FROM erc.compliance_unit_application WHERE obligation_id = $1 ORDER BY created_at
	`, obligationID)
	if err != nil {
		return nil, fmt.Errorf("list compliance unit applications: %w", err)
	}
	defer rows.Close()
	var out []models.UnitApplication
	for rows.Next() {
		var (
			a  models.UnitApplication
			by uuid.NullUUID
		)
		if err := rows.Scan(&a.ID, &a.ObligationID, &a.HoldingAccountID, &a.Units, &a.UnitValue, &a.EquivalentValue,
			&a.BCCRTransactionID, &a.AdjustmentObjectID, &by, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan compliance unit application: %w", err)
		}
		a.HoldingAccountID = strings.TrimSpace(a.HoldingAccountID)
		a.AppliedBy = userFrom(by)
		out = append(out, a)
	}
	return out, rows.Err()
}
