// Package store persists emission reports.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"bciers/internal/platform/database"
	"bciers/internal/reporting/models"
	id "bciers/pkg/domain"
	"bciers/pkg/platform/sentinel"
	"bciers/pkg/platform/tx"
)

// PostgresStore reads and writes the erc report tables. Submitted versions
// are also protected by triggers, which surface here as translated errors.
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

func (s *PostgresStore) CreateReport(ctx context.Context, r *models.Report) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.report (id, operator_id, operation_id, reporting_year, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.ID, r.OperatorID, r.OperationID, r.ReportingYear, r.CreatedAt)
	if err != nil {
		return writeErr("insert report", err)
	}
	return nil
}

const reportColumns = `id, operator_id, operation_id, reporting_year, created_at`

func (s *PostgresStore) FindReport(ctx context.Context, reportID id.ReportID) (*models.Report, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+reportColumns+` FROM erc.report WHERE id = $1`, reportID)
	r, err := scanReport(row)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *PostgresStore) ListReports(ctx context.Context, operationID id.OperationID) ([]*models.Report, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+reportColumns+` FROM erc.report WHERE operation_id = $1 ORDER BY reporting_year`, operationID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()
	var out []*models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReport(row scanner) (*models.Report, error) {
	var r models.Report
	if err := row.Scan(&r.ID, &r.OperatorID, &r.OperationID, &r.ReportingYear, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

const versionColumns = `id, report_id, version_number, report_type, status, submitted_at, submitted_by, created_at`

func (s *PostgresStore) CreateVersion(ctx context.Context, v *models.ReportVersion) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.report_version (`+versionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, v.ID, v.ReportID, v.VersionNumber, string(v.ReportType), string(v.Status), v.SubmittedAt, v.SubmittedBy, v.CreatedAt)
	if err != nil {
		return writeErr("insert report version", err)
	}
	return nil
}

func (s *PostgresStore) FindVersion(ctx context.Context, versionID id.ReportVersionID) (*models.ReportVersion, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+versionColumns+` FROM erc.report_version WHERE id = $1`, versionID)
	v, err := scanVersion(row)
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

// FindVersionForUpdate locks the version row so concurrent saves and submits
// serialize.
func (s *PostgresStore) FindVersionForUpdate(ctx context.Context, versionID id.ReportVersionID) (*models.ReportVersion, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+versionColumns+` FROM erc.report_version WHERE id = $1 FOR UPDATE`, versionID)
	v, err := scanVersion(row)
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

func (s *PostgresStore) ListVersions(ctx context.Context, reportID id.ReportID) ([]*models.ReportVersion, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+versionColumns+` FROM erc.report_version WHERE report_id = $1 ORDER BY version_number`, reportID)
	if err != nil {
		return nil, fmt.Errorf("list report versions: %w", err)
	}
	defer rows.Close()
	var out []*models.ReportVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateVersion(ctx context.Context, v *models.ReportVersion) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE erc.report_version SET status = $2, submitted_at = $3, submitted_by = $4 WHERE id = $1
	`, v.ID, string(v.Status), v.SubmittedAt, v.SubmittedBy)
	if err != nil {
		return writeErr("update report version", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanVersion(row scanner) (*models.ReportVersion, error) {
	var (
		v                  models.ReportVersion
		reportType, status string
		submittedBy        uuid.NullUUID
	)
	if err := row.Scan(&v.ID, &v.ReportID, &v.VersionNumber, &reportType, &status, &v.SubmittedAt, &submittedBy, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.ReportType = models.ReportType(reportType)
	v.Status = models.VersionStatus(status)
	if submittedBy.Valid {
		by := id.UserGUIDFrom(submittedBy.UUID)
		v.SubmittedBy = &by
	}
	return &v, nil
}

func (s *PostgresStore) ReplaceProducts(ctx context.Context, versionID id.ReportVersionID, products []models.ReportProduct) error {
	q := s.q(ctx)
	if _, err := q.ExecContext(ctx, `DELETE FROM erc.report_product WHERE report_version_id = $1`, versionID); err != nil {
		return writeErr("delete report products", err)
	}
	for _, p := range products {
		_, err := q.ExecContext(ctx, `
			INSERT INTO erc.report_product (id, report_version_id, product_id, annual_production, production_apr_dec, production_methodology)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New(), versionID, p.ProductID, p.AnnualProduction, decimal.NullDecimal{Decimal: deref(p.ProductionAprDec), Valid: p.ProductionAprDec != nil}, p.ProductionMethodology)
		if err != nil {
			return writeErr("insert report product", err)
		}
	}
	return nil
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func (s *PostgresStore) ListProducts(ctx context.Context, versionID id.ReportVersionID) ([]models.ReportProduct, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT product_id, annual_production, production_apr_dec, production_methodology
		FROM erc.report_product WHERE report_version_id = $1 ORDER BY product_id
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("list report products: %w", err)
	}
	defer rows.Close()
	var out []models.ReportProduct
	for rows.Next() {
		var (
			p      models.ReportProduct
			aprDec decimal.NullDecimal
		)
		if err := rows.Scan(&p.ProductID, &p.AnnualProduction, &aprDec, &p.ProductionMethodology); err != nil {
			return nil, fmt.Errorf("scan report product: %w", err)
		}
		if aprDec.Valid {
			p.ProductionAprDec = &aprDec.Decimal
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ReplaceEmissions(ctx context.Context, versionID id.ReportVersionID, emissions []models.ReportEmission) error {
	q := s.q(ctx)
	if _, err := q.ExecContext(ctx, `DELETE FROM erc.report_emission WHERE report_version_id = $1`, versionID); err != nil {
		return writeErr("delete report emissions", err)
	}
	for _, e := range emissions {
		categories := make([]int64, len(e.CategoryIDs))
		for i, c := range e.CategoryIDs {
			categories[i] = int64(c)
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO erc.report_emission (id, report_version_id, gas_type, quantity, category_ids)
			VALUES ($1, $2, $3, $4, $5)
		`, e.ID, versionID, e.GasType, e.Quantity, pq.Array(categories))
		if err != nil {
			return writeErr("insert report emission", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListEmissions(ctx context.Context, versionID id.ReportVersionID) ([]models.ReportEmission, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, gas_type, quantity, category_ids
		FROM erc.report_emission WHERE report_version_id = $1 ORDER BY id
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("list report emissions: %w", err)
	}
	defer rows.Close()
	var out []models.ReportEmission
	for rows.Next() {
		var (
			e          models.ReportEmission
			categories pq.Int64Array
		)
		if err := rows.Scan(&e.ID, &e.GasType, &e.Quantity, &categories); err != nil {
			return nil, fmt.Errorf("scan report emission: %w", err)
		}
		e.CategoryIDs = make([]int, len(categories))
		for i, c := range categories {
			e.CategoryIDs[i] = int(c)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveAllocation replaces the version's allocation.
func (s *PostgresStore) SaveAllocation(ctx context.Context, versionID id.ReportVersionID, a *models.EmissionAllocation) error {
	if err := s.DeleteAllocation(ctx, versionID); err != nil {
		return err
	}
	q := s.q(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO erc.report_emission_allocation (report_version_id, methodology, other_methodology_description)
		VALUES ($1, $2, $3)
	`, versionID, string(a.Methodology), a.OtherDescription)
	if err != nil {
		return writeErr("insert emission allocation", err)
	}
	for _, r := range a.Allocations {
		_, err := q.ExecContext(ctx, `
			INSERT INTO erc.report_product_emission_allocation (report_version_id, product_id, emission_category_id, allocated_quantity)
			VALUES ($1, $2, $3, $4)
		`, versionID, r.ProductID, r.CategoryID, r.Quantity)
		if err != nil {
			return writeErr("insert product emission allocation", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindAllocation(ctx context.Context, versionID id.ReportVersionID) (*models.EmissionAllocation, error) {
	q := s.q(ctx)
	var (
		a           models.EmissionAllocation
		methodology string
	)
	err := q.QueryRowContext(ctx, `
		SELECT methodology, other_methodology_description
		FROM erc.report_emission_allocation WHERE report_version_id = $1
	`, versionID).Scan(&methodology, &a.OtherDescription)
	if err != nil {
		return nil, notFound(err)
	}
	a.Methodology = models.AllocationMethodology(methodology)

	rows, err := q.QueryContext(ctx, `
		SELECT product_id, emission_category_id, allocated_quantity
		FROM erc.report_product_emission_allocation WHERE report_version_id = $1
		ORDER BY emission_category_id, product_id
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("list product emission allocations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r models.ProductAllocation
		if err := rows.Scan(&r.ProductID, &r.CategoryID, &r.Quantity); err != nil {
			return nil, fmt.Errorf("scan product emission allocation: %w", err)
		}
		a.Allocations = append(a.Allocations, r)
	}
	return &a, rows.Err()
}

func (s *PostgresStore) DeleteAllocation(ctx context.Context, versionID id.ReportVersionID) error {
	q := s.q(ctx)
	if _, err := q.ExecContext(ctx, `DELETE FROM erc.report_product_emission_allocation WHERE report_version_id = $1`, versionID); err != nil {
		return writeErr("delete product emission allocations", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM erc.report_emission_allocation WHERE report_version_id = $1`, versionID); err != nil {
		return writeErr("delete emission allocation", err)
	}
	return nil
}
