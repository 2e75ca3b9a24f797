package store

import (
	"context"
	"fmt"

	"bciers/internal/registration/models"
	id "bciers/pkg/domain"
)

const operatorColumns = `id, legal_name, trade_name, cra_business_number, bc_corporate_registry_number,
	business_structure, status, street_address, municipality, province, postal_code, created_by, created_at, updated_at`

func (s *PostgresStore) CreateOperator(ctx context.Context, o *models.Operator) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.operator (`+operatorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, o.ID, o.LegalName, o.TradeName, o.CRABusinessNumber, o.BCCorporateRegistryNumber,
		o.BusinessStructure, string(o.Status), o.Address.StreetAddress, o.Address.Municipality,
		o.Address.Province, o.Address.PostalCode, o.CreatedBy, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return writeErr("insert operator", err)
	}
	return nil
}

func (s *PostgresStore) FindOperator(ctx context.Context, operatorID id.OperatorID) (*models.Operator, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+operatorColumns+` FROM erc.operator WHERE id = $1`, operatorID)
	o, err := scanOperator(row)
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (s *PostgresStore) UpdateOperator(ctx context.Context, o *models.Operator) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE erc.operator
		SET legal_name = $2, trade_name = $3, business_structure = $4, status = $5,
			street_address = $6, municipality = $7, province = $8, postal_code = $9, updated_at = $10
		WHERE id = $1
	`, o.ID, o.LegalName, o.TradeName, o.BusinessStructure, string(o.Status),
		o.Address.StreetAddress, o.Address.Municipality, o.Address.Province, o.Address.PostalCode, o.UpdatedAt)
	if err != nil {
		return writeErr("update operator", err)
	}
	return checkAffected(res)
}

func scanOperator(row scanner) (*models.Operator, error) {
	var (
		o      models.Operator
		status string
	)
	if err := row.Scan(&o.ID, &o.LegalName, &o.TradeName, &o.CRABusinessNumber, &o.BCCorporateRegistryNumber,
		&o.BusinessStructure, &status, &o.Address.StreetAddress, &o.Address.Municipality,
		&o.Address.Province, &o.Address.PostalCode, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = models.OperatorStatus(status)
	return &o, nil
}

const userOperatorColumns = `id, user_guid, operator_id, role, status, verified_by, verified_at, created_at`

func (s *PostgresStore) CreateUserOperator(ctx context.Context, uo *models.UserOperator) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.user_operator (`+userOperatorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uo.ID, uo.UserGUID, uo.OperatorID, string(uo.Role), string(uo.Status), uo.VerifiedBy, uo.VerifiedAt, uo.CreatedAt)
	if err != nil {
		return writeErr("insert user operator", err)
	}
	return nil
}

func (s *PostgresStore) FindUserOperator(ctx context.Context, uoID id.UserOperatorID) (*models.UserOperator, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+userOperatorColumns+` FROM erc.user_operator WHERE id = $1`, uoID)
	uo, err := scanUserOperator(row)
	if err != nil {
		return nil, notFound(err)
	}
	return uo, nil
}

func (s *PostgresStore) FindUserOperatorFor(ctx context.Context, user id.UserGUID, operatorID id.OperatorID) (*models.UserOperator, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+userOperatorColumns+` FROM erc.user_operator WHERE user_guid = $1 AND operator_id = $2`, user, operatorID)
	uo, err := scanUserOperator(row)
	if err != nil {
		return nil, notFound(err)
	}
	return uo, nil
}

func (s *PostgresStore) UpdateUserOperator(ctx context.Context, uo *models.UserOperator) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE erc.user_operator SET role = $2, status = $3, verified_by = $4, verified_at = $5
		WHERE id = $1
	`, uo.ID, string(uo.Role), string(uo.Status), uo.VerifiedBy, uo.VerifiedAt)
	if err != nil {
		return writeErr("update user operator", err)
	}
	return checkAffected(res)
}

func (s *PostgresStore) ListUserOperators(ctx context.Context, operatorID id.OperatorID) ([]*models.UserOperator, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+userOperatorColumns+` FROM erc.user_operator WHERE operator_id = $1 ORDER BY created_at`, operatorID)
	if err != nil {
		return nil, fmt.Errorf("list user operators: %w", err)
	}
	defer rows.Close()
	var out []*models.UserOperator
	for rows.Next() {
		uo, err := scanUserOperator(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user operator: %w", err)
		}
		out = append(out, uo)
	}
	return out, rows.Err()
}

// HasApprovedAdmin reports whether operatorID has at least one approved
// admin. It calls a definer function so it sees rows the caller cannot.
func (s *PostgresStore) HasApprovedAdmin(ctx context.Context, operatorID id.OperatorID) (bool, error) {
	var ok bool
	err := s.q(ctx).QueryRowContext(ctx, `SELECT erc.operator_has_admin($1)`, operatorID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check operator admin: %w", err)
	}
	return ok, nil
}

func scanUserOperator(row scanner) (*models.UserOperator, error) {
	var (
		uo           models.UserOperator
		role, status string
	)
	if err := row.Scan(&uo.ID, &uo.UserGUID, &uo.OperatorID, &role, &status, &uo.VerifiedBy, &uo.VerifiedAt, &uo.CreatedAt); err != nil {
		return nil, err
	}
	uo.Role = models.UserOperatorRole(role)
	uo.Status = models.UserOperatorStatus(status)
	return &uo, nil
}
