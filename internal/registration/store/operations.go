package store

import (
	"context"
	"fmt"

	"bciers/internal/registration/models"
	id "bciers/pkg/domain"
)

const operationColumns = `id, operator_id, name, type, naics_code, registration_purpose, status,
	bcghg_id, boro_id, point_of_contact_id, submitted_at, created_at, updated_at`

func (s *PostgresStore) CreateOperation(ctx context.Context, o *models.Operation) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.operation (`+operationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, o.ID, o.OperatorID, o.Name, string(o.Type), o.NAICSCode, string(o.RegistrationPurpose), string(o.Status),
		o.BCGHGID, o.BOROID, o.PointOfContactID, o.SubmittedAt, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return writeErr("insert operation", err)
	}
	return nil
}

func (s *PostgresStore) FindOperation(ctx context.Context, operationID id.OperationID) (*models.Operation, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+operationColumns+` FROM erc.operation WHERE id = $1`, operationID)
	o, err := scanOperation(row)
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

// FindOperationForUpdate locks the operation row for the rest of the transaction.
func (s *PostgresStore) FindOperationForUpdate(ctx context.Context, operationID id.OperationID) (*models.Operation, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+operationColumns+` FROM erc.operation WHERE id = $1 FOR UPDATE`, operationID)
	o, err := scanOperation(row)
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (s *PostgresStore) UpdateOperation(ctx context.Context, o *models.Operation) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE erc.operation
		SET name = $2, naics_code = $3, registration_purpose = $4, status = $5, bcghg_id = $6,
			boro_id = $7, point_of_contact_id = $8, submitted_at = $9, updated_at = $10
		WHERE id = $1
	`, o.ID, o.Name, o.NAICSCode, string(o.RegistrationPurpose), string(o.Status), o.BCGHGID,
		o.BOROID, o.PointOfContactID, o.SubmittedAt, o.UpdatedAt)
	if err != nil {
		return writeErr("update operation", err)
	}
	return checkAffected(res)
}

func (s *PostgresStore) ListOperations(ctx context.Context, operatorID id.OperatorID) ([]*models.Operation, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+operationColumns+` FROM erc.operation WHERE operator_id = $1 ORDER BY created_at`, operatorID)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()
	var out []*models.Operation
	for rows.Next() {
		o, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOperation(row scanner) (*models.Operation, error) {
	var (
		o                      models.Operation
		opType, purpose, state string
	)
	if err := row.Scan(&o.ID, &o.OperatorID, &o.Name, &opType, &o.NAICSCode, &purpose, &state,
		&o.BCGHGID, &o.BOROID, &o.PointOfContactID, &o.SubmittedAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Type = models.OperationType(opType)
	o.RegistrationPurpose = models.RegistrationPurpose(purpose)
	o.Status = models.OperationStatus(state)
	return &o, nil
}

const facilityColumns = `id, operation_id, name, type, latitude, longitude, bcghg_id, created_at`

func (s *PostgresStore) CreateFacility(ctx context.Context, f *models.Facility) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.facility (`+facilityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, f.ID, f.OperationID, f.Name, string(f.Type), f.Latitude, f.Longitude, f.BCGHGID, f.CreatedAt)
	if err != nil {
		return writeErr("insert facility", err)
	}
	return nil
}

func (s *PostgresStore) FindFacility(ctx context.Context, facilityID id.FacilityID) (*models.Facility, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+facilityColumns+` FROM erc.facility WHERE id = $1`, facilityID)
	f, err := scanFacility(row)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

func (s *PostgresStore) UpdateFacilityBCGHG(ctx context.Context, facilityID id.FacilityID, bcghg string) error {
	res, err := s.q(ctx).ExecContext(ctx, `UPDATE erc.facility SET bcghg_id = $2 WHERE id = $1`, facilityID, bcghg)
	if err != nil {
		return writeErr("update facility", err)
	}
	return checkAffected(res)
}

func (s *PostgresStore) ListFacilities(ctx context.Context, operationID id.OperationID) ([]*models.Facility, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+facilityColumns+` FROM erc.facility WHERE operation_id = $1 ORDER BY created_at`, operationID)
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	defer rows.Close()
	var out []*models.Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, fmt.Errorf("scan facility: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanFacility(row scanner) (*models.Facility, error) {
	var (
		f     models.Facility
		fType string
	)
	if err := row.Scan(&f.ID, &f.OperationID, &f.Name, &fType, &f.Latitude, &f.Longitude, &f.BCGHGID, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Type = models.FacilityType(fType)
	return &f, nil
}

const contactColumns = `id, operator_id, first_name, last_name, email, phone_number, position_title, business_role, created_at`

func (s *PostgresStore) CreateContact(ctx context.Context, c *models.Contact) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO erc.contact (`+contactColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.OperatorID, c.FirstName, c.LastName, c.Email, c.PhoneNumber, c.PositionTitle, c.BusinessRole, c.CreatedAt)
	if err != nil {
		return writeErr("insert contact", err)
	}
	return nil
}

func (s *PostgresStore) FindContact(ctx context.Context, contactID id.ContactID) (*models.Contact, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+contactColumns+` FROM erc.contact WHERE id = $1`, contactID)
	c, err := scanContact(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, operatorID id.OperatorID) ([]*models.Contact, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+contactColumns+` FROM erc.contact WHERE operator_id = $1 ORDER BY last_name, first_name`, operatorID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()
	var out []*models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanContact(row scanner) (*models.Contact, error) {
	var c models.Contact
	if err := row.Scan(&c.ID, &c.OperatorID, &c.FirstName, &c.LastName, &c.Email,
		&c.PhoneNumber, &c.PositionTitle, &c.BusinessRole, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
