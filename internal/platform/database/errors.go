package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	dErrors "bciers/pkg/domain-errors"
)

// PostgreSQL SQLSTATE codes the service maps onto domain codes.
const (
	pgUniqueViolation       = "23505"
	pgForeignKeyViolation   = "23503"
	pgCheckViolation        = "23514"
	pgNotNullViolation      = "23502"
	pgInsufficientPrivilege = "42501"
	pgRaiseException        = "P0001"
)

// Translate maps PostgreSQL errors onto domain error codes. Errors that are
// not PostgreSQL errors are returned unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return dErrors.Wrap(err, dErrors.CodeConflict, conflictMessage(pgErr))
	case pgForeignKeyViolation:
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "referenced record does not exist")
	case pgCheckViolation, pgNotNullViolation:
		return dErrors.Wrap(err, dErrors.CodeValidation, "record violates a data constraint")
	case pgInsufficientPrivilege:
		return dErrors.Wrap(err, dErrors.CodeForbidden, "not permitted to access this record")
	case pgRaiseException:
		if strings.Contains(strings.ToLower(pgErr.Message), "immutable") {
			return dErrors.Wrap(err, dErrors.CodeInvalidState, pgErr.Message)
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func conflictMessage(pgErr *pgconn.PgError) string {
	if pgErr.ConstraintName != "" {
		return "duplicate value violates " + pgErr.ConstraintName
	}
	return "duplicate record"
}
