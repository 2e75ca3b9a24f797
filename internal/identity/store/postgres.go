package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"bciers/internal/identity/models"
	"bciers/internal/platform/database"
	id "bciers/pkg/domain"
	"bciers/pkg/platform/sentinel"
	"bciers/pkg/platform/tx"
)

// PostgresStore persists users in erc.app_user.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `user_guid, business_guid, first_name, last_name, email, position_title, phone_number, app_role, created_at`

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	_, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO erc.app_user (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.GUID, u.BusinessGUID, u.FirstName, u.LastName, u.Email, u.PositionTitle, u.PhoneNumber, string(u.AppRole), u.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert user: %w", database.Translate(err))
	}
	return nil
}

func (s *PostgresStore) FindByGUID(ctx context.Context, guid id.UserGUID) (*models.User, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx, `SELECT `+userColumns+` FROM erc.app_user WHERE user_guid = $1`, guid)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateRole(ctx context.Context, guid id.UserGUID, role models.AppRole) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `UPDATE erc.app_user SET app_role = $2 WHERE user_guid = $1`, guid, string(role))
	if err != nil {
		return fmt.Errorf("update user role: %w", database.Translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByRoles(ctx context.Context, roles []models.AppRole) ([]*models.User, error) {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx,
		`SELECT `+userColumns+` FROM erc.app_user WHERE app_role = ANY($1) ORDER BY created_at`, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()
	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	if err := row.Scan(&u.GUID, &u.BusinessGUID, &u.FirstName, &u.LastName, &u.Email,
		&u.PositionTitle, &u.PhoneNumber, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.AppRole = models.AppRole(role)
	return &u, nil
}
