// Package service resolves and registers BCIERS users.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bciers/internal/identity/models"
	"bciers/internal/platform/cache"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/sentinel"
	"bciers/pkg/platform/tx"
	"bciers/pkg/requestcontext"
)

const cacheTTL = 5 * time.Minute

// Store is the user persistence port.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	FindByGUID(ctx context.Context, guid id.UserGUID) (*models.User, error)
	UpdateRole(ctx context.Context, guid id.UserGUID, role models.AppRole) error
	ListByRoles(ctx context.Context, roles []models.AppRole) ([]*models.User, error)
}

type Service struct {
	users  Store
	tx     tx.Runner
	cache  cache.Cache
	logger *slog.Logger
}

type Option func(*Service)

func WithTx(r tx.Runner) Option {
	return func(s *Service) { s.tx = r }
}

func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(users Store, opts ...Option) *Service {
	s := &Service{users: users, tx: tx.Inline{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.NewLocal(cacheTTL)
	}
	return s
}

// RegisterInput carries the identity-provider facts for self-registration.
type RegisterInput struct {
	Provider      models.IdentityProvider
	BusinessGUID  *uuid.UUID
	FirstName     string
	LastName      string
	Email         string
	PositionTitle string
	PhoneNumber   string
}

// GetByGUID returns a user, consulting the lookup cache first.
func (s *Service) GetByGUID(ctx context.Context, guid id.UserGUID) (*models.User, error) {
	var cached models.User
	if ok, err := s.cache.Get(ctx, cacheKey(guid), &cached); err == nil && ok {
		return &cached, nil
	} else if err != nil {
		s.logger.WarnContext(ctx, "user cache read failed", "error", err)
	}

	var user *models.User
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.users.FindByGUID(txCtx, guid)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, wrapUserErr(err)
	}
	if err := s.cache.Set(ctx, cacheKey(guid), user, cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "user cache write failed", "error", err)
	}
	return user, nil
}

// Register creates the current user from identity-provider data.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	guid := requestcontext.UserGUID(ctx)
	user, err := models.NewUser(guid, in.Provider, in.FirstName, in.LastName, in.Email,
		in.PositionTitle, in.PhoneNumber, in.BusinessGUID, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Recode(err, dErrors.CodeInvariantViolation, dErrors.CodeValidation)
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.users.Create(txCtx, user)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "user is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register user")
	}
	s.logger.InfoContext(ctx, "user registered",
		"event", "user_registered",
		"log_type", "audit",
		"user_guid", guid.String(),
		"app_role", string(user.AppRole),
	)
	return user, nil
}

// ChangeRole assigns a CAS role. Only CAS admins may do this.
func (s *Service) ChangeRole(ctx context.Context, guid id.UserGUID, role models.AppRole) (*models.User, error) {
	if models.AppRole(requestcontext.AppRole(ctx)) != models.RoleCasAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "only CAS admins can change roles")
	}
	var user *models.User
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.users.FindByGUID(txCtx, guid)
		if err != nil {
			return err
		}
		if err := u.CanAssignRole(role); err != nil {
			return dErrors.Recode(err, dErrors.CodeInvariantViolation, dErrors.CodeValidation)
		}
		if err := s.users.UpdateRole(txCtx, guid, role); err != nil {
			return err
		}
		u.AppRole = role
		user = u
		return nil
	})
	if err != nil {
		return nil, wrapUserErr(err)
	}
	if err := s.cache.Delete(ctx, cacheKey(guid)); err != nil {
		s.logger.WarnContext(ctx, "user cache invalidation failed", "error", err)
	}
	s.logger.InfoContext(ctx, "user role changed",
		"event", "user_role_changed",
		"log_type", "audit",
		"user_guid", guid.String(),
		"app_role", string(role),
		"actor_guid", requestcontext.UserGUID(ctx).String(),
	)
	return user, nil
}

// ListByRoles returns users holding any of roles, oldest first.
func (s *Service) ListByRoles(ctx context.Context, roles ...models.AppRole) ([]*models.User, error) {
	var users []*models.User
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		users, err = s.users.ListByRoles(txCtx, roles)
		return err
	})
	if err != nil {
		return nil, wrapUserErr(err)
	}
	return users, nil
}

func cacheKey(guid id.UserGUID) string {
	return "user:" + guid.String()
}

func wrapUserErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "user lookup failed")
}
