// Package service implements operator, access-request, operation and
// facility registration.
package service

import (
	"context"
	"errors"
	"log/slog"

	identity "bciers/internal/identity/models"
	"bciers/internal/registration/metrics"
	"bciers/internal/registration/models"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/audit"
	"bciers/pkg/platform/sentinel"
	"bciers/pkg/platform/tx"
	"bciers/pkg/requestcontext"
)

// Store is the registration persistence port.
type Store interface {
	NextSequence(ctx context.Context, scope string) (int, error)

	CreateOperator(ctx context.Context, o *models.Operator) error
	FindOperator(ctx context.Context, operatorID id.OperatorID) (*models.Operator, error)
	UpdateOperator(ctx context.Context, o *models.Operator) error

	CreateUserOperator(ctx context.Context, uo *models.UserOperator) error
	FindUserOperator(ctx context.Context, uoID id.UserOperatorID) (*models.UserOperator, error)
	FindUserOperatorFor(ctx context.Context, user id.UserGUID, operatorID id.OperatorID) (*models.UserOperator, error)
	UpdateUserOperator(ctx context.Context, uo *models.UserOperator) error
	ListUserOperators(ctx context.Context, operatorID id.OperatorID) ([]*models.UserOperator, error)
	HasApprovedAdmin(ctx context.Context, operatorID id.OperatorID) (bool, error)

	CreateOperation(ctx context.Context, o *models.Operation) error
	FindOperation(ctx context.Context, operationID id.OperationID) (*models.Operation, error)
	FindOperationForUpdate(ctx context.Context, operationID id.OperationID) (*models.Operation, error)
	UpdateOperation(ctx context.Context, o *models.Operation) error
	ListOperations(ctx context.Context, operatorID id.OperatorID) ([]*models.Operation, error)

	CreateFacility(ctx context.Context, f *models.Facility) error
	FindFacility(ctx context.Context, facilityID id.FacilityID) (*models.Facility, error)
	UpdateFacilityBCGHG(ctx context.Context, facilityID id.FacilityID, bcghg string) error
	ListFacilities(ctx context.Context, operationID id.OperationID) ([]*models.Facility, error)

	CreateContact(ctx context.Context, c *models.Contact) error
	FindContact(ctx context.Context, contactID id.ContactID) (*models.Contact, error)
	ListContacts(ctx context.Context, operatorID id.OperatorID) ([]*models.Contact, error)
}

// UserDirectory resolves users for notifications.
type UserDirectory interface {
	GetByGUID(ctx context.Context, guid id.UserGUID) (*identity.User, error)
}

// Notifier queues templated emails.
type Notifier interface {
	Send(ctx context.Context, template string, recipients []string, data map[string]any) error
}

// AuditPublisher records regulatory events inside the current transaction.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store    Store
	users    UserDirectory
	tx       tx.Runner
	notifier Notifier
	audit    AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithTx(r tx.Runner) Option      { return func(s *Service) { s.tx = r } }
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithLogger(l *slog.Logger) Option      { return func(s *Service) { s.logger = l } }

func New(store Store, users UserDirectory, opts ...Option) *Service {
	s := &Service{store: store, users: users, tx: tx.Inline{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// caller is the authenticated principal of a request. A nil GUID means a
// background task or CLI command acting as the system.
type caller struct {
	guid id.UserGUID
	role identity.AppRole
}

func callerFrom(ctx context.Context) caller {
	return caller{guid: requestcontext.UserGUID(ctx), role: identity.AppRole(requestcontext.AppRole(ctx))}
}

func (c caller) isSystem() bool { return c.guid.IsNil() }

func requireRole(ctx context.Context, roles ...identity.AppRole) (caller, error) {
	c := callerFrom(ctx)
	if c.isSystem() {
		return c, nil
	}
	for _, r := range roles {
		if c.role == r {
			return c, nil
		}
	}
	return c, dErrors.New(dErrors.CodeForbidden, "role not permitted for this operation")
}

// requireMember checks that the caller belongs to operatorID. CAS staff pass
// when casAllowed is set.
func (s *Service) requireMember(ctx context.Context, operatorID id.OperatorID, casAllowed bool) error {
	c := callerFrom(ctx)
	switch {
	case c.isSystem():
		return nil
	case c.role.IsCasUser():
		if casAllowed {
			return nil
		}
		return dErrors.New(dErrors.CodeForbidden, "CAS users cannot change operator data")
	case c.role.IsIndustryUser():
		uo, err := s.store.FindUserOperatorFor(ctx, c.guid, operatorID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeForbidden, "user is not a member of this operator")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check operator membership")
		}
		if uo.Status != models.AccessApproved {
			return dErrors.New(dErrors.CodeForbidden, "user is not a member of this operator")
		}
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "role not permitted for this operation")
}

func (s *Service) emit(ctx context.Context, action audit.Action, aggregateID string, details map[string]string) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.Emit(ctx, audit.Event{Action: action, AggregateID: aggregateID, Details: details}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

// notify queues an email after commit. Failures are logged, not returned:
// the registration change already happened.
func (s *Service) notify(ctx context.Context, template string, recipients []string, data map[string]any) {
	if s.notifier == nil || len(recipients) == 0 {
		return
	}
	if err := s.notifier.Send(ctx, template, recipients, data); err != nil {
		s.logger.WarnContext(ctx, "failed to queue email",
			"template", template,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func (s *Service) userEmail(ctx context.Context, guid id.UserGUID) (string, string) {
	if s.users == nil {
		return "", ""
	}
	u, err := s.users.GetByGUID(ctx, guid)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to resolve user for email", "user_guid", guid.String(), "error", err)
		return "", ""
	}
	return u.Email, u.FirstName
}

func recipients(emails ...string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// translate maps store sentinels and model invariants onto client errors.
func translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", entity)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Newf(dErrors.CodeConflict, "%s already exists", entity)
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return dErrors.Recode(err, dErrors.CodeInvariantViolation, dErrors.CodeValidation)
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+entity)
}
