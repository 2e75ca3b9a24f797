// Package service turns submitted emission reports into compliance outcomes
// and keeps obligations, penalties and earned credits in step with the
// eLicensing billing system and the BC Carbon Registry.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ReportSource,OperationReader,OperatorReader,Billing,Registry

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"bciers/internal/compliance/calculator"
	"bciers/internal/compliance/metrics"
	"bciers/internal/compliance/models"
	identity "bciers/internal/identity/models"
	"bciers/internal/integrations/bccr"
	"bciers/internal/integrations/elicensing"
	"bciers/internal/platform/tasks"
	registration "bciers/internal/registration/models"
	reporting "bciers/internal/reporting/models"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/audit"
	"bciers/pkg/platform/sentinel"
	"bciers/pkg/platform/tx"
	"bciers/pkg/requestcontext"
)

// Store is the compliance persistence port.
type Store interface {
	CreateVersion(ctx context.Context, v *models.ComplianceReportVersion) error
	FindVersion(ctx context.Context, versionID id.ComplianceReportVersionID) (*models.ComplianceReportVersion, error)
	FindVersionByReportVersion(ctx context.Context, reportVersionID id.ReportVersionID) (*models.ComplianceReportVersion, error)
	LatestVersion(ctx context.Context, reportID id.ReportID) (*models.ComplianceReportVersion, error)
	ListVersions(ctx context.Context, operationID id.OperationID) ([]*models.ComplianceReportVersion, error)
	UpdateVersionStatus(ctx context.Context, v *models.ComplianceReportVersion) error

	CreateObligation(ctx context.Context, o *models.Obligation) error
	FindObligation(ctx context.Context, obligationID id.ObligationID) (*models.Obligation, error)
	FindObligationForUpdate(ctx context.Context, obligationID id.ObligationID) (*models.Obligation, error)
	FindObligationByVersion(ctx context.Context, versionID id.ComplianceReportVersionID) (*models.Obligation, error)
	UpdateObligation(ctx context.Context, o *models.Obligation) error
	ListOpenObligations(ctx context.Context) ([]id.ObligationID, error)

	FindClient(ctx context.Context, operatorID id.OperatorID) (*models.ClientOperator, error)
	SaveClient(ctx context.Context, c *models.ClientOperator) error
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	FindInvoice(ctx context.Context, invoiceID id.InvoiceID) (*models.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *models.Invoice) error
	UpsertPayments(ctx context.Context, payments []models.Payment) error
	UpsertAdjustments(ctx context.Context, adjustments []models.Adjustment) error
	ListPayments(ctx context.Context, invoiceID id.InvoiceID) ([]models.Payment, error)
	ListAdjustments(ctx context.Context, invoiceID id.InvoiceID) ([]models.Adjustment, error)

	FindPenalty(ctx context.Context, obligationID id.ObligationID) (*models.Penalty, error)
	SavePenalty(ctx context.Context, p *models.Penalty) error

	CreateEarnedCredit(ctx context.Context, c *models.EarnedCredit) error
	FindEarnedCredit(ctx context.Context, creditID id.EarnedCreditID) (*models.EarnedCredit, error)
	FindEarnedCreditForUpdate(ctx context.Context, creditID id.EarnedCreditID) (*models.EarnedCredit, error)
	FindEarnedCreditByVersion(ctx context.Context, versionID id.ComplianceReportVersionID) (*models.EarnedCredit, error)
	UpdateEarnedCredit(ctx context.Context, c *models.EarnedCredit) error

	CreateUnitApplication(ctx context.Context, a *models.UnitApplication) error
	UpdateUnitApplication(ctx context.Context, a *models.UnitApplication) error
	DeleteUnitApplication(ctx context.Context, appID id.UnitApplicationID) error
	ListUnitApplications(ctx context.Context, obligationID id.ObligationID) ([]models.UnitApplication, error)
}

// ReportSource assembles the report data of one version.
type ReportSource interface {
	Submission(ctx context.Context, versionID id.ReportVersionID) (*reporting.Submission, error)
}

// OperationReader resolves operations and enforces operator membership.
type OperationReader interface {
	GetOperation(ctx context.Context, operationID id.OperationID) (*registration.Operation, error)
}

type OperatorReader interface {
	GetOperator(ctx context.Context, operatorID id.OperatorID) (*registration.Operator, error)
}

// Billing is the eLicensing client.
type Billing interface {
	CreateClient(ctx context.Context, in elicensing.ClientRequest) (*elicensing.ClientResponse, error)
	CreateFees(ctx context.Context, clientObjectID string, fees []elicensing.Fee) ([]elicensing.FeeResult, error)
	CreateInvoice(ctx context.Context, clientObjectID string, in elicensing.InvoiceRequest) (string, error)
	QueryInvoice(ctx context.Context, clientObjectID, invoiceNumber string) (*elicensing.Invoice, error)
	CreateAdjustment(ctx context.Context, clientObjectID string, adj elicensing.AdjustmentRequest) (string, error)
}

// Registry is the BC Carbon Registry client.
type Registry interface {
	GetAccount(ctx context.Context, accountID string) (*bccr.Account, error)
	CreateComplianceAccount(ctx context.Context, in bccr.ComplianceAccountRequest) (string, error)
	TransferUnits(ctx context.Context, in bccr.Transfer) (string, error)
	IssueCredits(ctx context.Context, in bccr.Issuance) (string, error)
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
	store      Store
	reports    ReportSource
	operations OperationReader
	operators  OperatorReader
	billing    Billing
	registry   Registry
	tasks      tasks.Submitter
	users      UserDirectory
	notifier   Notifier
	tx         tx.Runner
	audit      AuditPublisher
	rules      calculator.Rules
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
}

type Option func(*Service)

func WithTx(r tx.Runner) Option                  { return func(s *Service) { s.tx = r } }
func WithAuditPublisher(p AuditPublisher) Option { return func(s *Service) { s.audit = p } }
func WithRules(r calculator.Rules) Option        { return func(s *Service) { s.rules = r } }
func WithMetrics(m *metrics.Metrics) Option      { return func(s *Service) { s.metrics = m } }
func WithLogger(l *slog.Logger) Option           { return func(s *Service) { s.logger = l } }
func WithNotifier(n Notifier, users UserDirectory) Option {
	return func(s *Service) {
		s.notifier = n
		s.users = users
	}
}

// WithTasks sets where invoice creation is queued after a submission
// commits. The default runs it inline.
func WithTasks(t tasks.Submitter) Option { return func(s *Service) { s.tasks = t } }

func New(store Store, reports ReportSource, operations OperationReader, operators OperatorReader, billing Billing, registry Registry, opts ...Option) *Service {
	s := &Service{
		store:      store,
		reports:    reports,
		operations: operations,
		operators:  operators,
		billing:    billing,
		registry:   registry,
		tasks:      tasks.Inline{},
		tx:         tx.Inline{},
		rules:      calculator.DefaultRules(),
		tracer:     otel.Tracer("bciers/compliance"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type caller struct {
	guid id.UserGUID
	role identity.AppRole
}

func callerFrom(ctx context.Context) caller {
	return caller{guid: requestcontext.UserGUID(ctx), role: identity.AppRole(requestcontext.AppRole(ctx))}
}

func (c caller) isSystem() bool { return c.guid.IsNil() }

// requireIndustry allows industry users only.
func requireIndustry(ctx context.Context) (caller, error) {
	c := callerFrom(ctx)
	if !c.isSystem() && c.role.IsIndustryUser() {
		return c, nil
	}
	return c, dErrors.New(dErrors.CodeForbidden, "only industry users can perform this action")
}

// requireStaff allows CAS staff other than view-only users, and the system.
func requireStaff(ctx context.Context) (caller, error) {
	c := callerFrom(ctx)
	if c.isSystem() {
		return c, nil
	}
	switch c.role {
	case identity.RoleCasDirector, identity.RoleCasAdmin, identity.RoleCasAnalyst:
		return c, nil
	}
	return c, dErrors.New(dErrors.CodeForbidden, "role not permitted for this operation")
}

// visible loads a compliance version and checks the caller may see its
// operation.
func (s *Service) visible(ctx context.Context, versionID id.ComplianceReportVersionID) (*models.ComplianceReportVersion, *registration.Operation, error) {
	v, err := s.store.FindVersion(ctx, versionID)
	if err != nil {
		return nil, nil, translate(err, "compliance report version")
	}
	op, err := s.operations.GetOperation(ctx, v.OperationID)
	if err != nil {
		return nil, nil, err
	}
	return v, op, nil
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

// notify queues an email. Failures are logged, not returned.
func (s *Service) notify(ctx context.Context, template string, guid *id.UserGUID, data map[string]any) {
	if s.notifier == nil || s.users == nil || guid == nil {
		return
	}
	u, err := s.users.GetByGUID(ctx, *guid)
	if err != nil || u.Email == "" {
		s.logger.WarnContext(ctx, "failed to resolve user for email", "user_guid", guid.String(), "error", err)
		return
	}
	data["first_name"] = u.FirstName
	if err := s.notifier.Send(ctx, template, []string{u.Email}, data); err != nil {
		s.logger.WarnContext(ctx, "failed to queue email",
			"template", template,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", entity)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Newf(dErrors.CodeConflict, "%s already exists", entity)
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Newf(dErrors.CodeInvalidState, "%s cannot be changed", entity)
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return dErrors.Recode(err, dErrors.CodeInvariantViolation, dErrors.CodeValidation)
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+entity)
}

func notFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
