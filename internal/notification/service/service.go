// Package service renders templated emails and delivers them through CHES in
// the background, keeping a delivery record per message.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bciers/internal/integrations/ches"
	"bciers/internal/notification/models"
	"bciers/internal/platform/tasks"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/sentinel"
	strs "bciers/pkg/platform/strings"
	"bciers/pkg/requestcontext"
)

// statusBatch caps how many sent emails one status refresh looks at.
const statusBatch = 100

type Store interface {
	FindTemplate(ctx context.Context, name string) (*models.Template, error)
	SaveTemplate(ctx context.Context, t *models.Template) error
	CreateEmail(ctx context.Context, e *models.Email) error
	UpdateEmail(ctx context.Context, e *models.Email) error
	ListEmailsByStatus(ctx context.Context, status models.EmailStatus, limit int) ([]models.Email, error)
}

// Sender is the CHES port.
type Sender interface {
	SendEmail(ctx context.Context, e ches.Email) (string, []string, error)
	Status(ctx context.Context, msgID string) (string, error)
}

type Metrics struct {
	Emails *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Emails: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bciers_notification_emails_total",
			Help: "Emails handed to CHES, by template and outcome",
		}, []string{"template", "outcome"}),
	}
}

func (m *Metrics) inc(template, outcome string) {
	if m == nil {
		return
	}
	m.Emails.WithLabelValues(template, outcome).Inc()
}

type Service struct {
	store   Store
	sender  Sender
	tasks   tasks.Submitter
	policy  tasks.RetryPolicy
	metrics *Metrics
	logger  *slog.Logger
}

type Option func(*Service)

// WithTasks runs deliveries on s instead of inline.
func WithTasks(s tasks.Submitter) Option { return func(svc *Service) { svc.tasks = s } }

// WithRetryPolicy tunes the retries around each CHES call.
func WithRetryPolicy(p tasks.RetryPolicy) Option { return func(s *Service) { s.policy = p } }

func WithMetrics(m *Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(logger *slog.Logger) Option { return func(s *Service) { s.logger = logger } }

func New(store Store, sender Sender, opts ...Option) *Service {
	s := &Service{
		store:  store,
		sender: sender,
		tasks:  tasks.Inline{},
		policy: tasks.DefaultRetryPolicy,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Template returns the stored template, or the built-in one of that name.
func (s *Service) Template(ctx context.Context, name string) (*models.Template, error) {
	t, err := s.store.FindTemplate(ctx, name)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	if d, ok := defaults[name]; ok {
		return &d, nil
	}
	return nil, dErrors.Newf(dErrors.CodeNotFound, "email template %s not found", name)
}

// Render produces the subject and HTML body of a template.
func (s *Service) Render(ctx context.Context, name string, data map[string]any) (string, string, error) {
	t, err := s.Template(ctx, name)
	if err != nil {
		return "", "", err
	}
	return render(t, data)
}

// SaveTemplate stores an override after checking that it parses.
func (s *Service) SaveTemplate(ctx context.Context, t *models.Template) error {
	if t.Name == "" || t.Subject == "" || t.Body == "" {
		return dErrors.New(dErrors.CodeValidation, "email templates need a name, subject and body")
	}
	if _, _, err := render(t, map[string]any{}); dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.Recode(err, dErrors.CodeInvariantViolation, dErrors.CodeValidation)
	}
	t.UpdatedAt = requestcontext.Now(ctx)
	return s.store.SaveTemplate(ctx, t)
}

// Send renders the template now and queues delivery. A rendering error is
// returned to the caller; delivery failures only show in the email record.
func (s *Service) Send(ctx context.Context, name string, recipients []string, data map[string]any) error {
	recipients = strs.DedupeAndTrimLower(recipients)
	if len(recipients) == 0 {
		return dErrors.New(dErrors.CodeValidation, "an email needs at least one recipient")
	}
	subject, body, err := s.Render(ctx, name, data)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	email := &models.Email{
		ID:           uuid.New(),
		TemplateName: name,
		Recipients:   recipients,
		Status:       models.EmailQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateEmail(ctx, email); err != nil {
		return err
	}
	msg := ches.Email{To: recipients, Subject: subject, BodyHTML: body, Tag: name}
	return s.tasks.Submit(ctx, "send_email", func(ctx context.Context) error {
		return s.deliver(ctx, email, msg)
	})
}

func (s *Service) deliver(ctx context.Context, email *models.Email, msg ches.Email) error {
	var (
		txID   string
		msgIDs []string
	)
	err := tasks.RetryWithPolicy(ctx, s.policy, "ches_send_email", func(ctx context.Context) error {
		var err error
		txID, msgIDs, err = s.sender.SendEmail(ctx, msg)
		return err
	})
	now := requestcontext.Now(ctx)
	if err != nil {
		s.metrics.inc(email.TemplateName, "failed")
		email.Status = models.EmailFailed
		email.UpdatedAt = now
		if uerr := s.store.UpdateEmail(ctx, email); uerr != nil {
			s.logger.ErrorContext(ctx, "failed to record email failure", "email_id", email.ID.String(), "error", uerr)
		}
		return tasks.Permanent(err)
	}
	s.metrics.inc(email.TemplateName, "sent")
	email.Sent(txID, msgIDs, now)
	if err := s.store.UpdateEmail(ctx, email); err != nil {
		return tasks.Permanent(err)
	}
	s.logger.InfoContext(ctx, "email sent",
		"email_id", email.ID.String(),
		"template", email.TemplateName,
		"ches_tx_id", txID,
	)
	return nil
}

// RefreshStatuses asks CHES about every email still in flight and records
// the ones that completed or failed.
func (s *Service) RefreshStatuses(ctx context.Context) error {
	emails, err := s.store.ListEmailsByStatus(ctx, models.EmailSent, statusBatch)
	if err != nil {
		return err
	}
	var errs []error
	for i := range emails {
		e := &emails[i]
		states := make([]string, 0, len(e.MessageIDs))
		for _, msgID := range e.MessageIDs {
			st, err := s.sender.Status(ctx, msgID)
			if err != nil {
				errs = append(errs, err)
				states = nil
				break
			}
			states = append(states, st)
		}
		if !e.Resolve(states, requestcontext.Now(ctx)) {
			continue
		}
		if err := s.store.UpdateEmail(ctx, e); err != nil {
			errs = append(errs, err)
			continue
		}
		s.metrics.inc(e.TemplateName, string(e.Status))
	}
	if len(errs) > 0 {
		return dErrors.Wrap(errors.Join(errs...), dErrors.CodeUnavailable, "email status refresh incomplete")
	}
	return nil
}
