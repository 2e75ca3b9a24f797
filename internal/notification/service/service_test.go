package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bciers/internal/integrations/ches"
	"bciers/internal/notification/models"
	"bciers/internal/notification/store"
	"bciers/internal/platform/tasks"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/requestcontext"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []ches.Email
	attempts int
	err      error
	states   map[string]string
}

func (f *fakeSender) SendEmail(_ context.Context, e ches.Email) (string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.err != nil {
		return "", nil, f.err
	}
	f.sent = append(f.sent, e)
	ids := make([]string, len(e.To))
	for i, to := range e.To {
		ids[i] = "msg-" + to
	}
	return "tx-1", ids, nil
}

func (f *fakeSender) Status(_ context.Context, msgID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.states[msgID]
	if !ok {
		return "", errors.New("unknown message")
	}
	return st, nil
}

type NotificationSuite struct {
	suite.Suite
	store  *store.InMemoryStore
	sender *fakeSender
	svc    *Service
	ctx    context.Context
}

func TestNotificationSuite(t *testing.T) {
	suite.Run(t, new(NotificationSuite))
}

func (s *NotificationSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.sender = &fakeSender{states: map[string]string{}}
	fast := tasks.RetryPolicy{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Retries: tasks.MaxRetries}
	s.svc = New(s.store, s.sender, WithRetryPolicy(fast), WithTasks(tasks.Inline{Policy: fast}))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
}

func (s *NotificationSuite) emails(status models.EmailStatus) []models.Email {
	out, err := s.store.ListEmailsByStatus(s.ctx, status, 0)
	s.Require().NoError(err)
	return out
}

func (s *NotificationSuite) TestSendDefaultTemplate() {
	err := s.svc.Send(s.ctx, "access_request_approved", []string{"bc.user@example.com"}, map[string]any{
		"first_name":          "Bo",
		"operator_legal_name": "Mill <Co>",
		"role":                "admin",
	})
	s.Require().NoError(err)

	s.Require().Len(s.sender.sent, 1)
	msg := s.sender.sent[0]
	s.Equal("Access to Mill <Co> approved", msg.Subject)
	s.Contains(msg.BodyHTML, "Mill &lt;Co&gt;")
	s.Contains(msg.BodyHTML, "Your role is admin")
	s.Equal("access_request_approved", msg.Tag)

	sent := s.emails(models.EmailSent)
	s.Require().Len(sent, 1)
	s.Equal("tx-1", sent[0].TransactionID)
	s.Equal([]string{"msg-bc.user@example.com"}, sent[0].MessageIDs)
}

func (s *NotificationSuite) TestStoredTemplateOverridesDefault() {
	s.Require().NoError(s.svc.SaveTemplate(s.ctx, &models.Template{
		Name:    "registration_confirmation",
		Subject: "Registered: {{.operation_name}}",
		Body:    "<p>{{.operation_name}} is in.</p>",
	}))
	s.Require().NoError(s.svc.Send(s.ctx, "registration_confirmation", []string{"a@example.com"}, map[string]any{
		"operation_name": "Kiln 4",
	}))
	s.Require().Len(s.sender.sent, 1)
	s.Equal("Registered: Kiln 4", s.sender.sent[0].Subject)
	s.Equal("<p>Kiln 4 is in.</p>", s.sender.sent[0].BodyHTML)
}

func (s *NotificationSuite) TestSendRejections() {
	s.Run("no recipients", func() {
		err := s.svc.Send(s.ctx, "registration_confirmation", nil, map[string]any{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("blank recipients only", func() {
		err := s.svc.Send(s.ctx, "registration_confirmation", []string{" ", ""}, map[string]any{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("unknown template", func() {
		err := s.svc.Send(s.ctx, "missing", []string{"a@example.com"}, map[string]any{})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
	s.Run("template that does not parse", func() {
		err := s.svc.SaveTemplate(s.ctx, &models.Template{Name: "broken", Subject: "x", Body: "{{if}}"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Empty(s.sender.sent)
}

func (s *NotificationSuite) TestRecipientsAreNormalized() {
	err := s.svc.Send(s.ctx, "registration_confirmation", []string{" Ops@Example.com", "ops@example.com", ""}, map[string]any{
		"operation_name": "Kiln 4",
	})
	s.Require().NoError(err)
	s.Require().Len(s.sender.sent, 1)
	s.Equal([]string{"ops@example.com"}, s.sender.sent[0].To)
}

func (s *NotificationSuite) TestDeliveryFailureIsRecorded() {
	s.sender.err = errors.New("connection reset")

	err := s.svc.Send(s.ctx, "registration_confirmation", []string{"a@example.com"}, map[string]any{"operation_name": "Kiln 4"})
	s.Error(err)
	s.Equal(tasks.MaxRetries+1, s.sender.attempts)
	s.Len(s.emails(models.EmailFailed), 1)
	s.Empty(s.emails(models.EmailSent))
}

func (s *NotificationSuite) TestRefreshStatuses() {
	for _, to := range []string{"done@example.com", "bounce@example.com", "slow@example.com"} {
		s.Require().NoError(s.svc.Send(s.ctx, "registration_confirmation", []string{to}, map[string]any{"operation_name": "Kiln 4"}))
	}
	s.sender.states["msg-done@example.com"] = ches.StatusCompleted
	s.sender.states["msg-bounce@example.com"] = ches.StatusFailed
	s.sender.states["msg-slow@example.com"] = ches.StatusPending

	s.Require().NoError(s.svc.RefreshStatuses(s.ctx))

	completed := s.emails(models.EmailCompleted)
	s.Require().Len(completed, 1)
	s.Equal([]string{"done@example.com"}, completed[0].Recipients)
	failed := s.emails(models.EmailFailed)
	s.Require().Len(failed, 1)
	s.Equal([]string{"bounce@example.com"}, failed[0].Recipients)
	s.Len(s.emails(models.EmailSent), 1)

	s.Run("unknown message keeps the email in flight", func() {
		delete(s.sender.states, "msg-slow@example.com")
		err := s.svc.RefreshStatuses(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Len(s.emails(models.EmailSent), 1)
	})
}

func (s *NotificationSuite) TestDefaultTemplatesRender() {
	data := map[string]any{
		"first_name":          "Bo",
		"operator_legal_name": "Mill Co",
		"operation_name":      "Kiln 4",
		"role":                "admin",
		"reporting_year":      2025,
		"amount":              364,
		"comment":             "Use the new account",
		"is_admin_request":    true,
	}
	for _, t := range DefaultTemplates() {
		subject, body, err := s.svc.Render(s.ctx, t.Name, data)
		s.Require().NoError(err, t.Name)
		s.NotContains(subject, "{{", t.Name)
		s.Contains(body, "Dear Bo", t.Name)
	}
}
