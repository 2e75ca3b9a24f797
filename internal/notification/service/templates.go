package service

import (
	"bytes"
	htmltemplate "html/template"
	"sort"
	texttemplate "text/template"

	"bciers/internal/notification/models"
	dErrors "bciers/pkg/domain-errors"
)

const footer = `<p>If you have any questions, contact us at <a href="mailto:GHGRegulator@gov.bc.ca">GHGRegulator@gov.bc.ca</a>.</p>
<p>Sincerely,<br>Office of Climate Emissions Management</p>`

// defaults are used whenever erc.email_template has no row of the same name.
var defaults = map[string]models.Template{
	"access_request_confirmation": {
		Name:    "access_request_confirmation",
		Subject: "Your access request for {{.operator_legal_name}} has been received",
		Body: `<p>Dear {{.first_name}},</p>
<p>We have received your request to access {{.operator_legal_name}}{{if .is_admin_request}} as its administrator{{end}}.
You will be notified when it has been reviewed.</p>` + footer,
	},
	"access_request_approved": {
		Name:    "access_request_approved",
		Subject: "Access to {{.operator_legal_name}} approved",
		Body: `<p>Dear {{.first_name}},</p>
<p>Your request to access {{.operator_legal_name}} has been approved. Your role is {{.role}}.</p>` + footer,
	},
	"access_request_declined": {
		Name:    "access_request_declined",
		Subject: "Access to {{.operator_legal_name}} declined",
		Body: `<p>Dear {{.first_name}},</p>
<p>Your request to access {{.operator_legal_name}} has been declined.</p>` + footer,
	},
	"registration_confirmation": {
		Name:    "registration_confirmation",
		Subject: "{{.operation_name}} has been registered",
		Body: `<p>Dear {{.first_name}},</p>
<p>The registration of {{.operation_name}} has been received.</p>` + footer,
	},
	"earned_credits_approved": {
		Name:    "earned_credits_approved",
		Subject: "Earned credits for {{.reporting_year}} approved",
		Body: `<p>Dear {{.first_name}},</p>
<p>Your request for {{.amount}} earned credits for the {{.reporting_year}} compliance period has been approved
and the credits were issued to your BC Carbon Registry holding account.</p>` + footer,
	},
	"earned_credits_declined": {
		Name:    "earned_credits_declined",
		Subject: "Earned credits for {{.reporting_year}} declined",
		Body: `<p>Dear {{.first_name}},</p>
<p>Your request for {{.amount}} earned credits for the {{.reporting_year}} compliance period has been declined.</p>
{{with .comment}}<p>{{.}}</p>{{end}}` + footer,
	},
	"earned_credits_changes_required": {
		Name:    "earned_credits_changes_required",
		Subject: "Changes required to your {{.reporting_year}} earned credits request",
		Body: `<p>Dear {{.first_name}},</p>
<p>Your request for {{.amount}} earned credits for the {{.reporting_year}} compliance period needs changes before it can be reviewed.</p>
{{with .comment}}<p>{{.}}</p>{{end}}` + footer,
	},
}

// DefaultTemplates lists the built-in templates by name.
func DefaultTemplates() []models.Template {
	out := make([]models.Template, 0, len(defaults))
	for _, t := range defaults {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// render executes t against data. The subject is plain text, the body HTML
// with every value escaped.
func render(t *models.Template, data map[string]any) (string, string, error) {
	subject, err := texttemplate.New(t.Name + ".subject").Parse(t.Subject)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInvariantViolation, "template "+t.Name+": bad subject")
	}
	body, err := htmltemplate.New(t.Name).Parse(t.Body)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInvariantViolation, "template "+t.Name+": bad body")
	}
	var subj, html bytes.Buffer
	if err := subject.Execute(&subj, data); err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeValidation, "template "+t.Name)
	}
	if err := body.Execute(&html, data); err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeValidation, "template "+t.Name)
	}
	return subj.String(), html.String(), nil
}
