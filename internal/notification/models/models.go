// Package models holds email templates and the delivery record of each
// message sent through CHES.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Template is a named email with an html/template subject and body.
type Template struct {
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EmailStatus string

const (
	EmailQueued    EmailStatus = "Queued"
	EmailSent      EmailStatus = "Sent"
	EmailCompleted EmailStatus = "Completed"
	EmailFailed    EmailStatus = "Failed"
)

// Final reports whether the status can no longer change.
func (s EmailStatus) Final() bool {
	return s == EmailCompleted || s == EmailFailed
}

// Email is one templated message and what CHES said about it.
type Email struct {
	ID            uuid.UUID   `json:"id"`
	TemplateName  string      `json:"template_name"`
	Recipients    []string    `json:"recipients"`
	TransactionID string      `json:"transaction_id"`
	MessageIDs    []string    `json:"message_ids"`
	Status        EmailStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Sent records a CHES acceptance.
func (e *Email) Sent(txID string, msgIDs []string, now time.Time) {
	e.TransactionID = txID
	e.MessageIDs = msgIDs
	e.Status = EmailSent
	e.UpdatedAt = now
}

// Resolve folds per-message CHES states into the email status. Any failed
// or cancelled message fails the email; it completes once every message has.
func (e *Email) Resolve(states []string, now time.Time) bool {
	if e.Status.Final() || len(states) == 0 {
		return false
	}
	next := EmailCompleted
	for _, st := range states {
		switch st {
		case "failed", "cancelled":
			next = EmailFailed
		case "completed":
		default:
			if next != EmailFailed {
				next = EmailSent
			}
		}
	}
	if next == e.Status {
		return false
	}
	e.Status = next
	e.UpdatedAt = now
	return true
}
