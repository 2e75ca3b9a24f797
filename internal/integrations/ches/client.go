// Package ches is the client for the Common Hosted Email Service.
package ches

import (
	"context"
	"net/http"
	"net/url"

	"golang.org/x/oauth2/clientcredentials"

	"bciers/internal/integrations/provider"
	"bciers/internal/platform/config"
)

const providerName = "ches"

// Delivery states reported by CHES.
const (
	StatusAccepted  = "accepted"
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Email is one HTML message. Recipients are addressed together.
type Email struct {
	To       []string
	Subject  string
	BodyHTML string
	Tag      string
}

type Client struct {
	api    *provider.Client
	sender string
}

// New builds a client that authenticates with OAuth2 client credentials.
// The token endpoint is reached through the HTTP client carried by ctx, if
// any (oauth2.HTTPClient).
func New(ctx context.Context, cfg config.CHES, opts ...provider.Option) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return NewWithHTTPClient(cfg, cc.Client(ctx), opts...)
}

func NewWithHTTPClient(cfg config.CHES, httpClient *http.Client, opts ...provider.Option) *Client {
	return &Client{
		api: provider.NewClient(provider.Config{
			Name:       providerName,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			RatePerSec: cfg.RatePerSec,
		}, httpClient, opts...),
		sender: cfg.Sender,
	}
}

type emailRequest struct {
	BodyType string   `json:"bodyType"`
	Body     string   `json:"body"`
	From     string   `json:"from"`
	Subject  string   `json:"subject"`
	To       []string `json:"to"`
	Tag      string   `json:"tag,omitempty"`
	Encoding string   `json:"encoding"`
	Priority string   `json:"priority"`
}

type emailResponse struct {
	TxID     string `json:"txId"`
	Messages []struct {
		MsgID string   `json:"msgId"`
		To    []string `json:"to"`
	} `json:"messages"`
}

// SendEmail queues e and returns the CHES transaction ID and message IDs.
func (c *Client) SendEmail(ctx context.Context, e Email) (string, []string, error) {
	if len(e.To) == 0 {
		return "", nil, provider.NewError(provider.ErrorBadData, providerName, "no recipients", nil)
	}
	var out emailResponse
	err := c.api.Do(ctx, http.MethodPost, "/api/v1/email", emailRequest{
		BodyType: "html",
		Body:     e.BodyHTML,
		From:     c.sender,
		Subject:  e.Subject,
		To:       e.To,
		Tag:      e.Tag,
		Encoding: "utf-8",
		Priority: "normal",
	}, &out)
	if err != nil {
		return "", nil, err
	}
	ids := make([]string, 0, len(out.Messages))
	for _, m := range out.Messages {
		ids = append(ids, m.MsgID)
	}
	return out.TxID, ids, nil
}

type statusResponse struct {
	MsgID  string `json:"msgId"`
	Status string `json:"status"`
}

// Status returns the delivery state of one message.
func (c *Client) Status(ctx context.Context, msgID string) (string, error) {
	var out statusResponse
	if err := c.api.Do(ctx, http.MethodGet, "/api/v1/status/"+url.PathEscape(msgID), nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}
