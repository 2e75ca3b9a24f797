package ches

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"bciers/internal/integrations/provider"
	"bciers/internal/platform/config"
)

var testConfig = config.CHES{
	BaseURL:      "https://ches.example.com",
	TokenURL:     "https://sso.example.com/token",
	ClientID:     "bciers",
	ClientSecret: "secret",
	Sender:       "noreply@example.com",
}

func newClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, testConfig.TokenURL,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
			"access_token": "tok", "token_type": "bearer", "expires_in": 300,
		}))
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Transport: transport})
	return New(ctx, testConfig), transport
}

func TestSendEmail(t *testing.T) {
	c, transport := newClient(t)
	transport.RegisterResponder(http.MethodPost, "https://ches.example.com/api/v1/email",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
			var body emailRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "noreply@example.com", body.From)
			assert.Equal(t, "html", body.BodyType)
			assert.Equal(t, []string{"a@example.com"}, body.To)
			return httpmock.NewJsonResponse(http.StatusCreated, map[string]any{
				"txId":     "tx-1",
				"messages": []map[string]any{{"msgId": "m-1", "to": []string{"a@example.com"}}},
			})
		})

	txID, msgIDs, err := c.SendEmail(context.Background(), Email{
		To: []string{"a@example.com"}, Subject: "Hi", BodyHTML: "<p>Hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "tx-1", txID)
	assert.Equal(t, []string{"m-1"}, msgIDs)
}

func TestSendEmailWithoutRecipients(t *testing.T) {
	c, transport := newClient(t)
	_, _, err := c.SendEmail(context.Background(), Email{Subject: "Hi"})
	assert.Equal(t, provider.ErrorBadData, provider.CategoryOf(err))
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestStatus(t *testing.T) {
	c, transport := newClient(t)
	transport.RegisterResponder(http.MethodGet, "https://ches.example.com/api/v1/status/m-1",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{"msgId": "m-1", "status": StatusCompleted}))

	status, err := c.Status(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
}

func TestTokenFailureIsReported(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, testConfig.TokenURL,
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error":"invalid_client"}`))
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Transport: transport})
	c := New(ctx, testConfig)

	_, err := c.Status(context.Background(), "m-1")
	require.Error(t, err)
	assert.False(t, provider.IsRetryable(err))
}
