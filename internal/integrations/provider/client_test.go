package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/circuit"
)

func newMockedClient(t *testing.T, opts ...Option) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	c := NewClient(Config{Name: "test", BaseURL: "https://api.example.com/"}, &http.Client{Transport: transport}, opts...)
	return c, transport
}

func TestDoDecodesJSON(t *testing.T) {
	c, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodPost, "https://api.example.com/things",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			return httpmock.NewStringResponse(http.StatusOK, `{"id":"abc"}`), nil
		})

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/things", map[string]string{"a": "b"}, &out))
	assert.Equal(t, "abc", out.ID)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestDoClassifiesStatus(t *testing.T) {
	cases := map[int]Category{
		http.StatusUnauthorized:        ErrorAuthentication,
		http.StatusNotFound:            ErrorNotFound,
		http.StatusTooManyRequests:     ErrorRateLimited,
		http.StatusGatewayTimeout:      ErrorTimeout,
		http.StatusInternalServerError: ErrorOutage,
		http.StatusUnprocessableEntity: ErrorBadData,
	}
	for status, want := range cases {
		c, transport := newMockedClient(t)
		transport.RegisterResponder(http.MethodGet, "https://api.example.com/x",
			httpmock.NewStringResponder(status, `{"detail":"nope"}`))

		err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
		require.Error(t, err)
		assert.Equal(t, want, CategoryOf(err), "status %d", status)
	}
}

func TestDoRejectsMalformedBody(t *testing.T) {
	c, transport := newMockedClient(t)
	transport.RegisterResponder(http.MethodGet, "https://api.example.com/x",
		httpmock.NewStringResponder(http.StatusOK, `not json`))

	var out map[string]any
	err := c.Do(context.Background(), http.MethodGet, "/x", nil, &out)
	assert.Equal(t, ErrorBadData, CategoryOf(err))
	assert.False(t, IsRetryable(err))
}

func TestBreakerOpensAfterOutages(t *testing.T) {
	breaker := circuit.New("test", circuit.WithFailureThreshold(2))
	c, transport := newMockedClient(t, WithBreaker(breaker))
	transport.RegisterResponder(http.MethodGet, "https://api.example.com/x",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	for i := 0; i < 2; i++ {
		require.Error(t, c.Do(context.Background(), http.MethodGet, "/x", nil, nil))
	}
	assert.True(t, breaker.IsOpen())

	err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	assert.Equal(t, ErrorOutage, CategoryOf(err))
	assert.Equal(t, 2, transport.GetTotalCallCount())
}

func TestBadDataDoesNotTripBreaker(t *testing.T) {
	breaker := circuit.New("test", circuit.WithFailureThreshold(1))
	c, transport := newMockedClient(t, WithBreaker(breaker))
	transport.RegisterResponder(http.MethodGet, "https://api.example.com/x",
		httpmock.NewStringResponder(http.StatusBadRequest, ""))

	require.Error(t, c.Do(context.Background(), http.MethodGet, "/x", nil, nil))
	assert.False(t, breaker.IsOpen())
}

func TestToDomain(t *testing.T) {
	assert.NoError(t, ToDomain(nil, "eLicensing"))
	assert.True(t, dErrors.HasCode(ToDomain(NewError(ErrorOutage, "p", "down", nil), "eLicensing"), dErrors.CodeUnavailable))
	assert.True(t, dErrors.HasCode(ToDomain(NewError(ErrorNotFound, "p", "gone", nil), "BCCR"), dErrors.CodeNotFound))
	assert.True(t, dErrors.HasCode(ToDomain(NewError(ErrorBadData, "p", "bad", nil), "BCCR"), dErrors.CodeBadRequest))
	assert.True(t, dErrors.HasCode(ToDomain(errors.New("boom"), "CHES"), dErrors.CodeInternal))
}

func TestRetryableCategories(t *testing.T) {
	assert.True(t, NewError(ErrorTimeout, "p", "m", nil).Retryable())
	assert.True(t, NewError(ErrorRateLimited, "p", "m", nil).Retryable())
	assert.False(t, NewError(ErrorAuthentication, "p", "m", nil).Retryable())
	wrapped := dErrors.Wrap(NewError(ErrorOutage, "p", "m", nil), dErrors.CodeInternal, "x")
	assert.True(t, IsRetryable(wrapped))
}
