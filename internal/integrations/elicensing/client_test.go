package elicensing

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"bciers/internal/integrations/provider"
	"bciers/internal/platform/config"
)

const base = "https://elicensing.example.com"

func newClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Transport: transport})
	return New(ctx, config.Elicensing{BaseURL: base, APIKey: "key"}), transport
}

func TestCreateClientSendsAPIKey(t *testing.T) {
	c, transport := newClient(t)
	transport.RegisterResponder(http.MethodPost, base+"/client",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer key", req.Header.Get("Authorization"))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"clientObjectId": "c-1", "clientGUID": "g"})
		})

	out, err := c.CreateClient(context.Background(), ClientRequest{ClientGUID: "g", CompanyName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "c-1", out.ClientObjectID)
}

func TestCreateFeesAndInvoice(t *testing.T) {
	c, transport := newClient(t)
	transport.RegisterResponder(http.MethodPost, base+"/client/c-1/fees",
		func(req *http.Request) (*http.Response, error) {
			var body struct {
				BusinessAreaCode string `json:"businessAreaCode"`
				Fees             []struct {
					BaseAmount string `json:"baseAmount"`
					FeeDate    string `json:"feeDate"`
				} `json:"fees"`
			}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "OBPS", body.BusinessAreaCode)
			require.Len(t, body.Fees, 1)
			assert.Equal(t, "1234.5", body.Fees[0].BaseAmount)
			assert.Equal(t, "2025-11-30", body.Fees[0].FeeDate)
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"fees": []map[string]string{{"feeObjectId": "f-1", "feeGUID": "fg"}},
			})
		})
	transport.RegisterResponder(http.MethodPost, base+"/client/c-1/invoice",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]string{"invoiceNumber": "INV-1"}))

	fees, err := c.CreateFees(context.Background(), "c-1", []Fee{{
		FeeGUID: "fg", FeeDate: NewDate(time.Date(2025, 11, 30, 15, 0, 0, 0, time.UTC)),
		BaseAmount: decimal.RequireFromString("1234.50"),
	}})
	require.NoError(t, err)
	require.Len(t, fees, 1)

	number, err := c.CreateInvoice(context.Background(), "c-1", InvoiceRequest{
		PaymentDueDate: NewDate(time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)),
		FeeObjectIDs:   []string{fees[0].FeeObjectID},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-1", number)
}

func TestQueryInvoice(t *testing.T) {
	c, transport := newClient(t)
	transport.RegisterResponder(http.MethodGet, base+"/client/c-1/invoice/INV-1",
		httpmock.NewStringResponder(http.StatusOK, `{
			"invoiceNumber": "INV-1",
			"invoicePaymentDueDate": "2025-11-30",
			"invoiceOutstandingBalance": 500.25,
			"invoiceFeeBalance": "500.25",
			"invoiceInterestBalance": 0,
			"fees": [{
				"feeObjectId": "f-1",
				"baseAmount": 1000.25,
				"payments": [{"paymentObjectId": "p-1", "receivedDate": "2025-10-01T10:00:00Z", "amount": 500, "method": "EFT"}],
				"adjustments": [{"adjustmentObjectId": "a-1", "date": "2025-10-02", "adjustmentTotal": -0.5, "reason": "rounding"}]
			}]
		}`))

	inv, err := c.QueryInvoice(context.Background(), "c-1", "INV-1")
	require.NoError(t, err)
	assert.Equal(t, "500.25", inv.OutstandingBalance.String())
	assert.Equal(t, time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC), inv.DueDate.Time)
	require.Len(t, inv.Payments(), 1)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), inv.Payments()[0].ReceivedDate.Time)
	require.Len(t, inv.Adjustments(), 1)
	assert.Equal(t, "-0.5", inv.Adjustments()[0].Amount.String())
}

func TestQueryMissingInvoice(t *testing.T) {
	c, transport := newClient(t)
	transport.RegisterResponder(http.MethodGet, base+"/client/c-1/invoice/INV-9",
		httpmock.NewStringResponder(http.StatusNotFound, ""))

	_, err := c.QueryInvoice(context.Background(), "c-1", "INV-9")
	assert.Equal(t, provider.ErrorNotFound, provider.CategoryOf(err))
}

func TestCreateAdjustment(t *testing.T) {
	c, transport := newClient(t)
	transport.RegisterResponder(http.MethodPost, base+"/client/c-1/adjustments",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
			"adjustments": []map[string]string{{"adjustmentObjectId": "a-7"}},
		}))

	adjID, err := c.CreateAdjustment(context.Background(), "c-1", AdjustmentRequest{
		FeeObjectID: "f-1", Amount: decimal.NewFromInt(-160), Date: NewDate(time.Now()), Reason: "Compliance Units Applied",
	})
	require.NoError(t, err)
	assert.Equal(t, "a-7", adjID)
}
