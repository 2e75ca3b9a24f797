// Package elicensing is the client for the government billing system that
// holds compliance clients, fees and invoices.
package elicensing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"

	"bciers/internal/integrations/provider"
	"bciers/internal/platform/config"
)

const (
	providerName     = "elicensing"
	businessAreaCode = "OBPS"
	dateLayout       = "2006-01-02"
)

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct{ time.Time }

func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(raw []byte) error {
	s := string(raw)
	if s == "null" || s == `""` {
		d.Time = time.Time{}
		return nil
	}
	if len(s) < 2 {
		return fmt.Errorf("invalid date %s", s)
	}
	s = s[1 : len(s)-1]
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		// timestamps are accepted and truncated to their date
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", s, err)
		}
	}
	*d = NewDate(t)
	return nil
}

// ClientRequest registers an operator as a billing client.
type ClientRequest struct {
	ClientGUID  string `json:"clientGUID"`
	CompanyName string `json:"companyName"`
	BCCompanyID string `json:"bcCompanyRegistrationNumber,omitempty"`
	Address     string `json:"addressLine1,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"stateProvince,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	Email       string `json:"email,omitempty"`
}

type ClientResponse struct {
	ClientObjectID string `json:"clientObjectId"`
	ClientGUID     string `json:"clientGUID"`
}

type Fee struct {
	FeeGUID     string          `json:"feeGUID"`
	FeeDate     Date            `json:"feeDate"`
	Description string          `json:"description"`
	BaseAmount  decimal.Decimal `json:"baseAmount"`
}

type FeeResult struct {
	FeeObjectID string `json:"feeObjectId"`
	FeeGUID     string `json:"feeGUID"`
}

type InvoiceRequest struct {
	PaymentDueDate Date     `json:"paymentDueDate"`
	FeeObjectIDs   []string `json:"fees"`
}

type Payment struct {
	PaymentObjectID string          `json:"paymentObjectId"`
	ReceivedDate    Date            `json:"receivedDate"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method"`
	ReceiptNumber   string          `json:"receiptNumber"`
}

type Adjustment struct {
	AdjustmentObjectID string          `json:"adjustmentObjectId"`
	AdjustmentDate     Date            `json:"date"`
	Amount             decimal.Decimal `json:"adjustmentTotal"`
	Reason             string          `json:"reason"`
	Type               string          `json:"type"`
}

type InvoiceFee struct {
	FeeObjectID string          `json:"feeObjectId"`
	FeeDate     Date            `json:"feeDate"`
	BaseAmount  decimal.Decimal `json:"baseAmount"`
	Description string          `json:"description"`
	Payments    []Payment       `json:"payments"`
	Adjustments []Adjustment    `json:"adjustments"`
}

// Invoice is the billing system's view of one invoice and its fees.
type Invoice struct {
	InvoiceNumber      string          `json:"invoiceNumber"`
	DueDate            Date            `json:"invoicePaymentDueDate"`
	OutstandingBalance decimal.Decimal `json:"invoiceOutstandingBalance"`
	FeeBalance         decimal.Decimal `json:"invoiceFeeBalance"`
	InterestBalance    decimal.Decimal `json:"invoiceInterestBalance"`
	Fees               []InvoiceFee    `json:"fees"`
}

// Payments flattens the payments across every fee on the invoice.
func (i *Invoice) Payments() []Payment {
	var out []Payment
	for _, f := range i.Fees {
		out = append(out, f.Payments...)
	}
	return out
}

func (i *Invoice) Adjustments() []Adjustment {
	var out []Adjustment
	for _, f := range i.Fees {
		out = append(out, f.Adjustments...)
	}
	return out
}

// AdjustmentRequest credits or debits one fee.
type AdjustmentRequest struct {
	FeeObjectID string          `json:"feeObjectId"`
	Amount      decimal.Decimal `json:"adjustmentTotal"`
	Date        Date            `json:"date"`
	Reason      string          `json:"reason"`
	Type        string          `json:"type"`
}

type Client struct {
	api *provider.Client
}

// New builds a client that sends the configured API key as a bearer token.
func New(ctx context.Context, cfg config.Elicensing, opts ...provider.Option) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"})
	return NewWithHTTPClient(cfg, oauth2.NewClient(ctx, ts), opts...)
}

func NewWithHTTPClient(cfg config.Elicensing, httpClient *http.Client, opts ...provider.Option) *Client {
	return &Client{api: provider.NewClient(provider.Config{
		Name:       providerName,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		RatePerSec: cfg.RatePerSec,
	}, httpClient, opts...)}
}

func (c *Client) CreateClient(ctx context.Context, in ClientRequest) (*ClientResponse, error) {
	var out ClientResponse
	if err := c.api.Do(ctx, http.MethodPost, "/client", in, &out); err != nil {
		return nil, err
	}
	if out.ClientObjectID == "" {
		return nil, provider.NewError(provider.ErrorBadData, providerName, "client response missing clientObjectId", nil)
	}
	return &out, nil
}

func (c *Client) CreateFees(ctx context.Context, clientObjectID string, fees []Fee) ([]FeeResult, error) {
	body := struct {
		BusinessAreaCode string `json:"businessAreaCode"`
		Fees             []Fee  `json:"fees"`
	}{businessAreaCode, fees}
	var out struct {
		Fees []FeeResult `json:"fees"`
	}
	if err := c.api.Do(ctx, http.MethodPost, clientPath(clientObjectID)+"/fees", body, &out); err != nil {
		return nil, err
	}
	if len(out.Fees) != len(fees) {
		return nil, provider.NewError(provider.ErrorBadData, providerName,
			fmt.Sprintf("expected %d fees, got %d", len(fees), len(out.Fees)), nil)
	}
	return out.Fees, nil
}

// CreateInvoice bills the given fees and returns the invoice number.
func (c *Client) CreateInvoice(ctx context.Context, clientObjectID string, in InvoiceRequest) (string, error) {
	body := struct {
		BusinessAreaCode string `json:"businessAreaCode"`
		InvoiceRequest
	}{businessAreaCode, in}
	var out struct {
		InvoiceNumber string `json:"invoiceNumber"`
	}
	if err := c.api.Do(ctx, http.MethodPost, clientPath(clientObjectID)+"/invoice", body, &out); err != nil {
		return "", err
	}
	if out.InvoiceNumber == "" {
		return "", provider.NewError(provider.ErrorBadData, providerName, "invoice response missing invoiceNumber", nil)
	}
	return out.InvoiceNumber, nil
}

func (c *Client) QueryInvoice(ctx context.Context, clientObjectID, invoiceNumber string) (*Invoice, error) {
	var out Invoice
	path := clientPath(clientObjectID) + "/invoice/" + url.PathEscape(invoiceNumber)
	if err := c.api.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAdjustment records adj and returns its adjustment object ID.
func (c *Client) CreateAdjustment(ctx context.Context, clientObjectID string, adj AdjustmentRequest) (string, error) {
	body := struct {
		Adjustments []AdjustmentRequest `json:"adjustments"`
	}{[]AdjustmentRequest{adj}}
	var out struct {
		Adjustments []struct {
			AdjustmentObjectID string `json:"adjustmentObjectId"`
		} `json:"adjustments"`
	}
	if err := c.api.Do(ctx, http.MethodPost, clientPath(clientObjectID)+"/adjustments", body, &out); err != nil {
		return "", err
	}
	if len(out.Adjustments) != 1 {
		return "", provider.NewError(provider.ErrorBadData, providerName, "adjustment response missing adjustmentObjectId", nil)
	}
	return out.Adjustments[0].AdjustmentObjectID, nil
}

func clientPath(clientObjectID string) string {
	return "/client/" + url.PathEscape(clientObjectID)
}
