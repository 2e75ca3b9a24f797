// Package bccr is the client for the BC Carbon Registry.
package bccr

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"bciers/internal/integrations/provider"
	"bciers/internal/platform/cache"
	"bciers/internal/platform/config"
)

const (
	providerName    = "bccr"
	accountCacheTTL = 10 * time.Minute
)

var accountPattern = regexp.MustCompile(`^\d{15}$`)

// ValidAccountID reports whether s looks like a registry holding account.
func ValidAccountID(s string) bool {
	return accountPattern.MatchString(s)
}

// Account is a registry holding account.
type Account struct {
	ID          string `json:"accountId"`
	TradingName string `json:"tradingName"`
	Type        string `json:"type"`
	Status      string `json:"status"`
}

type ComplianceAccountRequest struct {
	HoldingAccountID string `json:"holdingAccountId"`
	BOROID           string `json:"boroId"`
	ComplianceYear   int    `json:"complianceYear"`
}

// Transfer moves compliance units between accounts.
type Transfer struct {
	FromAccountID  string `json:"fromAccountId"`
	ToAccountID    string `json:"toAccountId"`
	Quantity       int64  `json:"quantity"`
	ComplianceYear int    `json:"complianceYear"`
}

// Issuance mints earned credits into a holding account.
type Issuance struct {
	HoldingAccountID string `json:"holdingAccountId"`
	TradingName      string `json:"tradingName"`
	BOROID           string `json:"boroId"`
	Vintage          int    `json:"vintage"`
	Quantity         int64  `json:"quantity"`
}

type Client struct {
	api    *provider.Client
	cache  cache.Cache
	logger *slog.Logger
}

// New builds a client that authenticates with OAuth2 client credentials.
// Account lookups go through accounts, which may be nil.
func New(ctx context.Context, cfg config.BCCR, accounts cache.Cache, opts ...provider.Option) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return NewWithHTTPClient(cfg, cc.Client(ctx), accounts, opts...)
}

func NewWithHTTPClient(cfg config.BCCR, httpClient *http.Client, accounts cache.Cache, opts ...provider.Option) *Client {
	return &Client{
		api: provider.NewClient(provider.Config{
			Name:       providerName,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			RatePerSec: cfg.RatePerSec,
		}, httpClient, opts...),
		cache:  accounts,
		logger: slog.Default(),
	}
}

// GetAccount looks up a holding account. Cache failures fall through to
// the registry.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	if !ValidAccountID(accountID) {
		return nil, provider.NewError(provider.ErrorBadData, providerName, "holding account IDs are 15 digits", nil)
	}
	key := "bccr:account:" + accountID
	if c.cache != nil {
		var cached Account
		ok, err := c.cache.Get(ctx, key, &cached)
		if err != nil {
			c.logger.WarnContext(ctx, "bccr account cache read failed", "error", err)
		}
		if ok {
			return &cached, nil
		}
	}

	var out Account
	if err := c.api.Do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(accountID), nil, &out); err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, out, accountCacheTTL); err != nil {
			c.logger.WarnContext(ctx, "bccr account cache write failed", "error", err)
		}
	}
	return &out, nil
}

// CreateComplianceAccount opens the sub-account that receives applied units
// and returns its ID.
func (c *Client) CreateComplianceAccount(ctx context.Context, in ComplianceAccountRequest) (string, error) {
	var out struct {
		AccountID string `json:"accountId"`
	}
	if err := c.api.Do(ctx, http.MethodPost, "/compliance-accounts", in, &out); err != nil {
		return "", err
	}
	if out.AccountID == "" {
		return "", provider.NewError(provider.ErrorBadData, providerName, "compliance account response missing accountId", nil)
	}
	return out.AccountID, nil
}

// TransferUnits returns the registry transaction ID.
func (c *Client) TransferUnits(ctx context.Context, in Transfer) (string, error) {
	return c.transaction(ctx, "/transfers", in)
}

func (c *Client) IssueCredits(ctx context.Context, in Issuance) (string, error) {
	return c.transaction(ctx, "/issuances", in)
}

func (c *Client) transaction(ctx context.Context, path string, in any) (string, error) {
	var out struct {
		TransactionID string `json:"transactionId"`
	}
	if err := c.api.Do(ctx, http.MethodPost, path, in, &out); err != nil {
		return "", err
	}
	if out.TransactionID == "" {
		return "", provider.NewError(provider.ErrorBadData, providerName, "response missing transactionId", nil)
	}
	return out.TransactionID, nil
}
