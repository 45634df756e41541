// Package gateway wraps the payout provider's REST API. Each operation is
// one blocking round trip with its own failure domain; the saga never
// retries them.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/endee416/vendorpay/internal/domain"
)

var (
	ErrResolve   = errors.New("gateway: account resolution failed")
	ErrRecipient = errors.New("gateway: recipient creation failed")
	ErrTransfer  = errors.New("gateway: transfer failed")
	ErrRefund    = errors.New("gateway: refund failed")
)

// minorUnitFactor converts major currency units to the provider's minor
// unit. Integer multiplication only; amounts must survive the round trip
// exactly.
const minorUnitFactor = 100

type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL, secret string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// envelope is the provider's standard response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ResolveAccount asks the provider who owns (accountNumber, bankCode).
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (domain.ResolvedIdentity, error) {
	q := url.Values{}
	q.Set("account_number", accountNumber)
	q.Set("bank_code", bankCode)

	var data struct {
		AccountName string `json:"account_name"`
		BankName    string `json:"bank_name"`
	}
	if err := c.get(ctx, "/bank/resolve?"+q.Encode(), &data); err != nil {
		return domain.ResolvedIdentity{}, fmt.Errorf("%w: %v", ErrResolve, err)
	}
	if data.AccountName == "" {
		return domain.ResolvedIdentity{}, fmt.Errorf("%w: provider returned no account name", ErrResolve)
	}
	return domain.ResolvedIdentity{AccountName: data.AccountName, BankName: data.BankName}, nil
}

// CreateRecipient registers a payee and returns the provider's opaque
// recipient handle.
func (c *Client) CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error) {
	body := map[string]string{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}

	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.post(ctx, "/transferrecipient", body, &data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecipient, err)
	}
	if data.RecipientCode == "" {
		return "", fmt.Errorf("%w: provider returned empty recipient code", ErrRecipient)
	}
	return data.RecipientCode, nil
}

// InitiateTransfer moves amount (major units) to a registered recipient.
// The major-to-minor conversion happens here and nowhere else.
func (c *Client) InitiateTransfer(ctx context.Context, amount int64, recipientHandle string) (domain.TransferRecord, error) {
	amountMinor := amount * minorUnitFactor
	body := map[string]any{
		"source":    "balance",
		"amount":    amountMinor,
		"recipient": recipientHandle,
		"reason":    "vendor payout",
	}

	var data struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	}
	if err := c.post(ctx, "/transfer", body, &data); err != nil {
		return domain.TransferRecord{}, fmt.Errorf("%w: %v", ErrTransfer, err)
	}
	if data.Status == "failed" || data.Reference == "" {
		return domain.TransferRecord{}, fmt.Errorf("%w: provider reported status %q", ErrTransfer, data.Status)
	}
	return domain.TransferRecord{
		AmountMinor:       amountMinor,
		RecipientHandle:   recipientHandle,
		ProviderReference: data.Reference,
		Status:            data.Status,
	}, nil
}

// Refund reverses a completed transfer identified by its provider reference.
func (c *Client) Refund(ctx context.Context, providerReference string) error {
	body := map[string]string{"transaction": providerReference}
	if err := c.post(ctx, "/refund", body, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrRefund, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %v", err)
	}
	if resp.StatusCode >= 400 || !env.Status {
		c.log.Warn("provider call rejected",
			zap.String("path", req.URL.Path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", env.Message),
		)
		return fmt.Errorf("provider: %s", env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %v", err)
		}
	}
	return nil
}
