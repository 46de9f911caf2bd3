// Package einvoice submits final invoices to the external e-invoice provider.
package einvoice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Party identifies the invoiced customer.
type Party struct {
	Name      string `json:"name"`
	TaxNumber string `json:"tax_number,omitempty"`
	TaxOffice string `json:"tax_office,omitempty"`
	Address   string `json:"address,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Line is a priced invoice line.
type Line struct {
	Name      string          `json:"name"`
	LotNumber string          `json:"lot_number,omitempty"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	VatRate   decimal.Decimal `json:"vat_rate"`
	Net       decimal.Decimal `json:"net"`
	Vat       decimal.Decimal `json:"vat"`
	Total     decimal.Decimal `json:"total"`
}

// Payload is the normalised document sent to the provider.
type Payload struct {
	InvoiceID  string          `json:"invoice_id"`
	IssuedAt   time.Time       `json:"issued_at"`
	Customer   Party           `json:"customer"`
	Lines      []Line          `json:"lines"`
	NetTotal   decimal.Decimal `json:"net_total"`
	VatTotal   decimal.Decimal `json:"vat_total"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// Config configures the provider client.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// ErrRejected is returned when the provider answers with a non-2xx status.
var ErrRejected = errors.New("einvoice: provider rejected invoice")

// Client wraps interactions with the provider API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

// NewClient constructs a new client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
	}
}

// Simulated reports whether credentials are missing and numbers are local.
func (c *Client) Simulated() bool {
	return c.cfg.BaseURL == "" || c.cfg.Username == "" || c.cfg.Password == ""
}

type submitResponse struct {
	InvoiceNumber string `json:"invoice_number"`
}

// Submit sends the invoice and returns the provider's invoice number. Without
// credentials it returns a simulated SIM-YYYYMMDD-XXXXXXXX number.
func (c *Client) Submit(ctx context.Context, payload Payload) (string, error) {
	if c.Simulated() {
		return c.simulatedNumber(), nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/invoices"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("einvoice: decode response: %w", err)
	}
	if out.InvoiceNumber == "" {
		return "", fmt.Errorf("%w: empty invoice number", ErrRejected)
	}
	return out.InvoiceNumber, nil
}

func (c *Client) simulatedNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("SIM-%s-%s", c.now().UTC().Format("20060102"), suffix)
}
