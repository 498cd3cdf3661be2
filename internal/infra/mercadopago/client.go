// Package mercadopago is a small client for the Mercado Pago REST API.
// Only the surface the billing core needs: create a checkout preference,
// fetch one payment, search payments by our external reference.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"freight-app/internal/recon"
)

// LifecycleForStatus maps MP payment statuses onto the normalized
// lifecycle. Unknown statuses report false and are skipped by callers.
func LifecycleForStatus(status string) (recon.Lifecycle, bool) {
	switch status {
	case "approved":
		return recon.LifecycleCompleted, true
	case "pending", "in_process", "authorized":
		return recon.LifecyclePending, true
	case "rejected", "cancelled":
		return recon.LifecycleRejected, true
	case "refunded", "charged_back":
		return recon.LifecycleRefunded, true
	}
	return "", false
}

type Client struct {
	BaseURL     string
	AccessToken string
	HTTPClient  *http.Client
}

func NewClient(baseURL string, accessToken string) *Client {
	return &Client{
		BaseURL:     baseURL,
		AccessToken: accessToken,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Payment is the subset of MP's payment resource we consume.
type Payment struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"` // approved, pending, in_process, rejected, cancelled, refunded, charged_back
	StatusDetail      string  `json:"status_detail"`
	ExternalReference string  `json:"external_reference"`
	TransactionAmount float64 `json:"transaction_amount"` // major units (BRL)
	DateApproved      string  `json:"date_approved"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

// AmountCents converts the BRL float MP reports into minor units. All plan
// comparisons downstream happen in cents.
func (p *Payment) AmountCents() int64 {
	return int64(math.Round(p.TransactionAmount * 100))
}

func (p *Payment) IDString() string {
	return strconv.FormatInt(p.ID, 10)
}

type PreferenceItem struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem  `json:"items"`
	ExternalReference string            `json:"external_reference"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	BackURLs          map[string]string `json:"back_urls,omitempty"`
}

type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type searchResponse struct {
	Results []Payment `json:"results"`
}

// GetPayment fetches one payment by its MP id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// SearchByReference lists payments carrying our external reference. Used by
// the force-sync path when the webhook never arrived.
func (c *Client) SearchByReference(ctx context.Context, externalReference string) ([]Payment, error) {
	path := "/v1/payments/search?external_reference=" + url.QueryEscape(externalReference)
	var resp searchResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// CreatePreference originates a checkout preference and returns the
// redirect URL to hand to the end user.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

func (c *Client) do(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("mercadopago: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("mercadopago: %s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
