// Package openpix is a small client for the OpenPix charge API. Charges are
// keyed by our correlation reference; values are centavos end to end.
package openpix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"freight-app/internal/recon"
)

// Charge statuses OpenPix reports.
const (
	ChargeActive    = "ACTIVE"
	ChargeCompleted = "COMPLETED"
	ChargeExpired   = "EXPIRED"
)

// LifecycleForChargeStatus maps an OpenPix charge status onto the
// normalized lifecycle.
func LifecycleForChargeStatus(status string) (recon.Lifecycle, bool) {
	switch strings.ToUpper(status) {
	case ChargeCompleted:
		return recon.LifecycleCompleted, true
	case ChargeActive:
		return recon.LifecyclePending, true
	case ChargeExpired:
		return recon.LifecycleExpired, true
	}
	return "", false
}

type Client struct {
	BaseURL    string
	AppID      string
	HTTPClient *http.Client
}

func NewClient(baseURL string, appID string) *Client {
	return &Client{
		BaseURL: baseURL,
		AppID:   appID,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type Charge struct {
	CorrelationID string `json:"correlationID"`
	Status        string `json:"status"`
	Value         int64  `json:"value"` // centavos
	TransactionID string `json:"transactionID"`
	BRCode        string `json:"brCode"`
	QRCodeImage   string `json:"qrCodeImage"`
	Customer      struct {
		Email string `json:"email"`
	} `json:"customer"`
}

type chargeEnvelope struct {
	Charge Charge `json:"charge"`
}

type CreateChargeRequest struct {
	CorrelationID string `json:"correlationID"`
	Value         int64  `json:"value"` // centavos
	Comment       string `json:"comment,omitempty"`
}

// CreateCharge originates a PIX charge and returns the payable QR payload.
func (c *Client) CreateCharge(ctx context.Context, req CreateChargeRequest) (*Charge, error) {
	var envelope chargeEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/v1/charge", req, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Charge, nil
}

// GetCharge fetches a charge by our correlation reference.
func (c *Client) GetCharge(ctx context.Context, correlationID string) (*Charge, error) {
	var envelope chargeEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/v1/charge/"+url.PathEscape(correlationID), nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Charge, nil
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
	req.Header.Set("Authorization", c.AppID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("openpix: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("openpix: %s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
