package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WhatsAppNotifier posts text messages to an Evolution-style WhatsApp API.
// Best-effort: bounded timeout, one attempt, no retry.
type WhatsAppNotifier struct {
	APIURL     string
	APIKey     string
	HTTPClient *http.Client
}

func NewWhatsAppNotifier(apiURL string, apiKey string) *WhatsAppNotifier {
	return &WhatsAppNotifier{
		APIURL: apiURL,
		APIKey: apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type whatsAppMessage struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

func (w *WhatsAppNotifier) SendText(phone string, message string) error {
	if w.APIURL == "" {
		return fmt.Errorf("whatsapp api not configured")
	}
	if phone == "" {
		return fmt.Errorf("user has no phone number")
	}

	payload, err := json.Marshal(whatsAppMessage{Number: phone, Text: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, w.APIURL+"/message/sendText", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", w.APIKey)

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("whatsapp api status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
