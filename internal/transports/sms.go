package transports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SMSTransport delivers notifications through an HTTP SMS provider API
type SMSTransport struct {
	BaseURL  string
	APIKey   string
	SenderID string
	client   *http.Client
}

// NewSMSTransport creates a new SMSTransport
func NewSMSTransport(baseURL, apiKey, senderID string) *SMSTransport {
	return &SMSTransport{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		SenderID: senderID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type smsPayload struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

// Send delivers one SMS to the recipient phone number. The subject is
// ignored: SMS has no subject line.
func (t *SMSTransport) Send(ctx context.Context, recipient, subject, body string) error {
	if recipient == "" {
		return fmt.Errorf("sms transport: empty recipient number")
	}

	payload, err := json.Marshal(smsPayload{
		To:      recipient,
		From:    t.SenderID,
		Message: body,
	})
	if err != nil {
		return fmt.Errorf("sms transport: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sms transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms transport: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms transport: provider returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
