package outreach

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
)

const defaultWhatsAppBaseURL = "https://graph.facebook.com/v19.0"

// Sender delivers one rendered message and returns the provider's message ID.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// WhatsAppConfig controls how the WhatsApp Cloud API client behaves.
type WhatsAppConfig struct {
	BaseURL       string
	AccessToken   string
	PhoneNumberID string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// WhatsAppClient sends text messages through the WhatsApp Cloud API.
type WhatsAppClient struct {
	baseURL       string
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
}

// NewWhatsAppClient creates a configured client with sane defaults.
func NewWhatsAppClient(cfg WhatsAppConfig) (*WhatsAppClient, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("outreach: WhatsApp access token is required")
	}
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, errors.New("outreach: WhatsApp phone number ID is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultWhatsAppBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &WhatsAppClient{
		baseURL:       baseURL,
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		httpClient:    httpClient,
	}, nil
}

// Send delivers one text message and returns the provider message ID.
func (c *WhatsAppClient) Send(ctx context.Context, to, body string) (string, error) {
	if strings.TrimSpace(to) == "" {
		return "", errors.New("outreach: recipient phone is required")
	}

	payload, err := json.Marshal(struct {
		MessagingProduct string `json:"messaging_product"`
		To               string `json:"to"`
		Type             string `json:"type"`
		Text             struct {
			Body string `json:"body"`
		} `json:"text"`
	}{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text: struct {
			Body string `json:"body"`
		}{Body: body},
	})
	if err != nil {
		return "", fmt.Errorf("outreach: encode WhatsApp payload: %w", err)
	}

	url := c.baseURL + "/" + c.phoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("outreach: build WhatsApp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("outreach: WhatsApp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("outreach: WhatsApp returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("outreach: decode WhatsApp response: %w", err)
	}
	if len(out.Messages) == 0 {
		return "", errors.New("outreach: WhatsApp response had no message ID")
	}
	return out.Messages[0].ID, nil
}
