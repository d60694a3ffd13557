package whatsapp

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

	"repairshop/pkg/config"
)

const defaultBaseURL = "https://graph.facebook.com"

var ErrNotConfigured = errors.New("whatsapp not configured")

// Client talks to the WhatsApp Cloud API messages endpoint.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
	PhoneID    string
	APIVersion string
}

func New(cfg config.WhatsAppConfig) *Client {
	return &Client{
		Token:      cfg.Token,
		PhoneID:    cfg.PhoneID,
		APIVersion: cfg.APIVersion,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.Token != "" && c.PhoneID != ""
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// SendText sends a plain text message. The phone is reduced to its digits.
func (c *Client) SendText(ctx context.Context, phone, text string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	to := DigitsOnly(phone)
	if to == "" {
		return fmt.Errorf("invalid phone %q", phone)
	}
	_, err := c.doJSON(ctx, http.MethodPost, "/messages", textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	}, nil)
	return err
}

func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody any, respBody any) (int, error) {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	version := c.APIVersion
	if version == "" {
		version = "v17.0"
	}

	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return 0, err
		}
	}

	u := fmt.Sprintf("%s/%s/%s%s", strings.TrimSuffix(base, "/"), version, c.PhoneID, path)
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	b, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return resp.StatusCode, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(b) > 0 {
			return resp.StatusCode, fmt.Errorf("whatsapp api error: status=%d body=%s", resp.StatusCode, string(b))
		}
		return resp.StatusCode, fmt.Errorf("whatsapp api error: status=%d", resp.StatusCode)
	}

	if respBody != nil && len(b) > 0 {
		if err := json.Unmarshal(b, respBody); err != nil {
			return resp.StatusCode, fmt.Errorf("decode whatsapp response failed: %w body=%s", err, string(b))
		}
	}
	return resp.StatusCode, nil
}
