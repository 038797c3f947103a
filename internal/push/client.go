// Package push is a thin HTTP client for the external push-notification
// gateway. Delivery is best-effort; callers log failures and move on.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client sends push messages to device tokens through the gateway's
// /v1/send endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type message struct {
	To       string            `json:"to"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Send pushes one message to one device token.
func (c *Client) Send(ctx context.Context, token, title, body string, metadata map[string]string) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("push client not configured")
	}

	payload, err := json.Marshal(message{
		To:    token,
		Title: title,
		Body:  body,
		Data:  metadata,
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	url := c.baseURL + "/v1/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
