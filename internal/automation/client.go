// ABOUTME: HTTP caller for the external automation webhook (e.g. an n8n workflow).
// ABOUTME: Single JSON POST with timeout and status check; used by the email.send action.

package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client posts action payloads to the automation webhook.
type Client struct {
	url    string
	token  string
	client *http.Client
}

// NewClient creates a webhook client for the given URL. token is optional;
// when set it is sent as a bearer token.
func NewClient(url, token string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

// Post sends the payload as JSON. Any transport error or non-2xx status is
// returned as an error; callers treat both uniformly as a failed action.
func (c *Client) Post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling automation webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		// Keep a short body excerpt for diagnosability
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("automation webhook returned %s: %s", resp.Status, excerpt)
	}

	return nil
}
