// ABOUTME: Outbound message sender for the messaging platform's send API.
// ABOUTME: One JSON POST per message; failures come back as errors, never panics.

package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Sender delivers a text message to a platform user.
type Sender interface {
	Send(ctx context.Context, userID, text string) error
}

// HTTPSender implements Sender against the platform's HTTP send endpoint.
type HTTPSender struct {
	url    string
	token  string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPSender creates a sender for the given send endpoint.
func NewHTTPSender(url, token string, logger *slog.Logger) *HTTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSender{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With("component", "sender"),
	}
}

// Send posts one outbound message. A non-2xx status is an error so callers
// can treat transport and API failures uniformly.
func (s *HTTPSender) Send(ctx context.Context, userID, text string) error {
	body, err := json.Marshal(map[string]string{
		"to":   userID,
		"text": text,
	})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("platform send returned %s: %s", resp.Status, excerpt)
	}

	return nil
}
