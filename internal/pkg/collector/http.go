// Package collector delivers location samples to the remote collector.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"golang.org/x/oauth2"
)

// envelope mirrors the collector's response body.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// HTTPSender posts each sample as a flat JSON object. A sample counts as
// delivered only when the collector answers 2xx with success set.
type HTTPSender struct {
	client *http.Client
	url    string
}

// NewHTTPClient returns a client that attaches token as a bearer
// credential. An empty token yields a plain client.
func NewHTTPClient(token string, timeout time.Duration) *http.Client {
	client := &http.Client{}
	if token != "" {
		client = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}))
	}
	client.Timeout = timeout
	return client
}

func NewHTTPSender(client *http.Client, url string) *HTTPSender {
	return &HTTPSender{client: client, url: url}
}

// Send implements tracking.Sender.
func (s *HTTPSender) Send(ctx context.Context, sample tracking.LocationSample) error {
	body, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", tracking.ErrUploadRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", sample.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach collector: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read collector response: %w", err)
	}

	var env envelope
	_ = json.Unmarshal(data, &env)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if !env.Success {
			return fmt.Errorf("collector did not confirm sample (status %d)", resp.StatusCode)
		}
		return nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: status %d: %s", tracking.ErrUploadRejected, resp.StatusCode, env.describe())
	default:
		return fmt.Errorf("collector returned status %d: %s", resp.StatusCode, env.describe())
	}
}

func (e envelope) describe() string {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return e.Message
}
