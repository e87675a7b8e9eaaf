package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/holon-run/version-check/pkg/log"
)

// Poster delivers a payload to a response_url.
type Poster interface {
	Post(ctx context.Context, url string, payload Payload) error
}

// Client posts payloads over HTTP.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a Client. A nil httpClient gets a client with timeout.
func NewClient(httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: httpClient}
}

// Post sends payload as JSON. Any non-2xx status is an error.
func (c *Client) Post(ctx context.Context, url string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to slack: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack responded with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	log.Debug("posted slack response", "status", resp.StatusCode, "bytes", len(body))
	return nil
}
