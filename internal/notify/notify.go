package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client posts worker-side events to the API's internal notify endpoint,
// which fans them out to connected websocket clients. Calls are best-effort;
// workers log failures and move on.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

func New(baseURL, secret string) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// ProductStatus is the payload pushed when an image job finishes or fails.
type ProductStatus struct {
	ProductID  string `json:"productId"`
	Status     string `json:"status"`
	ImageIndex int    `json:"imageIndex"`
	Rendition  string `json:"rendition,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (c *Client) NotifyProductStatus(ctx context.Context, payload ProductStatus) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/internal/notify-product", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-worker-secret", c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify: unexpected status %d", resp.StatusCode)
	}
	return nil
}
