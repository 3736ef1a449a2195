// Package revalidate asks the storefront frontend to drop cached pages.
package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client posts paths to the frontend revalidation endpoint. Failures are
// logged and never returned: a stale page is not worth failing a write over.
type Client struct {
	url     string
	secret  string
	timeout time.Duration
	http    *http.Client
	log     *zap.Logger
}

// New returns a client. An empty url disables revalidation.
func New(url, secret string, log *zap.Logger) *Client {
	return &Client{
		url:     url,
		secret:  secret,
		timeout: 3 * time.Second,
		http:    &http.Client{},
		log:     log,
	}
}

type payload struct {
	Paths  []string `json:"paths"`
	Secret string   `json:"secret,omitempty"`
}

// Revalidate sends paths to the frontend.
func (c *Client) Revalidate(ctx context.Context, paths ...string) {
	if c.url == "" || len(paths) == 0 {
		return
	}
	if err := c.send(ctx, paths); err != nil {
		c.log.Warn("revalidation failed", zap.Strings("paths", paths), zap.Error(err))
		return
	}
	c.log.Debug("revalidated", zap.Strings("paths", paths))
}

func (c *Client) send(ctx context.Context, paths []string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(payload{Paths: paths, Secret: c.secret})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("revalidate endpoint returned %d", resp.StatusCode)
	}
	return nil
}
