package search

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultReadyInterval is the polling interval used by WaitReady
const DefaultReadyInterval = 2 * time.Second

// Ping checks whether the backend answers a trivial query
func (c *Client) Ping(ctx context.Context) error {
	endpoint, err := c.searchURL("test", 1)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// WaitReady polls the backend until it answers or timeout elapses
func WaitReady(ctx context.Context, c *Client, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultReadyInterval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = c.Ping(ctx); lastErr == nil {
			c.logger.Info("Search backend is ready")
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("search backend not ready after %s: %w", timeout, lastErr)
		case <-ticker.C:
		}
	}
}

// ReadyRestart returns a restart hook that only waits for the backend to
// become ready again. Restarting the container itself belongs to deployment.
func ReadyRestart(c *Client, timeout time.Duration) RestartFunc {
	return func(ctx context.Context) error {
		return WaitReady(ctx, c, timeout, DefaultReadyInterval)
	}
}
