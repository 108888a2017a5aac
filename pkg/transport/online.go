package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WaitForOnline blocks until the API root answers with anything but 503 or
// a connection failure, checking every interval. It gives up with
// ErrTimeout after timeout.
func (c *Client) WaitForOnline(ctx context.Context, timeout, every time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %v", timeout)
	}
	if every <= 0 {
		return fmt.Errorf("interval must be positive, got: %v", every)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.WithContext(backoff.NewConstantBackOff(every), waitCtx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		return c.checkOnline(waitCtx)
	}, b)
	if err == nil {
		c.logger.Debug("api is online", "attempts", attempt)
		return nil
	}

	// Only our own deadline is a timeout; a caller cancellation is reported
	// as such.
	if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %v (%d attempts): %v", ErrTimeout, timeout, attempt, err)
	}
	return err
}

func (c *Client) checkOnline(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/", nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.blob.Do(req)
	if err != nil {
		return fmt.Errorf("api unreachable: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("api unavailable (status %d)", resp.StatusCode)
	}
	return nil
}
