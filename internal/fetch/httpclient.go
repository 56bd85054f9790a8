// Package fetch pulls external candidate data sources: the GitHub API
// for repositories and readme content, and arbitrary web pages for
// readable text extraction.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

type HTTPClient struct {
	client  *http.Client
	retries int
	backoff time.Duration
}

func NewHTTPClient(timeout time.Duration, retries int, backoff time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	if backoff == 0 {
		backoff = 300 * time.Millisecond
	}
	return &HTTPClient{client: &http.Client{Timeout: timeout}, retries: retries, backoff: backoff}
}

func (c *HTTPClient) DoJSON(ctx context.Context, method, url string, headers map[string]string, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	var lastErr error
	tries := c.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if payload != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			status := resp.StatusCode
			if status >= 200 && status < 300 {
				if out == nil {
					resp.Body.Close()
					return nil
				}
				decodeErr := json.NewDecoder(resp.Body).Decode(out)
				resp.Body.Close()
				return decodeErr
			}
			// read response body (best-effort) to include in error
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = errors.New(resp.Status + ": " + string(b))
		}

		if attempt < tries-1 {
			select {
			case <-time.After(c.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// Get fetches a raw document and returns its body up to limit bytes.
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New(resp.Status)
	}
	if limit <= 0 {
		limit = 1 << 20
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
