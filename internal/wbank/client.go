// Package wbank implements the HTTP client for the World Bank API v2, the
// source of the annual indicator series this tool models. All methods are
// context-aware, respect the shared rate limiter, and retry on transient
// errors (429, 5xx). The API needs no key.
package wbank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.worldbank.org/v2/"
	maxRetries     = 4
)

// Client is the World Bank API HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	debug      bool
}

// NewClient creates a Client with the given timeout and request rate.
func NewClient(baseURL string, timeout time.Duration, ratePerSec float64, debug bool) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	if burst > 2 {
		burst = 2
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		debug:   debug,
	}
}

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

// pageHeader is the first element of every World Bank response envelope.
type pageHeader struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
	PerPage any `json:"per_page"` // number on data endpoints, string elsewhere
}

// getPage performs one GET against the API and splits the two-element
// response envelope into the page header and the raw row array. Rate
// limiting and retries happen here.
func (c *Client) getPage(ctx context.Context, endpoint string, params url.Values) (pageHeader, json.RawMessage, error) {
	var hdr pageHeader

	if err := c.limiter.Wait(ctx); err != nil {
		return hdr, nil, err
	}

	params.Set("format", "json")
	reqURL := c.baseURL + endpoint + "?" + params.Encode()

	if c.debug {
		slog.Debug("wbank request", "url", reqURL)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))*500) * time.Millisecond
			backoff += time.Duration(rand.Intn(250)) * time.Millisecond
			slog.Debug("retrying after backoff", "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return hdr, nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return hdr, nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "sta137-cli/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading body: %w", err)
			continue
		}

		if c.debug {
			slog.Debug("wbank response", "status", resp.StatusCode, "bytes", len(body))
		}

		// Retry on server errors and rate limiting.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return hdr, nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		return splitEnvelope(body)
	}
	return hdr, nil, fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

// splitEnvelope unpacks the [header, rows] array the API wraps every payload
// in. Invalid parameters come back as a one-element array holding a message
// list instead.
func splitEnvelope(body []byte) (pageHeader, json.RawMessage, error) {
	var hdr pageHeader

	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return hdr, nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(parts) < 2 {
		var errEnvelope struct {
			Message []struct {
				ID    string `json:"id"`
				Key   string `json:"key"`
				Value string `json:"value"`
			} `json:"message"`
		}
		if len(parts) == 1 && json.Unmarshal(parts[0], &errEnvelope) == nil && len(errEnvelope.Message) > 0 {
			m := errEnvelope.Message[0]
			return hdr, nil, fmt.Errorf("API error %s: %s", m.ID, m.Value)
		}
		return hdr, nil, fmt.Errorf("unexpected response shape (%d elements)", len(parts))
	}
	if err := json.Unmarshal(parts[0], &hdr); err != nil {
		return hdr, nil, fmt.Errorf("decoding page header: %w", err)
	}
	return hdr, parts[1], nil
}
