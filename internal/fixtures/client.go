// Package fixtures pulls football fixtures from the provider API and keeps the match
// catalog in step with them.
package fixtures

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const referer = "https://www.sofascore.com/"

// Client fetches event listings. Requests go through the proxy first and fall back to
// one direct attempt when every proxied attempt failed.
type Client struct {
	baseURL     string
	proxied     *http.Client
	direct      *http.Client
	maxAttempts int
	backoff     time.Duration
	logger      zerolog.Logger
}

// NewClient builds a Client. An empty proxyURL sends every attempt directly.
func NewClient(baseURL, proxyURL string, timeout time.Duration, maxAttempts int, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("fixtures api url is required")
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		direct:      newHTTPClient(nil, timeout, logger),
		maxAttempts: maxAttempts,
		backoff:     time.Second,
		logger:      logger,
	}
	if strings.TrimSpace(proxyURL) != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse fixtures proxy url: %w", err)
		}
		c.proxied = newHTTPClient(parsed, timeout, logger)
	}
	return c, nil
}

func newHTTPClient(proxy *url.URL, timeout time.Duration, logger zerolog.Logger) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &compressedTransport{transport: transport, logger: logger},
	}
}

// ScheduledEvents lists every event of one day. inverse asks for the provider's second
// listing, which carries events the first one omits near midnight.
func (c *Client) ScheduledEvents(ctx context.Context, day time.Time, inverse bool) ([]json.RawMessage, error) {
	endpoint := c.baseURL + "/sport/football/scheduled-events/" + day.Format("2006-01-02")
	if inverse {
		endpoint += "/inverse"
	}
	return c.events(ctx, endpoint)
}

// LiveEvents lists the events in progress.
func (c *Client) LiveEvents(ctx context.Context) ([]json.RawMessage, error) {
	return c.events(ctx, c.baseURL+"/sport/football/events/live")
}

func (c *Client) events(ctx context.Context, endpoint string) ([]json.RawMessage, error) {
	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode events from %s: %w", endpoint, err)
	}
	if payload.Events == nil {
		return nil, fmt.Errorf("response from %s has no events key", endpoint)
	}
	return payload.Events, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	if c.proxied != nil {
		for attempt := 1; attempt <= c.maxAttempts; attempt++ {
			if attempt > 1 {
				if err := sleepContext(ctx, time.Duration(attempt-1)*c.backoff); err != nil {
					return nil, err
				}
			}
			body, err := c.get(ctx, c.proxied, endpoint)
			if err == nil {
				return body, nil
			}
			lastErr = err
			c.logger.Warn().Err(err).Int("attempt", attempt).Str("url", endpoint).Msg("proxied fixtures request failed")
		}
	}

	body, err := c.get(ctx, c.direct, endpoint)
	if err != nil {
		if lastErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", endpoint, errors.Join(lastErr, err))
		}
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, client *http.Client, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", referer)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}
	return body, nil
}

type compressedTransport struct {
	transport http.RoundTripper
	logger    zerolog.Logger
}

func (c *compressedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := c.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.Warn().Err(err).Msg("gzip decode failed, returning raw body")
			return resp, nil
		}
		resp.Body = &gzipReadCloser{Reader: gz, closer: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.ContentLength = -1
	}
	return resp, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	closer io.ReadCloser
}

func (g *gzipReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		g.closer.Close()
		return err
	}
	return g.closer.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
