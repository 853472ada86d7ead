package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrRateLimited is returned when reddit answers 429.
var ErrRateLimited = errors.New("reddit rate limited")

const maxBodyBytes = 8 << 20

type Client struct {
	baseURL     string
	userAgent   string
	tokens      *TokenClient
	http        *http.Client
	maxAttempts int
	backoff     time.Duration
	logger      zerolog.Logger
}

// NewClient builds a client for the OAuth API at baseURL. tokens may be nil for
// unauthenticated use against a test server.
func NewClient(baseURL, userAgent string, tokens *TokenClient, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   userAgent,
		tokens:      tokens,
		http:        &http.Client{Timeout: timeout},
		maxAttempts: 3,
		backoff:     time.Second,
		logger:      logger.With().Str("component", "reddit").Logger(),
	}
}

// Listing fetches the newest posts of a subreddit.
func (c *Client) Listing(ctx context.Context, subreddit string, limit int, after string) (Page, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if after != "" {
		q.Set("after", after)
	}
	endpoint := fmt.Sprintf("%s/r/%s/new?%s", c.baseURL, url.PathEscape(subreddit), q.Encode())

	var payload thing
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return Page{}, fmt.Errorf("list r/%s: %w", subreddit, err)
	}
	if len(payload.Data) == 0 {
		return Page{}, fmt.Errorf("list r/%s: response has no data", subreddit)
	}
	var l listing
	if err := json.Unmarshal(payload.Data, &l); err != nil {
		return Page{}, fmt.Errorf("decode r/%s listing: %w", subreddit, err)
	}

	page := Page{Posts: make([]Post, 0, len(l.Children))}
	if l.After != nil {
		page.After = *l.After
	}
	for _, child := range l.Children {
		var p Post
		if err := json.Unmarshal(child.Data, &p); err != nil {
			return Page{}, fmt.Errorf("decode r/%s post: %w", subreddit, err)
		}
		page.Posts = append(page.Posts, p)
	}
	page.Dist = len(page.Posts)
	if l.Dist != nil {
		page.Dist = *l.Dist
	}
	return page, nil
}

// Comments returns the top-level comments of a post, or the subtree rooted at commentID.
func (c *Client) Comments(ctx context.Context, permalink, commentID string) ([]Comment, error) {
	endpoint := c.baseURL + "/" + strings.Trim(permalink, "/") + "/"
	if commentID != "" {
		endpoint += commentID
	}

	var payload []thing
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("comments %s: %w", permalink, err)
	}
	if len(payload) < 2 {
		return nil, nil
	}
	var l listing
	if err := json.Unmarshal(payload[1].Data, &l); err != nil {
		return nil, fmt.Errorf("decode comments %s: %w", permalink, err)
	}
	comments, err := decodeComments(l.Children)
	if err != nil {
		return nil, fmt.Errorf("decode comments %s: %w", permalink, err)
	}
	return comments, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * c.backoff):
			}
		}
		retry, err := c.getOnce(ctx, endpoint, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			return err
		}
		c.logger.Warn().Err(err).Int("attempt", attempt).Str("url", endpoint).Msg("reddit request failed")
	}
	return lastErr
}

func (c *Client) getOnce(ctx context.Context, endpoint string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return true, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return true, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return true, fmt.Errorf("read body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized && c.tokens != nil:
		c.tokens.Invalidate()
		return true, fmt.Errorf("unauthorized")
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("unexpected status %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		return false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return strings.TrimSpace(string(b))
}
