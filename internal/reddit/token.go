package reddit

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/meneses-pt/goals.zone/internal/globaltime"
)

// tokenMargin renews the token this long before reddit expires it.
const tokenMargin = 60 * time.Second

// TokenClient holds an application-only reddit token and renews it shortly before expiry.
// Concurrent callers share a single renewal.
type TokenClient struct {
	config     clientcredentials.Config
	httpClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

func NewTokenClient(clientID, clientSecret, tokenURL, userAgent string, timeout time.Duration) *TokenClient {
	return &TokenClient{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: userAgentTransport{base: http.DefaultTransport, userAgent: userAgent},
		},
	}
}

// AccessToken returns a valid bearer token, fetching a new one when missing or near expiry.
func (t *TokenClient) AccessToken(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != nil && t.fresh(t.token) {
		return t.token.AccessToken, nil
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, t.httpClient)
	token, err := t.config.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch reddit token: %w", err)
	}
	t.token = token
	return token.AccessToken, nil
}

// Invalidate drops the cached token so the next call renews it.
func (t *TokenClient) Invalidate() {
	t.mu.Lock()
	t.token = nil
	t.mu.Unlock()
}

func (t *TokenClient) fresh(token *oauth2.Token) bool {
	if token.AccessToken == "" {
		return false
	}
	if token.Expiry.IsZero() {
		return true
	}
	return globaltime.Now().Before(token.Expiry.Add(-tokenMargin))
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (u userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if u.userAgent == "" {
		return u.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", u.userAgent)
	return u.base.RoundTrip(clone)
}
