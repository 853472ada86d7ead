package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const listingJSON = `{
  "kind": "Listing",
  "data": {
    "after": "t3_next",
    "dist": 2,
    "children": [
      {"kind": "t3", "data": {
        "id": "abc", "permalink": "/r/soccer/comments/abc/benfica/",
        "title": "Benfica 1-0 Porto &amp; more - Di María 20'",
        "url": "https://streamable.com/abc", "author": "goalbot",
        "created_utc": 1709326800.0, "link_flair_text": "Media"
      }},
      {"kind": "t3", "data": {
        "id": "def", "permalink": "/r/soccer/comments/def/discussion/",
        "title": "Match Thread", "url": null, "author": "mod",
        "created_utc": 1709326900.5, "link_flair_text": null
      }}
    ]
  }
}`

const commentsJSON = `[
  {"kind": "Listing", "data": {"children": [{"kind": "t3", "data": {"id": "abc"}}]}},
  {"kind": "Listing", "data": {"children": [
    {"kind": "t1", "data": {
      "id": "c1", "author": "AutoModerator", "body": "Mirrors below", "body_html": "<p>Mirrors below</p>",
      "replies": {"kind": "Listing", "data": {"children": [
        {"kind": "t1", "data": {"id": "c2", "author": "fan", "body": "Alt angle: https://dubz.co/v/1", "body_html": "", "replies": ""}},
        {"kind": "more", "data": {"count": 3}}
      ]}}
    }},
    {"kind": "t1", "data": {"id": "c3", "author": "other", "body": "what a goal", "body_html": "", "replies": ""}}
  ]}}
]`

func TestClient_Listing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/soccer/new" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "25" {
			t.Errorf("unexpected limit: %q", got)
		}
		if got := r.URL.Query().Get("after"); got != "t3_prev" {
			t.Errorf("unexpected after: %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "goals-test" {
			t.Errorf("unexpected user agent: %q", got)
		}
		_, _ = fmt.Fprint(w, listingJSON)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "goals-test", nil, time.Second, zerolog.Nop())
	page, err := c.Listing(context.Background(), "soccer", 25, "t3_prev")
	if err != nil {
		t.Fatalf("unexpected listing error: %v", err)
	}
	if page.After != "t3_next" || page.Dist != 2 || len(page.Posts) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	first := page.Posts[0]
	if !first.ShouldProcess() || page.Posts[1].ShouldProcess() {
		t.Fatalf("unexpected process decisions")
	}
	if got, want := first.CleanTitle(), "Benfica 1-0 Porto & more - Di María 20'"; got != want {
		t.Fatalf("unexpected title: got %q want %q", got, want)
	}
	if got := first.CreatedAt(); !got.Equal(time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected created at: %s", got)
	}
}

func TestClient_Comments(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/soccer/comments/abc/benfica/c1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = fmt.Fprint(w, commentsJSON)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil, time.Second, zerolog.Nop())
	comments, err := c.Comments(context.Background(), "/r/soccer/comments/abc/benfica/", "c1")
	if err != nil {
		t.Fatalf("unexpected comments error: %v", err)
	}
	if len(comments) != 2 || comments[0].Author != "AutoModerator" {
		t.Fatalf("unexpected comments: %+v", comments)
	}
	if len(comments[0].Replies) != 1 || comments[0].Replies[0].Body != "Alt angle: https://dubz.co/v/1" {
		t.Fatalf("unexpected replies: %+v", comments[0].Replies)
	}
}

func TestClient_RateLimitAndRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var status atomic.Int32
	status.Store(http.StatusTooManyRequests)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil, time.Second, zerolog.Nop())
	c.backoff = time.Millisecond

	if _, err := c.Listing(context.Background(), "soccer", 10, ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("unexpected error for 429: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("unexpected attempts for 429: %d", calls.Load())
	}

	calls.Store(0)
	status.Store(http.StatusBadGateway)
	if _, err := c.Listing(context.Background(), "soccer", 10, ""); err == nil {
		t.Fatalf("expected error for 502")
	}
	if calls.Load() != 3 {
		t.Fatalf("unexpected attempts for 502: got %d want 3", calls.Load())
	}
}

func TestTokenClient_CachesAndSharesRefresh(t *testing.T) {
	t.Parallel()

	var issued atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			t.Errorf("unexpected basic auth: %q %q", user, pass)
		}
		if got := r.Header.Get("User-Agent"); got != "goals-test" {
			t.Errorf("unexpected user agent: %q", got)
		}
		n := issued.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"bearer","expires_in":3600}`, n)
	}))
	defer srv.Close()

	tokens := NewTokenClient("id", "secret", srv.URL, "goals-test", time.Second)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tok, err := tokens.AccessToken(context.Background()); err != nil || tok != "tok-1" {
				t.Errorf("unexpected token: %q %v", tok, err)
			}
		}()
	}
	wg.Wait()
	if issued.Load() != 1 {
		t.Fatalf("unexpected token requests: got %d want 1", issued.Load())
	}

	tokens.Invalidate()
	if tok, err := tokens.AccessToken(context.Background()); err != nil || tok != "tok-2" {
		t.Fatalf("unexpected renewed token: %q %v", tok, err)
	}
}

func TestTokenClient_RenewsInsideMargin(t *testing.T) {
	t.Parallel()

	var issued atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		issued.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"access_token":"short","token_type":"bearer","expires_in":30}`)
	}))
	defer srv.Close()

	tokens := NewTokenClient("id", "secret", srv.URL, "", time.Second)
	for i := 0; i < 2; i++ {
		if _, err := tokens.AccessToken(context.Background()); err != nil {
			t.Fatalf("unexpected token error: %v", err)
		}
	}
	if issued.Load() != 2 {
		t.Fatalf("unexpected token requests: got %d want 2", issued.Load())
	}
}
