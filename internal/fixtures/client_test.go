package fixtures

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestClient_ScheduledEventsDecodesGzip(t *testing.T) {
	t.Parallel()

	var gotPath, gotReferer, gotEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotReferer = r.Header.Get("Referer")
		gotEncoding = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(`{"events":[{"id":1},{"id":2}]}`))
		_ = gz.Close()
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/api/v1", "", time.Second, 3, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	events, err := c.ScheduledEvents(context.Background(), time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC), true)
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("unexpected event count: got %d want 2", len(events))
	}
	if want := "/api/v1/sport/football/scheduled-events/2024-03-01/inverse"; gotPath != want {
		t.Fatalf("unexpected path: got %q want %q", gotPath, want)
	}
	if gotReferer != referer || gotEncoding != "gzip" {
		t.Fatalf("unexpected headers: referer=%q encoding=%q", gotReferer, gotEncoding)
	}
}

func TestClient_FallsBackToDirectAfterProxyAttempts(t *testing.T) {
	t.Parallel()

	var proxyCalls, directCalls atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyCalls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer proxy.Close()
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		directCalls.Add(1)
		if r.URL.Path != "/sport/football/events/live" {
			t.Errorf("unexpected path: %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"events":[]}`))
	}))
	defer origin.Close()

	c, err := NewClient(origin.URL, proxy.URL, time.Second, 3, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	c.backoff = 0

	events, err := c.LiveEvents(context.Background())
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("unexpected events: %d", len(events))
	}
	if proxyCalls.Load() != 3 || directCalls.Load() != 1 {
		t.Fatalf("unexpected calls: proxy=%d direct=%d", proxyCalls.Load(), directCalls.Load())
	}
}

func TestClient_MissingEventsKeyIsAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"code":404}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "", time.Second, 1, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	if _, err := c.LiveEvents(context.Background()); err == nil {
		t.Fatalf("expected error for response without events")
	}
}

func TestClient_StatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "", time.Second, 1, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	if _, err := c.LiveEvents(context.Background()); err == nil {
		t.Fatalf("expected status error")
	}
}
