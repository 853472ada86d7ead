package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/meneses-pt/goals.zone/internal/db"
)

func TestWebhookNotifier_PayloadFields(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	bodies := make([]map[string]string, 0, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("unexpected body: %v", err)
		}
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := Delivery{Rule: db.NotifyRuleRow{ID: 1, WebhookURL: srv.URL}, Message: "goal"}
	for _, n := range []*WebhookNotifier{
		NewDiscordNotifier(time.Second),
		NewSlackNotifier(time.Second),
		NewIFTTTNotifier(time.Second),
	} {
		if err := n.Deliver(context.Background(), d); err != nil {
			t.Fatalf("unexpected deliver error: %v", err)
		}
	}

	if bodies[0]["content"] != "goal" || bodies[1]["text"] != "goal" || bodies[2]["message"] != "goal" {
		t.Fatalf("unexpected payloads: %+v", bodies)
	}
}

func TestWebhookNotifier_StatusErrors(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusTooManyRequests)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	n := NewIFTTTNotifier(time.Second)
	d := Delivery{Rule: db.NotifyRuleRow{ID: 1, WebhookURL: srv.URL}, Message: "goal"}
	if err := n.Deliver(context.Background(), d); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("unexpected error for 429: %v", err)
	}

	status.Store(http.StatusMultipleChoices)
	err := n.Deliver(context.Background(), d)
	if err == nil || errors.Is(err, ErrRateLimited) {
		t.Fatalf("unexpected error for 300: %v", err)
	}

	if err := n.Deliver(context.Background(), Delivery{Rule: db.NotifyRuleRow{ID: 2}}); err == nil {
		t.Fatalf("expected error without webhook url")
	}
}

func TestTweetNotifier_SignsRequest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			t.Errorf("unexpected authorization header: %q", r.Header.Get("Authorization"))
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "goal" {
			t.Errorf("unexpected tweet text: %q", body["text"])
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	n := NewTweetNotifier(srv.URL+"/2/", time.Second)
	rule := db.NotifyRuleRow{ID: 1, ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at", AccessTokenSecret: "ats"}
	if err := n.Deliver(context.Background(), Delivery{Rule: rule, Message: "goal"}); err != nil {
		t.Fatalf("unexpected tweet error: %v", err)
	}
	if err := n.Deliver(context.Background(), Delivery{Rule: db.NotifyRuleRow{ID: 2}, Message: "goal"}); err == nil {
		t.Fatalf("expected error without credentials")
	}
}

type stubAccounts []db.MonitoringAccountRow

func (s stubAccounts) ListMonitoringAccounts(context.Context) ([]db.MonitoringAccountRow, error) {
	return s, nil
}

func TestMonitor_AlertAndHeartbeat(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	paths := make([]string, 0, 4)
	var sent telegramMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path)
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&sent)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	chatID := int64(99)
	heartbeat := srv.URL + "/ping/goals"
	accounts := stubAccounts{
		{ID: 1, TelegramBotKey: "info", TelegramAlertBotKey: "alert", TelegramChatID: &chatID, GoalsHeartbeatURL: &heartbeat},
		{ID: 2, TelegramBotKey: "other"},
	}
	m := NewMonitor(accounts, srv.URL, time.Second, zerolog.Nop())

	m.Alert(context.Background(), Alert{Text: "*match not found*", IsAlert: true, Silent: true})
	m.Heartbeat(context.Background(), HeartbeatGoals)
	m.Heartbeat(context.Background(), HeartbeatMatches)

	want := []string{"/botalert/sendMessage", "/ping/goals"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected requests: got %v want %v", paths, want)
	}
	if sent.ChatID != 99 || sent.ParseMode != "Markdown" || !sent.DisableNotification {
		t.Fatalf("unexpected telegram message: %+v", sent)
	}
}
