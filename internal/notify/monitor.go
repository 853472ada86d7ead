package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meneses-pt/goals.zone/internal/db"
)

// Alert is an operator message. IsAlert selects the alert bot; Silent mutes the chat notification.
type Alert struct {
	Text    string
	IsAlert bool
	Silent  bool
}

// Alerter reaches the operators.
type Alerter interface {
	Alert(ctx context.Context, a Alert)
}

// Heartbeat identifies which cycle completed.
type Heartbeat string

const (
	HeartbeatGoals   Heartbeat = "goals"
	HeartbeatMatches Heartbeat = "matches"
	HeartbeatReddit  Heartbeat = "reddit"
)

type AccountStore interface {
	ListMonitoringAccounts(ctx context.Context) ([]db.MonitoringAccountRow, error)
}

// Monitor sends Telegram messages and heartbeat pings for every monitoring account.
type Monitor struct {
	store       AccountStore
	telegramURL string
	client      *http.Client
	logger      zerolog.Logger
}

func NewMonitor(store AccountStore, telegramURL string, timeout time.Duration, logger zerolog.Logger) *Monitor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Monitor{
		store:       store,
		telegramURL: strings.TrimRight(telegramURL, "/"),
		client:      &http.Client{Timeout: timeout},
		logger:      logger.With().Str("component", "monitor").Logger(),
	}
}

type telegramMessage struct {
	ChatID              int64  `json:"chat_id"`
	Text                string `json:"text"`
	ParseMode           string `json:"parse_mode"`
	DisableNotification bool   `json:"disable_notification"`
}

// Alert never fails the caller; delivery errors are logged.
func (m *Monitor) Alert(ctx context.Context, a Alert) {
	if m == nil || m.store == nil {
		return
	}
	accounts, err := m.store.ListMonitoringAccounts(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("list monitoring accounts failed")
		return
	}
	for _, acc := range accounts {
		if acc.TelegramChatID == nil {
			continue
		}
		key := acc.TelegramBotKey
		if a.IsAlert {
			key = acc.TelegramAlertBotKey
		}
		if key == "" {
			continue
		}
		url := fmt.Sprintf("%s/bot%s/sendMessage", m.telegramURL, key)
		err := postJSON(ctx, m.client, url, telegramMessage{
			ChatID:              *acc.TelegramChatID,
			Text:                a.Text,
			ParseMode:           "Markdown",
			DisableNotification: a.Silent,
		})
		if err != nil {
			m.logger.Error().Err(err).Int64("account_id", acc.ID).Msg("telegram message not sent")
		}
	}
}

// Heartbeat pings the configured url of kind for every account.
func (m *Monitor) Heartbeat(ctx context.Context, kind Heartbeat) {
	if m == nil || m.store == nil {
		return
	}
	accounts, err := m.store.ListMonitoringAccounts(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("list monitoring accounts failed")
		return
	}
	for _, acc := range accounts {
		var target *string
		switch kind {
		case HeartbeatGoals:
			target = acc.GoalsHeartbeatURL
		case HeartbeatMatches:
			target = acc.MatchesHeartbeatURL
		case HeartbeatReddit:
			target = acc.RedditHeartbeatURL
		}
		if target == nil || *target == "" {
			continue
		}
		if err := m.ping(ctx, *target); err != nil {
			m.logger.Warn().Err(err).Str("heartbeat", string(kind)).Int64("account_id", acc.ID).Msg("heartbeat failed")
		}
	}
}

func (m *Monitor) ping(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build heartbeat request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("heartbeat: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// LogAlerter logs alerts when no monitoring accounts are wired.
type LogAlerter struct {
	Logger zerolog.Logger
}

func (l LogAlerter) Alert(_ context.Context, a Alert) {
	l.Logger.Warn().Bool("is_alert", a.IsAlert).Bool("silent", a.Silent).Msg(a.Text)
}
