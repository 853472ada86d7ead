package db

import (
	"context"
	"fmt"
	"time"
)

// MatchState is the notification-relevant view of a match.
type MatchState struct {
	ID                int64
	UUID              string
	Slug              string
	Datetime          *time.Time
	Status            string
	Score             *string
	HomeTeamID        int64
	HomeName          string
	HomeNameCode      *string
	AwayTeamID        int64
	AwayName          string
	AwayNameCode      *string
	TournamentID      *int64
	TournamentName    *string
	CategoryID        *int64
	CategoryName      *string
	FirstMsgSent      bool
	HighlightsMsgSent bool
	LastNotifiedAt    *time.Time
	LastNotifiedText  *string
	VideoCount        int64
}

// Rule kinds stored in goals.rule_filters.rule_kind.
const (
	RuleKindTweet   = "tweet"
	RuleKindWebhook = "webhook"
)

// NotifyRuleRow is an active tweet or webhook rule with its include/exclude lists.
type NotifyRuleRow struct {
	ID                int64
	Kind              string
	Title             string
	Destination       string
	WebhookURL        string
	Message           string
	EventType         int16
	Source            *string
	LinkRegex         *string
	AuthorFilter      *string
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string

	IncludeCategories  []int64
	IncludeTournaments []int64
	IncludeTeams       []int64
	ExcludeCategories  []int64
	ExcludeTournaments []int64
	ExcludeTeams       []int64
}

type MonitoringAccountRow struct {
	ID                  int64
	Title               string
	TelegramBotKey      string
	TelegramAlertBotKey string
	TelegramChatID      *int64
	GoalsHeartbeatURL   *string
	MatchesHeartbeatURL *string
	RedditHeartbeatURL  *string
}

// GetMatchState loads the current notification state of a match.
func (p *Pool) GetMatchState(ctx context.Context, matchID int64) (MatchState, error) {
	var s MatchState
	err := p.QueryRow(ctx, `
SELECT
	m.match_id,
	m.match_uuid::text,
	m.slug,
	m.datetime,
	m.status,
	m.score,
	COALESCE(h.team_id, 0),
	COALESCE(h.name, ''),
	h.name_code,
	COALESCE(a.team_id, 0),
	COALESCE(a.name, ''),
	a.name_code,
	m.tournament_id,
	t.name,
	m.category_id,
	c.name,
	m.first_msg_sent,
	m.highlights_msg_sent,
	m.last_notified_at,
	m.last_notified_text,
	(SELECT COUNT(*) FROM goals.video_goals vg WHERE vg.match_id = m.match_id)
FROM goals.matches m
LEFT JOIN goals.teams h
	ON h.team_id = m.home_team_id
LEFT JOIN goals.teams a
	ON a.team_id = m.away_team_id
LEFT JOIN goals.tournaments t
	ON t.tournament_id = m.tournament_id
LEFT JOIN goals.categories c
	ON c.category_id = m.category_id
WHERE m.match_id = $1
`, matchID).Scan(
		&s.ID,
		&s.UUID,
		&s.Slug,
		&s.Datetime,
		&s.Status,
		&s.Score,
		&s.HomeTeamID,
		&s.HomeName,
		&s.HomeNameCode,
		&s.AwayTeamID,
		&s.AwayName,
		&s.AwayNameCode,
		&s.TournamentID,
		&s.TournamentName,
		&s.CategoryID,
		&s.CategoryName,
		&s.FirstMsgSent,
		&s.HighlightsMsgSent,
		&s.LastNotifiedAt,
		&s.LastNotifiedText,
		&s.VideoCount,
	)
	if err != nil {
		return MatchState{}, fmt.Errorf("get match state %d: %w", matchID, err)
	}
	return s, nil
}

// RecordNotification stores the last notified text and time used by duplicate suppression.
func (p *Pool) RecordNotification(ctx context.Context, matchID int64, at time.Time, text string) error {
	if _, err := p.Exec(ctx, `
UPDATE goals.matches
SET last_notified_at = $2, last_notified_text = left($3, 500), updated_at = now()
WHERE match_id = $1
`, matchID, at.UTC(), text); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

func (p *Pool) MarkFirstVideoSent(ctx context.Context, matchID int64) error {
	return p.execMark(ctx, "first video", `UPDATE goals.matches SET first_msg_sent = true, updated_at = now() WHERE match_id = $1`, matchID)
}

func (p *Pool) MarkHighlightsSent(ctx context.Context, matchID int64) error {
	return p.execMark(ctx, "highlights", `UPDATE goals.matches SET highlights_msg_sent = true, updated_at = now() WHERE match_id = $1`, matchID)
}

func (p *Pool) MarkVideoGoalSent(ctx context.Context, videoGoalID int64) error {
	return p.execMark(ctx, "video", `UPDATE goals.video_goals SET msg_sent = true WHERE video_goal_id = $1`, videoGoalID)
}

func (p *Pool) MarkMirrorSent(ctx context.Context, mirrorID int64) error {
	return p.execMark(ctx, "mirror", `UPDATE goals.video_goal_mirrors SET msg_sent = true, updated_at = now() WHERE mirror_id = $1`, mirrorID)
}

func (p *Pool) execMark(ctx context.Context, label, query string, id int64) error {
	tag, err := p.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark %s sent: %w", label, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark %s sent: row %d: %w", label, id, ErrNoRows)
	}
	return nil
}

// ListNotifyRules returns the active tweet and webhook rules for an event type.
func (p *Pool) ListNotifyRules(ctx context.Context, eventType int16) ([]NotifyRuleRow, error) {
	rows, err := p.Query(ctx, `
SELECT
	'tweet' AS kind,
	r.tweet_rule_id,
	r.title,
	'twitter' AS destination,
	'' AS webhook_url,
	r.message,
	r.event_type,
	r.source,
	r.link_regex,
	r.author_filter,
	r.consumer_key,
	r.consumer_secret,
	r.access_token,
	r.access_token_secret
FROM goals.tweet_rules r
WHERE r.active AND r.event_type = $1
UNION ALL
SELECT
	'webhook' AS kind,
	w.webhook_rule_id,
	w.title,
	w.destination,
	w.webhook_url,
	w.message,
	w.event_type,
	w.source,
	w.link_regex,
	w.author_filter,
	'', '', '', ''
FROM goals.webhook_rules w
WHERE w.active AND w.event_type = $1
ORDER BY 1, 2
`, eventType)
	if err != nil {
		return nil, fmt.Errorf("query notify rules: %w", err)
	}
	defer rows.Close()

	out := make([]NotifyRuleRow, 0, 8)
	index := make(map[string]int)
	for rows.Next() {
		var r NotifyRuleRow
		if err := rows.Scan(
			&r.Kind,
			&r.ID,
			&r.Title,
			&r.Destination,
			&r.WebhookURL,
			&r.Message,
			&r.EventType,
			&r.Source,
			&r.LinkRegex,
			&r.AuthorFilter,
			&r.ConsumerKey,
			&r.ConsumerSecret,
			&r.AccessToken,
			&r.AccessTokenSecret,
		); err != nil {
			return nil, fmt.Errorf("scan notify rule: %w", err)
		}
		index[ruleKey(r.Kind, r.ID)] = len(out)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notify rules: %w", err)
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}
	if err := p.attachRuleFilters(ctx, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pool) attachRuleFilters(ctx context.Context, rules []NotifyRuleRow, index map[string]int) error {
	rows, err := p.Query(ctx, `
SELECT rule_kind, rule_id, mode, target, target_id
FROM goals.rule_filters
ORDER BY rule_filter_id
`)
	if err != nil {
		return fmt.Errorf("query rule filters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind, mode, target string
			ruleID, targetID   int64
		)
		if err := rows.Scan(&kind, &ruleID, &mode, &target, &targetID); err != nil {
			return fmt.Errorf("scan rule filter: %w", err)
		}
		i, ok := index[ruleKey(kind, ruleID)]
		if !ok {
			continue
		}
		r := &rules[i]
		switch mode + ":" + target {
		case "include:category":
			r.IncludeCategories = append(r.IncludeCategories, targetID)
		case "include:tournament":
			r.IncludeTournaments = append(r.IncludeTournaments, targetID)
		case "include:team":
			r.IncludeTeams = append(r.IncludeTeams, targetID)
		case "exclude:category":
			r.ExcludeCategories = append(r.ExcludeCategories, targetID)
		case "exclude:tournament":
			r.ExcludeTournaments = append(r.ExcludeTournaments, targetID)
		case "exclude:team":
			r.ExcludeTeams = append(r.ExcludeTeams, targetID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rule filters: %w", err)
	}
	return nil
}

func ruleKey(kind string, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// ListMonitoringAccounts returns every configured operator account.
func (p *Pool) ListMonitoringAccounts(ctx context.Context) ([]MonitoringAccountRow, error) {
	rows, err := p.Query(ctx, `
SELECT
	monitoring_account_id,
	title,
	telegram_bot_key,
	telegram_alert_bot_key,
	telegram_chat_id,
	goals_heartbeat_url,
	matches_heartbeat_url,
	reddit_heartbeat_url
FROM goals.monitoring_accounts
ORDER BY monitoring_account_id
`)
	if err != nil {
		return nil, fmt.Errorf("query monitoring accounts: %w", err)
	}
	defer rows.Close()

	out := make([]MonitoringAccountRow, 0, 2)
	for rows.Next() {
		var a MonitoringAccountRow
		if err := rows.Scan(
			&a.ID,
			&a.Title,
			&a.TelegramBotKey,
			&a.TelegramAlertBotKey,
			&a.TelegramChatID,
			&a.GoalsHeartbeatURL,
			&a.MatchesHeartbeatURL,
			&a.RedditHeartbeatURL,
		); err != nil {
			return nil, fmt.Errorf("scan monitoring account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monitoring accounts: %w", err)
	}
	return out, nil
}
