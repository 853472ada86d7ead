package db

import (
	"time"

	"gorm.io/datatypes"
)

// Team maps goals.teams. team_id is the fixture provider's stable id.
type Team struct {
	TeamID    int64     `gorm:"column:team_id;primaryKey;autoIncrement:false"`
	Name      string    `gorm:"column:name;type:varchar(256);not null"`
	ShortName string    `gorm:"column:short_name;type:varchar(256);not null;default:''"`
	NameCode  *string   `gorm:"column:name_code;type:varchar(5)"`
	Slug      string    `gorm:"column:slug;type:varchar(200);not null;unique"`
	LogoURL   string    `gorm:"column:logo_url;type:varchar(256);not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Team) TableName() string { return "goals.teams" }

// TeamAlias maps goals.team_aliases. An alias is unique per team only.
type TeamAlias struct {
	TeamAliasID int64  `gorm:"column:team_alias_id;primaryKey;autoIncrement"`
	Alias       string `gorm:"column:alias;type:varchar(256);not null;uniqueIndex:team_aliases_alias_team_uniq"`
	TeamID      int64  `gorm:"column:team_id;type:bigint;not null;uniqueIndex:team_aliases_alias_team_uniq"`
}

func (TeamAlias) TableName() string { return "goals.team_aliases" }

// AffiliateTerm maps goals.affiliate_terms.
type AffiliateTerm struct {
	AffiliateTermID int64  `gorm:"column:affiliate_term_id;primaryKey;autoIncrement"`
	Term            string `gorm:"column:term;type:varchar(25);not null;unique"`
	IsPrefix        bool   `gorm:"column:is_prefix;type:boolean;not null;default:false"`
}

func (AffiliateTerm) TableName() string { return "goals.affiliate_terms" }

// Category maps goals.categories.
type Category struct {
	CategoryID int64   `gorm:"column:category_id;primaryKey;autoIncrement:false"`
	Name       *string `gorm:"column:name;type:varchar(256)"`
	Slug       string  `gorm:"column:slug;type:varchar(200);not null;unique"`
	Priority   *int    `gorm:"column:priority;type:integer"`
	Flag       *string `gorm:"column:flag;type:varchar(256)"`
}

func (Category) TableName() string { return "goals.categories" }

// Tournament maps goals.tournaments.
type Tournament struct {
	TournamentID int64   `gorm:"column:tournament_id;primaryKey;autoIncrement:false"`
	UniqueID     *int64  `gorm:"column:unique_id;type:bigint"`
	Name         *string `gorm:"column:name;type:varchar(256)"`
	UniqueName   *string `gorm:"column:unique_name;type:varchar(256)"`
	Slug         string  `gorm:"column:slug;type:varchar(200);not null;unique"`
	CategoryID   *int64  `gorm:"column:category_id;type:bigint"`
}

func (Tournament) TableName() string { return "goals.tournaments" }

// Season maps goals.seasons.
type Season struct {
	SeasonID int64   `gorm:"column:season_id;primaryKey;autoIncrement:false"`
	Name     *string `gorm:"column:name;type:varchar(256)"`
	Year     *string `gorm:"column:year;type:varchar(256)"`
	Slug     string  `gorm:"column:slug;type:varchar(200);not null;unique"`
}

func (Season) TableName() string { return "goals.seasons" }

// Match maps goals.matches. (home, away, datetime +-1 day) is the fixture dedup key.
type Match struct {
	MatchID           int64      `gorm:"column:match_id;primaryKey;autoIncrement"`
	MatchUUID         string     `gorm:"column:match_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	HomeTeamID        *int64     `gorm:"column:home_team_id;type:bigint;index"`
	AwayTeamID        *int64     `gorm:"column:away_team_id;type:bigint;index"`
	TournamentID      *int64     `gorm:"column:tournament_id;type:bigint"`
	CategoryID        *int64     `gorm:"column:category_id;type:bigint"`
	SeasonID          *int64     `gorm:"column:season_id;type:bigint"`
	Score             *string    `gorm:"column:score;type:varchar(10)"`
	Datetime          *time.Time `gorm:"column:datetime;type:timestamptz;index"`
	Slug              string     `gorm:"column:slug;type:varchar(200);not null;unique"`
	Status            string     `gorm:"column:status;type:varchar(50);not null;default:'finished'"`
	FirstMsgSent      bool       `gorm:"column:first_msg_sent;type:boolean;not null;default:false"`
	HighlightsMsgSent bool       `gorm:"column:highlights_msg_sent;type:boolean;not null;default:false"`
	FirstVideoAt      *time.Time `gorm:"column:first_video_at;type:timestamptz;index"`
	LastNotifiedAt    *time.Time `gorm:"column:last_notified_at;type:timestamptz"`
	LastNotifiedText  *string    `gorm:"column:last_notified_text;type:varchar(500)"`
	CreatedAt         time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Match) TableName() string { return "goals.matches" }

// VideoGoal maps goals.video_goals.
type VideoGoal struct {
	VideoGoalID            int64     `gorm:"column:video_goal_id;primaryKey;autoIncrement"`
	VideoGoalUUID          string    `gorm:"column:video_goal_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	MatchID                int64     `gorm:"column:match_id;type:bigint;not null;index"`
	Source                 string    `gorm:"column:source;type:varchar(32);not null;default:'soccer'"`
	URL                    *string   `gorm:"column:url;type:varchar(1024)"`
	Title                  *string   `gorm:"column:title;type:varchar(200)"`
	LinkTitle              *string   `gorm:"column:link_title;type:varchar(200)"`
	Minute                 *string   `gorm:"column:minute;type:varchar(12)"`
	Author                 *string   `gorm:"column:author;type:varchar(200)"`
	MsgSent                bool      `gorm:"column:msg_sent;type:boolean;not null;default:false"`
	NextMirrorsCheck       time.Time `gorm:"column:next_mirrors_check;type:timestamptz;not null;default:now()"`
	AutoModeratorCommentID *string   `gorm:"column:auto_moderator_comment_id;type:varchar(20)"`
	CreatedAt              time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (VideoGoal) TableName() string { return "goals.video_goals" }

// VideoGoalMirror maps goals.video_goal_mirrors; (video_goal_id, url) is unique.
type VideoGoalMirror struct {
	MirrorID    int64     `gorm:"column:mirror_id;primaryKey;autoIncrement"`
	VideoGoalID int64     `gorm:"column:video_goal_id;type:bigint;not null;uniqueIndex:video_goal_mirrors_video_url_uniq"`
	URL         string    `gorm:"column:url;type:varchar(1024);not null;uniqueIndex:video_goal_mirrors_video_url_uniq"`
	Title       *string   `gorm:"column:title;type:varchar(200)"`
	Author      *string   `gorm:"column:author;type:varchar(200)"`
	MsgSent     bool      `gorm:"column:msg_sent;type:boolean;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (VideoGoalMirror) TableName() string { return "goals.video_goal_mirrors" }

// PostMatch maps goals.post_matches, one row per processed post.
type PostMatch struct {
	PostMatchID   int64     `gorm:"column:post_match_id;primaryKey;autoIncrement"`
	Permalink     string    `gorm:"column:permalink;type:varchar(1024);not null;unique"`
	VideoGoalID   *int64    `gorm:"column:video_goal_id;type:bigint;unique"`
	Title         *string   `gorm:"column:title;type:varchar(200)"`
	HomeTeamStr   *string   `gorm:"column:home_team_str;type:varchar(256)"`
	AwayTeamStr   *string   `gorm:"column:away_team_str;type:varchar(256)"`
	TitleLanguage *string   `gorm:"column:title_language;type:varchar(8)"`
	FetchedAt     time.Time `gorm:"column:fetched_at;type:timestamptz;not null;default:now()"`
}

func (PostMatch) TableName() string { return "goals.post_matches" }

// NerLog maps goals.ner_logs.
type NerLog struct {
	NerLogID      int64     `gorm:"column:ner_log_id;primaryKey;autoIncrement"`
	Title         string    `gorm:"column:title;type:varchar(1024);not null;unique"`
	RegexHomeTeam *string   `gorm:"column:regex_home_team;type:varchar(256)"`
	RegexAwayTeam *string   `gorm:"column:regex_away_team;type:varchar(256)"`
	NerHomeTeam   *string   `gorm:"column:ner_home_team;type:varchar(256)"`
	NerAwayTeam   *string   `gorm:"column:ner_away_team;type:varchar(256)"`
	TitleLanguage *string   `gorm:"column:title_language;type:varchar(8)"`
	Reviewed      bool      `gorm:"column:reviewed;type:boolean;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (NerLog) TableName() string { return "goals.ner_logs" }

// TweetRule maps goals.tweet_rules.
type TweetRule struct {
	TweetRuleID       int64     `gorm:"column:tweet_rule_id;primaryKey;autoIncrement"`
	Title             string    `gorm:"column:title;type:varchar(100);not null;unique"`
	ConsumerKey       string    `gorm:"column:consumer_key;type:varchar(100);not null"`
	ConsumerSecret    string    `gorm:"column:consumer_secret;type:varchar(100);not null"`
	AccessToken       string    `gorm:"column:access_token;type:varchar(100);not null"`
	AccessTokenSecret string    `gorm:"column:access_token_secret;type:varchar(100);not null"`
	Message           string    `gorm:"column:message;type:varchar(2000);not null"`
	EventType         int16     `gorm:"column:event_type;type:smallint;not null;default:1;index"`
	Source            *string   `gorm:"column:source;type:varchar(32)"`
	LinkRegex         *string   `gorm:"column:link_regex;type:varchar(2000)"`
	AuthorFilter      *string   `gorm:"column:author_filter;type:varchar(200)"`
	Active            bool      `gorm:"column:active;type:boolean;not null;default:true"`
	CreatedAt         time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (TweetRule) TableName() string { return "goals.tweet_rules" }

// WebhookRule maps goals.webhook_rules.
type WebhookRule struct {
	WebhookRuleID int64     `gorm:"column:webhook_rule_id;primaryKey;autoIncrement"`
	Title         string    `gorm:"column:title;type:varchar(100);not null;unique"`
	Destination   string    `gorm:"column:destination;type:varchar(16);not null;default:'discord'"`
	WebhookURL    string    `gorm:"column:webhook_url;type:varchar(2000);not null"`
	Message       string    `gorm:"column:message;type:varchar(2000);not null"`
	EventType     int16     `gorm:"column:event_type;type:smallint;not null;default:1;index"`
	Source        *string   `gorm:"column:source;type:varchar(32)"`
	LinkRegex     *string   `gorm:"column:link_regex;type:varchar(2000)"`
	AuthorFilter  *string   `gorm:"column:author_filter;type:varchar(200)"`
	Active        bool      `gorm:"column:active;type:boolean;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (WebhookRule) TableName() string { return "goals.webhook_rules" }

// RuleFilter maps goals.rule_filters: include/exclude lists for tweet and webhook rules.
type RuleFilter struct {
	RuleFilterID int64  `gorm:"column:rule_filter_id;primaryKey;autoIncrement"`
	RuleKind     string `gorm:"column:rule_kind;type:varchar(16);not null;uniqueIndex:rule_filters_uniq"`
	RuleID       int64  `gorm:"column:rule_id;type:bigint;not null;uniqueIndex:rule_filters_uniq"`
	Mode         string `gorm:"column:mode;type:varchar(8);not null;uniqueIndex:rule_filters_uniq"`
	Target       string `gorm:"column:target;type:varchar(16);not null;uniqueIndex:rule_filters_uniq"`
	TargetID     int64  `gorm:"column:target_id;type:bigint;not null;uniqueIndex:rule_filters_uniq"`
}

func (RuleFilter) TableName() string { return "goals.rule_filters" }

// MonitoringAccount maps goals.monitoring_accounts.
type MonitoringAccount struct {
	MonitoringAccountID int64   `gorm:"column:monitoring_account_id;primaryKey;autoIncrement"`
	Title               string  `gorm:"column:title;type:varchar(200);not null;unique"`
	TelegramBotKey      string  `gorm:"column:telegram_bot_key;type:varchar(1024);not null"`
	TelegramAlertBotKey string  `gorm:"column:telegram_alert_bot_key;type:varchar(1024);not null"`
	TelegramChatID      *int64  `gorm:"column:telegram_chat_id;type:bigint"`
	GoalsHeartbeatURL   *string `gorm:"column:goals_heartbeat_url;type:varchar(1024)"`
	MatchesHeartbeatURL *string `gorm:"column:matches_heartbeat_url;type:varchar(1024)"`
	RedditHeartbeatURL  *string `gorm:"column:reddit_heartbeat_url;type:varchar(1024)"`
}

func (MonitoringAccount) TableName() string { return "goals.monitoring_accounts" }

// FetchRun maps goals.fetch_runs, one row per scheduler cycle and source.
type FetchRun struct {
	FetchRunID       int64          `gorm:"column:fetch_run_id;primaryKey;autoIncrement"`
	CycleID          string         `gorm:"column:cycle_id;type:uuid;not null;index"`
	Kind             string         `gorm:"column:kind;type:varchar(16);not null;index"`
	Source           string         `gorm:"column:source;type:varchar(64);not null"`
	Status           string         `gorm:"column:status;type:varchar(16);not null;default:'running'"`
	ItemsFetched     int            `gorm:"column:items_fetched;type:integer;not null;default:0"`
	ItemsNew         int            `gorm:"column:items_new;type:integer;not null;default:0"`
	ItemsRechecked   int            `gorm:"column:items_rechecked;type:integer;not null;default:0"`
	ItemsFailed      int            `gorm:"column:items_failed;type:integer;not null;default:0"`
	CursorCheckpoint datatypes.JSON `gorm:"column:cursor_checkpoint;type:jsonb"`
	ErrorMessage     *string        `gorm:"column:error_message;type:text"`
	StartedAt        time.Time      `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt       *time.Time     `gorm:"column:finished_at;type:timestamptz"`
}

func (FetchRun) TableName() string { return "goals.fetch_runs" }

func autoMigrateModels() []any {
	return []any{
		&Team{},
		&TeamAlias{},
		&AffiliateTerm{},
		&Category{},
		&Tournament{},
		&Season{},
		&Match{},
		&VideoGoal{},
		&VideoGoalMirror{},
		&PostMatch{},
		&NerLog{},
		&TweetRule{},
		&WebhookRule{},
		&RuleFilter{},
		&MonitoringAccount{},
		&FetchRun{},
	}
}
