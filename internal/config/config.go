package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"12"`

	RedditClientID     string        `envconfig:"REDDIT_CLIENT_ID" default:""`
	RedditClientSecret string        `envconfig:"REDDIT_CLIENT_SECRET" default:""`
	RedditUserAgent    string        `envconfig:"REDDIT_USER_AGENT" default:"api:pt.meneses.goals.zone:v1 (by /u/meneses_pt)"`
	RedditAPIURL       string        `envconfig:"REDDIT_API_URL" default:"https://oauth.reddit.com"`
	RedditTokenURL     string        `envconfig:"REDDIT_TOKEN_URL" default:"https://www.reddit.com/api/v1/access_token"`
	RedditTimeout      time.Duration `envconfig:"REDDIT_TIMEOUT" default:"10s"`

	NEREndpoint string        `envconfig:"NER_ENDPOINT" default:""`
	NERTimeout  time.Duration `envconfig:"NER_TIMEOUT" default:"10s"`

	FixturesAPIURL      string        `envconfig:"FIXTURES_API_URL" default:"https://api.sofascore.com/api/v1"`
	FixturesProxyURL    string        `envconfig:"FIXTURES_PROXY_URL" default:""`
	FixturesMaxAttempts int           `envconfig:"FIXTURES_MAX_ATTEMPTS" default:"5"`
	FixturesTimeout     time.Duration `envconfig:"FIXTURES_TIMEOUT" default:"10s"`

	WorkerPoolSize   int           `envconfig:"WORKER_POOL_SIZE" default:"10"`
	VideosInterval   time.Duration `envconfig:"VIDEOS_INTERVAL" default:"1m"`
	FixturesInterval time.Duration `envconfig:"FIXTURES_INTERVAL" default:"5m"`

	NotifyMaxAttempts int           `envconfig:"NOTIFY_MAX_ATTEMPTS" default:"3"`
	NotifyTimeout     time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"15s"`
	TelegramAPIURL    string        `envconfig:"TELEGRAM_API_URL" default:"https://api.telegram.org"`
	TwitterAPIURL     string        `envconfig:"TWITTER_API_URL" default:"https://api.twitter.com/2"`

	RedisURL      string `envconfig:"REDIS_URL" default:""`
	AMQPURL       string `envconfig:"AMQP_URL" default:""`
	AMQPExchange  string `envconfig:"AMQP_EXCHANGE" default:"goals_zone.events"`
	MQTTBrokerURL string `envconfig:"MQTT_BROKER_URL" default:""`
	MQTTClientID  string `envconfig:"MQTT_CLIENT_ID" default:"goals-zone"`

	AdminAPIKeyHash    string `envconfig:"ADMIN_API_KEY_HASH" default:""`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("WORKER_POOL_SIZE must be >= 1")
	}
	if c.NotifyMaxAttempts < 1 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be >= 1")
	}
	if c.FixturesMaxAttempts < 1 {
		return fmt.Errorf("FIXTURES_MAX_ATTEMPTS must be >= 1")
	}
	if c.VideosInterval < time.Second || c.FixturesInterval < time.Second {
		return fmt.Errorf("VIDEOS_INTERVAL and FIXTURES_INTERVAL must be >= 1s")
	}
	if (c.RedditClientID == "") != (c.RedditClientSecret == "") {
		return fmt.Errorf("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET must be set together")
	}
	for name, raw := range map[string]string{
		"REDDIT_API_URL":     c.RedditAPIURL,
		"REDDIT_TOKEN_URL":   c.RedditTokenURL,
		"FIXTURES_API_URL":   c.FixturesAPIURL,
		"FIXTURES_PROXY_URL": c.FixturesProxyURL,
		"NER_ENDPOINT":       c.NEREndpoint,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", name, err)
		}
	}
	return nil
}

// RedditEnabled reports whether reddit credentials are configured.
func (c *Config) RedditEnabled() bool {
	return c != nil && strings.TrimSpace(c.RedditClientID) != "" && strings.TrimSpace(c.RedditClientSecret) != ""
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
