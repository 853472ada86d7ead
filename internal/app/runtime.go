package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/meneses-pt/goals.zone/internal/cli"
	"github.com/meneses-pt/goals.zone/internal/config"
	"github.com/meneses-pt/goals.zone/internal/db"
	"github.com/meneses-pt/goals.zone/internal/extract"
	"github.com/meneses-pt/goals.zone/internal/fixtures"
	"github.com/meneses-pt/goals.zone/internal/logging"
	"github.com/meneses-pt/goals.zone/internal/notify"
	"github.com/meneses-pt/goals.zone/internal/reddit"
	"github.com/meneses-pt/goals.zone/internal/resolver"
	"github.com/meneses-pt/goals.zone/internal/scheduler"
	"github.com/meneses-pt/goals.zone/internal/teammatch"
	"github.com/meneses-pt/goals.zone/internal/videos"
)

const notifyBackoff = time.Second

// bootstrap loads the env file, config and logger. A non-zero code means the command must exit.
func bootstrap(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, int) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, zerolog.Nop(), 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, zerolog.Nop(), 1
	}
	return cfg, logger, 0
}

// connect opens the pool with a bounded dial.
func connect(cfg *config.Config, logger zerolog.Logger) (*db.Pool, int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return nil, 1
	}
	return pool, 0
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// components is the wired ingestion pipeline for one process.
type components struct {
	monitor  *notify.Monitor
	resolver *resolver.Resolver
	gate     *notify.Gate
	videos   *videos.Service
	fixtures *fixtures.Service
	runner   *scheduler.Runner
	closers  []io.Closer
	logger   zerolog.Logger
}

func buildComponents(ctx context.Context, cfg *config.Config, pool *db.Pool, logger zerolog.Logger) (*components, error) {
	c := &components{logger: logger}

	matcher, err := teammatch.LoadMatcher(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("load affiliate terms: %w", err)
	}
	recognizer, err := newRecognizer(cfg)
	if err != nil {
		return nil, err
	}
	c.resolver = resolver.New(pool, matcher, recognizer, pool, logging.Component(logger, "resolver"))
	c.monitor = notify.NewMonitor(pool, cfg.TelegramAPIURL, cfg.NotifyTimeout, logger)

	var locker notify.Locker = notify.NewMemoryLocker()
	if cfg.RedisURL != "" {
		redisLocker, err := notify.NewRedisLocker(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		locker = redisLocker
		c.closers = append(c.closers, redisLocker)
	}

	notifiers, err := c.buildNotifiers(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.gate = notify.NewGate(pool, locker, notifiers, c.monitor, notify.Options{
		MaxAttempts: cfg.NotifyMaxAttempts,
		Backoff:     notifyBackoff,
	}, logger)

	var (
		lister   scheduler.Lister
		comments videos.CommentSource
	)
	if cfg.RedditEnabled() {
		tokens := reddit.NewTokenClient(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditTokenURL, cfg.RedditUserAgent, cfg.RedditTimeout)
		client := reddit.NewClient(cfg.RedditAPIURL, cfg.RedditUserAgent, tokens, cfg.RedditTimeout, logger)
		lister = client
		comments = client
	} else {
		logger.Warn().Msg("reddit credentials missing; video ingestion disabled")
	}
	c.videos = videos.NewService(pool, c.resolver, comments, c.gate, c.monitor, logger)

	fixtureClient, err := fixtures.NewClient(cfg.FixturesAPIURL, cfg.FixturesProxyURL, cfg.FixturesTimeout, cfg.FixturesMaxAttempts, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("build fixtures client: %w", err)
	}
	c.fixtures = fixtures.NewService(fixtureClient, pool, c.gate, c.monitor, c.monitor, logger)

	opts := scheduler.Options{
		Runs:     pool,
		Fixtures: c.fixtures,
		Monitor:  c.monitor,
		Workers:  cfg.WorkerPoolSize,
	}
	if lister != nil {
		opts.Lister = lister
		opts.Videos = c.videos
	}
	c.runner = scheduler.NewRunner(opts, logger)
	return c, nil
}

func (c *components) buildNotifiers(cfg *config.Config) (map[string]notify.Notifier, error) {
	notifiers := map[string]notify.Notifier{
		notify.DestinationTwitter: notify.NewTweetNotifier(cfg.TwitterAPIURL, cfg.NotifyTimeout),
		notify.DestinationDiscord: notify.NewDiscordNotifier(cfg.NotifyTimeout),
		notify.DestinationSlack:   notify.NewSlackNotifier(cfg.NotifyTimeout),
		notify.DestinationIFTTT:   notify.NewIFTTTNotifier(cfg.NotifyTimeout),
	}
	if cfg.AMQPURL != "" {
		n := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange)
		notifiers[notify.DestinationAMQP] = n
		c.closers = append(c.closers, n)
	}
	if cfg.MQTTBrokerURL != "" {
		n, err := notify.NewMQTTNotifier(cfg.MQTTBrokerURL, cfg.MQTTClientID, cfg.NotifyTimeout)
		if err != nil {
			return nil, fmt.Errorf("connect mqtt: %w", err)
		}
		notifiers[notify.DestinationMQTT] = n
		c.closers = append(c.closers, n)
	}
	return notifiers, nil
}

// Close releases broker and redis connections.
func (c *components) Close() {
	if c == nil {
		return
	}
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	if err := errors.Join(errs...); err != nil {
		c.logger.Warn().Err(err).Msg("closing connections failed")
	}
}

// newRecognizer returns nil when no NER endpoint is configured.
func newRecognizer(cfg *config.Config) (extract.Recognizer, error) {
	if cfg.NEREndpoint == "" {
		return nil, nil
	}
	client, err := extract.NewNERClient(cfg.NEREndpoint, cfg.NERTimeout)
	if err != nil {
		return nil, fmt.Errorf("build ner client: %w", err)
	}
	return client, nil
}
