package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meneses-pt/goals.zone/internal/cli"
	"github.com/meneses-pt/goals.zone/internal/fixtures"
)

// runFetchVideos runs one video cycle with the listings the cycle counter selects.
func runFetchVideos(args []string) int {
	fs := flag.NewFlagSet("fetch-videos", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Upper bound for the whole cycle")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	return runOnce(envLoader, *timeout, "videos", func(ctx context.Context, c *components) error {
		return c.runner.RunVideosCycle(ctx)
	})
}

// runFetchFixtures runs one fixtures cycle. Without --mode the cycle counter picks the listing.
func runFetchFixtures(args []string) int {
	fs := flag.NewFlagSet("fetch-fixtures", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Upper bound for the whole cycle")
	modeRaw := fs.String("mode", "", "Listing to pull: live, full_day or full_day_inverse (policy if empty)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	var (
		mode     fixtures.Mode
		explicit = strings.TrimSpace(*modeRaw) != ""
	)
	if explicit {
		parsed, err := fixtures.ParseMode(*modeRaw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "--mode: %v\n", err)
			return 2
		}
		mode = parsed
	}

	return runOnce(envLoader, *timeout, "fixtures", func(ctx context.Context, c *components) error {
		if !explicit {
			return c.runner.RunFixturesCycle(ctx)
		}
		stats, err := c.fixtures.Sync(ctx, mode)
		fmt.Printf(
			"fixtures mode=%s fetched=%d invalid=%d saved=%d created=%d failed=%d deleted=%d discarded=%t\n",
			stats.Mode, stats.Fetched, stats.Invalid, stats.Saved, stats.Created, stats.Failed, stats.Deleted, stats.Discarded,
		)
		return err
	})
}

func runOnce(envLoader *cli.EnvLoader, timeout time.Duration, name string, cycle func(context.Context, *components) error) int {
	cfg, logger, code := bootstrap(envLoader)
	if code != 0 {
		return code
	}
	pool, code := connect(cfg, logger)
	if code != 0 {
		return code
	}
	defer pool.Close()

	sigCtx, cancel := signalContext()
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(sigCtx, timeout)
	defer timeoutCancel()

	c, err := buildComponents(ctx, cfg, pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build pipeline")
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		return 1
	}
	defer c.Close()

	if err := cycle(ctx, c); err != nil {
		logger.Error().Err(err).Str("cycle", name).Msg("cycle failed")
		fmt.Fprintf(os.Stderr, "%s cycle failed: %v\n", name, err)
		return 1
	}
	fmt.Printf("ok: %s cycle completed\n", name)
	return 0
}

// runRun keeps both cycles going until SIGINT or SIGTERM.
func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	noVideos := fs.Bool("no-videos", false, "Do not run the video loop")
	noFixtures := fs.Bool("no-fixtures", false, "Do not run the fixtures loop")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *noVideos && *noFixtures {
		fmt.Fprintln(os.Stderr, "--no-videos and --no-fixtures leave nothing to run")
		return 2
	}

	cfg, logger, code := bootstrap(envLoader)
	if code != 0 {
		return code
	}
	pool, code := connect(cfg, logger)
	if code != 0 {
		return code
	}
	defer pool.Close()

	ctx, cancel := signalContext()
	defer cancel()

	c, err := buildComponents(ctx, cfg, pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build pipeline")
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		return 1
	}
	defer c.Close()

	g, gctx := errgroup.WithContext(ctx)
	if !*noVideos && cfg.RedditEnabled() {
		g.Go(func() error {
			return c.runner.Loop(gctx, "videos", cfg.VideosInterval, c.runner.RunVideosCycle)
		})
	}
	if !*noFixtures {
		g.Go(func() error {
			return c.runner.Loop(gctx, "fixtures", cfg.FixturesInterval, c.runner.RunFixturesCycle)
		})
	}

	logger.Info().
		Dur("videos_interval", cfg.VideosInterval).
		Dur("fixtures_interval", cfg.FixturesInterval).
		Int("workers", cfg.WorkerPoolSize).
		Msg("goals-zone pipeline started")
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("pipeline stopped with error")
		return 1
	}
	logger.Info().Msg("goals-zone pipeline stopped")
	return 0
}
