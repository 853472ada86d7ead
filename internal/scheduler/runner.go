package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/meneses-pt/goals.zone/internal/db"
	"github.com/meneses-pt/goals.zone/internal/fixtures"
	"github.com/meneses-pt/goals.zone/internal/globaltime"
	"github.com/meneses-pt/goals.zone/internal/notify"
	"github.com/meneses-pt/goals.zone/internal/reddit"
	"github.com/meneses-pt/goals.zone/internal/videos"
)

const fixturesSource = "sofascore"

type RunStore interface {
	StartFetchRun(ctx context.Context, cycleID, kind, source string, startedAt time.Time) (int64, error)
	FinishFetchRun(ctx context.Context, runID int64, stats db.FetchRunStats, cursor any, runErr error, finishedAt time.Time) error
	CountCompletedCycles(ctx context.Context, kind string) (int64, error)
}

type Lister interface {
	Listing(ctx context.Context, subreddit string, limit int, after string) (reddit.Page, error)
}

type VideoProcessor interface {
	Classify(ctx context.Context, source videos.Source, post reddit.Post, now time.Time) (videos.Action, db.PostLookup, error)
	ProcessPost(ctx context.Context, source videos.Source, post reddit.Post) (videos.Result, error)
	Recheck(ctx context.Context, source videos.Source, videoGoalID int64, post reddit.Post) error
}

type FixtureSyncer interface {
	Sync(ctx context.Context, mode fixtures.Mode) (fixtures.Stats, error)
}

type Monitor interface {
	Alert(ctx context.Context, a notify.Alert)
	Heartbeat(ctx context.Context, kind notify.Heartbeat)
}

// Cursor is the pagination state stored with each fetch run.
type Cursor struct {
	After    string `json:"after,omitempty"`
	Pages    int    `json:"pages"`
	FullScan bool   `json:"full_scan,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// Runner executes cycles. Items of one listing page run on a bounded worker pool.
type Runner struct {
	runs     RunStore
	lister   Lister
	videos   VideoProcessor
	fixtures FixtureSyncer
	monitor  Monitor
	workers  int
	logger   zerolog.Logger
}

// Options carries the Runner's collaborators. Lister with Videos, or Fixtures, may be nil
// when that side is disabled.
type Options struct {
	Runs     RunStore
	Lister   Lister
	Videos   VideoProcessor
	Fixtures FixtureSyncer
	Monitor  Monitor
	Workers  int
}

func NewRunner(opts Options, logger zerolog.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{
		runs:     opts.Runs,
		lister:   opts.Lister,
		videos:   opts.Videos,
		fixtures: opts.Fixtures,
		monitor:  opts.Monitor,
		workers:  opts.Workers,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// RunVideosCycle reads the listings chosen by VideoPolicy and dispatches every post.
// A failing listing is recorded and alerted unless reddit rate limited it; the others still run.
func (r *Runner) RunVideosCycle(ctx context.Context) error {
	if r.lister == nil || r.videos == nil {
		return fmt.Errorf("video ingestion is not configured")
	}
	completed, err := r.runs.CountCompletedCycles(ctx, db.FetchKindVideos)
	if err != nil {
		return err
	}
	cycleID := uuid.NewString()
	log := r.logger.With().Str("cycle_id", cycleID).Str("kind", db.FetchKindVideos).Int64("completed", completed).Logger()

	var errs []error
	for _, listing := range VideoPolicy(completed) {
		runID, err := r.runs.StartFetchRun(ctx, cycleID, db.FetchKindVideos, listing.Subreddit, globaltime.UTC())
		if err != nil {
			return err
		}
		stats, cursor, runErr := r.runListing(ctx, log, listing)
		if err := r.runs.FinishFetchRun(ctx, runID, stats, cursor, runErr, globaltime.UTC()); err != nil {
			log.Error().Err(err).Int64("fetch_run_id", runID).Msg("finish fetch run failed")
		}
		if runErr != nil {
			errs = append(errs, fmt.Errorf("r/%s: %w", listing.Subreddit, runErr))
			if errors.Is(runErr, reddit.ErrRateLimited) {
				log.Warn().Str("subreddit", listing.Subreddit).Msg("listing rate limited")
				continue
			}
			r.alert(ctx, fmt.Sprintf("*r/%s fetch failed*\n%s", listing.Subreddit, runErr.Error()))
		}
	}
	r.heartbeat(ctx, notify.HeartbeatGoals)
	return errors.Join(errs...)
}

func (r *Runner) runListing(ctx context.Context, log zerolog.Logger, listing Listing) (db.FetchRunStats, Cursor, error) {
	var stats db.FetchRunStats
	cursor := Cursor{FullScan: listing.FullScan}
	log = log.With().Str("subreddit", listing.Subreddit).Logger()

	for page := 0; page < listing.Pages; page++ {
		result, err := r.lister.Listing(ctx, listing.Subreddit, listing.Limit, cursor.After)
		if err != nil {
			return stats, cursor, err
		}
		if listing.Source == videos.SourceSoccer {
			r.heartbeat(ctx, notify.HeartbeatReddit)
		}

		pageStats := r.dispatch(ctx, log, listing.Source, result.Posts)
		stats.ItemsFetched += len(result.Posts)
		stats.ItemsNew += pageStats.ItemsNew
		stats.ItemsRechecked += pageStats.ItemsRechecked
		stats.ItemsFailed += pageStats.ItemsFailed
		cursor.Pages++
		cursor.After = result.After

		log.Info().
			Int("page", page+1).
			Int("pages", listing.Pages).
			Int("posts", len(result.Posts)).
			Int("new", pageStats.ItemsNew).
			Int("rechecked", pageStats.ItemsRechecked).
			Int("failed", pageStats.ItemsFailed).
			Msg("listing page processed")

		if result.After == "" {
			break
		}
	}
	return stats, cursor, nil
}

func (r *Runner) dispatch(ctx context.Context, log zerolog.Logger, source videos.Source, posts []reddit.Post) db.FetchRunStats {
	var added, rechecked, failed atomic.Int64
	now := globaltime.UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, post := range posts {
		post := post
		g.Go(func() error {
			action, lookup, err := r.videos.Classify(gctx, source, post, now)
			if err != nil {
				failed.Add(1)
				r.itemFailed(gctx, log, post, err)
				return nil
			}
			switch action {
			case videos.ActionNew:
				added.Add(1)
				if _, err := r.videos.ProcessPost(gctx, source, post); err != nil {
					failed.Add(1)
					r.itemFailed(gctx, log, post, err)
				}
			case videos.ActionRecheck:
				rechecked.Add(1)
				if err := r.videos.Recheck(gctx, source, *lookup.VideoGoalID, post); err != nil {
					failed.Add(1)
					r.itemFailed(gctx, log, post, err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return db.FetchRunStats{
		ItemsNew:       int(added.Load()),
		ItemsRechecked: int(rechecked.Load()),
		ItemsFailed:    int(failed.Load()),
	}
}

func (r *Runner) itemFailed(ctx context.Context, log zerolog.Logger, post reddit.Post, err error) {
	log.Error().Err(err).Str("permalink", post.Permalink).Msg("post processing failed")
	r.alert(ctx, fmt.Sprintf("*Error processing post*\n%s\n%s", post.Permalink, err.Error()))
}

// RunFixturesCycle syncs the listing chosen by FixturePolicy. A discarded batch still
// completes the cycle so the cadence keeps advancing.
func (r *Runner) RunFixturesCycle(ctx context.Context) error {
	if r.fixtures == nil {
		return fmt.Errorf("fixture ingestion is not configured")
	}
	completed, err := r.runs.CountCompletedCycles(ctx, db.FetchKindFixtures)
	if err != nil {
		return err
	}
	mode := FixturePolicy(completed)
	cycleID := uuid.NewString()
	log := r.logger.With().Str("cycle_id", cycleID).Str("kind", db.FetchKindFixtures).Str("mode", mode.String()).Logger()

	runID, err := r.runs.StartFetchRun(ctx, cycleID, db.FetchKindFixtures, fixturesSource, globaltime.UTC())
	if err != nil {
		return err
	}
	stats, syncErr := r.fixtures.Sync(ctx, mode)
	runErr := syncErr
	if errors.Is(syncErr, fixtures.ErrBatchDiscarded) {
		log.Warn().Str("quality", stats.Quality.String()).Msg("fixture batch discarded")
		runErr = nil
	}

	runStats := db.FetchRunStats{
		ItemsFetched:   stats.Fetched,
		ItemsNew:       stats.Created,
		ItemsRechecked: stats.Saved - stats.Created,
		ItemsFailed:    stats.Failed + stats.Invalid,
	}
	if err := r.runs.FinishFetchRun(ctx, runID, runStats, Cursor{Mode: mode.String()}, runErr, globaltime.UTC()); err != nil {
		log.Error().Err(err).Int64("fetch_run_id", runID).Msg("finish fetch run failed")
	}
	if runErr != nil {
		r.alert(ctx, "*Fixtures cycle failed*\n"+runErr.Error())
	}
	return runErr
}

// Loop runs cycle now and then every interval until ctx is done. Cycle errors are logged.
func (r *Runner) Loop(ctx context.Context, name string, interval time.Duration, cycle func(context.Context) error) error {
	log := r.logger.With().Str("loop", name).Dur("interval", interval).Logger()
	log.Info().Msg("loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		started := globaltime.Now()
		if err := cycle(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("cycle failed")
		} else if err == nil {
			log.Debug().Dur("elapsed", globaltime.Since(started)).Msg("cycle completed")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) alert(ctx context.Context, text string) {
	if r.monitor == nil {
		return
	}
	r.monitor.Alert(ctx, notify.Alert{Text: text, IsAlert: true, Silent: true})
}

func (r *Runner) heartbeat(ctx context.Context, kind notify.Heartbeat) {
	if r.monitor == nil {
		return
	}
	r.monitor.Heartbeat(ctx, kind)
}
