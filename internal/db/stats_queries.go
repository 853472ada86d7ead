package db

import (
	"context"
	"fmt"
	"time"
)

// Totals stores row counts across the main tables.
type Totals struct {
	Teams         int64 `json:"teams"`
	Matches       int64 `json:"matches"`
	Videos        int64 `json:"videos"`
	Mirrors       int64 `json:"mirrors"`
	UnmatchedPost int64 `json:"unmatched_posts"`
	NerLogs       int64 `json:"ner_logs"`
}

// DailyThroughput counts what the fetch loops produced during one day.
type DailyThroughput struct {
	VideosToday        int64 `json:"videos_today"`
	MatchesWithVideos  int64 `json:"matches_with_videos_today"`
	UnmatchedToday     int64 `json:"unmatched_posts_today"`
	FailedRunsToday    int64 `json:"failed_runs_today"`
	CompletedRunsToday int64 `json:"completed_runs_today"`
}

// Stats is the read model served by the stats endpoint.
type Stats struct {
	Day        string          `json:"day"`
	Totals     Totals          `json:"totals"`
	Throughput DailyThroughput `json:"throughput"`
}

// QueryStats returns table totals plus the throughput of [dayStart, dayEnd).
func (p *Pool) QueryStats(ctx context.Context, dayStart, dayEnd time.Time) (*Stats, error) {
	startUTC := dayStart.UTC()
	endUTC := dayEnd.UTC()
	if !startUTC.Before(endUTC) {
		return nil, fmt.Errorf("dayStart must be before dayEnd")
	}

	stats := &Stats{Day: startUTC.Format("2006-01-02")}

	const totalsQuery = `
SELECT
	(SELECT COUNT(*) FROM goals.teams),
	(SELECT COUNT(*) FROM goals.matches),
	(SELECT COUNT(*) FROM goals.video_goals),
	(SELECT COUNT(*) FROM goals.video_goal_mirrors),
	(SELECT COUNT(*) FROM goals.post_matches WHERE video_goal_id IS NULL),
	(SELECT COUNT(*) FROM goals.ner_logs)
`
	if err := p.QueryRow(ctx, totalsQuery).Scan(
		&stats.Totals.Teams,
		&stats.Totals.Matches,
		&stats.Totals.Videos,
		&stats.Totals.Mirrors,
		&stats.Totals.UnmatchedPost,
		&stats.Totals.NerLogs,
	); err != nil {
		return nil, fmt.Errorf("query stats totals: %w", err)
	}

	const throughputQuery = `
SELECT
	(SELECT COUNT(*) FROM goals.video_goals vg WHERE vg.created_at >= $1 AND vg.created_at < $2),
	(SELECT COUNT(DISTINCT vg.match_id) FROM goals.video_goals vg WHERE vg.created_at >= $1 AND vg.created_at < $2),
	(SELECT COUNT(*) FROM goals.post_matches pm WHERE pm.video_goal_id IS NULL AND pm.fetched_at >= $1 AND pm.fetched_at < $2),
	(SELECT COUNT(*) FROM goals.fetch_runs fr WHERE fr.status = 'failed' AND fr.started_at >= $1 AND fr.started_at < $2),
	(SELECT COUNT(*) FROM goals.fetch_runs fr WHERE fr.status = 'completed' AND fr.started_at >= $1 AND fr.started_at < $2)
`
	if err := p.QueryRow(ctx, throughputQuery, startUTC, endUTC).Scan(
		&stats.Throughput.VideosToday,
		&stats.Throughput.MatchesWithVideos,
		&stats.Throughput.UnmatchedToday,
		&stats.Throughput.FailedRunsToday,
		&stats.Throughput.CompletedRunsToday,
	); err != nil {
		return nil, fmt.Errorf("query stats throughput: %w", err)
	}

	return stats, nil
}
