package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meneses-pt/goals.zone/internal/globaltime"
)

// PostLookup is the stored state of a permalink.
type PostLookup struct {
	Found            bool
	PostMatchID      int64
	VideoGoalID      *int64
	NextMirrorsCheck *time.Time
}

// NewVideoGoal carries everything needed to attach a post to a match.
type NewVideoGoal struct {
	MatchID          int64
	Permalink        string
	Source           string
	URL              string
	Title            string
	LinkTitle        *string
	Minute           *string
	Author           string
	TitleLanguage    *string
	NextMirrorsCheck time.Time
	Now              time.Time
}

// VideoGoalRow is a stored video with its post permalink.
type VideoGoalRow struct {
	ID                     int64
	UUID                   string
	MatchID                int64
	Source                 string
	URL                    *string
	Title                  *string
	Minute                 *string
	Author                 *string
	MsgSent                bool
	NextMirrorsCheck       time.Time
	AutoModeratorCommentID *string
	CreatedAt              time.Time
	Permalink              *string
}

// UnmatchedPost records a processed post that resolved to no fixture.
type UnmatchedPost struct {
	Permalink     string
	Title         *string
	HomeTeamStr   *string
	AwayTeamStr   *string
	TitleLanguage *string
}

// MirrorRecord is an alternative link for a video.
type MirrorRecord struct {
	VideoGoalID int64
	URL         string
	Title       *string
	Author      *string
}

type MirrorRow struct {
	ID          int64
	VideoGoalID int64
	URL         string
	Title       *string
	Author      *string
	MsgSent     bool
}

// LookupPost returns the stored state of permalink, Found=false when it was never processed.
func (p *Pool) LookupPost(ctx context.Context, permalink string) (PostLookup, error) {
	var out PostLookup
	err := p.QueryRow(ctx, `
SELECT pm.post_match_id, pm.video_goal_id, vg.next_mirrors_check
FROM goals.post_matches pm
LEFT JOIN goals.video_goals vg
	ON vg.video_goal_id = pm.video_goal_id
WHERE pm.permalink = $1
`, permalink).Scan(&out.PostMatchID, &out.VideoGoalID, &out.NextMirrorsCheck)
	if IsNoRows(err) {
		return PostLookup{}, nil
	}
	if err != nil {
		return PostLookup{}, fmt.Errorf("lookup post %q: %w", permalink, err)
	}
	out.Found = true
	return out, nil
}

// CreateVideoGoal claims the permalink, stamps the match's first video time when this is its
// first video, and inserts the video. created=false means another worker already claimed it.
func (p *Pool) CreateVideoGoal(ctx context.Context, in NewVideoGoal) (VideoGoalRow, bool, error) {
	permalink := strings.TrimSpace(in.Permalink)
	if permalink == "" {
		return VideoGoalRow{}, false, fmt.Errorf("permalink is required")
	}
	now := in.Now.UTC()
	if in.Now.IsZero() {
		now = globaltime.UTC()
	}

	var (
		row     VideoGoalRow
		created bool
	)
	err := p.WithTx(ctx, func(tx Tx) error {
		var postMatchID int64
		err := tx.QueryRow(ctx, `
INSERT INTO goals.post_matches (permalink, title, title_language, fetched_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (permalink) DO NOTHING
RETURNING post_match_id
`, permalink, in.Title, in.TitleLanguage, now).Scan(&postMatchID)
		if IsNoRows(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("claim permalink: %w", err)
		}

		if _, err := tx.Exec(ctx, `
UPDATE goals.matches m
SET first_video_at = $2, updated_at = now()
WHERE m.match_id = $1
	AND m.first_video_at IS NULL
	AND NOT EXISTS (SELECT 1 FROM goals.video_goals vg WHERE vg.match_id = m.match_id)
`, in.MatchID, now); err != nil {
			return fmt.Errorf("stamp first video time: %w", err)
		}

		row = VideoGoalRow{
			UUID:             uuid.NewString(),
			MatchID:          in.MatchID,
			Source:           in.Source,
			URL:              nullableString(in.URL),
			Title:            nullableString(in.Title),
			Minute:           in.Minute,
			Author:           nullableString(in.Author),
			NextMirrorsCheck: in.NextMirrorsCheck.UTC(),
			CreatedAt:        now,
			Permalink:        &permalink,
		}
		if err := tx.QueryRow(ctx, `
INSERT INTO goals.video_goals (
	video_goal_uuid,
	match_id,
	source,
	url,
	title,
	link_title,
	minute,
	author,
	next_mirrors_check,
	created_at
)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING video_goal_id
`, row.UUID, row.MatchID, row.Source, row.URL, row.Title, in.LinkTitle, row.Minute, row.Author, row.NextMirrorsCheck, now).Scan(&row.ID); err != nil {
			return fmt.Errorf("insert video goal: %w", err)
		}

		if _, err := tx.Exec(ctx, `
UPDATE goals.post_matches SET video_goal_id = $2 WHERE post_match_id = $1
`, postMatchID, row.ID); err != nil {
			return fmt.Errorf("link post to video goal: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return VideoGoalRow{}, false, err
	}
	return row, created, nil
}

// SaveUnmatchedPost records a post that resolved to no match; false when it already existed.
func (p *Pool) SaveUnmatchedPost(ctx context.Context, post UnmatchedPost) (bool, error) {
	tag, err := p.Exec(ctx, `
INSERT INTO goals.post_matches (permalink, title, home_team_str, away_team_str, title_language)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (permalink) DO NOTHING
`, post.Permalink, post.Title, post.HomeTeamStr, post.AwayTeamStr, post.TitleLanguage)
	if err != nil {
		return false, fmt.Errorf("insert unmatched post: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

const videoGoalColumns = `
	vg.video_goal_id,
	vg.video_goal_uuid::text,
	vg.match_id,
	vg.source,
	vg.url,
	vg.title,
	vg.minute,
	vg.author,
	vg.msg_sent,
	vg.next_mirrors_check,
	vg.auto_moderator_comment_id,
	vg.created_at,
	pm.permalink`

func scanVideoGoal(scan func(dest ...any) error) (VideoGoalRow, error) {
	var row VideoGoalRow
	err := scan(
		&row.ID,
		&row.UUID,
		&row.MatchID,
		&row.Source,
		&row.URL,
		&row.Title,
		&row.Minute,
		&row.Author,
		&row.MsgSent,
		&row.NextMirrorsCheck,
		&row.AutoModeratorCommentID,
		&row.CreatedAt,
		&row.Permalink,
	)
	return row, err
}

func (p *Pool) GetVideoGoal(ctx context.Context, videoGoalID int64) (VideoGoalRow, error) {
	row, err := scanVideoGoal(p.QueryRow(ctx, `
SELECT`+videoGoalColumns+`
FROM goals.video_goals vg
LEFT JOIN goals.post_matches pm
	ON pm.video_goal_id = vg.video_goal_id
WHERE vg.video_goal_id = $1
`, videoGoalID).Scan)
	if err != nil {
		return VideoGoalRow{}, fmt.Errorf("get video goal %d: %w", videoGoalID, err)
	}
	return row, nil
}

// ListMatchVideoGoals returns a match's videos oldest first.
func (p *Pool) ListMatchVideoGoals(ctx context.Context, matchID int64) ([]VideoGoalRow, error) {
	return p.listVideoGoals(ctx, `
SELECT`+videoGoalColumns+`
FROM goals.video_goals vg
LEFT JOIN goals.post_matches pm
	ON pm.video_goal_id = vg.video_goal_id
WHERE vg.match_id = $1
ORDER BY vg.created_at, vg.video_goal_id
`, matchID)
}

// ListRecentVideoGoals returns the newest videos across all matches.
func (p *Pool) ListRecentVideoGoals(ctx context.Context, limit int) ([]VideoGoalRow, error) {
	if limit <= 0 {
		limit = 50
	}
	return p.listVideoGoals(ctx, `
SELECT`+videoGoalColumns+`
FROM goals.video_goals vg
LEFT JOIN goals.post_matches pm
	ON pm.video_goal_id = vg.video_goal_id
ORDER BY vg.created_at DESC, vg.video_goal_id DESC
LIMIT $1
`, limit)
}

func (p *Pool) listVideoGoals(ctx context.Context, query string, args ...any) ([]VideoGoalRow, error) {
	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query video goals: %w", err)
	}
	defer rows.Close()

	out := make([]VideoGoalRow, 0, 16)
	for rows.Next() {
		row, err := scanVideoGoal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan video goal: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video goals: %w", err)
	}
	return out, nil
}

func (p *Pool) SetNextMirrorsCheck(ctx context.Context, videoGoalID int64, next time.Time) error {
	if _, err := p.Exec(ctx, `
UPDATE goals.video_goals SET next_mirrors_check = $2 WHERE video_goal_id = $1
`, videoGoalID, next.UTC()); err != nil {
		return fmt.Errorf("set next mirrors check: %w", err)
	}
	return nil
}

func (p *Pool) SetAutoModeratorCommentID(ctx context.Context, videoGoalID int64, commentID string) error {
	if _, err := p.Exec(ctx, `
UPDATE goals.video_goals SET auto_moderator_comment_id = $2 WHERE video_goal_id = $1
`, videoGoalID, commentID); err != nil {
		return fmt.Errorf("set auto moderator comment id: %w", err)
	}
	return nil
}

// UpsertMirror inserts or refreshes a mirror keyed by (video, url).
func (p *Pool) UpsertMirror(ctx context.Context, rec MirrorRecord) (MirrorRow, error) {
	url := strings.TrimSpace(rec.URL)
	if url == "" {
		return MirrorRow{}, fmt.Errorf("mirror url is required")
	}

	row := MirrorRow{VideoGoalID: rec.VideoGoalID, URL: url}
	if err := p.QueryRow(ctx, `
INSERT INTO goals.video_goal_mirrors (video_goal_id, url, title, author)
VALUES ($1, $2, $3, $4)
ON CONFLICT (video_goal_id, url) DO UPDATE
SET
	title = EXCLUDED.title,
	author = EXCLUDED.author,
	updated_at = now()
RETURNING mirror_id, title, author, msg_sent
`, rec.VideoGoalID, url, rec.Title, rec.Author).Scan(&row.ID, &row.Title, &row.Author, &row.MsgSent); err != nil {
		return MirrorRow{}, fmt.Errorf("upsert mirror: %w", err)
	}
	return row, nil
}

// ListMatchMirrors returns the mirrors of every video of a match grouped by video id.
func (p *Pool) ListMatchMirrors(ctx context.Context, matchID int64) (map[int64][]MirrorRow, error) {
	rows, err := p.Query(ctx, `
SELECT m.mirror_id, m.video_goal_id, m.url, m.title, m.author, m.msg_sent
FROM goals.video_goal_mirrors m
JOIN goals.video_goals vg
	ON vg.video_goal_id = m.video_goal_id
WHERE vg.match_id = $1
ORDER BY m.video_goal_id, m.created_at, m.mirror_id
`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query mirrors: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]MirrorRow)
	for rows.Next() {
		var row MirrorRow
		if err := rows.Scan(&row.ID, &row.VideoGoalID, &row.URL, &row.Title, &row.Author, &row.MsgSent); err != nil {
			return nil, fmt.Errorf("scan mirror: %w", err)
		}
		out[row.VideoGoalID] = append(out[row.VideoGoalID], row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mirrors: %w", err)
	}
	return out, nil
}

func nullableString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func (p *Pool) GetMirror(ctx context.Context, mirrorID int64) (MirrorRow, error) {
	var row MirrorRow
	if err := p.QueryRow(ctx, `
SELECT mirror_id, video_goal_id, url, title, author, msg_sent
FROM goals.video_goal_mirrors
WHERE mirror_id = $1
`, mirrorID).Scan(&row.ID, &row.VideoGoalID, &row.URL, &row.Title, &row.Author, &row.MsgSent); err != nil {
		return MirrorRow{}, fmt.Errorf("get mirror %d: %w", mirrorID, err)
	}
	return row, nil
}
