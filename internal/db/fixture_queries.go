package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type CategoryRecord struct {
	ID       int64
	Name     *string
	Slug     string
	Priority *int
	Flag     *string
}

type TournamentRecord struct {
	ID         int64
	UniqueID   *int64
	Name       *string
	UniqueName *string
	Slug       string
	CategoryID *int64
}

type SeasonRecord struct {
	ID   int64
	Name *string
	Year *string
	Slug string
}

type TeamRecord struct {
	ID        int64
	Name      string
	ShortName string
	NameCode  *string
	Slug      string
	LogoURL   string
}

// FixtureRecord is one provider event ready to be stored.
type FixtureRecord struct {
	Category   *CategoryRecord
	Tournament *TournamentRecord
	Season     *SeasonRecord
	Home       TeamRecord
	Away       TeamRecord
	Score      *string
	Status     string
	Datetime   time.Time
	Slug       string
}

// FixtureResult lists the matches touched by SaveFixture. Created is true when a new
// match row was inserted instead of updating rows inside the +-1 day window.
type FixtureResult struct {
	MatchIDs []int64
	Created  bool
}

// SaveFixture stores the fixture's reference rows, then updates the matches with the same
// home and away teams within one day of its kickoff, inserting a new match when none exist.
func (p *Pool) SaveFixture(ctx context.Context, rec FixtureRecord) (FixtureResult, error) {
	if rec.Home.ID == 0 || rec.Away.ID == 0 {
		return FixtureResult{}, fmt.Errorf("fixture requires both teams")
	}
	if rec.Datetime.IsZero() {
		return FixtureResult{}, fmt.Errorf("fixture requires a start time")
	}

	var result FixtureResult
	err := p.WithTx(ctx, func(tx Tx) error {
		var categoryID, tournamentID, seasonID *int64
		if rec.Category != nil {
			if err := ensureCategory(ctx, tx, *rec.Category); err != nil {
				return err
			}
			categoryID = &rec.Category.ID
		}
		if rec.Tournament != nil {
			if rec.Tournament.CategoryID == nil {
				rec.Tournament.CategoryID = categoryID
			}
			if err := ensureTournament(ctx, tx, *rec.Tournament); err != nil {
				return err
			}
			tournamentID = &rec.Tournament.ID
		}
		if rec.Season != nil {
			if err := ensureSeason(ctx, tx, *rec.Season); err != nil {
				return err
			}
			seasonID = &rec.Season.ID
		}
		if err := upsertTeam(ctx, tx, rec.Home); err != nil {
			return err
		}
		if err := upsertTeam(ctx, tx, rec.Away); err != nil {
			return err
		}

		status := strings.TrimSpace(rec.Status)
		if status == "" {
			status = "finished"
		}
		kickoff := rec.Datetime.UTC()

		rows, err := tx.Query(ctx, `
UPDATE goals.matches
SET
	score = $4,
	status = $5,
	datetime = $3,
	tournament_id = $6,
	category_id = $7,
	season_id = $8,
	updated_at = now()
WHERE home_team_id = $1
	AND away_team_id = $2
	AND datetime BETWEEN $3::timestamptz - interval '1 day' AND $3::timestamptz + interval '1 day'
RETURNING match_id
`, rec.Home.ID, rec.Away.ID, kickoff, rec.Score, status, tournamentID, categoryID, seasonID)
		if err != nil {
			return fmt.Errorf("update matches in window: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan updated match id: %w", err)
			}
			result.MatchIDs = append(result.MatchIDs, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate updated matches: %w", err)
		}
		rows.Close()
		if len(result.MatchIDs) > 0 {
			return nil
		}

		matchUUID := uuid.NewString()
		var id int64
		if err := tx.QueryRow(ctx, `
INSERT INTO goals.matches (
	match_uuid,
	home_team_id,
	away_team_id,
	tournament_id,
	category_id,
	season_id,
	score,
	datetime,
	status,
	slug
)
VALUES (
	$1::uuid, $2, $3, $4, $5, $6, $7, $8, $9,
	CASE WHEN EXISTS (SELECT 1 FROM goals.matches WHERE slug = $10) THEN $11 ELSE $10 END
)
RETURNING match_id
`, matchUUID, rec.Home.ID, rec.Away.ID, tournamentID, categoryID, seasonID, rec.Score, kickoff, status,
			rec.Slug, rec.Slug+"-"+matchUUID[:8]).Scan(&id); err != nil {
			return fmt.Errorf("insert match: %w", err)
		}
		result.MatchIDs = []int64{id}
		result.Created = true
		return nil
	})
	if err != nil {
		return FixtureResult{}, err
	}
	return result, nil
}

func ensureCategory(ctx context.Context, q Querier, rec CategoryRecord) error {
	_, err := q.Exec(ctx, `
INSERT INTO goals.categories (category_id, name, priority, flag, slug)
VALUES (
	$1, $2, $3, $4,
	CASE WHEN EXISTS (SELECT 1 FROM goals.categories WHERE slug = $5) THEN $6 ELSE $5 END
)
ON CONFLICT (category_id) DO NOTHING
`, rec.ID, rec.Name, rec.Priority, rec.Flag, rec.Slug, idSlug(rec.Slug, rec.ID))
	if err != nil {
		return fmt.Errorf("insert category %d: %w", rec.ID, err)
	}
	return nil
}

func ensureTournament(ctx context.Context, q Querier, rec TournamentRecord) error {
	_, err := q.Exec(ctx, `
INSERT INTO goals.tournaments (tournament_id, unique_id, name, unique_name, category_id, slug)
VALUES (
	$1, $2, $3, $4, $5,
	CASE WHEN EXISTS (SELECT 1 FROM goals.tournaments WHERE slug = $6) THEN $7 ELSE $6 END
)
ON CONFLICT (tournament_id) DO NOTHING
`, rec.ID, rec.UniqueID, rec.Name, rec.UniqueName, rec.CategoryID, rec.Slug, idSlug(rec.Slug, rec.ID))
	if err != nil {
		return fmt.Errorf("insert tournament %d: %w", rec.ID, err)
	}
	return nil
}

func ensureSeason(ctx context.Context, q Querier, rec SeasonRecord) error {
	_, err := q.Exec(ctx, `
INSERT INTO goals.seasons (season_id, name, year, slug)
VALUES (
	$1, $2, $3,
	CASE WHEN EXISTS (SELECT 1 FROM goals.seasons WHERE slug = $4) THEN $5 ELSE $4 END
)
ON CONFLICT (season_id) DO NOTHING
`, rec.ID, rec.Name, rec.Year, rec.Slug, idSlug(rec.Slug, rec.ID))
	if err != nil {
		return fmt.Errorf("insert season %d: %w", rec.ID, err)
	}
	return nil
}

// upsertTeam keeps existing names and only fills a missing name code or logo.
func upsertTeam(ctx context.Context, q Querier, rec TeamRecord) error {
	_, err := q.Exec(ctx, `
INSERT INTO goals.teams (team_id, name, short_name, name_code, logo_url, slug)
VALUES (
	$1, $2, $3, $4, $5,
	CASE WHEN EXISTS (SELECT 1 FROM goals.teams WHERE slug = $6) THEN $7 ELSE $6 END
)
ON CONFLICT (team_id) DO UPDATE
SET
	name_code = COALESCE(goals.teams.name_code, EXCLUDED.name_code),
	logo_url = CASE WHEN goals.teams.logo_url = '' THEN EXCLUDED.logo_url ELSE goals.teams.logo_url END,
	updated_at = now()
`, rec.ID, rec.Name, rec.ShortName, rec.NameCode, rec.LogoURL, rec.Slug, idSlug(rec.Slug, rec.ID))
	if err != nil {
		return fmt.Errorf("upsert team %d: %w", rec.ID, err)
	}
	return nil
}

// DeleteStaleMatches removes matches that started before cutoff and never received a video.
func (p *Pool) DeleteStaleMatches(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.Exec(ctx, `
DELETE FROM goals.matches m
WHERE m.datetime < $1
	AND NOT EXISTS (
		SELECT 1 FROM goals.video_goals vg WHERE vg.match_id = m.match_id
	)
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete stale matches: %w", err)
	}
	return tag.RowsAffected(), nil
}

// idSlug is the fallback slug used when base is already taken by another row.
func idSlug(base string, id int64) string {
	return fmt.Sprintf("%s-%d", base, id)
}
