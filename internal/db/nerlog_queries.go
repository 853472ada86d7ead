package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NerLogRecord compares the regex and NER team guesses for one title.
type NerLogRecord struct {
	Title         string
	RegexHomeTeam *string
	RegexAwayTeam *string
	NerHomeTeam   *string
	NerAwayTeam   *string
	TitleLanguage *string
}

type NerLogRow struct {
	ID int64
	NerLogRecord
	Reviewed  bool
	CreatedAt time.Time
}

// InsertNerLog stores a comparison row. Titles are unique; repeats are ignored.
func (p *Pool) InsertNerLog(ctx context.Context, rec NerLogRecord) (bool, error) {
	if strings.TrimSpace(rec.Title) == "" {
		return false, fmt.Errorf("ner log title is required")
	}
	tag, err := p.Exec(ctx, `
INSERT INTO goals.ner_logs (
	title,
	regex_home_team,
	regex_away_team,
	ner_home_team,
	ner_away_team,
	title_language
)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (title) DO NOTHING
`, rec.Title, rec.RegexHomeTeam, rec.RegexAwayTeam, rec.NerHomeTeam, rec.NerAwayTeam, rec.TitleLanguage)
	if err != nil {
		return false, fmt.Errorf("insert ner log: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListNerLogs returns the newest comparison rows. onlyUnreviewed hides reviewed rows.
func (p *Pool) ListNerLogs(ctx context.Context, limit, offset int, onlyUnreviewed bool) ([]NerLogRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := p.Query(ctx, `
SELECT
	ner_log_id,
	title,
	regex_home_team,
	regex_away_team,
	ner_home_team,
	ner_away_team,
	title_language,
	reviewed,
	created_at
FROM goals.ner_logs
WHERE NOT $3 OR NOT reviewed
ORDER BY created_at DESC, ner_log_id DESC
LIMIT $1 OFFSET $2
`, limit, offset, onlyUnreviewed)
	if err != nil {
		return nil, fmt.Errorf("query ner logs: %w", err)
	}
	defer rows.Close()

	out := make([]NerLogRow, 0, limit)
	for rows.Next() {
		var row NerLogRow
		if err := rows.Scan(
			&row.ID,
			&row.Title,
			&row.RegexHomeTeam,
			&row.RegexAwayTeam,
			&row.NerHomeTeam,
			&row.NerAwayTeam,
			&row.TitleLanguage,
			&row.Reviewed,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ner log: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ner logs: %w", err)
	}
	return out, nil
}

func (p *Pool) MarkNerLogReviewed(ctx context.Context, id int64) error {
	tag, err := p.Exec(ctx, `UPDATE goals.ner_logs SET reviewed = true WHERE ner_log_id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark ner log reviewed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}
