package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TeamSide narrows the candidate teams for one side of a fixture lookup.
// Fragment is compared by trigram similarity against name, short name and aliases.
// StartsWith/EndsWith require the team name to carry a detected affiliate term;
// the Exclude patterns (PostgreSQL case-insensitive regexes) drop affiliate teams otherwise.
type TeamSide struct {
	Fragment             string
	StartsWith           string
	EndsWith             string
	ExcludePrefixPattern string
	ExcludeSuffixPattern string
}

// MatchSearch is a fixture lookup window with both team sides.
type MatchSearch struct {
	Home TeamSide
	Away TeamSide
	From time.Time
	To   time.Time
}

// MatchCandidate is one fixture returned by FindMatchCandidates.
type MatchCandidate struct {
	MatchID    int64
	Datetime   time.Time
	Status     string
	HomeTeamID int64
	HomeName   string
	AwayTeamID int64
	AwayName   string
}

// AffiliateTermRow is one configured affiliate marker.
type AffiliateTermRow struct {
	Term     string
	IsPrefix bool
}

type sqlArgs struct {
	values []any
}

func (a *sqlArgs) add(v any) string {
	a.values = append(a.values, v)
	return fmt.Sprintf("$%d", len(a.values))
}

const teamSimilarSubquery = `
SELECT t.team_id
FROM goals.teams t
WHERE goals.f_unaccent(t.name) % goals.f_unaccent({frag})
	OR goals.f_unaccent(t.short_name) % goals.f_unaccent({frag})
	OR EXISTS (
		SELECT 1
		FROM goals.team_aliases ta
		WHERE ta.team_id = t.team_id
			AND goals.f_unaccent(ta.alias) % goals.f_unaccent({frag})
	)`

func teamSideClauses(idColumn, nameColumn string, side TeamSide, args *sqlArgs) []string {
	frag := args.add(strings.TrimSpace(side.Fragment))
	clauses := []string{
		idColumn + " IN (" + strings.ReplaceAll(teamSimilarSubquery, "{frag}", frag) + ")",
	}

	switch {
	case side.StartsWith != "":
		clauses = append(clauses, fmt.Sprintf("starts_with(lower(%s), lower(%s))", nameColumn, args.add(side.StartsWith)))
	case side.ExcludePrefixPattern != "":
		clauses = append(clauses, fmt.Sprintf("%s !~* %s", nameColumn, args.add(side.ExcludePrefixPattern)))
	}

	switch {
	case side.EndsWith != "":
		p := args.add(side.EndsWith)
		clauses = append(clauses, fmt.Sprintf("right(lower(%s), char_length(%s)) = lower(%s)", nameColumn, p, p))
	case side.ExcludeSuffixPattern != "":
		clauses = append(clauses, fmt.Sprintf("%s !~* %s", nameColumn, args.add(side.ExcludeSuffixPattern)))
	}
	return clauses
}

func buildMatchSearchQuery(search MatchSearch) (string, []any) {
	args := &sqlArgs{}
	where := []string{
		"m.datetime >= " + args.add(search.From.UTC()),
		"m.datetime <= " + args.add(search.To.UTC()),
	}
	where = append(where, teamSideClauses("m.home_team_id", "h.name", search.Home, args)...)
	where = append(where, teamSideClauses("m.away_team_id", "a.name", search.Away, args)...)

	query := `
SELECT
	m.match_id,
	m.datetime,
	m.status,
	h.team_id,
	h.name,
	a.team_id,
	a.name
FROM goals.matches m
JOIN goals.teams h
	ON h.team_id = m.home_team_id
JOIN goals.teams a
	ON a.team_id = m.away_team_id
WHERE ` + strings.Join(where, "\n\tAND ") + `
ORDER BY m.datetime DESC, m.match_id DESC
`
	return query, args.values
}

// FindMatchCandidates returns fixtures in the window whose teams trigram-match both sides,
// most recent first.
func (p *Pool) FindMatchCandidates(ctx context.Context, search MatchSearch) ([]MatchCandidate, error) {
	if strings.TrimSpace(search.Home.Fragment) == "" || strings.TrimSpace(search.Away.Fragment) == "" {
		return nil, nil
	}
	if search.To.Before(search.From) {
		return nil, fmt.Errorf("match search window ends before it starts")
	}

	query, args := buildMatchSearchQuery(search)
	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query match candidates: %w", err)
	}
	defer rows.Close()

	out := make([]MatchCandidate, 0, 4)
	for rows.Next() {
		var row MatchCandidate
		if err := rows.Scan(
			&row.MatchID,
			&row.Datetime,
			&row.Status,
			&row.HomeTeamID,
			&row.HomeName,
			&row.AwayTeamID,
			&row.AwayName,
		); err != nil {
			return nil, fmt.Errorf("scan match candidate: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match candidates: %w", err)
	}
	return out, nil
}

// AnyTeamSimilar reports whether any team name or alias trigram-matches name.
func (p *Pool) AnyTeamSimilar(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}

	const query = `
SELECT EXISTS (
	SELECT 1 FROM goals.teams t WHERE goals.f_unaccent(t.name) % goals.f_unaccent($1)
) OR EXISTS (
	SELECT 1 FROM goals.team_aliases ta WHERE goals.f_unaccent(ta.alias) % goals.f_unaccent($1)
)
`
	var exists bool
	if err := p.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("query similar team: %w", err)
	}
	return exists, nil
}

// ListAffiliateTerms returns every affiliate term ordered by term.
func (p *Pool) ListAffiliateTerms(ctx context.Context) ([]AffiliateTermRow, error) {
	rows, err := p.Query(ctx, `SELECT term, is_prefix FROM goals.affiliate_terms ORDER BY term`)
	if err != nil {
		return nil, fmt.Errorf("query affiliate terms: %w", err)
	}
	defer rows.Close()

	out := make([]AffiliateTermRow, 0, 16)
	for rows.Next() {
		var row AffiliateTermRow
		if err := rows.Scan(&row.Term, &row.IsPrefix); err != nil {
			return nil, fmt.Errorf("scan affiliate term: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate affiliate terms: %w", err)
	}
	return out, nil
}

// AddTeamAlias records an alternative team name; duplicates are ignored.
func (p *Pool) AddTeamAlias(ctx context.Context, teamID int64, alias string) (bool, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return false, fmt.Errorf("alias is required")
	}
	tag, err := p.Exec(ctx, `
INSERT INTO goals.team_aliases (alias, team_id)
VALUES ($1, $2)
ON CONFLICT (alias, team_id) DO NOTHING
`, alias, teamID)
	if err != nil {
		return false, fmt.Errorf("insert team alias: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
