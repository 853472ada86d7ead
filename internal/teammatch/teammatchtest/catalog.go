// Package teammatchtest provides an in-memory team catalog for tests that resolve titles
// without a Postgres instance.
package teammatchtest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/meneses-pt/goals.zone/internal/db"
	"github.com/meneses-pt/goals.zone/internal/names"
)

// Threshold is pg_trgm's default similarity_threshold, the cutoff of the % operator.
const Threshold = 0.3

// Similarity returns the pg_trgm similarity of a and b after accent folding:
// shared distinct trigrams over the union of both sets.
func Similarity(a, b string) float64 {
	ta := trigrams(names.Fold(a))
	tb := trigrams(names.Fold(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

// Similar mirrors "a % b": true when Similarity reaches Threshold.
func Similar(a, b string) bool {
	return Similarity(a, b) >= Threshold
}

// trigrams pads each alphanumeric word with two leading and one trailing space.
func trigrams(s string) map[string]struct{} {
	out := make(map[string]struct{})
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			out[string(padded[i:i+3])] = struct{}{}
		}
	}
	return out
}

// Team is the matching surface of a catalog team.
type Team struct {
	ID        int64
	Name      string
	ShortName string
	Aliases   []string
}

// Denotes reports whether fragment trigram-matches the team's name, short name or any alias.
func Denotes(fragment string, team Team) bool {
	if Similar(team.Name, fragment) {
		return true
	}
	if team.ShortName != "" && Similar(team.ShortName, fragment) {
		return true
	}
	for _, alias := range team.Aliases {
		if Similar(alias, fragment) {
			return true
		}
	}
	return false
}

// Allows applies a side's affiliate constraint to a catalog team name.
func Allows(side db.TeamSide, catalogName string) bool {
	return names.Constraint{
		StartsWith:           side.StartsWith,
		EndsWith:             side.EndsWith,
		ExcludePrefixPattern: side.ExcludePrefixPattern,
		ExcludeSuffixPattern: side.ExcludeSuffixPattern,
	}.Allows(catalogName)
}

// CatalogMatch is a fixture held by MemoryCatalog.
type CatalogMatch struct {
	ID       int64
	HomeID   int64
	AwayID   int64
	Datetime time.Time
	Status   string
}

// MemoryCatalog answers the same lookups as the database with the same predicates.
type MemoryCatalog struct {
	mu      sync.RWMutex
	teams   map[int64]Team
	matches []CatalogMatch
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{teams: make(map[int64]Team)}
}

func (c *MemoryCatalog) AddTeam(team Team) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teams[team.ID] = team
}

func (c *MemoryCatalog) AddMatch(match CatalogMatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches = append(c.matches, match)
}

// FindTeams returns the teams fragment denotes, ordered by id.
func (c *MemoryCatalog) FindTeams(fragment string) []Team {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Team, 0, 2)
	for _, team := range c.teams {
		if Denotes(fragment, team) {
			out = append(out, team)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *MemoryCatalog) FindMatchCandidates(_ context.Context, search db.MatchSearch) ([]db.MatchCandidate, error) {
	if strings.TrimSpace(search.Home.Fragment) == "" || strings.TrimSpace(search.Away.Fragment) == "" {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]db.MatchCandidate, 0, 2)
	for _, m := range c.matches {
		if m.Datetime.Before(search.From) || m.Datetime.After(search.To) {
			continue
		}
		home, ok := c.teams[m.HomeID]
		if !ok || !Denotes(search.Home.Fragment, home) || !Allows(search.Home, home.Name) {
			continue
		}
		away, ok := c.teams[m.AwayID]
		if !ok || !Denotes(search.Away.Fragment, away) || !Allows(search.Away, away.Name) {
			continue
		}
		out = append(out, db.MatchCandidate{
			MatchID:    m.ID,
			Datetime:   m.Datetime,
			Status:     m.Status,
			HomeTeamID: home.ID,
			HomeName:   home.Name,
			AwayTeamID: away.ID,
			AwayName:   away.Name,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Datetime.Equal(out[j].Datetime) {
			return out[i].Datetime.After(out[j].Datetime)
		}
		return out[i].MatchID > out[j].MatchID
	})
	return out, nil
}

// AnyTeamSimilar is the weak single-field check: fragment against every name and alias.
func (c *MemoryCatalog) AnyTeamSimilar(_ context.Context, fragment string) (bool, error) {
	if strings.TrimSpace(fragment) == "" {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, team := range c.teams {
		if Similar(team.Name, fragment) {
			return true, nil
		}
		for _, alias := range team.Aliases {
			if Similar(alias, fragment) {
				return true, nil
			}
		}
	}
	return false, nil
}
