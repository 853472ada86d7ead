package notify

import (
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/meneses-pt/goals.zone/internal/db"
)

func isFinished(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), "finished")
}

// Rule filter outcomes, logged when a rule is skipped.
const (
	rejectCategory   = "category"
	rejectTournament = "tournament"
	rejectTeam       = "team"
	rejectSource     = "source"
	rejectLinkRegex  = "link_regex"
	rejectAuthor     = "author"
)

// Allows returns "" when rule accepts the event, otherwise the filter that rejected it.
func Allows(rule db.NotifyRuleRow, state db.MatchState, ev Event) string {
	if len(rule.IncludeCategories) > 0 && !containsID(rule.IncludeCategories, state.CategoryID) {
		return rejectCategory
	}
	if len(rule.IncludeTournaments) > 0 && !containsID(rule.IncludeTournaments, state.TournamentID) {
		return rejectTournament
	}
	if len(rule.IncludeTeams) > 0 &&
		!slices.Contains(rule.IncludeTeams, state.HomeTeamID) &&
		!slices.Contains(rule.IncludeTeams, state.AwayTeamID) {
		return rejectTeam
	}
	if len(rule.ExcludeCategories) > 0 && (state.CategoryID == nil || containsID(rule.ExcludeCategories, state.CategoryID)) {
		return rejectCategory
	}
	if len(rule.ExcludeTournaments) > 0 && (state.TournamentID == nil || containsID(rule.ExcludeTournaments, state.TournamentID)) {
		return rejectTournament
	}
	if len(rule.ExcludeTeams) > 0 &&
		(slices.Contains(rule.ExcludeTeams, state.HomeTeamID) || slices.Contains(rule.ExcludeTeams, state.AwayTeamID)) {
		return rejectTeam
	}

	v := subjectVideo(ev)
	if rule.Source != nil && *rule.Source != "" && v != nil && v.Source != *rule.Source {
		return rejectSource
	}

	link, author, filtered := linkAndAuthor(ev)
	if !filtered {
		return ""
	}
	if rule.LinkRegex != nil && *rule.LinkRegex != "" && !matchesAtStart(*rule.LinkRegex, link) {
		return rejectLinkRegex
	}
	if rule.AuthorFilter != nil && *rule.AuthorFilter != "" && author != *rule.AuthorFilter {
		return rejectAuthor
	}
	return ""
}

// linkAndAuthor returns the link and author the regex and author filters apply to.
// Only Video and Mirror events are filtered.
func linkAndAuthor(ev Event) (string, string, bool) {
	switch e := ev.(type) {
	case Video:
		return deref(e.VideoGoal.URL), deref(e.VideoGoal.Author), true
	case Mirror:
		return e.Mirror.URL, deref(e.Mirror.Author), true
	}
	return "", "", false
}

func containsID(ids []int64, id *int64) bool {
	return id != nil && slices.Contains(ids, *id)
}

var patternCache sync.Map

// matchesAtStart reports whether pattern matches a prefix of s. Invalid patterns never match.
func matchesAtStart(pattern, s string) bool {
	var re *regexp.Regexp
	if cached, ok := patternCache.Load(pattern); ok {
		re = cached.(*regexp.Regexp)
	} else {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		patternCache.Store(pattern, compiled)
		re = compiled
	}
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
