// Package scheduler drives the video and fixture polling cycles.
package scheduler

import (
	"github.com/meneses-pt/goals.zone/internal/fixtures"
	"github.com/meneses-pt/goals.zone/internal/videos"
)

// Listing is how much of one subreddit a cycle reads.
type Listing struct {
	Source    videos.Source
	Subreddit string
	Pages     int
	Limit     int
	FullScan  bool
}

// VideoPolicy picks the listings for the cycle that follows completed finished cycles.
// r/soccer is read every cycle and deeply every 60th; r/footballhighlights every 15th
// and deeply every 120th.
func VideoPolicy(completed int64) []Listing {
	soccer := Listing{Source: videos.SourceSoccer, Subreddit: "soccer", Pages: 1, Limit: 25}
	if completed%60 == 0 {
		soccer.Pages, soccer.Limit, soccer.FullScan = 10, 100, true
	}
	plan := []Listing{soccer}

	if completed%15 == 0 {
		highlights := Listing{Source: videos.SourceHighlights, Subreddit: "footballhighlights", Pages: 1, Limit: 10}
		if completed%120 == 0 {
			highlights.Pages, highlights.Limit, highlights.FullScan = 10, 50, true
		}
		plan = append(plan, highlights)
	}
	return plan
}

// FixturePolicy picks the fixtures listing: the day with its inverse listing every 12th
// cycle, the day every 2nd, live events otherwise.
func FixturePolicy(completed int64) fixtures.Mode {
	switch {
	case completed%12 == 0:
		return fixtures.ModeFullDayInverse
	case completed%2 == 0:
		return fixtures.ModeFullDay
	default:
		return fixtures.ModeLive
	}
}
