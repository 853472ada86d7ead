package fixtures

import (
	"fmt"
	"strings"
	"time"

	"github.com/meneses-pt/goals.zone/internal/db"
	"github.com/meneses-pt/goals.zone/internal/names"
)

// TeamLogoBase is where team crests are served from.
const TeamLogoBase = "https://api.sofascore.app/api/v1/team"

// Event is one element of a provider events listing.
type Event struct {
	ID             int64      `json:"id"`
	Slug           string     `json:"slug"`
	StartTimestamp int64      `json:"startTimestamp"`
	Status         Status     `json:"status"`
	Tournament     Tournament `json:"tournament"`
	Season         *Season    `json:"season"`
	HomeTeam       Team       `json:"homeTeam"`
	AwayTeam       Team       `json:"awayTeam"`
	HomeScore      Score      `json:"homeScore"`
	AwayScore      Score      `json:"awayScore"`
}

type Status struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type Category struct {
	ID       int64   `json:"id"`
	Name     *string `json:"name"`
	Slug     string  `json:"slug"`
	Priority *int    `json:"priority"`
	Flag     *string `json:"flag"`
}

type Tournament struct {
	ID               int64    `json:"id"`
	Name             *string  `json:"name"`
	Slug             string   `json:"slug"`
	UniqueID         *int64   `json:"uniqueId"`
	UniqueName       *string  `json:"uniqueName"`
	Category         Category `json:"category"`
	UniqueTournament *struct {
		ID   int64   `json:"id"`
		Name *string `json:"name"`
	} `json:"uniqueTournament"`
}

type Season struct {
	ID   int64   `json:"id"`
	Name *string `json:"name"`
	Year *string `json:"year"`
}

type Team struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	ShortName string  `json:"shortName"`
	NameCode  *string `json:"nameCode"`
	Slug      string  `json:"slug"`
}

// Score is one side's score breakdown. Absent periods decode as zero.
type Score struct {
	Display    *int `json:"display"`
	Period1    int  `json:"period1"`
	Period2    int  `json:"period2"`
	Normaltime int  `json:"normaltime"`
}

// Checkable reports whether every period is present, which is when consistency can be judged.
func (s Score) Checkable() bool {
	return s.Period1 != 0 && s.Period2 != 0 && s.Normaltime != 0
}

// Consistent reports whether the halves add up to the full-time score.
func (s Score) Consistent() bool {
	return s.Period1+s.Period2 == s.Normaltime
}

// Title is "Home - Away", used in alerts.
func (e Event) Title() string {
	return e.HomeTeam.Name + " - " + e.AwayTeam.Name
}

// Kickoff is the event start in UTC.
func (e Event) Kickoff() time.Time {
	return time.Unix(e.StartTimestamp, 0).UTC()
}

// Record maps the event onto the rows SaveFixture writes.
func (e Event) Record() db.FixtureRecord {
	category := &db.CategoryRecord{
		ID:       e.Tournament.Category.ID,
		Name:     nameOrUnnamed(e.Tournament.Category.Name),
		Slug:     slugOr(e.Tournament.Category.Slug, deref(e.Tournament.Category.Name)),
		Priority: e.Tournament.Category.Priority,
		Flag:     e.Tournament.Category.Flag,
	}
	if category.Slug == "" {
		category.Slug = fmt.Sprintf("category-%d", category.ID)
	}

	tournament := &db.TournamentRecord{
		ID:         e.Tournament.ID,
		UniqueID:   e.Tournament.UniqueID,
		Name:       nameOrUnnamed(e.Tournament.Name),
		UniqueName: e.Tournament.UniqueName,
		Slug:       names.Slug(deref(e.Tournament.Name), deref(category.Name)),
		CategoryID: &category.ID,
	}
	if tournament.Slug == "" {
		tournament.Slug = fmt.Sprintf("tournament-%d", e.Tournament.ID)
	}
	if u := e.Tournament.UniqueTournament; u != nil {
		if tournament.UniqueID == nil {
			id := u.ID
			tournament.UniqueID = &id
		}
		if tournament.UniqueName == nil {
			tournament.UniqueName = u.Name
		}
	}

	var season *db.SeasonRecord
	if e.Season != nil {
		season = &db.SeasonRecord{
			ID:   e.Season.ID,
			Name: nameOrUnnamed(e.Season.Name),
			Year: e.Season.Year,
			Slug: slugOr("", deref(e.Season.Name)),
		}
		if season.Slug == "" {
			season.Slug = fmt.Sprintf("season-%d", e.Season.ID)
		}
	}

	var score *string
	if e.HomeScore.Display != nil && e.AwayScore.Display != nil {
		s := fmt.Sprintf("%d:%d", *e.HomeScore.Display, *e.AwayScore.Display)
		score = &s
	}

	kickoff := e.Kickoff()
	return db.FixtureRecord{
		Category:   category,
		Tournament: tournament,
		Season:     season,
		Home:       teamRecord(e.HomeTeam),
		Away:       teamRecord(e.AwayTeam),
		Score:      score,
		Status:     e.Status.Type,
		Datetime:   kickoff,
		Slug:       names.Slug(e.HomeTeam.Name, e.AwayTeam.Name, kickoff.Format("20060102")),
	}
}

func teamRecord(t Team) db.TeamRecord {
	short := t.ShortName
	if strings.TrimSpace(short) == "" {
		short = t.Name
	}
	return db.TeamRecord{
		ID:        t.ID,
		Name:      t.Name,
		ShortName: short,
		NameCode:  t.NameCode,
		Slug:      slugOr(t.Slug, t.Name),
		LogoURL:   fmt.Sprintf("%s/%d/image", TeamLogoBase, t.ID),
	}
}

func slugOr(slug, name string) string {
	if s := strings.TrimSpace(slug); s != "" {
		return s
	}
	return names.Slug(name)
}

func nameOrUnnamed(s *string) *string {
	if s != nil {
		return s
	}
	unnamed := "(no name)"
	return &unnamed
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
