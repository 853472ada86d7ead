package notify

import (
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"
	"unicode"

	"github.com/meneses-pt/goals.zone/internal/db"
)

// MatchView is the match as seen by rule templates.
type MatchView struct {
	ID         int64
	Slug       string
	Status     string
	Score      string
	Datetime   time.Time
	HomeTeam   string
	HomeCode   string
	AwayTeam   string
	AwayCode   string
	Tournament string
	Category   string
}

type VideoView struct {
	Title     string
	URL       string
	Minute    string
	Author    string
	Source    string
	Permalink string
}

type MirrorView struct {
	Title  string
	URL    string
	Author string
}

// MessageData is the root value of rule templates. VideoGoal and Mirror are zero when the
// event does not carry them.
type MessageData struct {
	Match     MatchView
	VideoGoal VideoView
	Mirror    MirrorView
}

var templateFuncs = template.FuncMap{
	"upper":   strings.ToUpper,
	"lower":   strings.ToLower,
	"hashtag": hashtag,
}

var templateCache sync.Map

// Render formats a rule template for an event.
func Render(message string, state db.MatchState, ev Event) (string, error) {
	tmpl, err := compile(message)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, newMessageData(state, ev)); err != nil {
		return "", fmt.Errorf("render message: %w", err)
	}
	return b.String(), nil
}

func compile(message string) (*template.Template, error) {
	if cached, ok := templateCache.Load(message); ok {
		return cached.(*template.Template), nil
	}
	tmpl, err := template.New("message").Funcs(templateFuncs).Parse(message)
	if err != nil {
		return nil, fmt.Errorf("parse message template: %w", err)
	}
	templateCache.Store(message, tmpl)
	return tmpl, nil
}

func newMessageData(state db.MatchState, ev Event) MessageData {
	data := MessageData{Match: MatchView{
		ID:         state.ID,
		Slug:       state.Slug,
		Status:     state.Status,
		Score:      deref(state.Score),
		HomeTeam:   state.HomeName,
		HomeCode:   deref(state.HomeNameCode),
		AwayTeam:   state.AwayName,
		AwayCode:   deref(state.AwayNameCode),
		Tournament: deref(state.TournamentName),
		Category:   deref(state.CategoryName),
	}}
	if state.Datetime != nil {
		data.Match.Datetime = *state.Datetime
	}
	if v := subjectVideo(ev); v != nil {
		data.VideoGoal = VideoView{
			Title:     deref(v.Title),
			URL:       deref(v.URL),
			Minute:    deref(v.Minute),
			Author:    deref(v.Author),
			Source:    v.Source,
			Permalink: deref(v.Permalink),
		}
	}
	if m, ok := ev.(Mirror); ok {
		data.Mirror = MirrorView{
			Title:  deref(m.Mirror.Title),
			URL:    m.Mirror.URL,
			Author: deref(m.Mirror.Author),
		}
	}
	return data
}

// hashtag keeps letters and digits: "Man Utd" -> "ManUtd".
func hashtag(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
