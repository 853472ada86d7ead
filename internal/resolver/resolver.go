// Package resolver maps a post title to the catalog match it most likely refers to.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meneses-pt/goals.zone/internal/db"
	"github.com/meneses-pt/goals.zone/internal/extract"
	"github.com/meneses-pt/goals.zone/internal/langdetect"
	"github.com/meneses-pt/goals.zone/internal/teammatch"
)

// LookBack is how far before the post's creation a match may have kicked off.
const LookBack = 72 * time.Hour

// Source names the extraction stage that produced a resolved pair.
type Source string

const (
	SourceRegex Source = "regex"
	SourceNER   Source = "ner"
)

// Store finds fixtures for a constrained team pair.
type Store interface {
	FindMatchCandidates(ctx context.Context, search db.MatchSearch) ([]db.MatchCandidate, error)
}

// NerLogStore records regex-vs-model comparisons.
type NerLogStore interface {
	InsertNerLog(ctx context.Context, rec db.NerLogRecord) (bool, error)
}

// Outcome is Resolved (Match, Pair, Source) or Unresolved. Regex and NER always carry the
// raw extractions so callers can audit an unresolved title.
type Outcome struct {
	Resolved   bool
	Match      db.MatchCandidate
	Candidates []db.MatchCandidate
	Pair       extract.Teams
	Source     Source
	Swapped    bool

	Regex   extract.Teams
	RegexOK bool
	NER     extract.NERResult
}

// NominalPair is the pair recorded for an unresolved title: the regex pair when complete,
// otherwise the model pair when complete. ok is false when neither produced both teams.
func (o Outcome) NominalPair() (extract.Teams, bool) {
	if o.Regex.HasPair() {
		return o.Regex, true
	}
	if pair := o.NER.Teams(); pair.HasPair() {
		return pair, true
	}
	return extract.Teams{}, false
}

type Resolver struct {
	store      Store
	matcher    *teammatch.Matcher
	recognizer extract.Recognizer
	logs       NerLogStore
	logger     zerolog.Logger
}

// New builds a Resolver. recognizer and logs may be nil.
func New(store Store, matcher *teammatch.Matcher, recognizer extract.Recognizer, logs NerLogStore, logger zerolog.Logger) *Resolver {
	if matcher == nil {
		matcher = teammatch.NewMatcher(nil)
	}
	return &Resolver{
		store:      store,
		matcher:    matcher,
		recognizer: recognizer,
		logs:       logs,
		logger:     logger,
	}
}

// Resolve runs the regex stage, then the model stage, each trying both orientations in
// [postCreatedAt-LookBack, searchUntil]. The newest candidate wins.
func (r *Resolver) Resolve(ctx context.Context, title string, postCreatedAt, searchUntil time.Time) (Outcome, error) {
	if r == nil || r.store == nil {
		return Outcome{}, fmt.Errorf("resolver is not initialized")
	}
	title = strings.TrimSpace(title)

	var out Outcome
	out.Regex, out.RegexOK = extract.Regex(title)

	if r.recognizer != nil {
		nerResult, err := extract.NER(ctx, r.recognizer, title)
		if err != nil {
			r.logger.Warn().Err(err).Str("title", title).Msg("ner extraction failed")
		} else {
			out.NER = nerResult
		}
	}
	r.logComparison(ctx, title, out.Regex, out.NER)

	from := postCreatedAt.Add(-LookBack)
	stages := []struct {
		source Source
		pair   extract.Teams
	}{
		{source: SourceRegex, pair: out.Regex},
		{source: SourceNER, pair: out.NER.Teams()},
	}
	for _, stage := range stages {
		if !stage.pair.HasPair() {
			continue
		}
		candidates, swapped, err := r.tryBothOrientations(ctx, stage.pair, from, searchUntil)
		if err != nil {
			return Outcome{}, fmt.Errorf("resolve %s pair: %w", stage.source, err)
		}
		if len(candidates) == 0 {
			continue
		}
		out.Resolved = true
		out.Candidates = candidates
		out.Match = candidates[0]
		out.Source = stage.source
		out.Swapped = swapped
		out.Pair = stage.pair
		if swapped {
			out.Pair = stage.pair.Swapped()
		}
		return out, nil
	}
	return out, nil
}

func (r *Resolver) tryBothOrientations(ctx context.Context, pair extract.Teams, from, to time.Time) ([]db.MatchCandidate, bool, error) {
	candidates, err := r.store.FindMatchCandidates(ctx, r.matcher.Search(pair.Home, pair.Away, from, to))
	if err != nil {
		return nil, false, err
	}
	if len(candidates) > 0 {
		return candidates, false, nil
	}
	candidates, err = r.store.FindMatchCandidates(ctx, r.matcher.Search(pair.Away, pair.Home, from, to))
	if err != nil {
		return nil, false, err
	}
	return candidates, len(candidates) > 0, nil
}

// logComparison never affects the outcome; failures are only logged.
func (r *Resolver) logComparison(ctx context.Context, title string, regex extract.Teams, ner extract.NERResult) {
	if r.logs == nil || title == "" {
		return
	}
	if regex.Home == "" && regex.Away == "" && ner.Home == "" && ner.Away == "" {
		return
	}

	rec := db.NerLogRecord{
		Title:         title,
		RegexHomeTeam: optional(regex.Home),
		RegexAwayTeam: optional(regex.Away),
		NerHomeTeam:   optional(ner.Home),
		NerAwayTeam:   optional(ner.Away),
		TitleLanguage: optional(langdetect.TitleLanguage(title)),
	}
	if _, err := r.logs.InsertNerLog(ctx, rec); err != nil {
		r.logger.Warn().Err(err).Str("title", title).Msg("store ner log failed")
		return
	}
	r.logger.Debug().
		Str("title", title).
		Str("agreement", string(extract.Classify(regex.Home, regex.Away, ner.Home, ner.Away))).
		Msg("ner log recorded")
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
