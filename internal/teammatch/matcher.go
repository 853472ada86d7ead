// Package teammatch decides which catalog teams a free-text name fragment denotes.
package teammatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/meneses-pt/goals.zone/internal/db"
	"github.com/meneses-pt/goals.zone/internal/names"
)

// TermSource lists the configured affiliate terms.
type TermSource interface {
	ListAffiliateTerms(ctx context.Context) ([]db.AffiliateTermRow, error)
}

// Matcher turns name fragments into constrained team lookups. It is safe for concurrent use;
// Reload swaps the term set atomically.
type Matcher struct {
	mu       sync.RWMutex
	splitter *names.Splitter
}

func NewMatcher(terms []names.Term) *Matcher {
	return &Matcher{splitter: names.NewSplitter(terms)}
}

// LoadMatcher builds a Matcher from the stored affiliate terms.
func LoadMatcher(ctx context.Context, src TermSource) (*Matcher, error) {
	m := NewMatcher(nil)
	if err := m.Reload(ctx, src); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Matcher) Reload(ctx context.Context, src TermSource) error {
	if src == nil {
		return fmt.Errorf("term source is nil")
	}
	rows, err := src.ListAffiliateTerms(ctx)
	if err != nil {
		return fmt.Errorf("load affiliate terms: %w", err)
	}
	terms := make([]names.Term, 0, len(rows))
	for _, row := range rows {
		terms = append(terms, names.Term{Text: row.Term, IsPrefix: row.IsPrefix})
	}
	splitter := names.NewSplitter(terms)

	m.mu.Lock()
	m.splitter = splitter
	m.mu.Unlock()
	return nil
}

// Side builds the lookup for one fragment: trigram fragment plus affiliate constraint.
func (m *Matcher) Side(fragment string) db.TeamSide {
	m.mu.RLock()
	splitter := m.splitter
	m.mu.RUnlock()

	fragment = strings.TrimSpace(fragment)
	c := splitter.Constraint(fragment)
	return db.TeamSide{
		Fragment:             fragment,
		StartsWith:           c.StartsWith,
		EndsWith:             c.EndsWith,
		ExcludePrefixPattern: c.ExcludePrefixPattern,
		ExcludeSuffixPattern: c.ExcludeSuffixPattern,
	}
}

// Search builds the full match lookup for a (home, away) pair in [from, to].
func (m *Matcher) Search(home, away string, from, to time.Time) db.MatchSearch {
	return db.MatchSearch{
		Home: m.Side(home),
		Away: m.Side(away),
		From: from,
		To:   to,
	}
}
