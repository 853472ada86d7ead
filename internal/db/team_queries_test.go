package db

import (
	"strings"
	"testing"
	"time"

	"gorm.io/gorm/logger"
)

func TestBuildMatchSearchQuery_StartsWithReplacesPrefixExclusion(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(96 * time.Hour)
	query, args := buildMatchSearchQuery(MatchSearch{
		Home: TeamSide{Fragment: "Benfica", StartsWith: "U19 ", ExcludePrefixPattern: "^(U19 |B )"},
		Away: TeamSide{Fragment: "Porto", ExcludeSuffixPattern: "( B| U23)$"},
		From: from,
		To:   to,
	})

	if !strings.Contains(query, "starts_with(lower(h.name), lower($4))") {
		t.Fatalf("expected home prefix filter, got query:\n%s", query)
	}
	if strings.Contains(query, "h.name !~*") {
		t.Fatalf("unexpected home prefix exclusion when a prefix was detected:\n%s", query)
	}
	if !strings.Contains(query, "a.name !~* $6") {
		t.Fatalf("expected away suffix exclusion, got query:\n%s", query)
	}
	if !strings.Contains(query, "ORDER BY m.datetime DESC") {
		t.Fatalf("expected newest-first ordering")
	}

	want := []any{from, to, "Benfica", "U19 ", "Porto", "( B| U23)$"}
	if len(args) != len(want) {
		t.Fatalf("unexpected arg count: got %d want %d (%v)", len(args), len(want), args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("unexpected arg %d: got %v want %v", i, args[i], want[i])
		}
	}
}

func TestBuildMatchSearchQuery_EndsWithReusesPlaceholder(t *testing.T) {
	t.Parallel()

	query, args := buildMatchSearchQuery(MatchSearch{
		Home: TeamSide{Fragment: "Sporting"},
		Away: TeamSide{Fragment: "Braga", EndsWith: " B"},
		From: time.Unix(0, 0),
		To:   time.Unix(3600, 0),
	})

	if !strings.Contains(query, "right(lower(a.name), char_length($5)) = lower($5)") {
		t.Fatalf("expected away suffix filter, got query:\n%s", query)
	}
	if len(args) != 5 {
		t.Fatalf("unexpected arg count: got %d want 5", len(args))
	}
}

func TestResolveGormLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		env   string
		want  logger.LogLevel
	}{
		{level: "debug", want: logger.Info},
		{level: "", want: logger.Warn},
		{level: "error", want: logger.Error},
		{level: "verbose", env: "local", want: logger.Warn},
		{level: "verbose", env: "production", want: logger.Error},
	}
	for _, tc := range tests {
		if got := resolveGormLogLevel(tc.level, tc.env); got != tc.want {
			t.Fatalf("unexpected gorm level for %q/%q: got %v want %v", tc.level, tc.env, got, tc.want)
		}
	}
}
