package names

import "testing"

func TestFold(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Atlético Madrid": "atletico madrid",
		"Beşiktaş":        "besiktas",
		"FC Zürich":       "fc zurich",
		"PSG":             "psg",
	}
	for in, want := range tests {
		if got := Fold(in); got != want {
			t.Fatalf("unexpected fold of %q: got %q want %q", in, got, want)
		}
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	if got, want := Slug("Dinamo Zagreb U19", "Manchester City U19", "2019-12-11"), "dinamo-zagreb-u19-manchester-city-u19-2019-12-11"; got != want {
		t.Fatalf("unexpected slug: got %q want %q", got, want)
	}
	if got, want := Slug("  Atlético  "), "atletico"; got != want {
		t.Fatalf("unexpected slug: got %q want %q", got, want)
	}
}

func testSplitter() *Splitter {
	return NewSplitter([]Term{
		{Text: "U19"},
		{Text: "U23"},
		{Text: "W"},
		{Text: "Jong", IsPrefix: true},
	})
}

func TestSplitter_DetectsSuffixAndPrefix(t *testing.T) {
	t.Parallel()

	s := testSplitter()
	tests := []struct {
		name string
		want Split
	}{
		{name: "Manchester City U19", want: Split{Core: "Manchester City", Suffix: " U19"}},
		{name: "Jong Ajax", want: Split{Core: "Ajax", Prefix: "Jong "}},
		{name: "Ajax", want: Split{Core: "Ajax"}},
		{name: "Arsenal W", want: Split{Core: "Arsenal", Suffix: " W"}},
		{name: "Wolves", want: Split{Core: "Wolves"}},
	}
	for _, tc := range tests {
		if got := s.Split(tc.name); got != tc.want {
			t.Fatalf("unexpected split of %q: got %+v want %+v", tc.name, got, tc.want)
		}
	}
}

func TestConstraint_AffiliateIsolation(t *testing.T) {
	t.Parallel()

	s := testSplitter()

	youth := s.Constraint("Dinamo Zagreb U19")
	if !youth.Allows("Dinamo Zagreb U19") {
		t.Fatalf("expected youth name to allow youth catalog team")
	}
	if youth.Allows("Dinamo Zagreb") {
		t.Fatalf("expected youth name to reject senior catalog team")
	}

	senior := s.Constraint("Ajax")
	if !senior.Allows("Ajax") {
		t.Fatalf("expected senior name to allow senior catalog team")
	}
	if senior.Allows("Ajax U19") || senior.Allows("Jong Ajax") {
		t.Fatalf("expected senior name to reject affiliate catalog teams")
	}
	if senior.ExcludeSuffixPattern == "" || senior.ExcludePrefixPattern == "" {
		t.Fatalf("expected exclusion patterns, got %+v", senior)
	}
}

func TestConstraint_EmptyTermsExcludeNothing(t *testing.T) {
	t.Parallel()

	c := NewSplitter(nil).Constraint("Ajax")
	if c != (Constraint{}) {
		t.Fatalf("unexpected constraint without terms: %+v", c)
	}
	if !c.Allows("Ajax U19") {
		t.Fatalf("expected empty constraint to allow every name")
	}

	var nilSplitter *Splitter
	if got := nilSplitter.Constraint("Ajax"); got != (Constraint{}) {
		t.Fatalf("unexpected constraint from nil splitter: %+v", got)
	}
}

func TestSplitter_QuotesTermMetacharacters(t *testing.T) {
	t.Parallel()

	s := NewSplitter([]Term{{Text: "(W)"}})
	got := s.Split("Chelsea (W)")
	if got.Suffix != " (W)" || got.Core != "Chelsea" {
		t.Fatalf("unexpected split: %+v", got)
	}
}
