package teammatchtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/meneses-pt/goals.zone/internal/names"
	"github.com/meneses-pt/goals.zone/internal/teammatch"
)

func TestSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want float64
	}{
		{a: "word", b: "word", want: 1},
		{a: "Dinamo Zagreb", b: "Dinamo Zagreb U19", want: 0.7778},
		{a: "Atletico", b: "Atlético Madrid", want: 0.5625},
		{a: "Man City", b: "Manchester City", want: 0.4706},
		{a: "PSG", b: "Paris SG", want: 0.1818},
		{a: "Benfica", b: "Porto", want: 0},
		{a: "", b: "Porto", want: 0},
	}
	for _, tc := range tests {
		got := Similarity(tc.a, tc.b)
		if math.Abs(got-tc.want) > 0.0001 {
			t.Fatalf("unexpected similarity of %q/%q: got %.4f want %.4f", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDenotes_UsesNameShortNameAndAliases(t *testing.T) {
	t.Parallel()

	psg := Team{ID: 1, Name: "Paris Saint-Germain", ShortName: "Paris SG", Aliases: []string{"PSG"}}
	if !Denotes("PSG", psg) {
		t.Fatalf("expected alias match for PSG")
	}
	if Denotes("PSG", Team{ID: 1, Name: "Paris Saint-Germain", ShortName: "Paris SG"}) {
		t.Fatalf("unexpected match without alias")
	}

	sporting := Team{ID: 2, Name: "Sporting Clube de Portugal", ShortName: "Sporting CP"}
	if !Denotes("Sporting", sporting) {
		t.Fatalf("expected short name match for Sporting")
	}
}

func TestMemoryCatalog_AffiliateIsolationAndOrdering(t *testing.T) {
	t.Parallel()

	catalog := NewMemoryCatalog()
	catalog.AddTeam(Team{ID: 1, Name: "Dinamo Zagreb"})
	catalog.AddTeam(Team{ID: 2, Name: "Dinamo Zagreb U19"})
	catalog.AddTeam(Team{ID: 3, Name: "Manchester City"})
	catalog.AddTeam(Team{ID: 4, Name: "Manchester City U19"})

	kickoff := time.Date(2019, 12, 11, 11, 0, 0, 0, time.UTC)
	catalog.AddMatch(CatalogMatch{ID: 10, HomeID: 1, AwayID: 3, Datetime: kickoff.Add(9 * time.Hour)})
	catalog.AddMatch(CatalogMatch{ID: 11, HomeID: 2, AwayID: 4, Datetime: kickoff})
	catalog.AddMatch(CatalogMatch{ID: 12, HomeID: 2, AwayID: 4, Datetime: kickoff.Add(-48 * time.Hour)})

	m := teammatch.NewMatcher([]names.Term{{Text: "U19"}})
	search := m.Search("Dinamo Zagreb U19", "Manchester City U19", kickoff.Add(-72*time.Hour), kickoff.Add(time.Hour))

	got, err := catalog.FindMatchCandidates(context.Background(), search)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].MatchID != 11 || got[1].MatchID != 12 {
		t.Fatalf("unexpected candidates: %+v", got)
	}

	senior := m.Search("Dinamo Zagreb", "Manchester City", kickoff.Add(-72*time.Hour), kickoff.Add(12*time.Hour))
	got, err = catalog.FindMatchCandidates(context.Background(), senior)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].MatchID != 10 {
		t.Fatalf("unexpected senior candidates: %+v", got)
	}
}

func TestMemoryCatalog_AnyTeamSimilar(t *testing.T) {
	t.Parallel()

	catalog := NewMemoryCatalog()
	catalog.AddTeam(Team{ID: 1, Name: "Galatasaray", Aliases: []string{"Cimbom"}})

	ok, err := catalog.AnyTeamSimilar(context.Background(), "cimbom")
	if err != nil || !ok {
		t.Fatalf("expected alias hit, got %v (%v)", ok, err)
	}
	ok, err = catalog.AnyTeamSimilar(context.Background(), "Lorem ipsum")
	if err != nil || ok {
		t.Fatalf("unexpected hit for garbage, got %v (%v)", ok, err)
	}
}
