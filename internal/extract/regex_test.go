package extract

import "testing"

func TestRegex_ExtractsTeamsAndMinute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title string
		want  Teams
	}{
		{
			title: "Dinamo Zagreb U19 1-0 Manchester City U19 - Antonio Marin (free-kick) 20'",
			want:  Teams{Home: "Dinamo Zagreb U19", Away: "Manchester City U19", Minute: "20"},
		},
		{
			title: "PSG [5] - 0 Galatasaray | Cavani 84' (penalty + call)",
			want:  Teams{Home: "PSG", Away: "Galatasaray", Minute: "84"},
		},
		{
			title: "Benfica 2 x [1] Porto: Taremi 90'+4'",
			want:  Teams{Home: "Benfica", Away: "Porto", Minute: "90'+4"},
		},
		{
			title: "Real Madrid [1]-0 Barcelona - Vinicius 12'",
			want:  Teams{Home: "Real Madrid", Away: "Barcelona", Minute: "12"},
		},
		{
			title: "Atlético Madrid 0 - [1] Sevilla - En-Nesyri 33'",
			want:  Teams{Home: "Atlético Madrid", Away: "Sevilla", Minute: "33"},
		},
		{
			title: "Brighton 1-[1] Man Utd - Fernandes 45+2'",
			want:  Teams{Home: "Brighton", Away: "Man Utd", Minute: "45+2"},
		},
		{
			title: "Arsenal 3-1 Chelsea",
			want:  Teams{Home: "Arsenal", Away: "Chelsea"},
		},
	}
	for _, tc := range tests {
		got, ok := Regex(tc.title)
		if !ok {
			t.Fatalf("expected extraction for %q", tc.title)
		}
		if got != tc.want {
			t.Fatalf("unexpected extraction for %q: got %+v want %+v", tc.title, got, tc.want)
		}
	}
}

func TestRegex_NoScoreIsTotalFailure(t *testing.T) {
	t.Parallel()

	for _, title := range []string{
		"Some random discussion thread",
		"Great goal by Messi",
		"Liverpool 1-",
		"",
	} {
		got, ok := Regex(title)
		if ok || got != (Teams{}) {
			t.Fatalf("unexpected extraction for %q: %+v", title, got)
		}
	}
}

func TestTeams_Swapped(t *testing.T) {
	t.Parallel()

	got := Teams{Home: "A", Away: "B", Minute: "3"}.Swapped()
	if got.Home != "B" || got.Away != "A" || got.Minute != "3" {
		t.Fatalf("unexpected swap: %+v", got)
	}
}
