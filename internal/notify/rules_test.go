package notify

import (
	"testing"

	"github.com/meneses-pt/goals.zone/internal/db"
)

func ptr[T any](v T) *T { return &v }

func testState() db.MatchState {
	return db.MatchState{
		ID:             10,
		Slug:           "benfica-porto",
		Status:         "finished",
		Score:          ptr("2:1"),
		HomeTeamID:     7,
		HomeName:       "Benfica",
		HomeNameCode:   ptr("BEN"),
		AwayTeamID:     8,
		AwayName:       "Porto",
		AwayNameCode:   ptr("POR"),
		TournamentID:   ptr(int64(17)),
		TournamentName: ptr("Liga Portugal"),
		CategoryID:     ptr(int64(44)),
		CategoryName:   ptr("Portugal"),
		VideoCount:     1,
	}
}

func testVideo() db.VideoGoalRow {
	return db.VideoGoalRow{
		ID:      5,
		MatchID: 10,
		Source:  "soccer",
		URL:     ptr("https://streamable.com/abc"),
		Title:   ptr("Benfica 1-0 Porto - Di María 20'"),
		Minute:  ptr("20"),
		Author:  ptr("goalbot"),
	}
}

func TestAllows(t *testing.T) {
	t.Parallel()

	video := Video{VideoGoal: testVideo()}
	mirror := Mirror{VideoGoal: testVideo(), Mirror: db.MirrorRow{ID: 3, URL: "https://dubz.co/v/1", Author: ptr("mirrorbot")}}
	first := FirstVideo{Match: 10}

	tests := []struct {
		name  string
		rule  db.NotifyRuleRow
		state func(db.MatchState) db.MatchState
		ev    Event
		want  string
	}{
		{name: "no filters", ev: video},
		{name: "include category hit", rule: db.NotifyRuleRow{IncludeCategories: []int64{44}}, ev: video},
		{name: "include category miss", rule: db.NotifyRuleRow{IncludeCategories: []int64{1}}, ev: video, want: rejectCategory},
		{
			name:  "include tournament without tournament",
			rule:  db.NotifyRuleRow{IncludeTournaments: []int64{17}},
			state: func(s db.MatchState) db.MatchState { s.TournamentID = nil; return s },
			ev:    video,
			want:  rejectTournament,
		},
		{name: "include team away side", rule: db.NotifyRuleRow{IncludeTeams: []int64{8}}, ev: video},
		{name: "include team miss", rule: db.NotifyRuleRow{IncludeTeams: []int64{9}}, ev: video, want: rejectTeam},
		{name: "exclude category hit", rule: db.NotifyRuleRow{ExcludeCategories: []int64{44}}, ev: video, want: rejectCategory},
		{
			name:  "exclude category without category",
			rule:  db.NotifyRuleRow{ExcludeCategories: []int64{1}},
			state: func(s db.MatchState) db.MatchState { s.CategoryID = nil; return s },
			ev:    video,
			want:  rejectCategory,
		},
		{name: "exclude team home side", rule: db.NotifyRuleRow{ExcludeTeams: []int64{7}}, ev: video, want: rejectTeam},
		{name: "source mismatch", rule: db.NotifyRuleRow{Source: ptr("footballhighlights")}, ev: video, want: rejectSource},
		{name: "source ignored without video", rule: db.NotifyRuleRow{Source: ptr("footballhighlights")}, ev: first},
		{name: "source from mirror video", rule: db.NotifyRuleRow{Source: ptr("footballhighlights")}, ev: mirror, want: rejectSource},
		{name: "link regex anchored", rule: db.NotifyRuleRow{LinkRegex: ptr(`https://streamable\.com/`)}, ev: video},
		{name: "link regex not at start", rule: db.NotifyRuleRow{LinkRegex: ptr(`streamable`)}, ev: video, want: rejectLinkRegex},
		{name: "link regex on mirror url", rule: db.NotifyRuleRow{LinkRegex: ptr(`https://dubz`)}, ev: mirror},
		{name: "invalid link regex", rule: db.NotifyRuleRow{LinkRegex: ptr(`(`)}, ev: video, want: rejectLinkRegex},
		{name: "link regex ignored for first video", rule: db.NotifyRuleRow{LinkRegex: ptr(`nothing`)}, ev: first},
		{name: "author match", rule: db.NotifyRuleRow{AuthorFilter: ptr("goalbot")}, ev: video},
		{name: "author mismatch on mirror", rule: db.NotifyRuleRow{AuthorFilter: ptr("goalbot")}, ev: mirror, want: rejectAuthor},
	}
	for _, tc := range tests {
		state := testState()
		if tc.state != nil {
			state = tc.state(state)
		}
		if got := Allows(tc.rule, state, tc.ev); got != tc.want {
			t.Fatalf("%s: unexpected filter result: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestMatchEvents(t *testing.T) {
	t.Parallel()

	vg := testVideo()
	events := MatchEvents(testState(), &vg)
	if len(events) != 2 || events[0].Kind() != KindVideo || events[1].Kind() != KindFirstVideo {
		t.Fatalf("unexpected events for new video: %+v", events)
	}

	state := testState()
	state.FirstMsgSent = true
	vg.MsgSent = true
	if events := MatchEvents(state, &vg); len(events) != 0 {
		t.Fatalf("unexpected events for sent video: %+v", events)
	}

	events = MatchEvents(testState(), nil)
	if len(events) != 1 || events[0].Kind() != KindHighlights {
		t.Fatalf("unexpected events for finished match: %+v", events)
	}

	live := testState()
	live.Status = "inprogress"
	if events := MatchEvents(live, nil); len(events) != 0 {
		t.Fatalf("unexpected events for live match: %+v", events)
	}

	noCode := testState()
	noCode.AwayNameCode = nil
	if events := MatchEvents(noCode, &vg); len(events) != 0 {
		t.Fatalf("unexpected events without name codes: %+v", events)
	}
}
