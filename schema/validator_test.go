package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

const validFixture = `{
	"id": 11352380,
	"slug": "benfica-porto",
	"startTimestamp": 1709323200,
	"status": {"type": "finished", "description": "Ended"},
	"tournament": {
		"id": 52,
		"name": "Liga Portugal",
		"category": {"id": 44, "name": "Portugal", "priority": 10, "flag": "portugal"},
		"uniqueTournament": {"id": 238}
	},
	"season": {"id": 52769, "name": "Liga Portugal 23/24", "year": "23/24"},
	"homeTeam": {"id": 3006, "name": "Benfica", "shortName": "Benfica", "nameCode": "BEN", "slug": "benfica"},
	"awayTeam": {"id": 3002, "name": "FC Porto", "shortName": "Porto", "nameCode": "POR", "slug": "fc-porto"},
	"homeScore": {"current": 2, "display": 2, "period1": 1, "period2": 1, "normaltime": 2},
	"awayScore": {"current": 1, "display": 1, "period1": 0, "period2": 1, "normaltime": 1}
}`

func TestValidateFixtureEvent_Valid(t *testing.T) {
	t.Parallel()

	ev, err := ValidateFixtureEvent(json.RawMessage(validFixture))
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if ev.ID != 11352380 || ev.HomeTeam.Name != "Benfica" || ev.Status.Type != "finished" {
		t.Fatalf("unexpected decoded event: %+v", ev)
	}
}

func TestValidateFixtureEvent_MissingAwayTeam(t *testing.T) {
	t.Parallel()

	payload := strings.Replace(validFixture, `"awayTeam"`, `"visitors"`, 1)
	if _, err := ValidateFixtureEvent(json.RawMessage(payload)); err == nil {
		t.Fatalf("expected validation to fail without awayTeam")
	}
}

func TestValidateFixtureEvent_SameTeams(t *testing.T) {
	t.Parallel()

	payload := strings.Replace(validFixture, `"id": 3002`, `"id": 3006`, 1)
	_, err := ValidateFixtureEvent(json.RawMessage(payload))
	if err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("unexpected error for identical teams: %v", err)
	}
}

func TestValidateRedditPost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid",
			payload: `{"id":"1b2c3d","name":"t3_1b2c3d","permalink":"/r/soccer/comments/1b2c3d/x/","title":"Benfica 1-0 Porto - Di María 20'","url":"https://streamable.com/abc","author":"goalbot","created_utc":1709324400,"link_flair_text":"Media"}`,
		},
		{
			name:    "blank title",
			payload: `{"id":"1b2c3d","name":"t3_1b2c3d","permalink":"/r/soccer/comments/1b2c3d/x/","title":"  ","author":"goalbot","created_utc":1709324400}`,
			wantErr: true,
		},
		{
			name:    "wrong fullname prefix",
			payload: `{"id":"1b2c3d","name":"t1_1b2c3d","permalink":"/r/soccer/comments/1b2c3d/x/","title":"x","author":"goalbot","created_utc":1709324400}`,
			wantErr: true,
		},
		{
			name:    "trailing content",
			payload: `{"id":"1","name":"t3_1","permalink":"/r/soccer/","title":"x","author":"a","created_utc":1} {}`,
			wantErr: true,
		},
	}
	for _, tc := range tests {
		_, err := ValidateRedditPost(json.RawMessage(tc.payload))
		if (err != nil) != tc.wantErr {
			t.Fatalf("unexpected validation result for %s: err=%v wantErr=%v", tc.name, err, tc.wantErr)
		}
	}
}

func TestValidate_DetectsKind(t *testing.T) {
	t.Parallel()

	kind, err := Validate("", json.RawMessage(validFixture))
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if kind != KindFixtureEvent {
		t.Fatalf("unexpected kind: got %q want %q", kind, KindFixtureEvent)
	}
	if _, err := Validate("", json.RawMessage(`{"foo":1}`)); err == nil {
		t.Fatalf("expected undetectable payload to fail")
	}
}
