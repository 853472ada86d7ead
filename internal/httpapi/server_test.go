package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/meneses-pt/goals.zone/internal/auth"
	"github.com/meneses-pt/goals.zone/internal/db"
	"github.com/meneses-pt/goals.zone/internal/extract"
	"github.com/meneses-pt/goals.zone/internal/resolver"
)

const testAdminKey = "test-admin-key"

type fakeStore struct {
	pingErr    error
	statsDay   time.Time
	videos     []db.VideoGoalRow
	matches    map[int64]db.MatchState
	mirrors    map[int64][]db.MirrorRow
	nerLogs    []db.NerLogRow
	reviewed   []int64
	listLimit  int
	listOffset int
	unreviewed bool
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) QueryStats(_ context.Context, dayStart, _ time.Time) (*db.Stats, error) {
	s.statsDay = dayStart
	return &db.Stats{Day: dayStart.Format("2006-01-02")}, nil
}

func (s *fakeStore) ListRecentVideoGoals(_ context.Context, limit int) ([]db.VideoGoalRow, error) {
	s.listLimit = limit
	return s.videos, nil
}

func (s *fakeStore) GetMatchState(_ context.Context, matchID int64) (db.MatchState, error) {
	state, ok := s.matches[matchID]
	if !ok {
		return db.MatchState{}, db.ErrNoRows
	}
	return state, nil
}

func (s *fakeStore) ListMatchVideoGoals(_ context.Context, matchID int64) ([]db.VideoGoalRow, error) {
	var out []db.VideoGoalRow
	for _, v := range s.videos {
		if v.MatchID == matchID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *fakeStore) ListMatchMirrors(context.Context, int64) (map[int64][]db.MirrorRow, error) {
	return s.mirrors, nil
}

func (s *fakeStore) ListNerLogs(_ context.Context, limit, offset int, onlyUnreviewed bool) ([]db.NerLogRow, error) {
	s.listLimit = limit
	s.listOffset = offset
	s.unreviewed = onlyUnreviewed
	return s.nerLogs, nil
}

func (s *fakeStore) MarkNerLogReviewed(_ context.Context, id int64) error {
	for _, row := range s.nerLogs {
		if row.ID == id {
			s.reviewed = append(s.reviewed, id)
			return nil
		}
	}
	return db.ErrNoRows
}

type fakeResolver struct {
	outcome resolver.Outcome
	err     error
	created time.Time
	until   time.Time
}

func (r *fakeResolver) Resolve(_ context.Context, _ string, created, until time.Time) (resolver.Outcome, error) {
	r.created = created
	r.until = until
	return r.outcome, r.err
}

func strPtr(s string) *string { return &s }

func newTestServer(t *testing.T, store Store, r Resolver) http.Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash admin key: %v", err)
	}
	return NewServer(store, r, zerolog.Nop(), Options{AdminKeyHash: string(hash)}).Handler()
}

func doRequest(t *testing.T, h http.Handler, method, target, body string, admin bool) (*httptest.ResponseRecorder, jsendResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set(auth.HeaderName, testAdminKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &fakeStore{}, nil)
	rec, resp := doRequest(t, h, http.MethodGet, "/healthz", "", false)
	if rec.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("unexpected health response: got %d %q", rec.Code, resp.Status)
	}

	down := newTestServer(t, &fakeStore{pingErr: errors.New("down")}, nil)
	rec, resp = doRequest(t, down, http.MethodGet, "/api/v1/health", "", false)
	if rec.Code != http.StatusServiceUnavailable || resp.Status != "error" {
		t.Fatalf("unexpected degraded response: got %d %q", rec.Code, resp.Status)
	}
}

func TestStats_DayParam(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	h := newTestServer(t, store, nil)

	rec, _ := doRequest(t, h, http.MethodGet, "/api/v1/stats?day=2026-03-14", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want 200", rec.Code)
	}
	if got := store.statsDay.Format(time.RFC3339); got != "2026-03-14T00:00:00Z" {
		t.Fatalf("unexpected stats day: got %q", got)
	}

	rec, resp := doRequest(t, h, http.MethodGet, "/api/v1/stats?day=14/03/2026", "", false)
	if rec.Code != http.StatusBadRequest || resp.Status != "fail" {
		t.Fatalf("unexpected invalid day response: got %d %q", rec.Code, resp.Status)
	}
}

func TestRecentVideos_Limit(t *testing.T) {
	t.Parallel()

	store := &fakeStore{videos: []db.VideoGoalRow{{ID: 1, MatchID: 7, Source: "soccer", Title: strPtr("A 1 - 0 B")}}}
	h := newTestServer(t, store, nil)

	rec, _ := doRequest(t, h, http.MethodGet, "/api/v1/videos/recent", "", false)
	if rec.Code != http.StatusOK || store.listLimit != defaultPageSize {
		t.Fatalf("unexpected default limit: got %d status %d", store.listLimit, rec.Code)
	}

	rec, _ = doRequest(t, h, http.MethodGet, "/api/v1/videos/recent?limit=500", "", false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status for oversized limit: got %d want 400", rec.Code)
	}
}

func TestMatchVideos(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		matches: map[int64]db.MatchState{7: {ID: 7, Slug: "benfica-porto-20260314", HomeName: "Benfica", AwayName: "Porto"}},
		videos: []db.VideoGoalRow{
			{ID: 1, MatchID: 7, Source: "soccer"},
			{ID: 2, MatchID: 8, Source: "soccer"},
		},
		mirrors: map[int64][]db.MirrorRow{1: {{ID: 10, VideoGoalID: 1, URL: "https://streamin.one/v/1"}}},
	}
	h := newTestServer(t, store, nil)

	rec, resp := doRequest(t, h, http.MethodGet, "/api/v1/matches/7/videos", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want 200", rec.Code)
	}
	data, _ := resp.Data.(map[string]any)
	items, _ := data["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("unexpected item count: got %d want 1", len(items))
	}
	first, _ := items[0].(map[string]any)
	if mirrors, _ := first["mirrors"].([]any); len(mirrors) != 1 {
		t.Fatalf("unexpected mirror count: got %d want 1", len(mirrors))
	}

	rec, _ = doRequest(t, h, http.MethodGet, "/api/v1/matches/99/videos", "", false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status for missing match: got %d want 404", rec.Code)
	}
}

func TestAdminRoutes_RequireKey(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &fakeStore{}, nil)
	rec, _ := doRequest(t, h, http.MethodGet, "/api/v1/ner-logs", "", false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status without key: got %d want 401", rec.Code)
	}

	closed := NewServer(&fakeStore{}, nil, zerolog.Nop(), Options{}).Handler()
	rec, _ = doRequest(t, closed, http.MethodGet, "/api/v1/ner-logs", "", true)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status with admin disabled: got %d want 403", rec.Code)
	}
}

func TestNerLogs_ListAndReview(t *testing.T) {
	t.Parallel()

	store := &fakeStore{nerLogs: []db.NerLogRow{{
		ID: 3,
		NerLogRecord: db.NerLogRecord{
			Title:         "Benfica [1] - 0 Porto - Rafa 12'",
			RegexHomeTeam: strPtr("Benfica"),
			RegexAwayTeam: strPtr("Porto"),
			NerHomeTeam:   strPtr("Benfica"),
			NerAwayTeam:   strPtr("FC Porto"),
		},
	}}}
	h := newTestServer(t, store, nil)

	rec, resp := doRequest(t, h, http.MethodGet, "/api/v1/ner-logs?page=2&page_size=10&unreviewed=true", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want 200", rec.Code)
	}
	if store.listLimit != 10 || store.listOffset != 10 || !store.unreviewed {
		t.Fatalf("unexpected paging: limit=%d offset=%d unreviewed=%v", store.listLimit, store.listOffset, store.unreviewed)
	}
	data, _ := resp.Data.(map[string]any)
	items, _ := data["items"].([]any)
	first, _ := items[0].(map[string]any)
	if got := first["type"]; got != string(extract.AgreementConflict) {
		t.Fatalf("unexpected agreement: got %v want %q", got, extract.AgreementConflict)
	}

	rec, _ = doRequest(t, h, http.MethodPost, "/api/v1/ner-logs/3/review", "", true)
	if rec.Code != http.StatusOK || len(store.reviewed) != 1 {
		t.Fatalf("unexpected review result: got %d reviewed=%v", rec.Code, store.reviewed)
	}
	rec, _ = doRequest(t, h, http.MethodPost, "/api/v1/ner-logs/4/review", "", true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status for missing log: got %d want 404", rec.Code)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	r := &fakeResolver{outcome: resolver.Outcome{
		Resolved: true,
		Match:    db.MatchCandidate{MatchID: 7, Datetime: kickoff, HomeName: "Benfica", AwayName: "Porto"},
		Source:   resolver.SourceRegex,
		Regex:    extract.Teams{Home: "Benfica", Away: "Porto", Minute: "12'"},
		RegexOK:  true,
	}}
	h := newTestServer(t, &fakeStore{}, r)

	body := `{"title":"Benfica [1] - 0 Porto - Rafa 12'","created_at":"2026-03-14T20:30:00Z","source":"footballhighlights"}`
	rec, resp := doRequest(t, h, http.MethodPost, "/api/v1/resolve", body, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want 200 (%v)", rec.Code, resp.Message)
	}
	if got := r.until.Sub(r.created); got != highlightsAhead {
		t.Fatalf("unexpected search window: got %s want %s", got, highlightsAhead)
	}
	data, _ := resp.Data.(map[string]any)
	if got := data["match_id"]; got != float64(7) {
		t.Fatalf("unexpected match id: got %v want 7", got)
	}

	rec, _ = doRequest(t, h, http.MethodPost, "/api/v1/resolve", `{"title":"  "}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status for blank title: got %d want 400", rec.Code)
	}

	none := newTestServer(t, &fakeStore{}, nil)
	rec, _ = doRequest(t, none, http.MethodPost, "/api/v1/resolve", body, true)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status without resolver: got %d want 503", rec.Code)
	}
}
